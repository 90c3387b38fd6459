/*
 * Copyright (c) 2016 Salle, Alexandre <alex@alexsalle.com>
 * Author: Salle, Alexandre <alex@alexsalle.com>
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy of
 * this software and associated documentation files (the "Software"), to deal in
 * the Software without restriction, including without limitation the rights to
 * use, copy, modify, merge, publish, distribute, sublicense, and/or sell copies of
 * the Software, and to permit persons to whom the Software is furnished to do so,
 * subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY, FITNESS
 * FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE AUTHORS OR
 * COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER LIABILITY, WHETHER
 * IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM, OUT OF OR IN
 * CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE SOFTWARE.
 */

package skipgram

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/syndtr/goleveldb/leveldb"
	leveldberrors "github.com/syndtr/goleveldb/leveldb/errors"
	leveldbopt "github.com/syndtr/goleveldb/leveldb/opt"
)

const uint32Bytes = 4

var byteOrder binary.ByteOrder = binary.LittleEndian

var ErrKeyNotFound = errors.New("key not found")

type IterateFunc func(key, val []byte) error

// KVStore is the byte-level storage behind ExampleStore.
type KVStore interface {
	Get(key []byte) ([]byte, error)
	Put(key, val []byte) error
	Iterate(f IterateFunc) error
	Close() error
	Cleanup() error
}

// LevelDBStore keeps values in a LevelDB database created under a fresh
// temporary directory.
type LevelDBStore struct {
	dbPath string
	db     *leveldb.DB
}

func NewLevelDBStore(dir string) (*LevelDBStore, error) {
	dbPath, err := os.MkdirTemp(dir, "examplesdb")
	if err != nil {
		return nil, err
	}
	opts := leveldbopt.Options{
		NoSync:      true,
		Compression: leveldbopt.NoCompression,
	}
	_ = os.RemoveAll(dbPath)
	db, err := leveldb.OpenFile(dbPath, &opts)
	if err != nil {
		return nil, fmt.Errorf("open leveldb %s: %w", dbPath, err)
	}
	return &LevelDBStore{dbPath: dbPath, db: db}, nil
}

func (ldb *LevelDBStore) Path() string { return ldb.dbPath }

func (ldb *LevelDBStore) Get(key []byte) ([]byte, error) {
	val, err := ldb.db.Get(key, nil)
	if errors.Is(err, leveldberrors.ErrNotFound) {
		return nil, ErrKeyNotFound
	}
	return val, err
}

func (ldb *LevelDBStore) Put(key, val []byte) error {
	return ldb.db.Put(key, val, nil)
}

// Iterate visits keys in byte order.
func (ldb *LevelDBStore) Iterate(f IterateFunc) error {
	iter := ldb.db.NewIterator(nil, nil)
	defer iter.Release()
	for iter.Next() {
		if err := f(iter.Key(), iter.Value()); err != nil {
			return err
		}
	}
	return iter.Error()
}

func (ldb *LevelDBStore) Close() error {
	return ldb.db.Close()
}

// Cleanup closes the database and removes it from disk.
func (ldb *LevelDBStore) Cleanup() error {
	if err := ldb.Close(); err != nil && !errors.Is(err, leveldb.ErrClosed) {
		return err
	}
	return os.RemoveAll(ldb.dbPath)
}

// ExampleStore is an ExampleSource on top of a KVStore. Keys are big-endian
// indices so iteration follows index order. Put may be called from several
// goroutines.
type ExampleStore struct {
	kv KVStore
	mu sync.Mutex
	n  int
}

func NewExampleStore(kv KVStore) *ExampleStore {
	return &ExampleStore{kv: kv}
}

func exampleKey(i int) []byte {
	k := make([]byte, 8)
	binary.BigEndian.PutUint64(k, uint64(i))
	return k
}

func (s *ExampleStore) Append(ex Example) error {
	return s.Put(s.Len(), ex)
}

// Put stores ex at index i. Len becomes the highest index put plus one, so
// callers filling shards concurrently must fill every index below it.
func (s *ExampleStore) Put(i int, ex Example) error {
	if i < 0 {
		return fmt.Errorf("example index %d < 0", i)
	}
	if err := s.kv.Put(exampleKey(i), packExample(ex)); err != nil {
		return err
	}
	s.mu.Lock()
	if i >= s.n {
		s.n = i + 1
	}
	s.mu.Unlock()
	return nil
}

func (s *ExampleStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.n
}

func (s *ExampleStore) Example(i int) (Example, error) {
	if n := s.Len(); i < 0 || i >= n {
		return Example{}, fmt.Errorf("example %d out of range [0, %d)", i, n)
	}
	val, err := s.kv.Get(exampleKey(i))
	if err != nil {
		return Example{}, fmt.Errorf("example %d: %w", i, err)
	}
	return unpackExample(val)
}

// Iterate visits every example in insertion order.
func (s *ExampleStore) Iterate(f func(i int, ex Example) error) error {
	return s.kv.Iterate(func(key, val []byte) error {
		ex, err := unpackExample(val)
		if err != nil {
			return err
		}
		return f(int(binary.BigEndian.Uint64(key)), ex)
	})
}

func (s *ExampleStore) Cleanup() error {
	return s.kv.Cleanup()
}

// packExample lays out center, len(contexts), len(negatives), contexts,
// negatives as little-endian uint32s.
func packExample(ex Example) []byte {
	b := make([]byte, uint32Bytes*(3+len(ex.Contexts)+len(ex.Negatives)))
	f := byteOrder.PutUint32
	offset := 0
	put := func(v int) {
		f(b[offset:offset+uint32Bytes], uint32(v))
		offset += uint32Bytes
	}
	put(ex.Center)
	put(len(ex.Contexts))
	put(len(ex.Negatives))
	for _, c := range ex.Contexts {
		put(c)
	}
	for _, n := range ex.Negatives {
		put(n)
	}
	return b
}

func unpackExample(b []byte) (Example, error) {
	if len(b) < 3*uint32Bytes || len(b)%uint32Bytes != 0 {
		return Example{}, fmt.Errorf("corrupt example: %d bytes", len(b))
	}
	f := byteOrder.Uint32
	offset := 0
	get := func() int {
		v := int(f(b[offset : offset+uint32Bytes]))
		offset += uint32Bytes
		return v
	}
	ex := Example{Center: get()}
	nCtx, nNeg := get(), get()
	if len(b) != uint32Bytes*(3+nCtx+nNeg) {
		return Example{}, fmt.Errorf("corrupt example: %d bytes for %d contexts and %d negatives", len(b), nCtx, nNeg)
	}
	ex.Contexts = make([]int, nCtx)
	for i := range ex.Contexts {
		ex.Contexts[i] = get()
	}
	ex.Negatives = make([]int, nNeg)
	for i := range ex.Negatives {
		ex.Negatives[i] = get()
	}
	return ex, nil
}
