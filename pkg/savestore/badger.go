/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package savestore

import (
	"fmt"
	"path/filepath"
	"strings"

	badger "github.com/dgraph-io/badger/v2"
	"github.com/pkg/errors"

	"github.com/tickharness/tickharness/pkg/logging"
)

// BadgerStore keeps all recordings in a single key value database, keyed
// by their cleaned path.
type BadgerStore struct {
	db *badger.DB
}

// OpenBadger opens the database in dirPath, or an in memory database if
// dirPath is empty.
func OpenBadger(dirPath string, logger logging.Logger) (*BadgerStore, error) {
	var badgerOpts badger.Options
	if dirPath == "" {
		badgerOpts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		badgerOpts = badger.DefaultOptions(dirPath).WithSyncWrites(false).WithTruncate(true)
	}
	badgerOpts = badgerOpts.WithLogger(&badgerLogger{logger: logging.OrNil(logger)})

	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, errors.WithMessage(err, "could not open backing db")
	}

	return &BadgerStore{
		db: db,
	}, nil
}

func key(path string) []byte {
	return []byte(filepath.ToSlash(filepath.Clean(path)))
}

func (bs *BadgerStore) Save(path string, data []byte) error {
	return bs.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key(path), data)
	})
}

func (bs *BadgerStore) Load(path string) ([]byte, error) {
	var valCopy []byte
	err := bs.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key(path))
		if err != nil {
			return err
		}

		valCopy, err = item.ValueCopy(nil)
		return err
	})

	if err == badger.ErrKeyNotFound {
		return nil, errors.WithMessage(ErrNotFound, path)
	}

	return valCopy, errors.WithMessagef(err, "could not load %s", path)
}

func (bs *BadgerStore) Exists(path string) (bool, error) {
	_, err := bs.Load(path)
	switch {
	case err == nil:
		return true, nil
	case IsNotFound(err):
		return false, nil
	default:
		return false, err
	}
}

// Keys lists the stored paths below prefix in key order.
func (bs *BadgerStore) Keys(prefix string) ([]string, error) {
	var keys []string
	p := []byte(filepath.ToSlash(prefix))
	err := bs.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(p); it.ValidForPrefix(p); it.Next() {
			keys = append(keys, string(it.Item().KeyCopy(nil)))
		}
		return nil
	})
	return keys, err
}

func (bs *BadgerStore) Sync() error {
	return bs.db.Sync()
}

func (bs *BadgerStore) Close() error {
	return bs.db.Close()
}

type badgerLogger struct {
	logger logging.Logger
}

func (bl *badgerLogger) log(level logging.LogLevel, format string, args ...interface{}) {
	bl.logger.Log(level, strings.TrimSpace(fmt.Sprintf(format, args...)), "component", "badger")
}

func (bl *badgerLogger) Errorf(format string, args ...interface{}) {
	bl.log(logging.LevelError, format, args...)
}

func (bl *badgerLogger) Warningf(format string, args ...interface{}) {
	bl.log(logging.LevelWarn, format, args...)
}

func (bl *badgerLogger) Infof(format string, args ...interface{}) {
	bl.log(logging.LevelDebug, format, args...)
}

func (bl *badgerLogger) Debugf(format string, args ...interface{}) {
	bl.log(logging.LevelDebug, format, args...)
}
