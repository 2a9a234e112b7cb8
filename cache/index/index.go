// Package index persists what is known about downloaded remote resources,
// so that unchanged resources can be served from local files.
package index

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"ocm.software/open-component-model/artifactresolver/transport"
)

const keyPrefix = "resource:"

// Options configures the index database.
type Options struct {
	// Dir is the database directory. It is ignored for in-memory indexes.
	Dir      string
	InMemory bool
	// Logger receives badger's internal messages, nil silences them.
	Logger badger.Logger
}

// Option configures Open.
type Option func(*Options)

// WithDir stores the index below dir.
func WithDir(dir string) Option {
	return func(o *Options) {
		o.Dir = dir
	}
}

// WithInMemory keeps the index in memory only.
func WithInMemory() Option {
	return func(o *Options) {
		o.InMemory = true
	}
}

// WithLogger forwards badger's messages.
func WithLogger(logger badger.Logger) Option {
	return func(o *Options) {
		o.Logger = logger
	}
}

// Index is a badger backed store of transport.IndexEntry values.
type Index struct {
	db *badger.DB
}

// Open opens or creates an index.
func Open(opts ...Option) (*Index, error) {
	options := &Options{}
	for _, opt := range opts {
		opt(options)
	}
	if options.Dir == "" && !options.InMemory {
		return nil, errors.New("index directory is required unless the index is in memory")
	}
	bo := badger.DefaultOptions(options.Dir)
	if options.InMemory {
		bo = badger.DefaultOptions("").WithInMemory(true)
	}
	bo = bo.WithLogger(options.Logger)
	db, err := badger.Open(bo)
	if err != nil {
		return nil, fmt.Errorf("unable to open cached resource index: %w", err)
	}
	return &Index{db: db}, nil
}

// Close releases the database.
func (i *Index) Close() error {
	return i.db.Close()
}

// For returns a view of the index whose keys are namespaced, usually by
// the id of a repository.
func (i *Index) For(namespace string) transport.Index {
	return &view{db: i.db, prefix: keyPrefix + namespace + "\x00"}
}

type view struct {
	db     *badger.DB
	prefix string
}

func (v *view) key(location string) []byte {
	return []byte(v.prefix + location)
}

func (v *view) Lookup(ctx context.Context, location string) (transport.IndexEntry, bool, error) {
	if err := ctx.Err(); err != nil {
		return transport.IndexEntry{}, false, err
	}
	var value []byte
	err := v.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(v.key(location))
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return transport.IndexEntry{}, false, nil
	}
	if err != nil {
		return transport.IndexEntry{}, false, fmt.Errorf("unable to read index entry for %s: %w", location, err)
	}
	var entry transport.IndexEntry
	if err := json.Unmarshal(value, &entry); err != nil {
		return transport.IndexEntry{}, false, fmt.Errorf("corrupt index entry for %s: %w", location, err)
	}
	return entry, true, nil
}

func (v *view) Store(ctx context.Context, location string, entry transport.IndexEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	value, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	return v.db.Update(func(txn *badger.Txn) error {
		return txn.SetEntry(badger.NewEntry(v.key(location), value))
	})
}
