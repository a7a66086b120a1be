// Package kvstore keeps the last seen state of everything the gateway does not hand back as a
// "before" value: messages, members, channels, roles, guilds, emojis, stickers, voice states, stage
// instances and scheduled events.
package kvstore

import (
	"bytes"
	"context"
	"encoding/gob"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger"
	"github.com/dgraph-io/badger/options"
	"go.uber.org/zap"
)

// ErrNotFound is returned when a snapshot is not in the store.
var ErrNotFound = errors.New("snapshot not found")

const (
	DefaultMessageTTL        = 24 * time.Hour
	DefaultMaxAttachmentSize = 1024 * 1024 * 10
)

// Fetcher downloads attachment bodies.
type Fetcher interface {
	Download(ctx context.Context, url string, max int64) ([]byte, string, error)
}

type Options struct {
	Dir string
	// MessageTTL is how long messages and their author index live.
	MessageTTL        time.Duration
	MaxAttachmentSize int64
	Logger            badger.Logger
}

type Store struct {
	db    *badger.DB
	log   *zap.Logger
	fetch Fetcher

	ttl           time.Duration
	maxAttachment int64
}

func Open(opts Options, fetch Fetcher, log *zap.Logger) (*Store, error) {
	if opts.MessageTTL <= 0 {
		opts.MessageTTL = DefaultMessageTTL
	}
	if opts.MaxAttachmentSize <= 0 {
		opts.MaxAttachmentSize = DefaultMaxAttachmentSize
	}

	bo := badger.DefaultOptions(opts.Dir)
	bo.Truncate = true
	bo.ValueLogLoadingMode = options.FileIO
	bo.NumVersionsToKeep = 1
	if opts.Logger != nil {
		bo.Logger = opts.Logger
	}

	db, err := badger.Open(bo)
	if err != nil {
		return nil, fmt.Errorf("open kvstore: %w", err)
	}

	return &Store{
		db:            db,
		log:           log,
		fetch:         fetch,
		ttl:           opts.MessageTTL,
		maxAttachment: opts.MaxAttachmentSize,
	}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// RunGC rewrites value log files until badger reports there is nothing left to reclaim.
func (s *Store) RunGC() error {
	for {
		err := s.db.RunValueLogGC(0.7)
		if errors.Is(err, badger.ErrNoRewrite) {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

// ForgetGuild drops every snapshot of guild gid.
func (s *Store) ForgetGuild(gid string) error {
	var prefixes [][]byte
	for _, kind := range []string{"message", "index", "member", "channel", "role", "guild", "emojis", "stickers", "voice", "stage", "event"} {
		prefixes = append(prefixes, []byte(kind+":"+gid+":"))
	}
	return s.db.DropPrefix(prefixes...)
}

func encodeGob(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeGob(data []byte, v interface{}) error {
	return gob.NewDecoder(bytes.NewReader(data)).Decode(v)
}

func (s *Store) set(key string, v interface{}) error {
	enc, err := encodeGob(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), enc)
	})
}

func get[T any](s *Store, key string) (*T, error) {
	var v T
	err := s.db.View(func(txn *badger.Txn) error {
		return readInto(txn, key, &v)
	})
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func readInto(txn *badger.Txn, key string, v interface{}) error {
	item, err := txn.Get([]byte(key))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	value, err := item.ValueCopy(nil)
	if err != nil {
		return err
	}
	if err := decodeGob(value, v); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

func (s *Store) delete(keys ...string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		for _, k := range keys {
			if err := txn.Delete([]byte(k)); err != nil {
				return err
			}
		}
		return nil
	})
}
