package kvstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/dgraph-io/badger"
	"github.com/intrntsrfr/guildlog/eventlog"
	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"
)

// Message is a cached message together with the attachments that were small enough to keep.
type Message struct {
	Message     *discordgo.Message
	Attachments []*Attachment
}

type Attachment struct {
	Filename    string
	ContentType string
	Size        int
	Data        []byte
}

// Files returns the kept attachments in the form the log payloads carry them.
func (m *Message) Files() []eventlog.File {
	files := make([]eventlog.File, 0, len(m.Attachments))
	for _, a := range m.Attachments {
		ct := a.ContentType
		if ct == "" {
			ct = "application/octet-stream"
		}
		files = append(files, eventlog.File{Name: a.Filename, ContentType: ct, Data: a.Data})
	}
	return files
}

func messageKey(gid, cid, mid string) string {
	return fmt.Sprintf("message:%s:%s:%s", gid, cid, mid)
}

func indexKey(gid, uid, mid string) string {
	return fmt.Sprintf("index:%s:%s:%s", gid, uid, mid)
}

// NewMessage wraps msg and downloads its attachments up to the configured size. Attachments
// that fail to download are left out.
func (s *Store) NewMessage(ctx context.Context, msg *discordgo.Message) *Message {
	m := &Message{Message: msg}
	if s.fetch == nil || len(msg.Attachments) == 0 {
		return m
	}

	fetched := make([]*Attachment, len(msg.Attachments))
	p := pool.New().WithContext(ctx).WithMaxGoroutines(4)
	for i, a := range msg.Attachments {
		if int64(a.Size) > s.maxAttachment {
			continue
		}
		p.Go(func(ctx context.Context) error {
			data, ct, err := s.fetch.Download(ctx, a.URL, s.maxAttachment)
			if err != nil {
				s.log.Debug("failed to fetch attachment", zap.String("message", msg.ID), zap.String("file", a.Filename), zap.Error(err))
				return nil
			}
			if a.ContentType != "" {
				ct = a.ContentType
			}
			fetched[i] = &Attachment{Filename: a.Filename, ContentType: ct, Size: a.Size, Data: data}
			return nil
		})
	}
	_ = p.Wait()

	for _, a := range fetched {
		if a != nil {
			m.Attachments = append(m.Attachments, a)
		}
	}
	return m
}

// SetMessage stores m and indexes it by author. Both entries expire after the message TTL.
func (s *Store) SetMessage(m *Message) error {
	stored := *m.Message
	stored.Components = nil
	stored.ReferencedMessage = nil
	stored.Thread = nil

	enc, err := encodeGob(&Message{Message: &stored, Attachments: m.Attachments})
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}

	key := messageKey(stored.GuildID, stored.ChannelID, stored.ID)
	return s.db.Update(func(txn *badger.Txn) error {
		if err := txn.SetEntry(badger.NewEntry([]byte(key), enc).WithTTL(s.ttl)); err != nil {
			return err
		}
		if stored.Author == nil {
			return nil
		}
		idx := indexKey(stored.GuildID, stored.Author.ID, stored.ID)
		return txn.SetEntry(badger.NewEntry([]byte(idx), []byte(key)).WithTTL(s.ttl))
	})
}

func (s *Store) GetMessage(gid, cid, mid string) (*Message, error) {
	return get[Message](s, messageKey(gid, cid, mid))
}

// GetMessages returns the cached messages among ids, skipping the ones that are not cached.
func (s *Store) GetMessages(gid, cid string, ids []string) []*Message {
	var out []*Message
	_ = s.db.View(func(txn *badger.Txn) error {
		for _, id := range ids {
			var m Message
			if err := readInto(txn, messageKey(gid, cid, id), &m); err != nil {
				if !errors.Is(err, ErrNotFound) {
					s.log.Error("failed to read message", zap.String("message", id), zap.Error(err))
				}
				continue
			}
			out = append(out, &m)
		}
		return nil
	})
	return out
}

func (s *Store) DeleteMessage(m *discordgo.Message) error {
	keys := []string{messageKey(m.GuildID, m.ChannelID, m.ID)}
	if m.Author != nil {
		keys = append(keys, indexKey(m.GuildID, m.Author.ID, m.ID))
	}
	return s.delete(keys...)
}

// GetMessageLog returns the cached messages uid sent in gid since the given time, oldest first.
func (s *Store) GetMessageLog(gid, uid string, since time.Time) ([]*Message, error) {
	prefix := []byte(fmt.Sprintf("index:%s:%s:", gid, uid))
	var messages []*Message
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			mid := string(it.Item().Key()[len(prefix):])
			if ts, err := discordgo.SnowflakeTimestamp(mid); err != nil || ts.Before(since) {
				continue
			}

			key, err := it.Item().ValueCopy(nil)
			if err != nil {
				s.log.Error("failed to read index", zap.Error(err))
				continue
			}
			var m Message
			if err := readInto(txn, string(key), &m); err != nil {
				if !errors.Is(err, ErrNotFound) {
					s.log.Error("failed to read message", zap.String("message", mid), zap.Error(err))
				}
				continue
			}
			messages = append(messages, &m)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("read message log: %w", err)
	}
	return messages, nil
}
