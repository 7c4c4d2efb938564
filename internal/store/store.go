// Package store persists the flattened chat history in a local
// key-value database. One bucket, one key, one JSON-encoded snapshot:
// every save is a full overwrite, so the last writer wins and no merge
// logic exists.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
	"go.uber.org/zap"

	"github.com/personachat/backend/internal/model/chat"
)

var (
	bucketName = []byte("chat")
	historyKey = []byte("chatHistory")
)

// History is the persistence gateway for the message collection.
type History struct {
	db     *bolt.DB
	logger *zap.Logger
}

// Open creates the history store at path, creating parent directories as
// needed.
func Open(path string, logger *zap.Logger) (*History, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create history dir: %w", err)
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}
	return &History{db: db, logger: logger}, nil
}

// Load reads the stored collection. A missing key, malformed JSON, or a
// payload that is not a message sequence all recover to an empty slice;
// the failure is logged, never returned.
func (h *History) Load() []chat.Message {
	var raw []byte
	err := h.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketName)
		if b == nil {
			return nil
		}
		if v := b.Get(historyKey); v != nil {
			raw = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		h.logger.Warn("failed to read chat history, starting empty", zap.Error(err))
		return []chat.Message{}
	}
	if len(raw) == 0 {
		return []chat.Message{}
	}

	var messages []chat.Message
	if err := json.Unmarshal(raw, &messages); err != nil {
		h.logger.Warn("stored chat history is malformed, starting empty", zap.Error(err))
		return []chat.Message{}
	}
	if messages == nil {
		return []chat.Message{}
	}
	return messages
}

// Save overwrites the stored collection with the given snapshot. Callers
// treat failures as best-effort: the error is returned for logging but
// in-memory state is allowed to diverge from disk.
func (h *History) Save(messages []chat.Message) error {
	if messages == nil {
		messages = []chat.Message{}
	}
	enc, err := json.Marshal(messages)
	if err != nil {
		return fmt.Errorf("encode chat history: %w", err)
	}
	err = h.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(bucketName)
		if err != nil {
			return err
		}
		return b.Put(historyKey, enc)
	})
	if err != nil {
		return fmt.Errorf("write chat history: %w", err)
	}
	return nil
}

// Close releases the underlying database file.
func (h *History) Close() error {
	return h.db.Close()
}

// putRaw overwrites the stored value without encoding. Test hook for
// exercising malformed-payload recovery.
func (h *History) putRaw(payload []byte) error {
	return h.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(bucketName)
		if err != nil {
			return err
		}
		return b.Put(historyKey, payload)
	})
}
