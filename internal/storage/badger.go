package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"

	apperrors "github.com/veridex/claimsearch/pkg/errors"
)

const blobKeyPrefix = "blob/"

// BadgerStore is the ephemeral tier: a local BadgerDB keyed by content hash.
// It is always available and answers fast, but content is not durable
// beyond the local disk (or process, when running in memory).
type BadgerStore struct {
	db     *badger.DB
	logger *slog.Logger
}

// badgerLogger adapts slog to badger's logger interface.
type badgerLogger struct {
	logger *slog.Logger
}

var _ badger.Logger = (*badgerLogger)(nil)

func (l *badgerLogger) Errorf(msg string, args ...any)   { l.logger.Error(fmt.Sprintf(msg, args...)) }
func (l *badgerLogger) Warningf(msg string, args ...any) { l.logger.Warn(fmt.Sprintf(msg, args...)) }
func (l *badgerLogger) Infof(msg string, args ...any)    { l.logger.Debug(fmt.Sprintf(msg, args...)) }
func (l *badgerLogger) Debugf(msg string, args ...any)   { l.logger.Debug(fmt.Sprintf(msg, args...)) }

// OpenBadgerStore opens the ephemeral tier at dir, creating the directory if
// needed. With inMemory set, nothing touches disk; used by tests.
func OpenBadgerStore(dir string, inMemory bool) (*BadgerStore, error) {
	logger := slog.Default().With("component", "badger-store")

	var opts badger.Options
	if inMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating ephemeral storage dir: %w", err)
		}
		opts = badger.DefaultOptions(dir)
	}
	opts.Logger = &badgerLogger{logger: logger}
	opts.Compression = options.None

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening badger at %s: %w", dir, err)
	}
	return &BadgerStore{db: db, logger: logger}, nil
}

// Store writes the blob under its content hash, so identical content maps to
// the same blob id on every tier.
func (s *BadgerStore) Store(ctx context.Context, data []byte, opts Options) (StoreResult, error) {
	blobID := HashContent(data)
	if err := s.StoreAt(ctx, blobID, data); err != nil {
		return StoreResult{}, err
	}
	return StoreResult{
		BlobID:      blobID,
		Certificate: "local/" + blobID,
		Size:        int64(len(data)),
	}, nil
}

// StoreAt writes the blob under a caller-chosen id. The fallback controller
// uses it to cache durable blobs under their CID.
func (s *BadgerStore) StoreAt(ctx context.Context, blobID string, data []byte) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(blobKeyPrefix+blobID), data)
	})
	if err != nil {
		return fmt.Errorf("writing ephemeral blob %s: %w", blobID, err)
	}
	s.logger.Debug("blob stored in ephemeral tier", "blob_id", blobID, "size", len(data))
	return nil
}

// Retrieve reads the blob for the given id. A missing blob surfaces the
// typed not-found sentinel.
func (s *BadgerStore) Retrieve(ctx context.Context, blobID string) ([]byte, error) {
	var data []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(blobKeyPrefix + blobID))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("%w: ephemeral blob %s", apperrors.ErrBlobNotFound, blobID)
	}
	if err != nil {
		return nil, fmt.Errorf("reading ephemeral blob %s: %w", blobID, err)
	}
	return data, nil
}

// HealthCheck reports whether the database is open.
func (s *BadgerStore) HealthCheck(ctx context.Context) error {
	if s.db.IsClosed() {
		return errors.New("badger database is closed")
	}
	return nil
}

// Tier identifies this adapter as the ephemeral tier.
func (s *BadgerStore) Tier() Tier {
	return TierEphemeral
}

// Close closes the underlying database.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}
