package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	shell "github.com/ipfs/go-ipfs-api"

	apperrors "github.com/veridex/claimsearch/pkg/errors"
)

// IPFSStore is the durable tier: content-addressed, network-backed, and
// potentially slow or unavailable. Blob ids are IPFS CIDs.
type IPFSStore struct {
	sh     *shell.Shell
	logger *slog.Logger
}

// NewIPFSStore creates a durable store talking to the IPFS HTTP API at
// apiAddr (e.g. "127.0.0.1:5001"). requestTimeout bounds individual shell
// calls at the HTTP client level; the fallback controller adds its own
// context deadline on top.
func NewIPFSStore(apiAddr string, requestTimeout time.Duration) *IPFSStore {
	sh := shell.NewShell(apiAddr)
	if requestTimeout > 0 {
		sh.SetTimeout(requestTimeout)
	}
	return &IPFSStore{
		sh:     sh,
		logger: slog.Default().With("component", "ipfs-store"),
	}
}

// Store adds the blob to IPFS and returns its CID. The availability
// certificate records the pin state; it is opaque to callers.
func (s *IPFSStore) Store(ctx context.Context, data []byte, opts Options) (StoreResult, error) {
	cid, err := s.sh.Add(bytes.NewReader(data), shell.Pin(opts.Pin))
	if err != nil {
		return StoreResult{}, fmt.Errorf("%w: ipfs add: %v", apperrors.ErrStorageUnavailable, err)
	}
	cert := "ipfs/unpinned/" + cid
	if opts.Pin {
		cert = "ipfs/pinned/" + cid
	}
	s.logger.Debug("blob stored in ipfs", "cid", cid, "size", len(data), "pinned", opts.Pin)
	return StoreResult{
		BlobID:      cid,
		Certificate: cert,
		Size:        int64(len(data)),
	}, nil
}

// Retrieve reads the blob for the given CID.
func (s *IPFSStore) Retrieve(ctx context.Context, blobID string) ([]byte, error) {
	rc, err := s.sh.Cat(blobID)
	if err != nil {
		return nil, fmt.Errorf("%w: ipfs cat %s: %v", apperrors.ErrStorageUnavailable, blobID, err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("%w: reading ipfs blob %s: %v", apperrors.ErrStorageUnavailable, blobID, err)
	}
	return data, nil
}

// HealthCheck asks the IPFS node for its identity.
func (s *IPFSStore) HealthCheck(ctx context.Context) error {
	if _, err := s.sh.ID(); err != nil {
		return fmt.Errorf("ipfs node unreachable: %w", err)
	}
	return nil
}

// Tier identifies this adapter as the durable tier.
func (s *IPFSStore) Tier() Tier {
	return TierDurable
}
