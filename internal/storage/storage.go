// Package storage provides the tiered blob storage layer: a uniform adapter
// contract over a durable content-addressed network tier (IPFS) and a local
// ephemeral tier (BadgerDB), plus the fallback controller that routes
// traffic between them based on durable-tier health.
package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
)

// Tier marks which storage tier holds a blob.
type Tier string

const (
	TierDurable   Tier = "durable"
	TierEphemeral Tier = "ephemeral"
)

// Options control a store call.
type Options struct {
	// Pin requests that the durable tier pin the blob so it is not
	// garbage-collected. Ignored by the ephemeral tier.
	Pin bool
}

// StoreResult is the outcome of a successful store call.
type StoreResult struct {
	BlobID      string
	Certificate string
	Size        int64
}

// Reference locates a stored blob: the content-addressed blob id, the hash
// of the content that was written, the tier that holds it, and the tier's
// opaque availability certificate.
type Reference struct {
	BlobID      string `json:"blob_id"`
	ContentHash string `json:"content_hash"`
	Tier        Tier   `json:"tier"`
	Certificate string `json:"certificate,omitempty"`
}

// Adapter is the uniform contract both tiers implement.
type Adapter interface {
	Store(ctx context.Context, data []byte, opts Options) (StoreResult, error)
	Retrieve(ctx context.Context, blobID string) ([]byte, error)
	HealthCheck(ctx context.Context) error
	Tier() Tier
}

// EphemeralTier extends Adapter with the ability to cache a blob under a
// caller-chosen id. The fallback controller uses it to keep local copies of
// durable blobs so reads can degrade without fabricating data.
type EphemeralTier interface {
	Adapter
	StoreAt(ctx context.Context, blobID string, data []byte) error
}

// HashContent returns the hex-encoded SHA-256 of the blob content. Both
// tiers record it in the reference so retrieved content can be verified.
func HashContent(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
