package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content digests.
// Version suffix enables future algorithm migration.
const (
	DomainSnapshot = "worldtx/snapshot/v1"
	DomainWindow   = "worldtx/window/v1"
)

// hashWithDomain computes SHA-256 hash with domain separation.
// Format: SHA256(domain + 0x00 + data)
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// SnapshotDigest hashes the canonical form of a block snapshot. Equal
// snapshots always hash equal, which lets a journal show whether a restore
// put a position back exactly.
func SnapshotDigest(s BlockSnapshot) (string, error) {
	canonical, err := MarshalCanonical(s)
	if err != nil {
		return "", fmt.Errorf("SnapshotDigest: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainSnapshot, canonical), nil
}

// WindowDigest hashes a processed capture window's outcome. The outcome
// must be canonically marshalable.
func WindowDigest(windowID string, seq int64, outcome any) (string, error) {
	obj := map[string]any{
		"window_id": windowID,
		"seq":       seq,
		"outcome":   outcome,
	}
	canonical, err := MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("WindowDigest: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainWindow, canonical), nil
}

// MustSnapshotDigest is like SnapshotDigest but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustSnapshotDigest(s BlockSnapshot) string {
	d, err := SnapshotDigest(s)
	if err != nil {
		panic(err)
	}
	return d
}
