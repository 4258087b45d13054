package eventstore

import (
	"crypto/sha1" //nolint:gosec // not used for security; a stable 160-bit digest is all that's required
	"encoding/hex"
	"strings"
)

// CanonicalIDLength is the fixed width of a canonical stream id (spec §3, §4.1).
const CanonicalIDLength = 40

// systemStreamSigil marks a stream id as a system stream (spec §3): such
// streams skip hashing and use the name directly, left-padded to the
// canonical width.
const systemStreamSigil = "$"

// allStreamSentinel is the one stream id the canonicalizer always rejects;
// "$all" is reserved for addressing the whole store, not a real stream.
const allStreamSentinel = "$all"

// deletedStreamID is the system stream the delete engine (C6) appends its
// audit events to.
const deletedStreamID = "$deleted"

// IsSystemStreamID reports whether id is reserved for engine-owned audit
// streams ($-prefixed).
func IsSystemStreamID(id string) bool {
	return strings.HasPrefix(id, systemStreamSigil)
}

// Canonicalize maps a caller-supplied stream id to its canonical internal
// key, per spec §4.1. It returns the canonical key and the original id
// unchanged (so callers can echo it back).
func Canonicalize(id string) (canonical string, original string, err error) {
	if id == "" {
		return "", "", ErrEmptyStreamID
	}

	if id == allStreamSentinel {
		return "", "", ErrReservedStreamID
	}

	if IsSystemStreamID(id) {
		if len(id) > CanonicalIDLength {
			return "", "", ErrSystemStreamIDTooLong
		}

		return strings.Repeat("\x00", CanonicalIDLength-len(id)) + id, id, nil
	}

	sum := sha1.Sum([]byte(id)) //nolint:gosec // see import comment

	return hex.EncodeToString(sum[:]), id, nil
}
