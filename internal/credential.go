package internal

import (
	"crypto/sha256"
	"crypto/subtle"

	"github.com/google/uuid"
)

// HashCredential derives the storable digest of a refresh credential.
// Only this digest is ever persisted; the credential string itself never
// reaches the store.
func HashCredential(credential string) [32]byte {
	return sha256.Sum256([]byte(credential))
}

// HashEqual compares two credential digests in constant time.
func HashEqual(a, b [32]byte) bool {
	return subtle.ConstantTimeCompare(a[:], b[:]) == 1
}

// NewRotationID mints the rotation identifier embedded in a refresh
// credential. Each rotation gets a fresh value so two credentials for the
// same session never collide.
func NewRotationID() string {
	return uuid.NewString()
}
