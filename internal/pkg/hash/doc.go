// Package hash signs short values so they can round-trip through an untrusted
// client (for example a flow cookie) and be verified on the way back.
package hash

// Hash produces and checks keyed digests.
type Hash interface {
	// Hash returns the hex-encoded digest of str.
	Hash(str string) ([]byte, error)
	// Verify reports whether hashed is the digest of str.
	Verify(hashed, str string) bool
}
