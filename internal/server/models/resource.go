// Package models holds the persisted row types and the liveness predicate
// shared by every read path and the background sweep.
package models

import "time"

// Resource is one uploaded, client-side-encrypted file: its database row and
// the on-disk blob named by Hash are treated as a single logical unit.
type Resource struct {
	// Hash is the base64url (unpadded) SHA-256 digest of the encrypted
	// bytes. It is the public identifier and the blob's storage name.
	Hash string

	// AdminKeyDigest is the base64url SHA-256 digest of the per-resource
	// admin capability. The capability itself is never stored.
	AdminKeyDigest string

	// EncryptedName and the two IVs are opaque to the server; clients need
	// them to decrypt the filename and file data locally.
	EncryptedName []byte
	IVData        []byte
	IVName        []byte

	// Size is the byte length of the encrypted blob.
	Size int64

	// Uploader is the canonical client-identity string of the uploader.
	Uploader string

	CreatedAt time.Time
	ExpiresAt time.Time

	// Downloads is approximate: concurrent downloads may lose an increment.
	Downloads int64
}

// Live reports whether the resource is still valid at the given instant.
// Every read path treats a non-live resource as absent, regardless of
// whether the sweep has physically removed it yet.
func (r *Resource) Live(now time.Time) bool {
	return r.ExpiresAt.After(now)
}

// AdminSession is a site-wide administrator login: the digest of a random
// session token plus its expiry. Same lazy-expiry rule as Resource.
type AdminSession struct {
	TokenDigest string
	ExpiresAt   time.Time
}

// Live reports whether the session is still valid at the given instant.
func (s *AdminSession) Live(now time.Time) bool {
	return s.ExpiresAt.After(now)
}
