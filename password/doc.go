// Package password implements password hashing and verification with bcrypt.
//
// # Output format
//
// Digests are standard bcrypt strings ($2a$<cost>$<salt><hash>). The cost is embedded
// in the digest, which lets [Bcrypt.NeedsRehash] detect digests produced under an older
// rounds setting so the caller can upgrade them on the next successful login.
//
// # Architecture boundaries
//
// This package owns hashing and verification only. Password policy (length, character
// rules) is enforced by the Engine's request validation.
//
// # What this package must NOT do
//
//   - Store or retrieve passwords. Callers supply plaintext and receive digests.
//   - Import any other goAccount package.
//   - Log plaintext passwords or digests.
package password
