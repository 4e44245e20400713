// Package auth resolves opaque API tokens to principals. Tokens are stored
// as SHA-256 digests; the plaintext value is only ever seen at issue time
// and in the Authorization header.
package auth
