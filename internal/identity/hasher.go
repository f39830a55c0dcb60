// Package identity derives opaque tokens from scanned documents and keeps a
// minimal, PII-free summary per identity. The token is the only join key
// used for ban and repeat-visit lookups; raw document numbers are never
// persisted.
package identity

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Token is a salted one-way identity token. Same document, same secret,
// same token; it is never reversible to the document fields.
type Token string

// Hasher computes identity tokens with a process-wide secret.
type Hasher struct {
	secret []byte
}

func NewHasher(secret string) *Hasher {
	return &Hasher{secret: []byte(secret)}
}

// Hash derives the token for a document. All three fields are normalized
// (trimmed, uppercased) before hashing so formatting differences in the
// same physical document cannot desynchronize its ban history.
func (h *Hasher) Hash(region, idNumber, dateOfBirth string) Token {
	msg := normalize(region) + ":" + normalize(idNumber) + ":" + normalize(dateOfBirth)
	mac := hmac.New(sha256.New, h.secret)
	mac.Write([]byte(msg))
	return Token(hex.EncodeToString(mac.Sum(nil)))
}

func normalize(field string) string {
	return strings.ToUpper(strings.TrimSpace(field))
}
