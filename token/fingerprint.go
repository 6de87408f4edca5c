package token

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// Fingerprinter computes a keyed, deterministic digest of a raw token
// string. The digest serves two purposes: it is the revocation lookup key
// stored in the AccessToken record, and it is the CSRF secret handed to the
// client in a script-readable cookie. The key must be distinct from the
// token signing secret; an HMAC (rather than a plain hash) keeps stored
// fingerprints useless for offline correlation against leaked tokens.
type Fingerprinter struct {
	key []byte
}

func NewFingerprinter(key string) *Fingerprinter {
	return &Fingerprinter{key: []byte(key)}
}

// Fingerprint returns the hex-encoded HMAC-SHA256 of the raw token.
func (f *Fingerprinter) Fingerprint(rawToken string) string {
	mac := hmac.New(sha256.New, f.key)
	mac.Write([]byte(rawToken))
	return hex.EncodeToString(mac.Sum(nil))
}
