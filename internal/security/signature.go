// Package security implements request signing for the Solunex license
// server. Mutating SDK endpoints carry an HMAC-SHA256 signature over the
// exact raw request body; the server recomputes it against the shared
// secret and compares in constant time.
package security

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// Signer computes and verifies body signatures. A Signer with an empty
// secret is disabled: Enabled reports false and the HTTP layer skips
// verification entirely.
type Signer struct {
	secret []byte
}

// NewSigner creates a Signer for the shared secret.
func NewSigner(secret string) *Signer {
	return &Signer{secret: []byte(secret)}
}

// Enabled reports whether a secret is configured.
func (s *Signer) Enabled() bool {
	return len(s.secret) > 0
}

// Sign returns the lowercase hex HMAC-SHA256 of body. The body must be
// the exact bytes that go on the wire; any re-serialization changes the
// signature.
func (s *Signer) Sign(body []byte) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify checks a presented hex signature against body. Comparison is
// constant time over the decoded MACs. Malformed hex, a missing
// signature, and a mismatch are all just "false"; callers get no oracle
// for which it was.
func (s *Signer) Verify(body []byte, presented string) bool {
	if presented == "" {
		return false
	}
	presentedMAC, err := hex.DecodeString(presented)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, s.secret)
	mac.Write(body)
	return hmac.Equal(mac.Sum(nil), presentedMAC)
}
