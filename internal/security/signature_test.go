package security

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSignerDisabledWithoutSecret(t *testing.T) {
	s := NewSigner("")
	assert.False(t, s.Enabled())
}

func TestSignProducesLowercaseHexHMAC(t *testing.T) {
	secret := "shared-secret"
	body := []byte(`{"license_key":"SOL-W56J-UPH1-N3YG-2B9R-EA","device_id":"d1"}`)

	s := NewSigner(secret)
	got := s.Sign(body)

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	want := hex.EncodeToString(mac.Sum(nil))

	assert.Equal(t, want, got)
	assert.Equal(t, strings.ToLower(got), got)
	assert.Len(t, got, 64)
}

func TestVerify(t *testing.T) {
	s := NewSigner("shared-secret")
	body := []byte(`{"license_key":"SOL-W56J-UPH1-N3YG-2B9R-EA"}`)
	sig := s.Sign(body)

	tests := []struct {
		name      string
		body      []byte
		presented string
		want      bool
	}{
		{"correct signature", body, sig, true},
		{"empty body signs too", nil, s.Sign(nil), true},
		{"tampered body", []byte(`{"license_key":"SOL-0000-0000-0000-0000-00"}`), sig, false},
		{"tampered signature", body, "deadbeef" + sig[8:], false},
		{"uppercase hex accepted after decode", body, strings.ToUpper(sig), true},
		{"malformed hex", body, "not-hex-at-all", false},
		{"truncated signature", body, sig[:32], false},
		{"empty signature", body, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, s.Verify(tt.body, tt.presented))
		})
	}
}

func TestVerifyDifferentSecrets(t *testing.T) {
	body := []byte(`payload`)
	sig := NewSigner("secret-a").Sign(body)
	assert.False(t, NewSigner("secret-b").Verify(body, sig))
}
