package token_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/veridianhq/veridian-server/token"
)

func TestFingerprintIsDeterministic(t *testing.T) {
	f := token.NewFingerprinter("fingerprint-key")

	first := f.Fingerprint("some-raw-token")
	second := f.Fingerprint("some-raw-token")
	assert.Equal(t, first, second)
	assert.Len(t, first, 64, "hex-encoded SHA-256 digest")
}

func TestFingerprintDependsOnKey(t *testing.T) {
	a := token.NewFingerprinter("key-a")
	b := token.NewFingerprinter("key-b")

	assert.NotEqual(t, a.Fingerprint("some-raw-token"), b.Fingerprint("some-raw-token"))
}

func TestFingerprintDependsOnToken(t *testing.T) {
	f := token.NewFingerprinter("fingerprint-key")

	assert.NotEqual(t, f.Fingerprint("token-one"), f.Fingerprint("token-two"))
}
