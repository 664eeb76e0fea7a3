package crypto_test

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantish/clobtrade/internal/crypto"
)

func TestL2HeadersAt_Deterministic(t *testing.T) {
	auth := &crypto.HMACAuth{
		Key:        "api-key",
		Secret:     base64.StdEncoding.EncodeToString([]byte("super-secret")),
		Passphrase: "passphrase",
	}

	a := auth.L2HeadersAt("0xmaker", "POST", "/order", `{"x":1}`, 1_700_000_000)
	b := auth.L2HeadersAt("0xmaker", "POST", "/order", `{"x":1}`, 1_700_000_000)

	assert.Equal(t, a, b)
	assert.Equal(t, "0xmaker", a["POLY_ADDRESS"])
	assert.Equal(t, "api-key", a["POLY_API_KEY"])
	assert.Equal(t, "1700000000", a["POLY_TIMESTAMP"])
	assert.Equal(t, "passphrase", a["POLY_PASSPHRASE"])
	assert.NotEmpty(t, a["POLY_SIGNATURE"])
}

func TestL2HeadersAt_SignatureVariesWithInput(t *testing.T) {
	auth := &crypto.HMACAuth{Key: "k", Secret: base64.StdEncoding.EncodeToString([]byte("s"))}

	post := auth.L2HeadersAt("0xmaker", "POST", "/order", "", 1_700_000_000)
	del := auth.L2HeadersAt("0xmaker", "DELETE", "/order", "", 1_700_000_000)
	later := auth.L2HeadersAt("0xmaker", "POST", "/order", "", 1_700_000_001)

	assert.NotEqual(t, post["POLY_SIGNATURE"], del["POLY_SIGNATURE"])
	assert.NotEqual(t, post["POLY_SIGNATURE"], later["POLY_SIGNATURE"])
}

func TestHMACAuth_StringRedacts(t *testing.T) {
	auth := &crypto.HMACAuth{Key: "abcdef123456", Secret: "deadbeefcafe"}

	s := auth.String()

	assert.Contains(t, s, "abcd****")
	assert.NotContains(t, s, "abcdef123456")
	assert.NotContains(t, s, "deadbeefcafe")
}

func TestEncryptDecryptKey_RoundTrip(t *testing.T) {
	const keyHex = "4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"

	blob, err := crypto.EncryptKey("0x"+keyHex, "hunter2")
	require.NoError(t, err)

	got, err := crypto.DecryptKey(blob, "hunter2")
	require.NoError(t, err)
	assert.Equal(t, keyHex, got)

	_, err = crypto.DecryptKey(blob, "wrong-password")
	assert.Error(t, err)
}
