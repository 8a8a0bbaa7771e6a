package cryptoutil

import (
	"bytes"
	"encoding/base64"
	"encoding/hex"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKey() []byte {
	key := make([]byte, KeySize)
	for i := range key {
		key[i] = byte(i)
	}
	return key
}

func TestParseKey(t *testing.T) {
	t.Parallel()

	key := testKey()
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"plain base64", base64.StdEncoding.EncodeToString(key), false},
		{"tagged base64", "base64:" + base64.StdEncoding.EncodeToString(key), false},
		{"plain hex", hex.EncodeToString(key), false},
		{"tagged hex", "hex:" + hex.EncodeToString(key), false},
		{"surrounding whitespace", "  " + hex.EncodeToString(key) + "\n", false},
		{"empty", "", true},
		{"short", base64.StdEncoding.EncodeToString(key[:16]), true},
		{"garbage", "not-a-key", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			parsed, err := ParseKey(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, key, parsed)
		})
	}
}

func TestConfigRoundTrip(t *testing.T) {
	t.Parallel()

	plain := []byte("upload:\n  secret_key: hunter2\n")
	sealed, err := EncryptConfig(plain, testKey())
	require.NoError(t, err)
	assert.NotContains(t, string(sealed), "hunter2")

	opened, err := DecryptConfig(sealed, testKey())
	require.NoError(t, err)
	assert.Equal(t, plain, opened)
}

func TestDecryptConfigRejectsTampering(t *testing.T) {
	t.Parallel()

	sealed, err := EncryptConfig([]byte("databases: [app]"), testKey())
	require.NoError(t, err)

	_, err = DecryptConfig(sealed[:headerSize-1], testKey())
	assert.ErrorContains(t, err, "too short")

	badMagic := append([]byte("XXXX"), sealed[4:]...)
	_, err = DecryptConfig(badMagic, testKey())
	assert.ErrorContains(t, err, "invalid config header")

	flipped := append([]byte(nil), sealed...)
	flipped[len(flipped)-1] ^= 0xff
	_, err = DecryptConfig(flipped, testKey())
	assert.Error(t, err)
}

func TestStreamRoundTrip(t *testing.T) {
	t.Parallel()

	payload := bytes.Repeat([]byte("INSERT INTO users VALUES (1);\n"), 4096)

	var sealed bytes.Buffer
	w, err := EncryptWriter(&sealed, testKey())
	require.NoError(t, err)
	_, err = w.Write(payload)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	r, err := DecryptReader(&sealed, testKey())
	require.NoError(t, err)
	out, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, payload, out)
}
