package crypto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEncryptor(t *testing.T) *AESEncryptor {
	t.Helper()
	key, err := GenerateKey()
	require.NoError(t, err)
	enc, err := NewAESEncryptor(key)
	require.NoError(t, err)
	return enc
}

func TestGenerateKey(t *testing.T) {
	key, err := GenerateKey()
	require.NoError(t, err)
	assert.Len(t, key, KeySize)

	key2, err := GenerateKey()
	require.NoError(t, err)
	assert.NotEqual(t, key, key2, "keys should be random")
}

func TestEncodeDecodeKeyBase64(t *testing.T) {
	key, err := GenerateKey()
	require.NoError(t, err)

	encoded := EncodeKeyBase64(key)
	require.NotEmpty(t, encoded)

	decoded, err := DecodeKeyBase64(encoded)
	require.NoError(t, err)
	assert.Equal(t, key, decoded)
}

func TestDecodeKeyBase64_Errors(t *testing.T) {
	_, err := DecodeKeyBase64(EncodeKeyBase64(make([]byte, 16)))
	assert.ErrorContains(t, err, "invalid key length")

	_, err = DecodeKeyBase64("not-valid-base64!!!")
	assert.Error(t, err)
}

func TestNewAESEncryptor_KeySize(t *testing.T) {
	for _, size := range []int{0, 16, 24, 31, 33} {
		_, err := NewAESEncryptor(make([]byte, size))
		assert.ErrorIs(t, err, ErrInvalidKey, "size %d", size)
	}

	_, err := NewAESEncryptor(nil)
	assert.ErrorIs(t, err, ErrInvalidKey)
}

func TestEncryptDecrypt(t *testing.T) {
	enc := newEncryptor(t)

	tests := []struct {
		name      string
		plaintext string
	}{
		{"cart", `{"lines":[{"product_id":"6f1c2d0e-8b4a-4c39-9f5e-2b7d1a3c4e5f","quantity":2}]}`},
		{"empty", ""},
		{"unicode", "Merino ✓ 羊毛"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ciphertext, err := enc.Encrypt([]byte(tt.plaintext))
			require.NoError(t, err)
			require.NotEmpty(t, ciphertext)

			decrypted, err := enc.Decrypt(ciphertext)
			require.NoError(t, err)
			assert.Equal(t, tt.plaintext, string(decrypted))
		})
	}
}

func TestEncrypt_NonDeterministic(t *testing.T) {
	enc := newEncryptor(t)

	c1, err := enc.Encrypt([]byte("test"))
	require.NoError(t, err)
	c2, err := enc.Encrypt([]byte("test"))
	require.NoError(t, err)

	assert.NotEqual(t, c1, c2, "random nonce")
}

func TestDecrypt_Failures(t *testing.T) {
	enc := newEncryptor(t)
	ciphertext, err := enc.Encrypt([]byte("secret data"))
	require.NoError(t, err)

	t.Run("wrong key", func(t *testing.T) {
		_, err := newEncryptor(t).Decrypt(ciphertext)
		assert.Error(t, err)
	})

	t.Run("invalid base64", func(t *testing.T) {
		_, err := enc.Decrypt([]byte("not-valid-base64!!!"))
		assert.Error(t, err)
	})

	t.Run("too short", func(t *testing.T) {
		_, err := enc.Decrypt([]byte(EncodeKeyBase64([]byte("short"))))
		assert.ErrorIs(t, err, ErrCiphertextTooShort)
	})

	t.Run("tampered", func(t *testing.T) {
		tampered := append([]byte(nil), ciphertext...)
		if tampered[20] == 'A' {
			tampered[20] = 'B'
		} else {
			tampered[20] = 'A'
		}
		_, err := enc.Decrypt(tampered)
		assert.Error(t, err)
	})
}
