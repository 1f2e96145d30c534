package cryptox

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAesCbcRoundTrip(t *testing.T) {
	key := RandomBytes(32)
	iv := RandomBytes(16)
	pt := []byte("hello world, this is a note")

	ct, err := AesCbcEncrypt(key, iv, pt)
	require.NoError(t, err)

	got, err := AesCbcDecrypt(key, iv, ct)
	require.NoError(t, err)
	require.True(t, bytes.Equal(pt, got))
}

func TestAesCbcDecrypt_RejectsShortCiphertext(t *testing.T) {
	key := RandomBytes(32)
	iv := RandomBytes(16)
	_, err := AesCbcDecrypt(key, iv, []byte("short"))
	require.ErrorIs(t, err, ErrCiphertextTooShort)
}

func TestXChaCha20Poly1305RoundTrip(t *testing.T) {
	key := RandomBytes(32)
	nonce, ct, err := XChaCha20Poly1305Seal(key, []byte("secret note text"), []byte("aad"))
	require.NoError(t, err)

	pt, err := XChaCha20Poly1305Open(key, nonce, ct, []byte("aad"))
	require.NoError(t, err)
	require.Equal(t, "secret note text", string(pt))
}

func TestXChaCha20Poly1305Open_WrongAADFails(t *testing.T) {
	key := RandomBytes(32)
	nonce, ct, err := XChaCha20Poly1305Seal(key, []byte("secret"), []byte("aad-1"))
	require.NoError(t, err)

	_, err = XChaCha20Poly1305Open(key, nonce, ct, []byte("aad-2"))
	require.Error(t, err)
}

func TestArgon2idKey_Deterministic(t *testing.T) {
	password := []byte("correct horse battery staple")
	salt := []byte("fixed-salt-000000000000000000000")

	k1 := Argon2idKey(password, salt, 3, 64*1024, 4, 32)
	k2 := Argon2idKey(password, salt, 3, 64*1024, 4, 32)
	require.Equal(t, k1, k2)
}

func TestPbkdf2Keys_DifferentSaltsDiffer(t *testing.T) {
	password := []byte("hunter2")
	k1 := Pbkdf2Sha256Key(password, []byte("salt-a"), 1000, 32)
	k2 := Pbkdf2Sha256Key(password, []byte("salt-b"), 1000, 32)
	require.NotEqual(t, k1, k2)
}

func TestEncryptDecryptJSON_RoundTrip(t *testing.T) {
	key := RandomBytes(32)
	type payload struct {
		Title string `json:"title"`
	}
	in := payload{Title: "grocery list"}

	ct, nonce, err := EncryptJSON(in, key)
	require.NoError(t, err)

	var out payload
	require.NoError(t, DecryptJSON(ct, nonce, key, &out))
	require.Equal(t, in, out)
}
