// Package cryptox is the raw crypto primitives adapter: random bytes, KDFs,
// AEAD/CBC ciphers and HMAC, hex/base64 helpers. The versioned protocol
// operators in internal/protocol build on these primitives; nothing in this
// package knows about payloads, items or protocol versions.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
	"golang.org/x/crypto/pbkdf2"
)

var ErrCiphertextTooShort = errors.New("cryptox: ciphertext too short")

// RandomBytes returns n cryptographically random bytes.
func RandomBytes(n int) []byte {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		panic("cryptox: system randomness unavailable: " + err.Error())
	}
	return b
}

// Pbkdf2Sha1Key derives a key using PBKDF2-HMAC-SHA1, used by protocol version 001.
func Pbkdf2Sha1Key(password, salt []byte, iterations, keyLen int) []byte {
	return pbkdf2.Key(password, salt, iterations, keyLen, sha1.New)
}

// Pbkdf2Sha256Key derives a key using PBKDF2-HMAC-SHA256, used by protocol versions 002/003.
func Pbkdf2Sha256Key(password, salt []byte, iterations, keyLen int) []byte {
	return pbkdf2.Key(password, salt, iterations, keyLen, sha256.New)
}

// Argon2idKey derives a key using Argon2id, used by protocol version 004.
func Argon2idKey(password, salt []byte, time, memoryKiB uint32, threads uint8, keyLen uint32) []byte {
	return argon2.IDKey(password, salt, time, memoryKiB, threads, keyLen)
}

// HkdfExpand derives outLen bytes of key material from ikm/salt/info using
// HKDF-SHA256.
func HkdfExpand(ikm, salt, info []byte, outLen int) ([]byte, error) {
	r := hkdf.New(sha256.New, ikm, salt, info)
	out := make([]byte, outLen)
	if _, err := io.ReadFull(r, out); err != nil {
		return nil, err
	}
	return out, nil
}

// HmacSha256 computes an HMAC-SHA256 tag over the concatenation of parts.
func HmacSha256(key []byte, parts ...[]byte) []byte {
	m := hmac.New(sha256.New, key)
	for _, p := range parts {
		m.Write(p)
	}
	return m.Sum(nil)
}

// HmacSha1 computes an HMAC-SHA1 tag, used only by version 001's auth_hash framing.
func HmacSha1(key []byte, parts ...[]byte) []byte {
	m := hmac.New(sha1.New, key)
	for _, p := range parts {
		m.Write(p)
	}
	return m.Sum(nil)
}

// AesCbcEncrypt encrypts plaintext with AES-CBC. The plaintext is
// PKCS7-padded internally; iv must be aes.BlockSize bytes.
func AesCbcEncrypt(key, iv, plaintext []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	padded := pkcs7Pad(plaintext, block.BlockSize())
	out := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(out, padded)
	return out, nil
}

// AesCbcDecrypt decrypts an AES-CBC ciphertext produced by AesCbcEncrypt.
func AesCbcDecrypt(key, iv, ciphertext []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	if len(ciphertext) == 0 || len(ciphertext)%block.BlockSize() != 0 {
		return nil, ErrCiphertextTooShort
	}
	out := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(out, ciphertext)
	return pkcs7Unpad(out)
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	padLen := blockSize - len(data)%blockSize
	padding := make([]byte, padLen)
	for i := range padding {
		padding[i] = byte(padLen)
	}
	return append(append([]byte{}, data...), padding...)
}

func pkcs7Unpad(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, ErrCiphertextTooShort
	}
	padLen := int(data[len(data)-1])
	if padLen == 0 || padLen > len(data) {
		return nil, errors.New("cryptox: invalid padding")
	}
	return data[:len(data)-padLen], nil
}

// XChaCha20Poly1305Seal encrypts plaintext with XChaCha20-Poly1305, used by
// protocol version 004. The nonce is generated internally and returned
// alongside the ciphertext.
func XChaCha20Poly1305Seal(key, plaintext, aad []byte) (nonce, ciphertext []byte, err error) {
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, nil, err
	}
	nonce = RandomBytes(aead.NonceSize())
	ciphertext = aead.Seal(nil, nonce, plaintext, aad)
	return nonce, ciphertext, nil
}

// XChaCha20Poly1305Open decrypts a nonce/ciphertext pair produced by XChaCha20Poly1305Seal.
func XChaCha20Poly1305Open(key, nonce, ciphertext, aad []byte) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}
	return aead.Open(nil, nonce, ciphertext, aad)
}

// AesGcmSeal encrypts plaintext with AES-GCM using a fresh random 12-byte
// nonce, returned alongside the ciphertext. Versioned item content never
// uses it; that goes through the framings in internal/protocol.
func AesGcmSeal(key, plaintext, aad []byte) (nonce, ciphertext []byte, err error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, nil, err
	}
	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, nil, err
	}
	nonce = RandomBytes(aesgcm.NonceSize())
	ciphertext = aesgcm.Seal(nil, nonce, plaintext, aad)
	return nonce, ciphertext, nil
}

// AesGcmOpen decrypts a nonce/ciphertext pair produced by AesGcmSeal.
func AesGcmOpen(key, nonce, ciphertext, aad []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return aesgcm.Open(nil, nonce, ciphertext, aad)
}

// EncryptJSON marshals v to JSON and seals it with AES-GCM via AesGcmSeal.
func EncryptJSON(v any, key []byte) (ciphertext, nonce []byte, err error) {
	plaintext, err := json.Marshal(v)
	if err != nil {
		return nil, nil, err
	}
	nonce, ciphertext, err = AesGcmSeal(key, plaintext, nil)
	return ciphertext, nonce, err
}

// DecryptJSON reverses EncryptJSON into v.
func DecryptJSON(ciphertext, nonce, key []byte, v any) error {
	plaintext, err := AesGcmOpen(key, nonce, ciphertext, nil)
	if err != nil {
		return err
	}
	return json.Unmarshal(plaintext, v)
}

func Base64Encode(b []byte) string { return base64.StdEncoding.EncodeToString(b) }

func Base64Decode(s string) ([]byte, error) { return base64.StdEncoding.DecodeString(s) }

func HexEncode(b []byte) string { return hex.EncodeToString(b) }

func HexDecode(s string) ([]byte, error) { return hex.DecodeString(s) }
