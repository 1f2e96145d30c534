package protocol

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/notevault/internal/cryptox"
)

// v004 is the modern AEAD operator: content is authenticated with
// XChaCha20-Poly1305 rather than a separate HMAC, and every non-root
// content type is encrypted under a synced ItemsKey rather than the root
// key directly. Byte-level nonce length and AAD composition
// follow this package's own framing; there is no external wire spec to
// match against in this deployment.
type v004 struct{}

type v004AAD struct {
	U string `json:"u"`
	V string `json:"v"`
}

func (v004) version() Version { return V004 }

func (v004) deriveRootKey(identifier, password string, params KeyParams) (RootKey, error) {
	salt, err := cryptox.Base64Decode(params.Argon2Salt)
	if err != nil {
		return RootKey{}, fmt.Errorf("protocol/004: bad salt: %w", err)
	}
	time, mem, threads := params.Argon2Time, params.Argon2MemKiB, params.Argon2Threads
	if time == 0 {
		time = 5
	}
	if mem == 0 {
		mem = 64 * 1024
	}
	if threads == 0 {
		threads = 1
	}
	derived := cryptox.Argon2idKey([]byte(password), salt, time, mem, threads, 32)
	return RootKey{MasterKey: derived, Version: V004}, nil
}

func (o v004) createRootKey(identifier, password string) (RootKey, KeyParams, error) {
	salt := cryptox.RandomBytes(16)
	params := KeyParams{
		Identifier:    identifier,
		Version:       V004,
		Argon2Salt:    cryptox.Base64Encode(salt),
		Argon2Time:    5,
		Argon2MemKiB:  64 * 1024,
		Argon2Threads: 1,
	}
	rk, err := o.deriveRootKey(identifier, password, params)
	return rk, params, err
}

func (v004) createItemsKeyMaterial() ItemsKeyMaterial {
	return ItemsKeyMaterial{
		ItemsKey: cryptox.RandomBytes(32),
		Version:  V004,
	}
}

func aeadFrame(uuid string, key, plaintext []byte) (string, error) {
	aad, err := json.Marshal(v004AAD{U: uuid, V: string(V004)})
	if err != nil {
		return "", err
	}
	nonce, ciphertext, err := cryptox.XChaCha20Poly1305Seal(key, plaintext, aad)
	if err != nil {
		return "", err
	}
	return strings.Join([]string{
		string(V004),
		cryptox.Base64Encode(nonce),
		cryptox.Base64Encode(ciphertext),
		cryptox.Base64Encode(aad),
	}, ":"), nil
}

func aeadUnframe(uuid string, key []byte, framed string) ([]byte, error) {
	fields := strings.Split(framed, ":")
	if len(fields) != 4 || Version(fields[0]) != V004 {
		return nil, ErrDecryptFailure
	}
	nonce, err := cryptox.Base64Decode(fields[1])
	if err != nil {
		return nil, ErrDecryptFailure
	}
	ciphertext, err := cryptox.Base64Decode(fields[2])
	if err != nil {
		return nil, ErrDecryptFailure
	}
	aad, err := cryptox.Base64Decode(fields[3])
	if err != nil {
		return nil, ErrDecryptFailure
	}
	var parsed v004AAD
	if err := json.Unmarshal(aad, &parsed); err != nil || parsed.U != uuid || parsed.V != string(V004) {
		return nil, ErrDecryptFailure
	}
	plaintext, err := cryptox.XChaCha20Poly1305Open(key, nonce, ciphertext, aad)
	if err != nil {
		return nil, ErrDecryptFailure
	}
	return plaintext, nil
}

func (v004) encryptString(uuid string, plaintext []byte, key []byte) (EncryptionParameters, error) {
	itemKey := cryptox.RandomBytes(32)

	content, err := aeadFrame(uuid, itemKey, plaintext)
	if err != nil {
		return EncryptionParameters{}, err
	}
	encItemKey, err := aeadFrame(uuid, key, itemKey)
	if err != nil {
		return EncryptionParameters{}, err
	}

	return EncryptionParameters{
		Content:    content,
		EncItemKey: encItemKey,
	}, nil
}

func (v004) decryptString(uuid string, params EncryptionParameters, key []byte) ([]byte, error) {
	content, ok := params.Content.(string)
	if !ok {
		return nil, ErrDecryptFailure
	}
	itemKey, err := aeadUnframe(uuid, key, params.EncItemKey)
	if err != nil {
		return nil, ErrDecryptFailure
	}
	return aeadUnframe(uuid, itemKey, content)
}
