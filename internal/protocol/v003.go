package protocol

import (
	"crypto/hmac"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/notevault/internal/cryptox"
)

// v003 is structurally identical to 002 but derives with a modern PBKDF2
// cost and authenticates with HMAC-SHA256. It is the last version whose
// items are encrypted directly under the root key rather than a synced
// ItemsKey (LastNonrootItemsKeyVersion).
type v003 struct{}

const v003MinPbkdf2Cost = 110000

func (v003) version() Version { return V003 }

func (v003) deriveRootKey(identifier, password string, params KeyParams) (RootKey, error) {
	salt, err := cryptox.HexDecode(params.PwSalt)
	if err != nil {
		return RootKey{}, fmt.Errorf("protocol/003: bad salt: %w", err)
	}
	cost := params.PwCost
	if cost < v003MinPbkdf2Cost {
		cost = v003MinPbkdf2Cost
	}
	derived := cryptox.Pbkdf2Sha256Key([]byte(password), salt, cost, 64)
	return RootKey{
		MasterKey:             derived[:32],
		DataAuthenticationKey: derived[32:],
		Version:               V003,
	}, nil
}

func (o v003) createRootKey(identifier, password string) (RootKey, KeyParams, error) {
	salt := cryptox.RandomBytes(16)
	params := KeyParams{
		Identifier: identifier,
		Version:    V003,
		PwSalt:     cryptox.HexEncode(salt),
		PwCost:     v003MinPbkdf2Cost,
	}
	rk, err := o.deriveRootKey(identifier, password, params)
	return rk, params, err
}

func (v003) createItemsKeyMaterial() ItemsKeyMaterial {
	return ItemsKeyMaterial{Version: V003}
}

func (v003) encryptString(uuid string, plaintext []byte, key []byte) (EncryptionParameters, error) {
	itemKey := cryptox.RandomBytes(64)
	encKey, itemAuthKey := itemKey[:32], itemKey[32:]

	iv := cryptox.RandomBytes(16)
	ciphertext, err := cryptox.AesCbcEncrypt(encKey, iv, plaintext)
	if err != nil {
		return EncryptionParameters{}, err
	}
	ivHex := cryptox.HexEncode(iv)
	ciphertextB64 := cryptox.Base64Encode(ciphertext)

	authHash := selfAuthHmac003(uuid, ivHex, ciphertextB64, itemAuthKey)
	content := strings.Join([]string{string(V003), authHash, uuid, ivHex, ciphertextB64}, ":")

	wrappedItemKey, err := cryptox.AesCbcEncrypt(key, zeroIV16, itemKey)
	if err != nil {
		return EncryptionParameters{}, err
	}

	return EncryptionParameters{
		Content:    content,
		EncItemKey: string(V003) + cryptox.Base64Encode(wrappedItemKey),
	}, nil
}

func selfAuthHmac003(uuid, ivHex, ciphertextB64 string, itemAuthKey []byte) string {
	msg := strings.Join([]string{string(V003), uuid, ivHex, ciphertextB64}, ":")
	return cryptox.HexEncode(cryptox.HmacSha256(itemAuthKey, []byte(msg)))
}

func (v003) decryptString(uuid string, params EncryptionParameters, key []byte) ([]byte, error) {
	content, ok := params.Content.(string)
	if !ok {
		return nil, ErrDecryptFailure
	}
	fields := strings.Split(content, ":")
	if len(fields) != 5 || Version(fields[0]) != V003 {
		return nil, ErrDecryptFailure
	}
	authHash, embeddedUUID, ivHex, ciphertextB64 := fields[1], fields[2], fields[3], fields[4]
	if embeddedUUID != uuid {
		return nil, ErrDecryptFailure
	}

	wrappedItemKeyB64 := params.EncItemKey[3:]
	wrappedItemKey, err := cryptox.Base64Decode(wrappedItemKeyB64)
	if err != nil {
		return nil, ErrDecryptFailure
	}
	itemKey, err := cryptox.AesCbcDecrypt(key, zeroIV16, wrappedItemKey)
	if err != nil || len(itemKey) != 64 {
		return nil, ErrDecryptFailure
	}
	encKey, itemAuthKey := itemKey[:32], itemKey[32:]

	expectedAuthHash := selfAuthHmac003(embeddedUUID, ivHex, ciphertextB64, itemAuthKey)
	if !hmac.Equal([]byte(expectedAuthHash), []byte(authHash)) {
		return nil, ErrDecryptFailure
	}

	iv, err := cryptox.HexDecode(ivHex)
	if err != nil {
		return nil, ErrDecryptFailure
	}
	ciphertext, err := cryptox.Base64Decode(ciphertextB64)
	if err != nil {
		return nil, ErrDecryptFailure
	}
	plaintext, err := cryptox.AesCbcDecrypt(encKey, iv, ciphertext)
	if err != nil {
		return nil, ErrDecryptFailure
	}
	return plaintext, nil
}
