package protocol

import (
	"crypto/hmac"
	"fmt"

	"github.com/dmitrijs2005/notevault/internal/cryptox"
)

// v001 is the earliest supported operator: PBKDF2-SHA1 key derivation, a
// per-item random key split into an encryption half and an HMAC half, and
// an all-zero IV substituted where the source item carries none. Expired
// for new encryption as of 2018-01-01; still decryptable.
type v001 struct{}

const v001MinPbkdf2Cost = 3000

var zeroIV16 = make([]byte, 16)

func (v001) version() Version { return V001 }

func (v001) deriveRootKey(identifier, password string, params KeyParams) (RootKey, error) {
	salt, err := cryptox.HexDecode(params.PwSalt)
	if err != nil {
		return RootKey{}, fmt.Errorf("protocol/001: bad salt: %w", err)
	}
	cost := params.PwCost
	if cost < v001MinPbkdf2Cost {
		cost = v001MinPbkdf2Cost
	}
	derived := cryptox.Pbkdf2Sha1Key([]byte(password), salt, cost, 64)
	return RootKey{
		MasterKey:             derived[:32],
		DataAuthenticationKey: derived[32:],
		Version:               V001,
	}, nil
}

func (o v001) createRootKey(identifier, password string) (RootKey, KeyParams, error) {
	salt := cryptox.RandomBytes(16)
	params := KeyParams{
		Identifier: identifier,
		Version:    V001,
		PwSalt:     cryptox.HexEncode(salt),
		PwCost:     v001MinPbkdf2Cost,
	}
	rk, err := o.deriveRootKey(identifier, password, params)
	return rk, params, err
}

func (v001) createItemsKeyMaterial() ItemsKeyMaterial {
	// 001 predates ItemsKey; callers on this version never invoke this.
	return ItemsKeyMaterial{Version: V001}
}

func (v001) encryptString(uuid string, plaintext []byte, key []byte) (EncryptionParameters, error) {
	itemKey := cryptox.RandomBytes(64)
	encKey, itemAuthKey := itemKey[:32], itemKey[32:]

	ciphertext, err := cryptox.AesCbcEncrypt(encKey, zeroIV16, plaintext)
	if err != nil {
		return EncryptionParameters{}, err
	}
	content := string(V001) + cryptox.Base64Encode(ciphertext)
	authHash := cryptox.HmacSha1(itemAuthKey, []byte(content))

	wrappedItemKey, err := cryptox.AesCbcEncrypt(key, zeroIV16, itemKey)
	if err != nil {
		return EncryptionParameters{}, err
	}

	return EncryptionParameters{
		Content:    content,
		EncItemKey: string(V001) + cryptox.Base64Encode(wrappedItemKey),
		AuthHash:   cryptox.HexEncode(authHash),
	}, nil
}

func (v001) decryptString(uuid string, params EncryptionParameters, key []byte) ([]byte, error) {
	content, ok := params.Content.(string)
	if !ok || len(content) < 3 {
		return nil, ErrDecryptFailure
	}

	wrappedItemKeyB64 := params.EncItemKey[3:]
	wrappedItemKey, err := cryptox.Base64Decode(wrappedItemKeyB64)
	if err != nil {
		return nil, ErrDecryptFailure
	}
	itemKey, err := cryptox.AesCbcDecrypt(key, zeroIV16, wrappedItemKey)
	if err != nil {
		return nil, ErrDecryptFailure
	}
	if len(itemKey) != 64 {
		return nil, ErrDecryptFailure
	}
	encKey, itemAuthKey := itemKey[:32], itemKey[32:]

	expectedAuthHash, err := cryptox.HexDecode(params.AuthHash)
	if err != nil {
		return nil, ErrDecryptFailure
	}
	actualAuthHash := cryptox.HmacSha1(itemAuthKey, []byte(content))
	if !hmac.Equal(expectedAuthHash, actualAuthHash) {
		return nil, ErrDecryptFailure
	}

	ciphertext, err := cryptox.Base64Decode(content[3:])
	if err != nil {
		return nil, ErrDecryptFailure
	}
	plaintext, err := cryptox.AesCbcDecrypt(encKey, zeroIV16, ciphertext)
	if err != nil {
		return nil, ErrDecryptFailure
	}
	return plaintext, nil
}
