package multipass

import (
	"crypto/sha256"
)

const keySize = 16

type keyPair struct {
	encryption []byte
	signature  []byte
}

// deriveKeys splits SHA-256(secret) into a 16-byte AES key and a 16-byte HMAC key.
// The split must match the storefront's verifier exactly.
func deriveKeys(secret string) keyPair {
	material := sha256.Sum256([]byte(secret))
	return keyPair{
		encryption: material[:keySize],
		signature:  material[keySize:],
	}
}
