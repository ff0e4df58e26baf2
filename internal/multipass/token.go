// Package multipass issues and verifies Shopify Multipass tokens.
//
// A token is the URL-safe base64 encoding of IV || AES-128-CBC(claims) || HMAC-SHA256(IV || ciphertext),
// keyed by the two halves of SHA-256(shop secret).
package multipass

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"
)

const (
	ivSize        = aes.BlockSize
	signatureSize = sha256.Size
)

// tokenEncoding is standard base64 with '+' -> '-' and '/' -> '_'; '=' padding is kept.
var tokenEncoding = base64.URLEncoding

// randReader is the IV source.
var randReader io.Reader = rand.Reader

// Issue encrypts and signs claims under secret and returns a URL-safe token.
//
// Every call draws a fresh IV, so issuing the same claims twice yields two
// different tokens that both verify under secret.
func Issue(claims Claims, secret string) (string, error) {
	if secret == "" {
		return "", ErrSecretUnavailable
	}
	plaintext, err := claims.Canonical()
	if err != nil {
		return "", err
	}

	keys := deriveKeys(secret)
	block, err := aes.NewCipher(keys.encryption)
	if err != nil {
		return "", fmt.Errorf("create cipher: %w", err)
	}

	iv := make([]byte, ivSize)
	if _, err := io.ReadFull(randReader, iv); err != nil {
		return "", fmt.Errorf("generate iv: %w", err)
	}

	padded := pkcs7Pad(plaintext, aes.BlockSize)
	signed := make([]byte, ivSize+len(padded), ivSize+len(padded)+signatureSize)
	copy(signed, iv)
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(signed[ivSize:], padded)

	signed = append(signed, sign(keys.signature, signed)...)
	return tokenEncoding.EncodeToString(signed), nil
}

// Verify authenticates token under secret and returns the embedded claims.
// The signature is checked before any decryption is attempted. Every error
// wraps ErrAuthenticationFailed.
func Verify(token, secret string) (Claims, error) {
	raw, err := tokenEncoding.Strict().DecodeString(token)
	if err != nil {
		return nil, ErrMalformedToken
	}
	if len(raw) < ivSize+signatureSize {
		return nil, ErrMalformedToken
	}

	signed := raw[:len(raw)-signatureSize]
	signature := raw[len(raw)-signatureSize:]
	iv := signed[:ivSize]
	ciphertext := signed[ivSize:]
	if len(ciphertext) == 0 || len(ciphertext)%aes.BlockSize != 0 {
		return nil, ErrMalformedToken
	}

	keys := deriveKeys(secret)
	if !hmac.Equal(signature, sign(keys.signature, signed)) {
		return nil, ErrInvalidSignature
	}

	block, err := aes.NewCipher(keys.encryption)
	if err != nil {
		return nil, ErrDecryption
	}
	plaintext := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plaintext, ciphertext)

	plaintext, err = pkcs7Unpad(plaintext, aes.BlockSize)
	if err != nil {
		return nil, ErrDecryption
	}

	return ParseClaims(plaintext)
}

// Digest returns the hex SHA-256 of a token, used as its replay key.
func Digest(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func sign(key, data []byte) []byte {
	mac := hmac.New(sha256.New, key)
	mac.Write(data)
	return mac.Sum(nil)
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	n := blockSize - len(data)%blockSize
	return append(data, bytes.Repeat([]byte{byte(n)}, n)...)
}

func pkcs7Unpad(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, fmt.Errorf("invalid padded length %d", len(data))
	}
	n := int(data[len(data)-1])
	if n == 0 || n > blockSize {
		return nil, fmt.Errorf("invalid padding")
	}
	for _, b := range data[len(data)-n:] {
		if int(b) != n {
			return nil, fmt.Errorf("invalid padding")
		}
	}
	return data[:len(data)-n], nil
}
