package algorithm

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"errors"
	"fmt"

	"github.com/dtroode/keybox/internal/model"
)

// Cipher is a record cipher token.
type Cipher string

// CipherAES256 is AES-256 in CBC mode with PKCS#7 padding.
const CipherAES256 Cipher = "aes256"

// DefaultCipher is used for new containers.
const DefaultCipher = CipherAES256

// ErrMalformedCiphertext is returned when ciphertext cannot be decrypted into
// correctly padded plaintext.
var ErrMalformedCiphertext = errors.New("malformed ciphertext")

type cipherSpec struct {
	keySize int
	block   func(key []byte) (cipher.Block, error)
}

var ciphers = map[Cipher]cipherSpec{
	CipherAES256: {keySize: 32, block: aes.NewCipher},
}

// LookupCipher resolves token, failing closed on unknown tokens.
func LookupCipher(token string) (Cipher, error) {
	c := Cipher(token)
	if _, ok := ciphers[c]; !ok {
		return "", model.NewConfigurationError("cipher algorithm", token, errors.New("unknown cipher algorithm"))
	}
	return c, nil
}

// KeySize returns the key length in bytes.
func (c Cipher) KeySize() int {
	return ciphers[c].keySize
}

// IVSize returns the initialization vector length in bytes.
func (c Cipher) IVSize() int {
	return aes.BlockSize
}

func (c Cipher) String() string {
	return string(c)
}

// Encrypt pads plaintext and encrypts it with key and iv.
func (c Cipher) Encrypt(key, iv, plaintext []byte) ([]byte, error) {
	block, err := c.newBlock(key, iv)
	if err != nil {
		return nil, err
	}
	padded := pad(plaintext, block.BlockSize())
	out := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(out, padded)
	return out, nil
}

// Decrypt decrypts ciphertext with key and iv and strips the padding.
func (c Cipher) Decrypt(key, iv, ciphertext []byte) ([]byte, error) {
	block, err := c.newBlock(key, iv)
	if err != nil {
		return nil, err
	}
	bs := block.BlockSize()
	if len(ciphertext) == 0 || len(ciphertext)%bs != 0 {
		return nil, fmt.Errorf("%w: length %d is not a multiple of %d", ErrMalformedCiphertext, len(ciphertext), bs)
	}
	out := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(out, ciphertext)
	return unpad(out, bs)
}

func (c Cipher) newBlock(key, iv []byte) (cipher.Block, error) {
	spec, ok := ciphers[c]
	if !ok {
		return nil, model.NewConfigurationError("cipher algorithm", string(c), errors.New("unknown cipher algorithm"))
	}
	if len(key) < spec.keySize {
		return nil, fmt.Errorf("key too short: got %d bytes, want %d", len(key), spec.keySize)
	}
	block, err := spec.block(key[:spec.keySize])
	if err != nil {
		return nil, fmt.Errorf("failed to create block cipher: %w", err)
	}
	if len(iv) != block.BlockSize() {
		return nil, fmt.Errorf("bad iv length: got %d bytes, want %d", len(iv), block.BlockSize())
	}
	return block, nil
}

func pad(data []byte, blockSize int) []byte {
	n := blockSize - len(data)%blockSize
	return append(bytes.Clone(data), bytes.Repeat([]byte{byte(n)}, n)...)
}

func unpad(data []byte, blockSize int) ([]byte, error) {
	n := int(data[len(data)-1])
	if n == 0 || n > blockSize || n > len(data) {
		return nil, fmt.Errorf("%w: bad padding", ErrMalformedCiphertext)
	}
	for _, b := range data[len(data)-n:] {
		if int(b) != n {
			return nil, fmt.Errorf("%w: bad padding", ErrMalformedCiphertext)
		}
	}
	return data[:len(data)-n], nil
}
