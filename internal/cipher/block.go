package cipher

import (
	"bytes"
	"crypto/aes"
	stdcipher "crypto/cipher"
	"errors"
	"fmt"
)

// ErrInvalidPadding is returned when PKCS#7 padding does not verify.
var ErrInvalidPadding = errors.New("invalid pkcs7 padding")

func pkcs7Pad(data []byte, blockSize int) []byte {
	n := blockSize - len(data)%blockSize
	return append(append(make([]byte, 0, len(data)+n), data...), bytes.Repeat([]byte{byte(n)}, n)...)
}

func pkcs7Unpad(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, ErrInvalidPadding
	}
	n := int(data[len(data)-1])
	if n == 0 || n > blockSize || n > len(data) {
		return nil, ErrInvalidPadding
	}
	for _, b := range data[len(data)-n:] {
		if int(b) != n {
			return nil, ErrInvalidPadding
		}
	}
	return data[:len(data)-n], nil
}

// ecb implements cipher.BlockMode for electronic-codebook mode, which the
// standard library deliberately leaves out.
type ecb struct {
	b       stdcipher.Block
	encrypt bool
}

func newECBEncrypter(b stdcipher.Block) stdcipher.BlockMode { return &ecb{b: b, encrypt: true} }
func newECBDecrypter(b stdcipher.Block) stdcipher.BlockMode { return &ecb{b: b} }

func (e *ecb) BlockSize() int { return e.b.BlockSize() }

func (e *ecb) CryptBlocks(dst, src []byte) {
	bs := e.b.BlockSize()
	if len(src)%bs != 0 {
		panic("cipher: input not full blocks")
	}
	if len(dst) < len(src) {
		panic("cipher: output smaller than input")
	}
	for len(src) > 0 {
		if e.encrypt {
			e.b.Encrypt(dst[:bs], src[:bs])
		} else {
			e.b.Decrypt(dst[:bs], src[:bs])
		}
		src = src[bs:]
		dst = dst[bs:]
	}
}

// AESEncryptCBC pads plaintext with PKCS#7 and encrypts it in CBC mode.
func AESEncryptCBC(plaintext, key, iv []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("aes key: %w", err)
	}
	if len(iv) != block.BlockSize() {
		return nil, fmt.Errorf("aes iv: want %d bytes, got %d", block.BlockSize(), len(iv))
	}
	padded := pkcs7Pad(plaintext, block.BlockSize())
	out := make([]byte, len(padded))
	stdcipher.NewCBCEncrypter(block, iv).CryptBlocks(out, padded)
	return out, nil
}

// AESDecryptCBC reverses AESEncryptCBC.
func AESDecryptCBC(ciphertext, key, iv []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("aes key: %w", err)
	}
	if len(iv) != block.BlockSize() {
		return nil, fmt.Errorf("aes iv: want %d bytes, got %d", block.BlockSize(), len(iv))
	}
	if len(ciphertext) == 0 || len(ciphertext)%block.BlockSize() != 0 {
		return nil, fmt.Errorf("aes ciphertext: length %d is not a multiple of the block size", len(ciphertext))
	}
	out := make([]byte, len(ciphertext))
	stdcipher.NewCBCDecrypter(block, iv).CryptBlocks(out, ciphertext)
	return pkcs7Unpad(out, block.BlockSize())
}

// AESEncryptECB pads plaintext with PKCS#7 and encrypts it in ECB mode.
func AESEncryptECB(plaintext, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("aes key: %w", err)
	}
	padded := pkcs7Pad(plaintext, block.BlockSize())
	out := make([]byte, len(padded))
	newECBEncrypter(block).CryptBlocks(out, padded)
	return out, nil
}

// AESDecryptECB reverses AESEncryptECB.
func AESDecryptECB(ciphertext, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("aes key: %w", err)
	}
	if len(ciphertext) == 0 || len(ciphertext)%block.BlockSize() != 0 {
		return nil, fmt.Errorf("aes ciphertext: length %d is not a multiple of the block size", len(ciphertext))
	}
	out := make([]byte, len(ciphertext))
	newECBDecrypter(block).CryptBlocks(out, ciphertext)
	return pkcs7Unpad(out, block.BlockSize())
}
