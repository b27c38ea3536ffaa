package cipher

import (
	"context"
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"
)

// Hash Operations

// HashOp computes a digest and renders it as lowercase hex, or base64 when
// the "encoding" parameter says so.
type HashOp struct {
	BaseOperation
	Algorithm string
}

func (op *HashOp) Execute(ctx context.Context, input []byte, params map[string]interface{}) ([]byte, error) {
	encoding, _ := params["encoding"].(string)
	out, err := HashEncrypt(string(input), op.Algorithm, encoding)
	if err != nil {
		return nil, err
	}
	return []byte(out), nil
}

// AES Operations

// AESCBCEncryptOp encrypts with AES in CBC mode. Requires "key" and "iv".
type AESCBCEncryptOp struct {
	BaseOperation
}

func (op *AESCBCEncryptOp) Execute(ctx context.Context, input []byte, params map[string]interface{}) ([]byte, error) {
	key, err := bytesParam(params, "key")
	if err != nil {
		return nil, err
	}
	iv, err := bytesParam(params, "iv")
	if err != nil {
		return nil, err
	}
	return AESEncryptCBC(input, key, iv)
}

// AESCBCDecryptOp decrypts AES-CBC ciphertext. Requires "key" and "iv".
type AESCBCDecryptOp struct {
	BaseOperation
}

func (op *AESCBCDecryptOp) Execute(ctx context.Context, input []byte, params map[string]interface{}) ([]byte, error) {
	key, err := bytesParam(params, "key")
	if err != nil {
		return nil, err
	}
	iv, err := bytesParam(params, "iv")
	if err != nil {
		return nil, err
	}
	return AESDecryptCBC(input, key, iv)
}

// AESECBEncryptOp encrypts with AES in ECB mode. Requires "key".
type AESECBEncryptOp struct {
	BaseOperation
}

func (op *AESECBEncryptOp) Execute(ctx context.Context, input []byte, params map[string]interface{}) ([]byte, error) {
	key, err := bytesParam(params, "key")
	if err != nil {
		return nil, err
	}
	return AESEncryptECB(input, key)
}

// AESECBDecryptOp decrypts AES-ECB ciphertext. Requires "key".
type AESECBDecryptOp struct {
	BaseOperation
}

func (op *AESECBDecryptOp) Execute(ctx context.Context, input []byte, params map[string]interface{}) ([]byte, error) {
	key, err := bytesParam(params, "key")
	if err != nil {
		return nil, err
	}
	return AESDecryptECB(input, key)
}

// RSA Operations

// RSARawEncryptOp performs unpadded RSA: the input is read as a big-endian
// integer m and the result is m^e mod n as lowercase hex, left-padded with
// zeros to "width" digits. Requires "modulus" and "exponent" (hex strings or
// *big.Int); "width" defaults to twice the modulus byte length.
type RSARawEncryptOp struct {
	BaseOperation
}

func (op *RSARawEncryptOp) Execute(ctx context.Context, input []byte, params map[string]interface{}) ([]byte, error) {
	n, err := bigParam(params, "modulus")
	if err != nil {
		return nil, err
	}
	e, err := bigParam(params, "exponent")
	if err != nil {
		return nil, err
	}
	width := (n.BitLen() + 7) / 8 * 2
	if w, ok := params["width"].(int); ok && w > 0 {
		width = w
	}
	out, err := RSARawEncrypt(input, n, e, width)
	if err != nil {
		return nil, err
	}
	return []byte(out), nil
}

// RSARawEncrypt computes m^e mod n for the big-endian integer m held in input.
func RSARawEncrypt(input []byte, n, e *big.Int, width int) (string, error) {
	if n == nil || n.Sign() <= 0 {
		return "", fmt.Errorf("rsa modulus must be positive")
	}
	m := new(big.Int).SetBytes(input)
	if m.Cmp(n) >= 0 {
		return "", fmt.Errorf("rsa message larger than modulus")
	}
	c := new(big.Int).Exp(m, e, n)
	out := c.Text(16)
	if len(out) > width {
		return "", fmt.Errorf("rsa output %d digits exceeds width %d", len(out), width)
	}
	return strings.Repeat("0", width-len(out)) + out, nil
}

func bytesParam(params map[string]interface{}, name string) ([]byte, error) {
	switch v := params[name].(type) {
	case string:
		if v != "" {
			return []byte(v), nil
		}
	case []byte:
		if len(v) > 0 {
			return v, nil
		}
	}
	return nil, fmt.Errorf("%s parameter required", name)
}

func bigParam(params map[string]interface{}, name string) (*big.Int, error) {
	switch v := params[name].(type) {
	case *big.Int:
		if v != nil {
			return v, nil
		}
	case string:
		raw := strings.TrimPrefix(strings.TrimSpace(v), "0x")
		if _, err := hex.DecodeString(strings.Repeat("0", len(raw)%2) + raw); err != nil {
			return nil, fmt.Errorf("%s parameter: %w", name, err)
		}
		n, ok := new(big.Int).SetString(raw, 16)
		if ok {
			return n, nil
		}
	}
	return nil, fmt.Errorf("%s parameter required", name)
}

// init registers digest and cipher operations
func init() {
	for _, alg := range DigestAlgorithms() {
		MustRegister(&HashOp{
			BaseOperation: BaseOperation{
				NameValue:        alg + "_hash",
				TypeValue:        OperationTypeHash,
				DescriptionValue: "Compute " + strings.ToUpper(alg) + " digest",
			},
			Algorithm: alg,
		})
	}

	cbcEncrypt := &AESCBCEncryptOp{
		BaseOperation: BaseOperation{
			NameValue:        "aes_cbc_encrypt",
			TypeValue:        OperationTypeEncrypt,
			DescriptionValue: "AES-CBC encrypt with PKCS#7 padding",
		},
	}
	cbcDecrypt := &AESCBCDecryptOp{
		BaseOperation: BaseOperation{
			NameValue:        "aes_cbc_decrypt",
			TypeValue:        OperationTypeDecrypt,
			DescriptionValue: "AES-CBC decrypt and strip PKCS#7 padding",
		},
	}
	cbcEncrypt.ReverseOp = cbcDecrypt
	cbcDecrypt.ReverseOp = cbcEncrypt

	ecbEncrypt := &AESECBEncryptOp{
		BaseOperation: BaseOperation{
			NameValue:        "aes_ecb_encrypt",
			TypeValue:        OperationTypeEncrypt,
			DescriptionValue: "AES-ECB encrypt with PKCS#7 padding",
		},
	}
	ecbDecrypt := &AESECBDecryptOp{
		BaseOperation: BaseOperation{
			NameValue:        "aes_ecb_decrypt",
			TypeValue:        OperationTypeDecrypt,
			DescriptionValue: "AES-ECB decrypt and strip PKCS#7 padding",
		},
	}
	ecbEncrypt.ReverseOp = ecbDecrypt
	ecbDecrypt.ReverseOp = ecbEncrypt

	// Unpadded RSA with a public key only; not reversible.
	rsaRaw := &RSARawEncryptOp{
		BaseOperation: BaseOperation{
			NameValue:        "rsa_raw_encrypt",
			TypeValue:        OperationTypeEncrypt,
			DescriptionValue: "Unpadded RSA modular exponentiation, fixed-width hex output",
		},
	}

	MustRegister(cbcEncrypt, cbcDecrypt, ecbEncrypt, ecbDecrypt, rsaRaw)
}
