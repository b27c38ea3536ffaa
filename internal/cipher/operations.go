package cipher

import (
	"context"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"net/url"
	"strings"
)

// Base64 Operations

// Base64EncodeOp encodes data as standard Base64
type Base64EncodeOp struct {
	BaseOperation
}

func (op *Base64EncodeOp) Execute(ctx context.Context, input []byte, params map[string]interface{}) ([]byte, error) {
	encoded := base64.StdEncoding.EncodeToString(input)
	return []byte(encoded), nil
}

// Base64DecodeOp decodes standard Base64 data
type Base64DecodeOp struct {
	BaseOperation
}

func (op *Base64DecodeOp) Execute(ctx context.Context, input []byte, params map[string]interface{}) ([]byte, error) {
	decoded, err := base64.StdEncoding.DecodeString(string(input))
	if err != nil {
		return nil, fmt.Errorf("base64 decode failed: %w", err)
	}
	return decoded, nil
}

// URL Encoding Operations

// URLEncodeOp query-escapes the input, the form used for form-encoded bodies
type URLEncodeOp struct {
	BaseOperation
}

func (op *URLEncodeOp) Execute(ctx context.Context, input []byte, params map[string]interface{}) ([]byte, error) {
	encoded := url.QueryEscape(string(input))
	return []byte(encoded), nil
}

// URLDecodeOp decodes URL-encoded (percent-encoded) string
type URLDecodeOp struct {
	BaseOperation
}

func (op *URLDecodeOp) Execute(ctx context.Context, input []byte, params map[string]interface{}) ([]byte, error) {
	decoded, err := url.QueryUnescape(string(input))
	if err != nil {
		return nil, fmt.Errorf("url decode failed: %w", err)
	}
	return []byte(decoded), nil
}

// Hex Operations

// HexEncodeOp encodes bytes as lowercase hexadecimal
type HexEncodeOp struct {
	BaseOperation
}

func (op *HexEncodeOp) Execute(ctx context.Context, input []byte, params map[string]interface{}) ([]byte, error) {
	encoded := hex.EncodeToString(input)
	return []byte(encoded), nil
}

// HexUpperEncodeOp encodes bytes as uppercase hexadecimal
type HexUpperEncodeOp struct {
	BaseOperation
}

func (op *HexUpperEncodeOp) Execute(ctx context.Context, input []byte, params map[string]interface{}) ([]byte, error) {
	encoded := strings.ToUpper(hex.EncodeToString(input))
	return []byte(encoded), nil
}

// HexDecodeOp decodes hexadecimal string to bytes. Case is ignored.
type HexDecodeOp struct {
	BaseOperation
}

func (op *HexDecodeOp) Execute(ctx context.Context, input []byte, params map[string]interface{}) ([]byte, error) {
	inputStr := string(input)
	inputStr = strings.TrimPrefix(inputStr, "0x")
	inputStr = strings.ReplaceAll(inputStr, " ", "")

	decoded, err := hex.DecodeString(inputStr)
	if err != nil {
		return nil, fmt.Errorf("hex decode failed: %w", err)
	}
	return decoded, nil
}

// init registers all encoding operations
func init() {
	base64Encode := &Base64EncodeOp{
		BaseOperation: BaseOperation{
			NameValue:        "base64_encode",
			TypeValue:        OperationTypeEncode,
			DescriptionValue: "Encode data as standard Base64",
		},
	}
	base64Decode := &Base64DecodeOp{
		BaseOperation: BaseOperation{
			NameValue:        "base64_decode",
			TypeValue:        OperationTypeDecode,
			DescriptionValue: "Decode standard Base64 data",
		},
	}
	base64Encode.ReverseOp = base64Decode
	base64Decode.ReverseOp = base64Encode

	urlEncode := &URLEncodeOp{
		BaseOperation: BaseOperation{
			NameValue:        "url_encode",
			TypeValue:        OperationTypeEncode,
			DescriptionValue: "Query-escape data for form bodies",
		},
	}
	urlDecode := &URLDecodeOp{
		BaseOperation: BaseOperation{
			NameValue:        "url_decode",
			TypeValue:        OperationTypeDecode,
			DescriptionValue: "Decode URL-encoded data",
		},
	}
	urlEncode.ReverseOp = urlDecode
	urlDecode.ReverseOp = urlEncode

	hexEncode := &HexEncodeOp{
		BaseOperation: BaseOperation{
			NameValue:        "hex_encode",
			TypeValue:        OperationTypeEncode,
			DescriptionValue: "Encode data as lowercase hexadecimal",
		},
	}
	hexUpperEncode := &HexUpperEncodeOp{
		BaseOperation: BaseOperation{
			NameValue:        "hex_upper_encode",
			TypeValue:        OperationTypeEncode,
			DescriptionValue: "Encode data as uppercase hexadecimal",
		},
	}
	hexDecode := &HexDecodeOp{
		BaseOperation: BaseOperation{
			NameValue:        "hex_decode",
			TypeValue:        OperationTypeDecode,
			DescriptionValue: "Decode hexadecimal data",
		},
	}
	hexEncode.ReverseOp = hexDecode
	hexUpperEncode.ReverseOp = hexDecode
	hexDecode.ReverseOp = hexEncode

	MustRegister(
		base64Encode, base64Decode,
		urlEncode, urlDecode,
		hexEncode, hexUpperEncode, hexDecode,
	)
}
