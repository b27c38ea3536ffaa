package scheme

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/RowanDark/ncmsign/internal/cipher"
)

// ErrMalformedBody is returned when a body does not have the shape its
// scheme produces.
var ErrMalformedBody = errors.New("malformed body")

// DecodeLinuxAPI recovers the envelope from an "eparams=<HEX>" body.
func (e *Engine) DecodeLinuxAPI(ctx context.Context, body string) (*Envelope, error) {
	hexText, ok := strings.CutPrefix(body, "eparams=")
	if !ok {
		return nil, fmt.Errorf("linuxapi: %w: missing eparams", ErrMalformedBody)
	}
	plain, err := e.decryptECB(ctx, e.keys.Linux, hexText)
	if err != nil {
		return nil, fmt.Errorf("linuxapi: %w", err)
	}
	var env Envelope
	if err := json.Unmarshal(plain, &env); err != nil {
		return nil, fmt.Errorf("linuxapi: %w: %v", ErrMalformedBody, err)
	}
	return &env, nil
}

// DecodeEAPI recovers the context path and parameters from a
// "params=<HEX>" body and checks the embedded digest.
func (e *Engine) DecodeEAPI(ctx context.Context, body string) (string, Params, error) {
	hexText, ok := strings.CutPrefix(body, "params=")
	if !ok {
		return "", nil, fmt.Errorf("eapi: %w: missing params", ErrMalformedBody)
	}
	plain, err := e.decryptECB(ctx, e.keys.EAPI, hexText)
	if err != nil {
		return "", nil, fmt.Errorf("eapi: %w", err)
	}
	parts := strings.Split(string(plain), eapiSeparator)
	if len(parts) != 3 {
		return "", nil, fmt.Errorf("eapi: %w: want 3 segments, got %d", ErrMalformedBody, len(parts))
	}
	digest, err := eapiDigest(parts[0], parts[1])
	if err != nil {
		return "", nil, fmt.Errorf("eapi: %w", err)
	}
	if digest != parts[2] {
		return "", nil, fmt.Errorf("eapi: %w: digest mismatch", ErrMalformedBody)
	}
	var params Params
	if err := json.Unmarshal([]byte(parts[1]), &params); err != nil {
		return "", nil, fmt.Errorf("eapi: %w: %v", ErrMalformedBody, err)
	}
	return parts[0], params, nil
}

// DecodeWeAPI recovers the parameters from a WeAPI body given the secret
// key it was encrypted with. The secret cannot be recovered from encSecKey
// without the platform's private key, so it must come from the caller; the
// encSecKey in the body is checked against it.
func (e *Engine) DecodeWeAPI(ctx context.Context, body, secret string) (Params, error) {
	form, err := url.ParseQuery(body)
	if err != nil {
		return nil, fmt.Errorf("weapi: %w: %v", ErrMalformedBody, err)
	}
	encText, encSecKey := form.Get("params"), form.Get("encSecKey")
	if encText == "" || encSecKey == "" {
		return nil, fmt.Errorf("weapi: %w: missing params or encSecKey", ErrMalformedBody)
	}
	want, err := e.wrapSecret(secret)
	if err != nil {
		return nil, fmt.Errorf("weapi: %w", err)
	}
	if want != encSecKey {
		return nil, fmt.Errorf("weapi: %w: encSecKey does not wrap the given secret", ErrMalformedBody)
	}
	pipeline := &cipher.Pipeline{
		Operations: []cipher.OperationConfig{
			{Name: "base64_decode"},
			{Name: "aes_cbc_decrypt", Parameters: map[string]interface{}{"key": []byte(secret), "iv": e.keys.IV}},
			{Name: "base64_decode"},
			{Name: "aes_cbc_decrypt", Parameters: map[string]interface{}{"key": e.keys.Preset, "iv": e.keys.IV}},
		},
	}
	plain, err := pipeline.Execute(ctx, []byte(encText))
	if err != nil {
		return nil, fmt.Errorf("weapi: %w", err)
	}
	var params Params
	if err := json.Unmarshal(plain, &params); err != nil {
		return nil, fmt.Errorf("weapi: %w: %v", ErrMalformedBody, err)
	}
	return params, nil
}

func (e *Engine) decryptECB(ctx context.Context, key []byte, hexText string) ([]byte, error) {
	reversed, err := e.ecbPipeline(key).Reverse()
	if err != nil {
		return nil, err
	}
	plain, err := reversed.Execute(ctx, []byte(hexText))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedBody, err)
	}
	return plain, nil
}

// DecodeLinuxAPI runs DecodeLinuxAPI on the default engine.
func DecodeLinuxAPI(ctx context.Context, body string) (*Envelope, error) {
	return defaultEngine.DecodeLinuxAPI(ctx, body)
}

// DecodeEAPI runs DecodeEAPI on the default engine.
func DecodeEAPI(ctx context.Context, body string) (string, Params, error) {
	return defaultEngine.DecodeEAPI(ctx, body)
}

// DecodeWeAPI runs DecodeWeAPI on the default engine.
func DecodeWeAPI(ctx context.Context, body, secret string) (Params, error) {
	return defaultEngine.DecodeWeAPI(ctx, body, secret)
}
