package scheme

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"

	"github.com/RowanDark/ncmsign/internal/cipher"
)

// Engine performs the scheme transforms. The zero value is not usable; use
// NewEngine. An Engine is safe for concurrent use as long as its random
// source is.
type Engine struct {
	keys   *Keys
	random io.Reader
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithRandom replaces the cryptographic random source used for WeAPI
// secret keys.
func WithRandom(r io.Reader) EngineOption {
	return func(e *Engine) {
		if r != nil {
			e.random = r
		}
	}
}

// WithKeys replaces the platform key material.
func WithKeys(k *Keys) EngineOption {
	return func(e *Engine) {
		if k != nil {
			e.keys = k
		}
	}
}

// NewEngine returns an Engine over the platform keys and crypto/rand.
func NewEngine(opts ...EngineOption) *Engine {
	e := &Engine{keys: platformKeys, random: rand.Reader}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

var defaultEngine = NewEngine()

// Envelope is the LinuxAPI payload. Field order is part of the wire format.
type Envelope struct {
	Method string `json:"method"`
	URL    string `json:"url"`
	Params Params `json:"params"`
}

// WeAPI encrypts params for the browser-facing endpoints and returns the
// form body "params=<encText>&encSecKey=<hex>". Callers inject csrf_token
// into params beforehand.
func (e *Engine) WeAPI(ctx context.Context, params Params) (string, error) {
	text, err := params.JSON()
	if err != nil {
		return "", fmt.Errorf("weapi: encode params: %w", err)
	}
	secret, err := cipher.RandomString(e.random, base62, secretKeyLen)
	if err != nil {
		return "", fmt.Errorf("weapi: secret key: %w", err)
	}
	return e.weapiWithSecret(ctx, text, secret)
}

func (e *Engine) weapiWithSecret(ctx context.Context, text []byte, secret string) (string, error) {
	pipeline := &cipher.Pipeline{
		Operations: []cipher.OperationConfig{
			{Name: "aes_cbc_encrypt", Parameters: map[string]interface{}{"key": e.keys.Preset, "iv": e.keys.IV}},
			{Name: "base64_encode"},
			{Name: "aes_cbc_encrypt", Parameters: map[string]interface{}{"key": []byte(secret), "iv": e.keys.IV}},
			{Name: "base64_encode"},
			{Name: "url_encode"},
		},
		Reversible: true,
	}
	encText, err := pipeline.Execute(ctx, text)
	if err != nil {
		return "", fmt.Errorf("weapi: %w", err)
	}
	encSecKey, err := e.wrapSecret(secret)
	if err != nil {
		return "", fmt.Errorf("weapi: %w", err)
	}
	return "params=" + string(encText) + "&encSecKey=" + encSecKey, nil
}

// wrapSecret RSA-encrypts the byte-reversed secret.
func (e *Engine) wrapSecret(secret string) (string, error) {
	reversed := []byte(secret)
	for i, j := 0, len(reversed)-1; i < j; i, j = i+1, j-1 {
		reversed[i], reversed[j] = reversed[j], reversed[i]
	}
	return cipher.RSARawEncrypt(reversed, e.keys.Modulus, e.keys.Exponent, EncSecKeyWidth)
}

// LinuxAPI encrypts env for the forwarding endpoint and returns
// "eparams=<HEX>".
func (e *Engine) LinuxAPI(ctx context.Context, env Envelope) (string, error) {
	if env.Params == nil {
		env.Params = Params{}
	}
	text, err := marshal(env)
	if err != nil {
		return "", fmt.Errorf("linuxapi: encode envelope: %w", err)
	}
	out, err := e.ecbPipeline(e.keys.Linux).Execute(ctx, text)
	if err != nil {
		return "", fmt.Errorf("linuxapi: %w", err)
	}
	return "eparams=" + string(out), nil
}

// EAPI encrypts params bound to contextPath (for example
// "/api/song/enhance/player/url") and returns "params=<HEX>".
func (e *Engine) EAPI(ctx context.Context, contextPath string, params Params) (string, error) {
	if contextPath == "" {
		return "", fmt.Errorf("eapi: context path required")
	}
	text, err := params.JSON()
	if err != nil {
		return "", fmt.Errorf("eapi: encode params: %w", err)
	}
	digest, err := eapiDigest(contextPath, string(text))
	if err != nil {
		return "", fmt.Errorf("eapi: %w", err)
	}
	data := contextPath + eapiSeparator + string(text) + eapiSeparator + digest
	out, err := e.ecbPipeline(e.keys.EAPI).Execute(ctx, []byte(data))
	if err != nil {
		return "", fmt.Errorf("eapi: %w", err)
	}
	return "params=" + string(out), nil
}

func eapiDigest(contextPath, text string) (string, error) {
	return cipher.HashEncrypt(eapiSaltHead+contextPath+eapiSaltMid+text+eapiSaltTail, "md5", "hex")
}

func (e *Engine) ecbPipeline(key []byte) *cipher.Pipeline {
	return &cipher.Pipeline{
		Operations: []cipher.OperationConfig{
			{Name: "aes_ecb_encrypt", Parameters: map[string]interface{}{"key": key}},
			{Name: "hex_upper_encode"},
		},
		Reversible: true,
	}
}

// EncryptWeAPI runs WeAPI on the default engine.
func EncryptWeAPI(ctx context.Context, params Params) (string, error) {
	return defaultEngine.WeAPI(ctx, params)
}

// EncryptLinuxAPI runs LinuxAPI on the default engine.
func EncryptLinuxAPI(ctx context.Context, env Envelope) (string, error) {
	return defaultEngine.LinuxAPI(ctx, env)
}

// EncryptEAPI runs EAPI on the default engine.
func EncryptEAPI(ctx context.Context, contextPath string, params Params) (string, error) {
	return defaultEngine.EAPI(ctx, contextPath, params)
}
