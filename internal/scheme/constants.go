package scheme

import (
	"crypto/aes"
	"fmt"
	"math/big"
)

// Platform endpoints and fixed request attributes.
const (
	Domain          = "music.163.com"
	Origin          = "https://music.163.com"
	LinuxForwardURL = "https://music.163.com/api/linux/forward"
	LinuxUserAgent  = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/60.0.3112.90 Safari/537.36"
)

// Key material published by the platform's web client. These values are an
// external contract and must match byte for byte.
const (
	presetKey   = "0CoJUm6Qyw8W8jud"
	presetIV    = "0102030405060708"
	linuxAPIKey = "rFgB&h#%2?^eDg:Q"
	eapiKey     = "e82ckenh8dichen8"
	base62      = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	rsaModulusHex  = "00e0b509f6259df8642dbc35662901477df22677ec152b5ff68ace615bb7b725152b3ab17a876aea8a5aa76d2e417629ec4ee341f56135fccf695280104e0312ecbda92557c93870114af6c9d05c4f7f0c3685b7a46bee255932575cce10b424d813cfe4875d3e82047b97ddef52741d546b8e289dc6935b3ece0462db0a22b8e7"
	rsaExponentHex = "010001"
	rsaModulusBits = 1024

	// EncSecKeyWidth is the hex width encSecKey is left-padded to.
	EncSecKeyWidth = rsaModulusBits / 4

	secretKeyLen = 16

	eapiSaltHead  = "nobody"
	eapiSaltMid   = "use"
	eapiSaltTail  = "md5forencrypt"
	eapiSeparator = "-36cd479b6b5-"
)

// Keys is the validated key material the engine encrypts with.
type Keys struct {
	Preset   []byte
	IV       []byte
	Linux    []byte
	EAPI     []byte
	Modulus  *big.Int
	Exponent *big.Int
}

// ConfigError reports a malformed platform constant. It is fatal: the
// package panics with it during init.
type ConfigError struct {
	Constant string
	Err      error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("platform constant %s: %v", e.Constant, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// LoadKeys parses and validates the platform constants.
func LoadKeys() (*Keys, error) {
	return loadKeys(map[string]string{
		"preset_key":   presetKey,
		"iv":           presetIV,
		"linuxapi_key": linuxAPIKey,
		"eapi_key":     eapiKey,
	}, rsaModulusHex, rsaExponentHex)
}

func loadKeys(sym map[string]string, modulusHex, exponentHex string) (*Keys, error) {
	for _, name := range []string{"preset_key", "linuxapi_key", "eapi_key"} {
		if _, err := aes.NewCipher([]byte(sym[name])); err != nil {
			return nil, &ConfigError{Constant: name, Err: err}
		}
	}
	if len(sym["iv"]) != aes.BlockSize {
		return nil, &ConfigError{Constant: "iv", Err: fmt.Errorf("want %d bytes, got %d", aes.BlockSize, len(sym["iv"]))}
	}
	n, ok := new(big.Int).SetString(modulusHex, 16)
	if !ok {
		return nil, &ConfigError{Constant: "rsa_modulus", Err: fmt.Errorf("not a hex integer")}
	}
	if n.BitLen() != rsaModulusBits {
		return nil, &ConfigError{Constant: "rsa_modulus", Err: fmt.Errorf("want %d bits, got %d", rsaModulusBits, n.BitLen())}
	}
	e, ok := new(big.Int).SetString(exponentHex, 16)
	if !ok || e.Sign() <= 0 {
		return nil, &ConfigError{Constant: "rsa_exponent", Err: fmt.Errorf("not a positive hex integer")}
	}
	return &Keys{
		Preset:   []byte(sym["preset_key"]),
		IV:       []byte(sym["iv"]),
		Linux:    []byte(sym["linuxapi_key"]),
		EAPI:     []byte(sym["eapi_key"]),
		Modulus:  n,
		Exponent: e,
	}, nil
}

var platformKeys = mustLoadKeys()

func mustLoadKeys() *Keys {
	keys, err := LoadKeys()
	if err != nil {
		panic(err)
	}
	return keys
}
