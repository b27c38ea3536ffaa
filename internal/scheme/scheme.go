// Package scheme implements the platform's request encryption schemes.
//
// WeAPI double-encrypts the JSON parameters with AES-CBC and wraps the
// per-request key with raw RSA. LinuxAPI encrypts a method/url/params
// envelope with AES-ECB for the forwarding endpoint. EAPI encrypts a
// digest-tagged envelope with AES-ECB.
package scheme

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Scheme names the transform a request must go through.
type Scheme string

const (
	WeAPI    Scheme = "weapi"
	LinuxAPI Scheme = "linuxapi"
	EAPI     Scheme = "eapi"
	Plain    Scheme = "plain"
)

// Parse maps a scheme tag onto a known Scheme. Unknown tags are returned
// as-is with ok == false so dispatch can decide what to do with them.
func Parse(tag string) (Scheme, bool) {
	s := Scheme(strings.ToLower(strings.TrimSpace(tag)))
	switch s {
	case WeAPI, LinuxAPI, EAPI, Plain:
		return s, true
	}
	return s, false
}

func (s Scheme) String() string { return string(s) }

// Params is the flat parameter set carried inside an encrypted body.
type Params map[string]string

// Clone returns a shallow copy that is safe to modify.
func (p Params) Clone() Params {
	out := make(Params, len(p)+1)
	for k, v := range p {
		out[k] = v
	}
	return out
}

// JSON serialises the parameters as a JSON object with sorted keys. HTML
// characters are left unescaped to match the platform's serializer.
func (p Params) JSON() ([]byte, error) {
	if p == nil {
		p = Params{}
	}
	return marshal(map[string]string(p))
}

func marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}
