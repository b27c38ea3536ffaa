// Package cookie resolves the session cookie sent with platform requests and
// extracts the CSRF token WeAPI calls must sign.
package cookie

import (
	"crypto/rand"
	"fmt"
	"io"
	"regexp"

	"github.com/RowanDark/ncmsign/internal/cipher"
)

// anonymousIDBytes is the entropy behind a synthesized NMTID marker.
const anonymousIDBytes = 16

var csrfRe = regexp.MustCompile(`_csrf=([^;]+)`)

// Resolver fills in an anonymous cookie when the caller has none.
type Resolver struct {
	random io.Reader
}

// NewResolver returns a Resolver drawing from r, or crypto/rand when r is nil.
func NewResolver(r io.Reader) *Resolver {
	if r == nil {
		r = rand.Reader
	}
	return &Resolver{random: r}
}

// Resolve returns supplied unchanged when it is non-empty; otherwise it
// synthesizes a disposable "NMTID=<32 hex>;" marker.
func (r *Resolver) Resolve(supplied string) (string, error) {
	if supplied != "" {
		return supplied, nil
	}
	id, err := cipher.HexRandomBytesFrom(r.random, anonymousIDBytes)
	if err != nil {
		return "", fmt.Errorf("synthesize cookie: %w", err)
	}
	return "NMTID=" + id + ";", nil
}

var defaultResolver = NewResolver(nil)

// Resolve applies Resolver.Resolve with crypto/rand.
func Resolve(supplied string) (string, error) {
	return defaultResolver.Resolve(supplied)
}

// ExtractCSRF returns the value of the _csrf attribute, terminated by ';' or
// the end of the string, or "" when there is none. The match is unanchored,
// so the "__csrf" cookie the platform issues is picked up too.
func ExtractCSRF(cookie string) string {
	m := csrfRe.FindStringSubmatch(cookie)
	if m == nil {
		return ""
	}
	return m[1]
}
