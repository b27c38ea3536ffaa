package request

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/RowanDark/ncmsign/internal/scheme"
	"github.com/RowanDark/ncmsign/internal/useragent"
)

// Call is everything the endpoint layer hands the assembler.
type Call struct {
	URL    string
	Method string
	Scheme scheme.Scheme
	Params scheme.Params
	Cookie string
	// CookieSuffix is appended after Cookie has been resolved, so a
	// synthesized NMTID still carries it.
	CookieSuffix string
	UserAgent    useragent.Class
}

// Header is one outgoing header. Order is preserved.
type Header struct {
	Name  string
	Value string
}

// MarshalJSON renders the header as a [name, value] pair.
func (h Header) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]string{h.Name, h.Value})
}

// UnmarshalJSON accepts a [name, value] pair.
func (h *Header) UnmarshalJSON(data []byte) error {
	var pair []string
	if err := json.Unmarshal(data, &pair); err != nil {
		return err
	}
	if len(pair) != 2 {
		return fmt.Errorf("header: want [name, value], got %d elements", len(pair))
	}
	h.Name, h.Value = pair[0], pair[1]
	return nil
}

// TransportRequest is the descriptor handed to the HTTP client.
type TransportRequest struct {
	URL     string   `json:"url"`
	Method  string   `json:"method"`
	Headers []Header `json:"headers"`
	Body    string   `json:"body"`
}

// Header returns the first value for name, matched case-insensitively.
func (r *TransportRequest) Header(name string) (string, bool) {
	for _, h := range r.Headers {
		if strings.EqualFold(h.Name, name) {
			return h.Value, true
		}
	}
	return "", false
}
