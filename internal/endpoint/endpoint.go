// Package endpoint maps API routes onto request.Calls for the assembler.
package endpoint

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/RowanDark/ncmsign/internal/request"
	"github.com/RowanDark/ncmsign/internal/scheme"
	"github.com/RowanDark/ncmsign/internal/useragent"
)

// ErrUnknownEndpoint is returned by Lookup for routes nobody registered.
var ErrUnknownEndpoint = errors.New("unknown endpoint")

// Query holds the caller's arguments for one route.
type Query map[string]string

// Value returns the trimmed argument or def when it is absent or blank.
func (q Query) Value(name, def string) string {
	if v := strings.TrimSpace(q[name]); v != "" {
		return v
	}
	return def
}

// Require returns the argument or a *request.MissingParameterError.
func (q Query) Require(name string) (string, error) {
	if v := strings.TrimSpace(q[name]); v != "" {
		return v, nil
	}
	return "", request.Missing(name)
}

// Target is what a route builder produces: where to send and what to sign.
type Target struct {
	URL    string
	Params scheme.Params
}

// Endpoint describes one route.
type Endpoint struct {
	Route       string
	Description string
	Scheme      scheme.Scheme
	// UserAgent overrides the caller's class when set.
	UserAgent useragent.Class
	// Sensitive names query arguments that must never reach a log.
	Sensitive []string
	// CookieSuffix is appended by the assembler once the cookie has been
	// resolved, e.g. ";os=pc;".
	CookieSuffix string
	Build        func(q Query) (Target, error)
}

// Call builds the request.Call for q and cookie.
func (e *Endpoint) Call(q Query, ck string) (request.Call, error) {
	target, err := e.Build(q)
	if err != nil {
		return request.Call{}, fmt.Errorf("%s: %w", e.Route, err)
	}
	if target.Params == nil {
		target.Params = scheme.Params{}
	}
	return request.Call{
		URL:          target.URL,
		Method:       request.MethodPOST,
		Scheme:       e.Scheme,
		Params:       target.Params,
		Cookie:       ck,
		CookieSuffix: e.CookieSuffix,
		UserAgent:    e.UserAgent,
	}, nil
}

var (
	catalogue   = make(map[string]*Endpoint)
	catalogueMu sync.RWMutex
)

// Register adds ep to the catalogue.
func Register(ep *Endpoint) error {
	if ep == nil || ep.Build == nil {
		return fmt.Errorf("endpoint must have a builder")
	}
	route := normalizeRoute(ep.Route)
	if route == "/" {
		return fmt.Errorf("endpoint route cannot be empty")
	}
	catalogueMu.Lock()
	defer catalogueMu.Unlock()
	if _, exists := catalogue[route]; exists {
		return fmt.Errorf("endpoint %s is already registered", route)
	}
	ep.Route = route
	catalogue[route] = ep
	return nil
}

// Lookup finds the endpoint for route. Leading and trailing slashes are
// optional.
func Lookup(route string) (*Endpoint, error) {
	catalogueMu.RLock()
	defer catalogueMu.RUnlock()
	ep, ok := catalogue[normalizeRoute(route)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownEndpoint, route)
	}
	return ep, nil
}

// List returns every endpoint sorted by route.
func List() []*Endpoint {
	catalogueMu.RLock()
	defer catalogueMu.RUnlock()
	out := make([]*Endpoint, 0, len(catalogue))
	for _, ep := range catalogue {
		out = append(out, ep)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Route < out[j].Route })
	return out
}

func unregister(route string) {
	catalogueMu.Lock()
	defer catalogueMu.Unlock()
	delete(catalogue, normalizeRoute(route))
}

func normalizeRoute(route string) string {
	return "/" + strings.Trim(strings.TrimSpace(route), "/")
}
