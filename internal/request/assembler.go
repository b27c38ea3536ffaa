// Package request assembles encrypted, transport-ready platform requests.
package request

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/RowanDark/ncmsign/internal/cookie"
	"github.com/RowanDark/ncmsign/internal/scheme"
	"github.com/RowanDark/ncmsign/internal/useragent"
)

const (
	// MethodPOST is the only method the platform accepts.
	MethodPOST = "POST"

	formContentType = "application/x-www-form-urlencoded"
)

// Assembler turns a Call into a TransportRequest. It holds no per-call
// state and is safe for concurrent use.
type Assembler struct {
	engine    *scheme.Engine
	cookies   *cookie.Resolver
	strict    bool
	eapi      bool
	defaultUA useragent.Class
}

// Option configures an Assembler.
type Option func(*assemblerConfig)

type assemblerConfig struct {
	random    io.Reader
	strict    bool
	eapi      bool
	defaultUA useragent.Class
}

// WithStrictSchemes makes EApi (unless enabled) and unknown schemes fail with
// ErrUnsupportedScheme instead of producing an empty body.
func WithStrictSchemes(strict bool) Option {
	return func(c *assemblerConfig) { c.strict = strict }
}

// WithEAPI routes EApi calls through the EApi transform.
func WithEAPI(enabled bool) Option {
	return func(c *assemblerConfig) { c.eapi = enabled }
}

// WithRandom sets the cryptographic random source for secret keys and
// synthesized cookies.
func WithRandom(r io.Reader) Option {
	return func(c *assemblerConfig) { c.random = r }
}

// WithDefaultUserAgent sets the class used when a call leaves it empty.
func WithDefaultUserAgent(class useragent.Class) Option {
	return func(c *assemblerConfig) { c.defaultUA = class }
}

// New builds an Assembler.
func New(opts ...Option) *Assembler {
	var cfg assemblerConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Assembler{
		engine:    scheme.NewEngine(scheme.WithRandom(cfg.random)),
		cookies:   cookie.NewResolver(cfg.random),
		strict:    cfg.strict,
		eapi:      cfg.eapi,
		defaultUA: cfg.defaultUA,
	}
}

// Assemble resolves headers, encrypts the parameters for call.Scheme and
// returns the descriptor. call.Params is not modified.
func (a *Assembler) Assemble(ctx context.Context, call Call) (*TransportRequest, error) {
	if strings.TrimSpace(call.URL) == "" {
		return nil, Missing("url")
	}
	target, err := url.Parse(call.URL)
	if err != nil || target.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidURL, call.URL)
	}
	method := strings.ToUpper(strings.TrimSpace(call.Method))
	if method == "" {
		method = MethodPOST
	}
	sch, known := scheme.Parse(string(call.Scheme))

	headers := make([]Header, 0, 4)
	if sch == scheme.LinuxAPI {
		headers = append(headers, Header{Name: "User-Agent", Value: scheme.LinuxUserAgent})
	} else {
		class := call.UserAgent
		if class == "" {
			class = a.defaultUA
		}
		headers = append(headers, Header{Name: "User-Agent", Value: useragent.Choose(class)})
	}
	if method == MethodPOST {
		headers = append(headers, Header{Name: "Content-Type", Value: formContentType})
	}
	if strings.EqualFold(target.Hostname(), scheme.Domain) {
		headers = append(headers, Header{Name: "Referer", Value: scheme.Origin})
	}
	ck, err := a.cookies.Resolve(call.Cookie)
	if err != nil {
		return nil, err
	}
	ck += call.CookieSuffix
	headers = append(headers, Header{Name: "Cookie", Value: ck})

	out := &TransportRequest{
		URL:     call.URL,
		Method:  MethodPOST,
		Headers: headers,
	}

	switch {
	case known && sch == scheme.WeAPI:
		params := call.Params.Clone()
		params["csrf_token"] = cookie.ExtractCSRF(ck)
		out.Body, err = a.engine.WeAPI(ctx, params)
	case known && sch == scheme.LinuxAPI:
		out.Body, err = a.engine.LinuxAPI(ctx, scheme.Envelope{
			Method: method,
			URL:    strings.ReplaceAll(call.URL, "weapi", "api"),
			Params: call.Params,
		})
		out.URL = scheme.LinuxForwardURL
	case known && sch == scheme.Plain:
	case known && sch == scheme.EAPI && a.eapi:
		var contextPath string
		contextPath, out.URL, err = eapiPaths(target)
		if err == nil {
			out.Body, err = a.engine.EAPI(ctx, contextPath, call.Params)
		}
	default:
		if a.strict {
			return nil, fmt.Errorf("%w: %q", ErrUnsupportedScheme, call.Scheme)
		}
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}

// eapiPaths derives the "/api/..." context path signed into the body and the
// "/eapi/..." URL the request goes to from a target whose first path segment
// is one of the api prefixes.
func eapiPaths(target *url.URL) (contextPath, outURL string, err error) {
	trimmed := strings.TrimPrefix(target.Path, "/")
	prefix, rest, ok := strings.Cut(trimmed, "/")
	if !ok || !strings.HasSuffix(prefix, "api") || rest == "" {
		return "", "", fmt.Errorf("%w: eapi target %q has no api path", ErrInvalidURL, target.String())
	}
	u := *target
	u.Path = "/eapi/" + rest
	u.RawPath = ""
	return "/api/" + rest, u.String(), nil
}
