package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/RowanDark/ncmsign/internal/config"
	"github.com/RowanDark/ncmsign/internal/endpoint"
	"github.com/RowanDark/ncmsign/internal/journal"
	"github.com/RowanDark/ncmsign/internal/logging"
	"github.com/RowanDark/ncmsign/internal/request"
	"github.com/RowanDark/ncmsign/internal/transport"
	"github.com/RowanDark/ncmsign/internal/useragent"
)

// transportOptions is appended to every client built by send.
var transportOptions []transport.Option

type signFlags struct {
	route  *string
	method *string
	cookie *string
	ua     *string
	strict *bool
	eapi   *bool
	params setArgs
}

func bindSignFlags(fs *flag.FlagSet, cfg config.Config) *signFlags {
	f := &signFlags{
		route:  fs.String("route", "", "endpoint route, e.g. /song/detail"),
		method: fs.String("method", "", "override the POST method hint (debugging; non-POST drops Content-Type)"),
		cookie: fs.String("cookie", cfg.Cookie, "cookie header to send"),
		ua:     fs.String("ua", string(cfg.UserAgent), "user agent class (mobile, pc) or a literal string"),
		strict: fs.Bool("strict", cfg.StrictSchemes, "fail on schemes that produce no body"),
		eapi:   fs.Bool("eapi", cfg.EnableEAPI, "encrypt eapi routes"),
	}
	fs.Var(&f.params, "param", "route argument key=value (repeatable)")
	return f
}

func (f *signFlags) assemble(ctx context.Context, cfg config.Config) (*request.TransportRequest, *endpoint.Endpoint, error) {
	if strings.TrimSpace(*f.route) == "" {
		return nil, nil, errors.New("--route must be provided")
	}
	query, err := f.params.pairs()
	if err != nil {
		return nil, nil, err
	}
	ep, err := endpoint.Lookup(*f.route)
	if err != nil {
		return nil, nil, err
	}
	call, err := ep.Call(endpoint.Query(query), *f.cookie)
	if err != nil {
		return nil, ep, err
	}
	if m := strings.TrimSpace(*f.method); m != "" {
		call.Method = m
	}
	if call.UserAgent == "" {
		call.UserAgent = useragent.Class(*f.ua)
	}
	cfg.StrictSchemes = *f.strict
	cfg.EnableEAPI = *f.eapi
	out, err := newAssembler(cfg).Assemble(ctx, call)
	return out, ep, err
}

func runSign(cfg config.Config, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("sign", flag.ContinueOnError)
	fs.SetOutput(stderr)
	f := bindSignFlags(fs, cfg)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	logger, err := newLogger(cfg, stderr, false)
	if err != nil {
		fmt.Fprintf(stderr, "audit log: %v\n", err)
		return 1
	}
	defer logger.Close()

	out, ep, err := f.assemble(context.Background(), cfg)
	if err != nil {
		fmt.Fprintf(stderr, "sign: %v\n", err)
		return 1
	}
	_ = logger.Emit(logging.AuditEvent{EventType: logging.EventRequestSigned, Route: ep.Route, Scheme: string(ep.Scheme), Decision: logging.DecisionAllow})

	enc := json.NewEncoder(stdout)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		fmt.Fprintf(stderr, "encode: %v\n", err)
		return 1
	}
	return 0
}

func runSend(cfg config.Config, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("send", flag.ContinueOnError)
	fs.SetOutput(stderr)
	f := bindSignFlags(fs, cfg)
	timeout := fs.Duration("timeout", cfg.Timeout, "request timeout")
	fingerprint := fs.Bool("fingerprint", cfg.Fingerprint, "dial TLS with a browser ClientHello")
	pick := fs.String("pick", "", "print only this gjson path of a JSON response")
	journalPath := fs.String("journal", cfg.JournalPath, "sqlite journal to record the call in")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	logger, err := newLogger(cfg, stderr, false)
	if err != nil {
		fmt.Fprintf(stderr, "audit log: %v\n", err)
		return 1
	}
	defer logger.Close()

	ctx := context.Background()
	out, ep, err := f.assemble(ctx, cfg)
	if err != nil {
		fmt.Fprintf(stderr, "sign: %v\n", err)
		return 1
	}

	opts := append([]transport.Option{
		transport.WithTimeout(*timeout),
		transport.WithBrowserFingerprint(*fingerprint),
	}, transportOptions...)
	client, err := transport.New(opts...)
	if err != nil {
		fmt.Fprintf(stderr, "transport: %v\n", err)
		return 1
	}
	defer client.CloseIdleConnections()

	started := time.Now()
	resp, sendErr := client.Do(ctx, out)
	entry := &journal.Entry{
		Route:    ep.Route,
		Scheme:   string(ep.Scheme),
		URL:      out.URL,
		Cookie:   *f.cookie,
		Duration: time.Since(started).Milliseconds(),
	}
	if sendErr != nil {
		entry.Error = sendErr.Error()
	} else {
		entry.Status = resp.Status
	}
	if strings.TrimSpace(*journalPath) != "" {
		if err := recordEntry(ctx, *journalPath, entry); err != nil {
			fmt.Fprintf(stderr, "journal: %v\n", err)
		}
	}
	if sendErr != nil {
		_ = logger.Emit(logging.AuditEvent{EventType: logging.EventUpstreamCall, Route: ep.Route, Decision: logging.DecisionDeny, Reason: sendErr.Error()})
		fmt.Fprintf(stderr, "send: %v\n", sendErr)
		return 1
	}
	_ = logger.Emit(logging.AuditEvent{EventType: logging.EventUpstreamCall, Route: ep.Route, Decision: logging.DecisionInfo, Metadata: map[string]any{"status": resp.Status}})

	if *pick != "" {
		if !gjson.ValidBytes(resp.Body) {
			fmt.Fprintln(stderr, "response is not JSON; --pick needs a JSON body")
			return 1
		}
		result := gjson.GetBytes(resp.Body, *pick)
		if !result.Exists() {
			fmt.Fprintf(stderr, "path %q not found in response\n", *pick)
			return 1
		}
		fmt.Fprintln(stdout, result.String())
	} else {
		_, _ = stdout.Write(resp.Body)
		fmt.Fprintln(stdout)
	}
	if resp.Status >= 400 {
		fmt.Fprintf(stderr, "upstream returned %d\n", resp.Status)
		return 1
	}
	return 0
}

func recordEntry(ctx context.Context, path string, e *journal.Entry) error {
	store, err := journal.Open(path)
	if err != nil {
		return err
	}
	defer store.Close()
	return store.Record(ctx, e)
}
