package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/RowanDark/ncmsign/internal/journal"
	"github.com/RowanDark/ncmsign/internal/logging"
	"github.com/RowanDark/ncmsign/internal/request"
	"github.com/RowanDark/ncmsign/internal/scheme"
	"github.com/RowanDark/ncmsign/internal/transport"
)

func newTestServer(t *testing.T, cfg Config) (*httptest.Server, *bytes.Buffer) {
	t.Helper()
	audit := &bytes.Buffer{}
	cfg.Addr = "127.0.0.1:0"
	if cfg.Assembler == nil {
		cfg.Assembler = request.New()
	}
	cfg.Logger = logging.MustNewAuditLogger("test", logging.WithoutStdout(), logging.WithWriter(audit))
	srv, err := NewServer(cfg)
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts, audit
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestParamsReturnsDescriptor(t *testing.T) {
	ts, audit := newTestServer(t, Config{})

	resp := postJSON(t, ts.URL+"/params", map[string]any{
		"url":    "/song/detail",
		"params": [][]any{{"ids", "1,2"}},
		"cookie": "MUSIC_U=sessionvalue; __csrf=tok",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var out request.TransportRequest
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.URL != "https://music.163.com/weapi/v3/song/detail" || out.Method != request.MethodPOST {
		t.Fatalf("unexpected descriptor %+v", out)
	}
	if !strings.HasPrefix(out.Body, "params=") || !strings.Contains(out.Body, "&encSecKey=") {
		t.Fatalf("body = %q", out.Body)
	}
	if ck, _ := out.Header("Cookie"); ck != "MUSIC_U=sessionvalue; __csrf=tok" {
		t.Fatalf("cookie header = %q", ck)
	}
	if _, err := uuid.Parse(resp.Header.Get(requestIDHeader)); err != nil {
		t.Fatalf("missing request id: %v", err)
	}
	if !strings.Contains(audit.String(), `"event_type":"request_signed"`) {
		t.Fatalf("audit log missing signed event: %s", audit.String())
	}
	if strings.Contains(audit.String(), "sessionvalue") {
		t.Fatalf("cookie leaked into audit log: %s", audit.String())
	}
}

func TestParamsAcceptsObjectParams(t *testing.T) {
	ts, _ := newTestServer(t, Config{})
	resp := postJSON(t, ts.URL+"/params", map[string]any{
		"url":    "lyric",
		"params": map[string]any{"id": 42},
	})
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("status = %d: %s", resp.StatusCode, body)
	}
	var out request.TransportRequest
	_ = json.NewDecoder(resp.Body).Decode(&out)
	if out.URL != "https://music.163.com/api/linux/forward" || !strings.HasPrefix(out.Body, "eparams=") {
		t.Fatalf("unexpected descriptor %+v", out)
	}
}

func TestParamsIgnoresCallerMethod(t *testing.T) {
	ts, _ := newTestServer(t, Config{})
	resp := postJSON(t, ts.URL+"/params", map[string]any{
		"method": "GET",
		"url":    "/lyric",
		"params": [][]any{{"id", "1"}},
	})
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("status = %d: %s", resp.StatusCode, body)
	}
	var out request.TransportRequest
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if ct, ok := out.Header("Content-Type"); !ok || ct != "application/x-www-form-urlencoded" {
		t.Fatalf("content-type = %q (present %v)", ct, ok)
	}
	env, err := scheme.DecodeLinuxAPI(context.Background(), out.Body)
	if err != nil {
		t.Fatalf("DecodeLinuxAPI: %v", err)
	}
	if env.Method != request.MethodPOST {
		t.Fatalf("envelope method = %q", env.Method)
	}
}

func TestLoginArgsMaskedInAudit(t *testing.T) {
	ts, audit := newTestServer(t, Config{})
	resp := postJSON(t, ts.URL+"/params", map[string]any{
		"url":    "/login/cellphone",
		"params": [][]any{{"phone", "13800138000"}, {"password", "hunter2hunter2"}, {"countrycode", "86"}},
	})
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("status = %d: %s", resp.StatusCode, body)
	}
	log := audit.String()
	for _, leaked := range []string{"hunter2hunter2", "13800138000", "never_persist"} {
		if strings.Contains(log, leaked) {
			t.Errorf("audit log contains %q: %s", leaked, log)
		}
	}
	for _, want := range []string{`"password":"[REDACTED_SECRET]"`, `"phone":"[REDACTED_SECRET]"`, `"countrycode":"86"`} {
		if !strings.Contains(log, want) {
			t.Errorf("audit log missing %s: %s", want, log)
		}
	}
}

func TestParamsErrors(t *testing.T) {
	strict := request.New(request.WithStrictSchemes(true))
	ts, _ := newTestServer(t, Config{Assembler: strict})

	tests := []struct {
		name   string
		body   any
		status int
	}{
		{"unknown route", map[string]any{"url": "/nope"}, http.StatusNotFound},
		{"missing id", map[string]any{"url": "/album"}, http.StatusBadRequest},
		{"bad params", map[string]any{"url": "/album", "params": [][]string{{"only-key"}}}, http.StatusBadRequest},
		{"strict eapi", map[string]any{"url": "/song/url/v1", "params": [][]string{{"id", "1"}}}, http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := postJSON(t, ts.URL+"/params", tt.body)
			if resp.StatusCode != tt.status {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tt.status)
			}
			var body errorBody
			if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
				t.Fatalf("decode error body: %v", err)
			}
			if body.Error == "" || body.RequestID == "" {
				t.Fatalf("incomplete error body %+v", body)
			}
		})
	}

	resp, err := http.Get(ts.URL + "/params")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("GET /params status = %d", resp.StatusCode)
	}
}

func TestRequestIDPropagates(t *testing.T) {
	ts, _ := newTestServer(t, Config{})
	id := uuid.NewString()
	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/healthz", nil)
	req.Header.Set(requestIDHeader, id)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if string(body) != "ok" {
		t.Fatalf("healthz body = %q", body)
	}
	if resp.Header.Get(requestIDHeader) != id {
		t.Fatalf("request id = %q, want %q", resp.Header.Get(requestIDHeader), id)
	}
}

func TestVerboseHealth(t *testing.T) {
	ts, _ := newTestServer(t, Config{})
	resp, err := http.Get(ts.URL + "/healthz?verbose=1")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	var report healthReport
	if err := json.NewDecoder(resp.Body).Decode(&report); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if report.Status != "ok" || report.Goroutines <= 0 {
		t.Fatalf("unexpected report %+v", report)
	}
}

func TestEndpointsListing(t *testing.T) {
	ts, _ := newTestServer(t, Config{})
	resp, err := http.Get(ts.URL + "/endpoints")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	var list []endpointInfo
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		t.Fatalf("decode: %v", err)
	}
	found := false
	for _, ep := range list {
		if ep.Route == "/playlist/detail" && ep.Scheme == "linuxapi" {
			found = true
		}
	}
	if !found {
		t.Fatalf("playlist route missing from %+v", list)
	}
}

func TestCipherEndpoint(t *testing.T) {
	ts, _ := newTestServer(t, Config{})

	resp := postJSON(t, ts.URL+"/cipher", CipherRequest{Operation: "md5_hash", Input: "password", Config: map[string]interface{}{"encoding": "hex"}})
	var out CipherResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Output != "5f4dcc3b5aa765d61d8327deb882cf99" {
		t.Fatalf("md5 = %q", out.Output)
	}

	resp = postJSON(t, ts.URL+"/cipher", CipherRequest{Operation: "base64_encode", Input: "aGk=", Reverse: true})
	_ = json.NewDecoder(resp.Body).Decode(&out)
	if out.Output != "hi" {
		t.Fatalf("reverse base64 = %q", out.Output)
	}

	resp = postJSON(t, ts.URL+"/cipher", CipherRequest{Operation: "rot13"})
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("unknown op status = %d", resp.StatusCode)
	}
}

type cannedTripper struct {
	seen *http.Request
}

func (c *cannedTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	c.seen = req
	h := http.Header{}
	h.Set("Content-Type", "application/json;charset=UTF-8")
	h.Add("Set-Cookie", "MUSIC_U=new; Path=/")
	return &http.Response{
		StatusCode: http.StatusOK,
		Header:     h,
		Body:       io.NopCloser(strings.NewReader(`{"code":200,"songs":[]}`)),
		Request:    req,
	}, nil
}

func TestSendProxiesRawBody(t *testing.T) {
	rt := &cannedTripper{}
	client, err := transport.New(transport.WithRoundTripper(rt))
	if err != nil {
		t.Fatalf("transport.New: %v", err)
	}
	store, err := journal.Open(filepath.Join(t.TempDir(), "journal.db"))
	if err != nil {
		t.Fatalf("journal.Open: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	ts, _ := newTestServer(t, Config{Client: client, Journal: store, DefaultCookie: "MUSIC_U=old"})
	resp := postJSON(t, ts.URL+"/send", map[string]any{"url": "/song/detail", "params": [][]string{{"ids", "5"}}})
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK || string(body) != `{"code":200,"songs":[]}` {
		t.Fatalf("send returned %d %q", resp.StatusCode, body)
	}
	if resp.Header.Get("Set-Cookie") == "" {
		t.Fatal("upstream Set-Cookie not forwarded")
	}
	if rt.seen == nil || rt.seen.Header.Get("Cookie") != "MUSIC_U=old" {
		t.Fatalf("upstream request cookie wrong: %+v", rt.seen)
	}

	entries, err := store.List(context.Background(), journal.Filter{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 1 || entries[0].Route != "/song/detail" || entries[0].Status != http.StatusOK {
		t.Fatalf("journal entries %+v", entries)
	}
}

func TestSendRouteNeedsClient(t *testing.T) {
	ts, _ := newTestServer(t, Config{})
	resp := postJSON(t, ts.URL+"/send", map[string]any{"url": "/song/detail"})
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}

func TestServeShutsDownOnCancel(t *testing.T) {
	srv, err := NewServer(Config{Addr: "127.0.0.1:0", Assembler: request.New()})
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	url := "http://" + ln.Addr().String() + "/healthz"
	deadline := time.Now().Add(2 * time.Second)
	for {
		resp, err := http.Get(url)
		if err == nil {
			resp.Body.Close()
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("server never came up: %v", err)
		}
		time.Sleep(10 * time.Millisecond)
	}
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Serve returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}

func TestNewServerValidation(t *testing.T) {
	if _, err := NewServer(Config{Assembler: request.New()}); err == nil {
		t.Fatal("expected address error")
	}
	if _, err := NewServer(Config{Addr: "127.0.0.1:0"}); err == nil {
		t.Fatal("expected assembler error")
	}
}
