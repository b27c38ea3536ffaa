package bridge

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"runtime"
	"strings"
	"time"

	"github.com/shirou/gopsutil/cpu"
	"github.com/shirou/gopsutil/mem"

	"github.com/RowanDark/ncmsign/internal/cipher"
	"github.com/RowanDark/ncmsign/internal/endpoint"
	"github.com/RowanDark/ncmsign/internal/journal"
	"github.com/RowanDark/ncmsign/internal/logging"
	"github.com/RowanDark/ncmsign/internal/request"
)

// Pairs is the params list. It decodes from [["k","v"],...] or {"k":"v"};
// non-string values keep their JSON text.
type Pairs map[string]string

func (p *Pairs) UnmarshalJSON(data []byte) error {
	out := make(Pairs)
	trimmed := bytes.TrimSpace(data)
	switch {
	case bytes.Equal(trimmed, []byte("null")):
	case len(trimmed) > 0 && trimmed[0] == '{':
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &obj); err != nil {
			return err
		}
		for k, v := range obj {
			out[k] = rawString(v)
		}
	default:
		var list [][]json.RawMessage
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return fmt.Errorf("params must be [[key,value],...] or an object: %w", err)
		}
		for i, pair := range list {
			if len(pair) != 2 {
				return fmt.Errorf("params[%d]: want [key,value], got %d elements", i, len(pair))
			}
			var key string
			if err := json.Unmarshal(pair[0], &key); err != nil {
				return fmt.Errorf("params[%d]: key must be a string", i)
			}
			out[key] = rawString(pair[1])
		}
	}
	*p = out
	return nil
}

func rawString(v json.RawMessage) string {
	var s string
	if err := json.Unmarshal(v, &s); err == nil {
		return s
	}
	return string(bytes.TrimSpace(v))
}

// ParamsRequest is the body of POST /params and POST /send. URL is an
// endpoint route such as "/song/detail". Method is the caller's own HTTP verb;
// it is accepted for compatibility and ignored, since every platform call is a
// POST.
type ParamsRequest struct {
	Method string `json:"method"`
	URL    string `json:"url"`
	Params Pairs  `json:"params"`
	Cookie string `json:"cookie"`
}

func statusFor(err error) int {
	var missing *request.MissingParameterError
	switch {
	case errors.Is(err, endpoint.ErrUnknownEndpoint):
		return http.StatusNotFound
	case errors.As(err, &missing), errors.Is(err, request.ErrInvalidURL):
		return http.StatusBadRequest
	case errors.Is(err, request.ErrUnsupportedScheme):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) decodeParams(w http.ResponseWriter, r *http.Request) (*ParamsRequest, bool) {
	var in ParamsRequest
	dec := json.NewDecoder(io.LimitReader(r.Body, maxRequestBytes))
	if err := dec.Decode(&in); err != nil {
		s.writeError(w, r, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return nil, false
	}
	if strings.TrimSpace(in.Cookie) == "" {
		in.Cookie = s.cfg.DefaultCookie
	}
	return &in, true
}

// sign resolves the route and assembles the descriptor.
func (s *Server) sign(r *http.Request, in *ParamsRequest) (*request.TransportRequest, *endpoint.Endpoint, error) {
	ep, err := endpoint.Lookup(in.URL)
	if err != nil {
		return nil, nil, err
	}
	call, err := ep.Call(endpoint.Query(in.Params), in.Cookie)
	if err != nil {
		return nil, ep, err
	}
	out, err := s.cfg.Assembler.Assemble(r.Context(), call)
	return out, ep, err
}

func (s *Server) handleParams(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	in, ok := s.decodeParams(w, r)
	if !ok {
		return
	}
	id := requestID(r.Context())
	out, ep, err := s.sign(r, in)
	if err != nil {
		s.reject(w, r, in.URL, err)
		return
	}
	s.audit(id, ep, in, out)
	s.record(r, &journal.Entry{RequestID: id, Route: ep.Route, Scheme: string(ep.Scheme), URL: out.URL, Cookie: in.Cookie})
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleSend(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	in, ok := s.decodeParams(w, r)
	if !ok {
		return
	}
	id := requestID(r.Context())
	out, ep, err := s.sign(r, in)
	if err != nil {
		s.reject(w, r, in.URL, err)
		return
	}
	s.audit(id, ep, in, out)

	started := time.Now()
	resp, err := s.cfg.Client.Do(r.Context(), out)
	entry := &journal.Entry{
		RequestID: id,
		Route:     ep.Route,
		Scheme:    string(ep.Scheme),
		URL:       out.URL,
		Cookie:    in.Cookie,
		Duration:  time.Since(started).Milliseconds(),
	}
	if err != nil {
		entry.Error = err.Error()
		s.record(r, entry)
		_ = s.logger.Emit(logging.AuditEvent{EventType: logging.EventUpstreamCall, RequestID: id, Route: ep.Route, Decision: logging.DecisionDeny, Reason: err.Error()})
		s.writeError(w, r, http.StatusBadGateway, err)
		return
	}
	entry.Status = resp.Status
	s.record(r, entry)
	_ = s.logger.Emit(logging.AuditEvent{
		EventType: logging.EventUpstreamCall,
		RequestID: id,
		Route:     ep.Route,
		Decision:  logging.DecisionInfo,
		Metadata:  map[string]any{"status": resp.Status, "bytes": len(resp.Body)},
	})
	if ct := resp.Header.Get("Content-Type"); ct != "" {
		w.Header().Set("Content-Type", ct)
	}
	for _, c := range resp.Header.Values("Set-Cookie") {
		w.Header().Add("Set-Cookie", c)
	}
	w.WriteHeader(resp.Status)
	_, _ = w.Write(resp.Body)
}

func (s *Server) reject(w http.ResponseWriter, r *http.Request, route string, err error) {
	status := statusFor(err)
	_ = s.logger.Emit(logging.AuditEvent{
		EventType: logging.EventRequestRejected,
		RequestID: requestID(r.Context()),
		Route:     route,
		Decision:  logging.DecisionDeny,
		Reason:    err.Error(),
		Metadata:  map[string]any{"status": status},
	})
	s.writeError(w, r, status, err)
}

func (s *Server) audit(id string, ep *endpoint.Endpoint, in *ParamsRequest, out *request.TransportRequest) {
	_ = s.logger.Emit(logging.AuditEvent{
		EventType: logging.EventRequestSigned,
		RequestID: id,
		Route:     ep.Route,
		Scheme:    string(ep.Scheme),
		Decision:  logging.DecisionAllow,
		Metadata: map[string]any{
			"url":        out.URL,
			"body_bytes": len(out.Body),
			"cookie":     in.Cookie,
			"args":       auditArgs(in.Params, ep.Sensitive),
		},
	})
}

// auditArgs copies the caller's arguments for the audit log. Sensitive names
// are listed under never_persist so redact masks their values.
func auditArgs(params Pairs, sensitive []string) map[string]string {
	args := make(map[string]string, len(params)+1)
	for k, v := range params {
		args[k] = v
	}
	if len(sensitive) > 0 {
		args["never_persist"] = strings.Join(sensitive, ",")
	}
	return args
}

func (s *Server) record(r *http.Request, e *journal.Entry) {
	if s.cfg.Journal == nil {
		return
	}
	if err := s.cfg.Journal.Record(r.Context(), e); err != nil {
		s.logger.Emitf(logging.EventBridgeLifecycle, e.RequestID, "journal write failed: %v", err)
	}
}

type endpointInfo struct {
	Route       string `json:"route"`
	Scheme      string `json:"scheme"`
	Description string `json:"description"`
}

func (s *Server) handleEndpoints(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	eps := endpoint.List()
	out := make([]endpointInfo, 0, len(eps))
	for _, ep := range eps {
		out = append(out, endpointInfo{Route: ep.Route, Scheme: string(ep.Scheme), Description: ep.Description})
	}
	s.writeJSON(w, http.StatusOK, out)
}

// CipherRequest runs one registered cipher operation.
type CipherRequest struct {
	Operation string                 `json:"operation"`
	Input     string                 `json:"input"`
	Config    map[string]interface{} `json:"config,omitempty"`
	Reverse   bool                   `json:"reverse,omitempty"`
}

// CipherResponse carries the operation output.
type CipherResponse struct {
	Output string `json:"output"`
}

func (s *Server) handleCipher(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	var in CipherRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxRequestBytes)).Decode(&in); err != nil {
		s.writeError(w, r, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}
	op, ok := cipher.GetOperation(in.Operation)
	if !ok {
		s.writeError(w, r, http.StatusNotFound, fmt.Errorf("unknown operation %q", in.Operation))
		return
	}
	if in.Reverse {
		rev, ok := op.Reverse()
		if !ok {
			s.writeError(w, r, http.StatusBadRequest, fmt.Errorf("operation %q has no reverse", in.Operation))
			return
		}
		op = rev
	}
	output, err := op.Execute(r.Context(), []byte(in.Input), in.Config)
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, err)
		return
	}
	s.writeJSON(w, http.StatusOK, CipherResponse{Output: string(output)})
}

type healthReport struct {
	Status         string  `json:"status"`
	Uptime         string  `json:"uptime"`
	Goroutines     int     `json:"goroutines"`
	CPUs           int     `json:"cpus,omitempty"`
	MemUsedPercent float64 `json:"mem_used_percent,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("verbose") == "" {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
		return
	}
	report := healthReport{
		Status:     "ok",
		Uptime:     time.Since(s.started).Truncate(time.Second).String(),
		Goroutines: runtime.NumGoroutine(),
	}
	if n, err := cpu.Counts(true); err == nil {
		report.CPUs = n
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		report.MemUsedPercent = vm.UsedPercent
	}
	s.writeJSON(w, http.StatusOK, report)
}
