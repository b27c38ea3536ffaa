// Package bridge exposes the request assembler as a local JSON service.
package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/RowanDark/ncmsign/internal/journal"
	"github.com/RowanDark/ncmsign/internal/logging"
	"github.com/RowanDark/ncmsign/internal/request"
	"github.com/RowanDark/ncmsign/internal/transport"
)

const (
	requestIDHeader = "X-Request-Id"
	maxRequestBytes = 1 << 20
)

// Config configures the bridge.
type Config struct {
	Addr      string
	Assembler *request.Assembler
	// Client enables POST /send. Nil leaves the route unregistered.
	Client *transport.Client
	// Journal, when set, records every signed and sent request.
	Journal       *journal.Store
	Logger        *logging.AuditLogger
	DefaultCookie string
}

// Server is the bridge HTTP server.
type Server struct {
	cfg        Config
	logger     *logging.AuditLogger
	httpServer *http.Server
	started    time.Time
}

// NewServer validates cfg.
func NewServer(cfg Config) (*Server, error) {
	if strings.TrimSpace(cfg.Addr) == "" {
		return nil, errors.New("bridge address must be provided")
	}
	if cfg.Assembler == nil {
		return nil, errors.New("assembler is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	return &Server{cfg: cfg, logger: logger.WithComponent("bridge"), started: time.Now()}, nil
}

// Handler returns the routed handler without h2c wrapping.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/endpoints", s.handleEndpoints)
	mux.HandleFunc("/params", s.handleParams)
	mux.HandleFunc("/cipher", s.handleCipher)
	if s.cfg.Client != nil {
		mux.HandleFunc("/send", s.handleSend)
	}
	return s.withRequestID(mux)
}

// Run serves until ctx is cancelled. Cleartext HTTP/2 is accepted alongside
// HTTP/1.1.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.httpServer = &http.Server{
		Handler:           h2c.NewHandler(s.Handler(), &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Emitf(logging.EventBridgeLifecycle, "", "listening on %s", ln.Addr())

	errCh := make(chan error, 1)
	go func() {
		err := s.httpServer.Serve(ln)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.httpServer.Shutdown(shutdownCtx)
		s.logger.Emitf(logging.EventBridgeLifecycle, "", "stopped")
		return <-errCh
	case err := <-errCh:
		return err
	}
}

type ctxKey struct{}

func (s *Server) withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(requestIDHeader))
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, id)))
	})
}

func requestID(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

type errorBody struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(data); err != nil {
		s.logger.Emitf(logging.EventRequestRejected, "", "encode response: %v", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, status int, err error) {
	s.writeJSON(w, status, errorBody{Error: err.Error(), RequestID: requestID(r.Context())})
}

func allowMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method == method {
		return true
	}
	w.Header().Set("Allow", method)
	http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	return false
}
