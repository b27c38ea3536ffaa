package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/RowanDark/ncmsign/internal/config"
	"github.com/RowanDark/ncmsign/internal/logging"
	"github.com/RowanDark/ncmsign/internal/request"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

const usage = `usage: ncmsign <command> [flags]

commands:
  sign       assemble a signed request descriptor for a route
  send       sign a route and send it, printing the raw response body
  serve      run the local JSON bridge
  endpoints  list known routes
  hash       digest text (md5, sha1, sha256, sha512)
  decode     decrypt a linuxapi, eapi or weapi body
  history    list journaled requests
`

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprint(stderr, usage)
		return 2
	}
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(stderr, "load config: %v\n", err)
		return 1
	}
	cmd, rest := args[0], args[1:]
	switch cmd {
	case "sign":
		return runSign(cfg, rest, stdout, stderr)
	case "send":
		return runSend(cfg, rest, stdout, stderr)
	case "serve":
		return runServe(cfg, rest, stdout, stderr)
	case "endpoints":
		return runEndpoints(rest, stdout, stderr)
	case "hash":
		return runHash(rest, stdout, stderr)
	case "decode":
		return runDecode(rest, stdout, stderr)
	case "history":
		return runHistory(cfg, rest, stdout, stderr)
	case "help", "-h", "--help":
		fmt.Fprint(stdout, usage)
		return 0
	default:
		fmt.Fprintf(stderr, "unknown command %q\n\n%s", cmd, usage)
		return 2
	}
}

type setArgs []string

func (s *setArgs) String() string {
	if s == nil {
		return ""
	}
	return strings.Join(*s, ",")
}

func (s *setArgs) Set(value string) error {
	*s = append(*s, value)
	return nil
}

// pairs splits k=v arguments. Only the first '=' separates.
func (s setArgs) pairs() (map[string]string, error) {
	out := make(map[string]string, len(s))
	for _, raw := range s {
		k, v, ok := strings.Cut(raw, "=")
		if !ok || strings.TrimSpace(k) == "" {
			return nil, fmt.Errorf("invalid --param %q, want key=value", raw)
		}
		out[strings.TrimSpace(k)] = v
	}
	return out, nil
}

func newAssembler(cfg config.Config) *request.Assembler {
	return request.New(
		request.WithStrictSchemes(cfg.StrictSchemes),
		request.WithEAPI(cfg.EnableEAPI),
		request.WithDefaultUserAgent(cfg.UserAgent),
	)
}

// newLogger writes to the configured audit file, or to w when fallback is
// set. Without either, events are dropped.
func newLogger(cfg config.Config, w io.Writer, fallback bool) (*logging.AuditLogger, error) {
	opts := []logging.Option{logging.WithoutStdout()}
	switch {
	case strings.TrimSpace(cfg.AuditLog) != "":
		opts = append(opts, logging.WithFile(cfg.AuditLog))
	case fallback:
		opts = append(opts, logging.WithWriter(w))
	default:
		return logging.Discard(), nil
	}
	return logging.NewAuditLogger("ncmsign", opts...)
}
