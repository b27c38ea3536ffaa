package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/RowanDark/ncmsign/internal/bridge"
	"github.com/RowanDark/ncmsign/internal/config"
	"github.com/RowanDark/ncmsign/internal/journal"
	"github.com/RowanDark/ncmsign/internal/transport"
)

func runServe(cfg config.Config, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(stderr)
	addr := fs.String("addr", cfg.ListenAddr, "listen address")
	strict := fs.Bool("strict", cfg.StrictSchemes, "fail on schemes that produce no body")
	eapi := fs.Bool("eapi", cfg.EnableEAPI, "encrypt eapi routes")
	enableSend := fs.Bool("send", true, "expose POST /send")
	journalPath := fs.String("journal", cfg.JournalPath, "sqlite journal for signed and sent requests")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	cfg.StrictSchemes = *strict
	cfg.EnableEAPI = *eapi

	logger, err := newLogger(cfg, stdout, true)
	if err != nil {
		fmt.Fprintf(stderr, "audit log: %v\n", err)
		return 1
	}
	defer logger.Close()

	bcfg := bridge.Config{
		Addr:          *addr,
		Assembler:     newAssembler(cfg),
		Logger:        logger,
		DefaultCookie: cfg.Cookie,
	}
	if *enableSend {
		client, err := transport.New(append([]transport.Option{
			transport.WithTimeout(cfg.Timeout),
			transport.WithBrowserFingerprint(cfg.Fingerprint),
		}, transportOptions...)...)
		if err != nil {
			fmt.Fprintf(stderr, "transport: %v\n", err)
			return 1
		}
		defer client.CloseIdleConnections()
		bcfg.Client = client
	}
	if strings.TrimSpace(*journalPath) != "" {
		store, err := journal.Open(*journalPath)
		if err != nil {
			fmt.Fprintf(stderr, "journal: %v\n", err)
			return 1
		}
		defer store.Close()
		bcfg.Journal = store
	}

	srv, err := bridge.NewServer(bcfg)
	if err != nil {
		fmt.Fprintf(stderr, "bridge: %v\n", err)
		return 1
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := srv.Run(ctx); err != nil {
		fmt.Fprintf(stderr, "serve: %v\n", err)
		return 1
	}
	return 0
}
