package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/RowanDark/ncmsign/internal/cipher"
	"github.com/RowanDark/ncmsign/internal/config"
	"github.com/RowanDark/ncmsign/internal/endpoint"
	"github.com/RowanDark/ncmsign/internal/journal"
	"github.com/RowanDark/ncmsign/internal/scheme"
)

func runEndpoints(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("endpoints", flag.ContinueOnError)
	fs.SetOutput(stderr)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ROUTE\tSCHEME\tDESCRIPTION")
	for _, ep := range endpoint.List() {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", ep.Route, ep.Scheme, ep.Description)
	}
	if err := tw.Flush(); err != nil {
		return 1
	}
	return 0
}

func runHash(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("hash", flag.ContinueOnError)
	fs.SetOutput(stderr)
	alg := fs.String("alg", "md5", "digest: "+strings.Join(cipher.DigestAlgorithms(), ", "))
	enc := fs.String("enc", "hex", "output encoding: hex or base64")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(stderr, "hash takes exactly one TEXT argument")
		return 2
	}
	out, err := cipher.HashEncrypt(fs.Arg(0), *alg, *enc)
	if err != nil {
		fmt.Fprintf(stderr, "hash: %v\n", err)
		return 1
	}
	fmt.Fprintln(stdout, out)
	return 0
}

func runDecode(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("decode", flag.ContinueOnError)
	fs.SetOutput(stderr)
	tag := fs.String("scheme", "", "linuxapi, eapi or weapi")
	body := fs.String("body", "", "form body as produced by sign")
	secret := fs.String("secret", "", "weapi secret key (16 characters)")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	sch, ok := scheme.Parse(*tag)
	if !ok {
		fmt.Fprintf(stderr, "unknown scheme %q\n", *tag)
		return 2
	}
	ctx := context.Background()
	var (
		out any
		err error
	)
	switch sch {
	case scheme.LinuxAPI:
		out, err = scheme.DecodeLinuxAPI(ctx, *body)
	case scheme.EAPI:
		var path string
		var params scheme.Params
		path, params, err = scheme.DecodeEAPI(ctx, *body)
		out = map[string]any{"path": path, "params": params}
	case scheme.WeAPI:
		if *secret == "" {
			fmt.Fprintln(stderr, "--secret is required for weapi")
			return 2
		}
		out, err = scheme.DecodeWeAPI(ctx, *body, *secret)
	default:
		fmt.Fprintf(stderr, "scheme %s has no encrypted body\n", sch)
		return 2
	}
	if err != nil {
		fmt.Fprintf(stderr, "decode: %v\n", err)
		return 1
	}
	enc := json.NewEncoder(stdout)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return 1
	}
	return 0
}

func runHistory(cfg config.Config, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("history", flag.ContinueOnError)
	fs.SetOutput(stderr)
	path := fs.String("journal", cfg.JournalPath, "sqlite journal path")
	route := fs.String("route", "", "only entries for this route")
	since := fs.Duration("since", 0, "only entries newer than this age, e.g. 24h")
	limit := fs.Int("limit", 50, "maximum entries")
	prune := fs.Duration("prune", 0, "delete entries older than this age instead of listing")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if strings.TrimSpace(*path) == "" {
		fmt.Fprintln(stderr, "--journal (or journal_path in config) must be provided")
		return 2
	}
	store, err := journal.Open(*path)
	if err != nil {
		fmt.Fprintf(stderr, "journal: %v\n", err)
		return 1
	}
	defer store.Close()
	ctx := context.Background()

	if *prune > 0 {
		n, err := store.Prune(ctx, time.Now().Add(-*prune))
		if err != nil {
			fmt.Fprintf(stderr, "prune: %v\n", err)
			return 1
		}
		fmt.Fprintf(stdout, "pruned %d entries\n", n)
		return 0
	}

	filter := journal.Filter{Route: *route, Limit: *limit}
	if *since > 0 {
		filter.Since = time.Now().Add(-*since)
	}
	entries, err := store.List(ctx, filter)
	if err != nil {
		fmt.Fprintf(stderr, "history: %v\n", err)
		return 1
	}
	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tROUTE\tSCHEME\tSTATUS\tMS\tERROR")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%s\n", e.CreatedAt.Format(time.RFC3339), e.Route, e.Scheme, e.Status, e.Duration, e.Error)
	}
	if err := tw.Flush(); err != nil {
		return 1
	}
	return 0
}
