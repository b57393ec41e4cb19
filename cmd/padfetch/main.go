package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/keithlinneman/padfetch"
	"github.com/keithlinneman/padfetch/internal/cfg"
	"github.com/keithlinneman/padfetch/internal/log"
	"github.com/keithlinneman/padfetch/internal/otelx"
	v "github.com/keithlinneman/padfetch/internal/version"
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	vi := v.Get()

	var conf cfg.App
	var showVersion bool

	// Parse config from flags and env
	cfg.Register(flag.CommandLine, &conf)
	flag.BoolVar(&showVersion, "V", false, "Print version+build information and exit")
	flag.Parse()

	if showVersion {
		fmt.Printf(
			"%s %s (commit=%s, commit_date=%s, build_id=%s, build_date=%s, go=%s, dirty=%v)\n",
			vi.AppName, vi.Version, vi.Commit, vi.CommitDate, vi.BuildId, vi.BuildDate, vi.GoVersion,
			vi.VCSDirty != nil && *vi.VCSDirty,
		)
		return 0
	}

	// Fill in config from environment variables with prefix PADFETCH_ and validate
	cfg.FillFromEnv(flag.CommandLine, "PADFETCH_", func(format string, args ...any) {
		fmt.Fprintf(os.Stderr, format+"\n", args...)
	})

	if err := cfg.Validate(conf); err != nil {
		fmt.Fprintln(os.Stderr, "config error:", err)
		return 1
	}

	if flag.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "usage: %s [flags] URL\n", vi.AppName)
		flag.PrintDefaults()
		return 1
	}
	url := flag.Arg(0)

	// Setup logging
	lvl, _ := log.ParseLevel(conf.LogLevel)
	lg, err := log.New(log.Options{
		App:        vi.AppName,
		Version:    vi.Version,
		Level:      lvl,
		JsonFormat: conf.LogJSON,
		Writer:     os.Stderr,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger init error:", err)
		return 1
	}
	defer lg.Sync()
	L := lg.With("component", "cli")
	ctx = log.WithContext(ctx, L)

	// Setup otel for tracing
	// Insecure is true because we only ever write to a local collector
	shutdownOTEL, err := otelx.Init(ctx, otelx.Options{
		Enabled:  conf.EnableTracing,
		Endpoint: conf.OTLPEndpoint,
		Insecure: true,
		Sample:   conf.TraceSample,
		Service:  vi.AppName,
		Version:  vi.Version,
	})
	if err != nil {
		L.Error(ctx, err, "otel init failed")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownOTEL(shutdownCtx)
	}()

	timeout := time.Duration(conf.TimeoutMS) * time.Millisecond
	if conf.TimeoutMS == 0 {
		timeout = -1
	}
	client := padfetch.NewClient(padfetch.Options{
		Logger:        L,
		Timeout:       timeout,
		MaxRedirects:  conf.MaxRedirects,
		MaxBytes:      conf.MaxBytes,
		RatePerSecond: conf.Rate,
		Burst:         conf.Burst,
	})

	if conf.SizeOnly {
		size := client.PayloadSize(ctx, url)
		fmt.Println(size)
		return 0
	}

	buf, err := client.Load(ctx, url)
	if err != nil {
		L.Error(ctx, err, "transfer failed", "url", url)
		fmt.Fprintln(os.Stderr, "error:", err)
		return 2
	}

	out := os.Stdout
	if conf.OutPath != "" {
		f, err := os.Create(conf.OutPath)
		if err != nil {
			L.Error(ctx, err, "create output file", "path", conf.OutPath)
			fmt.Fprintln(os.Stderr, "error:", err)
			return 1
		}
		defer f.Close()
		out = f
	}
	if _, err := out.Write(buf.Bytes()); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return 1
	}
	return 0
}
