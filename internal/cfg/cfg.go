package cfg

import (
	"errors"
	"flag"
	"fmt"
	"net"
	"os"
	"strings"

	"github.com/keithlinneman/padfetch/internal/log"
)

type App struct {
	LogJSON       bool
	LogLevel      string
	SizeOnly      bool
	OutPath       string
	TimeoutMS     int
	MaxRedirects  int
	MaxBytes      int64
	Rate          float64
	Burst         int
	EnableTracing bool
	OTLPEndpoint  string
	TraceSample   float64
}

// Register binds all config fields to the given FlagSet with defaults inline
func Register(fs *flag.FlagSet, c *App) {
	fs.BoolVar(&c.LogJSON, "log-json", false, "JSON logs (true) or logfmt (false)")
	fs.StringVar(&c.LogLevel, "log-level", "warn", "debug|info|warn|error")
	fs.BoolVar(&c.SizeOnly, "size", false, "Probe the payload size instead of downloading it")
	fs.StringVar(&c.OutPath, "o", "", "Write the payload to this file instead of stdout")
	fs.IntVar(&c.TimeoutMS, "timeout-ms", 15000, "overall transfer timeout in milliseconds (0 = none)")
	fs.IntVar(&c.MaxRedirects, "max-redirects", 10, "maximum redirect hops before the transfer fails")
	fs.Int64Var(&c.MaxBytes, "max-bytes", 0, "maximum payload size in bytes (0 = unlimited)")
	fs.Float64Var(&c.Rate, "rate", 0, "request rate limit per second (0 = unlimited)")
	fs.IntVar(&c.Burst, "burst", 1, "request rate limit burst (used with -rate)")
	fs.BoolVar(&c.EnableTracing, "enable-tracing", false, "Enable OTLP tracing and push to otlp-endpoint")
	fs.StringVar(&c.OTLPEndpoint, "otlp-endpoint", "", "OTLP endpoint to push to (gRPC) (host:port)")
	fs.Float64Var(&c.TraceSample, "trace-sample", 0.0, "trace sampling ratio (0..1)")
}

// FillFromEnv sets any flag not explicitly passed on the CLI from
// environment variables. Flag "foo-bar" maps to PREFIX_FOO_BAR.
// Precedence: cli flag > env var > default.
func FillFromEnv(fs *flag.FlagSet, prefix string, logf func(string, ...any)) {
	explicit := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { explicit[f.Name] = true })

	fs.VisitAll(func(f *flag.Flag) {
		key := prefix + strings.ReplaceAll(strings.ToUpper(f.Name), "-", "_")
		envVal, envSet := os.LookupEnv(key)
		if !envSet {
			return
		}
		if explicit[f.Name] {
			if logf != nil {
				logf("flag -%s: cli value %q overrides env %s=%q", f.Name, f.Value.String(), key, envVal)
			}
			return
		}
		prev := f.Value.String()
		if err := fs.Set(f.Name, envVal); err != nil {
			fs.Set(f.Name, prev)
			if logf != nil {
				logf("flag -%s: ignoring invalid env %s=%q: %v", f.Name, key, envVal, err)
			}
		}
	})
}

// Validate checks that config values are within expected ranges and formats.
// Returns an error describing all invalid fields, or nil if all valid.
func Validate(c App) error {
	var errs []error

	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("invalid LOG_LEVEL %q: %w", c.LogLevel, err))
	}

	if c.TimeoutMS < 0 {
		errs = append(errs, fmt.Errorf("invalid TIMEOUT_MS %d (must be >= 0)", c.TimeoutMS))
	}
	if c.MaxRedirects < 0 {
		errs = append(errs, fmt.Errorf("invalid MAX_REDIRECTS %d (must be >= 0)", c.MaxRedirects))
	}
	if c.MaxBytes < 0 {
		errs = append(errs, fmt.Errorf("invalid MAX_BYTES %d (must be >= 0)", c.MaxBytes))
	}

	if c.Rate < 0 {
		errs = append(errs, fmt.Errorf("invalid RATE %.3f (must be >= 0)", c.Rate))
	}
	if c.Rate > 0 && c.Burst < 1 {
		errs = append(errs, fmt.Errorf("BURST must be >= 1 when RATE is set (got %d)", c.Burst))
	}

	// Tracing sample
	if c.TraceSample < 0 || c.TraceSample > 1 {
		errs = append(errs, fmt.Errorf("invalid TRACE_SAMPLE %.3f (must be 0..1)", c.TraceSample))
	}

	// OTLP tracing (grpc exporter wants host:port, no scheme)
	if c.EnableTracing {
		if c.OTLPEndpoint == "" {
			errs = append(errs, fmt.Errorf("OTLP_ENDPOINT required when ENABLE_TRACING=true"))
		} else if _, _, err := net.SplitHostPort(c.OTLPEndpoint); err != nil {
			errs = append(errs, fmt.Errorf("OTLP_ENDPOINT must be host:port (got %q): %v", c.OTLPEndpoint, err))
		}
	}

	// probing and writing the payload are mutually exclusive
	if c.SizeOnly && c.OutPath != "" {
		errs = append(errs, fmt.Errorf("-size and -o are mutually exclusive"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}
