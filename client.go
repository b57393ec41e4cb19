package padfetch

import (
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/time/rate"

	"github.com/keithlinneman/padfetch/internal/log"
	"github.com/keithlinneman/padfetch/internal/metrics"
	"github.com/keithlinneman/padfetch/internal/xerrors"
)

const (
	// DefaultTimeout bounds the whole load transfer: dial, TLS, redirects,
	// and body read. The size probe runs without a timeout.
	DefaultTimeout = 15 * time.Second

	// DefaultMaxRedirects is the hop limit for the load operation. A chain
	// of exactly this many redirects succeeds; one more fails.
	DefaultMaxRedirects = 10
)

// Options configures a Client. The zero value gives the documented
// default transfer policy with no logging, metrics, or rate limiting.
type Options struct {
	Logger  log.Logger
	Metrics *metrics.FetchMetrics

	// Timeout for the load operation. Zero means DefaultTimeout, negative
	// disables the timeout entirely.
	Timeout time.Duration

	// MaxRedirects for the load operation. Zero means DefaultMaxRedirects.
	MaxRedirects int

	// MaxBytes caps the payload size for load. Zero means unlimited. When
	// a transfer exceeds the cap it is aborted mid-flight and surfaces as
	// an error; no partial buffer is returned.
	MaxBytes int64

	// RatePerSecond > 0 enables a client-side limiter shared by all calls
	// on this Client. Burst defaults to 1 when unset.
	RatePerSecond float64
	Burst         int

	// Transport overrides the base RoundTripper (tests, proxies). It is
	// wrapped with otel instrumentation either way.
	Transport http.RoundTripper

	// S3Client overrides the client used for s3:// URLs. When nil one is
	// built from the default AWS config on first use.
	S3Client S3API
}

// Client performs the fetch operations. Safe for concurrent use; each
// call owns its transfer state and no state is shared across calls
// beyond the limiter and the underlying connection pool.
type Client struct {
	probeClient *http.Client
	loadClient  *http.Client
	logger      log.Logger
	metrics     *metrics.FetchMetrics
	limiter     *rate.Limiter
	maxBytes    int64

	s3 s3state
}

// NewClient builds a Client from opts.
func NewClient(opts Options) *Client {
	if opts.Logger == nil {
		opts.Logger = log.Nop()
	}
	if opts.Timeout == 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Timeout < 0 {
		opts.Timeout = 0
	}
	if opts.MaxRedirects == 0 {
		opts.MaxRedirects = DefaultMaxRedirects
	}

	base := opts.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	rt := otelhttp.NewTransport(base)

	maxRedirects := opts.MaxRedirects
	checkRedirect := func(req *http.Request, via []*http.Request) error {
		// via holds the requests already made, so len(via) == maxRedirects
		// is the request for the final permitted hop
		if len(via) > maxRedirects {
			return xerrors.Newf("stopped after %d redirects", maxRedirects)
		}
		return nil
	}

	c := &Client{
		// the probe follows redirects under the transport default policy
		// and deliberately has no timeout; it can block on a slow server
		probeClient: &http.Client{Transport: rt},
		loadClient: &http.Client{
			Transport:     rt,
			Timeout:       opts.Timeout,
			CheckRedirect: checkRedirect,
		},
		logger:   opts.Logger,
		metrics:  opts.Metrics,
		maxBytes: opts.MaxBytes,
	}
	if opts.RatePerSecond > 0 {
		burst := opts.Burst
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(opts.RatePerSecond), burst)
	}
	c.s3.client = opts.S3Client
	return c
}
