package padfetch

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/keithlinneman/padfetch/internal/metrics"
	"github.com/keithlinneman/padfetch/internal/xerrors"
	"github.com/keithlinneman/padfetch/padbuf"
)

var defaultClient = NewClient(Options{})

// GetActualPayloadSize performs a full GET on url and returns the total
// number of body bytes received, following redirects. The bytes are
// counted as they stream in and discarded.
//
// Any failure returns 0: the result cannot distinguish a failed request
// from a genuinely empty resource. This conflation is part of the
// contract; use Client.Load when failures must be observable. The probe
// has no timeout and can block indefinitely on an unresponsive server.
func GetActualPayloadSize(url string) uint64 {
	return defaultClient.PayloadSize(context.Background(), url)
}

// LoadURL downloads url and returns the body in a padded buffer, following
// up to 10 redirect hops with an overall 15 second timeout. On failure the
// error describes the transport-level cause; a partial body is never
// returned as success.
func LoadURL(url string) (*padbuf.Buffer, error) {
	return defaultClient.Load(context.Background(), url)
}

// countWriter tallies bytes delivered by the transport in arrival order
// without retaining them.
type countWriter struct {
	n uint64
}

func (w *countWriter) Write(p []byte) (int, error) {
	w.n += uint64(len(p))
	return len(p), nil
}

// PayloadSize is the context-aware form of GetActualPayloadSize and keeps
// its zero-on-failure contract. The swallowed cause is logged at debug
// level.
func (c *Client) PayloadSize(ctx context.Context, url string) uint64 {
	start := time.Now()
	if c.metrics != nil {
		c.metrics.IncInflight()
		defer c.metrics.DecInflight()
	}

	n, err := c.probe(ctx, url)
	if err != nil {
		if c.metrics != nil {
			c.metrics.ObserveFetch(metrics.OpProbe, metrics.OutcomeError, time.Since(start), 0)
		}
		c.logger.Debug(ctx, "size probe failed, reporting 0", "url", url, "error", err)
		return 0
	}
	if c.metrics != nil {
		c.metrics.ObserveFetch(metrics.OpProbe, metrics.OutcomeOK, time.Since(start), int64(n))
	}
	c.logger.Debug(ctx, "size probe complete", "url", url, "bytes", n)
	return n
}

func (c *Client) probe(ctx context.Context, url string) (uint64, error) {
	if err := c.wait(ctx); err != nil {
		return 0, err
	}

	req, err := newRequest(ctx, url)
	if err != nil {
		return 0, err
	}

	resp, err := c.probeClient.Do(req)
	if err != nil {
		return 0, xerrors.Wrap(err, "probe")
	}
	defer resp.Body.Close()

	var cw countWriter
	if _, err := io.Copy(&cw, resp.Body); err != nil {
		return 0, xerrors.Wrap(err, "read body")
	}
	return cw.n, nil
}

// Load is the context-aware form of LoadURL. It also accepts
// s3://bucket/key URLs, which are fetched through the AWS SDK under the
// same size cap.
func (c *Client) Load(ctx context.Context, url string) (*padbuf.Buffer, error) {
	start := time.Now()
	if c.metrics != nil {
		c.metrics.IncInflight()
		defer c.metrics.DecInflight()
	}

	var (
		buf *padbuf.Buffer
		err error
	)
	if strings.HasPrefix(url, "s3://") {
		buf, err = c.loadS3(ctx, url)
	} else {
		buf, err = c.loadHTTP(ctx, url)
	}

	if err != nil {
		if c.metrics != nil {
			c.metrics.ObserveFetch(metrics.OpLoad, metrics.OutcomeError, time.Since(start), 0)
		}
		c.logger.Debug(ctx, "load failed", "url", url, "error", err)
		return nil, err
	}
	if c.metrics != nil {
		c.metrics.ObserveFetch(metrics.OpLoad, metrics.OutcomeOK, time.Since(start), int64(buf.Len()))
	}
	c.logger.Debug(ctx, "load complete", "url", url, "bytes", buf.Len())
	return buf, nil
}

func (c *Client) loadHTTP(ctx context.Context, url string) (*padbuf.Buffer, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}

	req, err := newRequest(ctx, url)
	if err != nil {
		return nil, err
	}

	resp, err := c.loadClient.Do(req)
	if err != nil {
		return nil, xerrors.Wrap(err, "load")
	}
	defer resp.Body.Close()

	builder := padbuf.Builder{Limit: int(c.maxBytes)}
	if _, err := io.Copy(&builder, resp.Body); err != nil {
		// a builder rejection or a read failure both abort the transfer;
		// either way no partial buffer escapes
		return nil, xerrors.Wrapf(err, "load %s", url)
	}
	return builder.Build(), nil
}

func newRequest(ctx context.Context, url string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, xerrors.Wrap(err, "failed to initialize request")
	}
	return req, nil
}

// wait applies the optional client-side rate limit.
func (c *Client) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return xerrors.Wrap(err, "rate limit")
	}
	return nil
}
