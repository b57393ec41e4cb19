package padfetch

import (
	"context"
	"io"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/keithlinneman/padfetch/internal/xerrors"
	"github.com/keithlinneman/padfetch/padbuf"
)

// S3API is the slice of the S3 client used here, extracted so tests can
// substitute a fake.
type S3API interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// s3state lazily initializes the S3 client from the default AWS config
// the first time an s3:// URL is loaded, unless one was injected.
type s3state struct {
	once    sync.Once
	client  S3API
	initErr error
}

func (s *s3state) get(ctx context.Context) (S3API, error) {
	s.once.Do(func() {
		if s.client != nil {
			return
		}
		awsCfg, err := config.LoadDefaultConfig(ctx)
		if err != nil {
			s.initErr = xerrors.Wrap(err, "load AWS config")
			return
		}
		s.client = s3.NewFromConfig(awsCfg)
	})
	if s.initErr != nil {
		return nil, s.initErr
	}
	return s.client, nil
}

// parseS3URL splits s3://bucket/key into its parts.
func parseS3URL(url string) (bucket, key string, err error) {
	rest := strings.TrimPrefix(url, "s3://")
	bucket, key, ok := strings.Cut(rest, "/")
	if !ok || bucket == "" || key == "" {
		return "", "", xerrors.Newf("invalid s3 url %q (want s3://bucket/key)", url)
	}
	return bucket, key, nil
}

func (c *Client) loadS3(ctx context.Context, url string) (*padbuf.Buffer, error) {
	bucket, key, err := parseS3URL(url)
	if err != nil {
		return nil, err
	}

	if err := c.wait(ctx); err != nil {
		return nil, err
	}

	client, err := c.s3.get(ctx)
	if err != nil {
		return nil, err
	}

	out, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, xerrors.Wrapf(err, "get s3 object s3://%s/%s", bucket, key)
	}
	defer out.Body.Close()

	builder := padbuf.Builder{Limit: int(c.maxBytes)}
	if _, err := io.Copy(&builder, out.Body); err != nil {
		return nil, xerrors.Wrapf(err, "load s3://%s/%s", bucket, key)
	}
	return builder.Build(), nil
}
