package stage

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/cuderbk/adw-elt-pipeline/internal/domain"
)

// s3Uploader puts objects with the AWS SDK v2.
type s3Uploader struct {
	client *s3.Client
}

func (u *s3Uploader) upload(ctx context.Context, bucket, key string, f *os.File, size int64) error {
	_, err := u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(bucket),
		Key:           aws.String(key),
		Body:          f,
		ContentLength: aws.Int64(size),
		ContentType:   aws.String("application/vnd.apache.parquet"),
	})
	return err
}

// NewS3Stager creates a stager backed by S3 or an S3-compatible endpoint.
// Static keys are used when S3KeyID is set; otherwise the default AWS
// credential chain applies.
func NewS3Stager(ctx context.Context, opts Options) (domain.Stager, error) {
	bucket, root, err := ParseS3Path(opts.URL)
	if err != nil {
		return nil, err
	}

	var client *s3.Client
	if opts.S3KeyID != "" {
		o := s3.Options{
			Region:      opts.S3Region,
			Credentials: credentials.NewStaticCredentialsProvider(opts.S3KeyID, opts.S3Secret, ""),
		}
		if opts.S3Endpoint != "" {
			o.BaseEndpoint = aws.String(endpointURL(opts.S3Endpoint))
			o.UsePathStyle = true
		}
		client = s3.New(o)
	} else {
		var loadOpts []func(*awsconfig.LoadOptions) error
		if opts.S3Region != "" {
			loadOpts = append(loadOpts, awsconfig.WithRegion(opts.S3Region))
		}
		cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
		if err != nil {
			return nil, fmt.Errorf("load AWS config: %w", err)
		}
		client = s3.NewFromConfig(cfg, func(o *s3.Options) {
			if opts.S3Endpoint != "" {
				o.BaseEndpoint = aws.String(endpointURL(opts.S3Endpoint))
				o.UsePathStyle = true
			}
		})
	}

	return &objectStager{
		up:       &s3Uploader{client: client},
		bucket:   bucket,
		root:     root,
		stageRef: opts.StageRef,
		prefix:   opts.Prefix,
	}, nil
}

func endpointURL(endpoint string) string {
	if strings.HasPrefix(endpoint, "http://") || strings.HasPrefix(endpoint, "https://") {
		return endpoint
	}
	return "https://" + endpoint
}

// ParseS3Path extracts bucket and key prefix from an "s3://bucket/path" URI.
// The path may be empty.
func ParseS3Path(s3Path string) (bucket, key string, err error) {
	u, err := url.Parse(s3Path)
	if err != nil {
		return "", "", fmt.Errorf("parse S3 path %q: %w", s3Path, err)
	}
	if u.Scheme != "s3" {
		return "", "", fmt.Errorf("expected s3:// scheme, got %q in %q", u.Scheme, s3Path)
	}
	if u.Host == "" {
		return "", "", fmt.Errorf("empty bucket in S3 path %q", s3Path)
	}
	return u.Host, strings.Trim(u.Path, "/"), nil
}
