package stage

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/cuderbk/adw-elt-pipeline/internal/domain"
)

// gcsUploader streams objects through a storage.Writer.
type gcsUploader struct {
	client *storage.Client
}

func (u *gcsUploader) upload(ctx context.Context, bucket, key string, f *os.File, _ int64) error {
	w := u.client.Bucket(bucket).Object(key).NewWriter(ctx)
	w.ContentType = "application/vnd.apache.parquet"
	return copyTo(w, f)
}

// NewGCSStager creates a stager backed by Google Cloud Storage. GCSKeyFile
// names a service account key; when empty, application default credentials apply.
func NewGCSStager(ctx context.Context, opts Options) (domain.Stager, error) {
	bucket, root, err := parseGCSPath(opts.URL)
	if err != nil {
		return nil, err
	}

	var clientOpts []option.ClientOption
	if opts.GCSKeyFile != "" {
		clientOpts = append(clientOpts, option.WithAuthCredentialsFile(option.ServiceAccount, opts.GCSKeyFile))
	}
	client, err := storage.NewClient(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("create GCS client: %w", err)
	}

	return &objectStager{
		up:       &gcsUploader{client: client},
		bucket:   bucket,
		root:     root,
		stageRef: opts.StageRef,
		prefix:   opts.Prefix,
	}, nil
}

// parseGCSPath extracts bucket and key prefix from a "gs://bucket/path" URI.
// "gcs://" is accepted as Snowflake writes it.
func parseGCSPath(path string) (bucket, key string, err error) {
	u, err := url.Parse(path)
	if err != nil {
		return "", "", fmt.Errorf("parse GCS path %q: %w", path, err)
	}
	if u.Scheme != "gs" && u.Scheme != "gcs" {
		return "", "", fmt.Errorf("expected gs:// scheme, got %q in %q", u.Scheme, path)
	}
	if u.Host == "" {
		return "", "", fmt.Errorf("empty bucket in GCS path %q", path)
	}
	return u.Host, strings.Trim(u.Path, "/"), nil
}
