// Package stage uploads exported files to cloud object storage that backs a
// Snowflake external stage. The internal (PUT) stager lives in the snowflake
// package.
package stage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/cuderbk/adw-elt-pipeline/internal/domain"
)

// Kind selects the stage implementation.
type Kind string

const (
	KindInternal Kind = "internal"
	KindS3       Kind = "s3"
	KindGCS      Kind = "gcs"
	KindAzure    Kind = "azure"
)

// ParseKind validates a stage kind name. Empty means KindInternal.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case "":
		return KindInternal, nil
	case KindInternal, KindS3, KindGCS, KindAzure:
		return k, nil
	}
	return "", domain.ErrValidation("unknown stage kind %q: use internal, s3, gcs or azure", s)
}

// Options configures an external stager.
type Options struct {
	Kind Kind
	// URL is the storage location the Snowflake external stage points at,
	// e.g. s3://bucket/staging, gs://bucket/staging, az://container/staging.
	URL string
	// StageRef is the external stage as referenced in COPY, e.g. @DB.SCH.ext_stage.
	StageRef string
	// Prefix is an optional sub-path under the stage for this run's files.
	Prefix string

	S3Region     string
	S3Endpoint   string
	S3KeyID      string
	S3Secret     string
	GCSKeyFile   string
	AzureKey     string
	AzureAccount string
}

// uploader writes one object to a bucket or container.
type uploader interface {
	upload(ctx context.Context, bucket, key string, f *os.File, size int64) error
}

// objectStager is the shared Stage implementation over an uploader.
type objectStager struct {
	up       uploader
	bucket   string
	root     string
	stageRef string
	prefix   string
}

// Stage uploads the file to <root>/<prefix>/<file> and returns it relative to
// the stage: <prefix>/<file>.
func (s *objectStager) Stage(ctx context.Context, file *domain.ExportedFile) (*domain.StagedObject, error) {
	f, err := os.Open(file.Path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", file.Path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", file.Path, err)
	}

	name := ObjectName(s.prefix, file.Path)
	key := path.Join(s.root, name)
	if err := s.up.upload(ctx, s.bucket, key, f, info.Size()); err != nil {
		return nil, fmt.Errorf("upload %s: %w", key, err)
	}
	return &domain.StagedObject{Stage: s.stageRef, Name: name}, nil
}

// ObjectName returns a file's name relative to the stage root.
func ObjectName(prefix, localPath string) string {
	base := filepath.Base(localPath)
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return base
	}
	return path.Join(prefix, base)
}

// New creates the external stager selected by opts.Kind.
func New(ctx context.Context, opts Options) (domain.Stager, error) {
	if !strings.HasPrefix(opts.StageRef, "@") {
		return nil, domain.ErrValidation("external stage reference %q must start with @", opts.StageRef)
	}
	switch opts.Kind {
	case KindS3:
		return NewS3Stager(ctx, opts)
	case KindGCS:
		return NewGCSStager(ctx, opts)
	case KindAzure:
		return NewAzureStager(opts)
	default:
		return nil, domain.ErrValidation("stage kind %q is not an external stage", opts.Kind)
	}
}

// copyTo copies f into w and closes w. Used by uploaders with streaming writers.
func copyTo(w io.WriteCloser, f *os.File) error {
	if _, err := io.Copy(w, f); err != nil {
		_ = w.Close()
		return err
	}
	return w.Close()
}
