package stage

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"

	"github.com/cuderbk/adw-elt-pipeline/internal/domain"
)

// azureUploader uploads block blobs with a shared-key client.
type azureUploader struct {
	client *azblob.Client
}

func (u *azureUploader) upload(ctx context.Context, container, key string, f *os.File, _ int64) error {
	_, err := u.client.UploadFile(ctx, container, key, f, nil)
	return err
}

// NewAzureStager creates a stager backed by Azure Blob Storage. Only
// account-key authentication is supported.
func NewAzureStager(opts Options) (domain.Stager, error) {
	if opts.AzureAccount == "" || opts.AzureKey == "" {
		return nil, domain.ErrValidation("azure stage requires an account name and key")
	}
	container, root, err := parseAzurePath(opts.URL)
	if err != nil {
		return nil, err
	}

	cred, err := azblob.NewSharedKeyCredential(opts.AzureAccount, opts.AzureKey)
	if err != nil {
		return nil, fmt.Errorf("create shared key credential: %w", err)
	}
	serviceURL := fmt.Sprintf("https://%s.blob.core.windows.net", opts.AzureAccount)
	client, err := azblob.NewClientWithSharedKeyCredential(serviceURL, cred, nil)
	if err != nil {
		return nil, fmt.Errorf("create Azure blob client: %w", err)
	}

	return &objectStager{
		up:       &azureUploader{client: client},
		bucket:   container,
		root:     root,
		stageRef: opts.StageRef,
		prefix:   opts.Prefix,
	}, nil
}

// parseAzurePath extracts container and path prefix from an Azure storage URI.
//
// Supported formats:
//
//	azure://account.blob.core.windows.net/container/path
//	https://account.blob.core.windows.net/container/path
//	az://container/path
func parseAzurePath(path string) (container, key string, err error) {
	u, err := url.Parse(path)
	if err != nil {
		return "", "", fmt.Errorf("parse Azure path %q: %w", path, err)
	}

	switch u.Scheme {
	case "az":
		container = u.Host
		key = strings.Trim(u.Path, "/")

	case "azure", "https":
		if !strings.Contains(u.Host, ".blob.core.windows.net") {
			return "", "", fmt.Errorf("unrecognized Azure host %q in path %q", u.Host, path)
		}
		parts := strings.SplitN(strings.Trim(u.Path, "/"), "/", 2)
		container = parts[0]
		if len(parts) > 1 {
			key = parts[1]
		}

	default:
		return "", "", fmt.Errorf("unrecognized Azure path scheme %q in %q", u.Scheme, path)
	}

	if container == "" {
		return "", "", fmt.Errorf("empty container in Azure path %q", path)
	}
	return container, key, nil
}
