package export

import (
	"context"
	"fmt"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/specialistvlad/shakegrid/internal/ctxlog"
)

// Uploader PUTs exported files to `{BaseURL}/{file name}`, e.g. a bucket
// prefix or a pre-signed endpoint.
type Uploader struct {
	BaseURL string
	Client  *http.Client
}

// NewUploader creates an uploader with the default HTTP client.
func NewUploader(baseURL string) *Uploader {
	return &Uploader{BaseURL: strings.TrimRight(baseURL, "/"), Client: http.DefaultClient}
}

// Upload sends every file and returns the URLs written.
func (u *Uploader) Upload(ctx context.Context, paths []string) ([]string, error) {
	urls := make([]string, 0, len(paths))
	for _, path := range paths {
		target := u.BaseURL + "/" + url.PathEscape(filepath.Base(path))
		if err := u.put(ctx, path, target); err != nil {
			return urls, err
		}
		urls = append(urls, target)
	}
	return urls, nil
}

func (u *Uploader) put(ctx context.Context, path, target string) error {
	logger := ctxlog.FromContext(ctx).With("action", "upload")

	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open source file '%s': %w", path, err)
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return fmt.Errorf("failed to get file stats for '%s': %w", path, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, target, file)
	if err != nil {
		return fmt.Errorf("failed to create upload request: %w", err)
	}
	contentType := mime.TypeByExtension(filepath.Ext(path))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	req.Header.Set("Content-Type", contentType)
	req.ContentLength = stat.Size()

	logger.Debug("Uploading file.", "source", path, "target", target, "size", stat.Size())

	resp, err := u.Client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute upload request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("upload of '%s' failed with status: %s", filepath.Base(path), resp.Status)
	}
	return nil
}
