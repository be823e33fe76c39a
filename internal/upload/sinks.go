package upload

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"
)

// DiskSink writes files below a directory and serves them under a URL prefix.
type DiskSink struct {
	fs           afero.Fs
	publicPrefix string
}

// NewDiskSink roots fs at dir. Tests pass afero.NewMemMapFs().
func NewDiskSink(fs afero.Fs, dir, publicPrefix string) *DiskSink {
	if dir != "" {
		fs = afero.NewBasePathFs(fs, dir)
	}
	return &DiskSink{fs: fs, publicPrefix: strings.TrimRight(publicPrefix, "/")}
}

func (d *DiskSink) Put(_ context.Context, key string, data []byte, _ string) (string, error) {
	clean := filepath.Clean("/" + key)
	if err := d.fs.MkdirAll(filepath.Dir(clean), 0o755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}
	if err := afero.WriteFile(d.fs, clean, data, 0o644); err != nil {
		return "", fmt.Errorf("write upload: %w", err)
	}
	return d.publicPrefix + path.Clean("/"+key), nil
}

// FS exposes the sink's filesystem for serving.
func (d *DiskSink) FS() afero.Fs { return d.fs }

// CDNSink posts files to a remote image endpoint that answers {"url": "..."}.
type CDNSink struct {
	endpoint string
	apiKey   string
	client   *http.Client
}

func NewCDNSink(endpoint, apiKey string) *CDNSink {
	return &CDNSink{endpoint: endpoint, apiKey: apiKey, client: &http.Client{Timeout: 30 * time.Second}}
}

func (c *CDNSink) Put(ctx context.Context, key string, data []byte, mimeType string) (string, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	_ = mw.WriteField("key", key)
	_ = mw.WriteField("contentType", mimeType)
	fw, err := mw.CreateFormFile("file", path.Base(key))
	if err != nil {
		return "", err
	}
	if _, err := fw.Write(data); err != nil {
		return "", err
	}
	if err := mw.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("cdn returned %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	var out struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode cdn response: %w", err)
	}
	if out.URL == "" {
		return "", fmt.Errorf("cdn response has no url")
	}
	return out.URL, nil
}
