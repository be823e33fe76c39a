// Package upload validates uploaded images and hands them to a storage sink.
package upload

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"regexp"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	_ "golang.org/x/image/webp"
)

const DefaultMaxBytes = 5 << 20

var (
	ErrTooLarge    = errors.New("file too large")
	ErrUnsupported = errors.New("only JPEG, PNG and WebP images are allowed")
	ErrEmpty       = errors.New("no file uploaded")
	// ErrUpstream wraps sink failures.
	ErrUpstream = errors.New("image storage failed")
)

var allowed = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

// Result describes a stored image.
type Result struct {
	URL      string `json:"url"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
	Size     int64  `json:"size"`
	MimeType string `json:"mimeType"`
}

// Sink persists an accepted file and returns its public URL.
type Sink interface {
	Put(ctx context.Context, key string, data []byte, mimeType string) (string, error)
}

type Service struct {
	sink     Sink
	maxBytes int64
}

func NewService(sink Sink, maxBytes int64) *Service {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &Service{sink: sink, maxBytes: maxBytes}
}

func (s *Service) MaxBytes() int64 { return s.maxBytes }

var folderRe = regexp.MustCompile(`[^a-z0-9_-]+`)

// Folder normalizes a caller-supplied folder name.
func Folder(name string) string {
	f := folderRe.ReplaceAllString(strings.ToLower(strings.TrimSpace(name)), "")
	if f == "" {
		return "images"
	}
	return f
}

// Image reads r, checks the sniffed type and size, decodes the dimensions and
// stores the file under folder.
func (s *Service) Image(ctx context.Context, r io.Reader, folder string) (*Result, error) {
	data, err := io.ReadAll(io.LimitReader(r, s.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if len(data) == 0 {
		return nil, ErrEmpty
	}
	if int64(len(data)) > s.maxBytes {
		return nil, ErrTooLarge
	}
	mt := mimetype.Detect(data)
	ext, ok := allowed[mt.String()]
	if !ok {
		return nil, ErrUnsupported
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupported, err)
	}

	key := Folder(folder) + "/" + uuid.NewString() + ext
	url, err := s.sink.Put(ctx, key, data, mt.String())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	return &Result{
		URL:      url,
		Width:    cfg.Width,
		Height:   cfg.Height,
		Size:     int64(len(data)),
		MimeType: mt.String(),
	}, nil
}
