package upload

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestImageToDisk(t *testing.T) {
	fs := afero.NewMemMapFs()
	svc := NewService(NewDiskSink(fs, "/srv/uploads", "/uploads"), 0)

	res, err := svc.Image(context.Background(), bytes.NewReader(pngBytes(t, 40, 30)), "Posters!")
	require.NoError(t, err)
	assert.Equal(t, 40, res.Width)
	assert.Equal(t, 30, res.Height)
	assert.Equal(t, "image/png", res.MimeType)
	assert.True(t, strings.HasPrefix(res.URL, "/uploads/posters/"), res.URL)
	assert.True(t, strings.HasSuffix(res.URL, ".png"))

	ok, err := afero.Exists(fs, "/srv/uploads"+strings.TrimPrefix(res.URL, "/uploads"))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestImageRejects(t *testing.T) {
	svc := NewService(NewDiskSink(afero.NewMemMapFs(), "", "/uploads"), 1024)
	ctx := context.Background()

	_, err := svc.Image(ctx, strings.NewReader("just some text pretending to be a jpeg"), "")
	assert.ErrorIs(t, err, ErrUnsupported)

	_, err = svc.Image(ctx, bytes.NewReader(nil), "")
	assert.ErrorIs(t, err, ErrEmpty)

	big := bytes.Repeat([]byte{0}, 2048)
	_, err = svc.Image(ctx, bytes.NewReader(big), "")
	assert.ErrorIs(t, err, ErrTooLarge)

	gif := []byte("GIF89a\x01\x00\x01\x00\x80\x00\x00\x00\x00\x00\xff\xff\xff!\xf9\x04\x00\x00\x00\x00\x00,\x00\x00\x00\x00\x01\x00\x01\x00\x00\x02\x02D\x01\x00;")
	_, err = svc.Image(ctx, bytes.NewReader(gif), "")
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestFolder(t *testing.T) {
	assert.Equal(t, "images", Folder(""))
	assert.Equal(t, "images", Folder("../.."))
	assert.Equal(t, "series-art", Folder(" Series-Art "))
}

func TestCDNSink(t *testing.T) {
	var gotAuth, gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, r.ParseMultipartForm(1<<20))
		gotKey = r.FormValue("key")
		_ = json.NewEncoder(w).Encode(map[string]string{"url": "https://cdn.example.com/" + gotKey})
	}))
	defer srv.Close()

	svc := NewService(NewCDNSink(srv.URL, "cdn-key"), 0)
	res, err := svc.Image(context.Background(), bytes.NewReader(pngBytes(t, 2, 2)), "avatars")
	require.NoError(t, err)
	assert.Equal(t, "Bearer cdn-key", gotAuth)
	assert.True(t, strings.HasPrefix(gotKey, "avatars/"))
	assert.Equal(t, "https://cdn.example.com/"+gotKey, res.URL)
}

func TestCDNSinkFailureIsUpstream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	svc := NewService(NewCDNSink(srv.URL, "k"), 0)
	_, err := svc.Image(context.Background(), bytes.NewReader(pngBytes(t, 2, 2)), "")
	assert.ErrorIs(t, err, ErrUpstream)
}
