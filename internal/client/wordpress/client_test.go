package wordpress

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"image-batch/internal/config"
	"image-batch/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() config.WordPressConfig {
	return config.WordPressConfig{
		Timeout:          5 * time.Second,
		Retries:          2,
		RetryWait:        time.Millisecond,
		MaxDownloadBytes: 1024,
		UserAgent:        "image-batch-test",
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestGetMedia(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/wp-json/wp/v2/media/55":
			user, pass, ok := r.BasicAuth()
			assert.True(t, ok)
			assert.Equal(t, "admin", user)
			assert.Equal(t, "app pass", pass)
			assert.Equal(t, "image-batch-test", r.UserAgent())
			writeJSON(w, http.StatusOK, map[string]any{"id": 55, "source_url": "https://cdn/x.jpg", "mime_type": "image/jpeg"})
		default:
			writeJSON(w, http.StatusNotFound, map[string]any{"code": "rest_post_invalid_id"})
		}
	}))
	defer server.Close()

	c := NewClient(testConfig())
	site := &domain.Website{ID: "w1", URL: server.URL + "/", Username: "admin", AppPassword: "app pass"}

	media, err := c.GetMedia(context.Background(), site, 55)
	require.NoError(t, err)
	assert.Equal(t, 55, media.ID)
	assert.Equal(t, "https://cdn/x.jpg", media.SourceURL)

	_, err = c.GetMedia(context.Background(), site, 999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetPostEmbedsFeaturedMedia(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/wp-json/wp/v2/posts/10", r.URL.Path)
		assert.True(t, r.URL.Query().Has("_embed"))
		writeJSON(w, http.StatusOK, map[string]any{
			"id":             10,
			"featured_media": 3,
			"content":        map[string]any{"rendered": `<p><img src="https://cdn/in.png"></p>`},
			"_embedded": map[string]any{
				"wp:featuredmedia": []map[string]any{{"id": 3, "source_url": "https://cdn/feat.jpg"}},
			},
		})
	}))
	defer server.Close()

	post, err := NewClient(testConfig()).GetPost(context.Background(), &domain.Website{URL: server.URL}, 10)
	require.NoError(t, err)
	assert.Equal(t, "https://cdn/feat.jpg", post.FeaturedURL())
	assert.Contains(t, post.Content.Rendered, "in.png")
}

func TestGetRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"id": 1, "source_url": "u"})
	}))
	defer server.Close()

	media, err := NewClient(testConfig()).GetMedia(context.Background(), &domain.Website{URL: server.URL}, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, media.ID)
	assert.EqualValues(t, 3, calls.Load())
}

func TestUpload(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/wp-json/wp/v2/media", r.URL.Path)
		assert.Equal(t, "image/png", r.Header.Get("Content-Type"))
		assert.Equal(t, `attachment; filename=photo.png`, r.Header.Get("Content-Disposition"))

		body, _ := io.ReadAll(r.Body)
		if string(body) == "fail" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		assert.Equal(t, "png-bytes", string(body))
		writeJSON(w, http.StatusCreated, map[string]any{"id": 77, "source_url": "https://site/photo.png"})
	}))
	defer server.Close()

	c := NewClient(testConfig())
	site := &domain.Website{URL: server.URL, Username: "u", AppPassword: "p"}

	media, err := c.Upload(context.Background(), site, "photo.png", "image/png", []byte("png-bytes"))
	require.NoError(t, err)
	assert.Equal(t, 77, media.ID)

	// Uploads are never retried on server errors.
	calls.Store(0)
	_, err = c.Upload(context.Background(), site, "photo.png", "image/png", []byte("fail"))
	assert.ErrorIs(t, err, ErrUnexpected)
	assert.EqualValues(t, 1, calls.Load())
}

func TestDownload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok.jpg":
			w.Header().Set("Content-Type", "image/jpeg")
			_, _ = w.Write([]byte("jpeg-data"))
		case "/big.jpg":
			_, _ = w.Write(make([]byte, 2048))
		case "/empty.jpg":
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	c := NewClient(testConfig())

	d, err := c.Download(context.Background(), server.URL+"/ok.jpg")
	require.NoError(t, err)
	assert.Equal(t, []byte("jpeg-data"), d.Data)
	assert.Equal(t, "image/jpeg", d.ContentType)

	_, err = c.Download(context.Background(), server.URL+"/big.jpg")
	assert.ErrorIs(t, err, ErrTooLarge)

	_, err = c.Download(context.Background(), server.URL+"/empty.jpg")
	assert.ErrorIs(t, err, ErrEmptyDownload)

	_, err = c.Download(context.Background(), server.URL+"/missing.jpg")
	assert.ErrorIs(t, err, ErrNotFound)
}
