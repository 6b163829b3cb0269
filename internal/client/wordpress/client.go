// Package wordpress is a minimal WordPress REST API client covering the media
// and post endpoints plus plain image downloads.
package wordpress

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"image-batch/internal/config"
	"image-batch/internal/domain"

	"github.com/go-resty/resty/v2"
)

var (
	ErrNotFound      = errors.New("wordpress resource not found")
	ErrUnexpected    = errors.New("unexpected wordpress response")
	ErrTooLarge      = errors.New("download exceeds size limit")
	ErrEmptyDownload = errors.New("download returned no data")
)

const apiPrefix = "/wp-json/wp/v2"

type Media struct {
	ID        int    `json:"id"`
	SourceURL string `json:"source_url"`
	MimeType  string `json:"mime_type"`
	Link      string `json:"link"`
	Title     struct {
		Rendered string `json:"rendered"`
	} `json:"title"`
}

type Post struct {
	ID            int `json:"id"`
	FeaturedMedia int `json:"featured_media"`
	Content       struct {
		Rendered string `json:"rendered"`
	} `json:"content"`
	Embedded struct {
		FeaturedMedia []Media `json:"wp:featuredmedia"`
	} `json:"_embedded"`
}

// FeaturedURL returns the embedded featured image source, if any.
func (p *Post) FeaturedURL() string {
	for _, m := range p.Embedded.FeaturedMedia {
		if m.SourceURL != "" {
			return m.SourceURL
		}
	}
	return ""
}

type Download struct {
	Data        []byte
	ContentType string
}

type Client struct {
	http     *resty.Client
	maxBytes int64
}

func NewClient(cfg config.WordPressConfig) *Client {
	c := resty.New().
		SetTimeout(cfg.Timeout).
		SetRetryCount(cfg.Retries).
		SetRetryWaitTime(cfg.RetryWait).
		SetHeader("User-Agent", cfg.UserAgent).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if r == nil || r.Request == nil || r.Request.Method != http.MethodGet {
				return false
			}
			return r.StatusCode() == http.StatusTooManyRequests || r.StatusCode() >= http.StatusInternalServerError
		})

	return &Client{http: c, maxBytes: cfg.MaxDownloadBytes}
}

func (c *Client) request(ctx context.Context, site *domain.Website) *resty.Request {
	req := c.http.R().SetContext(ctx)
	if site.HasCredentials() {
		req.SetBasicAuth(site.Username, site.AppPassword)
	}
	return req
}

func endpoint(site *domain.Website, path string) string {
	return strings.TrimRight(site.URL, "/") + apiPrefix + path
}

func (c *Client) GetMedia(ctx context.Context, site *domain.Website, id int) (*Media, error) {
	var media Media
	resp, err := c.request(ctx, site).
		SetResult(&media).
		Get(endpoint(site, "/media/"+strconv.Itoa(id)))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch media %d: %w", id, err)
	}
	if err := checkStatus(resp); err != nil {
		return nil, fmt.Errorf("media %d: %w", id, err)
	}
	return &media, nil
}

// GetPost fetches a post with embedded resources so the featured image URL
// is available without a second call.
func (c *Client) GetPost(ctx context.Context, site *domain.Website, id int) (*Post, error) {
	var post Post
	resp, err := c.request(ctx, site).
		SetQueryParam("_embed", "1").
		SetResult(&post).
		Get(endpoint(site, "/posts/"+strconv.Itoa(id)))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch post %d: %w", id, err)
	}
	if err := checkStatus(resp); err != nil {
		return nil, fmt.Errorf("post %d: %w", id, err)
	}
	return &post, nil
}

// Upload creates a new media library item from data.
func (c *Client) Upload(ctx context.Context, site *domain.Website, filename, contentType string, data []byte) (*Media, error) {
	var media Media
	resp, err := c.request(ctx, site).
		SetHeader("Content-Type", contentType).
		SetHeader("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename})).
		SetBody(data).
		SetResult(&media).
		Post(endpoint(site, "/media"))
	if err != nil {
		return nil, fmt.Errorf("failed to upload media: %w", err)
	}
	if err := checkStatus(resp); err != nil {
		return nil, fmt.Errorf("upload %s: %w", filename, err)
	}
	if media.ID == 0 {
		return nil, fmt.Errorf("upload %s: %w: no media id in response", filename, ErrUnexpected)
	}
	return &media, nil
}

// Download fetches an arbitrary URL, refusing bodies above the configured
// size limit.
func (c *Client) Download(ctx context.Context, url string) (*Download, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		Get(url)
	if err != nil {
		return nil, fmt.Errorf("failed to download %s: %w", url, err)
	}
	body := resp.RawBody()
	defer body.Close()

	if err := checkStatus(resp); err != nil {
		return nil, fmt.Errorf("download %s: %w", url, err)
	}

	data, err := io.ReadAll(io.LimitReader(body, c.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", url, err)
	}
	if int64(len(data)) > c.maxBytes {
		return nil, fmt.Errorf("download %s: %w (%d bytes)", url, ErrTooLarge, c.maxBytes)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("download %s: %w", url, ErrEmptyDownload)
	}

	return &Download{Data: data, ContentType: resp.Header().Get("Content-Type")}, nil
}

func checkStatus(resp *resty.Response) error {
	switch {
	case resp.StatusCode() == http.StatusNotFound, resp.StatusCode() == http.StatusGone:
		return ErrNotFound
	case resp.IsError():
		return fmt.Errorf("%w: status %d", ErrUnexpected, resp.StatusCode())
	}
	return nil
}
