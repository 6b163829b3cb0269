// Package resolver turns a parsed image reference into source bytes.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path"

	"image-batch/internal/client/wordpress"
	"image-batch/internal/domain"
	"image-batch/internal/htmlimg"
	repoImage "image-batch/internal/repository/image"

	"github.com/wb-go/wbf/zlog"
)

// Source is a resolved image together with what the sink needs to write the
// result back to where it came from.
type Source struct {
	Ref         domain.ImageRef
	Data        []byte
	ContentType string
	URL         string
	// Filename is used for uploads; derived from the source URL when possible.
	Filename string

	Website *domain.Website
	Content *domain.Content
	Tag     htmlimg.Tag
}

type Resolver struct {
	websites websiteRepository
	contents contentRepository
	wp       wordpressClient
	logger   *zlog.Zerolog
}

func New(websites websiteRepository, contents contentRepository, wp wordpressClient, logger *zlog.Zerolog) *Resolver {
	return &Resolver{
		websites: websites,
		contents: contents,
		wp:       wp,
		logger:   logger,
	}
}

// Resolve fetches the bytes for ref. Every error is a KindSource domain
// error wrapping one of the source sentinels.
func (r *Resolver) Resolve(ctx context.Context, ref domain.ImageRef) (*Source, error) {
	if ref == nil {
		return nil, domain.NewError(domain.KindSource, "resolve", domain.ErrInvalidImageID)
	}

	var (
		src *Source
		err error
	)

	switch ref := ref.(type) {
	case domain.WordpressMediaRef:
		src, err = r.resolveMedia(ctx, ref)
	case domain.WordpressPostRef:
		src, err = r.resolvePost(ctx, ref)
	case domain.ContentRef:
		src, err = r.resolveContent(ctx, ref)
	default:
		err = fmt.Errorf("%w: unsupported reference %T", domain.ErrInvalidImageID, ref)
	}

	if err != nil {
		r.logger.Debug().Err(err).Str("image_id", ref.String()).Msg("Failed to resolve image")
		return nil, domain.Wrap(domain.KindSource, "resolve "+ref.String(), err)
	}
	src.Ref = ref
	return src, nil
}

func (r *Resolver) website(ctx context.Context, id string) (*domain.Website, error) {
	site, err := r.websites.GetByID(ctx, id)
	if errors.Is(err, repoImage.ErrWebsiteNotFound) {
		return nil, fmt.Errorf("%w: %s", domain.ErrWebsiteNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load website %s: %w", id, err)
	}
	return site, nil
}

func (r *Resolver) resolveMedia(ctx context.Context, ref domain.WordpressMediaRef) (*Source, error) {
	site, err := r.website(ctx, ref.WebsiteID)
	if err != nil {
		return nil, err
	}

	media, err := r.wp.GetMedia(ctx, site, ref.MediaID)
	if errors.Is(err, wordpress.ErrNotFound) {
		return nil, fmt.Errorf("%w: %d on website %s", domain.ErrMediaNotFound, ref.MediaID, site.ID)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrFetchFailed, err)
	}
	if media.SourceURL == "" {
		return nil, fmt.Errorf("%w: media %d has no source_url", domain.ErrMediaNotFound, ref.MediaID)
	}

	src, err := r.download(ctx, media.SourceURL)
	if err != nil {
		return nil, err
	}
	src.Website = site
	return src, nil
}

func (r *Resolver) resolvePost(ctx context.Context, ref domain.WordpressPostRef) (*Source, error) {
	site, err := r.website(ctx, ref.WebsiteID)
	if err != nil {
		return nil, err
	}

	post, err := r.wp.GetPost(ctx, site, ref.PostID)
	if errors.Is(err, wordpress.ErrNotFound) {
		return nil, fmt.Errorf("%w: %d on website %s", domain.ErrPostNotFound, ref.PostID, site.ID)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrFetchFailed, err)
	}

	var src *Source
	if ref.Featured {
		src, err = r.featured(ctx, site, post)
	} else {
		src, err = r.inline(ctx, site.URL, post.Content.Rendered, ref.Index)
	}
	if err != nil {
		return nil, err
	}
	src.Website = site
	return src, nil
}

// featured prefers the embedded media and falls back to a media lookup when
// the site does not embed it.
func (r *Resolver) featured(ctx context.Context, site *domain.Website, post *wordpress.Post) (*Source, error) {
	if u := post.FeaturedURL(); u != "" {
		return r.download(ctx, u)
	}
	if post.FeaturedMedia == 0 {
		return nil, fmt.Errorf("%w: post %d has no featured image", domain.ErrMediaNotFound, post.ID)
	}

	media, err := r.wp.GetMedia(ctx, site, post.FeaturedMedia)
	if errors.Is(err, wordpress.ErrNotFound) || (err == nil && media.SourceURL == "") {
		return nil, fmt.Errorf("%w: featured media %d of post %d", domain.ErrMediaNotFound, post.FeaturedMedia, post.ID)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrFetchFailed, err)
	}
	return r.download(ctx, media.SourceURL)
}

func (r *Resolver) inline(ctx context.Context, base, body string, index int) (*Source, error) {
	tag, ok := htmlimg.Nth(body, index)
	if !ok {
		return nil, fmt.Errorf("%w: index %d", domain.ErrImageIndexOutOfRange, index)
	}

	src, err := r.fromSrc(ctx, base, tag.Src)
	if err != nil {
		return nil, err
	}
	src.Tag = tag
	return src, nil
}

func (r *Resolver) resolveContent(ctx context.Context, ref domain.ContentRef) (*Source, error) {
	content, err := r.contents.GetByID(ctx, ref.ContentID)
	if errors.Is(err, repoImage.ErrContentNotFound) {
		return nil, fmt.Errorf("%w: %s", domain.ErrContentNotFound, ref.ContentID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load content %s: %w", ref.ContentID, err)
	}

	src, err := r.inline(ctx, "", content.Body, ref.Index)
	if err != nil {
		return nil, err
	}
	src.Content = content
	return src, nil
}

// fromSrc handles both embedded data URIs and URLs. Relative URLs are
// resolved against base when one is known.
func (r *Resolver) fromSrc(ctx context.Context, base, src string) (*Source, error) {
	if htmlimg.IsDataURI(src) {
		mimeType, data, err := htmlimg.DecodeDataURI(src)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrFetchFailed, err)
		}
		return &Source{Data: data, ContentType: mimeType, Filename: "image"}, nil
	}

	target, err := absoluteURL(base, src)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrFetchFailed, err)
	}
	return r.download(ctx, target)
}

func (r *Resolver) download(ctx context.Context, rawURL string) (*Source, error) {
	d, err := r.wp.Download(ctx, rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrFetchFailed, err)
	}
	return &Source{
		Data:        d.Data,
		ContentType: d.ContentType,
		URL:         rawURL,
		Filename:    filenameFromURL(rawURL),
	}, nil
}

func absoluteURL(base, src string) (string, error) {
	u, err := url.Parse(src)
	if err != nil {
		return "", fmt.Errorf("invalid image url %q: %w", src, err)
	}
	if u.IsAbs() {
		return u.String(), nil
	}
	if base == "" {
		return "", fmt.Errorf("relative image url %q without a base", src)
	}
	b, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid base url %q: %w", base, err)
	}
	return b.ResolveReference(u).String(), nil
}

func filenameFromURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "image"
	}
	name := path.Base(u.Path)
	if name == "." || name == "/" || name == "" {
		return "image"
	}
	return name
}
