package domain

import (
	"fmt"
	"strconv"
	"strings"
)

type SourceKind string

const (
	SourceWordpress SourceKind = "wp"
	SourceContent   SourceKind = "content"
)

// ImageRef is a parsed image identifier. The concrete type alone decides
// which resolver and sink branch applies.
type ImageRef interface {
	Kind() SourceKind
	String() string
	imageRef()
}

// WordpressMediaRef addresses an attachment in a site's media library.
type WordpressMediaRef struct {
	WebsiteID string
	MediaID   int
}

// WordpressPostRef addresses either the featured image of a post or the
// Index-th inline <img> of its rendered content.
type WordpressPostRef struct {
	WebsiteID string
	PostID    int
	Featured  bool
	Index     int
}

// ContentRef addresses the Index-th <img> of a locally stored content body.
type ContentRef struct {
	ContentID string
	Index     int
}

func (WordpressMediaRef) Kind() SourceKind { return SourceWordpress }
func (WordpressPostRef) Kind() SourceKind  { return SourceWordpress }
func (ContentRef) Kind() SourceKind        { return SourceContent }

func (WordpressMediaRef) imageRef() {}
func (WordpressPostRef) imageRef()  {}
func (ContentRef) imageRef()        {}

func (r WordpressMediaRef) String() string {
	return fmt.Sprintf("wp_media_%s_%d", r.WebsiteID, r.MediaID)
}

func (r WordpressPostRef) String() string {
	if r.Featured {
		return fmt.Sprintf("wp_post_%s_%d_featured", r.WebsiteID, r.PostID)
	}
	return fmt.Sprintf("wp_post_%s_%d_content_%d", r.WebsiteID, r.PostID, r.Index)
}

func (r ContentRef) String() string {
	return fmt.Sprintf("content_%s_%d", r.ContentID, r.Index)
}

// ParseImageRef decodes the identifier conventions
//
//	wp_media_<websiteId>_<mediaId>
//	wp_post_<websiteId>_<postId>_featured
//	wp_post_<websiteId>_<postId>_content_<index>
//	content_<contentId>_<index>
//
// Fields are taken from the right so website and content ids may contain '_'.
func ParseImageRef(id string) (ImageRef, error) {
	switch {
	case strings.HasPrefix(id, "wp_media_"):
		rest := strings.TrimPrefix(id, "wp_media_")
		site, last, ok := cutLast(rest)
		if !ok {
			return nil, invalidRef(id, "expected wp_media_<website>_<media>")
		}
		mediaID, err := positiveInt(last)
		if err != nil {
			return nil, invalidRef(id, "media id must be a positive integer")
		}
		return WordpressMediaRef{WebsiteID: site, MediaID: mediaID}, nil

	case strings.HasPrefix(id, "wp_post_"):
		rest := strings.TrimPrefix(id, "wp_post_")
		ref := WordpressPostRef{}
		if trimmed, ok := strings.CutSuffix(rest, "_featured"); ok {
			ref.Featured = true
			rest = trimmed
		} else {
			head, idx, ok := cutLast(rest)
			if !ok {
				return nil, invalidRef(id, "expected _featured or _content_<index> suffix")
			}
			head, ok = strings.CutSuffix(head, "_content")
			if !ok {
				return nil, invalidRef(id, "expected _featured or _content_<index> suffix")
			}
			index, err := nonNegativeInt(idx)
			if err != nil {
				return nil, invalidRef(id, "image index must be a non-negative integer")
			}
			ref.Index = index
			rest = head
		}
		site, last, ok := cutLast(rest)
		if !ok {
			return nil, invalidRef(id, "expected wp_post_<website>_<post>_...")
		}
		postID, err := positiveInt(last)
		if err != nil {
			return nil, invalidRef(id, "post id must be a positive integer")
		}
		ref.WebsiteID = site
		ref.PostID = postID
		return ref, nil

	case strings.HasPrefix(id, "content_"):
		rest := strings.TrimPrefix(id, "content_")
		contentID, last, ok := cutLast(rest)
		if !ok {
			return nil, invalidRef(id, "expected content_<content>_<index>")
		}
		index, err := nonNegativeInt(last)
		if err != nil {
			return nil, invalidRef(id, "image index must be a non-negative integer")
		}
		return ContentRef{ContentID: contentID, Index: index}, nil
	}

	return nil, invalidRef(id, "unknown source prefix")
}

func cutLast(s string) (head, last string, ok bool) {
	i := strings.LastIndexByte(s, '_')
	if i <= 0 || i == len(s)-1 {
		return "", "", false
	}
	return s[:i], s[i+1:], true
}

func positiveInt(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	if n <= 0 {
		return 0, fmt.Errorf("%d is not positive", n)
	}
	return n, nil
}

func nonNegativeInt(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, fmt.Errorf("%d is negative", n)
	}
	return n, nil
}

func invalidRef(id, reason string) error {
	return NewError(KindSource, "parse image id", fmt.Errorf("%w %q: %s", ErrInvalidImageID, id, reason))
}
