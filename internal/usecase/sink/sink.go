// Package sink writes processed images back to their origin and keeps the
// metadata audit trail.
package sink

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"image-batch/internal/domain"
	"image-batch/internal/htmlimg"
	repoImage "image-batch/internal/repository/image"
	"image-batch/internal/usecase/resolver"

	"github.com/google/uuid"
	"github.com/wb-go/wbf/zlog"
)

// DefaultConflictRetries bounds re-reads after a content version conflict.
const DefaultConflictRetries = 3

type Writer struct {
	wp       mediaUploader
	contents contentRepository
	audits   auditRepository
	archive  fileRepository
	locks    *keyedMutex
	retries  int
	logger   *zlog.Zerolog
}

// NewWriter builds a sink. archive may be nil, in which case locally
// processed WordPress output is only reported.
func NewWriter(wp mediaUploader, contents contentRepository, audits auditRepository, archive fileRepository, logger *zlog.Zerolog) *Writer {
	return &Writer{
		wp:       wp,
		contents: contents,
		audits:   audits,
		archive:  archive,
		locks:    newKeyedMutex(),
		retries:  DefaultConflictRetries,
		logger:   logger,
	}
}

// Write persists out for src and returns the per-item result. WordPress
// publish failures degrade to processed_locally; content persistence
// failures are KindSink errors.
func (w *Writer) Write(ctx context.Context, src *resolver.Source, out *domain.ProcessedImage, opts domain.ProcessOptions) (*domain.ItemResult, error) {
	if src == nil || out == nil {
		return nil, domain.NewError(domain.KindSink, "write", errors.New("nothing to write"))
	}

	res := &domain.ItemResult{
		ImageID:  src.Ref.String(),
		Format:   out.Format,
		MimeType: out.MimeType,
		Width:    out.Width,
		Height:   out.Height,
		Size:     out.Size(),
	}

	switch {
	case src.Content != nil:
		if err := w.writeContent(ctx, src, out, res); err != nil {
			return nil, domain.Wrap(domain.KindSink, "write content "+src.Content.ID, err)
		}
	case src.Website != nil:
		w.writeWordpress(ctx, src, out, opts, res)
	default:
		return nil, domain.NewError(domain.KindSink, "write", fmt.Errorf("no sink for %s", res.ImageID))
	}

	if len(out.Notes) > 0 {
		notes := out.Notes
		if res.Message != "" {
			notes = append([]string{res.Message}, notes...)
		}
		res.Message = strings.Join(notes, "; ")
	}

	return res, nil
}

func (w *Writer) writeWordpress(ctx context.Context, src *resolver.Source, out *domain.ProcessedImage, opts domain.ProcessOptions, res *domain.ItemResult) {
	site := src.Website
	filename := outputFilename(src.Filename, out.Format)

	switch {
	case opts.Action == domain.ActionStrip:
		res.Message = "strip is applied locally only"
	case !site.HasCredentials():
		res.Message = domain.ErrMissingCredentials.Error()
	default:
		media, err := w.wp.Upload(ctx, site, filename, out.MimeType, out.Data)
		if err == nil {
			res.Status = domain.ItemPublished
			res.MediaID = media.ID
			res.URL = media.SourceURL
			w.logger.Info().
				Str("image_id", res.ImageID).
				Str("website_id", site.ID).
				Int("media_id", media.ID).
				Msg("Uploaded processed image")
			return
		}

		w.logger.Warn().Err(err).
			Str("image_id", res.ImageID).
			Str("website_id", site.ID).
			Msg("Upload failed, keeping processed image locally")
		res.Message = fmt.Sprintf("%v: %v", domain.ErrUploadFailed, err)
	}

	res.Status = domain.ItemProcessedLocally
	res.ArchiveKey = w.archiveLocal(ctx, site.ID, filename, out)
}

// archiveLocal stores output that was not published. Archive failures are
// logged and leave the key empty.
func (w *Writer) archiveLocal(ctx context.Context, websiteID, filename string, out *domain.ProcessedImage) string {
	if w.archive == nil {
		return ""
	}

	key := path.Join(domain.ArchivePrefix, websiteID, uuid.New().String()+"-"+filename)
	stored, err := w.archive.SaveProcessed(ctx, key, out.Data, out.MimeType)
	if err != nil {
		w.logger.Error().Err(err).Str("key", key).Msg("Failed to archive processed image")
		return ""
	}
	return stored
}

func (w *Writer) writeContent(ctx context.Context, src *resolver.Source, out *domain.ProcessedImage, res *domain.ItemResult) error {
	ref, ok := src.Ref.(domain.ContentRef)
	if !ok {
		return fmt.Errorf("content sink needs a content reference, got %T", src.Ref)
	}

	unlock := w.locks.Lock(ref.ContentID)
	defer unlock()

	dataURI := htmlimg.EncodeDataURI(out.MimeType, out.Data)
	content, tag := src.Content, src.Tag

	for attempt := 0; ; attempt++ {
		if attempt > 0 {
			var err error
			content, tag, err = w.reload(ctx, ref, src.Tag.Src)
			if err != nil {
				return err
			}
		}

		body, err := htmlimg.ReplaceSrc(content.Body, tag, dataURI)
		if errors.Is(err, htmlimg.ErrTagChanged) && attempt < w.retries {
			continue
		}
		if err != nil {
			return fmt.Errorf("%w: %v", domain.ErrImageChanged, err)
		}

		version, err := w.contents.UpdateBody(ctx, ref.ContentID, body, content.Version)
		switch {
		case err == nil:
			res.Status = domain.ItemUpdated
			res.Message = fmt.Sprintf("content version %d", version)
			w.logger.Info().
				Str("image_id", res.ImageID).
				Str("content_id", ref.ContentID).
				Int("version", version).
				Msg("Updated content body")
			return nil
		case errors.Is(err, repoImage.ErrVersionConflict) && attempt < w.retries:
			w.logger.Debug().
				Str("content_id", ref.ContentID).
				Int("attempt", attempt+1).
				Msg("Content version conflict, re-reading")
			continue
		case errors.Is(err, repoImage.ErrVersionConflict), errors.Is(err, repoImage.ErrContentNotFound):
			return err
		default:
			return fmt.Errorf("%w: %v", domain.ErrPersistFailed, err)
		}
	}
}

// reload re-reads the content and checks that the addressed image is still
// the one that was transformed.
func (w *Writer) reload(ctx context.Context, ref domain.ContentRef, wantSrc string) (*domain.Content, htmlimg.Tag, error) {
	content, err := w.contents.GetByID(ctx, ref.ContentID)
	if err != nil {
		return nil, htmlimg.Tag{}, fmt.Errorf("failed to reload content: %w", err)
	}

	tag, ok := htmlimg.Nth(content.Body, ref.Index)
	if !ok {
		return nil, htmlimg.Tag{}, fmt.Errorf("%w: index %d", domain.ErrImageChanged, ref.Index)
	}
	if tag.Src != wantSrc {
		return nil, htmlimg.Tag{}, fmt.Errorf("%w: index %d now points elsewhere", domain.ErrImageChanged, ref.Index)
	}
	return content, tag, nil
}

func outputFilename(name string, format domain.ImageFormat) string {
	if name == "" {
		name = "image"
	}
	return strings.TrimSuffix(name, path.Ext(name)) + format.Extension()
}

// AuditEntry describes one finished item for the audit trail.
type AuditEntry struct {
	ImageID string
	Ref     domain.ImageRef
	UserID  string
	Options domain.ProcessOptions
	Result  *domain.ItemResult
	Err     error
}

// Audit records entry. Failures are logged and never change the item outcome.
func (w *Writer) Audit(ctx context.Context, entry AuditEntry) {
	audit := &domain.MetadataAudit{
		ImageID:   entry.ImageID,
		UserID:    entry.UserID,
		Action:    entry.Options.Action,
		Success:   entry.Err == nil,
		CreatedAt: time.Now(),
	}

	switch ref := entry.Ref.(type) {
	case domain.WordpressMediaRef:
		audit.WebsiteID = ref.WebsiteID
	case domain.WordpressPostRef:
		audit.WebsiteID = ref.WebsiteID
	case domain.ContentRef:
		audit.ContentID = ref.ContentID
	}

	switch {
	case entry.Err != nil:
		audit.Message = entry.Err.Error()
	case entry.Result != nil:
		audit.Message = string(entry.Result.Status)
		if entry.Result.Message != "" {
			audit.Message += ": " + entry.Result.Message
		}
	}

	if options, err := json.Marshal(entry.Options); err == nil {
		audit.Options = options
	}

	if err := w.audits.Save(ctx, audit); err != nil {
		w.logger.Error().Err(err).Str("image_id", entry.ImageID).Msg("Failed to save metadata audit")
	}
}
