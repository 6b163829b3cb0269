// Package batch runs every item of a batch request through the resolver,
// the processing engine and the sink, in isolation from the other items.
package batch

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"image-batch/internal/config"
	"image-batch/internal/domain"
	"image-batch/internal/usecase/sink"

	"github.com/go-playground/validator/v10"
	"github.com/wb-go/wbf/zlog"
	"golang.org/x/sync/errgroup"
)

type Usecase struct {
	resolver    imageResolver
	processor   imageProcessor
	writer      imageWriter
	jobs        jobRepository
	producer    jobProducer
	validate    *validator.Validate
	concurrency int
	maxItems    int
	logger      *zlog.Zerolog
}

// New wires the orchestrator. jobs and producer may be nil when async jobs
// are not deployed.
func New(cfg config.BatchConfig, resolver imageResolver, processor imageProcessor, writer imageWriter, jobs jobRepository, producer jobProducer, logger *zlog.Zerolog) *Usecase {
	concurrency := cfg.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}

	return &Usecase{
		resolver:    resolver,
		processor:   processor,
		writer:      writer,
		jobs:        jobs,
		producer:    producer,
		validate:    newValidator(),
		concurrency: concurrency,
		maxItems:    cfg.MaxItems,
		logger:      logger,
	}
}

// Process validates req and runs every item. Only validation errors are
// returned; item failures are reported in the result.
func (u *Usecase) Process(ctx context.Context, req *domain.BatchRequest, userID string) (*domain.BatchResult, error) {
	if err := u.Validate(req); err != nil {
		return nil, err
	}

	// A client that goes away does not stop items already in flight.
	ctx = context.WithoutCancel(ctx)
	start := time.Now()

	outcomes := make([]domain.ItemOutcome, len(req.ImageIDs))
	var g errgroup.Group
	g.SetLimit(u.concurrency)
	for i, id := range req.ImageIDs {
		g.Go(func() error {
			outcomes[i] = u.processItem(ctx, id, req.Options, userID)
			return nil
		})
	}
	_ = g.Wait()

	res := domain.NewBatchResult(outcomes)
	u.logger.Info().
		Str("user_id", userID).
		Str("action", string(req.Options.Action)).
		Int("total", res.Total).
		Int("processed", res.Processed).
		Int("failed", res.Failed).
		Dur("duration", time.Since(start)).
		Msg("Batch processed")

	return res, nil
}

// Validate checks the request before any item is touched.
func (u *Usecase) Validate(req *domain.BatchRequest) error {
	if req == nil {
		return domain.NewError(domain.KindValidation, "validate", fmt.Errorf("%w: request body is required", domain.ErrValidation))
	}

	if err := u.validate.Struct(req); err != nil {
		return domain.NewError(domain.KindValidation, "validate", fmt.Errorf("%w: %s", domain.ErrValidation, describe(err)))
	}
	if u.maxItems > 0 && len(req.ImageIDs) > u.maxItems {
		return domain.NewError(domain.KindValidation, "validate",
			fmt.Errorf("%w: at most %d imageIds per batch, got %d", domain.ErrValidation, u.maxItems, len(req.ImageIDs)))
	}
	return nil
}

func describe(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := jsonName(fe.Namespace())
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, field+" is required")
		case "min":
			msgs = append(msgs, fmt.Sprintf("%s must be at least %s", field, fe.Param()))
		case "max":
			msgs = append(msgs, fmt.Sprintf("%s must be at most %s", field, fe.Param()))
		case "oneof":
			msgs = append(msgs, fmt.Sprintf("%s must be one of [%s]", field, fe.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s failed %s", field, fe.Tag()))
		}
	}
	return strings.Join(msgs, "; ")
}

// jsonName drops the root struct from a validator namespace, so
// BatchRequest.options.maxWidth becomes options.maxWidth.
func jsonName(namespace string) string {
	if _, rest, ok := strings.Cut(namespace, "."); ok {
		return rest
	}
	return namespace
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func (u *Usecase) processItem(ctx context.Context, id string, opts domain.ProcessOptions, userID string) (outcome domain.ItemOutcome) {
	outcome.ImageID = id
	start := time.Now()

	var ref domain.ImageRef
	defer func() {
		if r := recover(); r != nil {
			u.logger.Error().Interface("panic", r).Str("image_id", id).Msg("Recovered from panic while processing image")
			outcome.Result = nil
			outcome.Err = fmt.Errorf("internal error: %v", r)
		}

		u.writer.Audit(ctx, sink.AuditEntry{
			ImageID: id,
			Ref:     ref,
			UserID:  userID,
			Options: opts,
			Result:  outcome.Result,
			Err:     outcome.Err,
		})

		ev := u.logger.Debug()
		if outcome.Err != nil {
			ev = u.logger.Warn().Err(outcome.Err)
		}
		ev.Str("image_id", id).Dur("duration", time.Since(start)).Msg("Image item finished")
	}()

	ref, err := domain.ParseImageRef(id)
	if err != nil {
		outcome.Err = err
		return outcome
	}

	src, err := u.resolver.Resolve(ctx, ref)
	if err != nil {
		outcome.Err = err
		return outcome
	}

	out, err := u.processor.Process(ctx, src.Data, opts)
	if err != nil {
		outcome.Err = err
		return outcome
	}

	res, err := u.writer.Write(ctx, src, out, opts)
	if err != nil {
		outcome.Err = err
		return outcome
	}

	outcome.Result = res
	return outcome
}
