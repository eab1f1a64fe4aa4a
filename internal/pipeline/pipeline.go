package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"server/internal/domain"
	"server/internal/metrics"
	"server/internal/registry"
)

// Stage names the states of one generation workflow.
type Stage string

const (
	StageAwaitingPayment   Stage = "awaiting_payment"
	StagePaying            Stage = "paying"
	StageGenerating        Stage = "generating"
	StageUploadingArtifact Stage = "uploading_artifact"
	StageUploadingMetadata Stage = "uploading_metadata"
	StageRegistering       Stage = "registering"
	StageComplete          Stage = "complete"
	StageFailed            Stage = "failed"
)

// ErrCostNotConfirmed is returned when a run is started without the explicit
// cost confirmation that moves AwaitingPayment to Paying.
var ErrCostNotConfirmed = errors.New("pipeline: cost not confirmed")

// Event is emitted after every state transition so a presentation layer can
// follow the workflow without being coupled to it.
type Event struct {
	Stage  Stage
	At     time.Time
	Detail string
}

// Notifier receives pipeline events. It must not block.
type Notifier func(Event)

// StageError reports a terminal pipeline failure: which stage failed, the
// underlying cause, and whether the fee had already been spent when it did.
type StageError struct {
	Stage        Stage
	Err          error
	PaymentSpent bool
	Payment      *domain.PaymentReceipt
}

func (e *StageError) Error() string {
	spent := "no payment spent"
	if e.PaymentSpent {
		spent = "payment already spent"
	}
	return fmt.Sprintf("pipeline failed at %s (%s): %v", e.Stage, spent, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// PaymentService collects the fee for a service operation.
type PaymentService interface {
	Pay(ctx context.Context, op domain.ServiceOperation, payer domain.PayerContext) (*domain.PaymentReceipt, error)
}

// CaptionService produces a caption for a prompt.
type CaptionService interface {
	Caption(ctx context.Context, prompt string) (*domain.GenerationResult, error)
}

// UploadService persists a blob to content-addressed storage.
type UploadService interface {
	Upload(ctx context.Context, blob domain.ArtifactBlob) (*domain.StorageReceipt, error)
}

// RegisterService writes the durable on-chain record.
type RegisterService interface {
	Register(ctx context.Context, req registry.RegisterRequest) (*domain.Meme, error)
	Remix(ctx context.Context, payer domain.PayerContext, sourceID int64, newRootHash, newCaption string) (*domain.Meme, error)
}

// Options configures a Pipeline.
type Options struct {
	Payments PaymentService
	Captions CaptionService
	Storage  UploadService
	Registry RegisterService
	Logger   zerolog.Logger
	Notifier Notifier
	Metrics  *metrics.Set
	Now      func() time.Time
}

// Pipeline chains payment, generation, storage and registration into one
// sequential workflow per invocation. Independent invocations may run
// concurrently; a single invocation never mutates its state from more than
// one goroutine.
type Pipeline struct {
	payments PaymentService
	captions CaptionService
	storage  UploadService
	registry RegisterService
	logger   zerolog.Logger
	notifier Notifier
	metrics  *metrics.Set
	now      func() time.Time
}

// New builds a pipeline.
func New(opts Options) (*Pipeline, error) {
	if opts.Payments == nil || opts.Captions == nil || opts.Storage == nil || opts.Registry == nil {
		return nil, errors.New("pipeline: payments, captions, storage and registry are all required")
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Pipeline{
		payments: opts.Payments,
		captions: opts.Captions,
		storage:  opts.Storage,
		registry: opts.Registry,
		logger:   opts.Logger,
		notifier: opts.Notifier,
		metrics:  opts.Metrics,
		now:      now,
	}, nil
}

// Request describes one generation run.
type Request struct {
	Payer     domain.PayerContext
	Operation domain.ServiceOperation
	Prompt    string
	// Image, when set, is used as the artifact and the generation stage is
	// skipped entirely.
	Image     []byte
	ImageName string
	// Caption is only consulted when Image is supplied.
	Caption string
	// Confirmed is the explicit user confirmation of cost that moves
	// AwaitingPayment to Paying.
	Confirmed bool
}

// Result is the output of a run. On failure the fields populated before the
// failing stage are still set, so callers can see transaction references.
type Result struct {
	Meme       *domain.Meme
	Payment    *domain.PaymentReceipt
	Generation *domain.GenerationResult
	Artifact   *domain.StorageReceipt
	// Metadata is nil when the metadata upload failed; the run still
	// completes in that case.
	Metadata *domain.StorageReceipt
}

// Run drives one workflow from AwaitingPayment to Complete. Payment, AI
// generation, artifact upload and registration failures are terminal;
// metadata upload is the sole optional stage. A failed payment is never
// retried here: the caller decides whether to spend again.
func (p *Pipeline) Run(ctx context.Context, req Request) (*Result, error) {
	res := &Result{}
	p.emit(StageAwaitingPayment, "")
	if !req.Confirmed {
		return res, p.fail(StageAwaitingPayment, ErrCostNotConfirmed, res, false)
	}

	p.emit(StagePaying, string(req.Operation))
	payStart := time.Now()
	receipt, err := p.payments.Pay(ctx, req.Operation, req.Payer)
	p.observePaymentWait(time.Since(payStart))
	res.Payment = receipt
	if err != nil {
		spent := receipt != nil && receipt.Status == domain.PaymentConfirmed
		return res, p.fail(StagePaying, err, res, spent)
	}
	p.countPayment(receipt.Status)

	caption := req.Caption
	aiGenerated := false
	var artifact domain.ArtifactBlob
	if len(req.Image) > 0 {
		// Caller brought their own artifact; generation is skipped.
		name := req.ImageName
		if name == "" {
			name = "meme.png"
		}
		artifact = domain.ArtifactBlob{Name: name, Data: req.Image}
	} else {
		p.emit(StageGenerating, req.Prompt)
		gen, err := p.captions.Caption(ctx, req.Prompt)
		if err != nil {
			return res, p.fail(StageGenerating, err, res, true)
		}
		res.Generation = gen
		caption = gen.Caption
		aiGenerated = true
		artifact = domain.ArtifactBlob{Name: "meme.svg", Data: renderPlaceholder(gen.Caption, req.Prompt)}
	}

	p.emit(StageUploadingArtifact, artifact.Name)
	artifactReceipt, err := p.storage.Upload(ctx, artifact)
	if err != nil {
		return res, p.fail(StageUploadingArtifact, err, res, true)
	}
	res.Artifact = artifactReceipt

	p.emit(StageUploadingMetadata, artifactReceipt.RootHash)
	locator := artifactReceipt.URL
	metaBlob, err := metadataBlob(req, caption, aiGenerated, artifactReceipt, receipt, p.now().UTC())
	if err == nil {
		metaReceipt, uploadErr := p.storage.Upload(ctx, metaBlob)
		if uploadErr == nil {
			res.Metadata = metaReceipt
			locator = metaReceipt.URL
		} else {
			err = uploadErr
		}
	}
	if err != nil {
		// Metadata is supplementary; the artifact is the user-visible
		// value, so the run continues with only the artifact root.
		p.logger.Warn().Err(err).Str("root_hash", artifactReceipt.RootHash).Msg("pipeline: metadata upload failed, continuing")
		p.count(StageUploadingMetadata, "skipped")
	}

	p.emit(StageRegistering, artifactReceipt.RootHash)
	meme, err := p.registry.Register(ctx, registry.RegisterRequest{
		Payer:       req.Payer,
		RootHash:    artifactReceipt.RootHash,
		MetadataURL: locator,
		Caption:     caption,
		Prompt:      req.Prompt,
		AIGenerated: aiGenerated,
	})
	res.Meme = meme
	p.countRegistration(err)
	if err != nil {
		return res, p.fail(StageRegistering, err, res, true)
	}

	p.emit(StageComplete, meme.TxRef)
	p.count(StageComplete, "ok")
	return res, nil
}

// RunRemix pays the remix fee and registers a derivative of an existing
// meme, reusing the payment-then-register discipline of Run.
func (p *Pipeline) RunRemix(ctx context.Context, payer domain.PayerContext, sourceID int64, image []byte, newCaption string, confirmed bool) (*Result, error) {
	res := &Result{}
	p.emit(StageAwaitingPayment, "")
	if !confirmed {
		return res, p.fail(StageAwaitingPayment, ErrCostNotConfirmed, res, false)
	}

	p.emit(StagePaying, string(domain.OperationRemix))
	payStart := time.Now()
	receipt, err := p.payments.Pay(ctx, domain.OperationRemix, payer)
	p.observePaymentWait(time.Since(payStart))
	res.Payment = receipt
	if err != nil {
		spent := receipt != nil && receipt.Status == domain.PaymentConfirmed
		return res, p.fail(StagePaying, err, res, spent)
	}
	p.countPayment(receipt.Status)

	p.emit(StageUploadingArtifact, "remix")
	artifactReceipt, err := p.storage.Upload(ctx, domain.ArtifactBlob{Name: "remix.png", Data: image})
	if err != nil {
		return res, p.fail(StageUploadingArtifact, err, res, true)
	}
	res.Artifact = artifactReceipt

	p.emit(StageRegistering, artifactReceipt.RootHash)
	meme, err := p.registry.Remix(ctx, payer, sourceID, artifactReceipt.RootHash, newCaption)
	res.Meme = meme
	p.countRegistration(err)
	if err != nil {
		return res, p.fail(StageRegistering, err, res, true)
	}

	p.emit(StageComplete, meme.TxRef)
	p.count(StageComplete, "ok")
	return res, nil
}

func metadataBlob(req Request, caption string, aiGenerated bool, artifact *domain.StorageReceipt, payment *domain.PaymentReceipt, at time.Time) (domain.ArtifactBlob, error) {
	meta := map[string]any{
		"caption":       caption,
		"prompt":        req.Prompt,
		"creator":       req.Payer.Address,
		"created_at":    at.Format(time.RFC3339),
		"artifact_root": artifact.RootHash,
		"artifact_url":  artifact.URL,
		"ai_generated":  aiGenerated,
		"payment_id":    payment.PaymentID,
	}
	data, err := json.Marshal(meta)
	if err != nil {
		return domain.ArtifactBlob{}, fmt.Errorf("pipeline: encode metadata: %w", err)
	}
	return domain.ArtifactBlob{Name: "metadata.json", Data: data}, nil
}

func (p *Pipeline) fail(stage Stage, err error, res *Result, spent bool) error {
	p.count(stage, "failed")
	p.emitEvent(Event{Stage: StageFailed, At: p.now().UTC(), Detail: string(stage)})
	p.logger.Error().Err(err).Str("stage", string(stage)).Bool("payment_spent", spent).Msg("pipeline: terminal failure")
	return &StageError{Stage: stage, Err: err, PaymentSpent: spent, Payment: res.Payment}
}

func (p *Pipeline) emit(stage Stage, detail string) {
	p.count(stage, "entered")
	p.emitEvent(Event{Stage: stage, At: p.now().UTC(), Detail: detail})
}

func (p *Pipeline) emitEvent(ev Event) {
	if p.notifier != nil {
		p.notifier(ev)
	}
}

func (p *Pipeline) count(stage Stage, outcome string) {
	if p.metrics == nil {
		return
	}
	p.metrics.PipelineStages.WithLabelValues(string(stage), outcome).Inc()
}

func (p *Pipeline) countPayment(status domain.PaymentStatus) {
	if p.metrics == nil {
		return
	}
	p.metrics.PaymentOutcomes.WithLabelValues(string(status)).Inc()
}

func (p *Pipeline) observePaymentWait(d time.Duration) {
	if p.metrics == nil {
		return
	}
	p.metrics.PaymentWait.Observe(d.Seconds())
}

func (p *Pipeline) countRegistration(err error) {
	if p.metrics == nil {
		return
	}
	outcome := "ok"
	switch {
	case errors.Is(err, domain.ErrRegistrationUnverified):
		outcome = "unverified"
	case err != nil:
		outcome = "failed"
	}
	p.metrics.RegistryOutcomes.WithLabelValues(outcome).Inc()
}
