package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"

	"server/internal/domain"
	"server/internal/metrics"
	"server/internal/pipeline"
)

// FeeService resolves operation fees.
type FeeService interface {
	Amount(ctx context.Context, op domain.ServiceOperation) (string, error)
}

// CaptionOptionService fans out caption variations.
type CaptionOptionService interface {
	CaptionOptions(ctx context.Context, prompt string, count int) ([]string, error)
}

// StorageVerifier checks artifact existence on the storage network.
type StorageVerifier interface {
	Verify(ctx context.Context, rootHash string) bool
}

// Runner drives generation and remix workflows.
type Runner interface {
	Run(ctx context.Context, req pipeline.Request) (*pipeline.Result, error)
	RunRemix(ctx context.Context, payer domain.PayerContext, sourceID int64, image []byte, newCaption string, confirmed bool) (*pipeline.Result, error)
}

// RegistryActions covers the direct state mutations on existing memes.
type RegistryActions interface {
	Like(ctx context.Context, payer domain.PayerContext, id int64) error
	Tip(ctx context.Context, payer domain.PayerContext, id int64, amountWei string) error
}

// App is the handler container wired by cmd/api.
type App struct {
	Logger   zerolog.Logger
	Memes    domain.MemeRepository
	Pipeline Runner
	Captions CaptionOptionService
	Storage  StorageVerifier
	Fees     FeeService
	Registry RegistryActions
	Metrics  *metrics.Set
	ChainID  int64
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// checkChain rejects requests whose stated chain id does not match the
// chain this deployment serves. Zero ChainID disables the check.
func (a *App) checkChain(w http.ResponseWriter, payer domain.PayerContext) bool {
	if a.ChainID != 0 && payer.ChainID != a.ChainID {
		a.domainError(w, fmt.Errorf("%w: expected chain %d, got %d", domain.ErrWrongNetwork, a.ChainID, payer.ChainID))
		return false
	}
	return true
}

func (a *App) error(w http.ResponseWriter, code int, kind, message string) {
	a.json(w, code, map[string]any{
		"success": false,
		"error":   kind,
		"message": message,
	})
}

// domainError maps service errors onto HTTP status codes and stable error
// kinds, so transport details never leak to callers.
func (a *App) domainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotConnected):
		a.error(w, http.StatusBadRequest, "not_connected", err.Error())
	case errors.Is(err, domain.ErrWrongNetwork):
		a.error(w, http.StatusBadRequest, "wrong_network", err.Error())
	case errors.Is(err, domain.ErrUnknownOperation):
		a.error(w, http.StatusBadRequest, "unknown_operation", err.Error())
	case errors.Is(err, domain.ErrRecordNotFound):
		a.error(w, http.StatusNotFound, "record_not_found", err.Error())
	case errors.Is(err, domain.ErrPaymentReverted):
		a.error(w, http.StatusPaymentRequired, "payment_reverted", err.Error())
	case errors.Is(err, domain.ErrRegistrationReverted):
		a.error(w, http.StatusBadGateway, "registration_reverted", err.Error())
	case errors.Is(err, domain.ErrAllOptionsFailed):
		a.error(w, http.StatusBadGateway, "all_options_failed", err.Error())
	case errors.Is(err, domain.ErrNoContentReturned):
		a.error(w, http.StatusBadGateway, "no_content_returned", err.Error())
	case errors.Is(err, domain.ErrProviderUnavailable),
		errors.Is(err, domain.ErrServiceUnavailable):
		a.error(w, http.StatusBadGateway, "provider_unavailable", err.Error())
	case errors.Is(err, domain.ErrTreeComputationFailed),
		errors.Is(err, domain.ErrUploadFailed):
		a.error(w, http.StatusBadGateway, "upload_failed", err.Error())
	default:
		var payErr *domain.PaymentError
		if errors.As(err, &payErr) {
			a.error(w, http.StatusPaymentRequired, "payment_failed_"+string(payErr.Reason), payErr.Error())
			return
		}
		a.error(w, http.StatusInternalServerError, "internal", err.Error())
	}
}

// pipelineError renders a terminal pipeline failure with the stage it
// occurred at and whether the fee was already spent.
func (a *App) pipelineError(w http.ResponseWriter, res *pipeline.Result, err error) {
	var stageErr *pipeline.StageError
	if !errors.As(err, &stageErr) {
		a.domainError(w, err)
		return
	}
	body := map[string]any{
		"success":       false,
		"stage":         string(stageErr.Stage),
		"payment_spent": stageErr.PaymentSpent,
		"message":       stageErr.Err.Error(),
	}
	if stageErr.Payment != nil {
		body["payment"] = paymentView(stageErr.Payment)
	}
	code := http.StatusBadGateway
	switch {
	case errors.Is(err, pipeline.ErrCostNotConfirmed):
		code = http.StatusBadRequest
	case errors.Is(err, domain.ErrNotConnected), errors.Is(err, domain.ErrWrongNetwork), errors.Is(err, domain.ErrUnknownOperation):
		code = http.StatusBadRequest
	case errors.Is(err, domain.ErrRecordNotFound):
		code = http.StatusNotFound
	default:
		var payErr *domain.PaymentError
		if errors.As(err, &payErr) || errors.Is(err, domain.ErrPaymentReverted) {
			code = http.StatusPaymentRequired
		}
	}
	if errors.Is(err, domain.ErrRegistrationUnverified) && res != nil && res.Meme != nil {
		// The registration tx is on chain; the id just could not be read
		// back yet. The row is kept for the reconciliation worker.
		code = http.StatusAccepted
		body["meme"] = memeView(*res.Meme)
	}
	a.json(w, code, body)
}

func paymentView(p *domain.PaymentReceipt) map[string]any {
	return map[string]any{
		"operation":    string(p.Operation),
		"payer":        p.Payer,
		"amount_wei":   p.Amount,
		"tx_ref":       p.TxRef,
		"payment_id":   p.PaymentID,
		"status":       string(p.Status),
		"submitted_at": p.SubmittedAt,
	}
}

func memeView(m domain.Meme) map[string]any {
	return map[string]any{
		"id":           m.ID,
		"creator":      m.Creator,
		"root_hash":    m.RootHash,
		"metadata_url": m.MetadataURL,
		"caption":      m.Caption,
		"prompt":       m.Prompt,
		"ai_generated": m.AIGenerated,
		"tx_ref":       m.TxRef,
		"status":       string(m.Status),
		"likes":        m.Likes,
		"tips_wei":     m.TipsWei,
		"created_at":   m.CreatedAt,
	}
}
