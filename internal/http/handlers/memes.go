package handlers

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"server/internal/domain"
	"server/internal/pipeline"
)

type memeCreateRequest struct {
	Creator     string `json:"creator"`
	ChainID     int64  `json:"chain_id"`
	Operation   string `json:"operation"`
	Prompt      string `json:"prompt"`
	Caption     string `json:"caption"`
	ImageBase64 string `json:"image_base64"`
	ImageName   string `json:"image_name"`
	Confirmed   bool   `json:"confirmed"`
}

// MemeCreate runs the full generation workflow: fee payment, caption
// generation (unless an image is supplied), storage upload, metadata
// upload and on-chain registration.
func (a *App) MemeCreate(w http.ResponseWriter, r *http.Request) {
	var req memeCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if req.Prompt == "" && req.ImageBase64 == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "prompt or image is required")
		return
	}
	var image []byte
	if req.ImageBase64 != "" {
		decoded, err := base64.StdEncoding.DecodeString(req.ImageBase64)
		if err != nil {
			a.error(w, http.StatusBadRequest, "bad_request", "image_base64 is not valid base64")
			return
		}
		image = decoded
	}
	op := domain.ServiceOperation(req.Operation)
	if req.Operation == "" {
		op = domain.OperationAIAndStorage
	}

	payer := domain.PayerContext{Address: req.Creator, ChainID: req.ChainID, Connected: req.Creator != ""}
	if !a.checkChain(w, payer) {
		return
	}

	res, err := a.Pipeline.Run(r.Context(), pipeline.Request{
		Payer:     payer,
		Operation: op,
		Prompt:    req.Prompt,
		Image:     image,
		ImageName: req.ImageName,
		Caption:   req.Caption,
		Confirmed: req.Confirmed,
	})
	a.persistAndRespond(w, r, res, err)
}

type memeRemixRequest struct {
	Creator     string `json:"creator"`
	ChainID     int64  `json:"chain_id"`
	Caption     string `json:"caption"`
	ImageBase64 string `json:"image_base64"`
	Confirmed   bool   `json:"confirmed"`
}

// MemeRemix pays the remix fee and registers a derivative meme.
func (a *App) MemeRemix(w http.ResponseWriter, r *http.Request) {
	id, ok := a.pathID(w, r)
	if !ok {
		return
	}
	var req memeRemixRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	image, err := base64.StdEncoding.DecodeString(req.ImageBase64)
	if err != nil || len(image) == 0 {
		a.error(w, http.StatusBadRequest, "bad_request", "image_base64 is required")
		return
	}
	if _, err := a.Memes.Get(r.Context(), id); err != nil {
		a.domainError(w, err)
		return
	}
	payer := domain.PayerContext{Address: req.Creator, ChainID: req.ChainID, Connected: req.Creator != ""}
	if !a.checkChain(w, payer) {
		return
	}
	res, runErr := a.Pipeline.RunRemix(r.Context(), payer, id, image, req.Caption, req.Confirmed)
	a.persistAndRespond(w, r, res, runErr)
}

func (a *App) persistAndRespond(w http.ResponseWriter, r *http.Request, res *pipeline.Result, err error) {
	if res != nil && res.Meme != nil {
		if dbErr := a.Memes.Create(r.Context(), res.Meme); dbErr != nil {
			a.Logger.Error().Err(dbErr).Str("tx_ref", res.Meme.TxRef).Msg("api: persist meme failed")
		}
	}
	if err != nil {
		a.pipelineError(w, res, err)
		return
	}
	body := map[string]any{
		"success": true,
		"meme":    memeView(*res.Meme),
		"payment": paymentView(res.Payment),
		"artifact": map[string]any{
			"root_hash": res.Artifact.RootHash,
			"tx_ref":    res.Artifact.TxRef,
			"url":       res.Artifact.URL,
		},
	}
	if res.Metadata != nil {
		body["metadata"] = map[string]any{
			"root_hash": res.Metadata.RootHash,
			"tx_ref":    res.Metadata.TxRef,
			"url":       res.Metadata.URL,
		}
	}
	if res.Generation != nil {
		body["generation"] = map[string]any{
			"caption":         res.Generation.Caption,
			"provider":        res.Generation.Provider,
			"valid":           res.Generation.Valid,
			"correlation_id":  res.Generation.CorrelationID,
			"settlement_note": res.Generation.SettlementNote,
		}
	}
	a.json(w, http.StatusCreated, body)
}

// MemesList serves the public feed with limit/offset pagination. A creator
// query parameter narrows the page to a single wallet's memes, which backs
// the profile view.
func (a *App) MemesList(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 10)
	if limit < 1 || limit > 100 {
		limit = 10
	}
	offset := queryInt(r, "offset", 0)
	if offset < 0 {
		offset = 0
	}
	var (
		memes []domain.Meme
		err   error
	)
	creator := r.URL.Query().Get("creator")
	if creator != "" {
		memes, err = a.Memes.ListByCreator(r.Context(), creator, limit, offset)
	} else {
		memes, err = a.Memes.List(r.Context(), limit, offset)
	}
	if err != nil {
		a.error(w, http.StatusInternalServerError, "internal", "failed to load memes")
		return
	}
	items := make([]map[string]any, 0, len(memes))
	for _, m := range memes {
		items = append(items, memeView(m))
	}
	body := map[string]any{
		"success": true,
		"memes":   items,
		"pagination": map[string]any{
			"limit":  limit,
			"offset": offset,
		},
	}
	if creator != "" {
		body["creator"] = creator
	}
	a.json(w, http.StatusOK, body)
}

// MemeGet serves a single meme by its on-chain id.
func (a *App) MemeGet(w http.ResponseWriter, r *http.Request) {
	id, ok := a.pathID(w, r)
	if !ok {
		return
	}
	meme, err := a.Memes.Get(r.Context(), id)
	if err != nil {
		a.domainError(w, err)
		return
	}
	a.json(w, http.StatusOK, map[string]any{
		"success": true,
		"meme":    memeView(*meme),
	})
}

// MemeLike records a like on chain and mirrors it on the feed row.
func (a *App) MemeLike(w http.ResponseWriter, r *http.Request) {
	id, ok := a.pathID(w, r)
	if !ok {
		return
	}
	payer, ok := a.payerFromRequest(w, r)
	if !ok {
		return
	}
	if !a.checkChain(w, payer) {
		return
	}
	if _, err := a.Memes.Get(r.Context(), id); err != nil {
		a.domainError(w, err)
		return
	}
	if err := a.Registry.Like(r.Context(), payer, id); err != nil {
		a.domainError(w, err)
		return
	}
	if err := a.Memes.AddLike(r.Context(), id); err != nil && !errors.Is(err, domain.ErrRecordNotFound) {
		a.Logger.Error().Err(err).Int64("meme_id", id).Msg("api: like counter update failed")
	}
	a.json(w, http.StatusOK, map[string]any{"success": true, "id": id})
}

type tipRequest struct {
	Payer     string `json:"payer"`
	ChainID   int64  `json:"chain_id"`
	AmountWei string `json:"amount_wei"`
}

// MemeTip forwards a tip to the meme's creator and mirrors the total.
func (a *App) MemeTip(w http.ResponseWriter, r *http.Request) {
	id, ok := a.pathID(w, r)
	if !ok {
		return
	}
	var req tipRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if req.AmountWei == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "amount_wei is required")
		return
	}
	payer := domain.PayerContext{Address: req.Payer, ChainID: req.ChainID, Connected: req.Payer != ""}
	if !a.checkChain(w, payer) {
		return
	}
	if _, err := a.Memes.Get(r.Context(), id); err != nil {
		a.domainError(w, err)
		return
	}
	if err := a.Registry.Tip(r.Context(), payer, id, req.AmountWei); err != nil {
		a.domainError(w, err)
		return
	}
	if err := a.Memes.AddTip(r.Context(), id, req.AmountWei); err != nil && !errors.Is(err, domain.ErrRecordNotFound) {
		a.Logger.Error().Err(err).Int64("meme_id", id).Msg("api: tip counter update failed")
	}
	a.json(w, http.StatusOK, map[string]any{"success": true, "id": id, "amount_wei": req.AmountWei})
}

func (a *App) pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid meme id")
		return 0, false
	}
	return id, true
}

func (a *App) payerFromRequest(w http.ResponseWriter, r *http.Request) (domain.PayerContext, bool) {
	var req struct {
		Payer   string `json:"payer"`
		ChainID int64  `json:"chain_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Payer == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "payer is required")
		return domain.PayerContext{}, false
	}
	return domain.PayerContext{Address: req.Payer, ChainID: req.ChainID, Connected: true}, true
}

func queryInt(r *http.Request, key string, fallback int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return fallback
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return i
}
