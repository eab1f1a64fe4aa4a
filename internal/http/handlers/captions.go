package handlers

import (
	"encoding/json"
	"net/http"
)

type captionOptionsRequest struct {
	Prompt string `json:"prompt"`
	Count  int    `json:"count"`
}

// CaptionOptions generates several independent caption variations. Slots
// that fail are dropped; the call only errors when all of them do.
func (a *App) CaptionOptions(w http.ResponseWriter, r *http.Request) {
	var req captionOptionsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if req.Prompt == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "prompt is required")
		return
	}
	count := req.Count
	if count <= 0 {
		count = 3
	}
	options, err := a.Captions.CaptionOptions(r.Context(), req.Prompt, count)
	if err != nil {
		a.countSlots(0, count)
		a.domainError(w, err)
		return
	}
	a.countSlots(len(options), count-len(options))
	a.json(w, http.StatusOK, map[string]any{
		"success": true,
		"options": options,
		"count":   len(options),
		"prompt":  req.Prompt,
	})
}

func (a *App) countSlots(ok, failed int) {
	if a.Metrics == nil {
		return
	}
	if ok > 0 {
		a.Metrics.CaptionSlots.WithLabelValues("ok").Add(float64(ok))
	}
	if failed > 0 {
		a.Metrics.CaptionSlots.WithLabelValues("failed").Add(float64(failed))
	}
}
