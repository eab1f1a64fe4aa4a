package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"server/internal/domain"
)

func (a *App) FeeGet(w http.ResponseWriter, r *http.Request) {
	op := domain.ServiceOperation(chi.URLParam(r, "operation"))
	amount, err := a.Fees.Amount(r.Context(), op)
	if err != nil {
		a.domainError(w, err)
		return
	}
	a.json(w, http.StatusOK, map[string]any{
		"success":    true,
		"operation":  string(op),
		"amount_wei": amount,
	})
}
