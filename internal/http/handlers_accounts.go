package httpx

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/target/demobank-api/internal/domain/model"
	apperrors "github.com/target/demobank-api/internal/errors"
)

// AccountsService lists accounts for the proxy endpoint.
type AccountsService interface {
	List(ctx context.Context, limit int) ([]*model.Account, error)
}

// AccountHandlers serves the accounts proxy.
type AccountHandlers struct {
	Svc    AccountsService
	Logger *slog.Logger
}

// List handles GET /api/accounts?limit=N.
func (h *AccountHandlers) List(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r)
	if err != nil {
		WriteAppError(w, err)
		return
	}

	accounts, err := h.Svc.List(r.Context(), limit)
	if err != nil {
		if h.Logger != nil && apperrors.HTTPStatus(err) >= http.StatusInternalServerError {
			h.Logger.ErrorContext(r.Context(), "list accounts failed", "error", err)
		}
		WriteAppError(w, err)
		return
	}
	writeData(w, accounts)
}
