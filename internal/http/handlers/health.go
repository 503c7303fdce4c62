package handlers

import (
	"context"
	"net/http"
	"time"

	"internportal/internal/common"
	"internportal/internal/http/response"
)

type Pinger interface {
	PingContext(ctx context.Context) error
}

type HealthHandler struct {
	store Pinger
}

func NewHealthHandler(store Pinger) *HealthHandler {
	return &HealthHandler{store: store}
}

func (h *HealthHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h.store != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.store.PingContext(ctx); err != nil {
			response.Error(w, common.NewError(common.CodeStoreUnavailable, "store unavailable", err))
			return
		}
	}
	response.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
