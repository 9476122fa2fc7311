package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"bridge-reconcile-go/internal/models"
	"bridge-reconcile-go/internal/reconcile"
	"bridge-reconcile-go/internal/store"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const healthTimeout = 5 * time.Second

// NewRouter mounts health, metrics and the manual sync/pair triggers
func NewRouter(s *OpsService) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/transfers/{hash}", func(r chi.Router) {
		r.Post("/sync", s.handleSync)
		r.Post("/pair", s.handlePair)
	})

	return r
}

func (s *OpsService) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	if err := s.HealthCheck(ctx); err != nil {
		zap.L().Warn("Health check failed", zap.Error(err))
		responseJSON(w, &models.ErrorResponse{Error: err.Error()}, http.StatusServiceUnavailable)
		return
	}
	responseJSON(w, map[string]string{"status": "ok"}, http.StatusOK)
}

func (s *OpsService) handleSync(w http.ResponseWriter, r *http.Request) {
	hash := chi.URLParam(r, "hash")

	result, err := s.reconciler.SyncTransfer(withManualRun(r, "sync"), hash)
	if err != nil {
		responseError(w, hash, err)
		return
	}
	responseJSON(w, result, http.StatusOK)
}

func (s *OpsService) handlePair(w http.ResponseWriter, r *http.Request) {
	hash := chi.URLParam(r, "hash")

	result, err := s.reconciler.PairByHash(withManualRun(r, "pair"), hash)
	if err != nil {
		responseError(w, hash, err)
		return
	}
	responseJSON(w, result, http.StatusOK)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, reconcile.ErrTransferNotFound),
		errors.Is(err, reconcile.ErrBridgeTransactionNotFound),
		errors.Is(err, reconcile.ErrLegNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrPartialSettlement),
		errors.Is(err, store.ErrConcurrentModification):
		return http.StatusConflict
	case errors.Is(err, reconcile.ErrUnknownVersion),
		errors.Is(err, reconcile.ErrInvalidAmount):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func responseError(w http.ResponseWriter, hash string, err error) {
	code := statusFor(err)
	if code == http.StatusInternalServerError {
		zap.L().Error("Manual trigger failed", zap.String("hash", hash), zap.Error(err))
	}
	responseJSON(w, &models.ErrorResponse{Error: err.Error()}, code)
}

func responseJSON(w http.ResponseWriter, data interface{}, code int) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		zap.L().Warn("Failed to write response", zap.Error(err))
	}
}
