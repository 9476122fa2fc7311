package api

import (
	"context"
	"net/http"
	"time"

	"bridge-reconcile-go/internal/models"

	"github.com/go-chi/chi/middleware"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// requestLogger writes one zap line per request once the response is done
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		defer func() {
			zap.L().Info("HTTP request",
				zap.String("request_id", middleware.GetReqID(r.Context())),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)))
		}()

		next.ServeHTTP(ww, r)
	})
}

// withManualRun tags the request context so engine logs carry a run id
func withManualRun(r *http.Request, stage string) context.Context {
	runId := middleware.GetReqID(r.Context())
	if runId == "" {
		runId = uuid.New().String()
	}
	return models.WithRunContext(r.Context(), &models.RunContext{
		RunId:   runId,
		Trigger: "http",
		Stage:   stage,
	})
}
