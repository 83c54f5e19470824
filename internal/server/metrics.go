package server

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/patchlibrary/feedesk/internal/entity"
	"github.com/patchlibrary/feedesk/internal/render"
)

var (
	receiptsGeneratedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "feedesk",
		Subsystem: "receipts",
		Name:      "generated_total",
		Help:      "Receipts generated and registered.",
	})

	batchItemsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "feedesk",
		Subsystem: "batch",
		Name:      "items_total",
		Help:      "Batch items processed, by outcome.",
	}, []string{"result"})

	renderSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "feedesk",
		Subsystem: "render",
		Name:      "seconds",
		Help:      "Wall time of one document render.",
		Buckets:   prometheus.DefBuckets,
	})

	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "feedesk",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests served, by route and status.",
	}, []string{"method", "path", "status"})
)

// metricsMiddleware counts every request against its chi route pattern.
func (s *Server) metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		path := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			path = rctx.RoutePattern()
		}
		httpRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(ww.Status())).Inc()
	})
}

type timedRenderer struct {
	inner render.Renderer
}

// InstrumentRenderer feeds the render-duration histogram for every render.
// Wire the orchestrator and the server through the same wrapped renderer;
// wrapping twice is a no-op.
func InstrumentRenderer(inner render.Renderer) render.Renderer {
	if _, ok := inner.(*timedRenderer); ok {
		return inner
	}
	return &timedRenderer{inner: inner}
}

func (t *timedRenderer) Render(ctx context.Context, doc *entity.ReceiptDocument) ([]byte, error) {
	start := time.Now()
	out, err := t.inner.Render(ctx, doc)
	renderSeconds.Observe(time.Since(start).Seconds())
	return out, err
}
