// Package metrics exposes Prometheus counters for bot activity and an optional HTTP listener.
package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/m3rciful/vcfbot/core/logger"
)

// Registry owns the bot collectors. The zero value is not usable; call New.
type Registry struct {
	reg *prometheus.Registry

	Updates     *prometheus.CounterVec
	Handled     *prometheus.CounterVec
	Redemptions *prometheus.CounterVec
	Documents   prometheus.Counter
	Contacts    prometheus.Counter
	Broadcast   *prometheus.CounterVec
	Sessions    *prometheus.CounterVec
}

// New registers the bot collectors together with process and Go runtime collectors.
func New() *Registry {
	r := &Registry{
		reg: prometheus.NewRegistry(),
		Updates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bot_updates_received_total",
			Help: "Updates received, by kind and admission result.",
		}, []string{"kind", "result"}),
		Handled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bot_updates_handled_total",
			Help: "Updates handled, by handler and status.",
		}, []string{"handler", "status"}),
		Redemptions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bot_key_redemptions_total",
			Help: "Key redemption attempts, by result.",
		}, []string{"result"}),
		Documents: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bot_vcf_documents_total",
			Help: "vCard documents generated.",
		}),
		Contacts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bot_vcf_contacts_total",
			Help: "Contact records written into vCard documents.",
		}),
		Broadcast: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bot_broadcast_deliveries_total",
			Help: "Broadcast deliveries, by result.",
		}, []string{"result"}),
		Sessions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bot_wizard_sessions_total",
			Help: "Wizard sessions, by outcome.",
		}, []string{"outcome"}),
	}
	r.reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.Updates, r.Handled, r.Redemptions, r.Documents, r.Contacts, r.Broadcast, r.Sessions,
	)
	return r
}

// Gatherer exposes the underlying registry for scraping and tests.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.reg
}

// Handler returns the HTTP router serving the metrics path and a liveness probe.
func (r *Registry) Handler(path string) http.Handler {
	if path == "" {
		path = "/metrics"
	}
	mux := chi.NewRouter()
	mux.Use(middleware.Recoverer)
	mux.Method(http.MethodGet, path, promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{}))
	mux.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}

// Serve runs the metrics listener until ctx is done.
func (r *Registry) Serve(ctx context.Context, listen, path string) error {
	srv := &http.Server{
		Addr:              listen,
		Handler:           r.Handler(path),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	logger.L.With("component", "metrics").Info("metrics listening",
		slog.String("event", "metrics.listen"),
		slog.String("listen", listen),
		slog.String("path", path),
	)

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
