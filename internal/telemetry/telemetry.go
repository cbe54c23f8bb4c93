// Package telemetry exports simulation counters to Prometheus.
package telemetry

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/san-kum/trebsim/internal/experiment"
	"github.com/san-kum/trebsim/internal/integrators"
	"github.com/san-kum/trebsim/internal/sim"
)

const namespace = "trebsim"

// Collector implements sim.Recorder. It is safe to share between
// simulations running on different goroutines.
type Collector struct {
	updates     prometheus.Counter
	substeps    prometheus.Counter
	perUpdate   prometheus.Histogram
	degraded    prometheus.Counter
	simTime     prometheus.Gauge
	alpha       prometheus.Gauge
	phases      *prometheus.CounterVec
	resets      prometheus.Counter
	fuzzRuns    *prometheus.CounterVec
	fuzzBatches prometheus.Counter
}

var _ sim.Recorder = (*Collector)(nil)

func New(reg prometheus.Registerer) *Collector {
	f := promauto.With(reg)
	return &Collector{
		updates: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "updates_total",
			Help:      "Calls to Update.",
		}),
		substeps: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "substeps_total",
			Help:      "Fixed integrator steps taken.",
		}),
		perUpdate: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "substeps_per_update",
			Help:      "Fixed steps taken by a single Update.",
			Buckets:   []float64{0, 1, 2, 5, 10, 15, 20},
		}),
		degraded: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "degraded_updates_total",
			Help:      "Updates that returned with the integrator degraded.",
		}),
		simTime: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sim_time_seconds",
			Help:      "Simulated time after the last update.",
		}),
		alpha: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "interpolation_alpha",
			Help:      "Interpolation factor returned by the last update.",
		}),
		phases: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "phase_transitions_total",
			Help:      "Launch phase transitions by target phase.",
		}, []string{"phase"}),
		resets: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resets_total",
			Help:      "Simulation resets.",
		}),
		fuzzRuns: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "fuzz",
			Name:      "runs_total",
			Help:      "Fuzz runs by outcome.",
		}, []string{"outcome"}),
		fuzzBatches: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "fuzz",
			Name:      "batches_total",
			Help:      "Fuzz batches completed.",
		}),
	}
}

func (c *Collector) ObserveUpdate(r integrators.StepResult, simTime float64) {
	c.updates.Inc()
	c.substeps.Add(float64(r.StepsTaken))
	c.perUpdate.Observe(float64(r.StepsTaken))
	if r.Degraded {
		c.degraded.Inc()
	}
	c.simTime.Set(simTime)
	c.alpha.Set(r.InterpolationAlpha)
}

func (c *Collector) ObservePhase(p sim.Phase) {
	c.phases.WithLabelValues(p.String()).Inc()
}

func (c *Collector) ObserveReset() {
	c.resets.Inc()
}

// ObserveReport counts the outcomes of a fuzz batch. A run that is both
// degraded and stalled counts under both.
func (c *Collector) ObserveReport(r *experiment.Report) {
	c.fuzzBatches.Inc()
	for _, o := range r.Outcomes {
		switch {
		case o.Err != nil:
			c.fuzzRuns.WithLabelValues("failed").Inc()
			continue
		case o.NaNLeak:
			c.fuzzRuns.WithLabelValues("nan_leak").Inc()
			continue
		}
		if o.Result.Degraded {
			c.fuzzRuns.WithLabelValues("degraded").Inc()
		}
		if o.Result.Stalled {
			c.fuzzRuns.WithLabelValues("stalled").Inc()
		}
		if !o.Result.Degraded && !o.Result.Stalled {
			c.fuzzRuns.WithLabelValues("ok").Inc()
		}
	}
}

// Serve exposes g on addr under /metrics until ctx is done.
func Serve(ctx context.Context, addr string, g prometheus.Gatherer, logger *slog.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdown, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdown)
	}()

	logger.Info("serving metrics", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
