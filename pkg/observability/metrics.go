package observability

import (
	"context"
	"strconv"

	"github.com/aretw0/storewizard/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
)

// Namespace prefixes every metric name.
const Namespace = "storewizard"

// Metrics holds the collectors fed by the lifecycle hooks.
type Metrics struct {
	StepChanges        *prometheus.CounterVec
	Validations        *prometheus.CounterVec
	ValidationDuration *prometheus.HistogramVec
	Autosaves          *prometheus.CounterVec
	AutosaveBytes      prometheus.Histogram
	SubmissionSteps    *prometheus.CounterVec
	SubmissionDuration *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		StepChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "step_changes_total",
			Help:      "Number of times a session moved onto a step.",
		}, []string{"to"}),
		Validations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "validations_total",
			Help:      "Completed validation passes by tier and result.",
		}, []string{"tier", "result"}),
		ValidationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "validation_duration_seconds",
			Help:      "Duration of validation passes.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"tier"}),
		Autosaves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "autosaves_total",
			Help:      "Autosave attempts by result.",
		}, []string{"result"}),
		AutosaveBytes: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "autosave_bytes",
			Help:      "Size of persisted draft envelopes.",
			Buckets:   prometheus.ExponentialBuckets(128, 4, 6),
		}),
		SubmissionSteps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "submission_steps_total",
			Help:      "Submission steps by entity and final status.",
		}, []string{"step", "status"}),
		SubmissionDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "submission_step_duration_seconds",
			Help:      "Duration of submission steps.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"step"}),
	}

	for _, c := range []prometheus.Collector{
		m.StepChanges, m.Validations, m.ValidationDuration,
		m.Autosaves, m.AutosaveBytes, m.SubmissionSteps, m.SubmissionDuration,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Hooks returns lifecycle hooks that record every event.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnStepChange: func(_ context.Context, e *domain.StepEvent) {
			m.StepChanges.WithLabelValues(strconv.Itoa(e.To)).Inc()
		},
		OnValidation: func(_ context.Context, e *domain.ValidationEvent) {
			m.Validations.WithLabelValues(e.Tier, validationResult(e)).Inc()
			m.ValidationDuration.WithLabelValues(e.Tier).Observe(e.Duration.Seconds())
		},
		OnAutosave: func(_ context.Context, e *domain.AutosaveEvent) {
			if e.Err != nil {
				m.Autosaves.WithLabelValues("error").Inc()
				return
			}
			m.Autosaves.WithLabelValues("ok").Inc()
			m.AutosaveBytes.Observe(float64(e.Bytes))
		},
		OnSubmissionStep: func(_ context.Context, e *domain.SubmissionEvent) {
			m.SubmissionSteps.WithLabelValues(e.Step, string(e.Status)).Inc()
			m.SubmissionDuration.WithLabelValues(e.Step).Observe(e.Duration.Seconds())
		},
	}
}

func validationResult(e *domain.ValidationEvent) string {
	switch {
	case e.Stale:
		return "stale"
	case e.Valid:
		return "valid"
	default:
		return "invalid"
	}
}
