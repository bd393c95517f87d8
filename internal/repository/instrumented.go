package repository

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"taskmanager/internal/model"
	"taskmanager/internal/query"
)

// Metrics counts task repository operations by outcome and times them.
type Metrics struct {
	ops      *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ops: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "taskmanager_task_operations_total",
				Help: "Total number of task repository operations",
			},
			[]string{"op", "result"},
		),
		duration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "taskmanager_task_operation_duration_seconds",
				Help:    "Duration of task repository operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"op"},
		),
	}
}

func (m *Metrics) observe(op string, start time.Time, err error) {
	m.duration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	m.ops.WithLabelValues(op, resultLabel(err)).Inc()
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrTaskNotFound):
		return "not_found"
	case errors.Is(err, ErrInvalidID):
		return "invalid_id"
	default:
		return "error"
	}
}

type instrumentedTaskRepository struct {
	next    TaskRepository
	metrics *Metrics
}

// Instrument wraps next so every call is recorded in m.
func Instrument(next TaskRepository, m *Metrics) TaskRepository {
	return &instrumentedTaskRepository{next: next, metrics: m}
}

func (r *instrumentedTaskRepository) Create(ctx context.Context, task model.NewTask, ownerID *string) (created *model.Task, err error) {
	defer func(start time.Time) { r.metrics.observe("create", start, err) }(time.Now())
	return r.next.Create(ctx, task, ownerID)
}

func (r *instrumentedTaskRepository) List(ctx context.Context, p query.Predicate) (tasks []model.Task, err error) {
	defer func(start time.Time) { r.metrics.observe("list", start, err) }(time.Now())
	return r.next.List(ctx, p)
}

func (r *instrumentedTaskRepository) GetOne(ctx context.Context, id string, p query.Predicate) (task *model.Task, err error) {
	defer func(start time.Time) { r.metrics.observe("get", start, err) }(time.Now())
	return r.next.GetOne(ctx, id, p)
}

func (r *instrumentedTaskRepository) Update(ctx context.Context, id string, p query.Predicate, patch model.TaskPatch) (task *model.Task, err error) {
	defer func(start time.Time) { r.metrics.observe("update", start, err) }(time.Now())
	return r.next.Update(ctx, id, p, patch)
}

func (r *instrumentedTaskRepository) Delete(ctx context.Context, id string, p query.Predicate) (err error) {
	defer func(start time.Time) { r.metrics.observe("delete", start, err) }(time.Now())
	return r.next.Delete(ctx, id, p)
}
