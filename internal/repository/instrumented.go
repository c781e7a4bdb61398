package repository

import (
	"context"
	"errors"
	"time"

	"photographer-backend/internal/domain"
	"photographer-backend/internal/timing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// OperationObserver receives one observation per store call.
type OperationObserver interface {
	ObserveDBOperation(operation string, err error, elapsed time.Duration)
}

// InstrumentedConfig tunes the decorator.
type InstrumentedConfig struct {
	SlowThreshold time.Duration
	Tracer        trace.Tracer
	Observer      OperationObserver
}

// Instrumented wraps a store and records every call as database time on the
// request tracker, as a span, and as a metric observation. Calls slower than
// SlowThreshold are logged as warnings.
type Instrumented struct {
	inner  PhotographerStore
	cfg    InstrumentedConfig
	tracer trace.Tracer
	logger *zap.Logger
}

func NewInstrumented(inner PhotographerStore, cfg InstrumentedConfig, logger *zap.Logger) *Instrumented {
	tracer := cfg.Tracer
	if tracer == nil {
		tracer = otel.Tracer("photographer-backend/repository")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Instrumented{
		inner:  inner,
		cfg:    cfg,
		tracer: tracer,
		logger: logger.Named("store"),
	}
}

func (r *Instrumented) observe(ctx context.Context, op string, attrs []attribute.KeyValue, fn func(context.Context) error) error {
	ctx, span := r.tracer.Start(ctx, "repository."+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attrs...),
	)
	defer span.End()

	start := time.Now()
	err := fn(ctx)
	elapsed := time.Since(start)

	timing.AddDatabase(ctx, elapsed)
	if r.cfg.Observer != nil {
		r.cfg.Observer.ObserveDBOperation(op, err, elapsed)
	}

	if err != nil && !errors.Is(err, ErrNotFound) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		r.logger.Error("Store operation failed",
			zap.String("operation", op),
			zap.Duration("duration", elapsed),
			zap.Error(err),
		)
	} else if r.cfg.SlowThreshold > 0 && elapsed >= r.cfg.SlowThreshold {
		r.logger.Warn("Slow store operation",
			zap.String("operation", op),
			zap.Duration("duration", elapsed),
			zap.Duration("threshold", r.cfg.SlowThreshold),
		)
	}
	return err
}

func (r *Instrumented) FindPage(ctx context.Context, page, size int) (out []*domain.Photographer, total int64, err error) {
	err = r.observe(ctx, "FindPage", []attribute.KeyValue{
		attribute.Int("page", page), attribute.Int("size", size),
	}, func(ctx context.Context) error {
		out, total, err = r.inner.FindPage(ctx, page, size)
		return err
	})
	return out, total, err
}

func (r *Instrumented) FindByID(ctx context.Context, id int64) (out *domain.Photographer, err error) {
	err = r.observe(ctx, "FindByID", []attribute.KeyValue{
		attribute.Int64("photographer.id", id),
	}, func(ctx context.Context) error {
		out, err = r.inner.FindByID(ctx, id)
		return err
	})
	return out, err
}

func (r *Instrumented) FindByEventType(ctx context.Context, eventType string) (out []*domain.Photographer, err error) {
	err = r.observe(ctx, "FindByEventType", []attribute.KeyValue{
		attribute.String("event.type", eventType),
	}, func(ctx context.Context) error {
		out, err = r.inner.FindByEventType(ctx, eventType)
		return err
	})
	return out, err
}

func (r *Instrumented) FindOrderedByBirthDate(ctx context.Context, descending bool, limit int) (out []*domain.Photographer, err error) {
	err = r.observe(ctx, "FindOrderedByBirthDate", []attribute.KeyValue{
		attribute.Bool("descending", descending), attribute.Int("limit", limit),
	}, func(ctx context.Context) error {
		out, err = r.inner.FindOrderedByBirthDate(ctx, descending, limit)
		return err
	})
	return out, err
}

func (r *Instrumented) FindByProximity(ctx context.Context, lat, lng, radiusKm float64) (out []*domain.Photographer, err error) {
	err = r.observe(ctx, "FindByProximity", []attribute.KeyValue{
		attribute.Float64("geo.lat", lat),
		attribute.Float64("geo.lng", lng),
		attribute.Float64("geo.radius_km", radiusKm),
	}, func(ctx context.Context) error {
		out, err = r.inner.FindByProximity(ctx, lat, lng, radiusKm)
		return err
	})
	return out, err
}

func (r *Instrumented) Save(ctx context.Context, p *domain.Photographer) (out *domain.Photographer, err error) {
	err = r.observe(ctx, "Save", []attribute.KeyValue{
		attribute.Int64("photographer.id", p.ID),
	}, func(ctx context.Context) error {
		out, err = r.inner.Save(ctx, p)
		return err
	})
	return out, err
}

func (r *Instrumented) SaveAll(ctx context.Context, photographers []*domain.Photographer) error {
	return r.observe(ctx, "SaveAll", []attribute.KeyValue{
		attribute.Int("count", len(photographers)),
	}, func(ctx context.Context) error {
		return r.inner.SaveAll(ctx, photographers)
	})
}

func (r *Instrumented) DeleteByID(ctx context.Context, id int64) error {
	return r.observe(ctx, "DeleteByID", []attribute.KeyValue{
		attribute.Int64("photographer.id", id),
	}, func(ctx context.Context) error {
		return r.inner.DeleteByID(ctx, id)
	})
}

func (r *Instrumented) Count(ctx context.Context) (n int64, err error) {
	err = r.observe(ctx, "Count", nil, func(ctx context.Context) error {
		n, err = r.inner.Count(ctx)
		return err
	})
	return n, err
}

func (r *Instrumented) Ping(ctx context.Context) error {
	return r.observe(ctx, "Ping", nil, r.inner.Ping)
}
