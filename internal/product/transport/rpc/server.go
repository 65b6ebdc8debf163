// Package rpc serves the product commands over NATS request/reply.
package rpc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	perrors "github.com/abgdnv/productcatalog/internal/product/errors"
	"github.com/abgdnv/productcatalog/internal/product/service"
	"github.com/abgdnv/productcatalog/internal/product/validation"
	"github.com/abgdnv/productcatalog/pkg/messaging"
	"github.com/abgdnv/productcatalog/pkg/messaging/events"
	wire "github.com/abgdnv/productcatalog/pkg/rpc"
	"github.com/abgdnv/productcatalog/pkg/telemetry"
	"github.com/abgdnv/productcatalog/pkg/web"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/abgdnv/productcatalog/internal/product/transport/rpc"

// Config holds the subjects and limits of the command server.
type Config struct {
	SubjectPrefix string
	Queue         string
	Timeout       time.Duration
	// EventsPrefix is the subject prefix of product change events.
	EventsPrefix string
}

type handlerFunc func(ctx context.Context, data []byte) (any, error)

// Server maps command subjects to ProductService calls.
type Server struct {
	service   service.ProductService
	validator *validation.Validator
	publisher messaging.Publisher
	metrics   *telemetry.RPCMetrics
	tracer    trace.Tracer
	logger    *slog.Logger
	cfg       Config
	handlers  map[string]handlerFunc
	nc        *nats.Conn
	subs      []*nats.Subscription
	now       func() time.Time
}

// NewServer creates a command server. publisher and metrics may be nil.
func NewServer(svc service.ProductService, publisher messaging.Publisher, metrics *telemetry.RPCMetrics, cfg Config, logger *slog.Logger) *Server {
	if publisher == nil {
		publisher = messaging.NopPublisher{}
	}
	s := &Server{
		service:   svc,
		validator: validation.New(),
		publisher: publisher,
		metrics:   metrics,
		tracer:    otel.Tracer(tracerName),
		logger:    logger.With("component", "rpc"),
		cfg:       cfg,
		now:       time.Now,
	}
	s.handlers = map[string]handlerFunc{
		wire.CmdCreateProduct:   s.create,
		wire.CmdFindAllProducts: s.findAll,
		wire.CmdFindOneProduct:  s.findOne,
		wire.CmdUpdateProduct:   s.update,
		wire.CmdRemoveProduct:   s.remove,
	}
	return s
}

// Start subscribes every command subject in the configured queue group.
func (s *Server) Start(nc *nats.Conn) error {
	s.nc = nc
	for _, cmd := range wire.Commands {
		subject := wire.Subject(s.cfg.SubjectPrefix, cmd)
		sub, err := nc.QueueSubscribe(subject, s.cfg.Queue, s.handleMsg(cmd))
		if err != nil {
			ctx, cancel := context.WithTimeout(context.Background(), s.cfg.Timeout)
			defer cancel()
			_ = s.Shutdown(ctx)
			return fmt.Errorf("failed to subscribe to %s: %w", subject, err)
		}
		s.subs = append(s.subs, sub)
		s.logger.Info("subscribed", "subject", subject, "queue", s.cfg.Queue)
	}
	return nil
}

// Shutdown stops taking new commands and blocks until the commands already received
// have been answered and the replies flushed, or until ctx is done.
func (s *Server) Shutdown(ctx context.Context) error {
	var errs []error
	closed := make([]<-chan nats.SubStatus, 0, len(s.subs))
	for _, sub := range s.subs {
		done := sub.StatusChanged(nats.SubscriptionClosed)
		if err := sub.Drain(); err != nil {
			if !errors.Is(err, nats.ErrConnectionClosed) {
				errs = append(errs, fmt.Errorf("failed to drain %s: %w", sub.Subject, err))
			}
			continue
		}
		closed = append(closed, done)
	}
	s.subs = nil

	for _, done := range closed {
		if err := waitClosed(ctx, done); err != nil {
			return errors.Join(append(errs, err)...)
		}
	}
	if s.nc != nil && !s.nc.IsClosed() {
		if err := s.nc.FlushWithContext(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to flush replies: %w", err))
		}
	}
	return errors.Join(errs...)
}

// waitClosed returns once done is closed, which nats.go does after the last callback of a drained subscription returned.
func waitClosed(ctx context.Context, done <-chan nats.SubStatus) error {
	for {
		select {
		case _, ok := <-done:
			if !ok {
				return nil
			}
		case <-ctx.Done():
			return fmt.Errorf("in-flight commands did not finish: %w", ctx.Err())
		}
	}
}

func (s *Server) handleMsg(cmd string) nats.MsgHandler {
	return func(msg *nats.Msg) {
		ctx := otel.GetTextMapPropagator().Extract(context.Background(), propagation.HeaderCarrier(msg.Header))
		reqID := msg.Header.Get(web.RequestIDHeader)
		if reqID == "" {
			reqID = uuid.NewString()
		}
		ctx = web.WithRequestID(ctx, reqID)
		ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()

		out := s.Dispatch(ctx, cmd, msg.Data)

		if msg.Reply == "" {
			s.logger.WarnContext(ctx, "dropping reply of a command sent without reply subject", "command", cmd)
			return
		}
		reply := nats.NewMsg(msg.Reply)
		reply.Header.Set(web.RequestIDHeader, reqID)
		reply.Data = out
		if err := msg.RespondMsg(reply); err != nil {
			s.logger.ErrorContext(ctx, "failed to send reply", "command", cmd, "error", err)
		}
	}
}

// Dispatch runs cmd with the JSON payload data and returns the encoded response envelope.
func (s *Server) Dispatch(ctx context.Context, cmd string, data []byte) []byte {
	start := s.now()
	ctx, span := s.tracer.Start(ctx, "rpc "+cmd,
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(attribute.String("rpc.method", cmd)))
	defer span.End()

	handler, ok := s.handlers[cmd]
	if !ok {
		s.logger.WarnContext(ctx, "unknown command", "command", cmd)
		s.record(ctx, cmd, "unknown", start)
		span.SetStatus(codes.Error, "unknown command")
		return wire.EncodeError(&wire.Error{Status: http.StatusNotFound, Message: "Unknown command: " + cmd})
	}

	s.logger.DebugContext(ctx, "received command", "command", cmd)
	result, err := handler(ctx, data)
	if err == nil {
		var out []byte
		out, err = wire.EncodeResult(result)
		if err == nil {
			s.record(ctx, cmd, "ok", start)
			return out
		}
	}

	kind := perrors.KindOf(err)
	status, message, fields := perrors.Public(err)
	if kind == perrors.KindInfrastructure {
		s.logger.ErrorContext(ctx, "command failed", "command", cmd, "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, message)
	} else {
		s.logger.WarnContext(ctx, "command rejected", "command", cmd, "kind", kind.String(), "error", err)
	}
	span.SetAttributes(attribute.Int("rpc.status", status))
	s.record(ctx, cmd, kind.String(), start)
	return wire.EncodeError(&wire.Error{Status: status, Message: message, Fields: fields})
}

func (s *Server) record(ctx context.Context, cmd, outcome string, start time.Time) {
	if s.metrics != nil {
		s.metrics.Record(ctx, cmd, outcome, s.now().Sub(start))
	}
}

type idPayload struct {
	ID int64 `json:"id" validate:"gte=0"`
}

func (s *Server) create(ctx context.Context, data []byte) (any, error) {
	var dto service.ProductCreateDto
	if err := s.validator.Decode(data, &dto, "price"); err != nil {
		return nil, err
	}
	created, err := s.service.Create(ctx, dto)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, events.ProductCreated, created)
	return created, nil
}

func (s *Server) findAll(ctx context.Context, data []byte) (any, error) {
	dto := service.NewPaginationDto()
	if err := s.validator.Decode(data, &dto); err != nil {
		return nil, err
	}
	return s.service.FindAll(ctx, dto)
}

func (s *Server) findOne(ctx context.Context, data []byte) (any, error) {
	var p idPayload
	if err := s.validator.Decode(data, &p, "id"); err != nil {
		return nil, err
	}
	return s.service.FindByID(ctx, p.ID)
}

func (s *Server) update(ctx context.Context, data []byte) (any, error) {
	var dto service.ProductUpdateDto
	if err := s.validator.Decode(data, &dto, "id"); err != nil {
		return nil, err
	}
	updated, err := s.service.Update(ctx, dto)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, events.ProductUpdated, updated)
	return updated, nil
}

func (s *Server) remove(ctx context.Context, data []byte) (any, error) {
	var p idPayload
	if err := s.validator.Decode(data, &p, "id"); err != nil {
		return nil, err
	}
	removed, err := s.service.Remove(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, events.ProductRemoved, removed)
	return removed, nil
}

// publish emits a change event. A failure is logged and never fails the command.
func (s *Server) publish(ctx context.Context, kind string, p *service.ProductDto) {
	event := events.NewProductChangedEvent(s.cfg.EventsPrefix, kind, p.ID, p.Name, p.Price, p.Available, s.now())
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish product event", "subject", event.Subject(), "product_id", p.ID, "error", err)
	}
}
