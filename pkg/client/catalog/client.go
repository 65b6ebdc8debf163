// Package catalog is the NATS client of the product catalog commands.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/abgdnv/productcatalog/pkg/config"
	"github.com/abgdnv/productcatalog/pkg/rpc"
	"github.com/abgdnv/productcatalog/pkg/web"
	"github.com/nats-io/nats.go"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// Requester sends a request and waits for the reply. *nats.Conn implements it.
type Requester interface {
	RequestMsgWithContext(ctx context.Context, msg *nats.Msg) (*nats.Msg, error)
}

// Client calls the catalog commands. Transport failures and 5xx replies count against the circuit breaker,
// client errors such as an unknown product do not.
type Client struct {
	nc      Requester
	prefix  string
	timeout time.Duration
	breaker *gobreaker.CircuitBreaker[[]byte]
}

// NewClient creates a catalog client sending on <subjectPrefix>.<command>.
func NewClient(nc Requester, subjectPrefix string, timeout time.Duration, cbCfg config.CircuitBreakerConfig) *Client {
	return &Client{
		nc:      nc,
		prefix:  subjectPrefix,
		timeout: timeout,
		breaker: newCircuitBreaker(cbCfg),
	}
}

func newCircuitBreaker(cfg config.CircuitBreakerConfig) *gobreaker.CircuitBreaker[[]byte] {
	st := gobreaker.Settings{
		Name:        "product-catalog-cb",
		MaxRequests: cfg.HalfOpenRequests,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			total := counts.TotalSuccesses + counts.TotalFailures
			return counts.ConsecutiveFailures > cfg.ConsecutiveFailures ||
				(total > cfg.ConsecutiveFailures &&
					float64(counts.TotalFailures)/float64(total)*100 > float64(cfg.ErrorRatePercent))
		},
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			var rpcErr *rpc.Error
			if errors.As(err, &rpcErr) {
				return rpcErr.Status < 500
			}
			return false
		},
	}
	return gobreaker.NewCircuitBreaker[[]byte](st)
}

// Create calls create-product.
func (c *Client) Create(ctx context.Context, req rpc.CreateProductRequest) (*rpc.Product, error) {
	var p rpc.Product
	if err := c.call(ctx, rpc.CmdCreateProduct, req, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// FindAll calls find-all-products. Zero page or limit leaves the server default.
func (c *Client) FindAll(ctx context.Context, req rpc.FindAllRequest) (*rpc.Page, error) {
	var page rpc.Page
	if err := c.call(ctx, rpc.CmdFindAllProducts, req, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// FindOne calls find-one-product.
func (c *Client) FindOne(ctx context.Context, id int64) (*rpc.Product, error) {
	var p rpc.Product
	if err := c.call(ctx, rpc.CmdFindOneProduct, rpc.IDRequest{ID: id}, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// Update calls update-product.
func (c *Client) Update(ctx context.Context, req rpc.UpdateProductRequest) (*rpc.Product, error) {
	var p rpc.Product
	if err := c.call(ctx, rpc.CmdUpdateProduct, req, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// Remove calls remove-product and returns the product as it was marked unavailable.
func (c *Client) Remove(ctx context.Context, id int64) (*rpc.Product, error) {
	var p rpc.Product
	if err := c.call(ctx, rpc.CmdRemoveProduct, rpc.IDRequest{ID: id}, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// call sends one command. A failure envelope is returned as *rpc.Error.
func (c *Client) call(ctx context.Context, cmd string, req, out any) error {
	data, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to encode %s request: %w", cmd, err)
	}
	msg := nats.NewMsg(rpc.Subject(c.prefix, cmd))
	msg.Data = data
	if reqID, ok := web.GetRequestID(ctx); ok && reqID != "" {
		msg.Header.Set(web.RequestIDHeader, reqID)
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(msg.Header))

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	raw, err := c.breaker.Execute(func() ([]byte, error) {
		reply, err := c.nc.RequestMsgWithContext(ctx, msg)
		if err != nil {
			return nil, fmt.Errorf("%s request failed: %w", cmd, err)
		}
		// surface failure envelopes so the breaker can classify them
		if err := rpc.Decode(reply.Data, nil); err != nil {
			return nil, err
		}
		return reply.Data, nil
	})
	if err != nil {
		return err
	}
	return rpc.Decode(raw, out)
}
