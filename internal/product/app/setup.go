// Package app contains the application setup for the product service.
package app

import (
	"log/slog"
	"net/http"

	"github.com/abgdnv/productcatalog/internal/config"
	"github.com/abgdnv/productcatalog/internal/product/service"
	"github.com/abgdnv/productcatalog/internal/product/store"
	"github.com/abgdnv/productcatalog/internal/product/transport/rest"
	"github.com/abgdnv/productcatalog/internal/product/transport/rpc"
	"github.com/abgdnv/productcatalog/pkg/messaging"
	"github.com/abgdnv/productcatalog/pkg/server"
	"github.com/abgdnv/productcatalog/pkg/telemetry"
	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"gorm.io/gorm"
)

const instrumentationName = "github.com/abgdnv/productcatalog"

type Dependencies struct {
	ProductService service.ProductService
	Publisher      messaging.Publisher
	Logger         *slog.Logger
}

// SetupDependencies builds the service on top of the GORM store. A nil publisher disables events.
func SetupDependencies(db *gorm.DB, publisher messaging.Publisher, logger *slog.Logger) *Dependencies {
	if publisher == nil {
		publisher = messaging.NopPublisher{}
	}
	return &Dependencies{
		ProductService: service.NewService(store.NewGormStore(db), logger),
		Publisher:      publisher,
		Logger:         logger,
	}
}

// SetupHttpHandler initializes the routes and middleware of the REST gateway.
// Used by E2E tests to set up the HTTP server with the necessary routes and middleware.
func SetupHttpHandler(deps *Dependencies) http.Handler {
	mux := server.NewChiRouter(deps.Logger)
	wireRoutes(mux, deps)
	return otelhttp.NewHandler(mux, "product-http")
}

// wireRoutes sets up the HTTP routes for the product service.
func wireRoutes(mux *chi.Mux, deps *Dependencies) {
	productHandler := rest.NewHandler(deps.ProductService, deps.Logger)
	productHandler.RegisterRoutes(mux)
}

// SetupHttpServer creates and configures an HTTP server for the product service.
func SetupHttpServer(deps *Dependencies, cfg *config.Config) *http.Server {
	return server.NewHTTPServer(cfg.HTTPServer, SetupHttpHandler(deps))
}

// SetupGrpcServer creates the gRPC server exposing the health service backed by hs.
func SetupGrpcServer(deps *Dependencies, reflectionEnabled bool, hs *health.Server) *grpc.Server {
	return server.NewGRPCServer(deps.Logger, reflectionEnabled, server.HealthRegistration(hs))
}

// SetupRPCServer creates the NATS command server. Commands are counted on the global meter provider.
func SetupRPCServer(deps *Dependencies, cfg *config.Config) (*rpc.Server, error) {
	metrics, err := telemetry.NewRPCMetrics(otel.Meter(instrumentationName))
	if err != nil {
		return nil, err
	}
	rpcCfg := rpc.Config{
		SubjectPrefix: cfg.RPC.SubjectPrefix,
		Queue:         cfg.RPC.Queue,
		Timeout:       cfg.RPC.Timeout,
		EventsPrefix:  cfg.Events.SubjectPrefix,
	}
	return rpc.NewServer(deps.ProductService, deps.Publisher, metrics, rpcCfg, deps.Logger), nil
}
