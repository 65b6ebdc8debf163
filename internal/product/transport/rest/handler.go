// Package rest provides HTTP handlers for product-related operations.
package rest

import (
	"io"
	"log/slog"
	"net/http"

	perrors "github.com/abgdnv/productcatalog/internal/product/errors"
	"github.com/abgdnv/productcatalog/internal/product/service"
	"github.com/abgdnv/productcatalog/internal/product/validation"
	"github.com/abgdnv/productcatalog/pkg/web"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const maxBodyBytes = 1 << 20

type Handler struct {
	service   service.ProductService
	validator *validation.Validator
	logger    *slog.Logger
}

// NewHandler creates a new instance of Handler with the provided service.
func NewHandler(service service.ProductService, logger *slog.Logger) *Handler {
	return &Handler{
		service:   service,
		validator: validation.New(),
		logger:    logger.With("component", "rest"),
	}
}

// RegisterRoutes registers the HTTP routes for the product service.
func (h *Handler) RegisterRoutes(r *chi.Mux) {
	r.Route("/api/v1/products", func(r chi.Router) {
		r.Get("/", h.FindAll)
		r.Post("/", h.Create)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.FindByID)
			r.Patch("/", h.Update)
			r.Delete("/", h.Remove)
		})
	})

	r.Get("/healthz", h.HealthCheck)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
}

// FindAll retrieves a page of available products.
func (h *Handler) FindAll(w http.ResponseWriter, r *http.Request) {
	page, ok := web.ParseValidateGte(r, w, h.logger, "page", 1, service.DefaultPage)
	if !ok {
		return
	}
	limit, ok := web.ParseValidateGte(r, w, h.logger, "limit", 1, service.DefaultLimit)
	if !ok {
		return
	}
	h.logger.DebugContext(r.Context(), "Received request to find all products", "page", page, "limit", limit)
	result, err := h.service.FindAll(r.Context(), service.PaginationDto{Page: page, Limit: limit})
	if err != nil {
		h.respondServiceError(w, r, "Error retrieving product list", err)
		return
	}
	web.RespondJSON(w, h.logger, http.StatusOK, result)
}

// FindByID retrieves a product by its ID.
func (h *Handler) FindByID(w http.ResponseWriter, r *http.Request) {
	id, ok := web.ParseID(w, r, h.logger)
	if !ok {
		return
	}
	found, err := h.service.FindByID(r.Context(), id)
	if err != nil {
		h.respondServiceError(w, r, "Error retrieving product", err, "ID", id)
		return
	}
	web.RespondJSON(w, h.logger, http.StatusOK, found)
}

// Create handles the creation of a new product.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var dto service.ProductCreateDto
	if !h.decodeBody(w, r, &dto, nil, "price") {
		return
	}
	created, err := h.service.Create(r.Context(), dto)
	if err != nil {
		h.respondServiceError(w, r, "Error creating product", err)
		return
	}
	h.logger.InfoContext(r.Context(), "Product created successfully", "ID", created.ID, "Name", created.Name)
	web.RespondJSON(w, h.logger, http.StatusCreated, created)
}

// Update replaces the fields present in the body. The ID always comes from the path.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := web.ParseID(w, r, h.logger)
	if !ok {
		return
	}
	dto := service.ProductUpdateDto{ID: id}
	if !h.decodeBody(w, r, &dto, []string{"id"}) {
		return
	}
	updated, err := h.service.Update(r.Context(), dto)
	if err != nil {
		h.respondServiceError(w, r, "Error updating product", err, "ID", id)
		return
	}
	h.logger.InfoContext(r.Context(), "Product updated successfully", "ID", updated.ID)
	web.RespondJSON(w, h.logger, http.StatusOK, updated)
}

// Remove soft deletes a product and returns it.
func (h *Handler) Remove(w http.ResponseWriter, r *http.Request) {
	id, ok := web.ParseID(w, r, h.logger)
	if !ok {
		return
	}
	removed, err := h.service.Remove(r.Context(), id)
	if err != nil {
		h.respondServiceError(w, r, "Error removing product", err, "ID", id)
		return
	}
	h.logger.InfoContext(r.Context(), "Product removed successfully", "ID", id)
	web.RespondJSON(w, h.logger, http.StatusOK, removed)
}

// HealthCheck is a simple health check endpoint.
func (h *Handler) HealthCheck(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// decodeBody decodes and validates the request body into out. Keys in ignored are not read from the body.
func (h *Handler) decodeBody(w http.ResponseWriter, r *http.Request, out any, ignored []string, required ...string) bool {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		h.logger.WarnContext(r.Context(), "Error reading request body", "error", err)
		web.RespondError(w, h.logger, http.StatusBadRequest, "Invalid request body")
		return false
	}
	if err := h.validator.DecodeExcept(body, out, ignored, required...); err != nil {
		_, message, fields := perrors.Public(err)
		h.logger.WarnContext(r.Context(), "Validation errors occurred", "errors", fields)
		web.RespondValidationErrors(w, h.logger, message, fields)
		return false
	}
	return true
}

// respondServiceError writes the client view of err. Only infrastructure errors are logged at error level.
func (h *Handler) respondServiceError(w http.ResponseWriter, r *http.Request, msg string, err error, args ...any) {
	status, message, _ := perrors.Public(err)
	args = append(args, "error", err)
	if perrors.KindOf(err) == perrors.KindInfrastructure {
		h.logger.ErrorContext(r.Context(), msg, args...)
	} else {
		h.logger.WarnContext(r.Context(), msg, args...)
	}
	web.RespondError(w, h.logger, status, message)
}
