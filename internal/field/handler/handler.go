package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"onboard/internal/access"
	"onboard/internal/field"
	"onboard/internal/platform/middleware"
	dErrors "onboard/pkg/domain-errors"
	"onboard/pkg/platform/httputil"
)

// Service defines the interface for field vault operations.
type Service interface {
	EncryptField(ctx context.Context, ident access.Identity, req field.EncryptRequest) (*field.EncryptResult, error)
	DecryptField(ctx context.Context, ident access.Identity, req field.DecryptRequest) (*field.DecryptResult, error)
}

// Handler handles the encrypt/decrypt endpoints.
type Handler struct {
	logger       *slog.Logger
	fields       Service
	jwtValidator middleware.JWTValidator
}

// New creates a new field Handler.
func New(fields Service, logger *slog.Logger, jwtValidator middleware.JWTValidator) *Handler {
	return &Handler{
		logger:       logger,
		fields:       fields,
		jwtValidator: jwtValidator,
	}
}

// Register registers the field routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	fieldRouter := chi.NewRouter()
	fieldRouter.Use(middleware.Recovery(h.logger))
	fieldRouter.Use(middleware.RequestID)
	fieldRouter.Use(middleware.Logger(h.logger))
	fieldRouter.Use(middleware.Timeout(30 * time.Second))
	fieldRouter.Use(middleware.ContentTypeJSON)
	fieldRouter.Use(middleware.RequireAuth(h.jwtValidator, h.logger))
	fieldRouter.Post("/fields/encrypt", h.handleEncrypt)
	fieldRouter.Post("/fields/decrypt", h.handleDecrypt)

	r.Mount("/", fieldRouter)
}

type encryptRequest struct {
	InstanceID string `json:"onboarding_instance_id"`
	FieldKey   string `json:"field_key"`
	Value      string `json:"value"`
	Section    string `json:"section"`
}

type decryptRequest struct {
	InstanceID string `json:"onboarding_instance_id"`
	FieldKey   string `json:"field_key"`
}

func (h *Handler) handleEncrypt(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	ident, ok := h.identity(w, r)
	if !ok {
		return
	}

	var req encryptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.WarnContext(ctx, "invalid encrypt request",
			"request_id", requestID,
			"error", err.Error(),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	result, err := h.fields.EncryptField(ctx, ident, field.EncryptRequest{
		InstanceID: req.InstanceID,
		FieldKey:   req.FieldKey,
		Section:    req.Section,
		Value:      req.Value,
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) handleDecrypt(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	ident, ok := h.identity(w, r)
	if !ok {
		return
	}

	var req decryptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.WarnContext(ctx, "invalid decrypt request",
			"request_id", requestID,
			"error", err.Error(),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	result, err := h.fields.DecryptField(ctx, ident, field.DecryptRequest{
		InstanceID: req.InstanceID,
		FieldKey:   req.FieldKey,
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, result)
}

// identity pulls the authenticated caller from context. The auth middleware
// has already rejected anonymous requests, so a missing user ID here is a
// wiring bug, not a caller error.
func (h *Handler) identity(w http.ResponseWriter, r *http.Request) (access.Identity, bool) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	if userID == "" {
		h.logger.ErrorContext(ctx, "userID missing from context despite auth middleware",
			"request_id", middleware.GetRequestID(ctx),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "authentication context error"))
		return access.Identity{}, false
	}
	return access.Identity{
		UserID:   userID,
		ClientID: middleware.GetClientID(ctx),
	}, true
}
