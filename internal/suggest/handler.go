package suggest

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"

	"github.com/ribbon-app/ribbon/internal/api"
	"github.com/ribbon-app/ribbon/internal/middleware"
	"github.com/ribbon-app/ribbon/internal/quota"
)

// Handler serves the /suggestions endpoints.
type Handler struct {
	service  *Service
	validate *validator.Validate
}

func NewHandler(service *Service) *Handler {
	return &Handler{
		service:  service,
		validate: validator.New(),
	}
}

type refineRequest struct {
	GiftRequest
	Feedback string `json:"feedback" validate:"required,max=500"`
}

func (h *Handler) Generate(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.AuthClaimsFromContext(r.Context())
	if !ok {
		api.HandleError(w, api.ErrUnauthorized)
		return
	}

	var req GiftRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.HandleError(w, api.ErrBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		api.HandleError(w, api.NewValidationError("recipient, relationship and occasion are required"))
		return
	}

	res, err := h.service.Generate(r.Context(), claims.UserID, claims.Tier, req)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	api.JSON(w, http.StatusOK, res)
}

func (h *Handler) Refine(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.AuthClaimsFromContext(r.Context())
	if !ok {
		api.HandleError(w, api.ErrUnauthorized)
		return
	}

	var req refineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.HandleError(w, api.ErrBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		api.HandleError(w, api.NewValidationError("feedback is required"))
		return
	}

	res, err := h.service.Refine(r.Context(), claims.UserID, claims.Tier, req.GiftRequest, req.Feedback)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	api.JSON(w, http.StatusOK, res)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.AuthClaimsFromContext(r.Context())
	if !ok {
		api.HandleError(w, api.ErrUnauthorized)
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	history, err := h.service.History(r.Context(), claims.UserID, limit)
	if err != nil {
		slog.Error("listing suggestion history", "user_id", claims.UserID, "error", err)
		api.HandleError(w, api.ErrInternalServer)
		return
	}

	api.JSON(w, http.StatusOK, history)
}

func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	var denied *DeniedError
	if errors.As(err, &denied) {
		status := http.StatusTooManyRequests
		message := "daily limit reached"
		switch denied.Decision.Reason {
		case quota.ReasonNotEntitled:
			status = http.StatusForbidden
			message = "refinement requires a premium subscription"
		case quota.ReasonStoreUnavailable:
			status = http.StatusServiceUnavailable
			message = "quota state unavailable, try again later"
		}
		api.JSONDenied(w, status, message, denied.Decision)
		return
	}

	if errors.Is(err, ErrNothingToRefine) {
		api.HandleError(w, api.NewBadRequestError("generate suggestions before refining"))
		return
	}

	if errors.Is(err, ErrEngine) {
		slog.Error("suggestion engine", "error", err)
		api.HandleError(w, api.ErrEngineUnavailable)
		return
	}

	slog.Error("suggestion pipeline", "error", err)
	api.HandleError(w, api.ErrInternalServer)
}
