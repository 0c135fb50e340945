package auth

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"

	"github.com/ribbon-app/ribbon/internal/api"
	"github.com/ribbon-app/ribbon/internal/metrics"
	"github.com/ribbon-app/ribbon/internal/quota"
)

// Handler serves the /auth endpoints. Login is gated by the attempt
// limiter: a locked identity is rejected before the password is even
// checked, and failures feed the limiter.
type Handler struct {
	service  *Service
	limiter  *quota.AttemptLimiter
	validate *validator.Validate
}

func NewHandler(service *Service, limiter *quota.AttemptLimiter) *Handler {
	return &Handler{
		service:  service,
		limiter:  limiter,
		validate: validator.New(),
	}
}

type registerRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type authResponse struct {
	UserID string     `json:"user_id"`
	Email  string     `json:"email"`
	Tier   string     `json:"tier"`
	Tokens *TokenPair `json:"tokens"`
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.HandleError(w, api.ErrBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		api.HandleError(w, api.NewValidationError("email and password (8-72 chars) are required"))
		return
	}

	u, pair, err := h.service.Register(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, ErrEmailTaken) {
			api.HandleError(w, api.ErrEmailAlreadyExists)
			return
		}
		slog.Error("registering user", "error", err)
		api.HandleError(w, api.ErrInternalServer)
		return
	}

	api.JSON(w, http.StatusCreated, authResponse{
		UserID: u.ID.String(),
		Email:  u.Email,
		Tier:   u.Tier,
		Tokens: pair,
	})
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.HandleError(w, api.ErrBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		api.HandleError(w, api.NewValidationError("email and password are required"))
		return
	}

	// Locked identities are bounced before the password is verified, so a
	// lockout also rate-limits the bcrypt work.
	if st := h.limiter.Check(r.Context(), req.Email); !st.Allowed {
		writeLockedOut(w, st)
		return
	}

	u, pair, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			st := h.limiter.RecordAttempt(r.Context(), req.Email, false)
			if !st.Allowed {
				metrics.LockoutsTotal.Inc()
				h.service.AuditLoginFailure(r.Context(), req.Email, true)
				writeLockedOut(w, st)
				return
			}
			h.service.AuditLoginFailure(r.Context(), req.Email, false)
			api.HandleError(w, api.ErrInvalidCredentials)
			return
		}
		slog.Error("logging in", "error", err)
		api.HandleError(w, api.ErrInternalServer)
		return
	}

	h.limiter.RecordAttempt(r.Context(), req.Email, true)

	api.JSON(w, http.StatusOK, authResponse{
		UserID: u.ID.String(),
		Email:  u.Email,
		Tier:   u.Tier,
		Tokens: pair,
	})
}

func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.HandleError(w, api.ErrBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		api.HandleError(w, api.NewValidationError("refresh_token is required"))
		return
	}

	pair, err := h.service.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) || errors.Is(err, ErrTokenRevoked) {
			api.HandleError(w, api.ErrInvalidToken)
			return
		}
		slog.Error("refreshing tokens", "error", err)
		api.HandleError(w, api.ErrInternalServer)
		return
	}

	api.JSON(w, http.StatusOK, pair)
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.HandleError(w, api.ErrBadRequest)
		return
	}

	if err := h.service.Logout(r.Context(), req.RefreshToken); err != nil {
		slog.Error("logging out", "error", err)
		api.HandleError(w, api.ErrInternalServer)
		return
	}

	api.JSONMessage(w, http.StatusOK, "logged out")
}

func writeLockedOut(w http.ResponseWriter, st quota.AttemptStatus) {
	w.Header().Set("Retry-After", strconv.Itoa(st.RemainingSeconds))
	api.JSONDenied(w, http.StatusTooManyRequests, "too many failed login attempts", st)
}
