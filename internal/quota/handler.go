package quota

import (
	"net/http"

	"github.com/ribbon-app/ribbon/internal/api"
	"github.com/ribbon-app/ribbon/internal/middleware"
	"github.com/ribbon-app/ribbon/internal/users"
)

// Handler serves the quota status endpoint.
type Handler struct {
	tracker *Tracker
}

func NewHandler(tracker *Tracker) *Handler {
	return &Handler{tracker: tracker}
}

// GetQuota returns the caller's current usage and limits. The tier comes
// from the access token claims, so a tier change takes effect on the next
// token refresh.
func (h *Handler) GetQuota(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.AuthClaimsFromContext(r.Context())
	if !ok {
		api.HandleError(w, api.ErrUnauthorized)
		return
	}

	status := h.tracker.Status(r.Context(), claims.UserID.String(), claims.Tier == users.TierPremium)
	api.JSON(w, http.StatusOK, status)
}
