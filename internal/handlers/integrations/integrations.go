// Package integrations implements the Strava OAuth connect flow and the
// integration management endpoints.
package integrations

import (
	"errors"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/lildude/fittrack/internal/cache"
	"github.com/lildude/fittrack/internal/database"
	"github.com/lildude/fittrack/internal/handlers/respond"
	"github.com/lildude/fittrack/internal/ingest"
	"github.com/lildude/fittrack/internal/middleware"
	"github.com/lildude/fittrack/internal/model"
	"github.com/lildude/fittrack/internal/strava"
)

const (
	stateKeyPrefix = "strava_state:"
	stateTTL       = 10 * time.Minute
)

// Handler holds the redis cache used for OAuth state nonces.
type Handler struct {
	Cache cache.Cache
}

func NewHandler(che cache.Cache) *Handler {
	return &Handler{Cache: che}
}

// ConnectStrava issues a single-use state nonce bound to the user and returns
// the Strava authorization URL.
func (h *Handler) ConnectStrava(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r)

	state := uuid.NewString()
	if err := h.Cache.SetEx(r.Context(), stateKeyPrefix+state, userID, stateTTL); err != nil {
		slog.Error("unable to store oauth state", "error", err)
		respond.Error(w, http.StatusInternalServerError, "unable to start strava connection")
		return
	}

	respond.JSON(w, http.StatusOK, map[string]string{
		"authUrl": strava.OauthConfig.AuthCodeURL(state),
	})
}

// StravaCallback handles the OAuth redirect: it validates and consumes the
// state nonce, exchanges the code and stores the token pair.
func (h *Handler) StravaCallback(w http.ResponseWriter, r *http.Request) {
	state := r.URL.Query().Get("state")
	code := r.URL.Query().Get("code")
	if state == "" || code == "" {
		respond.Error(w, http.StatusBadRequest, "missing state or code")
		return
	}

	v, err := h.Cache.Get(r.Context(), stateKeyPrefix+state)
	if err != nil {
		slog.Error("unable to load oauth state", "error", err)
		respond.Error(w, http.StatusInternalServerError, "unable to complete strava connection")
		return
	}
	userID, _ := v.(string)
	if userID == "" {
		respond.Error(w, http.StatusBadRequest, "state invalid or expired")
		return
	}
	// The nonce is single use regardless of how the exchange goes.
	if err := h.Cache.Del(r.Context(), stateKeyPrefix+state); err != nil {
		slog.Error("unable to delete oauth state", "error", err)
	}

	token, err := strava.OauthConfig.Exchange(r.Context(), code)
	if err != nil {
		slog.Error("token exchange failed", "error", err)
		respond.Error(w, http.StatusBadGateway, "strava token exchange failed")
		return
	}

	db, err := database.InitDB()
	if err != nil {
		respond.Error(w, http.StatusInternalServerError, "database unavailable")
		return
	}
	if err := strava.UpsertIntegration(db, userID, token, strava.AthleteFromToken(token)); err != nil {
		slog.Error("unable to store strava integration", "error", err)
		respond.Error(w, http.StatusInternalServerError, "unable to store strava connection")
		return
	}

	if frontend := os.Getenv("FRONTEND_URL"); frontend != "" {
		http.Redirect(w, r, frontend+"/settings?strava=connected", http.StatusFound)
		return
	}
	respond.JSON(w, http.StatusOK, map[string]string{"status": "connected"})
}

// SyncStrava imports the user's recent Strava activities.
func (h *Handler) SyncStrava(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r)
	db, err := database.InitDB()
	if err != nil {
		respond.Error(w, http.StatusInternalServerError, "database unavailable")
		return
	}

	limit := 30
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 && v <= 200 {
		limit = v
	}
	var after time.Time
	if v, err := strconv.ParseInt(r.URL.Query().Get("after"), 10, 64); err == nil && v > 0 {
		after = time.Unix(v, 0)
	}

	result, err := ingest.NewImporter(db).SyncStrava(r.Context(), userID, limit, after)
	if errors.Is(err, strava.ErrNotConnected) {
		respond.Error(w, http.StatusBadRequest, "strava is not connected")
		return
	}
	if err != nil {
		slog.Error("strava sync failed", "error", err)
		respond.Error(w, http.StatusBadGateway, "strava sync failed")
		return
	}
	respond.JSON(w, http.StatusOK, result)
}

// DisconnectStrava removes the user's Strava integration. Already imported
// workouts are kept.
func (h *Handler) DisconnectStrava(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r)
	db, err := database.InitDB()
	if err != nil {
		respond.Error(w, http.StatusInternalServerError, "database unavailable")
		return
	}

	if err := strava.Disconnect(db, userID); err != nil {
		slog.Error("unable to disconnect strava", "error", err)
		respond.Error(w, http.StatusInternalServerError, "unable to disconnect strava")
		return
	}
	respond.JSON(w, http.StatusOK, map[string]string{"status": "disconnected"})
}

// integrationResponse exposes connection status without the token pair.
type integrationResponse struct {
	Type        string    `json:"type"`
	IsActive    bool      `json:"isActive"`
	ConnectedAt time.Time `json:"connectedAt"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

// List returns the user's integrations.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r)
	db, err := database.InitDB()
	if err != nil {
		respond.Error(w, http.StatusInternalServerError, "database unavailable")
		return
	}

	var integrations []model.Integration
	if err := db.Where("user_id = ?", userID).Find(&integrations).Error; err != nil {
		slog.Error("unable to list integrations", "error", err)
		respond.Error(w, http.StatusInternalServerError, "failed to load integrations")
		return
	}

	resp := make([]integrationResponse, 0, len(integrations))
	for _, i := range integrations {
		resp = append(resp, integrationResponse{
			Type:        i.Type,
			IsActive:    i.IsActive,
			ConnectedAt: i.CreatedAt,
			ExpiresAt:   i.ExpiresAt,
		})
	}
	respond.JSON(w, http.StatusOK, resp)
}
