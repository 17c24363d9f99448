// Package workouts implements the workout CRUD handlers. Every query is
// scoped to the authenticated user.
package workouts

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/jackc/pgtype"
	"gorm.io/gorm"

	"github.com/lildude/fittrack/internal/database"
	"github.com/lildude/fittrack/internal/handlers/respond"
	"github.com/lildude/fittrack/internal/middleware"
	"github.com/lildude/fittrack/internal/model"
	"github.com/lildude/fittrack/internal/workout"
)

// workoutResponse is the API shape of a persisted workout.
type workoutResponse struct {
	ID                 uint            `json:"id"`
	Date               time.Time       `json:"date"`
	Type               string          `json:"type"`
	DistanceKm         float64         `json:"distanceKm"`
	DurationSec        float64         `json:"durationSec"`
	PaceSecPerKm       float64         `json:"paceSecPerKm"`
	ElevationGainM     float64         `json:"elevationGainM"`
	Calories           int             `json:"calories"`
	AvgHeartRate       *int            `json:"avgHeartRate"`
	AvgPace            string          `json:"avgPace,omitempty"`
	Effort             int             `json:"effort,omitempty"`
	EffortDesc         string          `json:"effortDesc,omitempty"`
	Source             string          `json:"source"`
	ProviderActivityID string          `json:"providerActivityId,omitempty"`
	SyntheticTimes     bool            `json:"syntheticTimes,omitempty"`
	Metadata           json.RawMessage `json:"metadata,omitempty"`
	Splits             []splitResponse `json:"splits,omitempty"`
	CreatedAt          time.Time       `json:"createdAt"`
}

type splitResponse struct {
	SplitNumber  int    `json:"splitNumber"`
	Time         string `json:"time"`
	Pace         string `json:"pace"`
	HeartRateBpm int    `json:"heartRateBpm,omitempty"`
}

func toResponse(w *model.Workout) workoutResponse {
	resp := workoutResponse{
		ID:                 w.ID,
		Date:               w.Date,
		Type:               w.Type,
		DistanceKm:         w.DistanceKm,
		DurationSec:        w.DurationSec,
		PaceSecPerKm:       w.PaceSecPerKm,
		ElevationGainM:     w.ElevationGainM,
		Calories:           w.Calories,
		AvgHeartRate:       w.AvgHeartRate,
		AvgPace:            w.AvgPace,
		Effort:             w.Effort,
		EffortDesc:         w.EffortDesc,
		Source:             w.Source,
		ProviderActivityID: w.ProviderActivityID,
		SyntheticTimes:     w.SyntheticTimes,
		CreatedAt:          w.CreatedAt,
	}
	if w.SourceMetadata.Status == pgtype.Present {
		resp.Metadata = json.RawMessage(w.SourceMetadata.Bytes)
	}
	for _, s := range w.Splits {
		resp.Splits = append(resp.Splits, splitResponse{
			SplitNumber:  s.SplitNumber,
			Time:         s.Time,
			Pace:         s.Pace,
			HeartRateBpm: s.HeartRateBpm,
		})
	}
	return resp
}

// ListHandler returns the user's workouts, newest first. Supports limit,
// offset, type and source query filters.
func ListHandler(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r)
	db, err := database.InitDB()
	if err != nil {
		slog.Error("unable to connect to database", "error", err)
		respond.Error(w, http.StatusInternalServerError, "database unavailable")
		return
	}

	limit := queryInt(r, "limit", 50)
	if limit > 200 {
		limit = 200
	}
	offset := queryInt(r, "offset", 0)

	q := db.Where("user_id = ?", userID).Order("date DESC").Limit(limit).Offset(offset)
	if t := r.URL.Query().Get("type"); t != "" {
		q = q.Where("type = ?", t)
	}
	if s := r.URL.Query().Get("source"); s != "" {
		q = q.Where("source = ?", s)
	}

	var workouts []model.Workout
	if err := q.Preload("Splits", func(db *gorm.DB) *gorm.DB {
		return db.Order("split_number ASC")
	}).Find(&workouts).Error; err != nil {
		slog.Error("unable to list workouts", "error", err)
		respond.Error(w, http.StatusInternalServerError, "failed to load workouts")
		return
	}

	resp := make([]workoutResponse, 0, len(workouts))
	for i := range workouts {
		resp = append(resp, toResponse(&workouts[i]))
	}
	respond.JSON(w, http.StatusOK, resp)
}

// GetHandler returns a single workout with its splits in order.
func GetHandler(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r)
	db, err := database.InitDB()
	if err != nil {
		respond.Error(w, http.StatusInternalServerError, "database unavailable")
		return
	}

	wk, ok := load(w, r, db, userID, true)
	if !ok {
		return
	}
	respond.JSON(w, http.StatusOK, toResponse(wk))
}

// createRequest is the payload for a manually logged workout.
type createRequest struct {
	Date           time.Time       `json:"date"`
	Type           string          `json:"type"`
	DistanceKm     float64         `json:"distanceKm"`
	DurationSec    float64         `json:"durationSec"`
	ElevationGainM float64         `json:"elevationGainM"`
	Calories       int             `json:"calories"`
	AvgHeartRate   *int            `json:"avgHeartRate"`
	Effort         int             `json:"effort"`
	EffortDesc     string          `json:"effortDesc"`
	Splits         []workout.Split `json:"splits"`
}

var validTypes = map[string]bool{
	workout.TypeRun:     true,
	workout.TypeWalk:    true,
	workout.TypeHike:    true,
	workout.TypeCycling: true,
	workout.TypeSwim:    true,
}

// CreateHandler logs a manual workout.
func CreateHandler(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r)
	db, err := database.InitDB()
	if err != nil {
		respond.Error(w, http.StatusInternalServerError, "database unavailable")
		return
	}

	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if !validTypes[req.Type] {
		respond.Error(w, http.StatusBadRequest, "invalid workout type")
		return
	}
	if req.Date.IsZero() {
		req.Date = time.Now()
	}

	wk := &model.Workout{
		UserID:         userID,
		Date:           req.Date,
		Type:           req.Type,
		DistanceKm:     req.DistanceKm,
		DurationSec:    req.DurationSec,
		PaceSecPerKm:   workout.Pace(req.DurationSec, req.DistanceKm),
		ElevationGainM: req.ElevationGainM,
		Calories:       req.Calories,
		AvgHeartRate:   req.AvgHeartRate,
		Effort:         req.Effort,
		EffortDesc:     req.EffortDesc,
		Source:         string(workout.SourceManual),
	}
	_ = wk.SourceMetadata.Set(struct{}{})
	for _, s := range req.Splits {
		wk.Splits = append(wk.Splits, model.Split{
			SplitNumber:  s.SplitNumber,
			Time:         s.Time,
			Pace:         s.Pace,
			HeartRateBpm: s.HeartRateBpm,
		})
	}

	if err := db.Create(wk).Error; err != nil {
		slog.Error("unable to create workout", "error", err)
		respond.Error(w, http.StatusInternalServerError, "failed to save workout")
		return
	}
	respond.JSON(w, http.StatusCreated, toResponse(wk))
}

// updateRequest carries the mutable fields. Source and provider id are fixed
// at import time and cannot be rewritten.
type updateRequest struct {
	Date           *time.Time `json:"date"`
	Type           *string    `json:"type"`
	DistanceKm     *float64   `json:"distanceKm"`
	DurationSec    *float64   `json:"durationSec"`
	ElevationGainM *float64   `json:"elevationGainM"`
	Calories       *int       `json:"calories"`
	AvgHeartRate   *int       `json:"avgHeartRate"`
	Effort         *int       `json:"effort"`
	EffortDesc     *string    `json:"effortDesc"`
}

// UpdateHandler applies a partial update to a workout.
func UpdateHandler(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r)
	db, err := database.InitDB()
	if err != nil {
		respond.Error(w, http.StatusInternalServerError, "database unavailable")
		return
	}

	wk, ok := load(w, r, db, userID, false)
	if !ok {
		return
	}

	var req updateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Type != nil && !validTypes[*req.Type] {
		respond.Error(w, http.StatusBadRequest, "invalid workout type")
		return
	}

	if req.Date != nil {
		wk.Date = *req.Date
	}
	if req.Type != nil {
		wk.Type = *req.Type
	}
	if req.DistanceKm != nil {
		wk.DistanceKm = *req.DistanceKm
	}
	if req.DurationSec != nil {
		wk.DurationSec = *req.DurationSec
	}
	if req.ElevationGainM != nil {
		wk.ElevationGainM = *req.ElevationGainM
	}
	if req.Calories != nil {
		wk.Calories = *req.Calories
	}
	if req.AvgHeartRate != nil {
		wk.AvgHeartRate = req.AvgHeartRate
	}
	if req.Effort != nil {
		wk.Effort = *req.Effort
	}
	if req.EffortDesc != nil {
		wk.EffortDesc = *req.EffortDesc
	}
	// Distance or duration changes invalidate the stored pace.
	if req.DistanceKm != nil || req.DurationSec != nil {
		wk.PaceSecPerKm = workout.Pace(wk.DurationSec, wk.DistanceKm)
	}

	if err := db.Save(wk).Error; err != nil {
		slog.Error("unable to update workout", "error", err)
		respond.Error(w, http.StatusInternalServerError, "failed to update workout")
		return
	}
	respond.JSON(w, http.StatusOK, toResponse(wk))
}

// DeleteHandler removes a workout and its splits.
func DeleteHandler(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r)
	db, err := database.InitDB()
	if err != nil {
		respond.Error(w, http.StatusInternalServerError, "database unavailable")
		return
	}

	wk, ok := load(w, r, db, userID, false)
	if !ok {
		return
	}

	if err := db.Where("workout_id = ?", wk.ID).Delete(&model.Split{}).Error; err != nil {
		slog.Error("unable to delete splits", "error", err)
		respond.Error(w, http.StatusInternalServerError, "failed to delete workout")
		return
	}
	if err := db.Delete(wk).Error; err != nil {
		slog.Error("unable to delete workout", "error", err)
		respond.Error(w, http.StatusInternalServerError, "failed to delete workout")
		return
	}
	respond.JSON(w, http.StatusOK, map[string]interface{}{"deleted": wk.ID})
}

// load fetches the path-addressed workout scoped to the user, writing the
// error response itself on failure.
func load(w http.ResponseWriter, r *http.Request, db *gorm.DB, userID string, withSplits bool) (*model.Workout, bool) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid workout id")
		return nil, false
	}

	q := db.Where("user_id = ?", userID)
	if withSplits {
		q = q.Preload("Splits", func(db *gorm.DB) *gorm.DB {
			return db.Order("split_number ASC")
		})
	}

	var wk model.Workout
	if err := q.First(&wk, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respond.Error(w, http.StatusNotFound, "workout not found")
		} else {
			slog.Error("unable to load workout", "error", err)
			respond.Error(w, http.StatusInternalServerError, "failed to load workout")
		}
		return nil, false
	}
	return &wk, true
}

func queryInt(r *http.Request, key string, def int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return def
	}
	return n
}
