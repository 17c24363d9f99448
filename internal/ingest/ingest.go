// Package ingest persists normalized workout records, applying per-source
// duplicate detection so imports are idempotent.
package ingest

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/lildude/fittrack/internal/fitfile"
	"github.com/lildude/fittrack/internal/gpx"
	"github.com/lildude/fittrack/internal/logger"
	"github.com/lildude/fittrack/internal/model"
	"github.com/lildude/fittrack/internal/workout"
)

// ErrDuplicate is returned when a record matches a previously imported
// workout. The duplicate is skipped, never merged.
var ErrDuplicate = errors.New("workout already imported")

// File statuses reported per batch entry.
const (
	StatusImported  = "imported"
	StatusDuplicate = "skipped_duplicate"
	StatusError     = "error"
)

// Importer routes normalized records into the database.
type Importer struct {
	db  *gorm.DB
	log logrus.FieldLogger
}

func NewImporter(db *gorm.DB) *Importer {
	return &Importer{db: db, log: logger.NewLogger()}
}

// ImportRecord persists a record unless its duplicate key already exists.
// API-sourced records (those with a provider activity id) are keyed on
// (user, source, provider id); file-sourced ones on (user, source, date,
// distance).
func (im *Importer) ImportRecord(rec *workout.Record) (*model.Workout, error) {
	dup, err := im.findDuplicate(rec)
	if err != nil {
		return nil, err
	}
	if dup != nil {
		im.log.WithFields(logrus.Fields{
			"user_id": rec.UserID,
			"source":  rec.Source,
			"matched": dup.ID,
		}).Info("skipping duplicate workout")
		return dup, ErrDuplicate
	}

	w, err := toModel(rec)
	if err != nil {
		return nil, err
	}
	if err := im.db.Create(w).Error; err != nil {
		return nil, fmt.Errorf("saving workout: %w", err)
	}

	im.log.WithFields(logrus.Fields{
		"user_id":    rec.UserID,
		"source":     rec.Source,
		"workout_id": w.ID,
	}).Info("imported workout")
	return w, nil
}

func (im *Importer) findDuplicate(rec *workout.Record) (*model.Workout, error) {
	var existing model.Workout
	q := im.db.Where("user_id = ? AND source = ?", rec.UserID, string(rec.Source))
	if rec.ProviderActivityID != "" {
		q = q.Where("provider_activity_id = ?", rec.ProviderActivityID)
	} else {
		q = q.Where("date = ? AND distance_km = ?", rec.Date, rec.DistanceKm)
	}

	err := q.First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("checking for duplicate workout: %w", err)
	}
	return &existing, nil
}

// toModel converts a canonical record into its persisted form, serializing
// the typed metadata variant into the JSON column.
func toModel(rec *workout.Record) (*model.Workout, error) {
	w := &model.Workout{
		UserID:             rec.UserID,
		Date:               rec.Date,
		Type:               rec.Type,
		DistanceKm:         rec.DistanceKm,
		DurationSec:        rec.DurationSec,
		PaceSecPerKm:       rec.PaceSecPerKm,
		ElevationGainM:     rec.ElevationGainM,
		Calories:           rec.Calories,
		AvgHeartRate:       rec.AvgHeartRate,
		AvgPace:            rec.AvgPace,
		Effort:             rec.Effort,
		EffortDesc:         rec.EffortDesc,
		Source:             string(rec.Source),
		ProviderActivityID: rec.ProviderActivityID,
		SyntheticTimes:     rec.SyntheticTimes,
	}

	var meta interface{} = rec.Metadata
	if rec.Metadata == nil {
		meta = struct{}{}
	}
	if err := w.SourceMetadata.Set(meta); err != nil {
		return nil, fmt.Errorf("encoding source metadata: %w", err)
	}

	for _, s := range rec.Splits {
		w.Splits = append(w.Splits, model.Split{
			SplitNumber:  s.SplitNumber,
			Time:         s.Time,
			Pace:         s.Pace,
			HeartRateBpm: s.HeartRateBpm,
		})
	}

	return w, nil
}

// ImportFile normalizes and persists a single uploaded activity file, routed
// by extension.
func (im *Importer) ImportFile(userID, fileName string, data []byte) (*model.Workout, error) {
	rec, err := normalizeFile(userID, fileName, data)
	if err != nil {
		return nil, err
	}
	return im.ImportRecord(rec)
}

func normalizeFile(userID, fileName string, data []byte) (*workout.Record, error) {
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".gpx":
		return gpx.Normalize(data, userID, fileName)
	case ".fit":
		return fitfile.Normalize(data, userID, fileName)
	default:
		return nil, fmt.Errorf("unsupported file type %q", filepath.Ext(fileName))
	}
}

// BatchFile is one entry of a multi-file upload.
type BatchFile struct {
	Name string
	Data []byte
}

// FileResult reports the outcome for one batch entry.
type FileResult struct {
	FileName  string `json:"fileName"`
	Status    string `json:"status"`
	WorkoutID uint   `json:"workoutId,omitempty"`
	Error     string `json:"error,omitempty"`
}

// BatchResult aggregates a multi-file import.
type BatchResult struct {
	Imported int          `json:"imported"`
	Skipped  int          `json:"skipped"`
	Errors   int          `json:"errors"`
	Details  []FileResult `json:"details"`
}

// ImportBatch imports each file independently. One bad file never aborts the
// batch; its failure is recorded and the loop moves on.
func (im *Importer) ImportBatch(userID string, files []BatchFile) *BatchResult {
	result := &BatchResult{Details: make([]FileResult, 0, len(files))}

	for _, f := range files {
		w, err := im.ImportFile(userID, f.Name, f.Data)
		detail := FileResult{FileName: f.Name}
		switch {
		case errors.Is(err, ErrDuplicate):
			result.Skipped++
			detail.Status = StatusDuplicate
			detail.WorkoutID = w.ID
		case err != nil:
			result.Errors++
			detail.Status = StatusError
			detail.Error = err.Error()
		default:
			result.Imported++
			detail.Status = StatusImported
			detail.WorkoutID = w.ID
		}
		result.Details = append(result.Details, detail)
	}

	return result
}
