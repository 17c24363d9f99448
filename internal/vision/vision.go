// Package vision turns workout screenshots into canonical workout records.
// Text extraction and the AI field extraction are external services behind
// single-method interfaces so tests can substitute deterministic fixtures.
package vision

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/lildude/fittrack/internal/workout"
)

// OCRResult is the raw text pulled from a screenshot.
type OCRResult struct {
	Text       string
	Confidence int // 0-100
}

// TextExtractor extracts text from an image on disk.
type TextExtractor interface {
	ExtractText(ctx context.Context, imagePath string) (OCRResult, error)
}

// WorkoutExtractor turns OCR text (plus the image itself, for multimodal
// models) into structured workout fields.
type WorkoutExtractor interface {
	ExtractWorkout(ctx context.Context, ocrText string, image []byte) (*Extraction, error)
}

// Extraction is the structured JSON the AI service returns. Fields the
// screenshot didn't show are left at their zero value.
type Extraction struct {
	Date              string          `json:"date"` // YYYY-MM-DD
	WorkoutType       string          `json:"workoutType"`
	WorkoutTime       string          `json:"workoutTime"` // H:MM:SS
	ElapsedTime       string          `json:"elapsedTime,omitempty"`
	DistanceKm        float64         `json:"distanceKm"`
	ActiveKcal        int             `json:"activeKcal"`
	TotalKcal         int             `json:"totalKcal"`
	ElevationGainM    float64         `json:"elevationGainM"`
	AvgPace           string          `json:"avgPace"`
	AvgHeartRateBpm   int             `json:"avgHeartRateBpm"`
	EffortLevel       int             `json:"effortLevel"`
	EffortDescription string          `json:"effortDescription"`
	Splits            []workout.Split `json:"splits,omitempty"`
}

var titleCaser = cases.Title(language.English)

// Normalize maps an extraction onto the canonical record. The extraction is
// trusted: no metrics are recomputed, only structure is mapped and the date
// coerced to a timestamp.
func Normalize(ext *Extraction, userID string, meta workout.ScreenshotMetadata) (*workout.Record, error) {
	date, err := parseDate(ext.Date)
	if err != nil {
		return nil, &workout.ExtractionError{Msg: fmt.Sprintf("unusable date %q", ext.Date), Err: err}
	}

	durationSec := float64(parseClock(ext.WorkoutTime))

	var avgHeartRate *int
	if ext.AvgHeartRateBpm > 0 {
		hr := ext.AvgHeartRateBpm
		avgHeartRate = &hr
	}

	calories := ext.ActiveKcal
	if calories == 0 {
		calories = ext.TotalKcal
	}

	effort := ext.EffortLevel
	effortDesc := titleCaser.String(strings.ToLower(ext.EffortDescription))
	if effort == 0 && effortDesc == "" {
		effort, effortDesc = 5, "Moderate"
	}

	rec := &workout.Record{
		UserID:         userID,
		Date:           date,
		Type:           mapWorkoutType(ext.WorkoutType),
		DistanceKm:     ext.DistanceKm,
		DurationSec:    durationSec,
		PaceSecPerKm:   workout.Pace(durationSec, ext.DistanceKm),
		ElevationGainM: ext.ElevationGainM,
		Calories:       calories,
		AvgHeartRate:   avgHeartRate,
		AvgPace:        ext.AvgPace,
		Effort:         effort,
		EffortDesc:     effortDesc,
		Source:         workout.SourceScreenshot,
		Metadata:       meta,
		Splits:         ext.Splits,
	}

	return rec, nil
}

func parseDate(s string) (time.Time, error) {
	for _, layout := range []string{"2006-01-02", time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("date %q matches no known layout", s)
}

// parseClock converts H:MM:SS or MM:SS to seconds; unparseable input yields 0.
func parseClock(s string) int {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0
	}
	total := 0
	for _, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return 0
		}
		total = total*60 + n
	}
	return total
}

// mapWorkoutType coerces free-form labels like "Outdoor Walk" onto the
// canonical closed set.
func mapWorkoutType(label string) string {
	l := strings.ToLower(label)
	switch {
	case strings.Contains(l, "walk"):
		return workout.TypeWalk
	case strings.Contains(l, "hike") || strings.Contains(l, "hiking"):
		return workout.TypeHike
	case strings.Contains(l, "cycl") || strings.Contains(l, "ride") || strings.Contains(l, "bike"):
		return workout.TypeCycling
	case strings.Contains(l, "swim"):
		return workout.TypeSwim
	default:
		return workout.TypeRun
	}
}
