package gpx

import (
	"errors"
	"math"
	"os"
	"testing"
	"time"

	"github.com/lildude/fittrack/internal/workout"
)

func TestNormalize(t *testing.T) {
	data, err := os.ReadFile("testdata/run.gpx")
	if err != nil {
		t.Fatal(err)
	}

	rec, err := Normalize(data, "user-1", "run.gpx")
	if err != nil {
		t.Fatalf("Normalize() returned error: %v", err)
	}

	if rec.UserID != "user-1" {
		t.Errorf("UserID = %q, want user-1", rec.UserID)
	}
	if rec.Source != workout.SourceGPXFile {
		t.Errorf("Source = %q, want %q", rec.Source, workout.SourceGPXFile)
	}
	if rec.Type != workout.TypeRun {
		t.Errorf("Type = %q, want Run", rec.Type)
	}
	if rec.SyntheticTimes {
		t.Error("SyntheticTimes = true for a file with timestamps")
	}

	wantStart := time.Date(2025, 10, 13, 6, 30, 0, 0, time.UTC)
	if !rec.Date.Equal(wantStart) {
		t.Errorf("Date = %v, want %v", rec.Date, wantStart)
	}
	if rec.DurationSec != 180 {
		t.Errorf("DurationSec = %f, want 180", rec.DurationSec)
	}

	// Four points roughly 130m apart.
	if rec.DistanceKm < 0.3 || rec.DistanceKm > 0.5 {
		t.Errorf("DistanceKm = %f, want ~0.4", rec.DistanceKm)
	}
	if math.Abs(rec.PaceSecPerKm-180/rec.DistanceKm) > 1e-9 {
		t.Errorf("PaceSecPerKm = %f, want duration/distance", rec.PaceSecPerKm)
	}

	// 10 → 18 (+8), 18 → 14 (dropped), 14 → 22 (+8).
	if math.Abs(rec.ElevationGainM-16) > 1e-9 {
		t.Errorf("ElevationGainM = %f, want 16", rec.ElevationGainM)
	}

	// Mean of 120, 130, 131; the fourth point has no heart rate extension.
	if rec.AvgHeartRate == nil || *rec.AvgHeartRate != 127 {
		t.Errorf("AvgHeartRate = %v, want 127", rec.AvgHeartRate)
	}

	meta, ok := rec.Metadata.(workout.GPXMetadata)
	if !ok {
		t.Fatalf("Metadata is %T, want GPXMetadata", rec.Metadata)
	}
	if meta.TotalPoints != 4 || meta.Segments != 1 {
		t.Errorf("metadata points/segments = %d/%d, want 4/1", meta.TotalPoints, meta.Segments)
	}
	if meta.TrackName != "Morning Run" || meta.TrackType != "running" {
		t.Errorf("metadata name/type = %q/%q", meta.TrackName, meta.TrackType)
	}
}

func TestNormalizeNoTracks(t *testing.T) {
	data, err := os.ReadFile("testdata/no_tracks.gpx")
	if err != nil {
		t.Fatal(err)
	}

	_, err = Normalize(data, "user-1", "no_tracks.gpx")
	if err == nil {
		t.Fatal("Normalize() succeeded for a GPX file with no tracks")
	}
	var parseErr *workout.ParseError
	if !errors.As(err, &parseErr) {
		t.Errorf("error is %T, want *workout.ParseError", err)
	}
}

func TestNormalizeGarbage(t *testing.T) {
	_, err := Normalize([]byte("not xml at all"), "user-1", "junk.gpx")
	var parseErr *workout.ParseError
	if !errors.As(err, &parseErr) {
		t.Errorf("error is %T, want *workout.ParseError", err)
	}
}

func TestNormalizeMissingTimestamps(t *testing.T) {
	data, err := os.ReadFile("testdata/no_timestamps.gpx")
	if err != nil {
		t.Fatal(err)
	}

	before := time.Now()
	rec, err := Normalize(data, "user-1", "no_timestamps.gpx")
	if err != nil {
		t.Fatalf("Normalize() returned error: %v", err)
	}

	if !rec.SyntheticTimes {
		t.Error("SyntheticTimes = false for a file without timestamps")
	}
	if rec.Date.Before(before) {
		t.Errorf("Date = %v, want fallback to now", rec.Date)
	}
	if rec.DurationSec != 0 {
		t.Errorf("DurationSec = %f, want 0 for synthesized times", rec.DurationSec)
	}
	if rec.Type != workout.TypeWalk {
		t.Errorf("Type = %q, want Walk", rec.Type)
	}
	if rec.AvgHeartRate != nil {
		t.Errorf("AvgHeartRate = %v, want nil", *rec.AvgHeartRate)
	}
}
