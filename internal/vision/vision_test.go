package vision

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/lildude/fittrack/internal/workout"
)

func TestNormalize(t *testing.T) {
	ext := &Extraction{
		Date:              "2025-10-13",
		WorkoutType:       "Outdoor Run",
		WorkoutTime:       "1:02:30",
		DistanceKm:        12.1,
		ActiveKcal:        640,
		TotalKcal:         702,
		ElevationGainM:    132,
		AvgPace:           `5'10"/km`,
		AvgHeartRateBpm:   148,
		EffortLevel:       6,
		EffortDescription: "moderate",
		Splits: []workout.Split{
			{SplitNumber: 1, Time: "5:05", Pace: `5'05"/km`, HeartRateBpm: 141},
			{SplitNumber: 2, Time: "5:12", Pace: `5'12"/km`, HeartRateBpm: 149},
		},
	}

	rec, err := Normalize(ext, "user-1", workout.ScreenshotMetadata{OCRConfidence: 91})
	if err != nil {
		t.Fatalf("Normalize() returned error: %v", err)
	}

	if rec.Source != workout.SourceScreenshot {
		t.Errorf("Source = %q, want %q", rec.Source, workout.SourceScreenshot)
	}
	if rec.Type != workout.TypeRun {
		t.Errorf("Type = %q, want Run", rec.Type)
	}
	if got := rec.Date.Format("2006-01-02"); got != "2025-10-13" {
		t.Errorf("Date = %s, want 2025-10-13", got)
	}
	if rec.DurationSec != 3750 {
		t.Errorf("DurationSec = %f, want 3750", rec.DurationSec)
	}
	// Active calories win over the total when both are present.
	if rec.Calories != 640 {
		t.Errorf("Calories = %d, want 640", rec.Calories)
	}
	if rec.AvgHeartRate == nil || *rec.AvgHeartRate != 148 {
		t.Errorf("AvgHeartRate = %v, want 148", rec.AvgHeartRate)
	}
	if rec.EffortDesc != "Moderate" {
		t.Errorf("EffortDesc = %q, want Moderate", rec.EffortDesc)
	}
	if rec.AvgPace != `5'10"/km` {
		t.Errorf("AvgPace = %q, want carried through unchanged", rec.AvgPace)
	}
	if len(rec.Splits) != 2 || rec.Splits[1].HeartRateBpm != 149 {
		t.Errorf("Splits = %+v", rec.Splits)
	}
	meta, ok := rec.Metadata.(workout.ScreenshotMetadata)
	if !ok || meta.OCRConfidence != 91 {
		t.Errorf("Metadata = %+v", rec.Metadata)
	}
}

func TestNormalizeBadDate(t *testing.T) {
	_, err := Normalize(&Extraction{Date: "sometime last week"}, "user-1", workout.ScreenshotMetadata{})
	var extErr *workout.ExtractionError
	if !errors.As(err, &extErr) {
		t.Errorf("error is %T, want *workout.ExtractionError", err)
	}
}

func TestNormalizeDefaults(t *testing.T) {
	rec, err := Normalize(&Extraction{Date: "2025-01-05", WorkoutType: "Pool Swim"}, "user-1", workout.ScreenshotMetadata{})
	if err != nil {
		t.Fatalf("Normalize() returned error: %v", err)
	}
	if rec.Type != workout.TypeSwim {
		t.Errorf("Type = %q, want Swim", rec.Type)
	}
	if rec.Effort != 5 || rec.EffortDesc != "Moderate" {
		t.Errorf("Effort = %d %q, want default 5 Moderate", rec.Effort, rec.EffortDesc)
	}
	if rec.AvgHeartRate != nil {
		t.Errorf("AvgHeartRate = %v, want nil", *rec.AvgHeartRate)
	}
}

func TestParseClock(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"1:02:30", 3750},
		{"45:10", 2710},
		{"0:00", 0},
		{"garbage", 0},
		{"1:2:3:4", 0},
	}
	for _, tc := range tests {
		if got := parseClock(tc.in); got != tc.want {
			t.Errorf("parseClock(%q) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestMapWorkoutType(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Outdoor Walk", workout.TypeWalk},
		{"Indoor Cycling", workout.TypeCycling},
		{"Mountain Bike Ride", workout.TypeCycling},
		{"Trail Hike", workout.TypeHike},
		{"Open Water Swim", workout.TypeSwim},
		{"Treadmill Run", workout.TypeRun},
		{"Unknown Activity", workout.TypeRun},
	}
	for _, tc := range tests {
		if got := mapWorkoutType(tc.in); got != tc.want {
			t.Errorf("mapWorkoutType(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestGeminiExtractWorkout(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "test-key")

	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	mux.HandleFunc("/v1beta/models/gemini-2.5-flash:generateContent", func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("key"); got != "test-key" {
			t.Errorf("key = %q, want test-key", got)
		}
		fmt.Fprintln(w, `{"candidates":[{"content":{"parts":[{"text":"Here you go:\n{\"date\":\"2025-10-13\",\"workoutType\":\"Run\",\"distanceKm\":5.2}"}]}}]}`)
	})

	g, err := NewGeminiExtractor(server.URL)
	if err != nil {
		t.Fatalf("NewGeminiExtractor() returned error: %v", err)
	}

	ext, err := g.ExtractWorkout(context.Background(), "5.2 km Run", nil)
	if err != nil {
		t.Fatalf("ExtractWorkout() returned error: %v", err)
	}
	if ext.Date != "2025-10-13" || ext.DistanceKm != 5.2 {
		t.Errorf("extraction = %+v", ext)
	}
}

func TestGeminiNoJSONInResponse(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "test-key")

	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	mux.HandleFunc("/v1beta/models/gemini-2.5-flash:generateContent", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, `{"candidates":[{"content":{"parts":[{"text":"I could not read the screenshot."}]}}]}`)
	})

	g, _ := NewGeminiExtractor(server.URL)
	_, err := g.ExtractWorkout(context.Background(), "", nil)
	var extErr *workout.ExtractionError
	if !errors.As(err, &extErr) {
		t.Errorf("error is %T, want *workout.ExtractionError", err)
	}
}

func TestGeminiMissingAPIKey(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	_, err := NewGeminiExtractor("")
	var extErr *workout.ExtractionError
	if !errors.As(err, &extErr) {
		t.Errorf("error is %T, want *workout.ExtractionError", err)
	}
}

func TestParseTSV(t *testing.T) {
	tsv := "level\tpage_num\tblock_num\tpar_num\tline_num\tword_num\tleft\ttop\twidth\theight\tconf\ttext\n" +
		"1\t1\t0\t0\t0\t0\t0\t0\t100\t100\t-1\t\n" +
		"5\t1\t1\t1\t1\t1\t10\t10\t40\t12\t96\t5.2\n" +
		"5\t1\t1\t1\t1\t2\t55\t10\t30\t12\t88\tkm\n"

	got := parseTSV(tsv)
	if got.Text != "5.2 km" {
		t.Errorf("Text = %q, want %q", got.Text, "5.2 km")
	}
	if got.Confidence != 92 {
		t.Errorf("Confidence = %d, want 92", got.Confidence)
	}
}
