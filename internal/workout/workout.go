// Package workout defines the canonical workout record every ingestion source
// is normalized into, the closed set of sources and types, and the typed
// per-source metadata variants stored alongside each record.
package workout

import "time"

// Source identifies where a workout came from. It is immutable once set.
type Source string

const (
	SourceManual      Source = "MANUAL"
	SourceScreenshot  Source = "SCREENSHOT"
	SourceStrava      Source = "STRAVA"
	SourceGarmin      Source = "GARMIN"
	SourceGPXFile     Source = "GPX_FILE"
	SourceFITFile     Source = "FIT_FILE"
	SourceAppleHealth Source = "APPLE_HEALTH"
)

// Workout types.
const (
	TypeRun     = "Run"
	TypeWalk    = "Walk"
	TypeHike    = "Hike"
	TypeCycling = "Cycling"
	TypeSwim    = "Swim"
)

// Record is the canonical workout produced by a normalizer. It is the unit
// handed to the ingestion orchestrator and persisted as a model.Workout.
type Record struct {
	UserID         string
	Date           time.Time
	Type           string
	DistanceKm     float64
	DurationSec    float64
	PaceSecPerKm   float64 // duration/distance; 0 when distance is 0
	ElevationGainM float64
	Calories       int
	AvgHeartRate   *int
	AvgPace        string // display pace, e.g. 8'49"/km
	Effort         int
	EffortDesc     string
	Source         Source

	// ProviderActivityID is set for API-sourced imports and is the duplicate
	// key for them, so it lives in its own column rather than the metadata bag.
	ProviderActivityID string

	// SyntheticTimes is true when the source carried no timestamps and the
	// date/duration were defaulted to wall-clock time. Callers must surface
	// this rather than present the fabricated duration as measured.
	SyntheticTimes bool

	Metadata Metadata
	Splits   []Split
}

// Split is a sub-segment of a workout, e.g. one per kilometre.
type Split struct {
	SplitNumber  int    `json:"splitNumber"`
	Time         string `json:"time"`
	Pace         string `json:"pace"`
	HeartRateBpm int    `json:"heartRateBpm"`
}

// Metadata is the source-specific fact bag. One variant exists per source so
// the JSON column stays structured; none of the fields are required for
// metric correctness.
type Metadata interface {
	MetadataSource() Source
}

// GPXMetadata describes a GPX file import.
type GPXMetadata struct {
	FileName    string `json:"fileName,omitempty"`
	TrackName   string `json:"trackName,omitempty"`
	TrackType   string `json:"trackType,omitempty"`
	TotalPoints int    `json:"totalPoints"`
	Segments    int    `json:"segments"`
}

func (GPXMetadata) MetadataSource() Source { return SourceGPXFile }

// FITMetadata describes a FIT file import.
type FITMetadata struct {
	FileName     string  `json:"fileName,omitempty"`
	Sport        string  `json:"sport,omitempty"`
	SubSport     string  `json:"subSport,omitempty"`
	TotalRecords int     `json:"totalRecords"`
	TotalLaps    int     `json:"totalLaps"`
	AvgSpeedMs   float64 `json:"avgSpeedMs,omitempty"`
	MaxSpeedMs   float64 `json:"maxSpeedMs,omitempty"`
	AvgCadence   int     `json:"avgCadence,omitempty"`
	AvgPowerW    int     `json:"avgPowerW,omitempty"`
}

func (FITMetadata) MetadataSource() Source { return SourceFITFile }

// StravaMetadata describes an activity imported through the Strava API.
type StravaMetadata struct {
	StravaID     int64   `json:"stravaId"`
	Name         string  `json:"name,omitempty"`
	SportType    string  `json:"sportType,omitempty"`
	AvgSpeedMs   float64 `json:"avgSpeedMs,omitempty"`
	MaxSpeedMs   float64 `json:"maxSpeedMs,omitempty"`
	MaxHeartRate int     `json:"maxHeartRate,omitempty"`
}

func (StravaMetadata) MetadataSource() Source { return SourceStrava }

// ScreenshotMetadata describes a workout extracted from an uploaded image.
type ScreenshotMetadata struct {
	OCRConfidence    int    `json:"ocrConfidence,omitempty"`
	OriginalFilename string `json:"originalFilename,omitempty"`
	FileSize         int64  `json:"fileSize,omitempty"`
	MimeType         string `json:"mimeType,omitempty"`
}

func (ScreenshotMetadata) MetadataSource() Source { return SourceScreenshot }

// Pace returns duration/distance in seconds per km, or 0 for zero distance.
func Pace(durationSec, distanceKm float64) float64 {
	if distanceKm <= 0 {
		return 0
	}
	return durationSec / distanceKm
}
