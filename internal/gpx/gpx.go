// Package gpx normalizes GPX track files into canonical workout records.
package gpx

import (
	"encoding/xml"
	"strings"
	"time"

	gpxgo "github.com/tkrajina/gpxgo/gpx"

	"github.com/lildude/fittrack/internal/metrics"
	"github.com/lildude/fittrack/internal/workout"
)

// typeMap maps GPX track type tokens onto canonical workout types. Unknown
// tokens fall back to Run.
var typeMap = map[string]string{
	"running":  workout.TypeRun,
	"run":      workout.TypeRun,
	"cycling":  workout.TypeCycling,
	"bike":     workout.TypeCycling,
	"walking":  workout.TypeWalk,
	"walk":     workout.TypeWalk,
	"hiking":   workout.TypeHike,
	"hike":     workout.TypeHike,
	"swimming": workout.TypeSwim,
	"swim":     workout.TypeSwim,
}

// Normalize parses a GPX payload and produces the canonical workout for it.
// The payload must contain at least one track with at least one point,
// otherwise a *workout.ParseError is returned.
func Normalize(data []byte, userID, fileName string) (*workout.Record, error) {
	parsed, err := gpxgo.ParseBytes(data)
	if err != nil {
		return nil, workout.NewParseError(workout.SourceGPXFile, "failed to parse GPX file", err)
	}

	if len(parsed.Tracks) == 0 {
		return nil, workout.NewParseError(workout.SourceGPXFile, "no track data found in GPX file", nil)
	}

	// Most GPX files carry a single track; follow that convention and read
	// the first one.
	track := parsed.Tracks[0]

	var points []gpxgo.GPXPoint
	segments := 0
	for _, segment := range track.Segments {
		if len(segment.Points) == 0 {
			continue
		}
		segments++
		points = append(points, segment.Points...)
	}

	if len(points) == 0 {
		return nil, workout.NewParseError(workout.SourceGPXFile, "no track points found in GPX file", nil)
	}

	coords := make([]metrics.Point, len(points))
	altitudes := make([]*float64, len(points))
	for i, p := range points {
		coords[i] = metrics.Point{Lat: p.Latitude, Lon: p.Longitude}
		if p.Elevation.NotNull() {
			v := p.Elevation.Value()
			altitudes[i] = &v
		}
	}

	distanceKm := metrics.AccumulateDistance(coords)
	elevationGain := metrics.ElevationGain(altitudes)
	avgHeartRate := metrics.AverageHeartRate(heartRates(data, len(points)))

	// Start and end times come from the first and last point. Points without
	// timestamps fall back to "now", which fabricates a zero duration; the
	// record is flagged so callers can tell the value is synthesized.
	synthetic := false
	start := points[0].Timestamp
	end := points[len(points)-1].Timestamp
	if start.IsZero() || end.IsZero() {
		now := time.Now()
		synthetic = true
		if start.IsZero() {
			start = now
		}
		if end.IsZero() {
			end = now
		}
	}
	// Malformed timestamps can make this zero or negative; no clamping is
	// applied.
	durationSec := end.Sub(start).Seconds()

	workoutType, ok := typeMap[strings.ToLower(track.Type)]
	if !ok {
		workoutType = workout.TypeRun
	}

	rec := &workout.Record{
		UserID:         userID,
		Date:           start,
		Type:           workoutType,
		DistanceKm:     distanceKm,
		DurationSec:    durationSec,
		PaceSecPerKm:   workout.Pace(durationSec, distanceKm),
		ElevationGainM: elevationGain,
		Calories:       metrics.EstimateCalories(distanceKm, durationSec),
		AvgHeartRate:   avgHeartRate,
		Source:         workout.SourceGPXFile,
		SyntheticTimes: synthetic,
		Metadata: workout.GPXMetadata{
			FileName:    fileName,
			TrackName:   track.Name,
			TrackType:   track.Type,
			TotalPoints: len(points),
			Segments:    segments,
		},
	}

	return rec, nil
}

// heartRates re-decodes the raw document for per-point heart rate. gpxgo's
// extension model has shifted between releases, so the normalizer reads the
// extensions itself and zips them with the parsed points by index. Extraction
// failures are swallowed; heart rate is best-effort, never fatal.
func heartRates(data []byte, wantPoints int) []*int {
	var doc struct {
		Tracks []struct {
			Segments []struct {
				Points []struct {
					Extensions extensionHR `xml:"extensions"`
				} `xml:"trkpt"`
			} `xml:"trkseg"`
		} `xml:"trk"`
	}
	if err := xml.Unmarshal(data, &doc); err != nil || len(doc.Tracks) == 0 {
		return nil
	}

	samples := make([]*int, 0, wantPoints)
	for _, segment := range doc.Tracks[0].Segments {
		if len(segment.Points) == 0 {
			continue
		}
		for _, p := range segment.Points {
			if hr := p.Extensions.value(); hr > 0 {
				v := hr
				samples = append(samples, &v)
			} else {
				samples = append(samples, nil)
			}
		}
	}
	if len(samples) != wantPoints {
		// Point counts diverged from the primary parse; drop the channel
		// rather than misalign samples.
		return nil
	}
	return samples
}

// extensionHR decodes the two known heart-rate extension shapes: a bare <hr>
// child and a <TrackPointExtension><hr> child, in any namespace.
type extensionHR struct {
	HR  int `xml:"hr"`
	TPX struct {
		HR int `xml:"hr"`
	} `xml:"TrackPointExtension"`
}

func (e extensionHR) value() int {
	if e.TPX.HR > 0 {
		return e.TPX.HR
	}
	return e.HR
}
