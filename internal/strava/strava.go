// Package strava implements the Strava API types, the OAuth configuration
// and the normalizer that converts remote activities into canonical workouts.
package strava

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"os"
	"strconv"
	"time"

	"golang.org/x/oauth2"

	"github.com/lildude/fittrack/internal/client"
	"github.com/lildude/fittrack/internal/metrics"
	"github.com/lildude/fittrack/internal/workout"
)

var (
	BaseURL     = "https://www.strava.com"
	OauthConfig = &oauth2.Config{
		ClientID:     os.Getenv("STRAVA_CLIENT_ID"),
		ClientSecret: os.Getenv("STRAVA_CLIENT_SECRET"),
		Endpoint: oauth2.Endpoint{
			AuthURL:  "https://www.strava.com/oauth/authorize",
			TokenURL: "https://www.strava.com/oauth/token",
		},
		RedirectURL: os.Getenv("STRAVA_REDIRECT_URI"),
		Scopes:      []string{"activity:read_all"},
	}
)

// Activity holds only the data we want from the Strava API for an activity.
// Distances are metres, speeds m/s, times seconds.
type Activity struct {
	ID                 int64     `json:"id"`
	Name               string    `json:"name"`
	Distance           float64   `json:"distance"`
	MovingTime         int64     `json:"moving_time"`
	ElapsedTime        int64     `json:"elapsed_time"`
	TotalElevationGain float64   `json:"total_elevation_gain"`
	Type               string    `json:"type"`
	SportType          string    `json:"sport_type"`
	StartDate          time.Time `json:"start_date"`
	StartDateLocal     time.Time `json:"start_date_local"`
	AverageSpeed       float64   `json:"average_speed"`
	MaxSpeed           float64   `json:"max_speed"`
	AverageHeartrate   float64   `json:"average_heartrate"`
	MaxHeartrate       float64   `json:"max_heartrate"`
}

// Athlete is the athlete summary returned with a token exchange.
type Athlete struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	Firstname string `json:"firstname"`
	Lastname  string `json:"lastname"`
}

// typeMap maps Strava sport types onto canonical workout types.
var typeMap = map[string]string{
	"Run":         workout.TypeRun,
	"TrailRun":    workout.TypeRun,
	"VirtualRun":  workout.TypeRun,
	"Ride":        workout.TypeCycling,
	"VirtualRide": workout.TypeCycling,
	"GravelRide":  workout.TypeCycling,
	"Walk":        workout.TypeWalk,
	"Hike":        workout.TypeHike,
	"Swim":        workout.TypeSwim,
}

// Normalize converts a Strava activity into the canonical workout record.
// Strava does not supply calorie data on the activity list, so calories stay
// at 0 rather than being estimated.
func Normalize(a *Activity, userID string) *workout.Record {
	distanceKm := a.Distance / 1000
	durationSec := float64(a.MovingTime)

	var avgHeartRate *int
	if a.AverageHeartrate > 0 {
		hr := int(math.Round(a.AverageHeartrate))
		avgHeartRate = &hr
	}
	effort, effortDesc := metrics.EffortFromHeartRate(avgHeartRate)

	sportType := a.SportType
	if sportType == "" {
		sportType = a.Type
	}
	workoutType, ok := typeMap[sportType]
	if !ok {
		workoutType = workout.TypeRun
	}

	return &workout.Record{
		UserID:             userID,
		Date:               a.StartDateLocal,
		Type:               workoutType,
		DistanceKm:         distanceKm,
		DurationSec:        durationSec,
		PaceSecPerKm:       workout.Pace(durationSec, distanceKm),
		ElevationGainM:     math.Round(a.TotalElevationGain),
		Calories:           0,
		AvgHeartRate:       avgHeartRate,
		AvgPace:            metrics.FormatPace(metrics.PaceMinPerKm(a.AverageSpeed)),
		Effort:             effort,
		EffortDesc:         effortDesc,
		Source:             workout.SourceStrava,
		ProviderActivityID: strconv.FormatInt(a.ID, 10),
		Metadata: workout.StravaMetadata{
			StravaID:     a.ID,
			Name:         a.Name,
			SportType:    sportType,
			AvgSpeedMs:   a.AverageSpeed,
			MaxSpeedMs:   a.MaxSpeed,
			MaxHeartRate: int(math.Round(a.MaxHeartrate)),
		},
	}
}

// ListActivities fetches one page of the athlete's activities. A zero after
// time is omitted from the query.
func ListActivities(ctx context.Context, c *client.Client, page, perPage int, after time.Time) ([]Activity, error) {
	path := fmt.Sprintf("/api/v3/athlete/activities?page=%d&per_page=%d", page, perPage)
	if !after.IsZero() {
		path += fmt.Sprintf("&after=%d", after.Unix())
	}

	req, err := c.NewRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, fmt.Errorf("creating list activities request: %w", err)
	}

	var activities []Activity
	resp, err := c.Do(req, &activities)
	if resp != nil {
		defer resp.Body.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("listing activities page %d: %w", page, err)
	}

	return activities, nil
}
