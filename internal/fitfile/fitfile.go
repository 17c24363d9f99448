// Package fitfile normalizes FIT binary activity files into canonical
// workout records.
package fitfile

import (
	"bytes"

	"github.com/tormoder/fit"

	"github.com/lildude/fittrack/internal/metrics"
	"github.com/lildude/fittrack/internal/workout"
)

// FIT profile invalid-value markers. Decoded messages keep these for fields
// the device never wrote.
const (
	invalidUint8  = 0xFF
	invalidUint16 = 0xFFFF
	invalidUint32 = 0xFFFFFFFF
)

// Normalize decodes a FIT activity file and produces the canonical workout
// for it. Files without at least one session fail with a *workout.ParseError.
func Normalize(data []byte, userID, fileName string) (*workout.Record, error) {
	fitFile, err := fit.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, workout.NewParseError(workout.SourceFITFile, "failed to decode FIT file", err)
	}

	activity, err := fitFile.Activity()
	if err != nil {
		return nil, workout.NewParseError(workout.SourceFITFile, "FIT file is not an activity file", err)
	}

	return fromActivity(activity, userID, fileName)
}

func fromActivity(activity *fit.ActivityFile, userID, fileName string) (*workout.Record, error) {
	if len(activity.Sessions) == 0 {
		return nil, workout.NewParseError(workout.SourceFITFile, "no workout sessions found in FIT file", nil)
	}

	// Most activity files carry one session; read the first.
	session := activity.Sessions[0]

	// total_distance is metres with scale 100.
	distanceKm := 0.0
	if session.TotalDistance != invalidUint32 {
		distanceKm = float64(session.TotalDistance) / 100 / 1000
	}

	// total_timer_time and total_elapsed_time are seconds with scale 1000.
	// Timer time excludes pauses and wins when present.
	durationSec := 0.0
	switch {
	case session.TotalTimerTime != invalidUint32 && session.TotalTimerTime != 0:
		durationSec = float64(session.TotalTimerTime) / 1000
	case session.TotalElapsedTime != invalidUint32:
		durationSec = float64(session.TotalElapsedTime) / 1000
	}

	// Prefer the session ascent total; fall back to accumulating the record
	// stream when the device didn't write one.
	elevationGain := 0.0
	if session.TotalAscent != invalidUint16 && session.TotalAscent != 0 {
		elevationGain = float64(session.TotalAscent)
	} else {
		elevationGain = metrics.ElevationGain(recordAltitudes(activity.Records))
	}

	avgHeartRate := sessionHeartRate(session)
	if avgHeartRate == nil {
		avgHeartRate = metrics.AverageHeartRate(recordHeartRates(activity.Records))
	}

	calories := 0
	if session.TotalCalories != invalidUint16 && session.TotalCalories != 0 {
		calories = int(session.TotalCalories)
	} else {
		calories = metrics.EstimateCalories(distanceKm, durationSec)
	}

	meta := workout.FITMetadata{
		FileName:     fileName,
		Sport:        session.Sport.String(),
		SubSport:     session.SubSport.String(),
		TotalRecords: len(activity.Records),
		TotalLaps:    len(activity.Laps),
	}
	if session.AvgSpeed != invalidUint16 && session.AvgSpeed != 0 {
		meta.AvgSpeedMs = float64(session.AvgSpeed) / 1000
	}
	if session.MaxSpeed != invalidUint16 && session.MaxSpeed != 0 {
		meta.MaxSpeedMs = float64(session.MaxSpeed) / 1000
	}
	if session.AvgCadence != invalidUint8 && session.AvgCadence != 0 {
		meta.AvgCadence = int(session.AvgCadence)
	}
	if session.AvgPower != invalidUint16 && session.AvgPower != 0 {
		meta.AvgPowerW = int(session.AvgPower)
	}

	rec := &workout.Record{
		UserID:         userID,
		Date:           session.StartTime,
		Type:           mapSport(session.Sport),
		DistanceKm:     distanceKm,
		DurationSec:    durationSec,
		PaceSecPerKm:   workout.Pace(durationSec, distanceKm),
		ElevationGainM: elevationGain,
		Calories:       calories,
		AvgHeartRate:   avgHeartRate,
		Source:         workout.SourceFITFile,
		Metadata:       meta,
	}

	return rec, nil
}

func sessionHeartRate(session *fit.SessionMsg) *int {
	if session.AvgHeartRate == invalidUint8 || session.AvgHeartRate == 0 {
		return nil
	}
	hr := int(session.AvgHeartRate)
	return &hr
}

// recordAltitudes extracts the altitude channel from the record stream.
// altitude is metres with scale 5 and offset 500.
func recordAltitudes(records []*fit.RecordMsg) []*float64 {
	altitudes := make([]*float64, len(records))
	for i, r := range records {
		if r.Altitude == invalidUint16 {
			continue
		}
		v := float64(r.Altitude)/5 - 500
		altitudes[i] = &v
	}
	return altitudes
}

func recordHeartRates(records []*fit.RecordMsg) []*int {
	samples := make([]*int, len(records))
	for i, r := range records {
		if r.HeartRate == invalidUint8 || r.HeartRate == 0 {
			continue
		}
		v := int(r.HeartRate)
		samples[i] = &v
	}
	return samples
}

func mapSport(sport fit.Sport) string {
	switch sport {
	case fit.SportRunning, fit.SportGeneric, fit.SportTraining, fit.SportTransition:
		return workout.TypeRun
	case fit.SportCycling:
		return workout.TypeCycling
	case fit.SportWalking:
		return workout.TypeWalk
	case fit.SportHiking:
		return workout.TypeHike
	case fit.SportSwimming:
		return workout.TypeSwim
	default:
		return workout.TypeRun
	}
}
