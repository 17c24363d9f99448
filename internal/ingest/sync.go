package ingest

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/lildude/fittrack/internal/strava"
)

const syncPageSize = 30

// SyncResult aggregates one Strava sync run.
type SyncResult struct {
	Imported int `json:"imported"`
	Skipped  int `json:"skipped"`
	Errors   int `json:"errors"`
}

// SyncStrava pulls the user's recent Strava activities and imports each one,
// page by page, until limit activities have been seen or a page comes back
// empty. Individual activity failures are counted, not fatal; only transport
// and auth failures abort the run.
func (im *Importer) SyncStrava(ctx context.Context, userID string, limit int, after time.Time) (*SyncResult, error) {
	rc, err := strava.NewAPIClient(ctx, im.db, userID)
	if err != nil {
		return nil, err
	}

	result := &SyncResult{}
	seen := 0
	for page := 1; seen < limit; page++ {
		activities, err := strava.ListActivities(ctx, rc, page, syncPageSize, after)
		if err != nil {
			return nil, err
		}
		if len(activities) == 0 {
			break
		}

		for i := range activities {
			if seen >= limit {
				break
			}
			seen++

			rec := strava.Normalize(&activities[i], userID)
			_, err := im.ImportRecord(rec)
			switch {
			case errors.Is(err, ErrDuplicate):
				result.Skipped++
			case err != nil:
				result.Errors++
				im.log.WithFields(logrus.Fields{
					"user_id":     userID,
					"activity_id": activities[i].ID,
					"error":       err.Error(),
				}).Warn("failed to import strava activity")
			default:
				result.Imported++
			}
		}
	}

	im.log.WithFields(logrus.Fields{
		"user_id":  userID,
		"imported": result.Imported,
		"skipped":  result.Skipped,
		"errors":   result.Errors,
	}).Info("strava sync complete")
	return result, nil
}
