package services

import (
	"context"
	"time"

	"github.com/Nebulafr/Nebula-sub000/internal/repository"
)

// HasConflict reports whether the coach already has a SCHEDULED session
// overlapping [start, start+durationMinutes).
func HasConflict(
	ctx context.Context,
	sessions repository.SessionStore,
	coachID int64,
	start time.Time,
	durationMinutes int,
) (bool, error) {
	return sessions.HasConflict(ctx, coachID, start.UTC(), durationMinutes, 0)
}

// ensureSlotAvailable fails with BadRequest when the slot overlaps a session
// other than excludeSessionID.
func ensureSlotAvailable(
	ctx context.Context,
	sessions repository.SessionStore,
	coachID int64,
	start time.Time,
	durationMinutes int,
	excludeSessionID int64,
) error {
	conflict, err := sessions.HasConflict(ctx, coachID, start.UTC(), durationMinutes, excludeSessionID)
	if err != nil {
		return err
	}
	if conflict {
		return slotUnavailable()
	}
	return nil
}
