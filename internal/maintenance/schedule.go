package maintenance

import (
	"fmt"
	"strings"
	"time"

	"farm-backend/internal/models"

	"github.com/robfig/cron/v3"
	"github.com/samber/lo"
)

var transitions = map[models.MaintenanceStatus][]models.MaintenanceStatus{
	models.MaintenanceScheduled:  {models.MaintenanceInProgress, models.MaintenanceCancelled},
	models.MaintenanceInProgress: {models.MaintenanceCompleted, models.MaintenanceCancelled},
}

var Statuses = []models.MaintenanceStatus{
	models.MaintenanceScheduled, models.MaintenanceInProgress, models.MaintenanceCompleted, models.MaintenanceCancelled,
}

func CanTransition(from, next models.MaintenanceStatus) bool {
	return lo.Contains(transitions[from], next)
}

// ParseRecurrence checks a five-field cron expression. Blank means no recurrence.
func ParseRecurrence(expr string) (cron.Schedule, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil, nil
	}
	sched, err := cron.ParseStandard(expr)
	if err != nil {
		return nil, fmt.Errorf("parse recurrence %q: %w", expr, err)
	}
	return sched, nil
}

// NextOccurrence is the first time the recurrence fires after from.
// ok is false for one-off records.
func NextOccurrence(expr string, from time.Time) (next time.Time, ok bool, err error) {
	sched, err := ParseRecurrence(expr)
	if err != nil || sched == nil {
		return time.Time{}, false, err
	}
	return sched.Next(from.UTC()), true, nil
}

// FollowUp builds the next scheduled record for a completed recurring one.
func FollowUp(done models.MaintenanceRecord) (*models.MaintenanceRecord, error) {
	if done.CompletedDate == nil {
		return nil, nil
	}
	at, ok, err := NextOccurrence(done.Recurrence, *done.CompletedDate)
	if err != nil || !ok {
		return nil, err
	}
	return &models.MaintenanceRecord{
		OwnerID:       done.OwnerID,
		AssetID:       done.AssetID,
		Title:         done.Title,
		Description:   done.Description,
		ScheduledDate: at,
		Status:        models.MaintenanceScheduled,
		PerformedBy:   done.PerformedBy,
		Recurrence:    done.Recurrence,
		PreviousID:    &done.ID,
	}, nil
}
