package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Nebulafr/Nebula-sub000/internal/auth"
	"github.com/Nebulafr/Nebula-sub000/internal/models"
	"github.com/Nebulafr/Nebula-sub000/internal/repository"
	"github.com/jackc/pgx/v5"
	"github.com/sirupsen/logrus"
)

type SessionListQuery struct {
	Status    string
	Timeframe string
	Limit     int
	Offset    int
}

type RescheduleInput struct {
	Date      string
	StartTime string
	Duration  int
	Timezone  string
}

type AvailabilityQuery struct {
	CoachID   int64
	Date      string
	StartTime string
	Duration  int
	Timezone  string
}

var sessionTransitions = map[string][]string{
	models.SessionStatusScheduled:  {models.SessionStatusInProgress, models.SessionStatusCancelled},
	models.SessionStatusInProgress: {models.SessionStatusCompleted, models.SessionStatusCancelled},
}

type SessionService struct {
	store    repository.Store
	notifier Notifier
	tasks    TaskRunner
	logger   *logrus.Logger
}

func NewSessionService(
	store repository.Store,
	notifier Notifier,
	tasks TaskRunner,
	logger *logrus.Logger,
) *SessionService {
	if notifier == nil {
		notifier = noopNotifier{}
	}
	return &SessionService{
		store:    store,
		notifier: notifier,
		tasks:    tasks,
		logger:   logger,
	}
}

// ListSessions scopes the listing to the caller: students see sessions they
// attend, coaches their own, admins everything.
func (s *SessionService) ListSessions(
	ctx context.Context,
	principal auth.Principal,
	query SessionListQuery,
) ([]models.Session, int, error) {
	filter := repository.SessionListFilter{
		Status:    query.Status,
		Timeframe: query.Timeframe,
		Limit:     query.Limit,
		Offset:    query.Offset,
	}

	switch principal.Role {
	case auth.RoleAdmin:
	case auth.RoleCoach:
		coach, err := s.store.Coaches().GetByUserID(ctx, principal.UserID)
		if errors.Is(err, pgx.ErrNoRows) {
			return []models.Session{}, 0, nil
		}
		if err != nil {
			return nil, 0, err
		}
		filter.CoachID = coach.ID
	case auth.RoleStudent:
		student, err := s.store.Students().GetByUserID(ctx, principal.UserID)
		if errors.Is(err, pgx.ErrNoRows) {
			return []models.Session{}, 0, nil
		}
		if err != nil {
			return nil, 0, err
		}
		filter.StudentID = student.ID
	default:
		return nil, 0, Unauthorized("Unsupported role")
	}

	return s.store.Sessions().List(ctx, filter)
}

func (s *SessionService) GetSession(
	ctx context.Context,
	principal auth.Principal,
	sessionID int64,
) (*models.SessionDetail, error) {
	return s.loadForParticipant(ctx, principal, sessionID)
}

func (s *SessionService) CancelSession(
	ctx context.Context,
	principal auth.Principal,
	sessionID int64,
) (*models.Session, error) {
	detail, err := s.loadForParticipant(ctx, principal, sessionID)
	if err != nil {
		return nil, err
	}
	if detail.Status != models.SessionStatusScheduled {
		return nil, BadRequest("Only scheduled sessions can be cancelled")
	}

	updated, err := s.store.Sessions().UpdateStatus(ctx, sessionID, models.SessionStatusCancelled)
	if err != nil {
		return nil, notFoundIfMissing(err, "Session not found")
	}
	s.notifyParticipants(updated, detail.Attendees)
	return updated, nil
}

func (s *SessionService) RescheduleSession(
	ctx context.Context,
	principal auth.Principal,
	sessionID int64,
	input RescheduleInput,
) (*models.Session, error) {
	detail, err := s.loadForParticipant(ctx, principal, sessionID)
	if err != nil {
		return nil, err
	}
	if detail.Status != models.SessionStatusScheduled {
		return nil, BadRequest("Only scheduled sessions can be rescheduled")
	}

	duration := detail.Duration
	if input.Duration != 0 {
		if duration, err = resolveDuration(input.Duration); err != nil {
			return nil, err
		}
	}

	var storedTimezone *string
	if len(detail.Attendees) > 0 {
		student, err := s.store.Students().GetByID(ctx, detail.Attendees[0].StudentID)
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		if student != nil {
			storedTimezone = student.Timezone
		}
	}
	scheduledTime, err := parseSchedule(input.Date, input.StartTime, resolveTimezone(input.Timezone, storedTimezone))
	if err != nil {
		return nil, err
	}

	var updated *models.Session
	err = s.store.WithTx(ctx, func(tx repository.Store) error {
		if err := tx.Sessions().LockCoachSchedule(ctx, detail.CoachID); err != nil {
			return err
		}
		if err := ensureSlotAvailable(ctx, tx.Sessions(), detail.CoachID, scheduledTime, duration, sessionID); err != nil {
			return err
		}
		updated, err = tx.Sessions().Reschedule(ctx, sessionID, scheduledTime, duration)
		if errors.Is(err, pgx.ErrNoRows) {
			return BadRequest("Only scheduled sessions can be rescheduled")
		}
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"session_id": sessionID,
		"start":      updated.ScheduledTime,
		"duration":   updated.Duration,
	}).Info("Session rescheduled")
	s.notifyParticipants(updated, detail.Attendees)
	return updated, nil
}

// UpdateStatus moves a session along SCHEDULED -> IN_PROGRESS -> COMPLETED,
// or to CANCELLED from either open state. Only the session's coach or an
// admin may do this.
func (s *SessionService) UpdateStatus(
	ctx context.Context,
	principal auth.Principal,
	sessionID int64,
	requestedStatus string,
) (*models.Session, error) {
	if !principal.IsCoach() && !principal.IsAdmin() {
		return nil, Unauthorized("Only the session coach can change its status")
	}

	detail, err := s.loadForParticipant(ctx, principal, sessionID)
	if err != nil {
		return nil, err
	}

	next, err := normalizeRequestedStatus(requestedStatus)
	if err != nil {
		return nil, err
	}
	if !canTransition(detail.Status, next) {
		return nil, BadRequest(fmt.Sprintf("Cannot change session from %s to %s", detail.Status, next))
	}

	updated, err := s.store.Sessions().UpdateStatus(ctx, sessionID, next)
	if err != nil {
		return nil, notFoundIfMissing(err, "Session not found")
	}
	s.notifyParticipants(updated, detail.Attendees)
	return updated, nil
}

func (s *SessionService) CheckAvailability(ctx context.Context, query AvailabilityQuery) (bool, error) {
	coach, err := s.store.Coaches().GetByID(ctx, query.CoachID)
	if err != nil {
		return false, notFoundIfMissing(err, "Coach not found")
	}
	if !coach.IsActive {
		return false, NotFound("Coach not found")
	}

	duration, err := resolveDuration(query.Duration)
	if err != nil {
		return false, err
	}
	start, err := parseSchedule(query.Date, query.StartTime, resolveTimezone(query.Timezone, &coach.Timezone))
	if err != nil {
		return false, err
	}

	conflict, err := HasConflict(ctx, s.store.Sessions(), coach.ID, start, duration)
	if err != nil {
		return false, err
	}
	return !conflict, nil
}

func (s *SessionService) loadForParticipant(
	ctx context.Context,
	principal auth.Principal,
	sessionID int64,
) (*models.SessionDetail, error) {
	session, err := s.store.Sessions().GetByID(ctx, sessionID)
	if err != nil {
		return nil, notFoundIfMissing(err, "Session not found")
	}
	attendees, err := s.store.Attendances().ListBySession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	detail := &models.SessionDetail{Session: *session, Attendees: attendees}

	allowed, err := s.isParticipant(ctx, principal, detail)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, Unauthorized("You do not have access to this session")
	}
	return detail, nil
}

func (s *SessionService) isParticipant(
	ctx context.Context,
	principal auth.Principal,
	detail *models.SessionDetail,
) (bool, error) {
	switch principal.Role {
	case auth.RoleAdmin:
		return true, nil
	case auth.RoleCoach:
		coach, err := s.store.Coaches().GetByUserID(ctx, principal.UserID)
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		if err != nil {
			return false, err
		}
		return coach.ID == detail.CoachID, nil
	case auth.RoleStudent:
		student, err := s.store.Students().GetByUserID(ctx, principal.UserID)
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		if err != nil {
			return false, err
		}
		for _, attendee := range detail.Attendees {
			if attendee.StudentID == student.ID {
				return true, nil
			}
		}
		return false, nil
	default:
		return false, nil
	}
}

func (s *SessionService) notifyParticipants(session *models.Session, attendees []models.SessionAttendance) {
	snapshot := *session
	studentIDs := make([]int64, 0, len(attendees))
	for _, attendee := range attendees {
		studentIDs = append(studentIDs, attendee.StudentID)
	}

	s.tasks.Dispatch("session-update-notification", func(ctx context.Context) error {
		userIDs := make([]int64, 0, len(studentIDs)+1)
		coach, err := s.store.Coaches().GetByID(ctx, snapshot.CoachID)
		if err != nil {
			return err
		}
		userIDs = append(userIDs, coach.UserID)
		for _, studentID := range studentIDs {
			student, err := s.store.Students().GetByID(ctx, studentID)
			if err != nil {
				return err
			}
			userIDs = append(userIDs, student.UserID)
		}
		s.notifier.Notify(userIDs, NotificationSessionUpdated, snapshot)
		return nil
	})
}

func normalizeRequestedStatus(status string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "in_progress", "in-progress", "start", "started":
		return models.SessionStatusInProgress, nil
	case "complete", "completed":
		return models.SessionStatusCompleted, nil
	case "cancel", "cancelled", "canceled":
		return models.SessionStatusCancelled, nil
	default:
		return "", BadRequest("Invalid status")
	}
}

func canTransition(current, next string) bool {
	for _, allowed := range sessionTransitions[current] {
		if allowed == next {
			return true
		}
	}
	return false
}
