package services

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	IntentProgramEnrollment = "PROGRAM_ENROLLMENT"
	IntentSessionBooking    = "SESSION_BOOKING"
	IntentEventRegistration = "EVENT_REGISTRATION"
)

// Stripe rejects metadata values longer than this.
const metadataValueLimit = 500

var errInvalidIntent = errors.New("invalid checkout intent")

// CheckoutIntent is what a checkout session is paying for. It travels in the
// provider's metadata between checkout creation and reconciliation.
type CheckoutIntent struct {
	Type          string
	UserID        int64
	ProgramID     int64
	CohortID      *int64
	CoachID       int64
	ScheduledTime time.Time
	Duration      int
	Timezone      string
	Notes         *string
	EventID       int64
}

func (i CheckoutIntent) Metadata() map[string]string {
	md := map[string]string{
		"type":   i.Type,
		"userId": strconv.FormatInt(i.UserID, 10),
	}

	switch i.Type {
	case IntentProgramEnrollment:
		md["programId"] = strconv.FormatInt(i.ProgramID, 10)
		if i.CohortID != nil {
			md["cohortId"] = strconv.FormatInt(*i.CohortID, 10)
		}
	case IntentSessionBooking:
		md["coachId"] = strconv.FormatInt(i.CoachID, 10)
		md["scheduledTime"] = i.ScheduledTime.UTC().Format(time.RFC3339)
		md["duration"] = strconv.Itoa(i.Duration)
		md["timezone"] = i.Timezone
		if i.Notes != nil && *i.Notes != "" {
			md["notes"] = truncateMetadata(*i.Notes)
		}
	case IntentEventRegistration:
		md["eventId"] = strconv.FormatInt(i.EventID, 10)
	}
	return md
}

// ParseCheckoutIntent decodes provider metadata. Unknown types and missing or
// malformed required fields return errInvalidIntent.
func ParseCheckoutIntent(md map[string]string) (CheckoutIntent, error) {
	intent := CheckoutIntent{Type: strings.TrimSpace(md["type"])}

	userID, err := parseMetadataID(md, "userId")
	if err != nil {
		return CheckoutIntent{}, err
	}
	intent.UserID = userID

	switch intent.Type {
	case IntentProgramEnrollment:
		if intent.ProgramID, err = parseMetadataID(md, "programId"); err != nil {
			return CheckoutIntent{}, err
		}
		if raw := strings.TrimSpace(md["cohortId"]); raw != "" {
			cohortID, err := parseMetadataID(md, "cohortId")
			if err != nil {
				return CheckoutIntent{}, err
			}
			intent.CohortID = &cohortID
		}
	case IntentSessionBooking:
		if intent.CoachID, err = parseMetadataID(md, "coachId"); err != nil {
			return CheckoutIntent{}, err
		}
		scheduled, err := time.Parse(time.RFC3339, strings.TrimSpace(md["scheduledTime"]))
		if err != nil {
			return CheckoutIntent{}, fmt.Errorf("%w: scheduledTime", errInvalidIntent)
		}
		intent.ScheduledTime = scheduled.UTC()

		intent.Duration = defaultSessionDuration
		if raw := strings.TrimSpace(md["duration"]); raw != "" {
			duration, err := strconv.Atoi(raw)
			if err != nil || duration <= 0 {
				return CheckoutIntent{}, fmt.Errorf("%w: duration", errInvalidIntent)
			}
			intent.Duration = duration
		}

		intent.Timezone = strings.TrimSpace(md["timezone"])
		if notes, ok := md["notes"]; ok && notes != "" {
			intent.Notes = &notes
		}
	case IntentEventRegistration:
		if intent.EventID, err = parseMetadataID(md, "eventId"); err != nil {
			return CheckoutIntent{}, err
		}
	default:
		return CheckoutIntent{}, fmt.Errorf("%w: unknown type %q", errInvalidIntent, intent.Type)
	}

	return intent, nil
}

func parseMetadataID(md map[string]string, key string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(md[key]), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %s", errInvalidIntent, key)
	}
	return id, nil
}

func truncateMetadata(value string) string {
	if len(value) <= metadataValueLimit {
		return value
	}
	cut := metadataValueLimit
	for cut > 0 && !utf8.RuneStart(value[cut]) {
		cut--
	}
	return value[:cut]
}
