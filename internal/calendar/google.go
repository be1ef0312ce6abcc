package calendar

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

// Credentials are a coach's stored Google OAuth tokens.
type Credentials struct {
	AccessToken  string
	RefreshToken string
	Expiry       *time.Time
}

type MeetingRequest struct {
	Summary        string
	Description    string
	Start          time.Time
	End            time.Time
	Timezone       string
	AttendeeEmails []string
}

// Meeting is the created calendar event. RefreshedToken is set when the token
// source rotated the access token and the caller must persist it.
type Meeting struct {
	MeetLink       string
	EventID        string
	RefreshedToken *oauth2.Token
}

type GoogleCalendar struct {
	oauth *oauth2.Config
}

func NewGoogleCalendar(clientID, clientSecret string) *GoogleCalendar {
	return &GoogleCalendar{
		oauth: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Endpoint:     google.Endpoint,
			Scopes:       []string{gcal.CalendarEventsScope},
		},
	}
}

func (g *GoogleCalendar) CreateMeeting(ctx context.Context, creds Credentials, req MeetingRequest) (*Meeting, error) {
	original := tokenFromCredentials(creds)
	tokenSource := g.oauth.TokenSource(ctx, original)

	service, err := gcal.NewService(ctx, option.WithTokenSource(tokenSource))
	if err != nil {
		return nil, fmt.Errorf("calendar service: %w", err)
	}

	created, err := service.Events.Insert("primary", buildEvent(req)).
		ConferenceDataVersion(1).
		SendUpdates("all").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("insert calendar event: %w", err)
	}

	meeting := &Meeting{MeetLink: created.HangoutLink, EventID: created.Id}
	if current, err := tokenSource.Token(); err == nil && current.AccessToken != original.AccessToken {
		meeting.RefreshedToken = current
	}
	return meeting, nil
}

// tokenFromCredentials treats a missing expiry as expired so the first call
// refreshes instead of sending a possibly stale token.
func tokenFromCredentials(creds Credentials) *oauth2.Token {
	token := &oauth2.Token{
		AccessToken:  creds.AccessToken,
		RefreshToken: creds.RefreshToken,
		TokenType:    "Bearer",
	}
	if creds.Expiry != nil {
		token.Expiry = *creds.Expiry
	} else {
		token.Expiry = time.Now().Add(-time.Minute)
	}
	return token
}

func buildEvent(req MeetingRequest) *gcal.Event {
	timezone := req.Timezone
	if timezone == "" {
		timezone = "UTC"
	}

	attendees := make([]*gcal.EventAttendee, 0, len(req.AttendeeEmails))
	for _, email := range req.AttendeeEmails {
		if email == "" {
			continue
		}
		attendees = append(attendees, &gcal.EventAttendee{Email: email})
	}

	return &gcal.Event{
		Summary:     req.Summary,
		Description: req.Description,
		Start: &gcal.EventDateTime{
			DateTime: req.Start.UTC().Format(time.RFC3339),
			TimeZone: timezone,
		},
		End: &gcal.EventDateTime{
			DateTime: req.End.UTC().Format(time.RFC3339),
			TimeZone: timezone,
		},
		Attendees: attendees,
		ConferenceData: &gcal.ConferenceData{
			CreateRequest: &gcal.CreateConferenceRequest{
				RequestId: uuid.NewString(),
				ConferenceSolutionKey: &gcal.ConferenceSolutionKey{
					Type: "hangoutsMeet",
				},
			},
		},
	}
}
