package mailer

import (
	"bytes"
	"fmt"
	"html/template"
	"time"
)

type SessionBookedData struct {
	StudentName  string
	StudentEmail string
	CoachName    string
	CoachEmail   string
	Title        string
	Start        time.Time
	Duration     int
	Timezone     string
	MeetLink     string
}

type EventRegisteredData struct {
	StudentName  string
	StudentEmail string
	EventTitle   string
	StartsAt     time.Time
}

var sessionBookedHTML = template.Must(template.New("session_booked").Parse(`<p>Hi {{.Name}},</p>
<p>Your session <strong>{{.Title}}</strong> with {{.Other}} is confirmed for {{.When}} ({{.Duration}} minutes).</p>
{{if .MeetLink}}<p>Join: <a href="{{.MeetLink}}">{{.MeetLink}}</a></p>{{end}}
<p>The Nebula team</p>`))

var eventRegisteredHTML = template.Must(template.New("event_registered").Parse(`<p>Hi {{.Name}},</p>
<p>You are registered for <strong>{{.Title}}</strong> on {{.When}}.</p>
<p>The Nebula team</p>`))

// SessionBooked returns one confirmation for the student and one for the
// coach.
func SessionBooked(data SessionBookedData) []Message {
	when := formatWhen(data.Start, data.Timezone)
	build := func(to, name, other string) Message {
		view := map[string]any{
			"Name":     name,
			"Title":    data.Title,
			"Other":    other,
			"When":     when,
			"Duration": data.Duration,
			"MeetLink": data.MeetLink,
		}
		text := fmt.Sprintf("Hi %s,\n\nYour session %q with %s is confirmed for %s (%d minutes).\n",
			name, data.Title, other, when, data.Duration)
		if data.MeetLink != "" {
			text += "Join: " + data.MeetLink + "\n"
		}
		return Message{
			To:      []string{to},
			Subject: "Session confirmed: " + data.Title,
			Text:    text,
			HTML:    render(sessionBookedHTML, view),
		}
	}

	messages := make([]Message, 0, 2)
	if data.StudentEmail != "" {
		messages = append(messages, build(data.StudentEmail, data.StudentName, data.CoachName))
	}
	if data.CoachEmail != "" {
		messages = append(messages, build(data.CoachEmail, data.CoachName, data.StudentName))
	}
	return messages
}

func EventRegistered(data EventRegisteredData) Message {
	when := formatWhen(data.StartsAt, "UTC")
	view := map[string]any{"Name": data.StudentName, "Title": data.EventTitle, "When": when}
	return Message{
		To:      []string{data.StudentEmail},
		Subject: "Registration confirmed: " + data.EventTitle,
		Text:    fmt.Sprintf("Hi %s,\n\nYou are registered for %q on %s.\n", data.StudentName, data.EventTitle, when),
		HTML:    render(eventRegisteredHTML, view),
	}
}

func formatWhen(t time.Time, timezone string) string {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		loc = time.UTC
	}
	return t.In(loc).Format("Mon, 02 Jan 2006 15:04 MST")
}

func render(tmpl *template.Template, data any) string {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return ""
	}
	return buf.String()
}
