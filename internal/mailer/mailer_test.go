package mailer

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

func TestBuildMessageHeaders(t *testing.T) {
	msg := buildMessage("Nebula <no-reply@nebula.local>", Message{
		To:      []string{"ada@example.com"},
		Subject: "Hello",
		Text:    "plain",
		HTML:    "<p>html</p>",
	})

	if got := msg.GetHeader("To"); len(got) != 1 || got[0] != "ada@example.com" {
		t.Fatalf("unexpected To header %v", got)
	}
	if got := msg.GetHeader("Subject"); len(got) != 1 || got[0] != "Hello" {
		t.Fatalf("unexpected Subject header %v", got)
	}

	var buf bytes.Buffer
	if _, err := msg.WriteTo(&buf); err != nil {
		t.Fatalf("WriteTo: %v", err)
	}
	if !strings.Contains(buf.String(), "text/html") {
		t.Fatalf("expected html alternative in %q", buf.String())
	}
}

func TestSendWithoutHostIsNoop(t *testing.T) {
	var logs bytes.Buffer
	logger := logrus.New()
	logger.SetOutput(&logs)
	m := NewSMTPMailer(SMTPConfig{From: "x@nebula.local"}, logger)

	if err := m.Send(context.Background(), Message{To: []string{"ada@example.com"}, Subject: "Hi"}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if !strings.Contains(logs.String(), "SMTP disabled") {
		t.Fatalf("expected skip to be logged, got %q", logs.String())
	}
}

func TestSendRequiresRecipients(t *testing.T) {
	m := NewSMTPMailer(SMTPConfig{}, logrus.New())
	if err := m.Send(context.Background(), Message{Subject: "Hi"}); err == nil {
		t.Fatalf("expected error without recipients")
	}
}

func TestSessionBookedAddressesBothParties(t *testing.T) {
	messages := SessionBooked(SessionBookedData{
		StudentName:  "Ada",
		StudentEmail: "ada@example.com",
		CoachName:    "Grace",
		CoachEmail:   "grace@example.com",
		Title:        "Strategy review",
		Start:        time.Date(2024, 1, 10, 14, 0, 0, 0, time.UTC),
		Duration:     60,
		Timezone:     "America/New_York",
		MeetLink:     "https://meet.google.com/abc",
	})

	if len(messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(messages))
	}
	if messages[0].To[0] != "ada@example.com" || messages[1].To[0] != "grace@example.com" {
		t.Fatalf("unexpected recipients %v %v", messages[0].To, messages[1].To)
	}
	if !strings.Contains(messages[0].Text, "09:00") {
		t.Fatalf("expected local start time in %q", messages[0].Text)
	}
	if !strings.Contains(messages[0].HTML, "https://meet.google.com/abc") {
		t.Fatalf("expected meet link in html body")
	}
}

func TestEventRegistered(t *testing.T) {
	msg := EventRegistered(EventRegisteredData{
		StudentName:  "Ada",
		StudentEmail: "ada@example.com",
		EventTitle:   "Founders AMA",
		StartsAt:     time.Date(2024, 2, 1, 18, 0, 0, 0, time.UTC),
	})
	if msg.Subject != "Registration confirmed: Founders AMA" {
		t.Fatalf("unexpected subject %q", msg.Subject)
	}
}
