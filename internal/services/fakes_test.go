package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Nebulafr/Nebula-sub000/internal/calendar"
	"github.com/Nebulafr/Nebula-sub000/internal/mailer"
	"github.com/Nebulafr/Nebula-sub000/internal/models"
	"github.com/Nebulafr/Nebula-sub000/internal/payments"
	"github.com/Nebulafr/Nebula-sub000/internal/repository"
	"github.com/jackc/pgx/v5"
)

type memData struct {
	nextID         int64
	users          map[int64]models.User
	coaches        map[int64]models.Coach
	students       map[int64]models.Student
	programs       map[int64]models.Program
	events         map[int64]models.Event
	sessions       map[int64]models.Session
	attendances    map[int64]models.SessionAttendance
	enrollments    map[int64]models.Enrollment
	eventAttendees map[int64]models.EventAttendee
	webhookEvents  map[int64]models.WebhookEvent
	coachLocks     []int64
}

func copyMap[K comparable, V any](in map[K]V) map[K]V {
	out := make(map[K]V, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func (d *memData) clone() *memData {
	return &memData{
		nextID:         d.nextID,
		users:          copyMap(d.users),
		coaches:        copyMap(d.coaches),
		students:       copyMap(d.students),
		programs:       copyMap(d.programs),
		events:         copyMap(d.events),
		sessions:       copyMap(d.sessions),
		attendances:    copyMap(d.attendances),
		enrollments:    copyMap(d.enrollments),
		eventAttendees: copyMap(d.eventAttendees),
		webhookEvents:  copyMap(d.webhookEvents),
		coachLocks:     append([]int64(nil), d.coachLocks...),
	}
}

// memStore is an in-memory repository.Store. WithTx restores the previous
// state when fn fails. failures injects errors by operation name.
type memStore struct {
	data     *memData
	failures map[string]error
	txCount  int
}

func newMemStore() *memStore {
	return &memStore{
		data: &memData{
			users:          map[int64]models.User{},
			coaches:        map[int64]models.Coach{},
			students:       map[int64]models.Student{},
			programs:       map[int64]models.Program{},
			events:         map[int64]models.Event{},
			sessions:       map[int64]models.Session{},
			attendances:    map[int64]models.SessionAttendance{},
			enrollments:    map[int64]models.Enrollment{},
			eventAttendees: map[int64]models.EventAttendee{},
			webhookEvents:  map[int64]models.WebhookEvent{},
		},
		failures: map[string]error{},
	}
}

func (s *memStore) id() int64 {
	s.data.nextID++
	return s.data.nextID
}

func (s *memStore) fail(op string) error {
	return s.failures[op]
}

func (s *memStore) Users() repository.UserStore                   { return memUsers{s} }
func (s *memStore) Coaches() repository.CoachStore                { return memCoaches{s} }
func (s *memStore) Students() repository.StudentStore             { return memStudents{s} }
func (s *memStore) Programs() repository.ProgramStore             { return memPrograms{s} }
func (s *memStore) Events() repository.EventStore                 { return memEvents{s} }
func (s *memStore) Sessions() repository.SessionStore             { return memSessions{s} }
func (s *memStore) Attendances() repository.AttendanceStore       { return memAttendances{s} }
func (s *memStore) Enrollments() repository.EnrollmentStore       { return memEnrollments{s} }
func (s *memStore) EventAttendees() repository.EventAttendeeStore { return memEventAttendees{s} }
func (s *memStore) WebhookEvents() repository.WebhookEventStore   { return memWebhookEvents{s} }

func (s *memStore) WithTx(_ context.Context, fn func(tx repository.Store) error) error {
	s.txCount++
	snapshot := s.data.clone()
	if err := fn(s); err != nil {
		*s.data = *snapshot
		return err
	}
	return nil
}

// seed helpers

func (s *memStore) addUser(role, name, email string) models.User {
	user := models.User{ID: s.id(), Email: email, Role: role, FullName: name}
	s.data.users[user.ID] = user
	return user
}

func (s *memStore) addCoach(hourlyRate float64, timezone string) models.Coach {
	user := s.addUser("coach", "Grace Coach", "grace@example.com")
	coach := models.Coach{
		ID:         s.id(),
		UserID:     user.ID,
		FullName:   user.FullName,
		Email:      user.Email,
		HourlyRate: hourlyRate,
		Timezone:   timezone,
		IsActive:   true,
	}
	s.data.coaches[coach.ID] = coach
	return coach
}

func (s *memStore) addStudent(timezone *string) models.Student {
	user := s.addUser("student", "Ada Student", "ada@example.com")
	student := models.Student{ID: s.id(), UserID: user.ID, FullName: user.FullName, Email: user.Email, Timezone: timezone}
	s.data.students[student.ID] = student
	return student
}

func (s *memStore) addProgram(coachID int64, price float64) models.Program {
	program := models.Program{ID: s.id(), CoachID: coachID, Title: "Leadership Sprint", Price: price, IsActive: true}
	s.data.programs[program.ID] = program
	return program
}

func (s *memStore) addEvent(price float64) models.Event {
	event := models.Event{
		ID:       s.id(),
		Title:    "Founders AMA",
		Price:    price,
		StartsAt: time.Date(2030, 2, 1, 18, 0, 0, 0, time.UTC),
		IsActive: true,
	}
	s.data.events[event.ID] = event
	return event
}

func (s *memStore) sessionList() []models.Session {
	out := make([]models.Session, 0, len(s.data.sessions))
	for _, session := range s.data.sessions {
		out = append(out, session)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

type memUsers struct{ s *memStore }

func (r memUsers) CreateUser(_ context.Context, user *models.User) error {
	for _, existing := range r.s.data.users {
		if existing.Email == user.Email {
			return repository.ErrDuplicate
		}
	}
	user.ID = r.s.id()
	r.s.data.users[user.ID] = *user
	return nil
}

func (r memUsers) GetByEmail(_ context.Context, email string) (*models.User, error) {
	for _, user := range r.s.data.users {
		if user.Email == email {
			return &user, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r memUsers) GetByID(_ context.Context, id int64) (*models.User, error) {
	user, ok := r.s.data.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &user, nil
}

type memCoaches struct{ s *memStore }

func (r memCoaches) Create(_ context.Context, userID int64, hourlyRate float64, timezone string) (*models.Coach, error) {
	user := r.s.data.users[userID]
	coach := models.Coach{
		ID:         r.s.id(),
		UserID:     userID,
		FullName:   user.FullName,
		Email:      user.Email,
		HourlyRate: hourlyRate,
		Timezone:   timezone,
		IsActive:   true,
	}
	r.s.data.coaches[coach.ID] = coach
	return &coach, nil
}

func (r memCoaches) GetByID(_ context.Context, id int64) (*models.Coach, error) {
	coach, ok := r.s.data.coaches[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &coach, nil
}

func (r memCoaches) GetByUserID(_ context.Context, userID int64) (*models.Coach, error) {
	for _, coach := range r.s.data.coaches {
		if coach.UserID == userID {
			return &coach, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r memCoaches) IncrementTotalSessions(_ context.Context, id int64) error {
	coach, ok := r.s.data.coaches[id]
	if !ok {
		return pgx.ErrNoRows
	}
	coach.TotalSessions++
	r.s.data.coaches[id] = coach
	return nil
}

func (r memCoaches) UpdateGoogleAccessToken(_ context.Context, id int64, accessToken string, expiry *time.Time) error {
	coach, ok := r.s.data.coaches[id]
	if !ok {
		return pgx.ErrNoRows
	}
	coach.GoogleAccessToken = &accessToken
	coach.GoogleTokenExpiry = expiry
	r.s.data.coaches[id] = coach
	return nil
}

type memStudents struct{ s *memStore }

func (r memStudents) Create(_ context.Context, userID int64, timezone *string) (*models.Student, error) {
	user := r.s.data.users[userID]
	student := models.Student{ID: r.s.id(), UserID: userID, FullName: user.FullName, Email: user.Email, Timezone: timezone}
	r.s.data.students[student.ID] = student
	return &student, nil
}

func (r memStudents) GetByID(_ context.Context, id int64) (*models.Student, error) {
	student, ok := r.s.data.students[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &student, nil
}

func (r memStudents) GetByUserID(_ context.Context, userID int64) (*models.Student, error) {
	for _, student := range r.s.data.students {
		if student.UserID == userID {
			return &student, nil
		}
	}
	return nil, pgx.ErrNoRows
}

type memPrograms struct{ s *memStore }

func (r memPrograms) GetByID(_ context.Context, id int64) (*models.Program, error) {
	program, ok := r.s.data.programs[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &program, nil
}

func (r memPrograms) IncrementEnrollments(_ context.Context, id int64) error {
	program, ok := r.s.data.programs[id]
	if !ok {
		return pgx.ErrNoRows
	}
	program.CurrentEnrollments++
	r.s.data.programs[id] = program
	return nil
}

func (r memPrograms) DecrementEnrollments(_ context.Context, id int64) error {
	program, ok := r.s.data.programs[id]
	if !ok {
		return pgx.ErrNoRows
	}
	if program.CurrentEnrollments > 0 {
		program.CurrentEnrollments--
	}
	r.s.data.programs[id] = program
	return nil
}

type memEvents struct{ s *memStore }

func (r memEvents) GetByID(_ context.Context, id int64) (*models.Event, error) {
	event, ok := r.s.data.events[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &event, nil
}

type memSessions struct{ s *memStore }

func (r memSessions) LockCoachSchedule(_ context.Context, coachID int64) error {
	r.s.data.coachLocks = append(r.s.data.coachLocks, coachID)
	return nil
}

func (r memSessions) HasConflict(_ context.Context, coachID int64, start time.Time, durationMinutes int, excludeSessionID int64) (bool, error) {
	for _, session := range r.s.data.sessions {
		if session.CoachID != coachID || session.ID == excludeSessionID {
			continue
		}
		if session.ConflictsWith(start, durationMinutes) {
			return true, nil
		}
	}
	return false, nil
}

func (r memSessions) Create(_ context.Context, input repository.CreateSessionInput) (*models.Session, error) {
	if err := r.s.fail("sessions.create"); err != nil {
		return nil, err
	}
	if input.StripeSessionID != nil {
		for _, existing := range r.s.data.sessions {
			if existing.StripeSessionID != nil && *existing.StripeSessionID == *input.StripeSessionID {
				return nil, repository.ErrDuplicate
			}
		}
	}
	paymentStatus := input.PaymentStatus
	if paymentStatus == "" {
		paymentStatus = models.PaymentStatusPending
	}
	session := models.Session{
		ID:              r.s.id(),
		CoachID:         input.CoachID,
		ScheduledTime:   input.ScheduledTime.UTC(),
		Duration:        input.Duration,
		Status:          models.SessionStatusScheduled,
		PaymentStatus:   paymentStatus,
		StripeSessionID: input.StripeSessionID,
		Title:           input.Title,
		Notes:           input.Notes,
	}
	r.s.data.sessions[session.ID] = session
	return &session, nil
}

func (r memSessions) GetByID(_ context.Context, id int64) (*models.Session, error) {
	session, ok := r.s.data.sessions[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &session, nil
}

func (r memSessions) GetByStripeSessionID(_ context.Context, stripeSessionID string) (*models.Session, error) {
	for _, session := range r.s.data.sessions {
		if session.StripeSessionID != nil && *session.StripeSessionID == stripeSessionID {
			return &session, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r memSessions) List(_ context.Context, filter repository.SessionListFilter) ([]models.Session, int, error) {
	attending := map[int64]bool{}
	if filter.StudentID > 0 {
		for _, attendance := range r.s.data.attendances {
			if attendance.StudentID == filter.StudentID {
				attending[attendance.SessionID] = true
			}
		}
	}

	matched := make([]models.Session, 0)
	for _, session := range r.s.sessionList() {
		if filter.CoachID > 0 && session.CoachID != filter.CoachID {
			continue
		}
		if filter.StudentID > 0 && !attending[session.ID] {
			continue
		}
		if filter.Status != "" && session.Status != filter.Status {
			continue
		}
		matched = append(matched, session)
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].ScheduledTime.Before(matched[j].ScheduledTime)
	})

	total := len(matched)
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	start := filter.Offset
	if start > total {
		start = total
	}
	end := start + limit
	if end > total {
		end = total
	}
	return matched[start:end], total, nil
}

func (r memSessions) update(id int64, mutate func(*models.Session)) (*models.Session, error) {
	session, ok := r.s.data.sessions[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	mutate(&session)
	r.s.data.sessions[id] = session
	return &session, nil
}

func (r memSessions) UpdateStatus(_ context.Context, id int64, status string) (*models.Session, error) {
	return r.update(id, func(s *models.Session) { s.Status = status })
}

func (r memSessions) UpdatePaymentState(_ context.Context, id int64, status string, paymentStatus string) (*models.Session, error) {
	if err := r.s.fail("sessions.update_payment"); err != nil {
		return nil, err
	}
	return r.update(id, func(s *models.Session) {
		s.Status = status
		s.PaymentStatus = paymentStatus
	})
}

func (r memSessions) UpdateCalendarDetails(_ context.Context, id int64, meetLink *string, googleEventID *string) error {
	_, err := r.update(id, func(s *models.Session) {
		s.MeetLink = meetLink
		s.GoogleEventID = googleEventID
	})
	return err
}

func (r memSessions) Reschedule(_ context.Context, id int64, scheduledTime time.Time, duration int) (*models.Session, error) {
	session, ok := r.s.data.sessions[id]
	if !ok || session.Status != models.SessionStatusScheduled {
		return nil, pgx.ErrNoRows
	}
	return r.update(id, func(s *models.Session) {
		s.ScheduledTime = scheduledTime.UTC()
		s.Duration = duration
	})
}

type memAttendances struct{ s *memStore }

func (r memAttendances) Create(_ context.Context, sessionID int64, studentID int64) (*models.SessionAttendance, error) {
	if err := r.s.fail("attendances.create"); err != nil {
		return nil, err
	}
	for _, existing := range r.s.data.attendances {
		if existing.SessionID == sessionID && existing.StudentID == studentID {
			return nil, repository.ErrDuplicate
		}
	}
	attendance := models.SessionAttendance{ID: r.s.id(), SessionID: sessionID, StudentID: studentID}
	r.s.data.attendances[attendance.ID] = attendance
	return &attendance, nil
}

func (r memAttendances) ListBySession(_ context.Context, sessionID int64) ([]models.SessionAttendance, error) {
	out := make([]models.SessionAttendance, 0)
	for _, attendance := range r.s.data.attendances {
		if attendance.SessionID == sessionID {
			out = append(out, attendance)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type memEnrollments struct{ s *memStore }

func (r memEnrollments) GetByID(_ context.Context, id int64) (*models.Enrollment, error) {
	enrollment, ok := r.s.data.enrollments[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &enrollment, nil
}

func (r memEnrollments) GetByStudentAndProgram(_ context.Context, studentID int64, programID int64) (*models.Enrollment, error) {
	for _, enrollment := range r.s.data.enrollments {
		if enrollment.StudentID == studentID && enrollment.ProgramID == programID {
			return &enrollment, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r memEnrollments) Create(ctx context.Context, input repository.CreateEnrollmentInput) (*models.Enrollment, error) {
	if _, err := r.GetByStudentAndProgram(ctx, input.StudentID, input.ProgramID); err == nil {
		return nil, repository.ErrDuplicate
	}
	enrollment := models.Enrollment{
		ID:              r.s.id(),
		StudentID:       input.StudentID,
		ProgramID:       input.ProgramID,
		CoachID:         input.CoachID,
		CohortID:        input.CohortID,
		Status:          input.Status,
		PaymentStatus:   input.PaymentStatus,
		StripeSessionID: input.StripeSessionID,
	}
	r.s.data.enrollments[enrollment.ID] = enrollment
	return &enrollment, nil
}

func (r memEnrollments) Activate(_ context.Context, id int64, stripeSessionID *string, cohortID *int64) (*models.Enrollment, error) {
	enrollment, ok := r.s.data.enrollments[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	enrollment.Status = models.EnrollmentStatusActive
	enrollment.PaymentStatus = models.PaymentStatusPaid
	if stripeSessionID != nil {
		enrollment.StripeSessionID = stripeSessionID
	}
	if cohortID != nil {
		enrollment.CohortID = cohortID
	}
	r.s.data.enrollments[id] = enrollment
	return &enrollment, nil
}

func (r memEnrollments) UpdatePaymentState(_ context.Context, id int64, status string, paymentStatus string) (*models.Enrollment, error) {
	enrollment, ok := r.s.data.enrollments[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	enrollment.Status = status
	enrollment.PaymentStatus = paymentStatus
	r.s.data.enrollments[id] = enrollment
	return &enrollment, nil
}

type memEventAttendees struct{ s *memStore }

func (r memEventAttendees) GetByID(_ context.Context, id int64) (*models.EventAttendee, error) {
	attendee, ok := r.s.data.eventAttendees[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &attendee, nil
}

func (r memEventAttendees) GetByEventAndStudent(_ context.Context, eventID int64, studentID int64) (*models.EventAttendee, error) {
	for _, attendee := range r.s.data.eventAttendees {
		if attendee.EventID == eventID && attendee.StudentID == studentID {
			return &attendee, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r memEventAttendees) Create(ctx context.Context, input repository.CreateEventAttendeeInput) (*models.EventAttendee, error) {
	if _, err := r.GetByEventAndStudent(ctx, input.EventID, input.StudentID); err == nil {
		return nil, repository.ErrDuplicate
	}
	attendee := models.EventAttendee{
		ID:              r.s.id(),
		EventID:         input.EventID,
		StudentID:       input.StudentID,
		Status:          input.Status,
		PaymentStatus:   input.PaymentStatus,
		StripeSessionID: input.StripeSessionID,
	}
	r.s.data.eventAttendees[attendee.ID] = attendee
	return &attendee, nil
}

func (r memEventAttendees) Register(_ context.Context, id int64, stripeSessionID *string) (*models.EventAttendee, error) {
	attendee, ok := r.s.data.eventAttendees[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	attendee.Status = models.AttendeeStatusRegistered
	attendee.PaymentStatus = models.PaymentStatusPaid
	if stripeSessionID != nil {
		attendee.StripeSessionID = stripeSessionID
	}
	r.s.data.eventAttendees[id] = attendee
	return &attendee, nil
}

func (r memEventAttendees) UpdatePaymentState(_ context.Context, id int64, status string, paymentStatus string) (*models.EventAttendee, error) {
	attendee, ok := r.s.data.eventAttendees[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	attendee.Status = status
	attendee.PaymentStatus = paymentStatus
	r.s.data.eventAttendees[id] = attendee
	return &attendee, nil
}

type memWebhookEvents struct{ s *memStore }

func (r memWebhookEvents) Record(_ context.Context, input repository.RecordWebhookEventInput) (*models.WebhookEvent, error) {
	for id, existing := range r.s.data.webhookEvents {
		if existing.ProviderEventID == input.ProviderEventID {
			existing.Attempts++
			r.s.data.webhookEvents[id] = existing
			return &existing, nil
		}
	}
	event := models.WebhookEvent{
		ID:                r.s.id(),
		ProviderEventID:   input.ProviderEventID,
		EventType:         input.EventType,
		CheckoutSessionID: input.CheckoutSessionID,
		Payload:           input.Payload,
		Status:            models.WebhookEventReceived,
		Attempts:          1,
		ReceivedAt:        time.Now(),
	}
	r.s.data.webhookEvents[event.ID] = event
	return &event, nil
}

func (r memWebhookEvents) MarkProcessed(_ context.Context, id int64) error {
	event := r.s.data.webhookEvents[id]
	now := time.Now()
	event.Status = models.WebhookEventProcessed
	event.LastError = nil
	event.ProcessedAt = &now
	r.s.data.webhookEvents[id] = event
	return nil
}

func (r memWebhookEvents) MarkFailed(_ context.Context, id int64, reason string) error {
	event := r.s.data.webhookEvents[id]
	event.Status = models.WebhookEventFailed
	event.LastError = &reason
	r.s.data.webhookEvents[id] = event
	return nil
}

func (r memWebhookEvents) ListRetryable(_ context.Context, maxAttempts int, limit int) ([]models.WebhookEvent, error) {
	out := make([]models.WebhookEvent, 0)
	for _, event := range r.s.data.webhookEvents {
		if event.Status == models.WebhookEventFailed && event.Attempts < maxAttempts {
			out = append(out, event)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r memWebhookEvents) IncrementAttempts(_ context.Context, id int64) error {
	event := r.s.data.webhookEvents[id]
	event.Attempts++
	r.s.data.webhookEvents[id] = event
	return nil
}

// collaborators

type stubPayments struct {
	session        *payments.CheckoutSession
	createErr      error
	paymentIntent  string
	intentErr      error
	refundErr      error
	createRequests []payments.CheckoutRequest
	intentLookups  []string
	refunds        []stubRefund
}

type stubRefund struct {
	paymentIntentID string
	idempotencyKey  string
}

func (p *stubPayments) CreateCheckoutSession(_ context.Context, req payments.CheckoutRequest) (*payments.CheckoutSession, error) {
	p.createRequests = append(p.createRequests, req)
	if p.createErr != nil {
		return nil, p.createErr
	}
	if p.session != nil {
		return p.session, nil
	}
	return &payments.CheckoutSession{ID: "cs_test_123", URL: "https://checkout.stripe.test/cs_test_123"}, nil
}

func (p *stubPayments) PaymentIntentForSession(_ context.Context, checkoutSessionID string) (string, error) {
	p.intentLookups = append(p.intentLookups, checkoutSessionID)
	return p.paymentIntent, p.intentErr
}

func (p *stubPayments) Refund(_ context.Context, paymentIntentID string, idempotencyKey string) error {
	p.refunds = append(p.refunds, stubRefund{paymentIntentID: paymentIntentID, idempotencyKey: idempotencyKey})
	return p.refundErr
}

type stubCalendar struct {
	meeting *calendar.Meeting
	err     error
	calls   []calendar.MeetingRequest
	creds   []calendar.Credentials
}

func (c *stubCalendar) CreateMeeting(_ context.Context, creds calendar.Credentials, req calendar.MeetingRequest) (*calendar.Meeting, error) {
	c.calls = append(c.calls, req)
	c.creds = append(c.creds, creds)
	return c.meeting, c.err
}

type stubMailer struct {
	sent []mailer.Message
	err  error
}

func (m *stubMailer) Send(_ context.Context, msg mailer.Message) error {
	m.sent = append(m.sent, msg)
	return m.err
}

type notification struct {
	userIDs []int64
	event   string
	payload any
}

type recordingNotifier struct {
	notifications []notification
}

func (n *recordingNotifier) Notify(userIDs []int64, event string, payload any) {
	n.notifications = append(n.notifications, notification{userIDs: userIDs, event: event, payload: payload})
}

// syncTasks runs dispatched work inline and keeps the outcome.
type syncTasks struct {
	mu     sync.Mutex
	names  []string
	errors map[string]error
}

func (t *syncTasks) Dispatch(name string, fn func(ctx context.Context) error) {
	err := runTask(context.Background(), fn)

	t.mu.Lock()
	defer t.mu.Unlock()
	t.names = append(t.names, name)
	if t.errors == nil {
		t.errors = map[string]error{}
	}
	if err != nil {
		t.errors[name] = err
	}
}

type stubLocker struct {
	held     map[string]bool
	err      error
	released []string
}

func (l *stubLocker) Acquire(_ context.Context, key string, _ time.Duration) (bool, error) {
	if l.err != nil {
		return false, l.err
	}
	if l.held[key] {
		return false, nil
	}
	return true, nil
}

func (l *stubLocker) Release(_ context.Context, key string) error {
	l.released = append(l.released, key)
	return nil
}
