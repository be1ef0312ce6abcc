package repository

import (
	"context"

	"github.com/Nebulafr/Nebula-sub000/internal/models"
	"github.com/jackc/pgx/v5"
)

const enrollmentColumns = `
	id, student_id, program_id, coach_id, cohort_id, status, payment_status,
	stripe_session_id, created_at, updated_at
`

type CreateEnrollmentInput struct {
	StudentID       int64
	ProgramID       int64
	CoachID         int64
	CohortID        *int64
	Status          string
	PaymentStatus   string
	StripeSessionID *string
}

type EnrollmentRepository struct {
	db DBTX
}

func NewEnrollmentRepository(db DBTX) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

func scanEnrollment(row pgx.Row) (*models.Enrollment, error) {
	var enrollment models.Enrollment
	err := row.Scan(
		&enrollment.ID,
		&enrollment.StudentID,
		&enrollment.ProgramID,
		&enrollment.CoachID,
		&enrollment.CohortID,
		&enrollment.Status,
		&enrollment.PaymentStatus,
		&enrollment.StripeSessionID,
		&enrollment.CreatedAt,
		&enrollment.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &enrollment, nil
}

func (r *EnrollmentRepository) GetByID(ctx context.Context, id int64) (*models.Enrollment, error) {
	query := `SELECT ` + enrollmentColumns + ` FROM enrollments WHERE id = $1`
	return scanEnrollment(r.db.QueryRow(ctx, query, id))
}

func (r *EnrollmentRepository) GetByStudentAndProgram(
	ctx context.Context,
	studentID int64,
	programID int64,
) (*models.Enrollment, error) {
	query := `SELECT ` + enrollmentColumns + ` FROM enrollments WHERE student_id = $1 AND program_id = $2`
	return scanEnrollment(r.db.QueryRow(ctx, query, studentID, programID))
}

func (r *EnrollmentRepository) Create(ctx context.Context, input CreateEnrollmentInput) (*models.Enrollment, error) {
	query := `
		INSERT INTO enrollments (student_id, program_id, coach_id, cohort_id, status, payment_status, stripe_session_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + enrollmentColumns
	enrollment, err := scanEnrollment(r.db.QueryRow(
		ctx,
		query,
		input.StudentID,
		input.ProgramID,
		input.CoachID,
		input.CohortID,
		input.Status,
		input.PaymentStatus,
		input.StripeSessionID,
	))
	if err != nil {
		return nil, translateError(err)
	}
	return enrollment, nil
}

// Activate marks an enrollment ACTIVE/PAID. A nil stripeSessionID or cohortID
// keeps the stored value.
func (r *EnrollmentRepository) Activate(
	ctx context.Context,
	id int64,
	stripeSessionID *string,
	cohortID *int64,
) (*models.Enrollment, error) {
	query := `
		UPDATE enrollments
		SET status = 'ACTIVE',
			payment_status = 'PAID',
			stripe_session_id = COALESCE($2, stripe_session_id),
			cohort_id = COALESCE($3, cohort_id),
			updated_at = NOW()
		WHERE id = $1
		RETURNING ` + enrollmentColumns
	return scanEnrollment(r.db.QueryRow(ctx, query, id, stripeSessionID, cohortID))
}

func (r *EnrollmentRepository) UpdatePaymentState(
	ctx context.Context,
	id int64,
	status string,
	paymentStatus string,
) (*models.Enrollment, error) {
	query := `
		UPDATE enrollments
		SET status = $2, payment_status = $3, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + enrollmentColumns
	return scanEnrollment(r.db.QueryRow(ctx, query, id, status, paymentStatus))
}
