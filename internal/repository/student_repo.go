package repository

import (
	"context"

	"github.com/Nebulafr/Nebula-sub000/internal/models"
	"github.com/jackc/pgx/v5"
)

const studentColumns = `s.id, s.user_id, u.full_name, u.email, s.timezone, s.created_at, s.updated_at`

type StudentRepository struct {
	db DBTX
}

func NewStudentRepository(db DBTX) *StudentRepository {
	return &StudentRepository{db: db}
}

func scanStudent(row pgx.Row) (*models.Student, error) {
	var student models.Student
	err := row.Scan(
		&student.ID,
		&student.UserID,
		&student.FullName,
		&student.Email,
		&student.Timezone,
		&student.CreatedAt,
		&student.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &student, nil
}

func (r *StudentRepository) Create(ctx context.Context, userID int64, timezone *string) (*models.Student, error) {
	query := `
		WITH inserted AS (
			INSERT INTO students (user_id, timezone)
			VALUES ($1, $2)
			RETURNING *
		)
		SELECT ` + studentColumns + `
		FROM inserted s
		JOIN users u ON u.id = s.user_id
	`
	student, err := scanStudent(r.db.QueryRow(ctx, query, userID, timezone))
	if err != nil {
		return nil, translateError(err)
	}
	return student, nil
}

func (r *StudentRepository) GetByID(ctx context.Context, id int64) (*models.Student, error) {
	query := `
		SELECT ` + studentColumns + `
		FROM students s
		JOIN users u ON u.id = s.user_id
		WHERE s.id = $1
	`
	return scanStudent(r.db.QueryRow(ctx, query, id))
}

func (r *StudentRepository) GetByUserID(ctx context.Context, userID int64) (*models.Student, error) {
	query := `
		SELECT ` + studentColumns + `
		FROM students s
		JOIN users u ON u.id = s.user_id
		WHERE s.user_id = $1
	`
	return scanStudent(r.db.QueryRow(ctx, query, userID))
}
