package repository

import (
	"context"

	"github.com/Nebulafr/Nebula-sub000/internal/models"
	"github.com/jackc/pgx/v5"
)

type ProgramRepository struct {
	db DBTX
}

func NewProgramRepository(db DBTX) *ProgramRepository {
	return &ProgramRepository{db: db}
}

func (r *ProgramRepository) GetByID(ctx context.Context, id int64) (*models.Program, error) {
	query := `
		SELECT id, coach_id, title, description, price, current_enrollments, is_active, created_at, updated_at
		FROM programs
		WHERE id = $1
	`
	var program models.Program
	err := r.db.QueryRow(ctx, query, id).Scan(
		&program.ID,
		&program.CoachID,
		&program.Title,
		&program.Description,
		&program.Price,
		&program.CurrentEnrollments,
		&program.IsActive,
		&program.CreatedAt,
		&program.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &program, nil
}

func (r *ProgramRepository) IncrementEnrollments(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE programs
		SET current_enrollments = current_enrollments + 1, updated_at = NOW()
		WHERE id = $1
	`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// DecrementEnrollments never takes the counter below zero.
func (r *ProgramRepository) DecrementEnrollments(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE programs
		SET current_enrollments = GREATEST(current_enrollments - 1, 0), updated_at = NOW()
		WHERE id = $1
	`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
