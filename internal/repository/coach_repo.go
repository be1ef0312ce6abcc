package repository

import (
	"context"
	"time"

	"github.com/Nebulafr/Nebula-sub000/internal/models"
	"github.com/jackc/pgx/v5"
)

const coachColumns = `
	c.id, c.user_id, u.full_name, u.email, c.hourly_rate, c.timezone, c.is_active,
	c.total_sessions, c.google_access_token, c.google_refresh_token, c.google_token_expiry,
	c.created_at, c.updated_at
`

type CoachRepository struct {
	db DBTX
}

func NewCoachRepository(db DBTX) *CoachRepository {
	return &CoachRepository{db: db}
}

func scanCoach(row pgx.Row) (*models.Coach, error) {
	var coach models.Coach
	err := row.Scan(
		&coach.ID,
		&coach.UserID,
		&coach.FullName,
		&coach.Email,
		&coach.HourlyRate,
		&coach.Timezone,
		&coach.IsActive,
		&coach.TotalSessions,
		&coach.GoogleAccessToken,
		&coach.GoogleRefreshToken,
		&coach.GoogleTokenExpiry,
		&coach.CreatedAt,
		&coach.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &coach, nil
}

func (r *CoachRepository) Create(ctx context.Context, userID int64, hourlyRate float64, timezone string) (*models.Coach, error) {
	query := `
		WITH inserted AS (
			INSERT INTO coaches (user_id, hourly_rate, timezone)
			VALUES ($1, $2, $3)
			RETURNING *
		)
		SELECT ` + coachColumns + `
		FROM inserted c
		JOIN users u ON u.id = c.user_id
	`
	coach, err := scanCoach(r.db.QueryRow(ctx, query, userID, hourlyRate, timezone))
	if err != nil {
		return nil, translateError(err)
	}
	return coach, nil
}

func (r *CoachRepository) GetByID(ctx context.Context, id int64) (*models.Coach, error) {
	query := `
		SELECT ` + coachColumns + `
		FROM coaches c
		JOIN users u ON u.id = c.user_id
		WHERE c.id = $1
	`
	return scanCoach(r.db.QueryRow(ctx, query, id))
}

func (r *CoachRepository) GetByUserID(ctx context.Context, userID int64) (*models.Coach, error) {
	query := `
		SELECT ` + coachColumns + `
		FROM coaches c
		JOIN users u ON u.id = c.user_id
		WHERE c.user_id = $1
	`
	return scanCoach(r.db.QueryRow(ctx, query, userID))
}

func (r *CoachRepository) IncrementTotalSessions(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE coaches
		SET total_sessions = total_sessions + 1, updated_at = NOW()
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

func (r *CoachRepository) UpdateGoogleAccessToken(
	ctx context.Context,
	id int64,
	accessToken string,
	expiry *time.Time,
) error {
	_, err := r.db.Exec(ctx, `
		UPDATE coaches
		SET google_access_token = $2, google_token_expiry = $3, updated_at = NOW()
		WHERE id = $1
	`, id, accessToken, expiry)
	return err
}
