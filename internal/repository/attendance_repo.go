package repository

import (
	"context"

	"github.com/Nebulafr/Nebula-sub000/internal/models"
)

type AttendanceRepository struct {
	db DBTX
}

func NewAttendanceRepository(db DBTX) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

func (r *AttendanceRepository) Create(ctx context.Context, sessionID int64, studentID int64) (*models.SessionAttendance, error) {
	query := `
		INSERT INTO session_attendances (session_id, student_id, attended)
		VALUES ($1, $2, FALSE)
		RETURNING id, session_id, student_id, attended, joined_at, left_at, created_at
	`
	var attendance models.SessionAttendance
	err := r.db.QueryRow(ctx, query, sessionID, studentID).Scan(
		&attendance.ID,
		&attendance.SessionID,
		&attendance.StudentID,
		&attendance.Attended,
		&attendance.JoinedAt,
		&attendance.LeftAt,
		&attendance.CreatedAt,
	)
	if err != nil {
		return nil, translateError(err)
	}
	return &attendance, nil
}

func (r *AttendanceRepository) ListBySession(ctx context.Context, sessionID int64) ([]models.SessionAttendance, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, session_id, student_id, attended, joined_at, left_at, created_at
		FROM session_attendances
		WHERE session_id = $1
		ORDER BY id ASC
	`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	attendances := make([]models.SessionAttendance, 0)
	for rows.Next() {
		var attendance models.SessionAttendance
		if err := rows.Scan(
			&attendance.ID,
			&attendance.SessionID,
			&attendance.StudentID,
			&attendance.Attended,
			&attendance.JoinedAt,
			&attendance.LeftAt,
			&attendance.CreatedAt,
		); err != nil {
			return nil, err
		}
		attendances = append(attendances, attendance)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return attendances, nil
}
