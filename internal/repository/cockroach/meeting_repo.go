package cockroach

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"meetdesk-backend/internal/domain"
	apperrors "meetdesk-backend/pkg/errors"
)

const meetingsSchema = `
	CREATE TABLE IF NOT EXISTS meetings (
		meeting_id  STRING PRIMARY KEY,
		category    STRING NOT NULL,
		created_by  UUID NOT NULL,
		starts_at   TIMESTAMPTZ NOT NULL,
		description STRING NOT NULL DEFAULT '',
		created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
		INDEX meetings_created_by_idx (created_by, starts_at DESC)
	)
`

// MeetingRepository handles meeting data operations
type MeetingRepository struct {
	pool *pgxpool.Pool
}

// NewMeetingRepository creates a new meeting repository
func NewMeetingRepository(pool *pgxpool.Pool) *MeetingRepository {
	return &MeetingRepository{pool: pool}
}

// EnsureSchema creates the meetings table if it does not exist
func (r *MeetingRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, meetingsSchema); err != nil {
		return fmt.Errorf("failed to create meetings table: %w", err)
	}
	return nil
}

// GetOrCreate inserts the meeting unless its id exists, then returns the stored row.
// The bool reports whether this call inserted it.
func (r *MeetingRepository) GetOrCreate(ctx context.Context, m *domain.Meeting) (*domain.Meeting, bool, error) {
	query := `
		INSERT INTO meetings (
			meeting_id, category, created_by, starts_at, description, created_at
		) VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (meeting_id) DO NOTHING
		RETURNING meeting_id, category, created_by, starts_at, description, created_at
	`

	stored := &domain.Meeting{}
	err := r.pool.QueryRow(ctx, query,
		m.MeetingID,
		m.Category,
		m.CreatedBy,
		m.StartsAt,
		m.Description,
		m.CreatedAt,
	).Scan(
		&stored.MeetingID,
		&stored.Category,
		&stored.CreatedBy,
		&stored.StartsAt,
		&stored.Description,
		&stored.CreatedAt,
	)
	if err == nil {
		return stored, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, fmt.Errorf("failed to create meeting: %w", err)
	}

	existing, err := r.GetByID(ctx, m.MeetingID)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

// GetByID retrieves a meeting by ID
func (r *MeetingRepository) GetByID(ctx context.Context, meetingID string) (*domain.Meeting, error) {
	query := `
		SELECT meeting_id, category, created_by, starts_at, description, created_at
		FROM meetings
		WHERE meeting_id = $1
	`

	m := &domain.Meeting{}
	err := r.pool.QueryRow(ctx, query, meetingID).Scan(
		&m.MeetingID,
		&m.Category,
		&m.CreatedBy,
		&m.StartsAt,
		&m.Description,
		&m.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.MeetingNotFoundError()
		}
		return nil, fmt.Errorf("failed to get meeting: %w", err)
	}

	return m, nil
}

// ListByCreator retrieves meetings created by a user.
// A nil upcoming lists everything; otherwise rows are split at now.
func (r *MeetingRepository) ListByCreator(ctx context.Context, userID uuid.UUID, upcoming *bool, now time.Time, limit, offset int) ([]*domain.Meeting, error) {
	query := `
		SELECT meeting_id, category, created_by, starts_at, description, created_at
		FROM meetings
		WHERE created_by = $1
	`
	order := "DESC"
	if upcoming != nil {
		if *upcoming {
			query += ` AND starts_at > $4`
			order = "ASC"
		} else {
			query += ` AND starts_at <= $4`
		}
	} else {
		// Keep the placeholder count stable.
		query += ` AND $4::TIMESTAMPTZ IS NOT NULL`
	}
	query += ` ORDER BY starts_at ` + order + ` LIMIT $2 OFFSET $3`

	rows, err := r.pool.Query(ctx, query, userID, limit, offset, now)
	if err != nil {
		return nil, fmt.Errorf("failed to list meetings: %w", err)
	}
	defer rows.Close()

	var meetings []*domain.Meeting
	for rows.Next() {
		m := &domain.Meeting{}
		err := rows.Scan(
			&m.MeetingID,
			&m.Category,
			&m.CreatedBy,
			&m.StartsAt,
			&m.Description,
			&m.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan meeting: %w", err)
		}
		meetings = append(meetings, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate meetings: %w", err)
	}

	return meetings, nil
}
