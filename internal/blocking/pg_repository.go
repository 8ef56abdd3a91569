package blocking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/consultorio-psicologia/booking-admin/internal/schedule"
)

const blockedSlotColumns = `id, blocked_date, blocked_time, reason, created_at`

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

func scanBlockedSlot(row pgx.Row) (*BlockedSlot, error) {
	var b BlockedSlot
	var blockedTime *string

	err := row.Scan(
		&b.ID,
		&b.BlockedDate,
		&blockedTime,
		&b.Reason,
		&b.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBlockedSlotNotFound
		}
		return nil, err
	}

	if blockedTime != nil {
		t := schedule.TimeSlot(*blockedTime)
		b.BlockedTime = &t
	}
	b.BlockedDate = schedule.DateOf(b.BlockedDate)
	return &b, nil
}

func collectBlockedSlots(rows pgx.Rows) ([]BlockedSlot, error) {
	defer rows.Close()

	var result []BlockedSlot
	for rows.Next() {
		b, err := scanBlockedSlot(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *b)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (r *PgRepository) Create(ctx context.Context, slot BlockedSlot) (*BlockedSlot, error) {
	id := uuid.New()

	var blockedTime *string
	if slot.BlockedTime != nil {
		s := string(*slot.BlockedTime)
		blockedTime = &s
	}

	row := r.pool.QueryRow(ctx, `
		INSERT INTO blocked_slots (id, blocked_date, blocked_time, reason, created_at)
		VALUES ($1, $2, $3, $4, now())
		RETURNING `+blockedSlotColumns,
		id, slot.BlockedDate, blockedTime, slot.Reason)

	created, err := scanBlockedSlot(row)
	if err != nil {
		return nil, fmt.Errorf("insert blocked slot: %w", err)
	}
	return created, nil
}

func (r *PgRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM blocked_slots WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete blocked slot: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrBlockedSlotNotFound
	}
	return nil
}

func (r *PgRepository) ListByDate(ctx context.Context, date time.Time) ([]BlockedSlot, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+blockedSlotColumns+`
		FROM blocked_slots
		WHERE blocked_date = $1
		ORDER BY blocked_time NULLS FIRST, created_at
	`, date)
	if err != nil {
		return nil, err
	}
	return collectBlockedSlots(rows)
}

func (r *PgRepository) List(ctx context.Context, filter ListFilter) ([]BlockedSlot, error) {
	var (
		conds []string
		args  []any
	)
	if filter.From != nil {
		args = append(args, *filter.From)
		conds = append(conds, fmt.Sprintf("blocked_date >= $%d", len(args)))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		conds = append(conds, fmt.Sprintf("blocked_date <= $%d", len(args)))
	}

	query := `SELECT ` + blockedSlotColumns + ` FROM blocked_slots`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	query += ` ORDER BY blocked_date, blocked_time NULLS FIRST, created_at`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return collectBlockedSlots(rows)
}

func (r *PgRepository) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM blocked_slots WHERE blocked_date < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge blocked slots: %w", err)
	}
	return tag.RowsAffected(), nil
}
