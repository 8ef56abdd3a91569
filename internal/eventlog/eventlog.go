package eventlog

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

const (
	EventBlockedSlotsCreated  = "BLOCKED_SLOTS_CREATED"
	EventBlockedSlotDeleted   = "BLOCKED_SLOT_DELETED"
	EventBlockedDayDeleted    = "BLOCKED_DAY_DELETED"
	EventAppointmentCancelled = "APPOINTMENT_CANCELLED"
)

type EventLog struct {
	ID            int64
	EventType     string
	AppointmentID *uuid.UUID
	Payload       []byte
	CreatedAt     time.Time
}

// Store persists audit events.
type Store interface {
	InsertEvent(ctx context.Context, ev EventLog) error
}

type PgStore struct {
	pool *pgxpool.Pool
}

func NewPgStore(pool *pgxpool.Pool) *PgStore {
	return &PgStore{pool: pool}
}

func (s *PgStore) InsertEvent(ctx context.Context, ev EventLog) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO event_logs (event_type, appointment_id, payload, created_at)
		VALUES ($1, $2, $3, COALESCE($4, now()))
	`, ev.EventType, ev.AppointmentID, ev.Payload, nullableTime(ev.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert event log: %w", err)
	}
	return nil
}

// Recorder writes events best-effort: failures are logged and dropped.
type Recorder struct {
	store  Store
	logger *zap.Logger
}

func NewRecorder(store Store, logger *zap.Logger) *Recorder {
	return &Recorder{store: store, logger: logger}
}

// Record is safe to call on a nil Recorder.
func (r *Recorder) Record(ctx context.Context, eventType string, appointmentID *uuid.UUID, payload map[string]any) {
	if r == nil || r.store == nil {
		return
	}

	data, err := json.Marshal(payload)
	if err != nil {
		r.logger.Warn("marshal event payload", zap.String("event", eventType), zap.Error(err))
		data = nil
	}

	ev := EventLog{
		EventType:     eventType,
		AppointmentID: appointmentID,
		Payload:       data,
		CreatedAt:     time.Now(),
	}

	if err := r.store.InsertEvent(ctx, ev); err != nil {
		r.logger.Warn("insert event log", zap.String("event", eventType), zap.Error(err))
	}
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
