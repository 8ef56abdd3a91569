package blocking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/consultorio-psicologia/booking-admin/internal/eventlog"
	redisclient "github.com/consultorio-psicologia/booking-admin/internal/redis"
	"github.com/consultorio-psicologia/booking-admin/internal/schedule"
)

var (
	ErrDateBeingBlocked = errors.New("date is currently being blocked by another request, please retry")
	ErrBlockIncomplete  = errors.New("some blocks could not be created")
	ErrDeleteIncomplete = errors.New("some blocked slots could not be deleted")
)

type Service struct {
	repo   Repository
	locker redisclient.Locker
	events *eventlog.Recorder
	logger *zap.Logger
}

func NewService(repo Repository, locker redisclient.Locker, events *eventlog.Recorder, logger *zap.Logger) *Service {
	if locker == nil {
		locker = redisclient.LocalLocker{}
	}
	return &Service{
		repo:   repo,
		locker: locker,
		events: events,
		logger: logger,
	}
}

// Block expands req and creates one row per planned block, one date at a
// time in ascending order. Each date is handled under its own lock, and
// inside it times that are already blocked are skipped.
//
// A validation error is returned with an empty result. When a write fails the
// remaining dates are not attempted; rows created so far stay in place and
// the result lists which items still need to be retried.
func (s *Service) Block(ctx context.Context, req BlockRequest) (BlockResult, error) {
	planned, err := Plan(req)
	if err != nil {
		return BlockResult{}, err
	}

	var reason *string
	if req.Reason != "" {
		reason = &req.Reason
	}

	byDate := groupByDate(planned)
	result := BlockResult{Items: make([]ItemResult, 0, len(planned))}

	var failure error
	for _, group := range byDate {
		if failure == nil {
			if err := ctx.Err(); err != nil {
				failure = err
			}
		}
		if failure != nil {
			result.Items = append(result.Items, notAttempted(group)...)
			continue
		}

		items, err := s.blockDate(ctx, group, reason)
		result.Items = append(result.Items, items...)
		if err != nil {
			failure = err
			s.logger.Error("blocking stopped",
				zap.String("date", schedule.FormatDate(group[0].Date)),
				zap.Error(err))
		}
	}

	created := result.Created()
	if len(created) > 0 {
		dates := make([]string, 0, len(created))
		for _, b := range created {
			dates = append(dates, schedule.FormatDate(b.BlockedDate))
		}
		s.events.Record(ctx, eventlog.EventBlockedSlotsCreated, nil, map[string]any{
			"count":     len(created),
			"dates":     dates,
			"full_day":  req.BlockFullDay,
			"reason":    req.Reason,
			"completed": failure == nil,
		})
	}

	if failure != nil {
		return result, fmt.Errorf("%w: %w", ErrBlockIncomplete, failure)
	}
	return result, nil
}

func (s *Service) blockDate(ctx context.Context, group []PlannedBlock, reason *string) ([]ItemResult, error) {
	date := group[0].Date
	key := "blocked:" + schedule.FormatDate(date)

	var items []ItemResult
	err := s.locker.WithLock(ctx, key, func(lockCtx context.Context) error {
		existing, err := s.repo.ListByDate(lockCtx, date)
		if err != nil {
			return fmt.Errorf("load blocks for %s: %w", schedule.FormatDate(date), err)
		}

		for i, pb := range group {
			if alreadyBlocked(existing, pb.Time) {
				items = append(items, ItemResult{Date: pb.Date, Time: pb.Time, Outcome: OutcomeAlreadyBlocked})
				continue
			}

			created, err := s.repo.Create(lockCtx, BlockedSlot{
				BlockedDate: pb.Date,
				BlockedTime: pb.Time,
				Reason:      reason,
			})
			if err != nil {
				items = append(items, ItemResult{Date: pb.Date, Time: pb.Time, Outcome: OutcomeFailed, Err: err})
				items = append(items, notAttempted(group[i+1:])...)
				return err
			}

			existing = append(existing, *created)
			items = append(items, ItemResult{Date: pb.Date, Time: pb.Time, Outcome: OutcomeCreated, Slot: created})
		}
		return nil
	})

	if err != nil && len(items) == 0 {
		// The lock was not taken or the existing rows could not be read.
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			err = ErrDateBeingBlocked
		}
		for _, pb := range group {
			items = append(items, ItemResult{Date: pb.Date, Time: pb.Time, Outcome: OutcomeFailed, Err: err})
		}
	}
	return items, err
}

// alreadyBlocked reports whether t (nil for full day) is covered by existing rows.
func alreadyBlocked(existing []BlockedSlot, t *schedule.TimeSlot) bool {
	for _, b := range existing {
		if b.IsFullDay() {
			return true
		}
		if t != nil && *b.BlockedTime == *t {
			return true
		}
	}
	return false
}

func groupByDate(planned []PlannedBlock) [][]PlannedBlock {
	var groups [][]PlannedBlock
	for _, pb := range planned {
		n := len(groups)
		if n > 0 && groups[n-1][0].Date.Equal(pb.Date) {
			groups[n-1] = append(groups[n-1], pb)
			continue
		}
		groups = append(groups, []PlannedBlock{pb})
	}
	return groups
}

func notAttempted(group []PlannedBlock) []ItemResult {
	items := make([]ItemResult, 0, len(group))
	for _, pb := range group {
		items = append(items, ItemResult{Date: pb.Date, Time: pb.Time, Outcome: OutcomeNotAttempted})
	}
	return items
}

// DeleteBlockedSlot removes one row. Deleting an id that is already gone
// returns ErrBlockedSlotNotFound and changes nothing.
func (s *Service) DeleteBlockedSlot(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, ErrBlockedSlotNotFound) {
			return err
		}
		return fmt.Errorf("delete blocked slot: %w", err)
	}

	s.events.Record(ctx, eventlog.EventBlockedSlotDeleted, nil, map[string]any{
		"blocked_slot_id": id.String(),
	})
	return nil
}

// DeleteDay removes every block on date one by one. Rows deleted before a
// failure stay deleted; failures are joined into the returned error.
func (s *Service) DeleteDay(ctx context.Context, date time.Time) (DeleteDayResult, error) {
	date = schedule.DateOf(date)
	result := DeleteDayResult{Date: date, Failed: map[uuid.UUID]error{}}

	blocks, err := s.repo.ListByDate(ctx, date)
	if err != nil {
		return result, fmt.Errorf("load blocks for %s: %w", schedule.FormatDate(date), err)
	}

	var errs []error
	for _, b := range blocks {
		err := s.repo.Delete(ctx, b.ID)
		switch {
		case err == nil:
			result.Deleted = append(result.Deleted, b.ID)
		case errors.Is(err, ErrBlockedSlotNotFound):
			// removed concurrently; the day still ends up clear of it
		default:
			s.logger.Warn("delete blocked slot failed",
				zap.String("date", schedule.FormatDate(date)),
				zap.String("blocked_slot_id", b.ID.String()),
				zap.Error(err))
			result.Failed[b.ID] = err
			errs = append(errs, fmt.Errorf("%s: %w", b.ID, err))
		}
	}

	if len(result.Deleted) > 0 {
		s.events.Record(ctx, eventlog.EventBlockedDayDeleted, nil, map[string]any{
			"date":    schedule.FormatDate(date),
			"deleted": len(result.Deleted),
			"failed":  len(result.Failed),
		})
	}

	if len(errs) > 0 {
		return result, fmt.Errorf("%w: %w", ErrDeleteIncomplete, errors.Join(errs...))
	}
	return result, nil
}

// ReplaceDay rewrites the blocks of one date: the existing rows are deleted
// and the new single-day request is applied. If any delete fails nothing is
// created.
func (s *Service) ReplaceDay(ctx context.Context, date time.Time, blockFullDay bool, times []schedule.TimeSlot, reason string) (BlockResult, error) {
	date = schedule.DateOf(date)
	req := BlockRequest{
		DateFrom:      date,
		BlockFullDay:  blockFullDay,
		SpecificTimes: times,
		Reason:        reason,
	}
	if _, err := Plan(req); err != nil {
		return BlockResult{}, err
	}

	if _, err := s.DeleteDay(ctx, date); err != nil {
		return BlockResult{}, err
	}
	return s.Block(ctx, req)
}

// Day returns the blocking state of date so the time picker can disable
// slots that are already blocked.
func (s *Service) Day(ctx context.Context, date time.Time) (DayView, error) {
	date = schedule.DateOf(date)

	blocks, err := s.repo.ListByDate(ctx, date)
	if err != nil {
		return DayView{}, fmt.Errorf("load blocks for %s: %w", schedule.FormatDate(date), err)
	}

	view := DayView{
		Date:    date,
		DayType: schedule.DayTypeOf(date),
		Blocks:  blocks,
	}

	byTime := make(map[schedule.TimeSlot]uuid.UUID)
	for _, b := range blocks {
		if b.IsFullDay() {
			if !view.FullDayBlocked {
				id := b.ID
				view.FullDayBlockID = &id
			}
			view.FullDayBlocked = true
			continue
		}
		if _, ok := byTime[*b.BlockedTime]; !ok {
			byTime[*b.BlockedTime] = b.ID
		}
	}

	for _, t := range schedule.AvailableSlotsForDate(date) {
		st := SlotState{Time: t, Label: schedule.SlotLabel(t)}
		if id, ok := byTime[t]; ok {
			st.Blocked = true
			st.BlockID = &id
		} else if view.FullDayBlocked {
			st.Blocked = true
		}
		view.Slots = append(view.Slots, st)
	}

	return view, nil
}

func (s *Service) List(ctx context.Context, filter ListFilter) ([]BlockedSlot, error) {
	if filter.From != nil && filter.To != nil && filter.To.Before(*filter.From) {
		return nil, invalid("to", MsgDateToBeforeFrom)
	}

	blocks, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list blocked slots: %w", err)
	}
	return blocks, nil
}

// RetentionCutoff is the first date the janitor keeps: today in the practice
// timezone minus the retention window, rounded down to whole days.
func RetentionCutoff(now time.Time, loc *time.Location, retention time.Duration) time.Time {
	today := schedule.DateOf(now.In(loc))
	return today.AddDate(0, 0, -int(retention/(24*time.Hour)))
}

// PurgeBefore deletes blocks dated strictly before cutoff. It is intended to
// be called by the janitor periodically.
func (s *Service) PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	n, err := s.repo.DeleteBefore(ctx, schedule.DateOf(cutoff))
	if err != nil {
		return 0, err
	}
	return n, nil
}
