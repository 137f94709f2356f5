package repository

import (
	"context"
	reservationerrors "courtkeeper/internal/reservations/errors"
	"courtkeeper/pkg/model"
	"slices"
	"sort"
	"sync"
	"time"
)

// MemoryReservationRepository keeps reservations in process. It serializes
// every write behind one mutex, so it only guards a single instance: use it
// for tests and local runs, never behind a load balancer.
type MemoryReservationRepository struct {
	mu   sync.Mutex
	byID map[string]*model.Reservation
	keys map[string]string
}

func NewMemoryReservationRepository() *MemoryReservationRepository {
	return &MemoryReservationRepository{
		byID: make(map[string]*model.Reservation),
		keys: make(map[string]string),
	}
}

func requestKeyIndex(clubID, requestKey string) string {
	return clubID + "|" + requestKey
}

func clone(r *model.Reservation) *model.Reservation {
	c := *r
	return &c
}

func (m *MemoryReservationRepository) InsertIfNoOverlap(ctx context.Context, res *model.Reservation) (*model.Reservation, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, classifyContext("insert reservation", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if res.RequestKey != "" {
		if id, ok := m.keys[requestKeyIndex(res.ClubID, res.RequestKey)]; ok {
			return clone(m.byID[id]), false, nil
		}
	}

	for _, existing := range m.byID {
		if existing.ClubID == res.ClubID && existing.Status.IsActive() && existing.TimeSlot.Overlaps(res.TimeSlot) {
			return nil, false, &reservationerrors.OverlapError{ConflictingID: existing.ID}
		}
	}

	stored := clone(res)
	m.byID[stored.ID] = stored
	if stored.RequestKey != "" {
		m.keys[requestKeyIndex(stored.ClubID, stored.RequestKey)] = stored.ID
	}
	return clone(stored), true, nil
}

func (m *MemoryReservationRepository) FindByID(ctx context.Context, id string) (*model.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	res, ok := m.byID[id]
	if !ok {
		return nil, reservationerrors.ErrNotFound
	}
	return clone(res), nil
}

func (m *MemoryReservationRepository) FindByRequestKey(ctx context.Context, clubID, requestKey string) (*model.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id, ok := m.keys[requestKeyIndex(clubID, requestKey)]
	if !ok {
		return nil, reservationerrors.ErrNotFound
	}
	return clone(m.byID[id]), nil
}

func (m *MemoryReservationRepository) FindActiveBySlot(ctx context.Context, clubID, resourceID, date string) ([]*model.Reservation, error) {
	out := m.filter(func(r *model.Reservation) bool {
		return r.ClubID == clubID && r.ResourceID == resourceID && r.Date == date && r.Status.IsActive()
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Start < out[j].Start })
	return out, nil
}

func (m *MemoryReservationRepository) FindByRequester(ctx context.Context, clubID, requesterID string, limit int, offset int64) ([]*model.Reservation, error) {
	out := m.filter(func(r *model.Reservation) bool {
		return r.ClubID == clubID && r.RequesterID == requesterID
	})
	sort.Slice(out, func(i, j int) bool { return out[i].StartsAt.After(out[j].StartsAt) })

	if offset >= int64(len(out)) {
		return []*model.Reservation{}, nil
	}
	out = out[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryReservationRepository) CountByRequester(ctx context.Context, clubID, requesterID string) (int64, error) {
	out := m.filter(func(r *model.Reservation) bool {
		return r.ClubID == clubID && r.RequesterID == requesterID
	})
	return int64(len(out)), nil
}

func (m *MemoryReservationRepository) CountActiveByRequester(ctx context.Context, clubID, requesterID string, endingAfter time.Time) (int64, error) {
	out := m.filter(func(r *model.Reservation) bool {
		return r.ClubID == clubID && r.RequesterID == requesterID && r.Source == model.SourceMember &&
			r.Status.IsActive() && r.EndsAt.After(endingAfter)
	})
	return int64(len(out)), nil
}

func (m *MemoryReservationRepository) Transition(ctx context.Context, id string, t model.Transition) (*model.Reservation, error) {
	if err := ctx.Err(); err != nil {
		return nil, classifyContext("transition reservation", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	res, ok := m.byID[id]
	if !ok {
		return nil, reservationerrors.ErrNotFound
	}
	if !slices.Contains(t.From, res.Status) {
		return nil, reservationerrors.ErrStatusChanged
	}
	applyTransition(res, t)
	return clone(res), nil
}

func (m *MemoryReservationRepository) FindExpiredHolds(ctx context.Context, now time.Time, limit int) ([]*model.Reservation, error) {
	out := m.filter(func(r *model.Reservation) bool {
		return r.HoldExpired(now)
	})
	return truncate(out, limit), nil
}

func (m *MemoryReservationRepository) FindEnded(ctx context.Context, now time.Time, limit int) ([]*model.Reservation, error) {
	out := m.filter(func(r *model.Reservation) bool {
		return r.Status == model.StatusConfirmed && !r.EndsAt.After(now)
	})
	return truncate(out, limit), nil
}

func (m *MemoryReservationRepository) filter(keep func(*model.Reservation) bool) []*model.Reservation {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]*model.Reservation, 0)
	for _, r := range m.byID {
		if keep(r) {
			out = append(out, clone(r))
		}
	}
	return out
}

func truncate(rs []*model.Reservation, limit int) []*model.Reservation {
	if limit > 0 && len(rs) > limit {
		return rs[:limit]
	}
	return rs
}
