package availability

import (
	"context"
	"courtkeeper/pkg/clock"
	"courtkeeper/pkg/config"
	"courtkeeper/pkg/logger"
	"courtkeeper/pkg/model"
	"encoding/json"
	"fmt"
	"time"
)

// ReservationReader is the slice of the reservation store the cache needs to
// recompute an entry.
type ReservationReader interface {
	FindActiveBySlot(ctx context.Context, clubID, resourceID, date string) ([]*model.Reservation, error)
}

// Cache is a read-through, write-invalidate cache of free/busy maps per
// (club, court, date). A failing or missing store degrades to recomputing
// every read: the cache never fails a request and is never consulted when
// deciding whether a booking conflicts.
type Cache struct {
	store     Store
	reader    ReservationReader
	clock     clock.Clock
	ttl       time.Duration
	prefix    string
	opTimeout time.Duration
	log       *logger.Logger
}

func NewCache(store Store, reader ReservationReader, clk clock.Clock, cfg *config.Config) *Cache {
	return &Cache{
		store:     store,
		reader:    reader,
		clock:     clk,
		ttl:       cfg.AvailabilityTTL,
		prefix:    cfg.CachePrefix,
		opTimeout: cfg.CacheOpTimeout,
		log:       cfg.Log.Component("availability_cache"),
	}
}

// key wraps the slot in a hash tag so the entry and its generation share a
// Redis Cluster slot.
func (c *Cache) key(clubID, resourceID, date string) string {
	return c.prefix + "availability:{" + model.SlotKey(clubID, resourceID, date) + "}"
}

// Get returns the free/busy map of a court on a date within the club's
// opening hours.
func (c *Cache) Get(ctx context.Context, club *model.Club, resourceID, date string) (*model.Availability, error) {
	key := c.key(club.ID, resourceID, date)

	if cached, ok := c.lookup(ctx, key); ok {
		return cached, nil
	}

	// Read before the reservations so an invalidation racing the refill
	// makes save a no-op.
	gen, genOK := c.generation(ctx, key)

	active, err := c.reader.FindActiveBySlot(ctx, club.ID, resourceID, date)
	if err != nil {
		return nil, fmt.Errorf("failed to load active reservations: %w", err)
	}

	window := model.TimeSlot{
		ResourceID: resourceID,
		Date:       date,
		Start:      club.Rules.OpensAt,
		End:        club.Rules.ClosesAt,
	}
	availability := model.BuildAvailability(club.ID, window, active, c.clock.Now())

	if genOK {
		c.save(ctx, key, gen, availability)
	}
	return availability, nil
}

func (c *Cache) GetFreeSlots(ctx context.Context, club *model.Club, resourceID, date string) ([]model.TimeSlot, error) {
	availability, err := c.Get(ctx, club, resourceID, date)
	if err != nil {
		return nil, err
	}
	return availability.FreeSlots(), nil
}

// Invalidate drops the entry for (club, court, date). It runs on a detached
// context so a cancelled request still clears the entry it just changed.
func (c *Cache) Invalidate(ctx context.Context, clubID, resourceID, date string) {
	if c.store == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.opTimeout)
	defer cancel()

	key := c.key(clubID, resourceID, date)
	if err := c.store.Invalidate(ctx, key); err != nil {
		c.log.Warn("CacheUnavailable: failed to invalidate availability",
			"key", key,
			"error", err,
		)
	}
}

func (c *Cache) lookup(ctx context.Context, key string) (*model.Availability, bool) {
	if c.store == nil {
		return nil, false
	}

	ctx, cancel := context.WithTimeout(ctx, c.opTimeout)
	defer cancel()

	bs, found, err := c.store.Get(ctx, key)
	if err != nil {
		c.log.Warn("CacheUnavailable: treating read as a miss", "key", key, "error", err)
		return nil, false
	}
	if !found {
		return nil, false
	}

	var availability model.Availability
	if err := json.Unmarshal(bs, &availability); err != nil {
		c.log.Warn("Discarding unreadable availability entry", "key", key, "error", err)
		return nil, false
	}
	return &availability, true
}

func (c *Cache) generation(ctx context.Context, key string) (int64, bool) {
	if c.store == nil {
		return 0, false
	}

	ctx, cancel := context.WithTimeout(ctx, c.opTimeout)
	defer cancel()

	gen, err := c.store.Generation(ctx, key)
	if err != nil {
		c.log.Warn("CacheUnavailable: skipping refill", "key", key, "error", err)
		return 0, false
	}
	return gen, true
}

func (c *Cache) save(ctx context.Context, key string, gen int64, availability *model.Availability) {
	if c.store == nil {
		return
	}

	bs, err := json.Marshal(availability)
	if err != nil {
		c.log.Warn("Failed to encode availability", "key", key, "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.opTimeout)
	defer cancel()

	stored, err := c.store.SetIfGeneration(ctx, key, gen, bs, c.ttl)
	if err != nil {
		c.log.Warn("CacheUnavailable: failed to store availability", "key", key, "error", err)
		return
	}
	if !stored {
		c.log.Debug("Availability changed during refill, not caching", "key", key)
	}
}
