package repository

import (
	"context"
	tournamenterrors "courtkeeper/internal/tournaments/errors"
	"courtkeeper/pkg/config"
	"courtkeeper/pkg/model"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

const (
	CollectionName = "Tournaments"
)

type TournamentRepository interface {
	Create(ctx context.Context, t *model.Tournament) error
	FindByID(ctx context.Context, clubID, id string) (*model.Tournament, error)
	UpdateStatus(ctx context.Context, id string, status model.TournamentStatus, at time.Time) error
}

type mongoTournamentRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoTournamentRepository(cfg *config.Config) TournamentRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoTournamentRepository{
		cfg:        cfg,
		collection: db.Collection(CollectionName),
	}
}

func (r *mongoTournamentRepository) Create(ctx context.Context, t *model.Tournament) error {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.StoreWriteTimeout)
	defer cancel()

	if _, err := r.collection.InsertOne(ctx, t); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return tournamenterrors.ErrAlreadyExists
		}
		return fmt.Errorf("failed to create tournament: %w", err)
	}
	return nil
}

func (r *mongoTournamentRepository) FindByID(ctx context.Context, clubID, id string) (*model.Tournament, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.StoreReadTimeout)
	defer cancel()

	var t model.Tournament
	err := r.collection.FindOne(ctx, bson.M{"_id": id, "club_id": clubID}).Decode(&t)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, tournamenterrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find tournament: %w", err)
	}
	return &t, nil
}

func (r *mongoTournamentRepository) UpdateStatus(ctx context.Context, id string, status model.TournamentStatus, at time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.StoreWriteTimeout)
	defer cancel()

	update := bson.M{"$set": bson.M{"status": status, "updated_at": at}}
	result, err := r.collection.UpdateByID(ctx, id, update)
	if err != nil {
		return fmt.Errorf("failed to update tournament: %w", err)
	}
	if result.MatchedCount == 0 {
		return tournamenterrors.ErrNotFound
	}
	return nil
}

// MemoryTournamentRepository backs the memory store driver and tests.
type MemoryTournamentRepository struct {
	mu          sync.RWMutex
	tournaments map[string]*model.Tournament
}

func NewMemoryTournamentRepository() *MemoryTournamentRepository {
	return &MemoryTournamentRepository{tournaments: make(map[string]*model.Tournament)}
}

func (m *MemoryTournamentRepository) Create(ctx context.Context, t *model.Tournament) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.tournaments[t.ID]; exists {
		return tournamenterrors.ErrAlreadyExists
	}
	m.tournaments[t.ID] = clone(t)
	return nil
}

func (m *MemoryTournamentRepository) FindByID(ctx context.Context, clubID, id string) (*model.Tournament, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	t, ok := m.tournaments[id]
	if !ok || t.ClubID != clubID {
		return nil, tournamenterrors.ErrNotFound
	}
	return clone(t), nil
}

func (m *MemoryTournamentRepository) UpdateStatus(ctx context.Context, id string, status model.TournamentStatus, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.tournaments[id]
	if !ok {
		return tournamenterrors.ErrNotFound
	}
	t.Status = status
	t.UpdatedAt = at
	return nil
}

func clone(t *model.Tournament) *model.Tournament {
	c := *t
	c.Blocks = append([]model.TimeSlot(nil), t.Blocks...)
	c.ReservationIDs = append([]string(nil), t.ReservationIDs...)
	return &c
}
