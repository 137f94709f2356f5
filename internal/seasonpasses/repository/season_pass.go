package repository

import (
	"context"
	passerrors "courtkeeper/internal/seasonpasses/errors"
	"courtkeeper/pkg/config"
	"courtkeeper/pkg/model"
	"errors"
	"fmt"
	"sync"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

const (
	CollectionName = "Season_passes"
)

type SeasonPassRepository interface {
	Create(ctx context.Context, pass *model.SeasonPass) error
	FindByID(ctx context.Context, clubID, id string) (*model.SeasonPass, error)
	// Update replaces the status and ledger of a stored pass.
	Update(ctx context.Context, pass *model.SeasonPass) error
}

type mongoSeasonPassRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoSeasonPassRepository(cfg *config.Config) SeasonPassRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoSeasonPassRepository{
		cfg:        cfg,
		collection: db.Collection(CollectionName),
	}
}

func (r *mongoSeasonPassRepository) Create(ctx context.Context, pass *model.SeasonPass) error {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.StoreWriteTimeout)
	defer cancel()

	if _, err := r.collection.InsertOne(ctx, pass); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return passerrors.ErrAlreadyExists
		}
		return fmt.Errorf("failed to create season pass: %w", err)
	}
	return nil
}

func (r *mongoSeasonPassRepository) FindByID(ctx context.Context, clubID, id string) (*model.SeasonPass, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.StoreReadTimeout)
	defer cancel()

	var pass model.SeasonPass
	err := r.collection.FindOne(ctx, bson.M{"_id": id, "club_id": clubID}).Decode(&pass)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, passerrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find season pass: %w", err)
	}
	return &pass, nil
}

func (r *mongoSeasonPassRepository) Update(ctx context.Context, pass *model.SeasonPass) error {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.StoreWriteTimeout)
	defer cancel()

	update := bson.M{"$set": bson.M{
		"status":     pass.Status,
		"entries":    pass.Entries,
		"updated_at": pass.UpdatedAt,
	}}
	result, err := r.collection.UpdateByID(ctx, pass.ID, update)
	if err != nil {
		return fmt.Errorf("failed to update season pass: %w", err)
	}
	if result.MatchedCount == 0 {
		return passerrors.ErrNotFound
	}
	return nil
}

// MemorySeasonPassRepository backs the memory store driver and tests.
type MemorySeasonPassRepository struct {
	mu     sync.RWMutex
	passes map[string]*model.SeasonPass
}

func NewMemorySeasonPassRepository() *MemorySeasonPassRepository {
	return &MemorySeasonPassRepository{passes: make(map[string]*model.SeasonPass)}
}

func (m *MemorySeasonPassRepository) Create(ctx context.Context, pass *model.SeasonPass) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.passes[pass.ID]; exists {
		return passerrors.ErrAlreadyExists
	}
	m.passes[pass.ID] = clone(pass)
	return nil
}

func (m *MemorySeasonPassRepository) FindByID(ctx context.Context, clubID, id string) (*model.SeasonPass, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	pass, ok := m.passes[id]
	if !ok || pass.ClubID != clubID {
		return nil, passerrors.ErrNotFound
	}
	return clone(pass), nil
}

func (m *MemorySeasonPassRepository) Update(ctx context.Context, pass *model.SeasonPass) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.passes[pass.ID]
	if !ok {
		return passerrors.ErrNotFound
	}
	stored.Status = pass.Status
	stored.Entries = append([]model.LedgerEntry(nil), pass.Entries...)
	stored.UpdatedAt = pass.UpdatedAt
	return nil
}

func clone(pass *model.SeasonPass) *model.SeasonPass {
	c := *pass
	c.Entries = append([]model.LedgerEntry(nil), pass.Entries...)
	return &c
}
