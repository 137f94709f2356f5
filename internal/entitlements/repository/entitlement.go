package repository

import (
	"context"
	"courtkeeper/pkg/config"
	"courtkeeper/pkg/model"
	"errors"
	"fmt"
	"sync"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

const (
	CollectionName = "Entitlements"
)

var ErrNotFound = errors.New("entitlement not found")

type EntitlementRepository interface {
	Create(ctx context.Context, e *model.Entitlement) error
	// FindValidOn returns the user's entitlements in the club whose validity
	// range includes date.
	FindValidOn(ctx context.Context, clubID, userID, date string) ([]*model.Entitlement, error)
	// EndOn shortens an entitlement so its last valid day is validUntil.
	EndOn(ctx context.Context, id, validUntil string) error
}

type mongoEntitlementRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoEntitlementRepository(cfg *config.Config) EntitlementRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoEntitlementRepository{
		cfg:        cfg,
		collection: db.Collection(CollectionName),
	}
}

func (r *mongoEntitlementRepository) Create(ctx context.Context, e *model.Entitlement) error {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.StoreWriteTimeout)
	defer cancel()

	if _, err := r.collection.InsertOne(ctx, e); err != nil {
		return fmt.Errorf("failed to create entitlement: %w", err)
	}
	return nil
}

func (r *mongoEntitlementRepository) FindValidOn(ctx context.Context, clubID, userID, date string) ([]*model.Entitlement, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.StoreReadTimeout)
	defer cancel()

	filter := bson.M{
		"club_id":     clubID,
		"user_id":     userID,
		"valid_from":  bson.M{"$lte": date},
		"valid_until": bson.M{"$gte": date},
	}
	cursor, err := r.collection.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to find entitlements: %w", err)
	}
	defer cursor.Close(ctx)

	entitlements := make([]*model.Entitlement, 0)
	if err := cursor.All(ctx, &entitlements); err != nil {
		return nil, fmt.Errorf("failed to decode entitlements: %w", err)
	}
	return entitlements, nil
}

func (r *mongoEntitlementRepository) EndOn(ctx context.Context, id, validUntil string) error {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.StoreWriteTimeout)
	defer cancel()

	result, err := r.collection.UpdateByID(ctx, id, bson.M{"$set": bson.M{"valid_until": validUntil}})
	if err != nil {
		return fmt.Errorf("failed to end entitlement: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// MemoryEntitlementRepository backs the memory store driver and tests.
type MemoryEntitlementRepository struct {
	mu           sync.RWMutex
	entitlements map[string]*model.Entitlement
}

func NewMemoryEntitlementRepository() *MemoryEntitlementRepository {
	return &MemoryEntitlementRepository{entitlements: make(map[string]*model.Entitlement)}
}

func (m *MemoryEntitlementRepository) Create(ctx context.Context, e *model.Entitlement) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.entitlements[e.ID]; exists {
		return fmt.Errorf("entitlement %s already exists", e.ID)
	}
	c := *e
	m.entitlements[e.ID] = &c
	return nil
}

func (m *MemoryEntitlementRepository) FindValidOn(ctx context.Context, clubID, userID, date string) ([]*model.Entitlement, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*model.Entitlement, 0)
	for _, e := range m.entitlements {
		if e.ClubID == clubID && e.UserID == userID && e.ValidOn(date) {
			c := *e
			out = append(out, &c)
		}
	}
	return out, nil
}

func (m *MemoryEntitlementRepository) EndOn(ctx context.Context, id, validUntil string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entitlements[id]
	if !ok {
		return ErrNotFound
	}
	e.ValidUntil = validUntil
	return nil
}
