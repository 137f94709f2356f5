package repository

import (
	"context"
	reservationerrors "courtkeeper/internal/reservations/errors"
	"courtkeeper/pkg/config"
	mongotx "courtkeeper/pkg/db/mongo"
	"courtkeeper/pkg/model"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const maxInsertAttempts = 3

type mongoReservationRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
	guards     *mongo.Collection
	txManager  mongotx.TransactionManager
}

func NewMongoReservationRepository(cfg *config.Config) ReservationRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoReservationRepository{
		cfg:        cfg,
		collection: db.Collection(CollectionName),
		guards:     db.Collection(GuardCollectionName),
		txManager:  mongotx.NewTransactionManager(cfg.Client.Mongo, cfg.Log),
	}
}

// withTimeout leaves session contexts untouched: wrapping a SessionContext
// would detach the operation from its transaction.
func (r *mongoReservationRepository) withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := ctx.(mongo.SessionContext); ok {
		return ctx, func() {}
	}
	return withTimeout(ctx, timeout)
}

// InsertIfNoOverlap runs one transaction per attempt. Bumping the guard
// document for (club, court, date) makes every concurrent writer on the same
// key write-conflict, so WithTransaction retries the loser and its overlap
// check sees the winner's insert.
func (r *mongoReservationRepository) InsertIfNoOverlap(ctx context.Context, res *model.Reservation) (*model.Reservation, bool, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.StoreWriteTimeout)
	defer cancel()

	var lastErr error
	for attempt := 0; attempt < maxInsertAttempts; attempt++ {
		var stored *model.Reservation
		var created bool

		err := r.txManager.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
			stored, created = nil, false

			if res.RequestKey != "" {
				existing, err := r.FindByRequestKey(sessCtx, res.ClubID, res.RequestKey)
				if err == nil {
					stored = existing
					return nil
				}
				if !errors.Is(err, reservationerrors.ErrNotFound) {
					return err
				}
			}

			if err := r.bumpGuard(sessCtx, res); err != nil {
				return err
			}

			conflictID, err := r.findOverlap(sessCtx, res)
			if err != nil {
				return err
			}
			if conflictID != "" {
				return &reservationerrors.OverlapError{ConflictingID: conflictID}
			}

			if _, err := r.collection.InsertOne(sessCtx, res); err != nil {
				return err
			}
			stored, created = res, true
			return nil
		})
		if err == nil {
			return stored, created, nil
		}
		if errors.Is(err, reservationerrors.ErrOverlap) {
			return nil, false, err
		}
		if mongo.IsDuplicateKeyError(err) {
			// A concurrent request with the same key committed first, or two
			// first-time guard upserts raced. Replay or retry.
			if res.RequestKey != "" {
				if existing, findErr := r.FindByRequestKey(ctx, res.ClubID, res.RequestKey); findErr == nil {
					return existing, false, nil
				}
			}
			lastErr = err
			continue
		}
		return nil, false, classifyMongo("insert reservation", err)
	}
	return nil, false, classifyMongo("insert reservation", lastErr)
}

func (r *mongoReservationRepository) bumpGuard(ctx mongo.SessionContext, res *model.Reservation) error {
	filter := bson.M{"_id": res.Key()}
	update := bson.M{
		"$inc": bson.M{"version": 1},
		"$set": bson.M{"updated_at": res.CreatedAt},
		"$setOnInsert": bson.M{
			"club_id":     res.ClubID,
			"resource_id": res.ResourceID,
			"date":        res.Date,
		},
	}
	if _, err := r.guards.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true)); err != nil {
		return fmt.Errorf("failed to bump slot guard: %w", err)
	}
	return nil
}

func (r *mongoReservationRepository) findOverlap(ctx mongo.SessionContext, res *model.Reservation) (string, error) {
	filter := bson.M{
		"club_id":     res.ClubID,
		"resource_id": res.ResourceID,
		"date":        res.Date,
		"status":      bson.M{"$in": statusStrings(model.ActiveStatuses)},
		"start_min":   bson.M{"$lt": int(res.End)},
		"end_min":     bson.M{"$gt": int(res.Start)},
	}
	var hit struct {
		ID string `bson:"_id"`
	}
	err := r.collection.FindOne(ctx, filter, options.FindOne().SetProjection(bson.M{"_id": 1})).Decode(&hit)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return "", nil
		}
		return "", fmt.Errorf("failed to check overlap: %w", err)
	}
	return hit.ID, nil
}

func (r *mongoReservationRepository) FindByID(ctx context.Context, id string) (*model.Reservation, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.StoreReadTimeout)
	defer cancel()

	var res model.Reservation
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&res)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, reservationerrors.ErrNotFound
		}
		return nil, classifyMongo("find reservation", err)
	}
	return &res, nil
}

func (r *mongoReservationRepository) FindByRequestKey(ctx context.Context, clubID, requestKey string) (*model.Reservation, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.StoreReadTimeout)
	defer cancel()

	var res model.Reservation
	err := r.collection.FindOne(ctx, bson.M{"club_id": clubID, "request_key": requestKey}).Decode(&res)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, reservationerrors.ErrNotFound
		}
		return nil, classifyMongo("find reservation by request key", err)
	}
	return &res, nil
}

func (r *mongoReservationRepository) FindActiveBySlot(ctx context.Context, clubID, resourceID, date string) ([]*model.Reservation, error) {
	filter := bson.M{
		"club_id":     clubID,
		"resource_id": resourceID,
		"date":        date,
		"status":      bson.M{"$in": statusStrings(model.ActiveStatuses)},
	}
	opts := options.Find().SetSort(bson.D{{Key: "start_min", Value: 1}})
	return r.find(ctx, "find active reservations", filter, opts)
}

func (r *mongoReservationRepository) FindByRequester(ctx context.Context, clubID, requesterID string, limit int, offset int64) ([]*model.Reservation, error) {
	filter := bson.M{"club_id": clubID, "requester_id": requesterID}
	opts := options.Find().
		SetSort(bson.D{{Key: "starts_at", Value: -1}}).
		SetLimit(int64(limit)).
		SetSkip(offset)
	return r.find(ctx, "find reservations by requester", filter, opts)
}

func (r *mongoReservationRepository) CountByRequester(ctx context.Context, clubID, requesterID string) (int64, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.StoreReadTimeout)
	defer cancel()

	n, err := r.collection.CountDocuments(ctx, bson.M{"club_id": clubID, "requester_id": requesterID})
	if err != nil {
		return 0, classifyMongo("count reservations", err)
	}
	return n, nil
}

func (r *mongoReservationRepository) CountActiveByRequester(ctx context.Context, clubID, requesterID string, endingAfter time.Time) (int64, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.StoreReadTimeout)
	defer cancel()

	filter := bson.M{
		"club_id":      clubID,
		"requester_id": requesterID,
		"source":       model.SourceMember,
		"status":       bson.M{"$in": statusStrings(model.ActiveStatuses)},
		"ends_at":      bson.M{"$gt": endingAfter},
	}
	n, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return 0, classifyMongo("count active reservations", err)
	}
	return n, nil
}

func (r *mongoReservationRepository) Transition(ctx context.Context, id string, t model.Transition) (*model.Reservation, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.StoreWriteTimeout)
	defer cancel()

	set := bson.M{"status": t.To, "updated_at": t.At}
	update := bson.M{"$set": set}
	switch t.To {
	case model.StatusConfirmed:
		set["confirmed_at"] = t.At
		update["$unset"] = bson.M{"hold_expires_at": ""}
	case model.StatusCancelled:
		set["cancelled_at"] = t.At
		set["cancelled_by"] = t.By
		set["cancel_reason"] = t.Reason
	}

	filter := bson.M{"_id": id, "status": bson.M{"$in": statusStrings(t.From)}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var res model.Reservation
	err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&res)
	if err == nil {
		return &res, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, classifyMongo("transition reservation", err)
	}

	if _, findErr := r.FindByID(ctx, id); findErr != nil {
		return nil, findErr
	}
	return nil, reservationerrors.ErrStatusChanged
}

func (r *mongoReservationRepository) FindExpiredHolds(ctx context.Context, now time.Time, limit int) ([]*model.Reservation, error) {
	filter := bson.M{
		"status":          model.StatusPending,
		"hold_expires_at": bson.M{"$lte": now},
	}
	opts := options.Find().SetSort(bson.D{{Key: "hold_expires_at", Value: 1}}).SetLimit(int64(limit))
	return r.find(ctx, "find expired holds", filter, opts)
}

func (r *mongoReservationRepository) FindEnded(ctx context.Context, now time.Time, limit int) ([]*model.Reservation, error) {
	filter := bson.M{
		"status":  model.StatusConfirmed,
		"ends_at": bson.M{"$lte": now},
	}
	opts := options.Find().SetSort(bson.D{{Key: "ends_at", Value: 1}}).SetLimit(int64(limit))
	return r.find(ctx, "find ended reservations", filter, opts)
}

func (r *mongoReservationRepository) find(ctx context.Context, op string, filter bson.M, opts *options.FindOptions) ([]*model.Reservation, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.StoreReadTimeout)
	defer cancel()

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, classifyMongo(op, err)
	}
	defer cursor.Close(ctx)

	reservations := make([]*model.Reservation, 0)
	if err := cursor.All(ctx, &reservations); err != nil {
		return nil, classifyMongo(op, err)
	}
	return reservations, nil
}

// classifyMongo tags driver errors with the store sentinels the services
// translate into retryable API errors.
func classifyMongo(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.DeadlineExceeded), mongo.IsTimeout(err):
		return fmt.Errorf("%s: %w: %w", op, reservationerrors.ErrStoreTimeout, err)
	case mongo.IsNetworkError(err), errors.Is(err, mongo.ErrClientDisconnected):
		return fmt.Errorf("%s: %w: %w", op, reservationerrors.ErrStoreUnavailable, err)
	default:
		return fmt.Errorf("failed to %s: %w", op, err)
	}
}
