package repository

import (
	"context"
	reservationerrors "courtkeeper/internal/reservations/errors"
	"courtkeeper/pkg/config"
	"courtkeeper/pkg/model"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

const TableName = "reservations"

const (
	pgExclusionViolation = "23P01"
	pgUniqueViolation    = "23505"
	pgQueryCanceled      = "57014"
	pgAdminShutdown      = "57P01"
)

const reservationColumns = `id, club_id, requester_id, resource_id, date, start_min, end_min,
	starts_at, ends_at, status, source, request_key, entitlement_id, discount_percent,
	tournament_id, season_pass_id, hold_expires_at, created_at, updated_at,
	confirmed_at, cancelled_at, cancelled_by, cancel_reason`

// postgresReservationRepository leans on the reservations_no_overlap
// exclusion constraint: the database itself rejects a second active row whose
// minute range intersects an existing one on the same court and date.
type postgresReservationRepository struct {
	cfg *config.Config
	db  *sqlx.DB
}

func NewPostgresReservationRepository(cfg *config.Config) ReservationRepository {
	return &postgresReservationRepository{
		cfg: cfg,
		db:  cfg.Client.Postgres,
	}
}

func (r *postgresReservationRepository) InsertIfNoOverlap(ctx context.Context, res *model.Reservation) (*model.Reservation, bool, error) {
	ctx, cancel := withTimeout(ctx, r.cfg.StoreWriteTimeout)
	defer cancel()

	if res.RequestKey != "" {
		existing, err := r.FindByRequestKey(ctx, res.ClubID, res.RequestKey)
		if err == nil {
			return existing, false, nil
		}
		if !errors.Is(err, reservationerrors.ErrNotFound) {
			return nil, false, err
		}
	}

	query := `INSERT INTO ` + TableName + ` (` + reservationColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
			$15, $16, $17, $18, $19, $20, $21, $22, $23)`

	_, err := r.db.ExecContext(ctx, query,
		res.ID, res.ClubID, res.RequesterID, res.ResourceID, res.Date, int(res.Start), int(res.End),
		res.StartsAt, res.EndsAt, string(res.Status), string(res.Source), res.RequestKey,
		res.EntitlementID, res.DiscountPercent, res.TournamentID, res.SeasonPassID,
		res.HoldExpiresAt, res.CreatedAt, res.UpdatedAt, res.ConfirmedAt, res.CancelledAt,
		res.CancelledBy, res.CancelReason,
	)
	if err == nil {
		return res, true, nil
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case pgExclusionViolation:
			return nil, false, &reservationerrors.OverlapError{ConflictingID: r.conflictingID(ctx, res)}
		case pgUniqueViolation:
			if res.RequestKey != "" {
				existing, findErr := r.FindByRequestKey(ctx, res.ClubID, res.RequestKey)
				if findErr == nil {
					return existing, false, nil
				}
			}
			return nil, false, fmt.Errorf("insert reservation: %w: %w", reservationerrors.ErrDuplicateRequestKey, err)
		}
	}
	return nil, false, classifyPostgres("insert reservation", err)
}

// conflictingID is best effort: the blocking row may already be gone.
func (r *postgresReservationRepository) conflictingID(ctx context.Context, res *model.Reservation) string {
	query := `SELECT id FROM ` + TableName + `
		WHERE club_id = $1 AND resource_id = $2 AND date = $3
			AND status = ANY($4) AND start_min < $5 AND end_min > $6
		LIMIT 1`
	var id string
	err := r.db.GetContext(ctx, &id, query,
		res.ClubID, res.ResourceID, res.Date,
		pq.Array(statusStrings(model.ActiveStatuses)), int(res.End), int(res.Start),
	)
	if err != nil {
		return ""
	}
	return id
}

func (r *postgresReservationRepository) FindByID(ctx context.Context, id string) (*model.Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM ` + TableName + ` WHERE id = $1`
	return r.get(ctx, "find reservation", query, id)
}

func (r *postgresReservationRepository) FindByRequestKey(ctx context.Context, clubID, requestKey string) (*model.Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM ` + TableName + ` WHERE club_id = $1 AND request_key = $2`
	return r.get(ctx, "find reservation by request key", query, clubID, requestKey)
}

func (r *postgresReservationRepository) FindActiveBySlot(ctx context.Context, clubID, resourceID, date string) ([]*model.Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM ` + TableName + `
		WHERE club_id = $1 AND resource_id = $2 AND date = $3 AND status = ANY($4)
		ORDER BY start_min`
	return r.selectMany(ctx, "find active reservations", query,
		clubID, resourceID, date, pq.Array(statusStrings(model.ActiveStatuses)))
}

func (r *postgresReservationRepository) FindByRequester(ctx context.Context, clubID, requesterID string, limit int, offset int64) ([]*model.Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM ` + TableName + `
		WHERE club_id = $1 AND requester_id = $2
		ORDER BY starts_at DESC
		LIMIT $3 OFFSET $4`
	return r.selectMany(ctx, "find reservations by requester", query, clubID, requesterID, limit, offset)
}

func (r *postgresReservationRepository) CountByRequester(ctx context.Context, clubID, requesterID string) (int64, error) {
	ctx, cancel := withTimeout(ctx, r.cfg.StoreReadTimeout)
	defer cancel()

	var n int64
	query := `SELECT COUNT(*) FROM ` + TableName + ` WHERE club_id = $1 AND requester_id = $2`
	if err := r.db.GetContext(ctx, &n, query, clubID, requesterID); err != nil {
		return 0, classifyPostgres("count reservations", err)
	}
	return n, nil
}

func (r *postgresReservationRepository) CountActiveByRequester(ctx context.Context, clubID, requesterID string, endingAfter time.Time) (int64, error) {
	ctx, cancel := withTimeout(ctx, r.cfg.StoreReadTimeout)
	defer cancel()

	var n int64
	query := `SELECT COUNT(*) FROM ` + TableName + `
		WHERE club_id = $1 AND requester_id = $2 AND source = $3 AND status = ANY($4) AND ends_at > $5`
	err := r.db.GetContext(ctx, &n, query,
		clubID, requesterID, model.SourceMember, pq.Array(statusStrings(model.ActiveStatuses)), endingAfter)
	if err != nil {
		return 0, classifyPostgres("count active reservations", err)
	}
	return n, nil
}

func (r *postgresReservationRepository) Transition(ctx context.Context, id string, t model.Transition) (*model.Reservation, error) {
	ctx, cancel := withTimeout(ctx, r.cfg.StoreWriteTimeout)
	defer cancel()

	query := `UPDATE ` + TableName + ` SET
			status = $2,
			updated_at = $3,
			confirmed_at = CASE WHEN $2 = 'confirmed' THEN $3 ELSE confirmed_at END,
			hold_expires_at = CASE WHEN $2 = 'confirmed' THEN NULL ELSE hold_expires_at END,
			cancelled_at = CASE WHEN $2 = 'cancelled' THEN $3 ELSE cancelled_at END,
			cancelled_by = CASE WHEN $2 = 'cancelled' THEN $4 ELSE cancelled_by END,
			cancel_reason = CASE WHEN $2 = 'cancelled' THEN $5 ELSE cancel_reason END
		WHERE id = $1 AND status = ANY($6)
		RETURNING ` + reservationColumns

	var res model.Reservation
	err := r.db.GetContext(ctx, &res, query,
		id, string(t.To), t.At, t.By, t.Reason, pq.Array(statusStrings(t.From)))
	if err == nil {
		return &res, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, classifyPostgres("transition reservation", err)
	}

	if _, findErr := r.FindByID(ctx, id); findErr != nil {
		return nil, findErr
	}
	return nil, reservationerrors.ErrStatusChanged
}

func (r *postgresReservationRepository) FindExpiredHolds(ctx context.Context, now time.Time, limit int) ([]*model.Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM ` + TableName + `
		WHERE status = 'pending' AND hold_expires_at <= $1
		ORDER BY hold_expires_at
		LIMIT $2`
	return r.selectMany(ctx, "find expired holds", query, now, limit)
}

func (r *postgresReservationRepository) FindEnded(ctx context.Context, now time.Time, limit int) ([]*model.Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM ` + TableName + `
		WHERE status = 'confirmed' AND ends_at <= $1
		ORDER BY ends_at
		LIMIT $2`
	return r.selectMany(ctx, "find ended reservations", query, now, limit)
}

func (r *postgresReservationRepository) get(ctx context.Context, op, query string, args ...any) (*model.Reservation, error) {
	ctx, cancel := withTimeout(ctx, r.cfg.StoreReadTimeout)
	defer cancel()

	var res model.Reservation
	if err := r.db.GetContext(ctx, &res, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, reservationerrors.ErrNotFound
		}
		return nil, classifyPostgres(op, err)
	}
	return &res, nil
}

func (r *postgresReservationRepository) selectMany(ctx context.Context, op, query string, args ...any) ([]*model.Reservation, error) {
	ctx, cancel := withTimeout(ctx, r.cfg.StoreReadTimeout)
	defer cancel()

	reservations := make([]*model.Reservation, 0)
	if err := r.db.SelectContext(ctx, &reservations, query, args...); err != nil {
		return nil, classifyPostgres(op, err)
	}
	return reservations, nil
}

func classifyPostgres(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w: %w", op, reservationerrors.ErrStoreTimeout, err)
	}
	if errors.Is(err, sql.ErrConnDone) {
		return fmt.Errorf("%s: %w: %w", op, reservationerrors.ErrStoreUnavailable, err)
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		code := string(pqErr.Code)
		switch {
		case code == pgQueryCanceled:
			return fmt.Errorf("%s: %w: %w", op, reservationerrors.ErrStoreTimeout, err)
		case code == pgAdminShutdown, strings.HasPrefix(code, "08"):
			return fmt.Errorf("%s: %w: %w", op, reservationerrors.ErrStoreUnavailable, err)
		}
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}
