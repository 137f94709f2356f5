package postgres

import (
	"context"
	"courtkeeper/pkg/logger"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// statements are applied in order and each one is idempotent.
var statements = []struct {
	Name string
	SQL  string
}{
	{
		Name: "btree_gist extension",
		SQL:  `CREATE EXTENSION IF NOT EXISTS btree_gist`,
	},
	{
		Name: "reservations table",
		SQL: `CREATE TABLE IF NOT EXISTS reservations (
			id               TEXT PRIMARY KEY,
			club_id          TEXT NOT NULL,
			requester_id     TEXT NOT NULL,
			resource_id      TEXT NOT NULL,
			date             TEXT NOT NULL CHECK (date ~ '^\d{4}-\d{2}-\d{2}$'),
			start_min        INTEGER NOT NULL CHECK (start_min >= 0 AND start_min < 1440),
			end_min          INTEGER NOT NULL CHECK (end_min > start_min AND end_min <= 1440),
			starts_at        TIMESTAMPTZ NOT NULL,
			ends_at          TIMESTAMPTZ NOT NULL,
			status           TEXT NOT NULL CHECK (status IN ('pending', 'confirmed', 'cancelled', 'completed', 'no_show')),
			source           TEXT NOT NULL CHECK (source IN ('member', 'tournament', 'season_pass')),
			request_key      TEXT NOT NULL DEFAULT '',
			entitlement_id   TEXT NOT NULL DEFAULT '',
			discount_percent INTEGER NOT NULL DEFAULT 0 CHECK (discount_percent BETWEEN 0 AND 100),
			tournament_id    TEXT NOT NULL DEFAULT '',
			season_pass_id   TEXT NOT NULL DEFAULT '',
			hold_expires_at  TIMESTAMPTZ,
			created_at       TIMESTAMPTZ NOT NULL,
			updated_at       TIMESTAMPTZ NOT NULL,
			confirmed_at     TIMESTAMPTZ,
			cancelled_at     TIMESTAMPTZ,
			cancelled_by     TEXT NOT NULL DEFAULT '',
			cancel_reason    TEXT NOT NULL DEFAULT ''
		)`,
	},
	{
		Name: "reservations_no_overlap constraint",
		SQL: `DO $$
		BEGIN
			IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'reservations_no_overlap') THEN
				ALTER TABLE reservations ADD CONSTRAINT reservations_no_overlap
					EXCLUDE USING gist (
						club_id WITH =,
						resource_id WITH =,
						date WITH =,
						int4range(start_min, end_min) WITH &&
					) WHERE (status IN ('pending', 'confirmed'));
			END IF;
		END
		$$`,
	},
	{
		Name: "request key index",
		SQL: `CREATE UNIQUE INDEX IF NOT EXISTS reservations_request_key_unique
			ON reservations (club_id, request_key) WHERE request_key <> ''`,
	},
	{
		Name: "requester index",
		SQL: `CREATE INDEX IF NOT EXISTS reservations_requester
			ON reservations (club_id, requester_id, starts_at DESC)`,
	},
	{
		Name: "hold expiry index",
		SQL: `CREATE INDEX IF NOT EXISTS reservations_hold_expiry
			ON reservations (hold_expires_at) WHERE status = 'pending'`,
	},
	{
		Name: "ended index",
		SQL: `CREATE INDEX IF NOT EXISTS reservations_ends_at
			ON reservations (ends_at) WHERE status = 'confirmed'`,
	},
}

// RunMigration creates the reservations schema. The exclusion constraint is
// what keeps two active reservations of one court from overlapping.
func RunMigration(ctx context.Context, db *sqlx.DB, log *logger.Logger) error {
	log.Info("Running Postgres migrations", "statements", len(statements))

	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt.SQL); err != nil {
			return fmt.Errorf("failed to apply %s: %w", stmt.Name, err)
		}
		log.Info("Applied migration", "name", stmt.Name)
	}

	log.Info("All Postgres migrations applied")
	return nil
}
