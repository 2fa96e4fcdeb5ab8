package data

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jobsift/jobsift/internal/data/pgxutil"
)

// digestRunName keys the single digest cursor row. A named row leaves room
// for additional digests (e.g. per recipient) without a schema change.
const digestRunName = "job_digest"

// LastDigestRun returns when the digest last ran, or the zero time when it
// never has.
func (r *JobRepo) LastDigestRun(ctx context.Context) (time.Time, error) {
	var last time.Time
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		return conn.QueryRow(ctx,
			`SELECT last_run FROM digest_runs WHERE name = $1`, digestRunName,
		).Scan(&last)
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return time.Time{}, nil
		}
		return time.Time{}, fmt.Errorf("get last digest run: %w", err)
	}
	return last, nil
}

// RecordDigestRun persists the digest timestamp. Called only after a
// successful send so a failed delivery is retried with the same window.
func (r *JobRepo) RecordDigestRun(ctx context.Context, at time.Time) error {
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		_, execErr := conn.Exec(ctx, `
			INSERT INTO digest_runs (name, last_run)
			VALUES ($1, $2)
			ON CONFLICT (name) DO UPDATE SET last_run = EXCLUDED.last_run`,
			digestRunName, at.UTC())
		return execErr
	})
	if err != nil {
		return fmt.Errorf("record digest run: %w", err)
	}
	return nil
}
