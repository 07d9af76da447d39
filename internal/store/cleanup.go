package store

import (
	"context"
	"database/sql"
	"time"
)

// PurgeOlderThan deletes rows older than cutoff from the three append-only
// log tables. tracking_domains, tracking_ips, and whitelist are never
// purged by retention — they are current-state tables, not logs (spec §4.8).
func (s *Store) PurgeOlderThan(ctx context.Context, cutoff time.Time) error {
	cutoffMillis := unixMillis(cutoff)
	return s.WithTx(ctx, func(tx *sql.Tx) error {
		for _, table := range []string{"request_log", "cookie_traffic", "fingerprint_rotations"} {
			if _, err := tx.Exec(`DELETE FROM `+table+` WHERE timestamp < ?`, cutoffMillis); err != nil {
				return err
			}
		}
		return nil
	})
}
