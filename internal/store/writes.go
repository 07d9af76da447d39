package store

import (
	"database/sql"
	"net"
	"time"
)

// InsertRequestLog appends a request_log row inside tx.
func (s *Store) InsertRequestLog(tx *sql.Tx, ts time.Time, domain, path, userAgent, clientIP string) error {
	_, err := tx.Exec(
		`INSERT INTO request_log (domain, path, timestamp, user_agent, client_ip) VALUES (?, ?, ?, ?, ?)`,
		domain, path, unixMillis(ts), userAgent, clientIP,
	)
	return err
}

// InsertCookieTraffic appends a cookie_traffic row inside tx.
func (s *Store) InsertCookieTraffic(tx *sql.Tx, ts time.Time, domain, cookie string, blocked bool) error {
	_, err := tx.Exec(
		`INSERT INTO cookie_traffic (domain, cookie, timestamp, blocked) VALUES (?, ?, ?, ?)`,
		domain, cookie, unixMillis(ts), boolToInt(blocked),
	)
	return err
}

// InsertFingerprintRotation appends a fingerprint_rotations row inside tx.
func (s *Store) InsertFingerprintRotation(tx *sql.Tx, ts time.Time, userAgent, acceptLanguage, mode string) error {
	_, err := tx.Exec(
		`INSERT INTO fingerprint_rotations (timestamp, user_agent, accept_language, mode) VALUES (?, ?, ?, ?)`,
		unixMillis(ts), userAgent, acceptLanguage, mode,
	)
	return err
}

// UpsertTracking writes the current hit_count/blocked state for host,
// routing IP-literal CONNECT targets to tracking_ips and everything else to
// tracking_domains (spec §6 lists both tables; §3's prose focuses on
// domains but IP-literal targets need a home too).
func (s *Store) UpsertTracking(tx *sql.Tx, host string, hitCount uint64, blocked bool, category string) error {
	if net.ParseIP(host) != nil {
		return s.upsertTrackingIP(tx, host, hitCount, blocked)
	}
	return s.UpsertTrackingDomain(tx, host, hitCount, blocked, category)
}

func (s *Store) upsertTrackingIP(tx *sql.Tx, ip string, hitCount uint64, blocked bool) error {
	_, err := tx.Exec(`
		INSERT INTO tracking_ips (ip, hit_count, blocked)
		VALUES (?, ?, ?)
		ON CONFLICT(ip) DO UPDATE SET
			hit_count = excluded.hit_count,
			blocked   = excluded.blocked
	`, ip, hitCount, boolToInt(blocked))
	return err
}

// UpsertTrackingDomain writes the current hit_count/blocked/category for
// domain, creating the row if absent (spec §4.5 item 1).
func (s *Store) UpsertTrackingDomain(tx *sql.Tx, domain string, hitCount uint64, blocked bool, category string) error {
	_, err := tx.Exec(`
		INSERT INTO tracking_domains (domain, hit_count, blocked, category)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(domain) DO UPDATE SET
			hit_count = excluded.hit_count,
			blocked   = excluded.blocked,
			category  = CASE WHEN excluded.category = '' THEN tracking_domains.category ELSE excluded.category END
	`, domain, hitCount, boolToInt(blocked), category)
	return err
}

// SetWhitelist upserts a whitelist row (CLI "whitelist add" write path).
func (s *Store) SetWhitelist(tx *sql.Tx, domain, reason string) error {
	_, err := tx.Exec(`
		INSERT INTO whitelist (domain, reason) VALUES (?, ?)
		ON CONFLICT(domain) DO UPDATE SET reason = excluded.reason
	`, domain, reason)
	return err
}

// RemoveWhitelist deletes a whitelist row (CLI "whitelist remove" write path).
func (s *Store) RemoveWhitelist(tx *sql.Tx, domain string) error {
	_, err := tx.Exec(`DELETE FROM whitelist WHERE domain = ?`, domain)
	return err
}

// SetDomainBlocked force-sets a tracking_domains.blocked flag (CLI "block" write path).
func (s *Store) SetDomainBlocked(tx *sql.Tx, domain string, blocked bool) error {
	_, err := tx.Exec(`
		INSERT INTO tracking_domains (domain, hit_count, blocked, category)
		VALUES (?, 0, ?, '')
		ON CONFLICT(domain) DO UPDATE SET blocked = excluded.blocked
	`, domain, boolToInt(blocked))
	return err
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
