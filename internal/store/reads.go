package store

import "context"

// TrackingDomain is a single tracking_domains row (CLI "stats"/"domains" reads).
type TrackingDomain struct {
	Domain   string
	HitCount uint64
	Blocked  bool
	Category string
}

// Domains returns every tracking_domains row, most-hit first.
func (s *Store) Domains(ctx context.Context) ([]TrackingDomain, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT domain, hit_count, blocked, category FROM tracking_domains ORDER BY hit_count DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TrackingDomain
	for rows.Next() {
		var d TrackingDomain
		var blocked int
		if err := rows.Scan(&d.Domain, &d.HitCount, &blocked, &d.Category); err != nil {
			return nil, err
		}
		d.Blocked = blocked != 0
		out = append(out, d)
	}
	return out, rows.Err()
}

// WhitelistEntries returns the whitelist table contents as a host->reason map.
func (s *Store) WhitelistEntries(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT domain, reason FROM whitelist`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var domain, reason string
		if err := rows.Scan(&domain, &reason); err != nil {
			return nil, err
		}
		out[domain] = reason
	}
	return out, rows.Err()
}

// TrackingDomainsByHost returns the tracking_domains table contents keyed by host,
// used to seed internal/policy.Tracking at startup.
func (s *Store) TrackingDomainsByHost(ctx context.Context) (map[string]TrackingDomain, error) {
	domains, err := s.Domains(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]TrackingDomain, len(domains))
	for _, d := range domains {
		out[d.Domain] = d
	}
	return out, nil
}

// TrackingIP is a single tracking_ips row.
type TrackingIP struct {
	IP       string
	HitCount uint64
	Blocked  bool
}

// TrackingIPs returns every tracking_ips row, most-hit first.
func (s *Store) TrackingIPs(ctx context.Context) ([]TrackingIP, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT ip, hit_count, blocked FROM tracking_ips ORDER BY hit_count DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TrackingIP
	for rows.Next() {
		var ip TrackingIP
		var blocked int
		if err := rows.Scan(&ip.IP, &ip.HitCount, &blocked); err != nil {
			return nil, err
		}
		ip.Blocked = blocked != 0
		out = append(out, ip)
	}
	return out, rows.Err()
}

// Stats is an aggregate summary for the CLI "stats" command.
type Stats struct {
	TotalRequests      int64
	TotalDomains       int64
	BlockedDomains     int64
	CookiesBlocked     int64
	FingerprintRotations int64
}

// Summary computes aggregate counters across all logged tables.
func (s *Store) Summary(ctx context.Context) (Stats, error) {
	var st Stats
	queries := []struct {
		query string
		dest  *int64
	}{
		{`SELECT COUNT(*) FROM request_log`, &st.TotalRequests},
		{`SELECT COUNT(*) FROM tracking_domains`, &st.TotalDomains},
		{`SELECT COUNT(*) FROM tracking_domains WHERE blocked = 1`, &st.BlockedDomains},
		{`SELECT COUNT(*) FROM cookie_traffic WHERE blocked = 1`, &st.CookiesBlocked},
		{`SELECT COUNT(*) FROM fingerprint_rotations`, &st.FingerprintRotations},
	}
	for _, q := range queries {
		if err := s.db.QueryRowContext(ctx, q.query).Scan(q.dest); err != nil {
			return Stats{}, err
		}
	}
	return st, nil
}

// RequestLogRow is a single request_log row (CLI "export" read).
type RequestLogRow struct {
	Domain    string
	Path      string
	Timestamp int64
	UserAgent string
	ClientIP  string
}

// ExportRequestLog returns every request_log row in timestamp order.
func (s *Store) ExportRequestLog(ctx context.Context) ([]RequestLogRow, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT domain, path, timestamp, user_agent, client_ip FROM request_log ORDER BY timestamp ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RequestLogRow
	for rows.Next() {
		var r RequestLogRow
		if err := rows.Scan(&r.Domain, &r.Path, &r.Timestamp, &r.UserAgent, &r.ClientIP); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
