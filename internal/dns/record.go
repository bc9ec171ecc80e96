package dns

import "time"

// TTL is the freshness window of a cached AddressRecord.
const TTL = 30 * time.Second

// AddressRecord binds a host to the address it resolved to at ResolvedAt.
// Records are never mutated; a refresh stores a new record in its place.
type AddressRecord struct {
	Host       string
	Address    string
	ResolvedAt time.Time
}

// IsLive reports whether now is strictly within TTL of ResolvedAt.
func (r AddressRecord) IsLive(now time.Time) bool {
	return now.Sub(r.ResolvedAt) < TTL
}
