package gameid

import "github.com/google/uuid"

// NewRecordID mints an id for a non-cryptographic, non-client-facing
// record (e.g. a hand history entry). Session ids go through
// Generator's UUIDv7-over-crypto/rand path instead, since those are
// client-visible and benefit from being k-sortable, and table ids come
// from TableIDGenerator; a hand history
// record is internal and short-lived, so a plain random UUIDv4 from
// google/uuid is the simpler fit.
func NewRecordID() string {
	return uuid.NewString()
}
