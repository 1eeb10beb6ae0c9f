package registry

import "time"

// ApplyLease validates a lease request against the token and returns the
// token with the lease applied. The token passed in is never modified on
// failure: every check runs before the first write.
func ApplyLease(tok Token, lessee Identity, duration time.Duration, now time.Time) (Token, error) {
	if duration < MinLeaseDuration || duration > MaxLeaseDuration {
		return tok, ErrInvalidLeaseDuration
	}
	if tok.Auction.Active() {
		return tok, ErrTokenUnderAuction
	}
	// An expired lease counts as no lease; its stale fields are simply
	// overwritten here.
	if tok.Lease.Active(now) {
		return tok, ErrLeaseAlreadyActive
	}

	tok.Lease = Lease{
		Lessee:  lessee,
		EndTime: now.Add(duration),
	}
	return tok, nil
}
