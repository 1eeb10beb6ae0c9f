package registry

import (
	"errors"
	"time"
)

// Identity is an opaque principal (owner, lessee, bidder, seller). The
// registry only ever compares identities for equality; it never inspects
// their structure.
type Identity string

// Nobody is the null identity. A lease or auction whose principal equals
// Nobody is inactive.
const Nobody Identity = ""

// TokenID identifies a token. Valid ids are 1..MaxTokens; 0 is reserved and
// never appears as a live key.
type TokenID uint16

// Category classifies an asset. Immutable once the token is minted.
type Category string

const (
	CategoryLand     Category = "land"
	CategoryBuilding Category = "building"
	CategoryVehicle  Category = "vehicle"
)

// ValidCategory reports whether c is one of the closed set of categories.
func ValidCategory(c Category) bool {
	switch c {
	case CategoryLand, CategoryBuilding, CategoryVehicle:
		return true
	}
	return false
}

const (
	// MaxTokens bounds the total supply of the registry.
	MaxTokens = 10000

	// MinLeaseDuration and MaxLeaseDuration bound lease terms.
	MinLeaseDuration = 30 * 24 * time.Hour
	MaxLeaseDuration = 365 * 24 * time.Hour

	// DefaultAuctionCap is the auction duration ceiling used when the
	// facade is not configured with one.
	DefaultAuctionCap = 30 * 24 * time.Hour
)

// Lease is a time-bounded usage grant. It never changes title: Owner stays
// fixed for the lease's whole life.
type Lease struct {
	Lessee  Identity  `json:"lessee,omitempty"`
	EndTime time.Time `json:"end_time,omitzero"`
}

// Active reports whether the lease is live at the given instant. Expiry is
// detected lazily: a lease whose end time has passed reads as inactive, the
// stored fields are not eagerly cleared.
func (l Lease) Active(now time.Time) bool {
	return l.Lessee != Nobody && l.EndTime.After(now)
}

// Auction is a time-bounded competitive sale. Winner is the running current
// leader while bidding is open; it only becomes a finalized outcome at
// settlement.
type Auction struct {
	Seller     Identity  `json:"seller,omitempty"`
	EndTime    time.Time `json:"end_time,omitzero"`
	Winner     Identity  `json:"winner,omitempty"`
	HighestBid uint64    `json:"highest_bid"`
}

// Active reports whether an auction is open on the token.
func (a Auction) Active() bool { return a.Seller != Nobody }

// Token is a uniquely identified asset record.
type Token struct {
	ID          TokenID   `json:"id"`
	Category    Category  `json:"category"`
	Owner       Identity  `json:"owner"`
	MetadataURI string    `json:"metadata_uri"`
	MintedAt    time.Time `json:"minted_at"`
	Lease       Lease     `json:"lease"`
	Auction     Auction   `json:"auction"`
}

var (
	ErrCapacityExceeded = errors.New("registry: token supply exhausted")
	ErrNotFound         = errors.New("registry: token not found")
	ErrNotOwner         = errors.New("registry: caller does not own token")
	ErrInvalidCategory  = errors.New("registry: unknown category")

	ErrInvalidLeaseDuration = errors.New("registry: lease duration out of bounds")
	ErrTokenUnderAuction    = errors.New("registry: token is under auction")
	ErrLeaseAlreadyActive   = errors.New("registry: unexpired lease exists")

	ErrInvalidAuctionDuration = errors.New("registry: auction duration out of bounds")
	ErrTokenLeased            = errors.New("registry: token has an active lease")
	ErrAuctionAlreadyOpen     = errors.New("registry: auction already open")
	ErrAuctionNotOpen         = errors.New("registry: no open auction")
	ErrAuctionExpired         = errors.New("registry: auction has ended")
	ErrBidTooLow              = errors.New("registry: bid does not beat highest bid")
	ErrSelfBid                = errors.New("registry: seller cannot bid")
	ErrAuctionStillOpen       = errors.New("registry: auction has not ended")
)
