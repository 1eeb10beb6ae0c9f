package registry

import (
	"context"
	"sync"
	"time"

	"assetra.org/internal/contenturi"
)

// Settlement reports the outcome of a settled auction so the caller can
// move funds. The registry itself never moves value; it only computes who
// owes what.
type Settlement struct {
	Seller      Identity `json:"seller"`
	Winner      Identity `json:"winner,omitempty"`
	Amount      uint64   `json:"amount"`
	Transferred bool     `json:"transferred"`
}

// Service defines registry operations. Every mutation for a given token id
// must be linearizable; implementations provide either a process-wide lock
// or a transactional read-modify-write against their backing store.
type Service interface {
	Mint(ctx context.Context, minter Identity, category Category, metadata []byte) (Token, error)
	Get(ctx context.Context, id TokenID) (Token, error)
	CreateLease(ctx context.Context, id TokenID, lessee Identity, duration time.Duration) (Token, error)
	OpenAuction(ctx context.Context, id TokenID, seller Identity, duration time.Duration) (Token, error)
	Bid(ctx context.Context, id TokenID, bidder Identity, amount uint64) (Token, error)
	Settle(ctx context.Context, id TokenID) (Token, Settlement, error)
}

// Option configures InMemory.
type Option func(*InMemory)

// WithClock overrides the clock. The clock is read exactly once per
// operation so a single call never sees two different nows.
func WithClock(now func() time.Time) Option {
	return func(s *InMemory) {
		if now != nil {
			s.now = now
		}
	}
}

// WithDeriver overrides the content-URI derivation strategy.
func WithDeriver(derive contenturi.Deriver) Option {
	return func(s *InMemory) {
		if derive != nil {
			s.derive = derive
		}
	}
}

// WithAuctionCap overrides the maximum auction duration.
func WithAuctionCap(cap time.Duration) Option {
	return func(s *InMemory) {
		if cap > 0 {
			s.auctionCap = cap
		}
	}
}

// InMemory implements Service with in-process concurrency safety. A single
// mutex serializes all mutations, which gives every token the single-writer
// guarantee the transition functions assume.
type InMemory struct {
	mu         sync.RWMutex
	tokens     map[TokenID]*Token
	nextID     TokenID // equals the count of minted tokens
	now        func() time.Time
	derive     contenturi.Deriver
	auctionCap time.Duration
}

// NewInMemory creates an empty registry.
func NewInMemory(opts ...Option) *InMemory {
	s := &InMemory{
		tokens:     make(map[TokenID]*Token),
		now:        time.Now,
		derive:     contenturi.Derive,
		auctionCap: DefaultAuctionCap,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *InMemory) Mint(ctx context.Context, minter Identity, category Category, metadata []byte) (Token, error) {
	if !ValidCategory(category) {
		return Token{}, ErrInvalidCategory
	}
	if minter == Nobody {
		return Token{}, ErrNotOwner
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.nextID >= MaxTokens {
		return Token{}, ErrCapacityExceeded
	}
	id := s.nextID + 1
	tok := &Token{
		ID:          id,
		Category:    category,
		Owner:       minter,
		MetadataURI: s.derive(metadata),
		MintedAt:    s.now().UTC(),
	}
	// Counter increment and insert happen under the same lock hold, so the
	// invariant nextID == len(tokens) cannot be observed broken.
	s.tokens[id] = tok
	s.nextID = id
	return *tok, nil
}

func (s *InMemory) Get(ctx context.Context, id TokenID) (Token, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tok, ok := s.tokens[id]
	if !ok {
		return Token{}, ErrNotFound
	}
	return *tok, nil
}

func (s *InMemory) CreateLease(ctx context.Context, id TokenID, lessee Identity, duration time.Duration) (Token, error) {
	return s.update(id, func(tok Token, now time.Time) (Token, error) {
		return ApplyLease(tok, lessee, duration, now)
	})
}

func (s *InMemory) OpenAuction(ctx context.Context, id TokenID, seller Identity, duration time.Duration) (Token, error) {
	return s.update(id, func(tok Token, now time.Time) (Token, error) {
		return ApplyAuctionOpen(tok, seller, duration, s.auctionCap, now)
	})
}

func (s *InMemory) Bid(ctx context.Context, id TokenID, bidder Identity, amount uint64) (Token, error) {
	return s.update(id, func(tok Token, now time.Time) (Token, error) {
		return ApplyBid(tok, bidder, amount, now)
	})
}

func (s *InMemory) Settle(ctx context.Context, id TokenID) (Token, Settlement, error) {
	var stl Settlement
	tok, err := s.update(id, func(tok Token, now time.Time) (Token, error) {
		before := tok.Auction
		tok, err := ApplySettle(tok, now)
		if err != nil {
			return tok, err
		}
		stl = Settlement{
			Seller:      before.Seller,
			Winner:      before.Winner,
			Amount:      before.HighestBid,
			Transferred: before.Winner != Nobody && before.HighestBid > 0,
		}
		return tok, nil
	})
	if err != nil {
		return tok, Settlement{}, err
	}
	return tok, stl, nil
}

// update runs a validate-then-apply transition against a copy of the stored
// token and writes it back only on success. This is the single serialization
// point per token.
func (s *InMemory) update(id TokenID, fn func(Token, time.Time) (Token, error)) (Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.tokens[id]
	if !ok {
		return Token{}, ErrNotFound
	}
	next, err := fn(*stored, s.now())
	if err != nil {
		return Token{}, err
	}
	// ID and category are immutable post-mint.
	next.ID = stored.ID
	next.Category = stored.Category
	*stored = next
	return next, nil
}

// Count returns the number of minted tokens.
func (s *InMemory) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tokens)
}
