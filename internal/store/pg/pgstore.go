package pg

import (
	"context"
	"database/sql"
	"errors"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"assetra.org/internal/contenturi"
	"assetra.org/internal/registry"
)

// Store implements registry.Service on PostgreSQL. Each mutation is a
// serializable transaction that locks the token row (and, for mint, the
// registry_meta row), which gives the per-token read-modify-write atomicity
// the registry transitions assume.
type Store struct {
	db         *sql.DB
	now        func() time.Time
	derive     contenturi.Deriver
	auctionCap time.Duration
}

var _ registry.Service = (*Store)(nil)

// Option configures Store.
type Option func(*Store)

// WithClock overrides the clock used for lease and auction boundaries.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithDeriver overrides the content-URI derivation strategy.
func WithDeriver(derive contenturi.Deriver) Option {
	return func(s *Store) {
		if derive != nil {
			s.derive = derive
		}
	}
}

// WithAuctionCap overrides the maximum auction duration.
func WithAuctionCap(cap time.Duration) Option {
	return func(s *Store) {
		if cap > 0 {
			s.auctionCap = cap
		}
	}
}

// Open connects to PostgreSQL via the pgx stdlib driver.
func Open(dsn string, opts ...Option) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	// Tuned pool defaults; adjust under load tests
	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(15 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return New(db, opts...), nil
}

// New wraps an existing database handle.
func New(db *sql.DB, opts ...Option) *Store {
	s := &Store{
		db:         db,
		now:        time.Now,
		derive:     contenturi.Derive,
		auctionCap: registry.DefaultAuctionCap,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) DB() *sql.DB { return s.db }

const (
	queryAllocateID = `update registry_meta set next_id = next_id + 1 where id = 1 and next_id < $1 returning next_id`

	queryInsertToken = `insert into tokens (id, category, owner_id, metadata_uri, minted_at) values ($1, $2, $3, $4, $5)`

	querySelectToken = `select id, category, owner_id, metadata_uri, minted_at, lease_lessee, lease_end, auction_seller, auction_end, auction_winner, auction_high_bid from tokens where id = $1`

	querySelectTokenForUpdate = querySelectToken + ` for update`

	queryUpdateToken = `update tokens set owner_id = $2, lease_lessee = $3, lease_end = $4, auction_seller = $5, auction_end = $6, auction_winner = $7, auction_high_bid = $8 where id = $1`
)

func (s *Store) Mint(ctx context.Context, minter registry.Identity, category registry.Category, metadata []byte) (registry.Token, error) {
	if !registry.ValidCategory(category) {
		return registry.Token{}, registry.ErrInvalidCategory
	}
	if minter == registry.Nobody {
		return registry.Token{}, registry.ErrNotOwner
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return registry.Token{}, err
	}
	defer func() { _ = tx.Rollback() }()

	// The counter row is the serialization point for minting: the update
	// locks it, and the guard in the where clause enforces the supply
	// bound without a separate count.
	var next int64
	err = tx.QueryRowContext(ctx, queryAllocateID, registry.MaxTokens).Scan(&next)
	if errors.Is(err, sql.ErrNoRows) {
		return registry.Token{}, registry.ErrCapacityExceeded
	}
	if err != nil {
		return registry.Token{}, err
	}

	tok := registry.Token{
		ID:          registry.TokenID(next),
		Category:    category,
		Owner:       minter,
		MetadataURI: s.derive(metadata),
		MintedAt:    s.now().UTC(),
	}
	if _, err := tx.ExecContext(ctx, queryInsertToken,
		int64(tok.ID), string(tok.Category), string(tok.Owner), tok.MetadataURI, tok.MintedAt); err != nil {
		return registry.Token{}, err
	}
	if err := tx.Commit(); err != nil {
		return registry.Token{}, err
	}
	return tok, nil
}

func (s *Store) Get(ctx context.Context, id registry.TokenID) (registry.Token, error) {
	row := s.db.QueryRowContext(ctx, querySelectToken, int64(id))
	tok, err := scanToken(row)
	if errors.Is(err, sql.ErrNoRows) {
		return registry.Token{}, registry.ErrNotFound
	}
	return tok, err
}

func (s *Store) CreateLease(ctx context.Context, id registry.TokenID, lessee registry.Identity, duration time.Duration) (registry.Token, error) {
	return s.update(ctx, id, func(tok registry.Token, now time.Time) (registry.Token, error) {
		return registry.ApplyLease(tok, lessee, duration, now)
	})
}

func (s *Store) OpenAuction(ctx context.Context, id registry.TokenID, seller registry.Identity, duration time.Duration) (registry.Token, error) {
	return s.update(ctx, id, func(tok registry.Token, now time.Time) (registry.Token, error) {
		return registry.ApplyAuctionOpen(tok, seller, duration, s.auctionCap, now)
	})
}

func (s *Store) Bid(ctx context.Context, id registry.TokenID, bidder registry.Identity, amount uint64) (registry.Token, error) {
	return s.update(ctx, id, func(tok registry.Token, now time.Time) (registry.Token, error) {
		return registry.ApplyBid(tok, bidder, amount, now)
	})
}

func (s *Store) Settle(ctx context.Context, id registry.TokenID) (registry.Token, registry.Settlement, error) {
	var stl registry.Settlement
	tok, err := s.update(ctx, id, func(tok registry.Token, now time.Time) (registry.Token, error) {
		before := tok.Auction
		tok, err := registry.ApplySettle(tok, now)
		if err != nil {
			return tok, err
		}
		stl = registry.Settlement{
			Seller:      before.Seller,
			Winner:      before.Winner,
			Amount:      before.HighestBid,
			Transferred: before.Winner != registry.Nobody && before.HighestBid > 0,
		}
		return tok, nil
	})
	if err != nil {
		return tok, registry.Settlement{}, err
	}
	return tok, stl, nil
}

// update loads the token under a row lock, applies the transition to the
// in-memory copy, and writes the result back in the same transaction.
func (s *Store) update(ctx context.Context, id registry.TokenID, fn func(registry.Token, time.Time) (registry.Token, error)) (registry.Token, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return registry.Token{}, err
	}
	defer func() { _ = tx.Rollback() }()

	row := tx.QueryRowContext(ctx, querySelectTokenForUpdate, int64(id))
	tok, err := scanToken(row)
	if errors.Is(err, sql.ErrNoRows) {
		return registry.Token{}, registry.ErrNotFound
	}
	if err != nil {
		return registry.Token{}, err
	}

	next, err := fn(tok, s.now())
	if err != nil {
		return registry.Token{}, err
	}

	if _, err := tx.ExecContext(ctx, queryUpdateToken,
		int64(next.ID), string(next.Owner),
		string(next.Lease.Lessee), nullTime(next.Lease.EndTime),
		string(next.Auction.Seller), nullTime(next.Auction.EndTime),
		string(next.Auction.Winner), int64(next.Auction.HighestBid)); err != nil {
		return registry.Token{}, err
	}
	if err := tx.Commit(); err != nil {
		return registry.Token{}, err
	}
	return next, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanToken(row rowScanner) (registry.Token, error) {
	var (
		id         int64
		category   string
		owner      string
		uri        string
		mintedAt   time.Time
		lessee     string
		leaseEnd   sql.NullTime
		seller     string
		auctionEnd sql.NullTime
		winner     string
		highBid    int64
	)
	if err := row.Scan(&id, &category, &owner, &uri, &mintedAt,
		&lessee, &leaseEnd, &seller, &auctionEnd, &winner, &highBid); err != nil {
		return registry.Token{}, err
	}
	tok := registry.Token{
		ID:          registry.TokenID(id),
		Category:    registry.Category(category),
		Owner:       registry.Identity(owner),
		MetadataURI: uri,
		MintedAt:    mintedAt,
		Lease: registry.Lease{
			Lessee: registry.Identity(lessee),
		},
		Auction: registry.Auction{
			Seller:     registry.Identity(seller),
			Winner:     registry.Identity(winner),
			HighestBid: uint64(highBid),
		},
	}
	if leaseEnd.Valid {
		tok.Lease.EndTime = leaseEnd.Time
	}
	if auctionEnd.Valid {
		tok.Auction.EndTime = auctionEnd.Time
	}
	return tok, nil
}

func nullTime(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t, Valid: true}
}
