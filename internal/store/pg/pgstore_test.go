package pg

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"assetra.org/internal/registry"
)

var tokenColumns = []string{
	"id", "category", "owner_id", "metadata_uri", "minted_at",
	"lease_lessee", "lease_end", "auction_seller", "auction_end", "auction_winner", "auction_high_bid",
}

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	store := New(db, WithClock(func() time.Time { return testNow }))
	return store, mock
}

func TestMintAllocatesSequentialID(t *testing.T) {
	store, mock := newTestStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(queryAllocateID)).
		WithArgs(registry.MaxTokens).
		WillReturnRows(sqlmock.NewRows([]string{"next_id"}).AddRow(int64(1)))
	mock.ExpectExec(regexp.QuoteMeta(queryInsertToken)).
		WithArgs(int64(1), "land", "alice", sqlmock.AnyArg(), testNow).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	tok, err := store.Mint(context.Background(), "alice", registry.CategoryLand, []byte("meta-1"))
	if err != nil {
		t.Fatal(err)
	}
	if tok.ID != 1 || tok.Owner != "alice" {
		t.Fatalf("unexpected token: %+v", tok)
	}
	if tok.MetadataURI == "" {
		t.Fatal("expected derived metadata locator")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestMintCapacityExceeded(t *testing.T) {
	store, mock := newTestStore(t)

	mock.ExpectBegin()
	// Counter at the supply bound: the guarded update matches no row.
	mock.ExpectQuery(regexp.QuoteMeta(queryAllocateID)).
		WithArgs(registry.MaxTokens).
		WillReturnRows(sqlmock.NewRows([]string{"next_id"}))
	mock.ExpectRollback()

	_, err := store.Mint(context.Background(), "alice", registry.CategoryLand, nil)
	if err != registry.ErrCapacityExceeded {
		t.Fatalf("expected ErrCapacityExceeded, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestGetNotFound(t *testing.T) {
	store, mock := newTestStore(t)

	mock.ExpectQuery(regexp.QuoteMeta(querySelectToken)).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows(tokenColumns))

	if _, err := store.Get(context.Background(), 7); err != registry.ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestBidLocksRowAndWritesLeader(t *testing.T) {
	store, mock := newTestStore(t)

	auctionEnd := testNow.Add(24 * time.Hour)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(querySelectTokenForUpdate)).
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows(tokenColumns).
			AddRow(int64(3), "vehicle", "seller", "cas://abc", testNow.Add(-time.Hour),
				"", nil, "seller", auctionEnd, "", int64(100)))
	mock.ExpectExec(regexp.QuoteMeta(queryUpdateToken)).
		WithArgs(int64(3), "seller", "", nil, "seller", auctionEnd, "alice", int64(150)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	tok, err := store.Bid(context.Background(), 3, "alice", 150)
	if err != nil {
		t.Fatal(err)
	}
	if tok.Auction.HighestBid != 150 || tok.Auction.Winner != "alice" {
		t.Fatalf("unexpected auction state: %+v", tok.Auction)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestBidTooLowRollsBack(t *testing.T) {
	store, mock := newTestStore(t)

	auctionEnd := testNow.Add(24 * time.Hour)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(querySelectTokenForUpdate)).
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows(tokenColumns).
			AddRow(int64(3), "vehicle", "seller", "cas://abc", testNow.Add(-time.Hour),
				"", nil, "seller", auctionEnd, "bob", int64(200)))
	mock.ExpectRollback()

	if _, err := store.Bid(context.Background(), 3, "alice", 150); err != registry.ErrBidTooLow {
		t.Fatalf("expected ErrBidTooLow, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}
