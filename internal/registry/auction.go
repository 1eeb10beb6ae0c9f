package registry

import "time"

// ApplyAuctionOpen validates and applies an auction opening. Requires that the
// seller owns the token, that no lease is live, and that no auction is
// already open. cap bounds the auction duration; a non-positive cap falls
// back to DefaultAuctionCap.
func ApplyAuctionOpen(tok Token, seller Identity, duration, cap time.Duration, now time.Time) (Token, error) {
	if cap <= 0 {
		cap = DefaultAuctionCap
	}
	if duration <= 0 || duration > cap {
		return tok, ErrInvalidAuctionDuration
	}
	if tok.Owner != seller {
		return tok, ErrNotOwner
	}
	if tok.Lease.Active(now) {
		return tok, ErrTokenLeased
	}
	if tok.Auction.Active() {
		return tok, ErrAuctionAlreadyOpen
	}

	tok.Auction = Auction{
		Seller:  seller,
		EndTime: now.Add(duration),
	}
	return tok, nil
}

// ApplyBid accepts a bid strictly above the current highest and records the
// bidder as the running leader. Accepted bids are therefore totally ordered
// and HighestBid is monotonically increasing for the life of the auction.
func ApplyBid(tok Token, bidder Identity, amount uint64, now time.Time) (Token, error) {
	if !tok.Auction.Active() {
		return tok, ErrAuctionNotOpen
	}
	if !now.Before(tok.Auction.EndTime) {
		return tok, ErrAuctionExpired
	}
	if bidder == tok.Auction.Seller {
		return tok, ErrSelfBid
	}
	if amount <= tok.Auction.HighestBid {
		return tok, ErrBidTooLow
	}

	tok.Auction.HighestBid = amount
	tok.Auction.Winner = bidder
	return tok, nil
}

// ApplySettle closes an auction whose end time has passed. With at least
// one accepted bid, title transfers to the leader; with none, the token
// stays with the seller. Either way the auction fields are cleared so a
// fresh auction can be opened later. This is the only transition that
// writes Owner.
func ApplySettle(tok Token, now time.Time) (Token, error) {
	if !tok.Auction.Active() {
		return tok, ErrAuctionNotOpen
	}
	if now.Before(tok.Auction.EndTime) {
		return tok, ErrAuctionStillOpen
	}

	if tok.Auction.Winner != Nobody && tok.Auction.HighestBid > 0 {
		tok.Owner = tok.Auction.Winner
	}
	tok.Auction = Auction{}
	return tok, nil
}
