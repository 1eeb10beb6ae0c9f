package sim

import "testing"

func TestGeneratorListingsAreUnique(t *testing.T) {
	gen := NewGenerator(42, MarketScenario())
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		l := gen.NextListing()
		if l.Category == "" || l.Metadata == "" {
			t.Fatalf("incomplete listing: %+v", l)
		}
		if seen[l.Metadata] {
			t.Fatalf("duplicate metadata: %q", l.Metadata)
		}
		seen[l.Metadata] = true
	}
}

func TestGeneratorBidsStrictlyIncrease(t *testing.T) {
	gen := NewGenerator(7, MarketScenario())
	var highest uint64
	for i := 0; i < 1000; i++ {
		next := gen.NextBid(highest)
		if next <= highest {
			t.Fatalf("bid %d did not exceed %d", next, highest)
		}
		highest = next
	}
}

func TestCounterTracksActivity(t *testing.T) {
	var c Counter
	c.AddMint()
	c.AddBid(100)
	c.AddBid(250)
	c.AddSettlement(true)
	c.AddSettlement(false)

	if c.Mints != 1 || c.Bids != 2 {
		t.Fatalf("unexpected counts: %+v", c)
	}
	if c.TotalBidVolume != 350 || c.HighestSingle != 250 {
		t.Fatalf("unexpected volume: %+v", c)
	}
	if c.SettledTransfer != 1 {
		t.Fatalf("unexpected settlements: %+v", c)
	}
}
