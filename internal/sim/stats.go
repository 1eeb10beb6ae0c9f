package sim

// Counter accumulates per-run market activity.
type Counter struct {
	Mints           int
	Bids            int
	TotalBidVolume  uint64
	HighestSingle   uint64
	SettledTransfer int
}

func (c *Counter) AddMint() {
	c.Mints++
}

func (c *Counter) AddBid(amount uint64) {
	c.Bids++
	c.TotalBidVolume += amount
	if amount > c.HighestSingle {
		c.HighestSingle = amount
	}
}

func (c *Counter) AddSettlement(transferred bool) {
	if transferred {
		c.SettledTransfer++
	}
}
