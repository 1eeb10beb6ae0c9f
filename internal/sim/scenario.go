package sim

import (
	"fmt"
	"math/rand"
)

// Participant is a synthetic market actor used by the load generator.
type Participant struct {
	Subject string
	Roles   []string
}

// Listing describes a token to mint during a scenario run.
type Listing struct {
	Category string
	Metadata string
}

type Scenario struct {
	Name         string
	Minters      []Participant
	Bidders      []Participant
	Categories   []string
	MetadataPool []string
}

// MarketScenario models a mixed auction market: a few registrars minting
// land, building and vehicle tokens, with a larger crowd of traders bidding.
func MarketScenario() Scenario {
	return Scenario{
		Name: "OpenMarketChurn",
		Minters: []Participant{
			{Subject: "registrar-north", Roles: []string{"registrar"}},
			{Subject: "registrar-south", Roles: []string{"registrar"}},
		},
		Bidders: []Participant{
			{Subject: "trader-01", Roles: []string{"trader"}},
			{Subject: "trader-02", Roles: []string{"trader"}},
			{Subject: "trader-03", Roles: []string{"trader"}},
			{Subject: "trader-04", Roles: []string{"trader"}},
		},
		Categories: []string{"land", "building", "vehicle"},
		MetadataPool: []string{
			"parcel survey draft",
			"warehouse deed extract",
			"fleet registration card",
			"harbor-side lot plan",
			"office tower floor schedule",
		},
	}
}

// Generator draws pseudo-random listings and bid amounts for a scenario.
type Generator struct {
	rnd      *rand.Rand
	scenario Scenario
	seq      int
}

func NewGenerator(seed int64, scenario Scenario) *Generator {
	return &Generator{
		rnd:      rand.New(rand.NewSource(seed)),
		scenario: scenario,
	}
}

// NextListing returns a listing with unique metadata so each mint derives a
// distinct content URI.
func (g *Generator) NextListing() Listing {
	g.seq++
	category := g.scenario.Categories[g.rnd.Intn(len(g.scenario.Categories))]
	base := g.scenario.MetadataPool[g.rnd.Intn(len(g.scenario.MetadataPool))]
	return Listing{
		Category: category,
		Metadata: fmt.Sprintf("%s #%d", base, g.seq),
	}
}

// NextBid returns an amount strictly above the current highest bid.
func (g *Generator) NextBid(highest uint64) uint64 {
	return highest + 1 + uint64(g.rnd.Intn(500))
}

// PickMinter and PickBidder select actors for the next operation.
func (g *Generator) PickMinter() Participant {
	return g.scenario.Minters[g.rnd.Intn(len(g.scenario.Minters))]
}

func (g *Generator) PickBidder() Participant {
	return g.scenario.Bidders[g.rnd.Intn(len(g.scenario.Bidders))]
}
