package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"assetra.org/internal/sim"
)

// loadgen drives a running assetra-api with synthetic market traffic:
// registrars mint tokens, traders bid them up in short auctions, and the
// sellers settle once the auctions expire.
func main() {
	var (
		baseURL  = flag.String("base-url", "http://localhost:8080", "API base URL")
		workers  = flag.Int("workers", 4, "Concurrent worker count")
		duration = flag.Duration("duration", 2*time.Minute, "Duration of the run")
		auction  = flag.Duration("auction", 3*time.Second, "Auction length per token")
	)
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	log.Printf("Launching market load: base=%s workers=%d duration=%s", *baseURL, *workers, *duration)

	scenario := sim.MarketScenario()
	client := &http.Client{Timeout: 10 * time.Second}
	tokens := newTokenCache(client, *baseURL)

	var counter sim.Counter
	var counterMu sync.Mutex
	var failures int64
	var capacityHits int64
	var rateLimited int64

	var wg sync.WaitGroup
	deadline := time.Now().Add(*duration)

	for i := 0; i < *workers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			gen := sim.NewGenerator(time.Now().UnixNano()+int64(id*9973), scenario)
			rnd := rand.New(rand.NewSource(int64(id) + 1))
			for time.Now().Before(deadline) {
				select {
				case <-ctx.Done():
					return
				default:
				}
				if err := runAuctionCycle(ctx, client, *baseURL, tokens, gen, *auction, &counter, &counterMu); err != nil {
					atomic.AddInt64(&failures, 1)
					switch {
					case errors.Is(err, errCapacity):
						atomic.AddInt64(&capacityHits, 1)
						return
					case errors.Is(err, errRateLimited):
						atomic.AddInt64(&rateLimited, 1)
						time.Sleep(250 * time.Millisecond)
					default:
						log.Printf("worker %d: %v", id, err)
						time.Sleep(200 * time.Millisecond)
					}
					continue
				}
				time.Sleep(time.Duration(50+rnd.Intn(120)) * time.Millisecond)
			}
		}(i)
	}

	wg.Wait()

	counterMu.Lock()
	defer counterMu.Unlock()
	log.Printf("Run complete: mints=%d bids=%d volume=%d transfers=%d (failures=%d, capacity=%d, rate_limited=%d)",
		counter.Mints, counter.Bids, counter.TotalBidVolume, counter.SettledTransfer,
		failures, capacityHits, rateLimited)
}

var (
	errCapacity    = errors.New("registry at capacity")
	errRateLimited = errors.New("rate limited")
)

func runAuctionCycle(ctx context.Context, client *http.Client, baseURL string, tokens *tokenCache, gen *sim.Generator, auctionLen time.Duration, counter *sim.Counter, mu *sync.Mutex) error {
	minter := gen.PickMinter()
	minterToken, err := tokens.get(ctx, minter)
	if err != nil {
		return fmt.Errorf("token for %s: %w", minter.Subject, err)
	}

	listing := gen.NextListing()
	var minted struct {
		ID int `json:"id"`
	}
	status, err := call(ctx, client, baseURL, "/v1/tokens", minterToken, map[string]any{
		"category": listing.Category,
		"metadata": listing.Metadata + " " + uuid.NewString(),
	}, &minted)
	if err != nil {
		return err
	}
	switch status {
	case http.StatusCreated:
	case http.StatusConflict:
		return errCapacity
	case http.StatusTooManyRequests:
		return errRateLimited
	default:
		return fmt.Errorf("mint: status %d", status)
	}
	mu.Lock()
	counter.AddMint()
	mu.Unlock()

	path := fmt.Sprintf("/v1/tokens/%d", minted.ID)
	status, err = call(ctx, client, baseURL, path+"/auction", minterToken, map[string]any{
		"duration_seconds": int64(auctionLen.Seconds()),
	}, nil)
	if err != nil {
		return err
	}
	if status != http.StatusCreated {
		return fmt.Errorf("open auction: status %d", status)
	}

	var highest uint64
	for i := 0; i < 3; i++ {
		bidder := gen.PickBidder()
		if bidder.Subject == minter.Subject {
			continue
		}
		bidderToken, err := tokens.get(ctx, bidder)
		if err != nil {
			return fmt.Errorf("token for %s: %w", bidder.Subject, err)
		}
		amount := gen.NextBid(highest)
		status, err = call(ctx, client, baseURL, path+"/auction/bids", bidderToken, map[string]any{
			"amount": amount,
		}, nil)
		if err != nil {
			return err
		}
		if status == http.StatusOK {
			highest = amount
			mu.Lock()
			counter.AddBid(amount)
			mu.Unlock()
		}
	}

	// Wait out the auction then settle as the seller.
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(auctionLen + 500*time.Millisecond):
	}

	var settled struct {
		Settlement struct {
			Transferred bool `json:"transferred"`
		} `json:"settlement"`
	}
	status, err = call(ctx, client, baseURL, path+"/auction/settle", minterToken, nil, &settled)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return fmt.Errorf("settle: status %d", status)
	}
	mu.Lock()
	counter.AddSettlement(settled.Settlement.Transferred)
	mu.Unlock()
	return nil
}

// tokenCache issues and caches one bearer token per participant.
type tokenCache struct {
	client  *http.Client
	baseURL string

	mu     sync.Mutex
	tokens map[string]string
}

func newTokenCache(client *http.Client, baseURL string) *tokenCache {
	return &tokenCache{
		client:  client,
		baseURL: baseURL,
		tokens:  make(map[string]string),
	}
}

func (c *tokenCache) get(ctx context.Context, p sim.Participant) (string, error) {
	c.mu.Lock()
	cached, ok := c.tokens[p.Subject]
	c.mu.Unlock()
	if ok {
		return cached, nil
	}

	var out struct {
		Token string `json:"token"`
	}
	status, err := call(ctx, c.client, c.baseURL, "/v1/auth/token", "", map[string]any{
		"subject": p.Subject,
		"roles":   p.Roles,
	}, &out)
	if err != nil {
		return "", err
	}
	if status != http.StatusOK || out.Token == "" {
		return "", fmt.Errorf("token endpoint: status %d", status)
	}

	c.mu.Lock()
	c.tokens[p.Subject] = out.Token
	c.mu.Unlock()
	return out.Token, nil
}

func call(ctx context.Context, client *http.Client, baseURL, path, bearer string, body, out any) (int, error) {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return 0, err
		}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	resp, err := client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if out != nil && resp.StatusCode < 300 {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, err
		}
	}
	return resp.StatusCode, nil
}
