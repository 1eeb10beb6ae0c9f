package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"
)

// End-to-end smoke against a running assetra-api: mint a token, run a short
// auction with one bid, verify ownership transfers on settlement.
func main() {
	base := os.Getenv("ASSETRA_API_ADDR")
	if base == "" {
		base = "http://localhost:8080"
	}

	client := &http.Client{Timeout: 5 * time.Second}

	alice := obtainToken(client, base, "smoke-alice", []string{"registrar"})
	bob := obtainToken(client, base, "smoke-bob", []string{"trader"})

	var tok struct {
		ID      int    `json:"id"`
		Owner   string `json:"owner"`
		URI     string `json:"metadata_uri"`
		Auction struct {
			Winner     string `json:"winner"`
			HighestBid uint64 `json:"highest_bid"`
		} `json:"auction"`
	}

	status := call(client, base, "POST", "/v1/tokens", alice, map[string]any{
		"category": "land",
		"metadata": fmt.Sprintf("smoke-%d", time.Now().UnixNano()),
	}, &tok)
	if status != http.StatusCreated {
		log.Fatalf("mint: unexpected status %d", status)
	}
	if tok.Owner != "smoke-alice" || tok.URI == "" {
		log.Fatalf("mint: unexpected token %+v", tok)
	}
	path := fmt.Sprintf("/v1/tokens/%d", tok.ID)

	status = call(client, base, "POST", path+"/auction", alice, map[string]any{
		"duration_seconds": 2,
	}, nil)
	if status != http.StatusCreated {
		log.Fatalf("open auction: unexpected status %d", status)
	}

	// Leasing is blocked while the auction runs.
	status = call(client, base, "POST", path+"/lease", alice, map[string]any{
		"lessee":           "smoke-carol",
		"duration_seconds": int64((45 * 24 * time.Hour).Seconds()),
	}, nil)
	if status != http.StatusConflict {
		log.Fatalf("lease during auction: expected 409, got %d", status)
	}

	status = call(client, base, "POST", path+"/auction/bids", bob, map[string]any{
		"amount": 250,
	}, &tok)
	if status != http.StatusOK {
		log.Fatalf("bid: unexpected status %d", status)
	}
	if tok.Auction.Winner != "smoke-bob" || tok.Auction.HighestBid != 250 {
		log.Fatalf("bid: unexpected auction state %+v", tok.Auction)
	}

	time.Sleep(3 * time.Second)

	var settled struct {
		Token struct {
			Owner string `json:"owner"`
		} `json:"token"`
		Settlement struct {
			Transferred bool   `json:"transferred"`
			Amount      uint64 `json:"amount"`
		} `json:"settlement"`
	}
	status = call(client, base, "POST", path+"/auction/settle", alice, nil, &settled)
	if status != http.StatusOK {
		log.Fatalf("settle: unexpected status %d", status)
	}
	if !settled.Settlement.Transferred || settled.Token.Owner != "smoke-bob" {
		log.Fatalf("settle: ownership did not transfer: %+v", settled)
	}

	fmt.Printf("✅ registry smoke test passed: token=%d winner=%s amount=%d\n",
		tok.ID, settled.Token.Owner, settled.Settlement.Amount)
}

func obtainToken(client *http.Client, base, subject string, roles []string) string {
	var resp struct {
		Token string `json:"token"`
	}
	status := call(client, base, "POST", "/v1/auth/token", "", map[string]any{
		"subject": subject,
		"roles":   roles,
	}, &resp)
	if status != http.StatusOK || resp.Token == "" {
		log.Fatalf("obtain token for %s: status %d", subject, status)
	}
	return resp.Token
}

func call(client *http.Client, base, method, path, bearer string, body, out any) int {
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			log.Fatalf("marshal %s %s: %v", method, path, err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, base+path, reader)
	if err != nil {
		log.Fatalf("request %s %s: %v", method, path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	resp, err := client.Do(req)
	if err != nil {
		log.Fatalf("call %s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	if out != nil && resp.StatusCode < 300 {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			log.Fatalf("decode %s %s: %v", method, path, err)
		}
	}
	return resp.StatusCode
}
