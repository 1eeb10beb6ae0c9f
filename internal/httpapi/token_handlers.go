package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"assetra.org/internal/auth"
	"assetra.org/internal/obs"
	"assetra.org/internal/registry"
	"assetra.org/internal/stream"
)

type mintRequest struct {
	Category string `json:"category"`
	Metadata string `json:"metadata"`
}

type leaseRequest struct {
	Lessee          string `json:"lessee"`
	DurationSeconds int64  `json:"duration_seconds"`
}

type openAuctionRequest struct {
	DurationSeconds int64 `json:"duration_seconds"`
}

type bidRequest struct {
	Amount uint64 `json:"amount"`
}

type settleResponse struct {
	Token      registry.Token      `json:"token"`
	Settlement registry.Settlement `json:"settlement"`
}

func (a *API) handleTokensCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		a.mintToken(w, r)
	default:
		methodNotAllowed(w, r, http.MethodPost)
	}
}

func (a *API) handleTokenResource(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/v1/tokens/")
	if path == "" {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}

	rawID, rest, _ := strings.Cut(path, "/")
	id, err := parseTokenID(rawID)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid token id")
		return
	}

	switch rest {
	case "":
		if r.Method != http.MethodGet {
			methodNotAllowed(w, r, http.MethodGet)
			return
		}
		a.getToken(w, r, id)
	case "lease":
		if r.Method != http.MethodPost {
			methodNotAllowed(w, r, http.MethodPost)
			return
		}
		a.createLease(w, r, id)
	case "auction":
		if r.Method != http.MethodPost {
			methodNotAllowed(w, r, http.MethodPost)
			return
		}
		a.openAuction(w, r, id)
	case "auction/bids":
		if r.Method != http.MethodPost {
			methodNotAllowed(w, r, http.MethodPost)
			return
		}
		a.placeBid(w, r, id)
	case "auction/settle":
		if r.Method != http.MethodPost {
			methodNotAllowed(w, r, http.MethodPost)
			return
		}
		a.settleAuction(w, r, id)
	default:
		writeError(w, r, http.StatusNotFound, "resource not found")
	}
}

func (a *API) mintToken(w http.ResponseWriter, r *http.Request) {
	minter, ok := callerIdentity(w, r)
	if !ok {
		return
	}
	if err := a.requirePermission(r.Context(), auth.PermTokenMint); err != nil {
		writeError(w, r, http.StatusForbidden, "missing permission "+auth.PermTokenMint)
		return
	}

	var req mintRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	category := registry.Category(strings.ToLower(strings.TrimSpace(req.Category)))
	if !registry.ValidCategory(category) {
		writeError(w, r, http.StatusBadRequest, "category must be one of land, building, vehicle")
		return
	}

	tok, err := a.registry.Mint(r.Context(), minter, category, []byte(req.Metadata))
	if err != nil {
		handleRegistryError(w, r, err)
		return
	}

	obs.TokensMinted.Inc()
	obs.TokensLive.Inc()
	a.publish(stream.Event{Type: stream.EventMint, TokenID: tok.ID, Actor: minter})
	a.audit(r.Context(), "registry.token.mint", map[string]any{
		"token_id":     tok.ID,
		"category":     string(tok.Category),
		"metadata_uri": tok.MetadataURI,
	})

	w.Header().Set("Location", "/v1/tokens/"+strconv.Itoa(int(tok.ID)))
	writeJSON(w, http.StatusCreated, tok)
}

func (a *API) getToken(w http.ResponseWriter, r *http.Request, id registry.TokenID) {
	tok, err := a.registry.Get(r.Context(), id)
	if err != nil {
		handleRegistryError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tok)
}

func (a *API) createLease(w http.ResponseWriter, r *http.Request, id registry.TokenID) {
	if _, ok := callerIdentity(w, r); !ok {
		return
	}
	if err := a.requirePermission(r.Context(), auth.PermLeaseCreate); err != nil {
		writeError(w, r, http.StatusForbidden, "missing permission "+auth.PermLeaseCreate)
		return
	}

	var req leaseRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	lessee := registry.Identity(strings.TrimSpace(req.Lessee))
	if lessee == registry.Nobody {
		writeError(w, r, http.StatusBadRequest, "lessee is required")
		return
	}

	tok, err := a.registry.CreateLease(r.Context(), id, lessee, time.Duration(req.DurationSeconds)*time.Second)
	if err != nil {
		handleRegistryError(w, r, err)
		return
	}

	obs.LeasesCreated.Inc()
	a.publish(stream.Event{Type: stream.EventLease, TokenID: tok.ID, Actor: lessee})
	a.audit(r.Context(), "registry.lease.create", map[string]any{
		"token_id":         tok.ID,
		"lessee":           string(lessee),
		"duration_seconds": req.DurationSeconds,
	})

	writeJSON(w, http.StatusCreated, tok)
}

func (a *API) openAuction(w http.ResponseWriter, r *http.Request, id registry.TokenID) {
	seller, ok := callerIdentity(w, r)
	if !ok {
		return
	}
	if err := a.requirePermission(r.Context(), auth.PermAuctionManage); err != nil {
		writeError(w, r, http.StatusForbidden, "missing permission "+auth.PermAuctionManage)
		return
	}

	var req openAuctionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	tok, err := a.registry.OpenAuction(r.Context(), id, seller, time.Duration(req.DurationSeconds)*time.Second)
	if err != nil {
		handleRegistryError(w, r, err)
		return
	}

	obs.AuctionsOpened.Inc()
	a.publish(stream.Event{Type: stream.EventAuctionOpen, TokenID: tok.ID, Actor: seller})
	a.audit(r.Context(), "registry.auction.open", map[string]any{
		"token_id":         tok.ID,
		"duration_seconds": req.DurationSeconds,
	})

	writeJSON(w, http.StatusCreated, tok)
}

func (a *API) placeBid(w http.ResponseWriter, r *http.Request, id registry.TokenID) {
	bidder, ok := callerIdentity(w, r)
	if !ok {
		return
	}

	var req bidRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	tok, err := a.registry.Bid(r.Context(), id, bidder, req.Amount)
	if err != nil {
		handleRegistryError(w, r, err)
		return
	}

	obs.BidsAccepted.Inc()
	a.publish(stream.Event{Type: stream.EventAuctionBid, TokenID: tok.ID, Actor: bidder, Amount: req.Amount})
	a.audit(r.Context(), "registry.auction.bid", map[string]any{
		"token_id": tok.ID,
		"amount":   req.Amount,
	})

	writeJSON(w, http.StatusOK, tok)
}

func (a *API) settleAuction(w http.ResponseWriter, r *http.Request, id registry.TokenID) {
	caller, ok := callerIdentity(w, r)
	if !ok {
		return
	}
	if err := a.requirePermission(r.Context(), auth.PermAuctionManage); err != nil {
		writeError(w, r, http.StatusForbidden, "missing permission "+auth.PermAuctionManage)
		return
	}

	tok, stl, err := a.registry.Settle(r.Context(), id)
	if err != nil {
		handleRegistryError(w, r, err)
		return
	}

	outcome := "no_bids"
	if stl.Transferred {
		outcome = "transferred"
	}
	obs.AuctionsSettled.WithLabelValues(outcome).Inc()
	a.publish(stream.Event{Type: stream.EventAuctionSettle, TokenID: tok.ID, Actor: caller, Amount: stl.Amount})
	a.audit(r.Context(), "registry.auction.settle", map[string]any{
		"token_id": tok.ID,
		"outcome":  outcome,
		"winner":   string(stl.Winner),
		"amount":   stl.Amount,
	})

	writeJSON(w, http.StatusOK, settleResponse{Token: tok, Settlement: stl})
}

func (a *API) publish(evt stream.Event) {
	if a.stream != nil {
		a.stream.Publish(evt)
	}
}

func callerIdentity(w http.ResponseWriter, r *http.Request) (registry.Identity, bool) {
	subject, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "authentication required")
		return registry.Nobody, false
	}
	return registry.Identity(subject), true
}

func parseTokenID(raw string) (registry.TokenID, error) {
	v, err := strconv.ParseUint(raw, 10, 16)
	if err != nil {
		return 0, err
	}
	if v == 0 || v > registry.MaxTokens {
		return 0, errors.New("token id out of range")
	}
	return registry.TokenID(v), nil
}

func handleRegistryError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, registry.ErrInvalidCategory),
		errors.Is(err, registry.ErrInvalidLeaseDuration),
		errors.Is(err, registry.ErrInvalidAuctionDuration),
		errors.Is(err, registry.ErrSelfBid):
		writeError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, registry.ErrNotOwner):
		writeError(w, r, http.StatusForbidden, err.Error())
	case errors.Is(err, registry.ErrNotFound):
		writeError(w, r, http.StatusNotFound, err.Error())
	case errors.Is(err, registry.ErrCapacityExceeded),
		errors.Is(err, registry.ErrBidTooLow),
		errors.Is(err, registry.ErrTokenUnderAuction),
		errors.Is(err, registry.ErrTokenLeased),
		errors.Is(err, registry.ErrLeaseAlreadyActive),
		errors.Is(err, registry.ErrAuctionAlreadyOpen),
		errors.Is(err, registry.ErrAuctionNotOpen),
		errors.Is(err, registry.ErrAuctionExpired),
		errors.Is(err, registry.ErrAuctionStillOpen):
		writeError(w, r, http.StatusConflict, err.Error())
	default:
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}
