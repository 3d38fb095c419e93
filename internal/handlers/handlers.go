package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/SicomCt/XPRL-Hackathon-2026/internal/auction"
	"github.com/SicomCt/XPRL-Hackathon-2026/internal/market"
	"github.com/SicomCt/XPRL-Hackathon-2026/internal/pinning"
	"github.com/SicomCt/XPRL-Hackathon-2026/internal/service"
	"github.com/SicomCt/XPRL-Hackathon-2026/internal/store"
	"github.com/SicomCt/XPRL-Hackathon-2026/internal/xrpl"
)

const maxMetadataUploadBytes = 10 << 20

// Handler contains the HTTP request handlers of the api-gateway.
type Handler struct {
	auctions *service.AuctionService
	listings store.Listings
	bids     store.Bids
	pinner   *pinning.Client
	market   *market.Client
	logger   *zap.Logger
}

// NewHandler creates the HTTP handler set.
func NewHandler(
	auctions *service.AuctionService,
	listings store.Listings,
	bids store.Bids,
	pinner *pinning.Client,
	marketClient *market.Client,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		auctions: auctions,
		listings: listings,
		bids:     bids,
		pinner:   pinner,
		market:   marketClient,
		logger:   logger,
	}
}

// SetupRoutes configures all HTTP routes.
func (h *Handler) SetupRoutes() *mux.Router {
	router := mux.NewRouter()

	router.HandleFunc("/health", h.HealthCheck).Methods("GET")

	api := router.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/listings", h.ListListings).Methods("GET")
	api.HandleFunc("/listings", h.CreateListing).Methods("POST")
	api.HandleFunc("/listings/{id}", h.GetListing).Methods("GET")
	api.HandleFunc("/listings/{id}", h.PatchListing).Methods("PATCH")

	api.HandleFunc("/bids", h.ListBids).Methods("GET")
	api.HandleFunc("/bids", h.RecordBid).Methods("POST")

	api.HandleFunc("/ledger/close-time", h.LedgerCloseTime).Methods("GET")

	api.HandleFunc("/auctions", h.ListAuctions).Methods("GET")
	api.HandleFunc("/auctions", h.PublishAuction).Methods("POST")
	api.HandleFunc("/auctions/{id}/bid", h.PlaceBid).Methods("POST")
	api.HandleFunc("/auctions/{id}/ship", h.ShipCommit).Methods("POST")
	api.HandleFunc("/auctions/{id}/received", h.ReceivedConfirm).Methods("POST")

	api.HandleFunc("/escrows/finish", h.FinishEscrow).Methods("POST")
	api.HandleFunc("/escrows/cancel", h.CancelEscrow).Methods("POST")
	api.HandleFunc("/escrows/sequence", h.LookupSequence).Methods("GET")

	api.HandleFunc("/market/xrp", h.MarketXRP).Methods("GET")
	api.HandleFunc("/metadata", h.UploadMetadata).Methods("POST")

	router.Use(h.loggingMiddleware)
	router.Use(corsMiddleware)

	return router
}

// HealthCheck returns service health status.
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "api-gateway",
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}

// ListListings returns the listing directory, newest first.
func (h *Handler) ListListings(w http.ResponseWriter, r *http.Request) {
	listings, err := h.listings.List(r.Context())
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, listings)
}

type createListingRequest struct {
	Title         string `json:"title"`
	Description   string `json:"description"`
	SellerAddress string `json:"sellerAddress"`
	EndTime       string `json:"endTime"` // RFC 3339
	MinBidXRP     string `json:"minBidXrp,omitempty"`
	ImageURL      string `json:"imageUrl,omitempty"`
}

// CreateListing adds a listing to the directory.
func (h *Handler) CreateListing(w http.ResponseWriter, r *http.Request) {
	var req createListingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Title == "" {
		respondError(w, http.StatusBadRequest, "title is required")
		return
	}
	if req.Description == "" {
		respondError(w, http.StatusBadRequest, "description is required")
		return
	}
	if req.SellerAddress == "" {
		respondError(w, http.StatusBadRequest, "sellerAddress is required")
		return
	}
	endTime, err := time.Parse(time.RFC3339, req.EndTime)
	if err != nil {
		respondError(w, http.StatusBadRequest, "endTime must be a valid RFC 3339 timestamp")
		return
	}
	if req.MinBidXRP != "" {
		if _, err := auction.XRPToDrops(req.MinBidXRP); err != nil {
			respondError(w, http.StatusBadRequest, "minBidXrp must be a positive number")
			return
		}
	}

	listing := &store.Listing{
		ID:            "lst_" + uuid.New().String(),
		Title:         req.Title,
		Description:   req.Description,
		ImageURL:      req.ImageURL,
		SellerAddress: req.SellerAddress,
		CreatedAt:     time.Now().UTC(),
		EndTime:       endTime,
		MinBidXRP:     req.MinBidXRP,
		Status:        store.ListingStatusActive,
	}
	if err := h.listings.Create(r.Context(), listing); err != nil {
		h.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, listing)
}

// GetListing retrieves one listing.
func (h *Handler) GetListing(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	listing, err := h.listings.Get(r.Context(), id)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, listing)
}

type patchListingRequest struct {
	AttestationTxHash string `json:"attestationTxHash,omitempty"`
	Status            string `json:"status,omitempty"`
}

// PatchListing updates the mutable listing fields.
func (h *Handler) PatchListing(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var req patchListingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Status != "" && req.Status != store.ListingStatusEnded && req.Status != store.ListingStatusCancelled {
		respondError(w, http.StatusBadRequest, "status must be 'ended' or 'cancelled'")
		return
	}

	listing, err := h.listings.Update(r.Context(), id, store.ListingUpdate{
		AttestationTxHash: req.AttestationTxHash,
		Status:            req.Status,
	})
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, listing)
}

// ListBids returns directory bids filtered by auction or owner.
func (h *Handler) ListBids(w http.ResponseWriter, r *http.Request) {
	auctionID := r.URL.Query().Get("auctionId")
	owner := r.URL.Query().Get("owner")

	var (
		bids []*store.BidRecord
		err  error
	)
	switch {
	case auctionID != "":
		bids, err = h.bids.ByAuction(r.Context(), auctionID)
	case owner != "":
		bids, err = h.bids.ByOwner(r.Context(), owner)
	default:
		respondJSON(w, http.StatusOK, []*store.BidRecord{})
		return
	}
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	if bids == nil {
		bids = []*store.BidRecord{}
	}
	respondJSON(w, http.StatusOK, bids)
}

type recordBidRequest struct {
	AuctionID     string `json:"auctionId"`
	Owner         string `json:"owner"`
	OfferSequence uint32 `json:"offerSequence"`
	AmountXRP     string `json:"amountXrp"`
	TxHash        string `json:"txHash"`
}

// RecordBid stores a bid record placed outside this gateway (e.g. by a
// browser wallet) so it shows up under "my bids".
func (h *Handler) RecordBid(w http.ResponseWriter, r *http.Request) {
	var req recordBidRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.AuctionID == "" || req.Owner == "" || req.OfferSequence == 0 || req.AmountXRP == "" || req.TxHash == "" {
		respondError(w, http.StatusBadRequest, "auctionId, owner, offerSequence, amountXrp, txHash required")
		return
	}

	err := h.bids.Add(r.Context(), &store.BidRecord{
		AuctionID:     req.AuctionID,
		Owner:         req.Owner,
		OfferSequence: req.OfferSequence,
		AmountXRP:     req.AmountXRP,
		TxHash:        req.TxHash,
		CreatedAt:     time.Now().UTC(),
	})
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]bool{"ok": true})
}

// LedgerCloseTime returns the validated ledger close time, used by
// clients to render release and refund windows.
func (h *Handler) LedgerCloseTime(w http.ResponseWriter, r *http.Request) {
	closeTime, err := h.auctions.LedgerCloseTime(r.Context())
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]int64{
		"closeTimeRipple": closeTime,
		"closeTimeUnix":   auction.RippleToUnixSeconds(closeTime),
	})
}

// ListAuctions rebuilds and returns the on-chain auction list.
func (h *Handler) ListAuctions(w http.ResponseWriter, r *http.Request) {
	auctions, err := h.auctions.FetchAuctions(r.Context())
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, auctions)
}

type publishAuctionRequest struct {
	ListingID         string `json:"listingId,omitempty"`
	AuctionID         string `json:"auctionId"`
	Seller            string `json:"seller"`
	Title             string `json:"title"`
	DescHash          string `json:"descHash"`
	StartTime         int64  `json:"startTime"`
	EndTime           int64  `json:"endTime"`
	Currency          string `json:"currency"`
	MinIncrementDrops string `json:"minIncrementDrops"`
	ReserveDrops      string `json:"reserveDrops"`
	ShippingPolicy    string `json:"shippingPolicyHash,omitempty"`
}

// PublishAuction announces an AUCTION_CREATE event on the chain.
func (h *Handler) PublishAuction(w http.ResponseWriter, r *http.Request) {
	var req publishAuctionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.AuctionID == "" || req.Seller == "" || req.Title == "" {
		respondError(w, http.StatusBadRequest, "auctionId, seller, title required")
		return
	}
	if req.EndTime <= req.StartTime {
		respondError(w, http.StatusBadRequest, "endTime must be after startTime")
		return
	}

	result, err := h.auctions.PublishAuctionCreate(r.Context(), service.CreateAuctionRequest{
		ListingID: req.ListingID,
		Payload: &auction.AuctionCreatePayload{
			Type:              auction.EventAuctionCreate,
			AuctionID:         req.AuctionID,
			Seller:            req.Seller,
			Title:             req.Title,
			DescHash:          req.DescHash,
			StartTime:         req.StartTime,
			EndTime:           req.EndTime,
			Currency:          req.Currency,
			MinIncrementDrops: req.MinIncrementDrops,
			ReserveDrops:      req.ReserveDrops,
			ShippingPolicy:    req.ShippingPolicy,
		},
	})
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]string{"txHash": result.Hash})
}

// PlaceBid locks a bid in escrow and announces it.
func (h *Handler) PlaceBid(w http.ResponseWriter, r *http.Request) {
	auctionID := mux.Vars(r)["id"]

	var req service.PlaceBidRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.SellerAddress == "" {
		respondError(w, http.StatusBadRequest, "seller_address is required")
		return
	}
	if req.AmountXRP == "" {
		respondError(w, http.StatusBadRequest, "amount_xrp is required")
		return
	}
	if _, err := auction.XRPToDrops(req.AmountXRP); err != nil {
		respondError(w, http.StatusBadRequest, "amount_xrp must be a positive number")
		return
	}
	if req.EndTimeUnix <= 0 {
		respondError(w, http.StatusBadRequest, "end_time_unix is required")
		return
	}

	result, err := h.auctions.PlaceBid(r.Context(), auctionID, req)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, result)
}

type shipCommitRequest struct {
	Seller       string `json:"seller"`
	Winner       string `json:"winner"`
	TrackingHash string `json:"trackingHash,omitempty"`
}

// ShipCommit announces the seller's shipping commitment.
func (h *Handler) ShipCommit(w http.ResponseWriter, r *http.Request) {
	auctionID := mux.Vars(r)["id"]

	var req shipCommitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Seller == "" || req.Winner == "" {
		respondError(w, http.StatusBadRequest, "seller and winner required")
		return
	}

	result, err := h.auctions.SubmitShipCommit(r.Context(), &auction.ShipCommitPayload{
		Type:         auction.EventShipCommit,
		AuctionID:    auctionID,
		Seller:       req.Seller,
		Winner:       req.Winner,
		TrackingHash: req.TrackingHash,
		Timestamp:    time.Now().Unix(),
	})
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]string{"txHash": result.Hash})
}

type receivedConfirmRequest struct {
	Buyer string `json:"buyer"`
}

// ReceivedConfirm announces the buyer's receipt confirmation.
func (h *Handler) ReceivedConfirm(w http.ResponseWriter, r *http.Request) {
	auctionID := mux.Vars(r)["id"]

	var req receivedConfirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Buyer == "" {
		respondError(w, http.StatusBadRequest, "buyer is required")
		return
	}

	result, err := h.auctions.SubmitReceivedConfirm(r.Context(), &auction.ReceivedConfirmPayload{
		Type:      auction.EventReceivedConfirm,
		AuctionID: auctionID,
		Buyer:     req.Buyer,
		Timestamp: time.Now().Unix(),
	})
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]string{"txHash": result.Hash})
}

type escrowActionRequest struct {
	Owner         string `json:"owner"`
	OfferSequence uint32 `json:"offerSequence"`
}

// FinishEscrow releases an escrow to the seller.
func (h *Handler) FinishEscrow(w http.ResponseWriter, r *http.Request) {
	var req escrowActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Owner == "" || req.OfferSequence == 0 {
		respondError(w, http.StatusBadRequest, "owner and offerSequence required")
		return
	}

	result, err := h.auctions.FinishEscrow(r.Context(), req.Owner, req.OfferSequence)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"txHash": result.Hash})
}

// CancelEscrow refunds an escrow to its owner.
func (h *Handler) CancelEscrow(w http.ResponseWriter, r *http.Request) {
	var req escrowActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Owner == "" || req.OfferSequence == 0 {
		respondError(w, http.StatusBadRequest, "owner and offerSequence required")
		return
	}

	result, err := h.auctions.CancelEscrow(r.Context(), req.Owner, req.OfferSequence)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"txHash": result.Hash})
}

// LookupSequence re-resolves an escrow sequence from open ledger objects.
func (h *Handler) LookupSequence(w http.ResponseWriter, r *http.Request) {
	owner := r.URL.Query().Get("owner")
	destination := r.URL.Query().Get("destination")
	amount := r.URL.Query().Get("amount")
	if owner == "" || destination == "" || amount == "" {
		respondError(w, http.StatusBadRequest, "owner, destination, amount required")
		return
	}

	seq, err := h.auctions.LookupSequence(r.Context(), owner, destination, amount)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]uint32{"offerSequence": seq})
}

// MarketXRP returns the XRP price history.
func (h *Handler) MarketXRP(w http.ResponseWriter, r *http.Request) {
	history, err := h.market.XRPHistory(r.Context())
	if err != nil {
		respondError(w, http.StatusBadGateway, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, history)
}

// UploadMetadata pins an auction image plus its metadata document to
// IPFS and returns both CIDs.
func (h *Handler) UploadMetadata(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxMetadataUploadBytes); err != nil {
		respondError(w, http.StatusBadRequest, "Expected multipart form data")
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		respondError(w, http.StatusBadRequest, "Image file is required")
		return
	}
	defer file.Close()

	image, err := io.ReadAll(io.LimitReader(file, maxMetadataUploadBytes))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Failed to read image")
		return
	}

	field := func(name string) string { return r.FormValue(name) }
	title := field("title")
	auctionID := field("auctionId")
	sellerAddress := field("sellerAddress")
	startTime := field("startTime")
	endTime := field("endTime")
	if title == "" || auctionID == "" || sellerAddress == "" || startTime == "" || endTime == "" {
		respondError(w, http.StatusBadRequest, "Missing required metadata fields")
		return
	}

	result, err := h.pinner.PinAuctionMetadata(r.Context(),
		header.Filename,
		header.Header.Get("Content-Type"),
		image,
		pinning.MetadataProperties{
			AuctionID:       auctionID,
			SellerAddress:   sellerAddress,
			StartPriceXRP:   field("startPriceXrp"),
			MinIncrementXRP: field("minIncrementXrp"),
			StartTime:       startTime,
			EndTime:         endTime,
		},
		title,
		field("description"),
	)
	if err != nil {
		if errors.Is(err, pinning.ErrNoJWT) {
			respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
		respondError(w, http.StatusBadGateway, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// respondServiceError maps domain failures onto HTTP status codes with
// actionable messages.
func (h *Handler) respondServiceError(w http.ResponseWriter, err error) {
	var policyErr *xrpl.PolicyViolationError
	switch {
	case errors.Is(err, store.ErrNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, xrpl.ErrSequenceUnresolved):
		respondError(w, http.StatusBadGateway, err.Error())
	case errors.Is(err, xrpl.ErrNoSubmitter):
		respondError(w, http.StatusServiceUnavailable, err.Error())
	case errors.As(err, &policyErr):
		respondError(w, http.StatusUnprocessableEntity, policyErr.Error())
	default:
		h.logger.Error("request failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, err.Error())
	}
}

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// respondError sends an error response.
func respondError(w http.ResponseWriter, statusCode int, message string) {
	respondJSON(w, statusCode, map[string]string{"error": message})
}

// loggingMiddleware logs all HTTP requests.
func (h *Handler) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		h.logger.Info("request",
			zap.String("method", r.Method),
			zap.String("uri", r.RequestURI),
			zap.String("duration", time.Since(start).String()))
	})
}

// corsMiddleware adds CORS headers (for development)
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
