package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"

	"auctiond/adapters/funds"
	"auctiond/ledger"
)

// caller resolves the bearer token to the caller address it was issued for.
func (impl *ServerImpl) caller(c *gin.Context) (string, bool) {
	token, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
	if !ok || token == "" {
		return "", false
	}
	caller, err := impl.verifier.Caller(token)
	if err != nil {
		slog.Warn("Fail to resolve caller from token", slog.Any("error", err))
		return "", false
	}
	return caller, true
}

func auctionID(c *gin.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: "invalid auction id"})
		return 0, false
	}
	return id, true
}

// Create a new auction
// (POST /auctions)
func (impl *ServerImpl) PostAuction(c *gin.Context) {
	const op = "PostAuction"
	caller, ok := impl.caller(c)
	if !ok {
		c.Status(http.StatusUnauthorized)
		return
	}
	var req CreateAuctionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: "invalid request payload"})
		return
	}
	id, err := impl.ledger.CreateAuction(c.Request.Context(), caller, req.StartTime, req.EndTime, req.StartingPrice)
	if err != nil {
		slog.Warn("Fail to create auction", slog.String("op", op), slog.Any("error", err))
		c.JSON(statusForError(err), ErrorResponse{Message: err.Error()})
		return
	}
	c.Header("Location", "/auctions/"+strconv.FormatUint(id, 10))
	c.JSON(http.StatusCreated, CreateAuctionResponse{ID: id})
}

// Remove an auction
// (DELETE /auctions/:id)
func (impl *ServerImpl) DeleteAuction(c *gin.Context) {
	const op = "DeleteAuction"
	caller, ok := impl.caller(c)
	if !ok {
		c.Status(http.StatusUnauthorized)
		return
	}
	id, ok := auctionID(c)
	if !ok {
		return
	}
	if err := impl.ledger.RemoveAuction(c.Request.Context(), caller, id); err != nil {
		slog.Warn("Fail to remove auction", slog.String("op", op), slog.Uint64("auctionID", id), slog.Any("error", err))
		c.JSON(statusForError(err), ErrorResponse{Message: err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

// Place a bid on an auction
// (POST /auctions/:id/bids)
func (impl *ServerImpl) PostBid(c *gin.Context) {
	const op = "PostBid"
	bidder, ok := impl.caller(c)
	if !ok {
		c.Status(http.StatusUnauthorized)
		return
	}
	id, ok := auctionID(c)
	if !ok {
		return
	}
	var req PlaceBidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: "invalid request payload"})
		return
	}
	if err := impl.ledger.PlaceBid(c.Request.Context(), bidder, id, req.Amount); err != nil {
		slog.Warn("Fail to place bid", slog.String("op", op), slog.Uint64("auctionID", id),
			slog.String("bidder", bidder), slog.Uint64("amount", req.Amount), slog.Any("error", err))
		c.JSON(statusForError(err), ErrorResponse{Message: err.Error()})
		return
	}
	c.Status(http.StatusCreated)
}

// Settle concluded auctions
// (POST /withdrawals)
func (impl *ServerImpl) PostWithdrawal(c *gin.Context) {
	const op = "PostWithdrawal"
	caller, ok := impl.caller(c)
	if !ok {
		c.Status(http.StatusUnauthorized)
		return
	}
	var req WithdrawalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: "invalid request payload"})
		return
	}
	total, err := impl.ledger.WithdrawFunds(c.Request.Context(), caller, req.AuctionIDs)
	if err != nil {
		slog.Warn("Fail to withdraw funds", slog.String("op", op), slog.Any("error", err))
		c.JSON(statusForError(err), ErrorResponse{Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, WithdrawalResponse{Total: total})
}

// Update the minimum bid increment
// (PATCH /settings/min-increment)
func (impl *ServerImpl) PatchMinIncrement(c *gin.Context) {
	caller, ok := impl.caller(c)
	if !ok {
		c.Status(http.StatusUnauthorized)
		return
	}
	var req MinIncrementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: "invalid request payload"})
		return
	}
	if err := impl.ledger.UpdateMinBidIncrement(c.Request.Context(), caller, req.Value); err != nil {
		c.JSON(statusForError(err), ErrorResponse{Message: err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

// Get the auction whose window contains the present moment
// (GET /auctions/current)
func (impl *ServerImpl) GetCurrentAuction(c *gin.Context) {
	auction, ok := impl.ledger.CurrentAuction()
	if !ok {
		c.Status(http.StatusNotFound)
		return
	}
	c.JSON(http.StatusOK, toAuctionResponse(auction, time.Now()))
}

// Get a future auction
// (GET /auctions/next)
func (impl *ServerImpl) GetNextAuction(c *gin.Context) {
	auction, ok := impl.ledger.NextAuction()
	if !ok {
		c.Status(http.StatusNotFound)
		return
	}
	c.JSON(http.StatusOK, toAuctionResponse(auction, time.Now()))
}

// List concluded auctions
// (GET /auctions/past)
func (impl *ServerImpl) GetPastAuctions(c *gin.Context) {
	now := time.Now()
	auctions := impl.ledger.PastAuctions()
	c.JSON(http.StatusOK, lo.Map(auctions, func(a ledger.Auction, _ int) AuctionResponse {
		return toAuctionResponse(a, now)
	}))
}

// List not-yet-started auctions
// (GET /auctions/upcoming)
func (impl *ServerImpl) GetUpcomingAuctions(c *gin.Context) {
	now := time.Now()
	auctions := impl.ledger.UpcomingAuctions()
	c.JSON(http.StatusOK, lo.Map(auctions, func(a ledger.Auction, _ int) AuctionResponse {
		return toAuctionResponse(a, now)
	}))
}

// Get one auction
// (GET /auctions/:id)
func (impl *ServerImpl) GetAuction(c *gin.Context) {
	id, ok := auctionID(c)
	if !ok {
		return
	}
	auction, ok := impl.ledger.GetAuction(id)
	if !ok {
		c.Status(http.StatusNotFound)
		return
	}
	c.JSON(http.StatusOK, toAuctionResponse(auction, time.Now()))
}

// Stream auction observations
// (GET /auctions/:id/events)
func (impl *ServerImpl) GetAuctionEvents(c *gin.Context) {
	const op = "GetAuctionEvents"
	id, ok := auctionID(c)
	if !ok {
		return
	}
	if _, exists := impl.ledger.GetAuction(id); !exists {
		c.Status(http.StatusNotFound)
		return
	}
	w := c.Writer
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Transfer-Encoding", "chunked")
	channelName := strconv.FormatUint(id, 10)
	ch, err := impl.sseManager.Subscribe(channelName)
	if err != nil {
		slog.Error("Fail to subscribe to auction events", slog.String("op", op), slog.Any("error", err))
		c.Status(http.StatusInternalServerError)
		return
	}
	for {
		select {
		case <-c.Request.Context().Done():
			impl.sseManager.Unsubscribe(channelName, ch)
			return
		case event, open := <-ch:
			if !open {
				return
			}
			c.SSEvent(string(event.Type), event)
			w.Flush()
		// An empty line every 30 seconds keeps proxies from dropping
		// the connection.
		case <-time.After(30 * time.Second):
			w.WriteString("\n\n")
			w.Flush()
		}
	}
}

// Get an account balance
// (GET /accounts/:address)
func (impl *ServerImpl) GetAccount(c *gin.Context) {
	const op = "GetAccount"
	address := c.Param("address")
	balance, err := impl.funds.Balance(c.Request.Context(), address)
	if err != nil {
		slog.Error("Fail to load balance", slog.String("op", op), slog.String("address", address), slog.Any("error", err))
		c.Status(http.StatusInternalServerError)
		return
	}
	c.JSON(http.StatusOK, AccountResponse{Address: address, Balance: balance})
}

// Credit an account
// (POST /accounts/:address/deposits)
func (impl *ServerImpl) PostDeposit(c *gin.Context) {
	const op = "PostDeposit"
	caller, ok := impl.caller(c)
	if !ok {
		c.Status(http.StatusUnauthorized)
		return
	}
	if caller != impl.config.Operator {
		c.Status(http.StatusForbidden)
		return
	}
	var req DepositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: "invalid request payload"})
		return
	}
	address := c.Param("address")
	if err := impl.funds.Deposit(c.Request.Context(), address, req.Amount); err != nil {
		if errors.Is(err, funds.ErrBalanceOverflow) {
			c.JSON(http.StatusUnprocessableEntity, ErrorResponse{Message: "deposit would overflow the account balance"})
			return
		}
		slog.Error("Fail to deposit", slog.String("op", op), slog.String("address", address), slog.Any("error", err))
		c.Status(http.StatusInternalServerError)
		return
	}
	c.Status(http.StatusNoContent)
}
