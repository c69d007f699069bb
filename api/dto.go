package api

import (
	"time"

	"auctiond/ledger"
)

type CreateAuctionRequest struct {
	StartTime     time.Time `json:"startTime" binding:"required"`
	EndTime       time.Time `json:"endTime" binding:"required"`
	StartingPrice uint64    `json:"startingPrice"`
}

type CreateAuctionResponse struct {
	ID uint64 `json:"id"`
}

type PlaceBidRequest struct {
	Amount uint64 `json:"amount" binding:"required,gt=0"`
}

type WithdrawalRequest struct {
	AuctionIDs []uint64 `json:"auctionIds" binding:"required,min=1"`
}

type WithdrawalResponse struct {
	Total uint64 `json:"total"`
}

type MinIncrementRequest struct {
	Value uint64 `json:"value"`
}

type DepositRequest struct {
	Amount uint64 `json:"amount" binding:"required,gt=0"`
}

type AccountResponse struct {
	Address string `json:"address"`
	Balance uint64 `json:"balance"`
}

type AuctionResponse struct {
	ID            uint64    `json:"id"`
	StartTime     time.Time `json:"startTime"`
	EndTime       time.Time `json:"endTime"`
	StartingPrice uint64    `json:"startingPrice"`
	HighestBid    uint64    `json:"highestBid"`
	HighestBidder string    `json:"highestBidder,omitempty"`
	Withdrawn     bool      `json:"withdrawn"`
	IsEnded       bool      `json:"isEnded"`
}

func toAuctionResponse(a ledger.Auction, now time.Time) AuctionResponse {
	return AuctionResponse{
		ID:            a.ID,
		StartTime:     a.StartTime,
		EndTime:       a.EndTime,
		StartingPrice: a.StartingPrice,
		HighestBid:    a.HighestBid,
		HighestBidder: a.HighestBidder,
		Withdrawn:     a.Withdrawn,
		IsEnded:       !now.Before(a.EndTime),
	}
}

type ErrorResponse struct {
	Message string `json:"message"`
}
