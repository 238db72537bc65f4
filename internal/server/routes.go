package server

import (
	"net/http"

	sdkmath "cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/gin-gonic/gin"

	"artmarket/broker/internal/market"
	"artmarket/broker/internal/receipt"
)

type placeBidRequest struct {
	Bidder  string `json:"bidder" binding:"required"`
	AssetID string `json:"asset_id" binding:"required"`
	Amount  int64  `json:"amount" binding:"required"`
	Denom   string `json:"denom" binding:"required"`
}

type awardRequest struct {
	Bidder  string `json:"bidder" binding:"required"`
	AssetID string `json:"asset_id" binding:"required"`
	Denom   string `json:"denom" binding:"required"`
}

type cancelRequest struct {
	Bidder  string `json:"bidder" binding:"required"`
	AssetID string `json:"asset_id" binding:"required"`
	Denom   string `json:"denom" binding:"required"`
}

type bidResponse struct {
	Bidder  string   `json:"bidder"`
	AssetID string   `json:"asset_id"`
	Price   sdk.Coin `json:"price"`
	LockRef string   `json:"lock_ref"`
}

type saleResponse struct {
	Bidder       string   `json:"bidder"`
	AssetID      string   `json:"asset_id"`
	Price        sdk.Coin `json:"price"`
	TransferTxID string   `json:"transfer_tx_id"`
	ClaimTxID    string   `json:"claim_tx_id"`
}

type cancellationResponse struct {
	Bidder      string   `json:"bidder"`
	AssetID     string   `json:"asset_id"`
	Price       sdk.Coin `json:"price"`
	ReleaseTxID string   `json:"release_tx_id"`
}

type cancelFailureResponse struct {
	Bidder  string `json:"bidder"`
	AssetID string `json:"asset_id"`
	Denom   string `json:"denom"`
	Error   string `json:"error"`
}

type awardResponse struct {
	Sale          saleResponse            `json:"sale"`
	Cancellations []cancellationResponse  `json:"cancellations"`
	Failed        []cancelFailureResponse `json:"failed,omitempty"`
}

func (s *Server) routes() {
	v1 := s.router.Group("/v1")
	v1.GET("/health", s.handleHealth)
	v1.POST("/bids", s.handlePlaceBid)
	v1.POST("/awards", s.handleAward)
	v1.POST("/cancellations", s.handleCancel)
	v1.GET("/artworks", s.handleListArtworks)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handlePlaceBid(c *gin.Context) {
	var req placeBidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Amount <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "amount must be positive"})
		return
	}
	if err := sdk.ValidateDenom(req.Denom); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	price := sdk.NewCoin(req.Denom, sdkmath.NewInt(req.Amount))
	bid, err := s.coord.PlaceBid(c.Request.Context(), req.Bidder, req.AssetID, price)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, bidResponse{
		Bidder:  bid.Bidder,
		AssetID: bid.AssetID,
		Price:   bid.Amount,
		LockRef: bid.LockRef,
	})
}

func (s *Server) handleAward(c *gin.Context) {
	var req awardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := s.coord.AwardArtwork(c.Request.Context(), req.Bidder, req.AssetID, req.Denom)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toAwardResponse(result))
}

func (s *Server) handleCancel(c *gin.Context) {
	var req cancelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	cancellation, err := s.coord.CancelBid(c.Request.Context(), req.Bidder, req.AssetID, req.Denom)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toCancellationResponse(cancellation))
}

func (s *Server) handleListArtworks(c *gin.Context) {
	pending, err := s.coord.ListArtworks(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}

	listings := make([]market.Listing, 0, len(pending))
	for _, p := range pending {
		listing, err := p.Resolve(c.Request.Context())
		if err != nil {
			// the asset may have left the gallery between enumeration and
			// the join; skip it rather than failing the whole listing
			continue
		}
		listings = append(listings, listing)
	}
	c.JSON(http.StatusOK, gin.H{"artworks": listings})
}

func toAwardResponse(result market.AwardResult) awardResponse {
	resp := awardResponse{
		Sale: saleResponse{
			Bidder:       result.Sale.Bidder,
			AssetID:      result.Sale.AssetID,
			Price:        result.Sale.Amount,
			TransferTxID: result.Sale.TransferTxID,
			ClaimTxID:    result.Sale.ClaimTxID,
		},
		Cancellations: make([]cancellationResponse, 0, len(result.Cancellations)),
	}
	for _, cn := range result.Cancellations {
		resp.Cancellations = append(resp.Cancellations, toCancellationResponse(cn))
	}
	for _, f := range result.Failed {
		key := f.Bid.Key()
		resp.Failed = append(resp.Failed, cancelFailureResponse{
			Bidder:  key.Bidder,
			AssetID: key.AssetID,
			Denom:   key.Denom,
			Error:   f.Err.Error(),
		})
	}
	return resp
}

func toCancellationResponse(cn receipt.Cancellation) cancellationResponse {
	return cancellationResponse{
		Bidder:      cn.Bidder,
		AssetID:     cn.AssetID,
		Price:       cn.Amount,
		ReleaseTxID: cn.ReleaseTxID,
	}
}
