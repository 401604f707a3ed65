package http

import (
	"crypto/rand"
	"encoding/hex"
	"errors"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"github.com/holiman/uint256"

	"github.com/hxuan190/batch-engine/internal/common"
	"github.com/hxuan190/batch-engine/internal/domain"
	"github.com/hxuan190/batch-engine/internal/http/httputil"
	"github.com/hxuan190/batch-engine/internal/orderbook"
	"github.com/hxuan190/batch-engine/internal/services"
)

type OrderHandler struct {
	store   *orderbook.Store
	sweeper *services.Sweeper
}

func NewOrderHandler(store *orderbook.Store, sweeper *services.Sweeper) *OrderHandler {
	return &OrderHandler{store: store, sweeper: sweeper}
}

func (h *OrderHandler) Root() string {
	return "/orders"
}

func (h *OrderHandler) SetRoutes(pub *gin.RouterGroup, private *gin.RouterGroup, admin *gin.RouterGroup) {
	pub.POST("", h.placeOrder)
	pub.GET("/:id", h.getOrder)
	pub.GET("", h.listOrders)
	private.DELETE("/:id", h.cancelOrder)
}

// PlaceOrderRequest carries one limit order. All amounts are base-unit
// decimal strings; limitPrice is a Q64.64 fixed-point decimal string.
type PlaceOrderRequest struct {
	Owner        string `json:"owner" binding:"required"`
	TokenIn      string `json:"tokenIn" binding:"required"`
	TokenOut     string `json:"tokenOut" binding:"required"`
	Quantity     string `json:"quantity" binding:"required"`
	AmountOutMin string `json:"amountOutMin"`
	LimitPrice   string `json:"limitPrice" binding:"required"`
	Side         string `json:"side" binding:"required"`
}

type OrderResponse struct {
	ID           string `json:"id"`
	Owner        string `json:"owner"`
	TokenIn      string `json:"tokenIn"`
	TokenOut     string `json:"tokenOut"`
	Quantity     string `json:"quantity"`
	AmountOutMin string `json:"amountOutMin"`
	LimitPrice   string `json:"limitPrice"`
	Side         string `json:"side"`
	Status       string `json:"status"`
}

func orderResponse(o *domain.Order) OrderResponse {
	outMin := "0"
	if o.AmountOutMin != nil {
		outMin = o.AmountOutMin.Dec()
	}
	return OrderResponse{
		ID:           o.ID,
		Owner:        o.Owner.Hex(),
		TokenIn:      o.TokenIn.Hex(),
		TokenOut:     o.TokenOut.Hex(),
		Quantity:     o.Quantity.Dec(),
		AmountOutMin: outMin,
		LimitPrice:   o.LimitPrice.Dec(),
		Side:         o.Side.String(),
		Status:       o.Status.String(),
	}
}

func parseSide(s string) (domain.OrderSide, bool) {
	switch s {
	case "buy":
		return domain.SideBuy, true
	case "sell":
		return domain.SideSell, true
	default:
		return 0, false
	}
}

func parseAddress(s string) (ethcommon.Address, bool) {
	if !ethcommon.IsHexAddress(s) {
		return ethcommon.Address{}, false
	}
	return ethcommon.HexToAddress(s), true
}

func newOrderID() string {
	var buf [16]byte
	rand.Read(buf[:])
	return hex.EncodeToString(buf[:])
}

func (h *OrderHandler) placeOrder(c *gin.Context) {
	var req PlaceOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	owner, ok := parseAddress(req.Owner)
	if !ok {
		httputil.BadRequest(c, "invalid owner address")
		return
	}
	tokenIn, ok := parseAddress(req.TokenIn)
	if !ok {
		httputil.BadRequest(c, "invalid tokenIn address")
		return
	}
	tokenOut, ok := parseAddress(req.TokenOut)
	if !ok {
		httputil.BadRequest(c, "invalid tokenOut address")
		return
	}
	side, ok := parseSide(req.Side)
	if !ok {
		httputil.BadRequest(c, "invalid side: must be buy or sell")
		return
	}

	quantity, err := uint256.FromDecimal(req.Quantity)
	if err != nil || quantity.IsZero() {
		httputil.BadRequest(c, "invalid quantity: must be a positive integer")
		return
	}
	limitPrice, err := uint256.FromDecimal(req.LimitPrice)
	if err != nil || limitPrice.IsZero() {
		httputil.BadRequest(c, "invalid limitPrice: must be a positive Q64.64 integer")
		return
	}
	outMin := new(uint256.Int)
	if req.AmountOutMin != "" {
		outMin, err = uint256.FromDecimal(req.AmountOutMin)
		if err != nil {
			httputil.BadRequest(c, "invalid amountOutMin")
			return
		}
	}

	order := &domain.Order{
		ID:           newOrderID(),
		Owner:        owner,
		TokenIn:      tokenIn,
		TokenOut:     tokenOut,
		Quantity:     quantity,
		AmountOutMin: outMin,
		LimitPrice:   limitPrice,
		Side:         side,
	}
	if err := h.store.Place(order); err != nil {
		httputil.BadRequest(c, err.Error())
		return
	}

	h.sweeper.TrackPair(tokenIn, tokenOut)
	httputil.Success(c, orderResponse(order))
}

func (h *OrderHandler) getOrder(c *gin.Context) {
	order, err := h.store.Get(c.Param("id"))
	if err != nil {
		httputil.HandleError(c, storeError(err))
		return
	}
	httputil.Success(c, orderResponse(order))
}

// storeError maps order-store failures onto HTTP errors.
func storeError(err error) error {
	if errors.Is(err, orderbook.ErrOrderNotFound) {
		return common.HTTPErrorNotFound(err.Error())
	}
	return common.HTTPErrorInternalError(err.Error())
}

func (h *OrderHandler) listOrders(c *gin.Context) {
	tokenIn, ok := parseAddress(c.Query("tokenIn"))
	if !ok {
		httputil.BadRequest(c, "invalid tokenIn address")
		return
	}
	tokenOut, ok := parseAddress(c.Query("tokenOut"))
	if !ok {
		httputil.BadRequest(c, "invalid tokenOut address")
		return
	}
	side, ok := parseSide(c.Query("side"))
	if !ok {
		httputil.BadRequest(c, "invalid side: must be buy or sell")
		return
	}

	orders, err := h.store.FetchOrders(tokenIn, tokenOut, side)
	if err != nil {
		httputil.InternalError(c, err.Error())
		return
	}

	out := make([]OrderResponse, 0, len(orders))
	for _, o := range orders {
		out = append(out, orderResponse(o))
	}
	httputil.Success(c, out)
}

func (h *OrderHandler) cancelOrder(c *gin.Context) {
	id := c.Param("id")
	if err := h.store.Cancel(id); err != nil {
		httputil.HandleError(c, storeError(err))
		return
	}
	order, err := h.store.Get(id)
	if err != nil {
		httputil.HandleError(c, storeError(err))
		return
	}
	httputil.Success(c, orderResponse(order))
}
