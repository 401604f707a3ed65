package http

import (
	"math/big"

	"github.com/gin-gonic/gin"
	"github.com/holiman/uint256"

	"github.com/hxuan190/batch-engine/internal/http/httputil"
	"github.com/hxuan190/batch-engine/internal/pricing"
)

// q64Scale converts a Q64.64 price to a float approximation for display.
var q64Scale = new(big.Float).SetFloat64(18446744073709551616.0)

func q64ToFloat(price *uint256.Int) float64 {
	f := new(big.Float).SetInt(price.ToBig())
	out, _ := f.Quo(f, q64Scale).Float64()
	return out
}

type PriceHandler struct {
	aggregator *pricing.Aggregator
}

func NewPriceHandler(aggregator *pricing.Aggregator) *PriceHandler {
	return &PriceHandler{aggregator: aggregator}
}

func (h *PriceHandler) Root() string {
	return "/prices"
}

func (h *PriceHandler) SetRoutes(pub *gin.RouterGroup, private *gin.RouterGroup, admin *gin.RouterGroup) {
	pub.GET("", h.getPrices)
}

// VenuePrice is one venue's spot quote for the pair. Price is the exact
// Q64.64 value as a decimal string; PriceFloat is a display approximation.
type VenuePrice struct {
	Venue      string  `json:"venue"`
	Price      string  `json:"price"`
	PriceFloat float64 `json:"priceFloat"`
	Reserve0   string  `json:"reserve0"`
	Reserve1   string  `json:"reserve1"`
}

func (h *PriceHandler) getPrices(c *gin.Context) {
	base, ok := parseAddress(c.Query("base"))
	if !ok {
		httputil.BadRequest(c, "invalid base address")
		return
	}
	quote, ok := parseAddress(c.Query("quote"))
	if !ok {
		httputil.BadRequest(c, "invalid quote address")
		return
	}
	if base == quote {
		httputil.BadRequest(c, "base and quote must differ")
		return
	}

	reserves, addrs, err := h.aggregator.GetAllPrices(c.Request.Context(), base, quote)
	if err != nil {
		httputil.NotFound(c, err.Error())
		return
	}

	out := make([]VenuePrice, 0, len(reserves))
	for i, r := range reserves {
		out = append(out, VenuePrice{
			Venue:      addrs[i].Hex(),
			Price:      r.SpotPrice.Dec(),
			PriceFloat: q64ToFloat(r.SpotPrice),
			Reserve0:   r.Reserve0.Dec(),
			Reserve1:   r.Reserve1.Dec(),
		})
	}
	httputil.Success(c, out)
}
