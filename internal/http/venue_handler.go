package http

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"

	"github.com/hxuan190/batch-engine/internal/domain"
	"github.com/hxuan190/batch-engine/internal/http/httputil"
	"github.com/hxuan190/batch-engine/internal/venues"
)

type VenueHandler struct {
	registry *venues.Registry
}

func NewVenueHandler(registry *venues.Registry) *VenueHandler {
	return &VenueHandler{registry: registry}
}

func (h *VenueHandler) Root() string {
	return "/venues"
}

func (h *VenueHandler) SetRoutes(pub *gin.RouterGroup, private *gin.RouterGroup, admin *gin.RouterGroup) {
	pub.GET("", h.listVenues)
	admin.POST("", h.registerFactory)
}

type RegisterFactoryRequest struct {
	Factory      string `json:"factory" binding:"required"`
	InitCodeHash string `json:"initCodeHash" binding:"required"`
	Kind         string `json:"kind" binding:"required"`
	FeeTier      uint32 `json:"feeTier"`
}

type VenueInfo struct {
	Address string `json:"address"`
	Kind    string `json:"kind"`
	FeeTier uint32 `json:"feeTier"`
}

func (h *VenueHandler) registerFactory(c *gin.Context) {
	var req RegisterFactoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	factory, ok := parseAddress(req.Factory)
	if !ok {
		httputil.BadRequest(c, "invalid factory address")
		return
	}

	var kind domain.VenueKind
	switch req.Kind {
	case "reserve":
		kind = domain.ReserveBased
	case "tick":
		kind = domain.TickBased
	default:
		httputil.BadRequest(c, "invalid kind: must be reserve or tick")
		return
	}

	h.registry.Register(venues.Factory{
		Address:      factory,
		InitCodeHash: common.HexToHash(req.InitCodeHash),
		Kind:         kind,
		FeeTier:      req.FeeTier,
	})
	httputil.Success(c, gin.H{"registered": factory.Hex()})
}

func (h *VenueHandler) listVenues(c *gin.Context) {
	tokenA, ok := parseAddress(c.Query("tokenA"))
	if !ok {
		httputil.BadRequest(c, "invalid tokenA address")
		return
	}
	tokenB, ok := parseAddress(c.Query("tokenB"))
	if !ok {
		httputil.BadRequest(c, "invalid tokenB address")
		return
	}

	descriptors := h.registry.ListVenues(tokenA, tokenB)
	out := make([]VenueInfo, 0, len(descriptors))
	for _, d := range descriptors {
		out = append(out, VenueInfo{
			Address: d.Address.Hex(),
			Kind:    d.Kind.String(),
			FeeTier: d.FeeTier,
		})
	}
	httputil.Success(c, out)
}
