package http

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"

	"github.com/hxuan190/batch-engine/internal/domain"
	"github.com/hxuan190/batch-engine/internal/http/httputil"
	"github.com/hxuan190/batch-engine/internal/services"
)

type ExecuteHandler struct {
	sweeper *services.Sweeper
	beacon  common.Address
}

// NewExecuteHandler exposes manual execution passes. The default beacon is
// credited when the caller does not name one.
func NewExecuteHandler(sweeper *services.Sweeper, beacon common.Address) *ExecuteHandler {
	return &ExecuteHandler{sweeper: sweeper, beacon: beacon}
}

func (h *ExecuteHandler) Root() string {
	return "/execute"
}

func (h *ExecuteHandler) SetRoutes(pub *gin.RouterGroup, private *gin.RouterGroup, admin *gin.RouterGroup) {
	admin.POST("", h.execute)
}

type ExecuteRequest struct {
	// Beacon receives the beacon share of fees for this pass. Optional.
	Beacon string `json:"beacon"`
}

type BatchSummary struct {
	Venue1         string   `json:"venue1"`
	Venue2         string   `json:"venue2"`
	Price          string   `json:"price"`
	AmountIn       string   `json:"amountIn"`
	AmountOut      string   `json:"amountOut,omitempty"`
	BeaconReward   string   `json:"beaconReward,omitempty"`
	ProtocolReward string   `json:"protocolReward,omitempty"`
	OrderIDs       []string `json:"orderIds"`
	Error          string   `json:"error,omitempty"`
}

type ExecuteResponse struct {
	Batches []BatchSummary `json:"batches"`
	Settled int            `json:"settled"`
	Failed  int            `json:"failed"`
}

func batchSummary(res domain.BatchResult) BatchSummary {
	s := BatchSummary{
		Venue1:   res.Batch.Venue1.Hex(),
		Venue2:   res.Batch.Venue2.Hex(),
		Price:    res.Batch.Price.Dec(),
		AmountIn: res.Batch.AmountIn.Dec(),
		OrderIDs: res.Batch.OrderIDs,
	}
	if res.Err != nil {
		s.Error = res.Err.Error()
		return s
	}
	if res.AmountOut != nil {
		s.AmountOut = res.AmountOut.Dec()
	}
	if res.Fee != nil {
		s.BeaconReward = res.Fee.BeaconReward.Dec()
		s.ProtocolReward = res.Fee.ProtocolReward.Dec()
	}
	return s
}

func (h *ExecuteHandler) execute(c *gin.Context) {
	var req ExecuteRequest
	// body is optional
	_ = c.ShouldBindJSON(&req)

	beacon := h.beacon
	if req.Beacon != "" {
		parsed, ok := parseAddress(req.Beacon)
		if !ok {
			httputil.BadRequest(c, "invalid beacon address")
			return
		}
		beacon = parsed
	}

	results, err := h.sweeper.SweepOnce(c.Request.Context(), beacon)
	if err != nil {
		httputil.InternalError(c, err.Error())
		return
	}

	resp := ExecuteResponse{Batches: make([]BatchSummary, 0, len(results))}
	for _, res := range results {
		resp.Batches = append(resp.Batches, batchSummary(res))
		if res.Err != nil {
			resp.Failed++
		} else {
			resp.Settled++
		}
	}
	httputil.Success(c, resp)
}
