package http

import (
	"github.com/gin-gonic/gin"
	"github.com/holiman/uint256"

	"github.com/hxuan190/batch-engine/internal/http/httputil"
	"github.com/hxuan190/batch-engine/internal/treasury"
)

type TreasuryHandler struct {
	treasury *treasury.Treasury
}

func NewTreasuryHandler(tr *treasury.Treasury) *TreasuryHandler {
	return &TreasuryHandler{treasury: tr}
}

func (h *TreasuryHandler) Root() string {
	return "/treasury"
}

func (h *TreasuryHandler) SetRoutes(pub *gin.RouterGroup, private *gin.RouterGroup, admin *gin.RouterGroup) {
	admin.GET("/:token", h.getBalance)
	admin.POST("/withdraw", h.withdraw)
}

type WithdrawRequest struct {
	Token  string `json:"token" binding:"required"`
	Amount string `json:"amount" binding:"required"`
}

func (h *TreasuryHandler) getBalance(c *gin.Context) {
	token, ok := parseAddress(c.Param("token"))
	if !ok {
		httputil.BadRequest(c, "invalid token address")
		return
	}
	httputil.Success(c, gin.H{
		"token":   token.Hex(),
		"balance": h.treasury.Balance(token).Dec(),
	})
}

func (h *TreasuryHandler) withdraw(c *gin.Context) {
	var req WithdrawRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	token, ok := parseAddress(req.Token)
	if !ok {
		httputil.BadRequest(c, "invalid token address")
		return
	}
	amount, err := uint256.FromDecimal(req.Amount)
	if err != nil || amount.IsZero() {
		httputil.BadRequest(c, "invalid amount: must be a positive integer")
		return
	}

	if err := h.treasury.Withdraw(token, amount); err != nil {
		httputil.BadRequest(c, err.Error())
		return
	}
	httputil.Success(c, gin.H{
		"token":     token.Hex(),
		"withdrawn": amount.Dec(),
		"remaining": h.treasury.Balance(token).Dec(),
	})
}
