package fund

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"fundcustody/pkg/errutil"
	"fundcustody/pkg/task"
)

// Handler exposes the fund withdrawal lifecycle over HTTP. Errors are
// pushed onto the gin context and rendered by the error middleware.
type Handler struct {
	svc      *Service
	enqueuer task.Enqueuer
}

func NewHandler(svc *Service, enqueuer task.Enqueuer) *Handler {
	return &Handler{svc: svc, enqueuer: enqueuer}
}

func (h *Handler) Register(engine *gin.Engine) {
	v1 := engine.Group("/v1/funds/:fund_id")
	v1.GET("/ledger", h.getLedger)
	v1.GET("/users/:user_id", h.getUserLedger)
	v1.POST("/users/:user_id/withdrawals", h.requestWithdrawal)
	v1.POST("/users/:user_id/withdrawals/approve", h.approveWithdrawal)
	v1.POST("/users/:user_id/withdrawals/deny", h.denyWithdrawal)
	v1.POST("/assets/refresh", h.refreshAssets)
}

func pushError(c *gin.Context, err error) {
	var perr *ProgramError
	switch {
	case errors.As(err, &perr):
		_ = c.Error(perr)
	case errors.Is(err, ErrFundNotFound):
		_ = c.Error(errutil.NotFound("fund not found", err))
	default:
		_ = c.Error(errutil.Internal("internal error", err))
	}
}

func (h *Handler) getLedger(c *gin.Context) {
	ledger, err := h.svc.GetLedger(c.Request.Context(), c.Param("fund_id"))
	if err != nil {
		pushError(c, err)
		return
	}
	c.JSON(http.StatusOK, ledger)
}

func (h *Handler) getUserLedger(c *gin.Context) {
	user, err := h.svc.GetUserLedger(c.Request.Context(), c.Param("fund_id"), c.Param("user_id"))
	if err != nil {
		pushError(c, err)
		return
	}
	if user == nil {
		_ = c.Error(errutil.NotFound("user has no ledger for this fund", nil))
		return
	}
	c.JSON(http.StatusOK, user)
}

type requestWithdrawalBody struct {
	Amount uint64 `json:"amount"`
}

func (h *Handler) requestWithdrawal(c *gin.Context) {
	var body requestWithdrawalBody
	if err := c.ShouldBindJSON(&body); err != nil {
		_ = c.Error(errutil.BadRequest("invalid request body", err))
		return
	}

	user, err := h.svc.RequestWithdrawal(c.Request.Context(), c.Param("fund_id"), c.Param("user_id"), body.Amount)
	if err != nil {
		pushError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

type approveWithdrawalBody struct {
	Amount   uint64   `json:"amount"`
	Accounts []string `json:"accounts"`
}

func (h *Handler) approveWithdrawal(c *gin.Context) {
	var body approveWithdrawalBody
	if err := c.ShouldBindJSON(&body); err != nil {
		_ = c.Error(errutil.BadRequest("invalid request body", err))
		return
	}

	settlement, err := h.svc.ApproveWithdrawal(c.Request.Context(), ApproveWithdrawalRequest{
		FundID:   c.Param("fund_id"),
		UserID:   c.Param("user_id"),
		Amount:   body.Amount,
		Accounts: body.Accounts,
	})
	if err != nil {
		pushError(c, err)
		return
	}
	c.JSON(http.StatusOK, settlement)
}

type denyWithdrawalBody struct {
	Reason string `json:"reason"`
}

func (h *Handler) denyWithdrawal(c *gin.Context) {
	var body denyWithdrawalBody
	if err := c.ShouldBindJSON(&body); err != nil {
		_ = c.Error(errutil.BadRequest("invalid request body", err))
		return
	}

	user, err := h.svc.DenyWithdrawal(c.Request.Context(), c.Param("fund_id"), c.Param("user_id"), body.Reason)
	if err != nil {
		pushError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *Handler) refreshAssets(c *gin.Context) {
	t, err := NewRefreshAssetsTask(c.Param("fund_id"))
	if err != nil {
		pushError(c, err)
		return
	}

	if _, err := h.enqueuer.Enqueue(c.Request.Context(), t); err != nil {
		pushError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"status": "queued"})
}
