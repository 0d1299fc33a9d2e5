package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/warmconnects-backend/internal/dto"
	"github.com/ignatzorin/warmconnects-backend/internal/http/handlers/common"
	"github.com/ignatzorin/warmconnects-backend/internal/models"
	"github.com/ignatzorin/warmconnects-backend/internal/service"
	"github.com/ignatzorin/warmconnects-backend/internal/validation"
)

type WalletHandler struct {
	wallet WalletUseCase
}

// NewWalletHandler создаёт хэндлер кошелька.
func NewWalletHandler(wallet WalletUseCase) *WalletHandler {
	return &WalletHandler{wallet: wallet}
}

// GetBalance обрабатывает GET /wallet/balance.
func (h *WalletHandler) GetBalance(c *gin.Context) {
	actor, err := common.CurrentActor(c)
	if err != nil {
		common.Fail(c, err)
		return
	}

	balance, err := h.wallet.Balance(c.Request.Context(), actor.ID)
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, balance)
}

// TopUp обрабатывает POST /wallet/top-up.
func (h *WalletHandler) TopUp(c *gin.Context) {
	actor, err := common.CurrentActor(c)
	if err != nil {
		common.Fail(c, err)
		return
	}

	var req dto.TopUpRequest
	if err := common.BindJSON(c, &req); err != nil {
		common.Fail(c, err)
		return
	}
	amount, err := validation.ParseTopUpAmount(req.Amount)
	if err != nil {
		common.Fail(c, err)
		return
	}

	result, err := h.wallet.TopUp(c.Request.Context(), actor.ID, amount)
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Withdraw обрабатывает POST /wallet/withdraw.
func (h *WalletHandler) Withdraw(c *gin.Context) {
	actor, err := common.CurrentActor(c)
	if err != nil {
		common.Fail(c, err)
		return
	}

	var req dto.WithdrawRequest
	if err := common.BindJSON(c, &req); err != nil {
		common.Fail(c, err)
		return
	}
	amount, err := validation.ParseAmount(req.Amount)
	if err != nil {
		common.Fail(c, err)
		return
	}
	if err := validation.ValidateRequired("способ выплаты", req.PayoutMethod, validation.MaxPayoutMethodLength); err != nil {
		common.Fail(c, err)
		return
	}
	if req.PayoutDetails != nil {
		if err := validation.ValidateLength("реквизиты", *req.PayoutDetails, 0, validation.MaxPayoutDetailsLength); err != nil {
			common.Fail(c, err)
			return
		}
	}

	withdrawal, err := h.wallet.Withdraw(c.Request.Context(), service.WithdrawInput{
		UserID:        actor.ID,
		Amount:        amount,
		PayoutMethod:  strings.TrimSpace(req.PayoutMethod),
		PayoutDetails: trimmedOrNil(req.PayoutDetails),
	})
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, withdrawal)
}

// ListTransactions обрабатывает GET /wallet/transactions.
func (h *WalletHandler) ListTransactions(c *gin.Context) {
	actor, err := common.CurrentActor(c)
	if err != nil {
		common.Fail(c, err)
		return
	}

	limit, offset := common.GetPagination(c)
	entries, err := h.wallet.Transactions(c.Request.Context(), actor.ID, limit, offset)
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewListResponse[models.LedgerEntry](entries, limit, offset))
}

// ListWithdrawals обрабатывает GET /wallet/withdrawals.
func (h *WalletHandler) ListWithdrawals(c *gin.Context) {
	actor, err := common.CurrentActor(c)
	if err != nil {
		common.Fail(c, err)
		return
	}

	limit, offset := common.GetPagination(c)
	withdrawals, err := h.wallet.Withdrawals(c.Request.Context(), actor.ID, limit, offset)
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewListResponse(withdrawals, limit, offset))
}

// VerifyLedger обрабатывает GET /wallet/ledger/verify.
func (h *WalletHandler) VerifyLedger(c *gin.Context) {
	actor, err := common.CurrentActor(c)
	if err != nil {
		common.Fail(c, err)
		return
	}

	report, err := h.wallet.VerifyLedger(c.Request.Context(), actor.ID)
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}
