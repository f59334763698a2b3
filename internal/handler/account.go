package handler

import (
	"net/http"
	"strconv"

	"github.com/shopspring/decimal"
)

// GetAccount возвращает баланс текущего пользователя.
func (h *Handler) GetAccount(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	acc, err := h.service.GetAccount(r.Context(), userID)
	if err != nil {
		h.writeError(w, r, "get account", err)
		return
	}
	writeJSON(w, http.StatusOK, newAccountResponse(acc))
}

type rechargeRequest struct {
	Amount        decimal.Decimal `json:"amount" validate:"gt=0,lte=999999999999.99"`
	PaymentMethod string          `json:"payment_method" validate:"omitempty,max=32"`
}

type rechargeResponse struct {
	Transaction ledgerEntryResponse `json:"transaction"`
	Balance     string              `json:"balance"`
}

// Recharge пополняет баланс текущего пользователя.
func (h *Handler) Recharge(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	var req rechargeRequest
	if err := h.decode(w, r, &req); err != nil {
		h.writeError(w, r, "recharge", err)
		return
	}

	entry, balance, err := h.service.Recharge(r.Context(), userID, req.Amount, req.PaymentMethod)
	if err != nil {
		h.writeError(w, r, "recharge", err)
		return
	}

	writeJSON(w, http.StatusCreated, rechargeResponse{
		Transaction: newLedgerEntryResponse(entry),
		Balance:     balance.StringFixed(2),
	})
}

// ListTransactions возвращает журнал операций текущего пользователя.
// Нечисловой limit заменяется значением по умолчанию.
func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	limit, err := strconv.Atoi(q.Get("limit"))
	if err != nil {
		limit = 0
	}

	entries, err := h.service.ListTransactions(r.Context(), userID, q.Get("kind"), limit)
	if err != nil {
		h.writeError(w, r, "list transactions", err)
		return
	}
	writeJSON(w, http.StatusOK, mapSlice(entries, newLedgerEntryResponse))
}
