package model

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestNormalizePaymentMethod(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  PaymentMethod
	}{
		{name: "canonical", input: "debit_card", want: PaymentMethodDebitCard},
		{name: "canonical with spaces and case", input: "  Bank_Transfer ", want: PaymentMethodBankTransfer},
		{name: "alias card", input: "card", want: PaymentMethodCreditCard},
		{name: "alias tarjeta", input: "tarjeta", want: PaymentMethodCreditCard},
		{name: "alias debito", input: "debito", want: PaymentMethodDebitCard},
		{name: "legacy tarjeta_credito", input: "tarjeta_credito", want: PaymentMethodCreditCard},
		{name: "legacy tarjeta_debito", input: "TARJETA_DEBITO", want: PaymentMethodDebitCard},
		{name: "alias nequi", input: "Nequi", want: PaymentMethodDigitalWallet},
		{name: "unknown falls back", input: "bitcoin", want: PaymentMethodCash},
		{name: "empty falls back", input: "", want: PaymentMethodCash},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizePaymentMethod(tt.input, PaymentMethodCash))
		})
	}
}

func TestLedgerEntryConsistent(t *testing.T) {
	d := decimal.RequireFromString

	assert.True(t, LedgerEntry{Kind: LedgerKindSpend, Amount: d("6.00"), BalanceBefore: d("10.00"), BalanceAfter: d("4.00")}.Consistent())
	assert.True(t, LedgerEntry{Kind: LedgerKindRecharge, Amount: d("5"), BalanceBefore: d("4"), BalanceAfter: d("9")}.Consistent())
	assert.False(t, LedgerEntry{Kind: LedgerKindRecharge, Amount: d("5"), BalanceBefore: d("4"), BalanceAfter: d("-1")}.Consistent())
	assert.False(t, LedgerEntry{Kind: "refund", Amount: d("1"), BalanceBefore: d("1"), BalanceAfter: d("2")}.Consistent())
}
