package model

import "strings"

// PaymentMethod задаёт канонический способ оплаты пополнения.
type PaymentMethod string

const (
	PaymentMethodCreditCard    PaymentMethod = "credit_card"
	PaymentMethodDebitCard     PaymentMethod = "debit_card"
	PaymentMethodBankTransfer  PaymentMethod = "bank_transfer"
	PaymentMethodDigitalWallet PaymentMethod = "digital_wallet"
	PaymentMethodCash          PaymentMethod = "cash"
)

// PaymentMethods перечисляет все канонические способы оплаты в порядке объявления.
var PaymentMethods = []PaymentMethod{
	PaymentMethodCreditCard,
	PaymentMethodDebitCard,
	PaymentMethodBankTransfer,
	PaymentMethodDigitalWallet,
	PaymentMethodCash,
}

var paymentMethodAliases = map[string]PaymentMethod{
	"card":            PaymentMethodCreditCard,
	"credit":          PaymentMethodCreditCard,
	"tarjeta":         PaymentMethodCreditCard,
	"credito":         PaymentMethodCreditCard,
	"tarjeta_credito": PaymentMethodCreditCard,
	"tarjeta_debito":  PaymentMethodDebitCard,
	"debit":           PaymentMethodDebitCard,
	"debito":          PaymentMethodDebitCard,
	"transfer":        PaymentMethodBankTransfer,
	"pse":             PaymentMethodBankTransfer,
	"wallet":          PaymentMethodDigitalWallet,
	"nequi":           PaymentMethodDigitalWallet,
	"daviplata":       PaymentMethodDigitalWallet,
	"efectivo":        PaymentMethodCash,
}

// Valid сообщает, является ли значение каноническим способом оплаты.
func (m PaymentMethod) Valid() bool {
	for _, pm := range PaymentMethods {
		if pm == m {
			return true
		}
	}
	return false
}

// NormalizePaymentMethod приводит пользовательский ввод к каноническому способу оплаты.
// Псевдонимы отображаются на канонические значения, нераспознанный ввод заменяется fallback.
func NormalizePaymentMethod(input string, fallback PaymentMethod) PaymentMethod {
	v := strings.ToLower(strings.TrimSpace(input))
	if alias, ok := paymentMethodAliases[v]; ok {
		return alias
	}
	if pm := PaymentMethod(v); pm.Valid() {
		return pm
	}
	return fallback
}
