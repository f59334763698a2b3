package validation

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsValidDocumentID(t *testing.T) {
	tests := []struct {
		name  string
		doc   string
		valid bool
	}{
		{name: "cedula", doc: "1020304050", valid: true},
		{name: "shortest", doc: "12345", valid: true},
		{name: "too short", doc: "1234", valid: false},
		{name: "too long", doc: "1234567890123456", valid: false},
		{name: "contains letters", doc: "10203a4050", valid: false},
		{name: "empty string", doc: "", valid: false},
		{name: "arabic-indic digits", doc: "١٢٣٤٥", valid: false},
		{name: "fullwidth digits", doc: "１２３４５", valid: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := IsValidDocumentID(tt.doc)
			if got != tt.valid {
				t.Fatalf("IsValidDocumentID(%q) = %v, want %v", tt.doc, got, tt.valid)
			}
		})
	}
}

func TestIsValidPlate(t *testing.T) {
	tests := []struct {
		plate string
		valid bool
	}{
		{plate: "ABC123", valid: true},
		{plate: "abc-123", valid: true},
		{plate: "abc 12d", valid: true},
		{plate: "AB", valid: false},
		{plate: "ABC_123", valid: false},
		{plate: "ÑAB123", valid: false},
	}

	for _, tt := range tests {
		t.Run(tt.plate, func(t *testing.T) {
			if got := IsValidPlate(tt.plate); got != tt.valid {
				t.Fatalf("IsValidPlate(%q) = %v, want %v", tt.plate, got, tt.valid)
			}
		})
	}
}

type sampleRequest struct {
	Document string          `json:"document_id" validate:"required,document"`
	Email    string          `json:"email" validate:"required,email"`
	Password string          `json:"password" validate:"required,min=6"`
	Amount   decimal.Decimal `json:"amount" validate:"gt=0"`
}

func TestValidatorStruct(t *testing.T) {
	v := New()

	ok := sampleRequest{Document: "1020304050", Email: "ana@example.com", Password: "secret1", Amount: decimal.RequireFromString("10.5")}
	require.NoError(t, v.Struct(ok))

	err := v.Struct(sampleRequest{Document: "12", Email: "nope", Password: "123", Amount: decimal.Zero})
	var verrs Errors
	require.True(t, errors.As(err, &verrs), "expected Errors, got %T", err)

	got := map[string]string{}
	for _, fe := range verrs {
		got[fe.Field] = fe.Reason
	}
	assert.Equal(t, map[string]string{
		"document_id": "must contain 5 to 15 digits",
		"email":       "must be a valid email address",
		"password":    "must be at least 6 characters",
		"amount":      "must be greater than 0",
	}, got)
}
