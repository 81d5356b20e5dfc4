package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateAmount(t *testing.T) {
	assert.NoError(t, ValidateAmount(1))
	assert.NoError(t, ValidateAmount(2500))
	assert.NoError(t, ValidateAmount(MaxAmountCents))

	assert.Error(t, ValidateAmount(0))
	assert.Error(t, ValidateAmount(-1))
	assert.Error(t, ValidateAmount(MaxAmountCents+1))
}

func TestValidateCurrency(t *testing.T) {
	assert.NoError(t, ValidateCurrency("USD"))
	assert.NoError(t, ValidateCurrency("EUR"))

	assert.Error(t, ValidateCurrency(""))
	assert.Error(t, ValidateCurrency("US"))
	assert.Error(t, ValidateCurrency("USDT"))
	assert.Error(t, ValidateCurrency("usd"))
	assert.Error(t, ValidateCurrency("U5D"))
}

func TestValidateUserID(t *testing.T) {
	assert.NoError(t, ValidateUserID("alice"))
	assert.NoError(t, ValidateUserID(strings.Repeat("a", 128)))

	assert.Error(t, ValidateUserID(""))
	assert.Error(t, ValidateUserID(strings.Repeat("a", 129)))
}

func TestValidateIdempotencyKey(t *testing.T) {
	assert.NoError(t, ValidateIdempotencyKey("key-1"))
	assert.NoError(t, ValidateIdempotencyKey(strings.Repeat("k", 255)))

	assert.Error(t, ValidateIdempotencyKey(""))
	assert.Error(t, ValidateIdempotencyKey(strings.Repeat("k", 256)))
}

func TestTransferAndRefundKeys(t *testing.T) {
	// The keys are deterministic functions of the charge id: every retry
	// path derives the same key, so the processor can never be asked for a
	// second transfer or refund for the same charge.
	assert.Equal(t, "transfer:ch_1", TransferKey("ch_1"))
	assert.Equal(t, "refund:ch_1", RefundKey("ch_1"))
	assert.Equal(t, TransferKey("ch_1"), TransferKey("ch_1"))
	assert.NotEqual(t, TransferKey("ch_1"), TransferKey("ch_2"))
}
