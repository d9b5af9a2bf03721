package validator

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestValidateRecordSums_ExactPartitionPasses(t *testing.T) {
	v := ValidateRecordSums("tx1", d("100.00"), d("90.00"), d("10.00"))

	assert.True(t, v.Valid)
	assert.Empty(t, v.Reason)
}

func TestValidateRecordSums_FullMatchPasses(t *testing.T) {
	v := ValidateRecordSums("tx2", d("64.60"), d("64.60"), d("0"))

	assert.True(t, v.Valid)
}

func TestValidateRecordSums_OneCentGapFails(t *testing.T) {
	v := ValidateRecordSums("tx3", d("100.00"), d("90.00"), d("9.99"))

	assert.False(t, v.Valid)
	assert.Contains(t, v.Reason, "tx3")
	assert.Contains(t, v.Reason, "!=")
}

func TestValidateRecordSums_NegativeUnmatchedFails(t *testing.T) {
	v := ValidateRecordSums("tx4", d("100.00"), d("110.00"), d("-10.00"))

	assert.False(t, v.Valid)
	assert.Contains(t, v.Reason, "over-match")
}

func TestValidateSummaryCounts(t *testing.T) {
	tests := []struct {
		name                                string
		total, matched, partial, unmatched int
		want                                bool
	}{
		{"exact partition", 10, 6, 1, 3, true},
		{"all matched", 5, 5, 0, 0, true},
		{"empty batch", 0, 0, 0, 0, true},
		{"count lost", 10, 6, 1, 2, false},
		{"double counted", 10, 6, 2, 3, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := ValidateSummaryCounts(tt.total, tt.matched, tt.partial, tt.unmatched)
			assert.Equal(t, tt.want, v.Valid)
		})
	}
}
