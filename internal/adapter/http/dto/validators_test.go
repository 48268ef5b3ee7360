package dto

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// --- SanitizeStruct tests ---

func TestSanitizeStruct_TrimsWhitespace(t *testing.T) {
	req := PurchaseRequest{
		WalletID: "  w-2024-001  ",
		Vendor:   " Campus Cafe ",
		OrderID:  " order-001 ",
	}
	SanitizeStruct(&req)

	assert.Equal(t, "w-2024-001", req.WalletID)
	assert.Equal(t, "Campus Cafe", req.Vendor)
	assert.Equal(t, "order-001", req.OrderID)
}

func TestSanitizeStruct_EscapesHTML(t *testing.T) {
	reason := "student <script>alert('x')</script> request"
	req := RefundRequest{
		WalletID: "w-2024-001",
		OrderID:  "order-001",
		Reason:   reason,
	}
	SanitizeStruct(&req)

	assert.Contains(t, req.Reason, "&lt;script&gt;")
	assert.NotContains(t, req.Reason, "<script>")
}

func TestSanitizeStruct_IgnoresNonStructs(t *testing.T) {
	s := "  untouched  "
	SanitizeStruct(&s)
	assert.Equal(t, "  untouched  ", s)

	req := AdjustmentRequest{Reason: " ok "}
	SanitizeStruct(req) // not a pointer, no-op
	assert.Equal(t, " ok ", req.Reason)
}

// --- safe_id tests ---

func TestValidateSafeID(t *testing.T) {
	tests := []struct {
		value string
		valid bool
	}{
		{"w-2024-001", true},
		{"order_42.A", true},
		{"w 2024", false},
		{"w/2024", false},
		{"w;DROP TABLE wallets", false},
		{"", false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.valid, safeStringRe.MatchString(tt.value), tt.value)
	}
}
