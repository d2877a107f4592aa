package booking

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestComputeVAT(t *testing.T) {
	tests := []struct {
		name  string
		gross int64
		rate  float64
		want  int64
	}{
		{"standard rate round figure", 12000, 20, 2000},
		{"standard rate with rounding", 9999, 20, 1667},
		{"single penny", 1, 20, 0},
		{"zero gross", 0, 20, 0},
		{"zero rate", 12000, 0, 0},
		{"negative rate treated as zero", 12000, -5, 0},
		{"reduced rate", 10500, 5, 500},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, ComputeVAT(tt.gross, tt.rate))
		})
	}
}

// The VAT component can never exceed the gross it was extracted from, and
// net plus VAT must reassemble the gross exactly.
func TestComputeVAT_GrossDecomposition(t *testing.T) {
	for _, gross := range []int64{1, 99, 100, 101, 9999, 12000, 123456789} {
		vat := ComputeVAT(gross, 20)
		net := gross - vat

		require.GreaterOrEqual(t, vat, int64(0))
		require.Less(t, vat, gross)
		require.Equal(t, gross, net+vat)
	}
}

func TestFormatReference(t *testing.T) {
	require.Equal(t, "SB-LDN-2025-0001", FormatReference("SB", "LDN", 2025, 1))
	require.Equal(t, "SB-LDN-2025-0042", FormatReference("SB", "LDN", 2025, 42))
	require.Equal(t, "SB-LDN-2025-9999", FormatReference("SB", "LDN", 2025, 9999))
	// Counters past four digits widen rather than wrap.
	require.Equal(t, "SB-LDN-2026-10001", FormatReference("SB", "LDN", 2026, 10001))
}
