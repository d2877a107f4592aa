package booking

import (
	"fmt"
	"math"
)

// ComputeVAT extracts the VAT component from a VAT-inclusive gross using the
// gross-VAT formula round(gross × r/(1+r)). A non-positive rate yields zero.
func ComputeVAT(grossPence int64, ratePercent float64) int64 {
	if ratePercent <= 0 {
		return 0
	}

	r := ratePercent / 100
	return int64(math.Round(float64(grossPence) * r / (1 + r)))
}

// FormatReference renders a booking reference: <prefix>-<org>-<year>-NNNN.
func FormatReference(prefix, org string, year int, counter int64) string {
	return fmt.Sprintf("%s-%s-%d-%04d", prefix, org, year, counter)
}
