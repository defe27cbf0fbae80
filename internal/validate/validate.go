// Package validate runs arithmetic sanity checks over extracted financial
// figures. A failed check is a warning annotation on the record, never an
// error.
package validate

import (
	"fmt"
	"math"

	"balancesheet-rag/internal/models"
)

// balanceTolerance is the allowed relative error in the accounting
// equation, 0.01% of total assets.
const balanceTolerance = 0.0001

// Result reports the outcome of validating one set of figures.
type Result struct {
	BalanceCheck bool
	Warnings     []string
}

// CheckFinancialData validates the accounting equation and subtotal
// consistency. Checks with missing inputs are skipped, not failed.
func CheckFinancialData(fd *models.FinancialData) Result {
	result := Result{BalanceCheck: true}
	if fd == nil {
		return result
	}

	if fd.TotalAssets != nil && fd.TotalLiabilities != nil && fd.TotalEquity != nil {
		assets := *fd.TotalAssets
		calculatedEquity := assets - *fd.TotalLiabilities
		difference := math.Abs(*fd.TotalEquity - calculatedEquity)
		tolerance := math.Abs(assets) * balanceTolerance

		if difference > tolerance {
			result.BalanceCheck = false
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("Balance equation mismatch: %.2f difference", difference))
		}
	}

	if fd.CurrentAssets != nil && fd.NonCurrentAssets != nil && fd.TotalAssets != nil {
		sum := *fd.CurrentAssets + *fd.NonCurrentAssets
		if math.Abs(sum-*fd.TotalAssets) > 0.01 {
			result.Warnings = append(result.Warnings, "Assets sum doesn't match total assets")
		}
	}

	if fd.CurrentLiabilities != nil && fd.NonCurrentLiabilities != nil && fd.TotalLiabilities != nil {
		sum := *fd.CurrentLiabilities + *fd.NonCurrentLiabilities
		if math.Abs(sum-*fd.TotalLiabilities) > 0.01 {
			result.Warnings = append(result.Warnings, "Liabilities sum doesn't match total liabilities")
		}
	}

	return result
}

// Apply writes the validation outcome back onto the record.
func Apply(fd *models.FinancialData) {
	if fd == nil {
		return
	}
	result := CheckFinancialData(fd)
	fd.BalanceCheck = result.BalanceCheck
	fd.Warnings = result.Warnings
}
