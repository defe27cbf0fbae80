package validate

import (
	"strings"
	"testing"

	"balancesheet-rag/internal/models"
)

func floatPtr(v float64) *float64 { return &v }

func TestCheckFinancialData(t *testing.T) {
	tests := []struct {
		name         string
		fd           *models.FinancialData
		wantBalance  bool
		wantWarnings int
	}{
		{
			name: "balanced equation",
			fd: &models.FinancialData{
				TotalAssets:      floatPtr(1000),
				TotalLiabilities: floatPtr(600),
				TotalEquity:      floatPtr(400),
			},
			wantBalance:  true,
			wantWarnings: 0,
		},
		{
			name: "equation mismatch",
			fd: &models.FinancialData{
				TotalAssets:      floatPtr(1000),
				TotalLiabilities: floatPtr(600),
				TotalEquity:      floatPtr(300),
			},
			wantBalance:  false,
			wantWarnings: 1,
		},
		{
			name: "mismatch within tolerance",
			fd: &models.FinancialData{
				TotalAssets:      floatPtr(1000000),
				TotalLiabilities: floatPtr(600000),
				TotalEquity:      floatPtr(400000.05),
			},
			wantBalance:  true,
			wantWarnings: 0,
		},
		{
			name: "missing equity skips the equation",
			fd: &models.FinancialData{
				TotalAssets:      floatPtr(1000),
				TotalLiabilities: floatPtr(600),
			},
			wantBalance:  true,
			wantWarnings: 0,
		},
		{
			name: "asset subtotal mismatch",
			fd: &models.FinancialData{
				TotalAssets:      floatPtr(1000),
				CurrentAssets:    floatPtr(400),
				NonCurrentAssets: floatPtr(500),
			},
			wantBalance:  true,
			wantWarnings: 1,
		},
		{
			name: "liability subtotal mismatch",
			fd: &models.FinancialData{
				TotalLiabilities:      floatPtr(600),
				CurrentLiabilities:    floatPtr(200),
				NonCurrentLiabilities: floatPtr(300),
			},
			wantBalance:  true,
			wantWarnings: 1,
		},
		{
			name:         "nil record",
			fd:           nil,
			wantBalance:  true,
			wantWarnings: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CheckFinancialData(tt.fd)
			if got.BalanceCheck != tt.wantBalance {
				t.Errorf("BalanceCheck = %v, want %v", got.BalanceCheck, tt.wantBalance)
			}
			if len(got.Warnings) != tt.wantWarnings {
				t.Errorf("warnings = %v, want %d", got.Warnings, tt.wantWarnings)
			}
		})
	}
}

func TestCheckFinancialDataMismatchMessage(t *testing.T) {
	fd := &models.FinancialData{
		TotalAssets:      floatPtr(1000),
		TotalLiabilities: floatPtr(600),
		TotalEquity:      floatPtr(300),
	}
	got := CheckFinancialData(fd)
	if len(got.Warnings) != 1 || !strings.Contains(got.Warnings[0], "Balance equation mismatch: 100.00") {
		t.Errorf("warnings = %v", got.Warnings)
	}
}

func TestApply(t *testing.T) {
	fd := &models.FinancialData{
		TotalAssets:      floatPtr(1000),
		TotalLiabilities: floatPtr(600),
		TotalEquity:      floatPtr(300),
	}
	Apply(fd)
	if fd.BalanceCheck {
		t.Error("BalanceCheck should be false after a mismatch")
	}
	if len(fd.Warnings) != 1 {
		t.Errorf("warnings = %v", fd.Warnings)
	}

	Apply(nil)
}
