// Copyright 2026 Peter Edge
//
// All rights reserved.

package ibkrstatement

import (
	"github.com/bufdev/ibjournal/internal/pkg/mathdec"
)

const (
	performanceSummarySectionName = "Realized & Unrealized Performance Summary"
	performanceSummaryTotalLabel  = "Total"
	// performanceSummaryTotalCell is the cell of the combined realized and unrealized total.
	performanceSummaryTotalCell = 15
)

// ExtractCumulativePnL returns the total of the first
// "Realized & Unrealized Performance Summary,Data,Total" row, rounded to six
// decimal places.
//
// Returns 0 if there is no such row or its total is not a number.
func ExtractCumulativePnL(rows []RawRow) float64 {
	for _, row := range rows {
		if !isDataRow(row, performanceSummarySectionName) || row.Cell(2) != performanceSummaryTotalLabel {
			continue
		}
		total, err := mathdec.ParseNumber(row.Cell(performanceSummaryTotalCell))
		if err != nil || !mathdec.IsFinite(total) {
			return 0
		}
		return mathdec.Round(total)
	}
	return 0
}
