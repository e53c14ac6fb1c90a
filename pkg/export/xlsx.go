// Package export renders opportunity lists as spreadsheets.
package export

import (
	"fmt"
	"io"

	"github.com/jordanlanch/dealpipe/pkg/opportunity"
	"github.com/jordanlanch/dealpipe/pkg/users"
	"github.com/xuri/excelize/v2"
)

const (
	SheetName   = "Opportunities"
	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	dateLayout  = "2006-01-02"
	stampLayout = "2006-01-02 15:04"
)

var headers = []string{
	"ID", "Title", "Account", "Pipeline", "Stage", "Status", "Priority",
	"Amount", "Currency", "Probability", "Weighted Amount", "Expected Close",
	"Owner", "Contact", "Created At",
}

var widths = map[string]float64{"B": 36, "C": 24, "M": 22, "N": 22}

// Filename names an export taken at the given stamp.
func Filename(stamp string) string {
	return fmt.Sprintf("opportunities_%s.xlsx", stamp)
}

// WriteOpportunities writes items as a single-sheet workbook. owners maps
// user ids to the names shown in the Owner column.
func WriteOpportunities(w io.Writer, items []opportunity.Opportunity, owners map[int64]users.User) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E0E0E0"}, Pattern: 1},
	})
	if err != nil {
		return fmt.Errorf("failed to create style: %w", err)
	}

	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(SheetName, cell, h); err != nil {
			return fmt.Errorf("failed to write header: %w", err)
		}
	}
	last, _ := excelize.CoordinatesToCellName(len(headers), 1)
	if err := f.SetCellStyle(SheetName, "A1", last, headerStyle); err != nil {
		return fmt.Errorf("failed to style header: %w", err)
	}

	for i := range items {
		if err := writeRow(f, i+2, &items[i], owners); err != nil {
			return err
		}
	}

	for i := range headers {
		col, _ := excelize.ColumnNumberToName(i + 1)
		width, ok := widths[col]
		if !ok {
			width = 15
		}
		if err := f.SetColWidth(SheetName, col, col, width); err != nil {
			return fmt.Errorf("failed to size columns: %w", err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func writeRow(f *excelize.File, row int, o *opportunity.Opportunity, owners map[int64]users.User) error {
	values := []any{
		o.ID,
		o.Title,
		o.AccountName,
		o.Pipeline.Label(),
		o.Stage.Label(),
		string(o.Status),
		string(o.Priority),
		nil,
		o.Currency,
		o.Probability.InexactFloat64(),
		nil,
		"",
		"",
		o.ContactName,
		o.CreatedAt.UTC().Format(stampLayout),
	}
	if o.Amount.Valid {
		values[7] = o.Amount.Decimal.InexactFloat64()
	}
	if o.WeightedAmount.Valid {
		values[10] = o.WeightedAmount.Decimal.InexactFloat64()
	}
	if o.ExpectedCloseDate != nil {
		values[11] = o.ExpectedCloseDate.Format(dateLayout)
	}
	if o.UserID != nil {
		if u, ok := owners[*o.UserID]; ok {
			values[12] = u.Name
		}
	}

	start, _ := excelize.CoordinatesToCellName(1, row)
	if err := f.SetSheetRow(SheetName, start, &values); err != nil {
		return fmt.Errorf("failed to write row %d: %w", row, err)
	}
	return nil
}

// OwnerIDs returns the distinct owner ids of items.
func OwnerIDs(items []opportunity.Opportunity) []int64 {
	seen := make(map[int64]bool)
	var ids []int64
	for _, o := range items {
		if o.UserID != nil && !seen[*o.UserID] {
			seen[*o.UserID] = true
			ids = append(ids, *o.UserID)
		}
	}
	return ids
}
