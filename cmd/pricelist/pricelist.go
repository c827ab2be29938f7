package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/gosimple/slug"
	"github.com/xuri/excelize/v2"

	"github.com/dropsource/storefront/models"
	"github.com/dropsource/storefront/utils"
)

// PriceRow is one exported catalog line
type PriceRow struct {
	Provider       string `json:"provider"`
	Code           string `json:"code"`
	Name           string `json:"name"`
	RatePer1KCents int64  `json:"rate_per_1k_cents"`
	Min            int64  `json:"min"`
	Max            int64  `json:"max"`
	Category       string `json:"category"`
	OurPriceCents  int64  `json:"our_price_cents"`
	RemoteID       string `json:"remote_id"`
}

var sheetHeader = []string{"provider", "code", "name", "rate_per_1k_cents", "min", "max", "category", "our_price_cents", "remote_id"}

// BuildRows converts normalized services into export rows ordered by category then name
func BuildRows(provider string, svcs []models.Service) []PriceRow {
	prefix := slug.Make(provider)
	rows := make([]PriceRow, 0, len(svcs))
	for _, s := range svcs {
		rows = append(rows, PriceRow{
			Provider:       provider,
			Code:           prefix + "-" + s.ID,
			Name:           s.Name,
			RatePer1KCents: utils.DollarsToCents(s.PanelRatePer1K),
			Min:            s.Min,
			Max:            s.Max,
			Category:       s.Category,
			OurPriceCents:  utils.DollarsToCents(s.PricePer1K),
			RemoteID:       s.ID,
		})
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Category != rows[j].Category {
			return rows[i].Category < rows[j].Category
		}
		return rows[i].Name < rows[j].Name
	})
	return rows
}

// WriteJSON writes rows as an indented JSON array
func WriteJSON(w io.Writer, rows []PriceRow) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(rows)
}

// WriteXLSX writes rows to a single-sheet workbook
func WriteXLSX(w io.Writer, rows []PriceRow) error {
	xl := excelize.NewFile()
	defer func() { _ = xl.Close() }()

	sheet := "pricelist"
	if err := xl.SetSheetName(xl.GetSheetName(0), sheet); err != nil {
		return err
	}
	if err := xl.SetSheetRow(sheet, "A1", &sheetHeader); err != nil {
		return err
	}

	for i, r := range rows {
		record := []any{
			r.Provider,
			r.Code,
			r.Name,
			r.RatePer1KCents,
			r.Min,
			r.Max,
			r.Category,
			r.OurPriceCents,
			r.RemoteID,
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := xl.SetSheetRow(sheet, cell, &record); err != nil {
			return fmt.Errorf("row %d: %w", i+2, err)
		}
	}

	_, err := xl.WriteTo(w)
	return err
}
