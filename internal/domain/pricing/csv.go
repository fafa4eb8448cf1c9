package pricing

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/hms/hms/internal/domain/catalog"
)

var baseHeaders = []string{"Code", "Name", "Category", "Cash Price"}

func money(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func moneyPtr(v *float64) string {
	if v == nil {
		return ""
	}
	return money(*v)
}

func strPtr(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

// ExportCSV writes the same row set the dashboard query would return,
// unpaginated. The column set depends on the plan kind.
func (s *Service) ExportCSV(ctx context.Context, w io.Writer, planID *uuid.UUID, category, search string) error {
	rows, _, err := s.GetPricingData(ctx, Query{
		PlanID:   planID,
		Category: category,
		Search:   search,
	})
	if err != nil {
		return err
	}

	isNHIS := false
	if planID != nil {
		plan, err := s.plans.GetByID(ctx, *planID)
		if err != nil {
			return fmt.Errorf("%w: %s", ErrPlanNotFound, *planID)
		}
		isNHIS = plan.IsNHIS
	}

	headers := append([]string{}, baseHeaders...)
	switch {
	case planID != nil && isNHIS:
		headers = append(headers, "NHIS Code", "NHIS Tariff", "Patient Copay", "Is Mapped")
	case planID != nil:
		headers = append(headers, "Insurance Tariff", "Coverage Type", "Coverage Value", "Patient Copay")
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(headers); err != nil {
		return err
	}
	for _, r := range rows {
		record := []string{r.Code, r.Name, r.Category, money(r.CashPrice)}
		switch {
		case planID != nil && isNHIS:
			mapped := "No"
			if r.IsMapped != nil && *r.IsMapped {
				mapped = "Yes"
			}
			record = append(record, strPtr(r.NhisCode), moneyPtr(r.InsuranceTariff), moneyPtr(r.PatientCopay), mapped)
		case planID != nil:
			record = append(record, moneyPtr(r.InsuranceTariff), strPtr(r.CoverageType), moneyPtr(r.CoverageValue), moneyPtr(r.PatientCopay))
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ImportCSV folds the rows into an accumulated result, never aborting on
// a bad row. Codes are matched across every variant table; a code with
// no match anywhere becomes a "not found" error entry.
func (s *Service) ImportCSV(ctx context.Context, actor string, r io.Reader, planID *uuid.UUID) (*ImportResult, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	result := &ImportResult{}

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	codeIdx, priceIdx, copayIdx := -1, -1, -1
	for i, h := range header {
		switch strings.TrimSpace(h) {
		case "Code":
			codeIdx = i
		case "Cash Price":
			priceIdx = i
		case "Patient Copay":
			copayIdx = i
		}
	}
	if codeIdx < 0 {
		result.Errors = append(result.Errors, RowError{Row: 1, Error: "missing required Code column"})
		return result, nil
	}

	rowNum := 1
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		rowNum++
		if err != nil {
			result.Skipped++
			continue
		}
		if s.maxImportRows > 0 && rowNum-1 > s.maxImportRows {
			result.Truncated = true
			log.Warn().Int("max_rows", s.maxImportRows).Msg("pricing import truncated at row cap")
			break
		}

		code := ""
		if codeIdx < len(record) {
			code = strings.TrimSpace(record[codeIdx])
		}
		if code == "" {
			result.Skipped++
			continue
		}

		item, err := s.items.FindByCodeAny(ctx, code)
		if err != nil {
			if errors.Is(err, catalog.ErrNotFound) {
				result.Errors = append(result.Errors, RowError{
					Row:   rowNum,
					Error: fmt.Sprintf("item with code %q not found", code),
				})
				continue
			}
			return nil, fmt.Errorf("lookup code %q: %w", code, err)
		}
		result.Imported++

		if price, ok := parseCell(record, priceIdx); ok && price > 0 && price <= MaxPrice {
			if err := s.UpdateCashPrice(ctx, actor, string(item.Type), item.ID, price); err != nil {
				result.Failures = append(result.Failures, RowError{Row: rowNum, Error: err.Error()})
				result.Skipped++
			} else {
				result.Updated++
			}
		} else {
			// Found but nothing usable to apply.
			result.Skipped++
		}

		if planID != nil {
			if copay, ok := parseCell(record, copayIdx); ok && copay >= 0 {
				if _, err := s.UpdateInsuranceCopay(ctx, actor, *planID, string(item.Type), item.ID, item.Code, copay); err != nil {
					result.Failures = append(result.Failures, RowError{Row: rowNum, Error: err.Error()})
				}
			}
		}
	}

	log.Info().
		Int("imported", result.Imported).
		Int("updated", result.Updated).
		Int("skipped", result.Skipped).
		Int("errors", len(result.Errors)).
		Int("failures", len(result.Failures)).
		Msg("pricing import finished")
	return result, nil
}

func parseCell(record []string, idx int) (float64, bool) {
	if idx < 0 || idx >= len(record) {
		return 0, false
	}
	raw := strings.TrimSpace(record[idx])
	if raw == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// ImportTemplate writes an empty CSV carrying the headers ImportCSV
// expects, for download from the dashboard.
func (s *Service) ImportTemplate(w io.Writer, withCopay bool) error {
	headers := []string{"Code", "Cash Price"}
	if withCopay {
		headers = append(headers, "Patient Copay")
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(headers); err != nil {
		return err
	}
	cw.Flush()
	return cw.Error()
}
