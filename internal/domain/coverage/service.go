package coverage

import (
	"context"
	"fmt"
	"math"

	"github.com/google/uuid"

	"github.com/hms/hms/internal/domain/insurance"
	"github.com/hms/hms/internal/domain/nhis"
)

// Coverage outcome labels. RuleType records which rule decided the
// price; CoverageType records how the split was computed.
const (
	RuleSpecific      = "specific"
	RuleGeneral       = "general"
	RuleNHISDefault   = "nhis_default"
	RuleFlexibleCopay = "flexible_copay"

	CoverageNotMapped     = "nhis_not_mapped"
	CoverageUnmappedCopay = "nhis_unmapped_with_copay"
	CoverageNotCovered    = "not_covered"
)

type RuleSource interface {
	FindSpecificRule(ctx context.Context, planID uuid.UUID, category, itemCode string) (*insurance.CoverageRule, error)
	FindGeneralRule(ctx context.Context, planID uuid.UUID, category string) (*insurance.CoverageRule, error)
}

type TariffSource interface {
	TariffForItem(ctx context.Context, itemType string, itemID uuid.UUID) (*nhis.Tariff, error)
}

type PlanSource interface {
	IsNHISPlan(ctx context.Context, planID uuid.UUID) (bool, error)
}

// Request describes one charge line to price against a plan. UnitPrice
// is the facility's cash price; tariff plans may substitute their own.
type Request struct {
	PlanID    uuid.UUID
	ItemType  string
	ItemID    uuid.UUID
	ItemCode  string
	Category  string
	UnitPrice float64
	Quantity  int
}

// Result is the resolved split of one charge line between insurer and
// patient. All money fields are rounded to 2 decimal places.
type Result struct {
	IsCovered        bool     `json:"is_covered"`
	CoverageType     string   `json:"coverage_type"`
	RuleType         string   `json:"rule_type"`
	InsurancePays    float64  `json:"insurance_pays"`
	PatientPays      float64  `json:"patient_pays"`
	Subtotal         float64  `json:"subtotal"`
	TariffAmount     *float64 `json:"tariff_amount,omitempty"`
	IsUnmapped       bool     `json:"is_unmapped"`
	HasFlexibleCopay bool     `json:"has_flexible_copay"`
}

type Service struct {
	rules   RuleSource
	tariffs TariffSource
	plans   PlanSource
}

func NewService(rules RuleSource, tariffs TariffSource, plans PlanSource) *Service {
	return &Service{rules: rules, tariffs: tariffs, plans: plans}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// ForPlan dispatches on the plan kind: tariff-scheme plans resolve
// through the mapping and tariff list, other plans through their rules
// against the cash price.
func (s *Service) ForPlan(ctx context.Context, req Request) (*Result, error) {
	isNHIS, err := s.plans.IsNHISPlan(ctx, req.PlanID)
	if err != nil {
		return nil, fmt.Errorf("resolve plan %s: %w", req.PlanID, err)
	}
	if isNHIS {
		return s.CalculateNHIS(ctx, req)
	}
	return s.calculate(ctx, req)
}

// CalculateNHIS resolves a charge line under the national scheme.
//
// A mapped item is priced on its live tariff: a matching rule splits the
// tariff price, otherwise the scheme pays the tariff in full. An
// unmapped item falls back to a flexible-copay rule, then to any covered
// rule carrying a copay, and finally to the patient paying cash.
func (s *Service) CalculateNHIS(ctx context.Context, req Request) (*Result, error) {
	if req.Quantity <= 0 {
		return nil, fmt.Errorf("quantity must be positive")
	}
	qty := float64(req.Quantity)

	tariff, err := s.tariffs.TariffForItem(ctx, req.ItemType, req.ItemID)
	if err != nil {
		return nil, fmt.Errorf("resolve tariff: %w", err)
	}

	rule, ruleType, err := s.findRule(ctx, req.PlanID, req.Category, req.ItemCode)
	if err != nil {
		return nil, err
	}

	if tariff != nil {
		if rule != nil {
			res := s.applyRule(rule, tariff.Price, qty)
			res.RuleType = ruleType
			res.TariffAmount = &tariff.Price
			// Subtotal always reflects the charged cash amount, even
			// when the split is computed on the tariff.
			res.Subtotal = round2(req.UnitPrice * qty)
			return res, nil
		}
		// Mapped with no rule on file: the scheme reimburses the full
		// tariff price.
		return &Result{
			IsCovered:     true,
			CoverageType:  insurance.CoverageFull,
			RuleType:      RuleNHISDefault,
			InsurancePays: round2(tariff.Price * qty),
			PatientPays:   0,
			Subtotal:      round2(req.UnitPrice * qty),
			TariffAmount:  &tariff.Price,
		}, nil
	}

	if rule != nil && rule.IsUnmapped && rule.PatientCopayAmount != nil {
		return &Result{
			IsCovered:        true,
			CoverageType:     CoverageUnmappedCopay,
			RuleType:         RuleFlexibleCopay,
			InsurancePays:    0,
			PatientPays:      round2(*rule.PatientCopayAmount * qty),
			Subtotal:         round2(req.UnitPrice * qty),
			IsUnmapped:       true,
			HasFlexibleCopay: true,
		}, nil
	}

	if rule != nil && !rule.IsUnmapped && rule.IsCovered &&
		rule.PatientCopayAmount != nil && *rule.PatientCopayAmount > 0 {
		return &Result{
			IsCovered:        true,
			CoverageType:     CoverageUnmappedCopay,
			RuleType:         ruleType,
			InsurancePays:    0,
			PatientPays:      round2(*rule.PatientCopayAmount * qty),
			Subtotal:         round2(req.UnitPrice * qty),
			IsUnmapped:       true,
			HasFlexibleCopay: true,
		}, nil
	}

	// No tariff and no usable rule: the item is outside the scheme and
	// the patient pays the cash price.
	return &Result{
		IsCovered:    false,
		CoverageType: CoverageNotMapped,
		PatientPays:  round2(req.UnitPrice * qty),
		Subtotal:     round2(req.UnitPrice * qty),
		IsUnmapped:   true,
	}, nil
}

// calculate resolves a charge line for a non-scheme plan. Rules split
// the cash price, or the rule's own tariff amount when one is set.
func (s *Service) calculate(ctx context.Context, req Request) (*Result, error) {
	if req.Quantity <= 0 {
		return nil, fmt.Errorf("quantity must be positive")
	}
	qty := float64(req.Quantity)

	rule, ruleType, err := s.findRule(ctx, req.PlanID, req.Category, req.ItemCode)
	if err != nil {
		return nil, err
	}

	if rule == nil || !rule.IsCovered || rule.CoverageType == insurance.CoverageExcluded {
		return &Result{
			IsCovered:    false,
			CoverageType: CoverageNotCovered,
			PatientPays:  round2(req.UnitPrice * qty),
			Subtotal:     round2(req.UnitPrice * qty),
		}, nil
	}

	unit := req.UnitPrice
	if rule.TariffAmount != nil && *rule.TariffAmount > 0 {
		unit = *rule.TariffAmount
	}
	res := s.applyRule(rule, unit, qty)
	res.RuleType = ruleType
	res.TariffAmount = rule.TariffAmount
	return res, nil
}

func (s *Service) findRule(ctx context.Context, planID uuid.UUID, category, itemCode string) (*insurance.CoverageRule, string, error) {
	if itemCode != "" {
		rule, err := s.rules.FindSpecificRule(ctx, planID, category, itemCode)
		if err != nil {
			return nil, "", fmt.Errorf("find specific rule: %w", err)
		}
		if rule != nil {
			return rule, RuleSpecific, nil
		}
	}
	rule, err := s.rules.FindGeneralRule(ctx, planID, category)
	if err != nil {
		return nil, "", fmt.Errorf("find general rule: %w", err)
	}
	if rule != nil {
		return rule, RuleGeneral, nil
	}
	return nil, "", nil
}

// applyRule splits one unit price per the rule, then scales by quantity.
// The insurer share never exceeds the unit price and the patient share
// never goes negative before the copay is added.
func (s *Service) applyRule(rule *insurance.CoverageRule, unit, qty float64) *Result {
	var insUnit float64
	switch rule.CoverageType {
	case insurance.CoverageFull:
		insUnit = unit
	case insurance.CoveragePercentage:
		if rule.CoverageValue != nil {
			insUnit = unit * *rule.CoverageValue / 100
		}
	case insurance.CoverageFixed:
		if rule.CoverageValue != nil {
			insUnit = math.Min(*rule.CoverageValue, unit)
		}
	case insurance.CoverageExcluded:
		insUnit = 0
	}

	patientUnit := math.Max(0, unit-insUnit)
	if rule.PatientCopayAmount != nil {
		patientUnit += *rule.PatientCopayAmount
	}

	covered := rule.IsCovered && rule.CoverageType != insurance.CoverageExcluded
	return &Result{
		IsCovered:     covered,
		CoverageType:  rule.CoverageType,
		InsurancePays: round2(insUnit * qty),
		PatientPays:   round2(patientUnit * qty),
		Subtotal:      round2(unit * qty),
	}
}
