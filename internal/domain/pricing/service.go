package pricing

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/hms/hms/internal/domain/audit"
	"github.com/hms/hms/internal/domain/catalog"
	"github.com/hms/hms/internal/domain/insurance"
	"github.com/hms/hms/internal/domain/nhis"
)

type RuleStore interface {
	FindSpecific(ctx context.Context, planID uuid.UUID, category, itemCode string) (*insurance.CoverageRule, error)
	FindGeneral(ctx context.Context, planID uuid.UUID, category string) (*insurance.CoverageRule, error)
	Upsert(ctx context.Context, r *insurance.CoverageRule) error
	RulesForPlan(ctx context.Context, planID uuid.UUID) (map[string]*insurance.CoverageRule, error)
	CountFlexible(ctx context.Context, planID uuid.UUID) (int, error)
}

type PlanStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*insurance.Plan, error)
}

type MappingStore interface {
	MappedTariffs(ctx context.Context) (map[string]*nhis.MappedTariff, error)
}

// TxFunc runs fn as one atomic unit. The server binds it to db.WithTx
// so a mutation and its audit rows commit or roll back together.
type TxFunc func(ctx context.Context, fn func(ctx context.Context) error) error

// Service is the pricing dashboard: the single write path for cash
// prices, copays, and coverage attributes. Every successful mutation
// lands exactly one audit row per changed field; failed calls mutate
// nothing and log nothing.
type Service struct {
	items         *catalog.Registry
	rules         RuleStore
	plans         PlanStore
	mappings      MappingStore
	recorder      audit.Recorder
	tx            TxFunc
	maxImportRows int
}

func NewService(items *catalog.Registry, rules RuleStore, plans PlanStore, mappings MappingStore, recorder audit.Recorder, tx TxFunc, maxImportRows int) *Service {
	if tx == nil {
		tx = func(ctx context.Context, fn func(ctx context.Context) error) error { return fn(ctx) }
	}
	return &Service{
		items:         items,
		rules:         rules,
		plans:         plans,
		mappings:      mappings,
		recorder:      recorder,
		tx:            tx,
		maxImportRows: maxImportRows,
	}
}

// GetPricingData aggregates every billable item variant into one list,
// applies the query filters, augments rows with plan data, and paginates
// in memory.
func (s *Service) GetPricingData(ctx context.Context, q Query) ([]*PricedItem, int, error) {
	items, err := s.items.ListActiveAll(ctx)
	if err != nil {
		return nil, 0, err
	}

	rows := make([]*PricedItem, 0, len(items))
	for _, item := range items {
		if q.Category != "" && item.Category != q.Category {
			continue
		}
		if !matchesSearch(item, q.Search) {
			continue
		}
		rows = append(rows, &PricedItem{
			ID:          item.ID,
			Type:        item.Type,
			Code:        item.Code,
			Name:        item.Name,
			GenericName: item.GenericName,
			Category:    item.Category,
			CashPrice:   item.CashPrice,
		})
	}

	if q.PlanID != nil {
		plan, err := s.plans.GetByID(ctx, *q.PlanID)
		if err != nil {
			return nil, 0, fmt.Errorf("%w: %s", ErrPlanNotFound, *q.PlanID)
		}
		if plan.IsNHIS {
			if err := s.augmentNHIS(ctx, rows, plan.ID); err != nil {
				return nil, 0, err
			}
			if q.UnmappedOnly {
				rows = filterUnmapped(rows)
			}
		} else {
			if err := s.augmentPrivate(ctx, rows, plan.ID); err != nil {
				return nil, 0, err
			}
		}
	}

	if q.Status == StatusUnpriced {
		rows = filterRows(rows, func(r *PricedItem) bool { return r.CashPrice <= 0 })
	} else if q.Status == StatusPriced {
		rows = filterRows(rows, func(r *PricedItem) bool { return r.CashPrice > 0 })
	}

	sortRows(rows)
	total := len(rows)
	if q.Limit > 0 {
		start := q.Offset
		if start > total {
			start = total
		}
		end := start + q.Limit
		if end > total {
			end = total
		}
		rows = rows[start:end]
	}
	return rows, total, nil
}

func matchesSearch(item *catalog.Item, search string) bool {
	if search == "" {
		return true
	}
	term := strings.ToLower(search)
	if strings.Contains(strings.ToLower(item.Name), term) ||
		strings.Contains(strings.ToLower(item.Code), term) {
		return true
	}
	if item.GenericName != nil && strings.Contains(strings.ToLower(*item.GenericName), term) {
		return true
	}
	return false
}

func filterRows(rows []*PricedItem, keep func(*PricedItem) bool) []*PricedItem {
	out := rows[:0]
	for _, r := range rows {
		if keep(r) {
			out = append(out, r)
		}
	}
	return out
}

func filterUnmapped(rows []*PricedItem) []*PricedItem {
	return filterRows(rows, func(r *PricedItem) bool {
		return r.IsMapped == nil || !*r.IsMapped
	})
}

// augmentNHIS fills the mapping columns from the live tariff join. An
// unmapped item keeps nil tariff fields and is_mapped false.
func (s *Service) augmentNHIS(ctx context.Context, rows []*PricedItem, planID uuid.UUID) error {
	mapped, err := s.mappings.MappedTariffs(ctx)
	if err != nil {
		return fmt.Errorf("load mapped tariffs: %w", err)
	}
	rules, err := s.rules.RulesForPlan(ctx, planID)
	if err != nil {
		return fmt.Errorf("load plan rules: %w", err)
	}
	for _, r := range rows {
		isMapped := false
		if mt, ok := mapped[nhis.MappingKey(string(r.Type), r.ID)]; ok {
			isMapped = true
			code := mt.NhisCode
			price := mt.Price
			r.NhisCode = &code
			r.InsuranceTariff = &price
		}
		r.IsMapped = &isMapped
		if rule := ruleForRow(rules, r); rule != nil {
			r.PatientCopay = rule.PatientCopayAmount
		}
	}
	return nil
}

// augmentPrivate fills the rule columns for a private payer plan.
func (s *Service) augmentPrivate(ctx context.Context, rows []*PricedItem, planID uuid.UUID) error {
	rules, err := s.rules.RulesForPlan(ctx, planID)
	if err != nil {
		return fmt.Errorf("load plan rules: %w", err)
	}
	for _, r := range rows {
		rule := ruleForRow(rules, r)
		if rule == nil {
			continue
		}
		ct := rule.CoverageType
		r.CoverageType = &ct
		r.CoverageValue = rule.CoverageValue
		r.InsuranceTariff = rule.TariffAmount
		r.PatientCopay = rule.PatientCopayAmount
	}
	return nil
}

// ruleForRow prefers the item-specific rule over the category-wide one.
func ruleForRow(rules map[string]*insurance.CoverageRule, r *PricedItem) *insurance.CoverageRule {
	if rule, ok := rules[insurance.RuleKey(string(r.Type), r.Code)]; ok {
		return rule
	}
	if rule, ok := rules[insurance.RuleKey(string(r.Type), "")]; ok {
		return rule
	}
	return nil
}

func validatePrice(price float64) error {
	if price <= 0 {
		return fmt.Errorf("%w: must be greater than zero", ErrInvalidPrice)
	}
	if price > MaxPrice {
		return fmt.Errorf("%w: exceeds maximum of %d", ErrInvalidPrice, MaxPrice)
	}
	return nil
}

// UpdateCashPrice routes the new price to the item's variant table and
// records the change in the same transaction. Nothing is written when
// validation or the lookup fails.
func (s *Service) UpdateCashPrice(ctx context.Context, actor, itemType string, itemID uuid.UUID, newPrice float64) error {
	t, err := catalog.ParseItemType(itemType)
	if err != nil {
		return err
	}
	if err := validatePrice(newPrice); err != nil {
		return err
	}
	store, err := s.items.Resolve(t)
	if err != nil {
		return err
	}
	var item *catalog.Item
	var oldPrice float64
	err = s.tx(ctx, func(ctx context.Context) error {
		item, err = store.GetByID(ctx, itemID)
		if err != nil {
			return err
		}
		oldPrice = item.CashPrice
		if err := store.UpdatePrice(ctx, itemID, newPrice); err != nil {
			return fmt.Errorf("update %s price: %w", t, err)
		}
		if err := s.recorder.Record(ctx, &audit.ChangeLog{
			ItemType:     string(t),
			ItemID:       itemID,
			ItemCode:     item.Code,
			FieldChanged: audit.FieldCashPrice,
			OldValue:     &oldPrice,
			NewValue:     newPrice,
			ChangedBy:    actor,
		}); err != nil {
			return fmt.Errorf("record price change: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	log.Info().
		Str("item_type", string(t)).
		Str("item_code", item.Code).
		Float64("old_price", oldPrice).
		Float64("new_price", newPrice).
		Str("changed_by", actor).
		Msg("cash price updated")
	return nil
}

// UpdateInsuranceCopay sets the flat copay on the rule for the item,
// creating the rule when none exists. The audit row is written on every
// call, changed value or not.
func (s *Service) UpdateInsuranceCopay(ctx context.Context, actor string, planID uuid.UUID, itemType string, itemID uuid.UUID, itemCode string, copay float64) (*insurance.CoverageRule, error) {
	t, err := catalog.ParseItemType(itemType)
	if err != nil {
		return nil, err
	}
	if copay < 0 || copay > MaxPrice {
		return nil, fmt.Errorf("%w: copay out of range", ErrInvalidPrice)
	}
	if _, err := s.plans.GetByID(ctx, planID); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrPlanNotFound, planID)
	}

	category := string(t)
	var rule *insurance.CoverageRule
	err = s.tx(ctx, func(ctx context.Context) error {
		var oldCopay *float64
		rule, oldCopay, err = s.findOrNewRule(ctx, planID, category, itemCode)
		if err != nil {
			return err
		}
		rule.PatientCopayAmount = &copay
		if err := s.rules.Upsert(ctx, rule); err != nil {
			return fmt.Errorf("upsert rule: %w", err)
		}
		if err := s.recorder.Record(ctx, &audit.ChangeLog{
			ItemType:        category,
			ItemID:          itemID,
			ItemCode:        itemCode,
			FieldChanged:    audit.FieldCopay,
			InsurancePlanID: &planID,
			OldValue:        oldCopay,
			NewValue:        copay,
			ChangedBy:       actor,
		}); err != nil {
			return fmt.Errorf("record copay change: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rule, nil
}

// UpdateInsuranceCoverage applies only the supplied attributes to the
// item's rule and writes one audit row per applied money field.
func (s *Service) UpdateInsuranceCoverage(ctx context.Context, actor string, planID uuid.UUID, itemType string, itemID uuid.UUID, itemCode string, attrs CoverageAttrs) (*insurance.CoverageRule, error) {
	t, err := catalog.ParseItemType(itemType)
	if err != nil {
		return nil, err
	}
	if _, err := s.plans.GetByID(ctx, planID); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrPlanNotFound, planID)
	}
	if attrs.CoverageType != nil && !insurance.ValidCoverageType(*attrs.CoverageType) {
		return nil, fmt.Errorf("invalid coverage type %q", *attrs.CoverageType)
	}

	category := string(t)
	var rule *insurance.CoverageRule
	err = s.tx(ctx, func(ctx context.Context) error {
		rule, _, err = s.findOrNewRule(ctx, planID, category, itemCode)
		if err != nil {
			return err
		}

		oldTariff := rule.TariffAmount
		oldValue := rule.CoverageValue
		oldCopay := rule.PatientCopayAmount

		if attrs.CoverageType != nil {
			rule.CoverageType = *attrs.CoverageType
			rule.IsCovered = *attrs.CoverageType != insurance.CoverageExcluded
		}
		if attrs.TariffAmount != nil {
			rule.TariffAmount = attrs.TariffAmount
		}
		if attrs.CoverageValue != nil {
			rule.CoverageValue = attrs.CoverageValue
		}
		if attrs.PatientCopayAmount != nil {
			rule.PatientCopayAmount = attrs.PatientCopayAmount
		}
		if rule.CoverageType == insurance.CoveragePercentage && rule.CoverageValue != nil &&
			(*rule.CoverageValue < 0 || *rule.CoverageValue > 100) {
			return fmt.Errorf("percentage coverage value must be between 0 and 100")
		}
		if err := s.rules.Upsert(ctx, rule); err != nil {
			return fmt.Errorf("upsert rule: %w", err)
		}

		record := func(field string, old *float64, val float64) error {
			return s.recorder.Record(ctx, &audit.ChangeLog{
				ItemType:        category,
				ItemID:          itemID,
				ItemCode:        itemCode,
				FieldChanged:    field,
				InsurancePlanID: &planID,
				OldValue:        old,
				NewValue:        val,
				ChangedBy:       actor,
			})
		}
		if attrs.TariffAmount != nil {
			if err := record(audit.FieldTariff, oldTariff, *attrs.TariffAmount); err != nil {
				return err
			}
		}
		if attrs.CoverageValue != nil {
			if err := record(audit.FieldCoverage, oldValue, *attrs.CoverageValue); err != nil {
				return err
			}
		}
		if attrs.PatientCopayAmount != nil {
			if err := record(audit.FieldCopay, oldCopay, *attrs.PatientCopayAmount); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rule, nil
}

// UpdateFlexibleCopay sets or clears the flexible copay of an item with
// no tariff mapping. A nil or zero copay clears the charge.
func (s *Service) UpdateFlexibleCopay(ctx context.Context, actor string, planID uuid.UUID, itemType string, itemID uuid.UUID, itemCode string, copay *float64) (*insurance.CoverageRule, error) {
	t, err := catalog.ParseItemType(itemType)
	if err != nil {
		return nil, err
	}
	if copay != nil && (*copay < 0 || *copay > MaxPrice) {
		return nil, fmt.Errorf("%w: copay out of range", ErrInvalidPrice)
	}
	if _, err := s.plans.GetByID(ctx, planID); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrPlanNotFound, planID)
	}

	category := string(t)
	var rule *insurance.CoverageRule
	err = s.tx(ctx, func(ctx context.Context) error {
		var oldCopay *float64
		rule, oldCopay, err = s.findOrNewRule(ctx, planID, category, itemCode)
		if err != nil {
			return err
		}
		rule.IsUnmapped = true
		newValue := 0.0
		if copay == nil || *copay == 0 {
			rule.PatientCopayAmount = nil
		} else {
			rule.PatientCopayAmount = copay
			newValue = *copay
		}
		if err := s.rules.Upsert(ctx, rule); err != nil {
			return fmt.Errorf("upsert rule: %w", err)
		}
		if err := s.recorder.Record(ctx, &audit.ChangeLog{
			ItemType:        category,
			ItemID:          itemID,
			ItemCode:        itemCode,
			FieldChanged:    audit.FieldCopay,
			InsurancePlanID: &planID,
			OldValue:        oldCopay,
			NewValue:        newValue,
			ChangedBy:       actor,
		}); err != nil {
			return fmt.Errorf("record copay change: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rule, nil
}

// BulkUpdateCopay applies the copay to every selected item, continuing
// past per-item failures. The batch never aborts once started.
func (s *Service) BulkUpdateCopay(ctx context.Context, actor string, planID uuid.UUID, items []BulkItem, copay float64) (*BulkResult, error) {
	if len(items) == 0 {
		return nil, ErrEmptyBatch
	}
	if copay < 0 || copay > MaxPrice {
		return nil, fmt.Errorf("%w: copay out of range", ErrInvalidPrice)
	}
	result := &BulkResult{}
	for _, item := range items {
		if _, err := s.UpdateInsuranceCopay(ctx, actor, planID, item.Type, item.ID, item.Code, copay); err != nil {
			result.Errors = append(result.Errors, BulkError{Item: item.Code, Error: err.Error()})
			continue
		}
		result.Updated++
	}
	log.Info().
		Int("updated", result.Updated).
		Int("errors", len(result.Errors)).
		Str("plan_id", planID.String()).
		Msg("bulk copay update finished")
	return result, nil
}

// findOrNewRule loads the existing rule for the key or prepares a fresh
// one, returning the prior copay for audit. An empty item code addresses
// the category-wide rule, which is stored with a nil code so the
// coverage engine's general lookup finds it.
func (s *Service) findOrNewRule(ctx context.Context, planID uuid.UUID, category, itemCode string) (*insurance.CoverageRule, *float64, error) {
	var existing *insurance.CoverageRule
	var err error
	if itemCode == "" {
		existing, err = s.rules.FindGeneral(ctx, planID, category)
	} else {
		existing, err = s.rules.FindSpecific(ctx, planID, category, itemCode)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("find rule: %w", err)
	}
	if existing != nil {
		return existing, existing.PatientCopayAmount, nil
	}
	rule := &insurance.CoverageRule{
		InsurancePlanID:  planID,
		CoverageCategory: category,
		IsCovered:        true,
		CoverageType:     insurance.CoverageFull,
		IsActive:         true,
	}
	if itemCode != "" {
		code := itemCode
		rule.ItemCode = &code
	}
	return rule, nil, nil
}

// StatusSummary counts the active items by price and mapping status.
// Priced plus unpriced always equals the active item count, as does
// mapped plus unmapped.
func (s *Service) StatusSummary(ctx context.Context, planID *uuid.UUID) (*StatusSummary, error) {
	items, err := s.items.ListActiveAll(ctx)
	if err != nil {
		return nil, err
	}
	mapped, err := s.mappings.MappedTariffs(ctx)
	if err != nil {
		return nil, err
	}
	summary := &StatusSummary{}
	for _, item := range items {
		if item.IsPriced() {
			summary.Priced++
		} else {
			summary.Unpriced++
		}
		if _, ok := mapped[nhis.MappingKey(string(item.Type), item.ID)]; ok {
			summary.NhisMapped++
		} else {
			summary.NhisUnmapped++
		}
	}
	if planID != nil {
		n, err := s.rules.CountFlexible(ctx, *planID)
		if err != nil {
			return nil, err
		}
		summary.FlexibleCopay = n
	}
	return summary, nil
}

// PricingStatusForItem reports one item's price, mapping, and rule state
// for the dashboard detail pane.
func (s *Service) PricingStatusForItem(ctx context.Context, itemType string, itemID uuid.UUID, planID *uuid.UUID) (*PricedItem, error) {
	t, err := catalog.ParseItemType(itemType)
	if err != nil {
		return nil, err
	}
	item, err := s.items.GetByID(ctx, t, itemID)
	if err != nil {
		return nil, err
	}
	row := &PricedItem{
		ID:          item.ID,
		Type:        item.Type,
		Code:        item.Code,
		Name:        item.Name,
		GenericName: item.GenericName,
		Category:    item.Category,
		CashPrice:   item.CashPrice,
	}
	if planID == nil {
		return row, nil
	}
	plan, err := s.plans.GetByID(ctx, *planID)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrPlanNotFound, *planID)
	}
	rows := []*PricedItem{row}
	if plan.IsNHIS {
		err = s.augmentNHIS(ctx, rows, plan.ID)
	} else {
		err = s.augmentPrivate(ctx, rows, plan.ID)
	}
	if err != nil {
		return nil, err
	}
	return row, nil
}

// sortRows keeps the dashboard order stable across variants.
func sortRows(rows []*PricedItem) {
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Category != rows[j].Category {
			return rows[i].Category < rows[j].Category
		}
		return rows[i].Name < rows[j].Name
	})
}
