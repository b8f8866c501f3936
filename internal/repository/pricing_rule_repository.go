package repository

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/parksmart/parksmart-api/internal/model"
)

// PricingRuleRepo provides data access to the pricing_rules table.
// Peak-hour windows and weekday sets are stored as JSON columns; the
// repository marshals them transparently.  The table is read-mostly:
// administrators edit rules occasionally, the pricing engine reads them
// on every price calculation.
type PricingRuleRepo struct{ DB *sql.DB }

// NewPricingRuleRepo returns a new PricingRuleRepo bound to the given database.
func NewPricingRuleRepo(db *sql.DB) *PricingRuleRepo { return &PricingRuleRepo{DB: db} }

const ruleColumns = `id, name, description, spot_id, peak_hours, days_of_week, multiplier, priority, is_active, created_at, updated_at`

func scanRule(scan func(dest ...interface{}) error) (model.PricingRule, error) {
	var rule model.PricingRule
	var spotID sql.NullInt64
	var peakHours, daysOfWeek []byte
	err := scan(&rule.ID, &rule.Name, &rule.Description, &spotID,
		&peakHours, &daysOfWeek, &rule.Multiplier, &rule.Priority,
		&rule.IsActive, &rule.CreatedAt, &rule.UpdatedAt)
	if err != nil {
		return rule, err
	}
	if spotID.Valid {
		id := uint64(spotID.Int64)
		rule.SpotID = &id
	}
	if len(peakHours) > 0 {
		if err := json.Unmarshal(peakHours, &rule.PeakHours); err != nil {
			return rule, err
		}
	}
	if len(daysOfWeek) > 0 {
		if err := json.Unmarshal(daysOfWeek, &rule.DaysOfWeek); err != nil {
			return rule, err
		}
	}
	return rule, nil
}

func ruleJSONArgs(rule *model.PricingRule) (peakHours, daysOfWeek []byte, spotID interface{}, err error) {
	if rule.PeakHours == nil {
		rule.PeakHours = []model.HourWindow{}
	}
	if rule.DaysOfWeek == nil {
		rule.DaysOfWeek = []string{}
	}
	peakHours, err = json.Marshal(rule.PeakHours)
	if err != nil {
		return nil, nil, nil, err
	}
	daysOfWeek, err = json.Marshal(rule.DaysOfWeek)
	if err != nil {
		return nil, nil, nil, err
	}
	if rule.SpotID != nil {
		spotID = *rule.SpotID
	}
	return peakHours, daysOfWeek, spotID, nil
}

// Create inserts a pricing rule and populates its generated ID.
func (r *PricingRuleRepo) Create(ctx context.Context, rule *model.PricingRule) error {
	peakHours, daysOfWeek, spotID, err := ruleJSONArgs(rule)
	if err != nil {
		return err
	}
	res, err := r.DB.ExecContext(ctx,
		`INSERT INTO pricing_rules (name, description, spot_id, peak_hours, days_of_week, multiplier, priority, is_active)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rule.Name, rule.Description, spotID, peakHours, daysOfWeek,
		rule.Multiplier, rule.Priority, rule.IsActive)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	rule.ID = uint64(id)
	return nil
}

// Update overwrites all editable fields of a pricing rule.
func (r *PricingRuleRepo) Update(ctx context.Context, rule *model.PricingRule) error {
	peakHours, daysOfWeek, spotID, err := ruleJSONArgs(rule)
	if err != nil {
		return err
	}
	res, err := r.DB.ExecContext(ctx,
		`UPDATE pricing_rules SET name = ?, description = ?, spot_id = ?, peak_hours = ?, days_of_week = ?,
         multiplier = ?, priority = ?, is_active = ? WHERE id = ?`,
		rule.Name, rule.Description, spotID, peakHours, daysOfWeek,
		rule.Multiplier, rule.Priority, rule.IsActive, rule.ID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		// RowsAffected is also 0 for a no-change update, so confirm absence.
		var exists bool
		if err := r.DB.QueryRowContext(ctx,
			`SELECT EXISTS(SELECT 1 FROM pricing_rules WHERE id = ?)`, rule.ID).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return sql.ErrNoRows
		}
	}
	return nil
}

// Delete removes a pricing rule by id.
func (r *PricingRuleRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM pricing_rules WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// GetByID fetches a pricing rule by id.
func (r *PricingRuleRepo) GetByID(ctx context.Context, id uint64) (model.PricingRule, error) {
	row := r.DB.QueryRowContext(ctx,
		`SELECT `+ruleColumns+` FROM pricing_rules WHERE id = ? LIMIT 1`, id)
	return scanRule(row.Scan)
}

// List returns all pricing rules ordered by priority descending then
// name, for administrator listings.
func (r *PricingRuleRepo) List(ctx context.Context) ([]model.PricingRule, error) {
	return r.queryRules(ctx,
		`SELECT `+ruleColumns+` FROM pricing_rules ORDER BY priority DESC, name`)
}

// ActiveForSpot returns every active rule scoped to the given spot or
// global (spot_id NULL), ordered by priority descending.  The ordering
// only affects the applied-rules report of the pricing engine; the
// price itself is order-independent because matching rules stack
// multiplicatively.
func (r *PricingRuleRepo) ActiveForSpot(ctx context.Context, spotID uint64) ([]model.PricingRule, error) {
	return r.queryRules(ctx,
		`SELECT `+ruleColumns+` FROM pricing_rules
         WHERE is_active = TRUE AND (spot_id = ? OR spot_id IS NULL)
         ORDER BY priority DESC, id`, spotID)
}

func (r *PricingRuleRepo) queryRules(ctx context.Context, query string, args ...interface{}) ([]model.PricingRule, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.PricingRule, 0)
	for rows.Next() {
		rule, err := scanRule(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, rule)
	}
	return out, rows.Err()
}
