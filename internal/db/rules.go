package db

import (
	"context"

	"github.com/grovetools/proctrack/errors"
	"github.com/grovetools/proctrack/internal/rules"
	"github.com/grovetools/proctrack/pkg/models"
)

// AddRule attaches a rule to a group. Regex patterns are compiled up front.
func (d *DB) AddRule(ctx context.Context, groupID int64, ruleType models.RuleType, pattern string) (*models.Rule, error) {
	if _, err := models.ParseRuleType(string(ruleType)); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInvalidInput, "invalid rule type")
	}
	if pattern == "" {
		return nil, errors.New(errors.ErrCodeInvalidInput, "rule pattern must not be empty")
	}
	if err := rules.Validate(ruleType, pattern); err != nil {
		return nil, err
	}
	if _, err := d.GetGroup(ctx, groupID); err != nil {
		return nil, err
	}

	res, err := d.sql.ExecContext(ctx,
		`INSERT INTO rules (group_id, type, pattern) VALUES (?, ?, ?)`, groupID, string(ruleType), pattern)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, errors.Conflict("rule", string(ruleType)+":"+pattern)
		}
		return nil, errors.PersistenceFailed("add rule", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, errors.PersistenceFailed("add rule", err)
	}
	return &models.Rule{ID: id, GroupID: groupID, Type: ruleType, Pattern: pattern}, nil
}

// DeleteRule removes a rule. Its recorded sessions stay attached to the group.
func (d *DB) DeleteRule(ctx context.Context, id int64) error {
	res, err := d.sql.ExecContext(ctx, `DELETE FROM rules WHERE id = ?`, id)
	if err != nil {
		return errors.PersistenceFailed("delete rule", err)
	}
	return expectRow(res, "rule", id)
}

// ListRules returns the rules of one group, or of all groups when groupID is 0.
func (d *DB) ListRules(ctx context.Context, groupID int64) ([]models.Rule, error) {
	query := `SELECT id, group_id, type, pattern FROM rules`
	var args []interface{}
	if groupID != 0 {
		query += ` WHERE group_id = ?`
		args = append(args, groupID)
	}
	query += ` ORDER BY id`

	rows, err := d.sql.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.PersistenceFailed("list rules", err)
	}
	defer rows.Close()

	var out []models.Rule
	for rows.Next() {
		var r models.Rule
		var ruleType string
		if err := rows.Scan(&r.ID, &r.GroupID, &ruleType, &r.Pattern); err != nil {
			return nil, errors.PersistenceFailed("scan rule", err)
		}
		r.Type = models.RuleType(ruleType)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.PersistenceFailed("list rules", err)
	}
	return out, nil
}
