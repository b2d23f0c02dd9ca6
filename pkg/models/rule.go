package models

import "fmt"

// RuleType selects how a rule is evaluated against a process.
type RuleType string

const (
	// RuleTypeExec matches the executable name exactly.
	RuleTypeExec RuleType = "exec"
	// RuleTypeRegex matches a regular expression against the window title.
	RuleTypeRegex RuleType = "regex"
)

// ParseRuleType validates a rule type string.
func ParseRuleType(s string) (RuleType, error) {
	switch RuleType(s) {
	case RuleTypeExec, RuleTypeRegex:
		return RuleType(s), nil
	default:
		return "", fmt.Errorf("unknown rule type %q (expected exec or regex)", s)
	}
}

// Group is a named bucket of rules that share statistics.
type Group struct {
	ID         int64  `json:"id" db:"id"`
	Name       string `json:"name" db:"name"`
	ViewOffset int64  `json:"view_offset,omitempty" db:"view_offset"` // epoch ms, 0 = unset
	CreatedAt  int64  `json:"created_at" db:"created_at"`
}

// Rule ties processes to a group.
type Rule struct {
	ID      int64    `json:"id" db:"id"`
	GroupID int64    `json:"group_id" db:"group_id"`
	Type    RuleType `json:"type" db:"type"`
	Pattern string   `json:"pattern" db:"pattern"`
}
