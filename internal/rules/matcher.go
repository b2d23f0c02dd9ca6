// Package rules decides whether a process record satisfies a tracking rule.
package rules

import (
	"regexp"
	"sync"

	"github.com/grovetools/proctrack/errors"
	"github.com/grovetools/proctrack/pkg/models"
	"github.com/sirupsen/logrus"
)

// Matcher evaluates rules against process records. Regex patterns are
// compiled once and cached; invalid patterns are cached as failures and
// reported only the first time they are seen.
type Matcher struct {
	mu       sync.Mutex
	compiled map[string]*regexp.Regexp
	invalid  map[string]error
	logger   *logrus.Entry
}

// NewMatcher creates a matcher. A nil logger discards pattern warnings.
func NewMatcher(logger *logrus.Entry) *Matcher {
	return &Matcher{
		compiled: make(map[string]*regexp.Regexp),
		invalid:  make(map[string]error),
		logger:   logger,
	}
}

// Matches reports whether p satisfies rule. Exec rules compare the executable
// name exactly and case-sensitively; regex rules search the window title.
// A regex that does not compile yields false and an INVALID_PATTERN error.
func (m *Matcher) Matches(rule models.Rule, p models.ProcessRecord) (bool, error) {
	switch rule.Type {
	case models.RuleTypeExec:
		return rule.Pattern == p.Executable, nil
	case models.RuleTypeRegex:
		re, err := m.compile(rule)
		if err != nil {
			return false, err
		}
		return re.MatchString(p.WindowTitle), nil
	default:
		return false, errors.New(errors.ErrCodeInvalidInput, "unknown rule type").
			WithDetail("ruleId", rule.ID).
			WithDetail("type", string(rule.Type))
	}
}

// MatchTitle evaluates a regex rule against an arbitrary title. Exec rules
// ignore the title and always report true, since a title change cannot alter
// an executable match.
func (m *Matcher) MatchTitle(rule models.Rule, title string) (bool, error) {
	if rule.Type != models.RuleTypeRegex {
		return true, nil
	}
	re, err := m.compile(rule)
	if err != nil {
		return false, err
	}
	return re.MatchString(title), nil
}

// Validate checks a pattern without caching it.
func Validate(ruleType models.RuleType, pattern string) error {
	if ruleType != models.RuleTypeRegex {
		return nil
	}
	if _, err := regexp.Compile(pattern); err != nil {
		return errors.InvalidPattern(0, pattern, err)
	}
	return nil
}

func (m *Matcher) compile(rule models.Rule) (*regexp.Regexp, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if re, ok := m.compiled[rule.Pattern]; ok {
		return re, nil
	}
	if err, ok := m.invalid[rule.Pattern]; ok {
		return nil, err
	}

	re, err := regexp.Compile(rule.Pattern)
	if err != nil {
		ptErr := errors.InvalidPattern(rule.ID, rule.Pattern, err)
		m.invalid[rule.Pattern] = ptErr
		if m.logger != nil {
			m.logger.WithField("rule_id", rule.ID).WithError(err).Warn("Skipping rule with invalid pattern")
		}
		return nil, ptErr
	}
	m.compiled[rule.Pattern] = re
	return re, nil
}
