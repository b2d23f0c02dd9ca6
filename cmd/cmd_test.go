package cmd

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/grovetools/proctrack/errors"
	"github.com/grovetools/proctrack/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("PROCTRACK_HOME", home)
	t.Setenv("PROCTRACK_LOG_LEVEL", "error")
	return home
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := run(t, args...)
	require.NoError(t, err, "proctrack %v", args)
	return out
}

func TestGroupsAndRules(t *testing.T) {
	setupHome(t)

	out := mustRun(t, "groups", "add", "work")
	assert.Contains(t, out, "Created group 'work'")

	_, err := run(t, "groups", "add", "work")
	assert.Equal(t, errors.ErrCodeConflict, errors.GetCode(err))

	mustRun(t, "rules", "add", "work", "exec", "code")

	_, err = run(t, "rules", "add", "work", "regex", "(")
	assert.Equal(t, errors.ErrCodeInvalidPattern, errors.GetCode(err))

	_, err = run(t, "rules", "add", "work", "glob", "*")
	assert.Equal(t, errors.ErrCodeInvalidInput, errors.GetCode(err))

	_, err = run(t, "rules", "add", "missing", "exec", "code")
	assert.Equal(t, errors.ErrCodeNotFound, errors.GetCode(err))

	var groups []GroupListing
	require.NoError(t, json.Unmarshal([]byte(mustRun(t, "groups", "ls", "--json")), &groups))
	require.Len(t, groups, 1)
	assert.Equal(t, "work", groups[0].Name)
	assert.Equal(t, 1, groups[0].Rules)

	var rules []models.Rule
	require.NoError(t, json.Unmarshal([]byte(mustRun(t, "rules", "ls", "--group", "work", "--json")), &rules))
	require.Len(t, rules, 1)
	assert.Equal(t, models.RuleTypeExec, rules[0].Type)
	assert.Equal(t, "code", rules[0].Pattern)

	mustRun(t, "groups", "rename", "work", "job")
	assert.Contains(t, mustRun(t, "rules", "ls"), "job")

	mustRun(t, "groups", "rm", "job")
	assert.Equal(t, "[]\n", mustRun(t, "groups", "ls", "--json"))
}

func TestRulesRm(t *testing.T) {
	setupHome(t)
	mustRun(t, "groups", "add", "work")

	var rule models.Rule
	require.NoError(t, json.Unmarshal([]byte(mustRun(t, "rules", "add", "work", "exec", "code", "--json")), &rule))

	_, err := run(t, "rules", "rm", "abc")
	assert.Equal(t, errors.ErrCodeInvalidInput, errors.GetCode(err))

	mustRun(t, "rules", "rm", jsonNumber(rule.ID))
	assert.Equal(t, "[]\n", mustRun(t, "rules", "ls", "--json"))

	_, err = run(t, "rules", "rm", jsonNumber(rule.ID))
	assert.Equal(t, errors.ErrCodeNotFound, errors.GetCode(err))
}

func jsonNumber(id int64) string {
	data, _ := json.Marshal(id)
	return string(data)
}

func TestStatsCommands(t *testing.T) {
	setupHome(t)
	mustRun(t, "groups", "add", "work")

	var result []models.GroupStatistics
	require.NoError(t, json.Unmarshal([]byte(mustRun(t, "stats", "--json")), &result))
	require.Len(t, result, 1)
	assert.Equal(t, "work", result[0].GroupName)
	assert.Zero(t, result[0].GroupRuntime)
	assert.False(t, result[0].Active)

	assert.Contains(t, mustRun(t, "stats", "offset", "work", "now"), "now counts sessions from")
	assert.Contains(t, mustRun(t, "stats", "offset", "work", "0"), "Cleared the view offset")

	_, err := run(t, "stats", "offset", "work", "--", "-5")
	assert.Equal(t, errors.ErrCodeInvalidInput, errors.GetCode(err))

	assert.Contains(t, mustRun(t, "stats", "clear", "work"), "Deleted 0 sessions of 'work'")

	_, err = run(t, "stats", "--group", "nope")
	assert.Equal(t, errors.ErrCodeNotFound, errors.GetCode(err))

	_, err = run(t, "stats", "--from", "yesterday-ish")
	assert.Equal(t, errors.ErrCodeInvalidInput, errors.GetCode(err))

	assert.Contains(t, mustRun(t, "stats"), "work")
}

func TestSettingsAndRecord(t *testing.T) {
	setupHome(t)

	mustRun(t, "settings", "set", "tracking.recurring_delay", "2.5")
	assert.Equal(t, "2.5\n", mustRun(t, "settings", "get", "tracking.recurring_delay"))

	_, err := run(t, "settings", "set", "tracking.recording", "maybe")
	assert.Error(t, err)

	out := mustRun(t, "record", "on")
	assert.Contains(t, out, "Recording on")
	assert.Contains(t, out, "daemon is not running")
	assert.Equal(t, "true\n", mustRun(t, "settings", "get", "tracking.recording"))

	mustRun(t, "record", "off")
	assert.Equal(t, "false\n", mustRun(t, "settings", "get", "tracking.recording"))

	_, err = run(t, "record", "maybe")
	assert.Equal(t, errors.ErrCodeInvalidInput, errors.GetCode(err))

	mustRun(t, "settings", "unset", "tracking.recurring_delay")
	_, err = run(t, "settings", "get", "tracking.recurring_delay")
	assert.Equal(t, errors.ErrCodeNotFound, errors.GetCode(err))

	var all map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(mustRun(t, "settings", "get", "--json")), &all))
	assert.Equal(t, map[string]interface{}{"tracking.recording": false}, all)
}

func TestGroupRemovalClearsStoredFilter(t *testing.T) {
	setupHome(t)

	var group GroupListing
	require.NoError(t, json.Unmarshal([]byte(mustRun(t, "groups", "add", "work", "--json")), &group))
	key := "filters." + jsonNumber(group.ID) + ".query"
	mustRun(t, "settings", "set", key, "jira")

	mustRun(t, "groups", "rm", "work")

	_, err := run(t, "settings", "get", key)
	assert.Equal(t, errors.ErrCodeNotFound, errors.GetCode(err))
}

func TestConfigAndPaths(t *testing.T) {
	home := setupHome(t)

	assert.Contains(t, mustRun(t, "config", "schema"), "proctrack configuration")
	assert.Contains(t, mustRun(t, "config", "show"), "initial_delay: 5s")

	var p PathsOutput
	require.NoError(t, json.Unmarshal([]byte(mustRun(t, "paths", "--json")), &p))
	assert.Equal(t, filepath.Join(home, "state", "proctrack", "proctrack.db"), p.Database)
	assert.Equal(t, filepath.Join(home, "run", "proctrackd.sock"), p.Socket)
	assert.Equal(t, filepath.Join(home, "state", "proctrack", "settings.yml"), p.Settings)
	assert.Empty(t, p.ConfigFile)
}

func TestDaemonStatusStopped(t *testing.T) {
	setupHome(t)

	var state DaemonState
	require.NoError(t, json.Unmarshal([]byte(mustRun(t, "daemon", "status", "--json")), &state))
	assert.False(t, state.Running)
	assert.Zero(t, state.PID)

	assert.Equal(t, "Daemon is not running\n", mustRun(t, "daemon", "stop"))
}

func TestStatusWithoutDaemon(t *testing.T) {
	setupHome(t)
	mustRun(t, "record", "on")

	var status StatusOutput
	require.NoError(t, json.Unmarshal([]byte(mustRun(t, "status", "--json")), &status))
	assert.False(t, status.Daemon)
	require.NotNil(t, status.Status)
	assert.Equal(t, "stopped", status.Tracking)
	assert.True(t, status.Recording)
	assert.Equal(t, 1.0, status.RecurringDelay)
}

func TestParseTime(t *testing.T) {
	now := time.Date(2024, 5, 2, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name    string
		value   string
		want    int64
		wantErr bool
	}{
		{"empty", "", 0, false},
		{"now", "now", now.UnixMilli(), false},
		{"epoch ms", "1714600000000", 1714600000000, false},
		{"rfc3339", "2024-05-01T10:00:00Z", time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC).UnixMilli(), false},
		{"date", "2024-05-01", time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC).UnixMilli(), false},
		{"negative", "-1", 0, true},
		{"garbage", "last week", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseTime("from", tt.value, now)
			if tt.wantErr {
				assert.Equal(t, errors.ErrCodeInvalidInput, errors.GetCode(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
