package db

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/grovetools/proctrack/errors"
	"github.com/grovetools/proctrack/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	d, err := Open(filepath.Join(t.TempDir(), "proctrack.db"), 0)
	require.NoError(t, err)
	t.Cleanup(func() { d.Close() })
	return d
}

func mustGroup(t *testing.T, d *DB, name string) *models.Group {
	t.Helper()
	g, err := d.CreateGroup(context.Background(), name)
	require.NoError(t, err)
	return g
}

func mustRule(t *testing.T, d *DB, groupID int64, typ models.RuleType, pattern string) *models.Rule {
	t.Helper()
	r, err := d.AddRule(context.Background(), groupID, typ, pattern)
	require.NoError(t, err)
	return r
}

func TestOpenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "proctrack.db")
	d, err := Open(path, 0)
	require.NoError(t, err)
	_, err = d.CreateGroup(context.Background(), "games")
	require.NoError(t, err)
	require.NoError(t, d.Close())

	d, err = Open(path, 0)
	require.NoError(t, err)
	defer d.Close()
	groups, err := d.ListGroups(context.Background())
	require.NoError(t, err)
	assert.Len(t, groups, 1)
}

func TestGroups(t *testing.T) {
	ctx := context.Background()
	d := openTestDB(t)

	g := mustGroup(t, d, "Writing")
	assert.NotZero(t, g.ID)
	assert.NotZero(t, g.CreatedAt)

	_, err := d.CreateGroup(ctx, "Writing")
	assert.True(t, errors.Is(err, errors.ErrCodeConflict))

	_, err = d.CreateGroup(ctx, "  ")
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidInput))

	require.NoError(t, d.RenameGroup(ctx, g.ID, "Docs"))
	resolved, err := d.ResolveGroup(ctx, "Docs")
	require.NoError(t, err)
	assert.Equal(t, g.ID, resolved.ID)

	byID, err := d.ResolveGroup(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, "Docs", byID.Name)

	_, err = d.ResolveGroup(ctx, "missing")
	assert.True(t, errors.Is(err, errors.ErrCodeNotFound))

	require.NoError(t, d.SetGroupViewOffset(ctx, g.ID, 1234))
	got, err := d.GetGroup(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1234), got.ViewOffset)
	assert.Error(t, d.SetGroupViewOffset(ctx, g.ID, -1))

	assert.True(t, errors.Is(d.RenameGroup(ctx, 99, "x"), errors.ErrCodeNotFound))
	assert.True(t, errors.Is(d.DeleteGroup(ctx, 99), errors.ErrCodeNotFound))
}

func TestRules(t *testing.T) {
	ctx := context.Background()
	d := openTestDB(t)
	g := mustGroup(t, d, "Office")
	other := mustGroup(t, d, "Games")

	exec := mustRule(t, d, g.ID, models.RuleTypeExec, "winword.exe")
	mustRule(t, d, g.ID, models.RuleTypeRegex, "Document.*")
	mustRule(t, d, other.ID, models.RuleTypeExec, "steam.exe")

	tests := []struct {
		name    string
		groupID int64
		typ     models.RuleType
		pattern string
		code    errors.ErrorCode
	}{
		{"duplicate", g.ID, models.RuleTypeExec, "winword.exe", errors.ErrCodeConflict},
		{"bad regex", g.ID, models.RuleTypeRegex, "Doc(", errors.ErrCodeInvalidPattern},
		{"unknown type", g.ID, "glob", "*", errors.ErrCodeInvalidInput},
		{"empty pattern", g.ID, models.RuleTypeExec, "", errors.ErrCodeInvalidInput},
		{"missing group", 42, models.RuleTypeExec, "a.exe", errors.ErrCodeNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := d.AddRule(ctx, tt.groupID, tt.typ, tt.pattern)
			require.Error(t, err)
			assert.Equal(t, tt.code, errors.GetCode(err))
		})
	}

	all, err := d.ListRules(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	office, err := d.ListRules(ctx, g.ID)
	require.NoError(t, err)
	assert.Len(t, office, 2)

	require.NoError(t, d.DeleteRule(ctx, exec.ID))
	office, err = d.ListRules(ctx, g.ID)
	require.NoError(t, err)
	assert.Len(t, office, 1)

	require.NoError(t, d.DeleteGroup(ctx, g.ID))
	all, err = d.ListRules(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 1, "deleting a group cascades to its rules")
}

func TestSessionLifecycle(t *testing.T) {
	ctx := context.Background()
	d := openTestDB(t)
	g := mustGroup(t, d, "Office")
	rule := mustRule(t, d, g.ID, models.RuleTypeExec, "foo.exe")
	proc := models.ProcessRecord{ID: 10, Executable: "foo.exe", WindowTitle: "Foo", StartTime: 1000}
	key := models.SessionKey{RuleID: rule.ID, ProcessID: 10, ProcessStartTime: 1000}

	s, err := d.OpenSession(ctx, *rule, proc, 5000)
	require.NoError(t, err)
	assert.Equal(t, int64(1), s.Seq)
	assert.True(t, s.Open())

	_, err = d.OpenSession(ctx, *rule, proc, 5001)
	assert.True(t, errors.Is(err, errors.ErrCodeConflict), "at most one open session per key")

	found, err := d.FindOpenSession(ctx, key)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, s.ID, found.ID)

	require.NoError(t, d.AppendTitle(ctx, s.ID, 6000, "Foo - edited"))
	require.NoError(t, d.CloseSession(ctx, s.ID, 5000))

	found, err = d.FindOpenSession(ctx, key)
	require.NoError(t, err)
	assert.Nil(t, found)

	assert.True(t, errors.Is(d.AppendTitle(ctx, s.ID, 7000, "late"), errors.ErrCodeNotFound))
	assert.True(t, errors.Is(d.CloseSession(ctx, s.ID, 7000), errors.ErrCodeNotFound))

	views, err := d.ListSessions(ctx, g.ID)
	require.NoError(t, err)
	require.Len(t, views, 1)
	v := views[0]
	require.NotNil(t, v.StoppedAt)
	assert.Equal(t, int64(0), *v.StoppedAt-v.StartedAt, "open then close at the same instant has zero length")
	assert.Equal(t, models.RuleTypeExec, v.RuleType)
	assert.Equal(t, "foo.exe", v.RulePattern)
	require.Len(t, v.TitleHistory, 2)
	assert.Equal(t, "Foo", v.TitleHistory[0].Title)
	assert.Equal(t, "Foo - edited", v.TitleHistory[1].Title)

	reopened, err := d.OpenSession(ctx, *rule, proc, 8000)
	require.NoError(t, err, "a closed session frees the key")
	assert.Equal(t, int64(2), reopened.Seq)
}

func TestCloseAllAndStale(t *testing.T) {
	ctx := context.Background()
	d := openTestDB(t)
	g := mustGroup(t, d, "G")
	rule := mustRule(t, d, g.ID, models.RuleTypeExec, "a.exe")

	a, err := d.OpenSession(ctx, *rule, models.ProcessRecord{ID: 1, Executable: "a.exe", WindowTitle: "A", StartTime: 1}, 100)
	require.NoError(t, err)
	_, err = d.OpenSession(ctx, *rule, models.ProcessRecord{ID: 2, Executable: "a.exe", WindowTitle: "B", StartTime: 2}, 200)
	require.NoError(t, err)
	require.NoError(t, d.AppendTitle(ctx, a.ID, 450, "A2"))

	n, err := d.CloseStale(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	views, err := d.ListSessions(ctx, 0)
	require.NoError(t, err)
	require.Len(t, views, 2)
	assert.Equal(t, int64(450), *views[0].StoppedAt, "closed at last title change")
	assert.Equal(t, int64(200), *views[1].StoppedAt, "closed at its only title change")

	_, err = d.OpenSession(ctx, *rule, models.ProcessRecord{ID: 3, Executable: "a.exe", StartTime: 3}, 300)
	require.NoError(t, err)
	open, err := d.OpenSessions(ctx)
	require.NoError(t, err)
	assert.Len(t, open, 1)

	n, err = d.CloseAllOpen(ctx, 900)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = d.CloseAllOpen(ctx, 950)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestCloseProcessSessionsCoversDeletedRules(t *testing.T) {
	ctx := context.Background()
	d := openTestDB(t)
	g := mustGroup(t, d, "G")
	rule := mustRule(t, d, g.ID, models.RuleTypeExec, "a.exe")
	proc := models.ProcessRecord{ID: 7, Executable: "a.exe", StartTime: 70}

	_, err := d.OpenSession(ctx, *rule, proc, 100)
	require.NoError(t, err)
	require.NoError(t, d.DeleteRule(ctx, rule.ID))

	n, err := d.CloseProcessSessions(ctx, 7, 70, 500)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	views, err := d.ListSessions(ctx, g.ID)
	require.NoError(t, err)
	require.Len(t, views, 1, "sessions outlive their rule")
	assert.Equal(t, models.RuleType(""), views[0].RuleType)
}

func TestDeleteGroupData(t *testing.T) {
	ctx := context.Background()
	d := openTestDB(t)
	g := mustGroup(t, d, "G")
	keep := mustGroup(t, d, "Keep")
	rule := mustRule(t, d, g.ID, models.RuleTypeExec, "a.exe")
	keepRule := mustRule(t, d, keep.ID, models.RuleTypeExec, "b.exe")

	_, err := d.OpenSession(ctx, *rule, models.ProcessRecord{ID: 1, Executable: "a.exe"}, 100)
	require.NoError(t, err)
	_, err = d.OpenSession(ctx, *keepRule, models.ProcessRecord{ID: 2, Executable: "b.exe"}, 100)
	require.NoError(t, err)

	n, err := d.DeleteGroupData(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	views, err := d.ListSessions(ctx, 0)
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, keep.ID, views[0].GroupID)

	rules, err := d.ListRules(ctx, g.ID)
	require.NoError(t, err)
	assert.Len(t, rules, 1, "rules survive a data wipe")

	_, err = d.DeleteGroupData(ctx, 999)
	assert.True(t, errors.Is(err, errors.ErrCodeNotFound))
}
