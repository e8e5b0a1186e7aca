package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/alm9/grades-escolares-api/internal/grades"
	"github.com/alm9/grades-escolares-api/internal/types"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, file string, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--file", file, "--log-level", "error"}, args...))

	err := cmd.Execute()
	return out.String(), err
}

func mustRun(t *testing.T, file string, args ...string) string {
	t.Helper()
	out, err := run(t, file, args...)
	require.NoError(t, err, out)
	return out
}

func tempGradesFile(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "grades.json")
}

func TestAddListGet(t *testing.T) {
	t.Parallel()
	file := tempGradesFile(t)

	var added types.Grade
	out := mustRun(t, file, "add", "--student", "Ana", "--subject", "Math", "--type", "exam", "--value", "8.5")
	require.NoError(t, json.Unmarshal([]byte(out), &added))
	assert.Equal(t, 0, added.ID)
	assert.Equal(t, "Ana", added.Student)
	assert.Equal(t, 8.5, added.Value)
	assert.False(t, added.Timestamp.IsZero())

	mustRun(t, file, "add", "--student", "Bia", "--subject", "Math", "--type", "exam", "--value", "6")

	var all []types.Grade
	require.NoError(t, json.Unmarshal([]byte(mustRun(t, file, "list")), &all))
	require.Len(t, all, 2)
	assert.Equal(t, []int{0, 1}, []int{all[0].ID, all[1].ID})

	var got types.Grade
	require.NoError(t, json.Unmarshal([]byte(mustRun(t, file, "get", "1")), &got))
	assert.Equal(t, "Bia", got.Student)

	// The file on disk is the persisted layout.
	raw, err := os.ReadFile(file)
	require.NoError(t, err)
	var stored types.Collection
	require.NoError(t, json.Unmarshal(raw, &stored))
	assert.Equal(t, 2, stored.NextID)
}

func TestUpdate_OnlyChangedFlags(t *testing.T) {
	t.Parallel()
	file := tempGradesFile(t)

	mustRun(t, file, "add", "--student", "Ana", "--subject", "Math", "--type", "exam", "--value", "8.5")

	// Setting --value to 0 is a change, not an absent flag.
	var updated types.Grade
	out := mustRun(t, file, "update", "0", "--value", "0")
	require.NoError(t, json.Unmarshal([]byte(out), &updated))
	assert.Equal(t, 0.0, updated.Value)
	assert.Equal(t, "Ana", updated.Student)
	assert.Equal(t, "Math", updated.Subject)
	assert.Equal(t, "exam", updated.Type)

	out = mustRun(t, file, "update", "0", "--type", "quiz")
	require.NoError(t, json.Unmarshal([]byte(out), &updated))
	assert.Equal(t, "quiz", updated.Type)
	assert.Equal(t, 0.0, updated.Value)
}

func TestUpdate_RequiresAField(t *testing.T) {
	t.Parallel()
	file := tempGradesFile(t)
	mustRun(t, file, "add", "--student", "Ana")

	_, err := run(t, file, "update", "0")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nothing to update")
}

func TestGradeFlags_Partial(t *testing.T) {
	t.Parallel()

	var f gradeFlags
	cmd := &cobra.Command{}
	f.register(cmd.Flags())
	require.NoError(t, cmd.Flags().Parse([]string{"--subject", "", "--value", "7"}))

	p := f.partial(cmd.Flags())
	assert.Nil(t, p.Student)
	assert.Nil(t, p.Type)
	require.NotNil(t, p.Subject)
	assert.Equal(t, "", *p.Subject)
	require.NotNil(t, p.Value)
	assert.Equal(t, 7.0, *p.Value)
}

func TestReports(t *testing.T) {
	t.Parallel()
	file := tempGradesFile(t)

	mustRun(t, file, "add", "--student", "Ana", "--subject", "Math", "--type", "exam", "--value", "9")
	mustRun(t, file, "add", "--student", "Ana", "--subject", "Math", "--type", "quiz", "--value", "1")
	mustRun(t, file, "add", "--student", "Bia", "--subject", "Math", "--type", "exam", "--value", "5")

	var total map[string]any
	require.NoError(t, json.Unmarshal([]byte(mustRun(t, file, "total", "Ana", "Math")), &total))
	assert.Equal(t, 10.0, total["total"])

	var avg map[string]any
	require.NoError(t, json.Unmarshal([]byte(mustRun(t, file, "average", "Math", "exam")), &avg))
	assert.Equal(t, 7.0, avg["average"])

	var top []types.Grade
	require.NoError(t, json.Unmarshal([]byte(mustRun(t, file, "top", "Math", "exam", "--n", "1")), &top))
	require.Len(t, top, 1)
	assert.Equal(t, "Ana", top[0].Student)

	_, err := run(t, file, "average", "History", "exam")
	assert.ErrorIs(t, err, grades.ErrNoData)
}

func TestDelete(t *testing.T) {
	t.Parallel()
	file := tempGradesFile(t)
	mustRun(t, file, "add", "--student", "Ana", "--value", "3")

	var deleted map[string]any
	require.NoError(t, json.Unmarshal([]byte(mustRun(t, file, "delete", "0")), &deleted))
	_, hasID := deleted["id"]
	assert.False(t, hasID)
	assert.Equal(t, "Ana", deleted["student"])

	_, err := run(t, file, "get", "0")
	assert.ErrorIs(t, err, grades.ErrNotFound)

	_, err = run(t, file, "delete", "0")
	assert.ErrorIs(t, err, grades.ErrNotFound)
}

func TestInvalidID(t *testing.T) {
	t.Parallel()
	file := tempGradesFile(t)

	for _, arg := range []string{"abc", "-1"} {
		_, err := run(t, file, "get", "--", arg)
		assert.Error(t, err, arg)
	}
}

func TestCorruptFile(t *testing.T) {
	t.Parallel()
	file := tempGradesFile(t)
	require.NoError(t, os.WriteFile(file, []byte("{not json"), 0o644))

	_, err := run(t, file, "list")
	assert.ErrorIs(t, err, grades.ErrCorruptStore)
}
