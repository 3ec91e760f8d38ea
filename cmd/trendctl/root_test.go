package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trendlens/internal/domain/trend"
	"trendlens/internal/service/synthesis"
)

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestKeyCmd(t *testing.T) {
	out, err := execute(t, "", "key", "Oil", "gas")
	require.NoError(t, err)
	assert.Equal(t, trend.ExplanationKey([]string{"gas", "oil"}).String()+"\n", out)

	out, err = execute(t, "", "key", "-n", trend.NamespacePeakSummaries, "oil")
	require.NoError(t, err)
	assert.Equal(t, trend.PeakSummariesKey([]string{"oil"}).String()+"\n", out)

	_, err = execute(t, "", "key")
	assert.Error(t, err)
}

func TestConclusionCmd_Stdin(t *testing.T) {
	explanation := "1. Overview\nText.\n\n**4. Conclusion:**\nInterest in solar panels rose with the new subsidy programme."

	out, err := execute(t, explanation, "conclusion", "--file", "-")
	require.NoError(t, err)
	assert.Equal(t, "Interest in solar panels rose with the new subsidy programme.\n", out)

	_, err = execute(t, "no heading at all", "conclusion", "-f", "-")
	assert.ErrorContains(t, err, "no conclusion found")
}

func TestReportTasks(t *testing.T) {
	var buf bytes.Buffer
	err := reportTasks(&buf, []synthesis.Task{
		{Keywords: []string{"oil"}, Status: synthesis.TaskSucceeded},
		{Keywords: []string{"gas", "lng"}, Status: synthesis.TaskFailed, Error: "series not found"},
	})

	assert.ErrorContains(t, err, "1 of 2 regenerations failed")
	assert.Contains(t, buf.String(), "succeeded oil\n")
	assert.Contains(t, buf.String(), "gas, lng (series not found)")
}
