package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MJE43/dot-verify-go/internal/config"
	"github.com/MJE43/dot-verify-go/internal/scenario"
	"github.com/MJE43/dot-verify-go/internal/verify"
)

func testdata(name string) string {
	return filepath.Join("..", "..", "testdata", name)
}

func baseConfig() config.Config {
	return config.Config{
		Scenario:      "prebuff",
		Check:         "all",
		Samples:       testdata("prebuff_ticks.txt"),
		Format:        "text",
		ScriptTimeout: time.Second,
	}
}

func TestRunText(t *testing.T) {
	var out, diag bytes.Buffer
	require.NoError(t, run(context.Background(), baseConfig(), &out, &diag))

	for _, c := range []string{"nh", "dh", "ch", "cdh"} {
		assert.Contains(t, out.String(), "start real range hole check ("+c+"):")
		assert.Contains(t, out.String(), "starting expected prebuff hole check ("+c+"):")
	}
	assert.NotContains(t, out.String(), "found unknown value")
	assert.NotContains(t, out.String(), "!!!")

	assert.Contains(t, diag.String(), "ex cdh range 8550..=9450")
	assert.Contains(t, diag.String(), "anomalies=0")
}

func TestRunJSON(t *testing.T) {
	cfg := baseConfig()
	cfg.Format = "json"

	var out, diag bytes.Buffer
	require.NoError(t, run(context.Background(), cfg, &out, &diag))

	var rep verify.Report
	require.NoError(t, json.Unmarshal(out.Bytes(), &rep))
	assert.Equal(t, 800, rep.Summary.SampleCount)
	assert.Zero(t, rep.Summary.Anomalies)
	assert.Zero(t, rep.Summary.SuspiciousGaps)
	assert.Zero(t, rep.Summary.InvariantViolations)
	assert.Empty(t, diag.String())
}

func TestRunWrongScenarioReportsAnomalies(t *testing.T) {
	cfg := baseConfig()
	cfg.Scenario = "postbuff"
	cfg.Check = "range"

	var out, diag bytes.Buffer
	require.NoError(t, run(context.Background(), cfg, &out, &diag), "findings are not errors")
	assert.Contains(t, out.String(), "found unknown value: ")
}

func TestRunPersists(t *testing.T) {
	cfg := baseConfig()
	cfg.DBPath = filepath.Join(t.TempDir(), "runs.db")

	var out, diag bytes.Buffer
	require.NoError(t, run(context.Background(), cfg, &out, &diag))
	assert.Contains(t, diag.String(), "saved run ")
}

func TestRunScenarioFile(t *testing.T) {
	cfg := baseConfig()
	cfg.ScenarioFile = testdata("scenarios.yaml")
	cfg.Scenario = "postbuff-scripted"
	cfg.Samples = ""
	cfg.Format = "json"

	var out, diag bytes.Buffer
	require.NoError(t, run(context.Background(), cfg, &out, &diag))

	var rep verify.Report
	require.NoError(t, json.Unmarshal(out.Bytes(), &rep))
	assert.Equal(t, "postbuff", rep.Mode)
	assert.Zero(t, rep.Summary.Anomalies)
	assert.Zero(t, rep.Summary.SuspiciousGaps)
}

func TestRunConfigurationErrors(t *testing.T) {
	require.NoError(t, scenario.Register(scenario.Scenario{
		ID:       "no-samples",
		Mode:     scenario.ModePreBuff,
		Snapshot: scenario.DefaultSnapshot,
	}))

	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"unknown scenario", func(c *config.Config) { c.Scenario = "midbuff" }, "midbuff"},
		{"missing samples file", func(c *config.Config) { c.Samples = testdata("nope.txt") }, "nope.txt"},
		{"no samples configured", func(c *config.Config) { c.Scenario = "no-samples"; c.Samples = "" }, "pass -samples"},
		{"bad check", func(c *config.Config) { c.Check = "sideways" }, "sideways"},
		{"bad format", func(c *config.Config) { c.Format = "xml" }, "xml"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := baseConfig()
			tt.mutate(&cfg)

			var out, diag bytes.Buffer
			err := run(context.Background(), cfg, &out, &diag)
			require.Error(t, err)
			assert.True(t, strings.Contains(err.Error(), tt.want), "error %q should name %q", err, tt.want)
			assert.Empty(t, out.String(), "nothing is reported before configuration is valid")
		})
	}
}

func TestRunUnknownScenarioIsNotFound(t *testing.T) {
	cfg := baseConfig()
	cfg.Scenario = "midbuff"
	err := run(context.Background(), cfg, &bytes.Buffer{}, &bytes.Buffer{})
	assert.True(t, errors.Is(err, scenario.ErrScenarioNotFound))
}
