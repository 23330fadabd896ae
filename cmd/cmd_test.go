package cmd

import (
	"bytes"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeDay(t *testing.T, dir string) string {
	t.Helper()
	var b strings.Builder
	b.WriteString("time,pv,demand\n")
	for i := 0; i < 96; i++ {
		h := float64(i) / 4
		pv := 0.0
		if h > 6 && h < 18 {
			pv = math.Sin(math.Pi * (h - 6) / 12)
		}
		fmt.Fprintf(&b, "%d,%g,%g\n", i*900, pv, 0.4+0.8*math.Exp(-math.Pow(h-19, 2)))
	}
	path := filepath.Join(dir, "day.csv")
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o600))
	return path
}

func TestSimulateThenListRuns(t *testing.T) {
	dir := t.TempDir()
	cfg := fmt.Sprintf(`simulation:
  pv_peak: 4
  parameters:
    battery_capacity: 3
    max_power: 1.5
dispatch:
  engine: self_consumption
runlog:
  backend: jsonl
  path: %s
log:
  level: error
`, filepath.Join(dir, "runs.jsonl"))
	cfgFile := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgFile, []byte(cfg), 0o600))
	profile := writeDay(t, dir)
	flows := filepath.Join(dir, "flows.csv")
	chart := filepath.Join(dir, "chart.html")

	var stderr bytes.Buffer
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs([]string{"simulate", "-c", cfgFile, "--pv", profile, "-o", flows, "--plot", chart})
	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, stderr.String(), "Self consumption")

	data, err := os.ReadFile(flows)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	assert.Len(t, lines, 97)
	assert.True(t, strings.HasPrefix(lines[0], "pv,demand,pv_to_inverter"))
	html, err := os.ReadFile(chart)
	require.NoError(t, err)
	assert.Contains(t, string(html), "echarts")

	var stdout bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetArgs([]string{"runs", "-c", cfgFile, "--kind", "simulation"})
	require.NoError(t, rootCmd.Execute())
	out := stdout.String()
	assert.Contains(t, out, "self_consumption")
	assert.Equal(t, 2, strings.Count(out, "\n"))
}

func TestSimulateMissingConfig(t *testing.T) {
	rootCmd.SetArgs([]string{"simulate", "-c", filepath.Join(t.TempDir(), "absent.yaml"), "--pv", "x.csv"})
	err := rootCmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load config")
}
