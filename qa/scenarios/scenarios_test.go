package scenarios

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScenario(t *testing.T) {
	files, err := filepath.Glob("*.yaml")
	require.NoError(t, err)
	require.NotEmpty(t, files)
	for _, f := range files {
		sc, err := Load(f)
		require.NoError(t, err, f)
		t.Run(sc.Name, func(t *testing.T) {
			RunScenario(t, sc)
		})
	}
}

func TestLoadInvalid(t *testing.T) {
	_, err := Load("no-file.yaml")
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte(":"), 0o644))
	_, err = Load(path)
	assert.Error(t, err)
}

func TestInputsRepeat(t *testing.T) {
	sc := &Scenario{PV: []float64{1, 2}, Demand: []float64{3, 4}, Repeat: 2}
	pv, demand := sc.Inputs()
	assert.Equal(t, []float64{1, 2, 1, 2}, []float64(pv))
	assert.Equal(t, []float64{3, 4, 3, 4}, []float64(demand))
}
