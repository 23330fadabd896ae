package plot

import (
	"bytes"
	"testing"

	"github.com/kilianp07/prosumer/core/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatchHTML(t *testing.T) {
	f := model.NewEnergyFlowSet(4)
	pv := model.TimeSeries{0, 2, 4, 2}
	demand := model.TimeSeries{1, 1, 1, 1}
	var buf bytes.Buffer
	require.NoError(t, DispatchHTML(&buf, pv, demand, f, 1, Window{From: 1, Steps: 2}))
	html := buf.String()
	assert.Contains(t, html, "<html")
	assert.Contains(t, html, "Level of charge")
	assert.Contains(t, html, "1.00")
	assert.NotContains(t, html, "\"3.00\"")
}

func TestDispatchHTMLErrors(t *testing.T) {
	f := model.NewEnergyFlowSet(2)
	err := DispatchHTML(&bytes.Buffer{}, model.TimeSeries{1}, model.TimeSeries{1, 2}, f, 1, Window{})
	assert.ErrorIs(t, err, model.ErrInputShape)
	err = DispatchHTML(&bytes.Buffer{}, model.TimeSeries{1, 2}, model.TimeSeries{1, 2}, f, 1, Window{From: 5})
	assert.ErrorIs(t, err, model.ErrInputShape)
}
