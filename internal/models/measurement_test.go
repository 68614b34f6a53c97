package models

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMeasurementInputMissingFields(t *testing.T) {
	var in MeasurementInput
	require.NoError(t, json.Unmarshal([]byte(`{"station_name":"Dock","ph":null,"turbidity":1.5,"temperature":12}`), &in))

	assert.Equal(t, []string{"ph", "dissolved_oxygen", "conductivity"}, in.MissingFields())
}

func TestMeasurementInputComplete(t *testing.T) {
	var in MeasurementInput
	body := `{"station_name":"Dock","ph":7.1,"turbidity":1.5,"dissolved_oxygen":8.2,"temperature":12,"conductivity":410}`
	require.NoError(t, json.Unmarshal([]byte(body), &in))
	require.Empty(t, in.MissingFields())

	now := time.Date(2026, 10, 17, 9, 30, 0, 0, time.UTC)
	m := in.ToMeasurement(now)
	assert.Equal(t, "Dock", m.StationName)
	assert.Equal(t, 7.1, m.PH)
	assert.Equal(t, 410.0, m.Conductivity)
	assert.Equal(t, now, m.Date)
	assert.Zero(t, m.ID)
}

func TestMeasurementPatchApplyKeepsUnsetFields(t *testing.T) {
	current := Measurement{
		ID: 4, StationName: "Weir", Date: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		PH: 6.8, Turbidity: 2, DissolvedOxygen: 9, Temperature: 10, Conductivity: 300,
	}
	var patch MeasurementPatch
	require.NoError(t, json.Unmarshal([]byte(`{"id":99,"ph":7.2}`), &patch))

	now := time.Date(2026, 10, 17, 9, 30, 0, 0, time.UTC)
	next := patch.Apply(current, now)

	assert.Equal(t, int64(4), next.ID)
	assert.Equal(t, 7.2, next.PH)
	assert.Equal(t, "Weir", next.StationName)
	assert.Equal(t, 2.0, next.Turbidity)
	assert.Equal(t, 300.0, next.Conductivity)
	assert.Equal(t, now, next.Date)
}

func TestAttributesOmitID(t *testing.T) {
	m := Measurement{ID: 3, StationName: "Weir", PH: 7}
	raw, err := json.Marshal(m.Attributes())
	require.NoError(t, err)
	assert.NotContains(t, string(raw), `"id"`)
	assert.Contains(t, string(raw), `"station_name":"Weir"`)
}

func TestMeasurementIndexOrdersByID(t *testing.T) {
	idx := MeasurementIndex{
		{ID: 10, StationName: "C"},
		{ID: 2, StationName: "B"},
		{ID: 1, StationName: "A"},
	}
	raw, err := json.Marshal(idx)
	require.NoError(t, err)

	s := string(raw)
	assert.Less(t, strings.Index(s, `"1":`), strings.Index(s, `"2":`))
	assert.Less(t, strings.Index(s, `"2":`), strings.Index(s, `"10":`))

	var decoded map[string]MeasurementAttributes
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, "C", decoded["10"].StationName)
}

func TestEmptyMeasurementIndex(t *testing.T) {
	raw, err := json.Marshal(MeasurementIndex(nil))
	require.NoError(t, err)
	assert.Equal(t, "{}", string(raw))
}
