package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStringListValueNeverNull(t *testing.T) {
	var list StringList
	value, err := list.Value()
	require.NoError(t, err)
	assert.Equal(t, []byte("[]"), value)

	value, err = StringList{"EU", "US"}.Value()
	require.NoError(t, err)
	assert.JSONEq(t, `["EU","US"]`, string(value.([]byte)))
}

func TestStringListScan(t *testing.T) {
	var list StringList
	require.NoError(t, list.Scan([]byte(`["EU","US"]`)))
	assert.Equal(t, StringList{"EU", "US"}, list)

	require.NoError(t, list.Scan(nil))
	assert.Equal(t, StringList{}, list)

	require.Error(t, list.Scan(42))
}

func TestStringListDisplay(t *testing.T) {
	assert.Equal(t, "EU, US", StringList{"EU", "US"}.Display())
	assert.Equal(t, "", StringList{}.Display())
}

func TestIncidentSeverityFlags(t *testing.T) {
	tests := []struct {
		level          string
		scope          string
		l5High         bool
		requiresPolicy bool
	}{
		{"L5", "High", true, true},
		{"L5", "Medium", false, true},
		{"L5", "Low", false, false},
		{"L4", "High", false, false},
		{"L2", "Low", false, false},
	}
	for _, tt := range tests {
		incident := Incident{Level: tt.level, Scope: tt.scope}
		assert.Equal(t, tt.l5High, incident.IsL5High(), "%s/%s", tt.level, tt.scope)
		assert.Equal(t, tt.requiresPolicy, incident.RequiresMitigationPolicy(), "%s/%s", tt.level, tt.scope)
	}
}

func TestNewIncidentDetailNeverNilSlices(t *testing.T) {
	detail := NewIncidentDetail(Incident{Level: "L5", Scope: "High", ImpactedLocations: StringList{"EU", "US"}}, nil, nil)
	require.NotNil(t, detail.Documents)
	require.NotNil(t, detail.Updates)
	assert.True(t, detail.IsL5High)
	assert.Equal(t, "EU, US", detail.ImpactedLocationsDisplay)
}
