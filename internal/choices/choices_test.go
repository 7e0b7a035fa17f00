package choices

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "shared-config.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadRegistry(t *testing.T) {
	path := writeConfig(t, `{"incident": {
		"levels": [{"value": "L2", "label": "L2 - Low"}, {"value": "L5", "label": "L5 - Critical"}],
		"statuses": [{"value": "reported", "label": "Reported"}]
	}}`)

	reg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"L2", "L5"}, reg.ValuesFor(FieldLevels))
	assert.Equal(t, []string{"reported"}, reg.Statuses())
	assert.Equal(t, "L5 - Critical", reg.ChoicesFor(FieldLevels)[1].Label)
}

func TestIsValid(t *testing.T) {
	path := writeConfig(t, `{"incident": {
		"scopes": [{"value": "Low", "label": "Low"}, {"value": "High", "label": "High"}]
	}}`)

	reg, err := Load(path)
	require.NoError(t, err)

	assert.True(t, reg.IsValid(FieldScopes, "Low"))
	assert.False(t, reg.IsValid(FieldScopes, "Severe"))
	assert.False(t, reg.IsValid("unknown_field", "Low"))
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	require.Error(t, err)
}

func TestLoadMalformedJSON(t *testing.T) {
	path := writeConfig(t, `{"incident": `)
	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadMissingIncidentSection(t *testing.T) {
	path := writeConfig(t, `{"other": {}}`)
	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadRejectsEmptyValue(t *testing.T) {
	path := writeConfig(t, `{"incident": {"levels": [{"value": "", "label": "blank"}]}}`)
	_, err := Load(path)
	require.Error(t, err)
}
