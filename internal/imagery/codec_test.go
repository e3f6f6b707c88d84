package imagery

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadField(t *testing.T) {
	t.Parallel()

	path := writeTempFile(t, "field.json", `{
		"id": "field-7",
		"name": "North Field",
		"location": {"min_lat": 60.1, "min_lon": 24.5, "max_lat": 60.2, "max_lon": 24.7},
		"zones": [
			{"id": "z1", "name": "north", "min_x": 0, "min_y": 0, "max_x": 2, "max_y": 2},
			{"id": "z2", "name": "south", "min_x": 0, "min_y": 2, "max_x": 2, "max_y": 4}
		]
	}`)

	field, err := LoadField(path)
	require.NoError(t, err)

	assert.Equal(t, "field-7", field.ID)
	assert.Len(t, field.Zones, 2)
	require.NotNil(t, field.ZoneByID("z2"))
	assert.Equal(t, "south", field.ZoneByID("z2").Name)
	assert.Nil(t, field.ZoneByID("missing"))
}

func TestLoadFieldRejectsMissingID(t *testing.T) {
	t.Parallel()

	path := writeTempFile(t, "field.json", `{"name": "anonymous"}`)
	_, err := LoadField(path)
	require.Error(t, err)
}

func TestLoadCapture(t *testing.T) {
	t.Parallel()

	path := writeTempFile(t, "capture.json", `{
		"field_id": "field-7",
		"captured_at": "2026-08-20T09:00:00Z",
		"width": 2,
		"height": 2,
		"bands": {
			"red": [0.1, 0.2, null, 0.1],
			"nir": [0.5, 0.6, 0.5, 0.4]
		}
	}`)

	capture, err := LoadCapture(path)
	require.NoError(t, err)

	assert.Equal(t, "field-7", capture.FieldID)
	assert.Equal(t, 2, capture.Width())

	red := capture.Band(BandRed)
	require.NotNil(t, red)
	assert.False(t, red.IsDefined(0, 1), "null pixels arrive undefined")
	assert.Equal(t, 1, red.UndefinedCount())
}

func TestLoadCaptureRejectsMismatchedBands(t *testing.T) {
	t.Parallel()

	path := writeTempFile(t, "capture.json", `{
		"field_id": "field-7",
		"width": 2,
		"height": 2,
		"bands": {"red": [0.1, 0.2, 0.3]}
	}`)

	_, err := LoadCapture(path)
	require.Error(t, err)
}

func TestLoadCaptureMissingFile(t *testing.T) {
	t.Parallel()

	_, err := LoadCapture(filepath.Join(t.TempDir(), "absent.json"))
	require.Error(t, err)
}
