package export

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSVExporterRender(t *testing.T) {
	exporter := NewCSVExporter()
	data, err := exporter.Render(Dataset{
		Headers: []string{"full_name", "status"},
		Rows: []map[string]string{
			{"full_name": "Budi", "status": "PENDING"},
			{"full_name": "Ani, Jr.", "status": "CONFIRMED"},
		},
	})
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "full_name,status", lines[0])
	assert.Equal(t, "Budi,PENDING", lines[1])
	// Values containing commas are quoted.
	assert.Equal(t, `"Ani, Jr.",CONFIRMED`, lines[2])
}

func TestCSVExporterMissingValuesStayEmpty(t *testing.T) {
	exporter := NewCSVExporter()
	data, err := exporter.Render(Dataset{
		Headers: []string{"full_name", "class_name"},
		Rows:    []map[string]string{{"full_name": "Budi"}},
	})
	require.NoError(t, err)
	assert.Contains(t, string(data), "Budi,")
}

func TestCSVExporterRequiresHeaders(t *testing.T) {
	exporter := NewCSVExporter()
	_, err := exporter.Render(Dataset{})
	require.Error(t, err)
}
