package export

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func sample() Dataset {
	return Dataset{
		Title:    "Grievance GRV-ABC-1234",
		Subtitle: []string{"Status: At District Level"},
		Headers:  []string{"When", "Action", "Note"},
		Rows: []map[string]string{
			{"When": "2024-01-01", "Action": "submit", "Note": "Grievance submitted"},
			{"When": "2024-01-02", "Action": "forward", "Note": "needs, \"district\" review"},
		},
	}
}

func TestCSVExporter(t *testing.T) {
	out, err := NewCSVExporter().Render(sample())
	require.NoError(t, err)
	assert.Equal(t, "When,Action,Note\n2024-01-01,submit,Grievance submitted\n2024-01-02,forward,\"needs, \"\"district\"\" review\"\n", string(out))

	_, err = NewCSVExporter().Render(Dataset{})
	assert.Error(t, err)
}

func TestPDFExporter(t *testing.T) {
	out, err := NewPDFExporter().Render(sample())
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}

func TestXLSXExporter(t *testing.T) {
	out, err := NewXLSXExporter().Render(sample())
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(out))
	require.NoError(t, err)
	defer f.Close() //nolint:errcheck

	rows, err := f.GetRows(xlsxSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"When", "Action", "Note"}, rows[0])
	assert.Equal(t, "forward", rows[2][1])
}

func TestFormatContentType(t *testing.T) {
	assert.Equal(t, "application/pdf", FormatPDF.ContentType())
	assert.Equal(t, "text/csv", FormatCSV.ContentType())
	assert.Len(t, Renderers(), 3)
}
