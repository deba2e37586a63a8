package notify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderEscapesAndOmitsEmptyNote(t *testing.T) {
	html, err := Render(Message{
		Name:        "Ravi <script>",
		TrackingID:  "GRV-ABC-1234",
		StatusLabel: "At District Level",
		TrackURL:    "https://portal.example/track?id=GRV-ABC-1234",
	})
	require.NoError(t, err)
	assert.Contains(t, html, "GRV-ABC-1234")
	assert.Contains(t, html, "At District Level")
	assert.Contains(t, html, "Ravi &lt;script&gt;")
	assert.NotContains(t, html, "Remarks:")

	html, err = Render(Message{Name: "Ravi", Note: "documents verified"})
	require.NoError(t, err)
	assert.Contains(t, html, "Remarks: documents verified")
}
