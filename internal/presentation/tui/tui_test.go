package tui_test

import (
	"bytes"
	"testing"

	"github.com/aretw0/storewizard/internal/presentation/tui"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrintBanner(t *testing.T) {
	var buf bytes.Buffer
	tui.PrintBanner(&buf, "New digital product")
	assert.Contains(t, buf.String(), "New digital product")
}

func TestNewRenderer(t *testing.T) {
	render := tui.NewRenderer()
	out, err := render("## Step 1/6: Basics")
	require.NoError(t, err)
	assert.Contains(t, out, "Step 1/6: Basics")
}
