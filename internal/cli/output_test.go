package cli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTableRenderAlignsColumns(t *testing.T) {
	var buf bytes.Buffer
	out := &Output{writer: &buf}

	table := NewTable(out, "PAIR", "ACTION")
	table.AddRow("BTCUSD", "BUY")
	table.AddRow("ETHUSD", "SELL")
	table.Render()

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	assert.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[0], "PAIR"))
	assert.Contains(t, lines[2], "BTCUSD  BUY")
}

func TestStripANSI(t *testing.T) {
	assert.Equal(t, "FAILED", stripANSI(ColorRed+"FAILED"+ColorReset))
}

func TestShortID(t *testing.T) {
	assert.Equal(t, "0xdeadbeef", shortID("0xdeadbeefcafe"))
	assert.Equal(t, "short", shortID("short"))
}
