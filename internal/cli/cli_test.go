package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatMoney(t *testing.T) {
	tests := []struct {
		want   string
		amount float64
	}{
		{"$0.00", 0},
		{"$5.75", 5.75},
		{"$999.99", 999.99},
		{"$1,000.00", 1000},
		{"$1,234,567.89", 1234567.89},
		{"-$42.50", -42.5},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatMoney(tt.amount))
		})
	}
}

func TestFormatPercent(t *testing.T) {
	assert.Equal(t, "10%", FormatPercent(10))
	assert.Equal(t, "12.5%", FormatPercent(12.5))
	assert.Equal(t, "0%", FormatPercent(0))
	assert.Equal(t, "100%", FormatPercent(100))
}

func TestInterruptHandler(t *testing.T) {
	t.Run("nil writer defaults to stderr", func(t *testing.T) {
		h := NewInterruptHandler(nil, "bye")
		assert.NotNil(t, h.writer)
	})

	t.Run("interrupt prints the message once", func(t *testing.T) {
		var buf bytes.Buffer
		h := NewInterruptHandler(&buf, "Sync interrupted")

		h.interrupt()
		h.interrupt()

		assert.True(t, h.WasInterrupted())
		assert.Equal(t, 1, bytes.Count(buf.Bytes(), []byte("Sync interrupted")))
	})

	t.Run("stop cancels the context without an interrupt", func(t *testing.T) {
		var buf bytes.Buffer
		h := NewInterruptHandler(&buf, "unused")

		ctx, stop := h.HandleInterrupts(context.Background())
		stop()

		<-ctx.Done()
		assert.False(t, h.WasInterrupted())
		assert.Empty(t, buf.String())
	})
}

func TestTable(t *testing.T) {
	var buf bytes.Buffer
	table := NewTable(&buf, "NAME", "AMOUNT")
	table.Row("Groceries", "$400.00")
	table.Row("Rent", "$1,500.00")
	assert.NoError(t, table.Flush())

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Len(t, lines, 3)
	assert.Contains(t, lines[0], "NAME")
	assert.Contains(t, lines[2], "$1,500.00")
}
