package common

import (
	"encoding/json"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
)

func TestResults(t *testing.T) {
	ok := NewTextResult("done")
	assert.False(t, ok.IsError)
	assert.Equal(t, "done", ResultText(ok))

	failed := NewErrorResultf("failed: %d", 3)
	assert.True(t, failed.IsError)
	assert.Equal(t, "failed: 3", ResultText(failed))

	assert.Equal(t, "", ResultText(nil))
	assert.Equal(t, "", ResultText(&mcp.CallToolResult{}))
}

func TestCoerceNumber(t *testing.T) {
	tests := []struct {
		in   any
		want float64
		ok   bool
	}{
		{in: float64(5), want: 5, ok: true},
		{in: 7, want: 7, ok: true},
		{in: int64(9), want: 9, ok: true},
		{in: json.Number("42"), want: 42, ok: true},
		{in: json.Number("2.5e1"), want: 25, ok: true},
		{in: json.Number("nope"), ok: false},
		{in: " 12 ", want: 12, ok: true},
		{in: "1.5", want: 1.5, ok: true},
		{in: "ten", ok: false},
		{in: true, ok: false},
		{in: nil, ok: false},
	}

	for _, tt := range tests {
		got, ok := CoerceNumber(tt.in)
		assert.Equal(t, tt.ok, ok, "input %#v", tt.in)
		if tt.ok {
			assert.Equal(t, tt.want, got, "input %#v", tt.in)
		}
	}
}

func TestCoerceBool(t *testing.T) {
	v, ok := CoerceBool(true)
	assert.True(t, ok)
	assert.True(t, v)

	v, ok = CoerceBool("FALSE")
	assert.True(t, ok)
	assert.False(t, v)

	_, ok = CoerceBool("yes")
	assert.False(t, ok)

	_, ok = CoerceBool(1.0)
	assert.False(t, ok)
}

func TestCoerceString(t *testing.T) {
	s, ok := CoerceString("pods")
	assert.True(t, ok)
	assert.Equal(t, "pods", s)

	_, ok = CoerceString(3.0)
	assert.False(t, ok)
}
