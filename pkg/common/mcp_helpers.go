// Package common provides shared MCP helper functions for tool packages.
//
// It centralizes loose argument coercion and result creation so that tool
// implementations format responses consistently.
package common

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

// NewTextResult creates a success result with text content.
func NewTextResult(text string) *mcp.CallToolResult {
	return mcp.NewToolResultText(text)
}

// NewErrorResult creates an error result with text content.
func NewErrorResult(text string) *mcp.CallToolResult {
	return mcp.NewToolResultError(text)
}

// NewErrorResultf creates an error result from a format string.
func NewErrorResultf(format string, args ...any) *mcp.CallToolResult {
	return mcp.NewToolResultError(fmt.Sprintf(format, args...))
}

// ResultText returns the text of the first text content block, or "".
func ResultText(result *mcp.CallToolResult) string {
	if result == nil {
		return ""
	}
	for _, c := range result.Content {
		switch tc := c.(type) {
		case mcp.TextContent:
			return tc.Text
		case *mcp.TextContent:
			return tc.Text
		}
	}
	return ""
}

// CoerceString accepts a JSON string.
func CoerceString(v any) (string, bool) {
	s, ok := v.(string)
	return s, ok
}

// CoerceNumber accepts JSON numbers, Go integer types and numeric strings.
func CoerceNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0, false
		}
		return f, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

// CoerceBool accepts JSON booleans and the strings "true"/"false".
func CoerceBool(v any) (bool, bool) {
	switch b := v.(type) {
	case bool:
		return b, true
	case string:
		switch strings.ToLower(strings.TrimSpace(b)) {
		case "true":
			return true, true
		case "false":
			return false, true
		}
	}
	return false, false
}
