package ai

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractJSON_FencedBlock(t *testing.T) {
	raw := "Here is your program:\n```json\n{\"routines\": []}\n```\nHope it helps!"
	assert.Equal(t, `{"routines": []}`, ExtractJSON(raw))

	// Fence without a language tag works too.
	raw = "```\n{\"a\": 1}\n```"
	assert.Equal(t, `{"a": 1}`, ExtractJSON(raw))
}

func TestExtractJSON_SurroundingProse(t *testing.T) {
	raw := `Sure! {"routines": [{"title": "Day 1"}]} Let me know.`
	assert.Equal(t, `{"routines": [{"title": "Day 1"}]}`, ExtractJSON(raw))
}

func TestExtractJSON_NoJSON(t *testing.T) {
	// Nothing brace-like: the input passes through unchanged.
	assert.Equal(t, "no json here", ExtractJSON("  no json here  "))
}

func TestRepairJSON_TrailingCommas(t *testing.T) {
	broken := `{"routines": [{"title": "Day 1",}],}`
	repaired := RepairJSON(broken)

	var out map[string]any
	require.NoError(t, json.Unmarshal([]byte(repaired), &out))
}

func TestRepairJSON_Comments(t *testing.T) {
	broken := `{
	// day one of the split
	"title": "Day 1",
	"sets": 3 /* working sets only */
}`
	repaired := RepairJSON(broken)

	var out map[string]any
	require.NoError(t, json.Unmarshal([]byte(repaired), &out))
	assert.Equal(t, "Day 1", out["title"])
	assert.Equal(t, float64(3), out["sets"])
}

func TestRepairJSON_SmartQuotes(t *testing.T) {
	broken := "{“title”: “Day 1”}"
	repaired := RepairJSON(broken)

	var out map[string]string
	require.NoError(t, json.Unmarshal([]byte(repaired), &out))
	assert.Equal(t, "Day 1", out["title"])
}

func TestRepairJSON_AdjacentValues(t *testing.T) {
	broken := `[{"a": 1} {"b": 2}]`
	repaired := RepairJSON(broken)

	var out []map[string]any
	require.NoError(t, json.Unmarshal([]byte(repaired), &out))
	require.Len(t, out, 2)
}

func TestRepairJSON_Deterministic(t *testing.T) {
	broken := "junk before {“a”: [1, 2,], } junk after"
	assert.Equal(t, RepairJSON(broken), RepairJSON(broken))
}
