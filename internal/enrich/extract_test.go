package enrich

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	Summary string `json:"summary"`
	Score   int    `json:"score"`
}

func TestExtractJSONObject_BareJSON(t *testing.T) {
	var p payload
	require.NoError(t, ExtractJSONObject(`{"summary": "s", "score": 80}`, &p))
	assert.Equal(t, payload{Summary: "s", Score: 80}, p)
}

func TestExtractJSONObject_StripsCodeFences(t *testing.T) {
	var p payload
	in := "```json\n{\"summary\": \"fenced\", \"score\": 70}\n```"
	require.NoError(t, ExtractJSONObject(in, &p))
	assert.Equal(t, "fenced", p.Summary)

	in = "```\n{\"summary\": \"plain fence\"}\n```"
	require.NoError(t, ExtractJSONObject(in, &p))
	assert.Equal(t, "plain fence", p.Summary)
}

func TestExtractJSONObject_IgnoresSurroundingProse(t *testing.T) {
	var p payload
	in := `Sure! Here is the analysis you asked for:
{"summary": "embedded", "score": 60}
Let me know if you need anything else.`
	require.NoError(t, ExtractJSONObject(in, &p))
	assert.Equal(t, "embedded", p.Summary)
}

func TestExtractJSONObject_NoObject(t *testing.T) {
	var p payload
	err := ExtractJSONObject("no json here", &p)
	assert.ErrorIs(t, err, ErrNoJSONObject)
}

func TestExtractJSONObject_MalformedJSON(t *testing.T) {
	var p payload
	err := ExtractJSONObject(`{"summary": `+"\n}", &p)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoJSONObject)
}
