package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractJSONBlock(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
		ok   bool
	}{
		{
			name: "fenced json block",
			text: "Here you go:\n```json\n{\"relevant_ids\": [\"1\"]}\n```\nDone.",
			want: `{"relevant_ids": ["1"]}`,
			ok:   true,
		},
		{
			name: "fence without language tag",
			text: "```\n{\"a\": 1}\n```",
			want: `{"a": 1}`,
			ok:   true,
		},
		{
			name: "bare braces fallback",
			text: `The answer is {"urgent_ids": []} as requested.`,
			want: `{"urgent_ids": []}`,
			ok:   true,
		},
		{
			name: "outermost braces win",
			text: `{"outer": {"inner": 1}}`,
			want: `{"outer": {"inner": 1}}`,
			ok:   true,
		},
		{
			name: "no json at all",
			text: "sorry, I cannot help with that",
			want: "",
			ok:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ExtractJSONBlock(tt.text)

			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStripJSONBlock(t *testing.T) {
	text := "Summary of findings.\n```json\n{\"a\": 1}\n```"

	assert.Equal(t, "Summary of findings.", StripJSONBlock(text))
	assert.Equal(t, "plain prose", StripJSONBlock("plain prose"))
}
