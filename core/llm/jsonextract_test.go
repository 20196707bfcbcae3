package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractJSON(t *testing.T) {
	type payload struct {
		Response        string   `json:"response"`
		Recommendations []string `json:"recommendations"`
	}

	tests := []struct {
		name    string
		input   string
		wantErr bool
		want    string
	}{
		{
			name:  "strict JSON",
			input: `{"response":"sow wheat","recommendations":["irrigate weekly"]}`,
			want:  "sow wheat",
		},
		{
			name:  "fenced json block",
			input: "Here you go:\n```json\n{\"response\":\"sow wheat\"}\n```\nDone.",
			want:  "sow wheat",
		},
		{
			name:  "bare fence",
			input: "```\n{\"response\":\"sow wheat\"}\n```",
			want:  "sow wheat",
		},
		{
			name:  "prose around braces",
			input: `Sure! {"response":"sow wheat"} Hope that helps.`,
			want:  "sow wheat",
		},
		{
			name:    "no JSON at all",
			input:   "I cannot answer that.",
			wantErr: true,
		},
		{
			name:    "empty",
			input:   "",
			wantErr: true,
		},
		{
			name:    "malformed braces",
			input:   `{"response": "unterminated`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var p payload
			err := ExtractJSON(tt.input, &p)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrNoJSON)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, p.Response)
		})
	}
}

func TestExtractJSONArray(t *testing.T) {
	got, err := ExtractJSONArray("```json\n[\"weather_watcher\", \"soil_health\"]\n```")
	require.NoError(t, err)
	assert.Equal(t, []string{"weather_watcher", "soil_health"}, got)

	got, err = ExtractJSONArray(`The relevant agents are: ["crop_selector"] based on the query.`)
	require.NoError(t, err)
	assert.Equal(t, []string{"crop_selector"}, got)

	_, err = ExtractJSONArray("no array here")
	assert.ErrorIs(t, err, ErrNoJSON)
}

func TestIsSoftFailure(t *testing.T) {
	assert.True(t, IsSoftFailure("Error: quota exceeded for this project"))
	assert.True(t, IsSoftFailure("You have hit the rate limit."))
	assert.False(t, IsSoftFailure(""))
	assert.False(t, IsSoftFailure("Sowing now avoids the monsoon peak."))

	// Long advisory answers mentioning throttling terms are not soft failures.
	long := "When selling at the mandi you may face a rate limit on daily arrivals. "
	for len(long) < 500 {
		long += long
	}
	assert.False(t, IsSoftFailure(long))
}
