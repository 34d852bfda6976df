package stream

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSubmission(t *testing.T) {
	msg := &StreamMessage{
		ID: "1700000000000-0",
		Fields: map[string]string{
			"submissionId": "sub-42",
			"sourceCode":   "def f(x):\n    return x\n",
			"language":     "python",
			"label":        "alice",
		},
	}

	req, err := ParseSubmission(msg)
	require.NoError(t, err)
	assert.Equal(t, "sub-42", req.SubmissionID)
	assert.Equal(t, "python", req.Language)
	assert.Equal(t, "alice", req.Label)
	assert.NotEmpty(t, req.SourceCode)
}

func TestParseSubmissionOptionalFields(t *testing.T) {
	msg := &StreamMessage{
		ID: "1-0",
		Fields: map[string]string{
			"submissionId": "sub-1",
			"sourceCode":   "",
		},
	}

	req, err := ParseSubmission(msg)
	require.NoError(t, err)
	assert.Empty(t, req.Language, "language is optional, tokenization degrades instead")
	assert.Empty(t, req.Label)
}

func TestParseSubmissionMissingRequiredFields(t *testing.T) {
	tests := []struct {
		name   string
		fields map[string]string
	}{
		{"no submissionId", map[string]string{"sourceCode": "x"}},
		{"empty submissionId", map[string]string{"submissionId": "", "sourceCode": "x"}},
		{"no sourceCode", map[string]string{"submissionId": "sub-1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseSubmission(&StreamMessage{ID: "1-0", Fields: tt.fields})
			assert.Error(t, err)
		})
	}
}
