package stream

import (
	"fmt"

	"github.com/RishiKendai/argus/internal/models"
)

// StreamMessage is one raw entry read from the submissions stream.
type StreamMessage struct {
	ID     string
	Fields map[string]string
}

// ParseSubmission extracts an ingest request from a stream message.
// submissionId and sourceCode are required; language and label are optional
// (a missing language degrades tokenization but still ingests).
func ParseSubmission(msg *StreamMessage) (*models.IngestRequest, error) {
	id, ok := msg.Fields["submissionId"]
	if !ok || id == "" {
		return nil, fmt.Errorf("message %s: missing submissionId field", msg.ID)
	}

	source, ok := msg.Fields["sourceCode"]
	if !ok {
		return nil, fmt.Errorf("message %s: missing sourceCode field", msg.ID)
	}

	return &models.IngestRequest{
		SubmissionID: id,
		SourceCode:   source,
		Language:     msg.Fields["language"],
		Label:        msg.Fields["label"],
	}, nil
}
