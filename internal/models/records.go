package models

import (
	"time"
)

// MetadataRecord is the per-submission record stored in the metadata index.
type MetadataRecord struct {
	SubmissionID     string    `bson:"submissionId" json:"submissionId"`
	Language         string    `bson:"language" json:"language"`
	Label            string    `bson:"label" json:"label"`
	ClusterID        string    `bson:"clusterId" json:"clusterId"`
	Representative   bool      `bson:"representative" json:"representative"`
	AvgSimilarity    float64   `bson:"avgSimilarity" json:"avgSimilarity"`
	Degraded         bool      `bson:"degraded" json:"degraded"`
	TokenCount       int       `bson:"tokenCount" json:"tokenCount"`
	FingerprintCount int       `bson:"fingerprintCount" json:"fingerprintCount"`
	IngestedAt       time.Time `bson:"ingestedAt" json:"ingestedAt"`
}

// SimilarityPair is one scored edge of the similarity graph.
type SimilarityPair struct {
	SubmissionA string  `bson:"submissionA" json:"submissionA"`
	SubmissionB string  `bson:"submissionB" json:"submissionB"`
	Score       float64 `bson:"score" json:"score"`
	SharedCount int     `bson:"sharedCount" json:"sharedCount"`
}

// ClusterInfo describes one connected component of the similarity graph.
// ClusterID is the smallest member id; Representative is the member with the
// highest average similarity to the rest of the cluster.
type ClusterInfo struct {
	ClusterID      string   `bson:"clusterId" json:"clusterId"`
	Members        []string `bson:"members" json:"members"`
	Representative string   `bson:"representative" json:"representative"`
}

// FragmentMatch locates one shared run of tokens between two submissions.
type FragmentMatch struct {
	StartA int `json:"startA"`
	StartB int `json:"startB"`
	Length int `json:"length"`
}

// ClusterReport is a persisted snapshot of the cluster state of the corpus.
type ClusterReport struct {
	ReportID         string        `bson:"reportId" json:"reportId"`
	TotalSubmissions int           `bson:"totalSubmissions" json:"totalSubmissions"`
	TotalClusters    int           `bson:"totalClusters" json:"totalClusters"`
	FlaggedClusters  int           `bson:"flaggedClusters" json:"flaggedClusters"` // clusters with 2+ members
	Clusters         []ClusterInfo `bson:"clusters" json:"clusters"`
	GeneratedAt      time.Time     `bson:"generatedAt" json:"generatedAt"`
}

// IngestAudit is the archival trace of one committed ingest, written after
// the in-memory commit succeeds.
type IngestAudit struct {
	SubmissionID string    `bson:"submissionId" json:"submissionId"`
	ClusterID    string    `bson:"clusterId" json:"clusterId"`
	EdgeCount    int       `bson:"edgeCount" json:"edgeCount"`
	Degraded     bool      `bson:"degraded" json:"degraded"`
	Source       string    `bson:"source" json:"source"` // "api" or "stream"
	MessageID    string    `bson:"messageId,omitempty" json:"messageId,omitempty"`
	CreatedAt    time.Time `bson:"createdAt" json:"createdAt"`
}

// IngestRequest is the payload for the ingest endpoint.
type IngestRequest struct {
	SubmissionID string `json:"submissionId" binding:"required"`
	Language     string `json:"language"`
	Label        string `json:"label"`
	SourceCode   string `json:"sourceCode"`
}

// IngestResponse reports the outcome of an accepted ingest.
type IngestResponse struct {
	SubmissionID string `json:"submissionId"`
	ClusterID    string `json:"clusterId"`
	EdgeCount    int    `json:"edgeCount"`
	Degraded     bool   `json:"degraded"`
}

// ErrorResponse represents a standard error response
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}
