package models

import "time"

// TokenKind classifies a normalized source token.
type TokenKind string

const (
	TokenKeyword  TokenKind = "KEYWORD"
	TokenIdent    TokenKind = "IDENT"
	TokenLiteral  TokenKind = "LITERAL"
	TokenOperator TokenKind = "OPERATOR"
	TokenPunct    TokenKind = "PUNCT"
	TokenOther    TokenKind = "OTHER"
)

// Token is a normalized source token. Value is the canonical form: keywords,
// operators and number literals verbatim, string literals collapsed to a
// placeholder, identifiers replaced by positional placeholders so renamed
// copies produce identical sequences.
type Token struct {
	Kind  TokenKind `json:"kind"`
	Value string    `json:"value"`
}

// Fingerprint identifies one k-token window of a submission.
type Fingerprint struct {
	Hash     uint64 `bson:"hash" json:"hash"`
	Position int    `bson:"position" json:"position"`
}

// Submission is an ingested piece of source code. Immutable once created;
// re-submitting requires a new id.
type Submission struct {
	ID           string        `bson:"submissionId" json:"submissionId"`
	Language     string        `bson:"language" json:"language"`
	Label        string        `bson:"label" json:"label"`
	SourceCode   string        `bson:"sourceCode" json:"sourceCode"`
	Tokens       []Token       `bson:"tokens" json:"tokens"`
	Fingerprints []Fingerprint `bson:"fingerprints" json:"fingerprints"`
	Degraded     bool          `bson:"degraded" json:"degraded"`
	IngestedAt   time.Time     `bson:"ingestedAt" json:"ingestedAt"`
}
