package tokenizer

import (
	"testing"

	"github.com/RishiKendai/argus/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenizeRenamedIdentifiersCanonicalize(t *testing.T) {
	r := NewRegistry()

	srcA := "for i in xs:\n    total += i\n"
	srcB := "for j in ys:\n    count += j\n"

	tokensA, degradedA := r.Tokenize(srcA, "python")
	tokensB, degradedB := r.Tokenize(srcB, "python")

	require.False(t, degradedA)
	require.False(t, degradedB)
	assert.Equal(t, tokensA, tokensB, "consistently renamed identifiers must produce identical sequences")
}

func TestTokenizeIdentifierSlotsByFirstOccurrence(t *testing.T) {
	r := NewRegistry()

	tokens, degraded := r.Tokenize("foo = bar + foo", "python")
	require.False(t, degraded)

	var idents []string
	for _, tok := range tokens {
		if tok.Kind == models.TokenIdent {
			idents = append(idents, tok.Value)
		}
	}
	assert.Equal(t, []string{"IDENT_0", "IDENT_1", "IDENT_0"}, idents)
}

func TestTokenizeStripsCommentsAndCollapsesStrings(t *testing.T) {
	r := NewRegistry()

	src := "# setup\nname = \"alice in wonderland\"\n"
	tokens, degraded := r.Tokenize(src, "python")
	require.False(t, degraded)

	values := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		values = append(values, tok.Value)
	}
	assert.NotContains(t, values, "setup", "comment text must not survive tokenization")
	assert.NotContains(t, values, "alice", "string contents must not survive tokenization")
	assert.Contains(t, values, "STR")
}

func TestTokenizeKeywordsPreserved(t *testing.T) {
	r := NewRegistry()

	tokens, _ := r.Tokenize("if x: return x", "python")
	require.NotEmpty(t, tokens)
	assert.Equal(t, models.TokenKeyword, tokens[0].Kind)
	assert.Equal(t, "if", tokens[0].Value)
}

func TestTokenizeUnknownLanguageDegrades(t *testing.T) {
	r := NewRegistry()

	tokens, degraded := r.Tokenize("func main() { println(42) }", "go")
	assert.True(t, degraded)
	assert.NotEmpty(t, tokens, "degraded tokenization must still produce tokens")
}

func TestTokenizeEmptySource(t *testing.T) {
	r := NewRegistry()

	tokens, degraded := r.Tokenize("", "python")
	assert.False(t, degraded)
	assert.Empty(t, tokens)
}

func TestTokenizeBlockInsensitiveReorderedFunctions(t *testing.T) {
	r := NewRegistry()

	srcA := "def alpha(a):\n    return a + 1\n\ndef beta(b):\n    return b * 2\n"
	srcB := "def beta(b):\n    return b * 2\n\ndef alpha(a):\n    return a + 1\n"

	tokensA, degradedA := r.TokenizeBlockInsensitive(srcA, "python")
	tokensB, degradedB := r.TokenizeBlockInsensitive(srcB, "python")

	require.False(t, degradedA)
	require.False(t, degradedB)
	assert.Equal(t, tokensA, tokensB, "reordering top-level functions must not change the sequence")

	// Plain tokenization stays order-sensitive.
	plainA, _ := r.Tokenize(srcA, "python")
	plainB, _ := r.Tokenize(srcB, "python")
	assert.NotEqual(t, plainA, plainB)
}

func TestTokenizeBlockInsensitiveSingleBlockUnchanged(t *testing.T) {
	r := NewRegistry()

	src := "def add(a, b):\n    return a + b\n"
	plain, _ := r.Tokenize(src, "python")
	sorted, _ := r.TokenizeBlockInsensitive(src, "python")

	assert.Equal(t, plain, sorted, "a single block must tokenize identically in both modes")
}

func TestTokenizeSubmissionModeByLanguage(t *testing.T) {
	r := NewRegistry()

	srcA := "def alpha(a):\n    return a + 1\n\ndef beta(b):\n    return b * 2\n"
	srcB := "def beta(b):\n    return b * 2\n\ndef alpha(a):\n    return a + 1\n"

	pyA, _ := r.TokenizeSubmission(srcA, "python")
	pyB, _ := r.TokenizeSubmission(srcB, "python")
	assert.Equal(t, pyA, pyB, "python submissions tokenize block-order-insensitively")

	jsA, _ := r.TokenizeSubmission("var a = 1; var b = 2;", "javascript")
	plain, _ := r.Tokenize("var a = 1; var b = 2;", "javascript")
	assert.Equal(t, plain, jsA, "non-python submissions keep the plain sequence")
}

func TestDetectLanguage(t *testing.T) {
	tests := []struct {
		filename string
		want     string
	}{
		{"solution.py", "python"},
		{"Main.java", "java"},
		{"main.cpp", "cpp"},
		{"util.h", "cpp"},
		{"app.js", "javascript"},
		{"app.tsx", "javascript"},
		{"script.rb", "generic"},
		{"README", "generic"},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectLanguage(tt.filename))
		})
	}
}
