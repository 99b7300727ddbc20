//go:build onnx

package scorer

import (
	"strings"
	"unicode"
)

const (
	clsTokenID int64 = 101
	sepTokenID int64 = 102
	unkTokenID int64 = 100
)

// tokenizePair performs basic WordPiece-style tokenization of a
// premise/hypothesis pair for a cross-encoder sequence-pair input:
// [CLS] premise [SEP] hypothesis [SEP], padded/truncated to maxLen, with
// token_type_ids marking the hypothesis segment.
func tokenizePair(premise, hypothesis string, maxLen int) (inputIDs, attentionMask, tokenTypeIDs []int64) {
	premiseTokens := splitTokens(strings.ToLower(premise))
	hypTokens := splitTokens(strings.ToLower(hypothesis))

	tokens := make([]int64, 0, maxLen)
	types := make([]int64, 0, maxLen)

	tokens = append(tokens, clsTokenID)
	types = append(types, 0)

	budget := maxLen - 3 // reserve [CLS], two [SEP]
	halfBudget := budget / 2
	if len(premiseTokens) > halfBudget {
		premiseTokens = premiseTokens[:halfBudget]
	}
	for _, w := range premiseTokens {
		tokens = append(tokens, hashToken(w))
		types = append(types, 0)
	}
	tokens = append(tokens, sepTokenID)
	types = append(types, 0)

	remaining := maxLen - len(tokens) - 1 // reserve trailing [SEP]
	if remaining < 0 {
		remaining = 0
	}
	if len(hypTokens) > remaining {
		hypTokens = hypTokens[:remaining]
	}
	for _, w := range hypTokens {
		tokens = append(tokens, hashToken(w))
		types = append(types, 1)
	}
	tokens = append(tokens, sepTokenID)
	types = append(types, 1)

	inputIDs = make([]int64, maxLen)
	attentionMask = make([]int64, maxLen)
	tokenTypeIDs = make([]int64, maxLen)

	copy(inputIDs, tokens)
	copy(tokenTypeIDs, types)
	for i := 0; i < len(tokens) && i < maxLen; i++ {
		attentionMask[i] = 1
	}
	return inputIDs, attentionMask, tokenTypeIDs
}

// splitTokens splits text into word and punctuation tokens.
func splitTokens(text string) []string {
	var tokens []string
	var current strings.Builder

	for _, r := range text {
		if unicode.IsSpace(r) {
			if current.Len() > 0 {
				tokens = append(tokens, current.String())
				current.Reset()
			}
			continue
		}
		if unicode.IsPunct(r) || unicode.IsSymbol(r) {
			if current.Len() > 0 {
				tokens = append(tokens, current.String())
				current.Reset()
			}
			tokens = append(tokens, string(r))
			continue
		}
		current.WriteRune(r)
	}
	if current.Len() > 0 {
		tokens = append(tokens, current.String())
	}
	return tokens
}

// hashToken maps a word to a token ID in the vocabulary range [1000, 30520].
// This is a deterministic hash, not a real WordPiece lookup.
func hashToken(word string) int64 {
	if word == "" {
		return unkTokenID
	}
	var h uint64
	for _, c := range word {
		h = h*31 + uint64(c)
	}
	return int64(h%29521) + 1000
}
