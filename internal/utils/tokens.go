package utils

// Token estimation for bounding prompt payloads. The 4-characters-per-token
// heuristic is coarse but errs on the safe side for English instructions and
// pipe-separated sample rows.

// CountTokens estimates the token count of text. Non-empty text always
// counts as at least one token.
func CountTokens(text string) int {
	if len(text) == 0 {
		return 0
	}
	tokens := len([]rune(text)) / 4
	if tokens == 0 {
		return 1
	}
	return tokens
}

// TruncateToTokenLimit cuts text to roughly fit within limit tokens, using
// the same heuristic as CountTokens.
func TruncateToTokenLimit(text string, limit int) string {
	if limit <= 0 {
		return ""
	}
	runes := []rune(text)
	charLimit := limit * 4
	if charLimit >= len(runes) {
		return text
	}
	return string(runes[:charLimit])
}
