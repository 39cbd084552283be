package expr

import "strconv"

// parseIntLiteral and parseFloatLiteral convert lexed digit text into Go
// numbers. The lexer guarantees well-formed input, so parse errors here
// would indicate a lexer bug, not bad user input; they are treated as 0
// rather than panicking, keeping the parser free of internal panics.
func parseIntLiteral(text string) int64 {
	v, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return 0
	}
	return v
}

func parseFloatLiteral(text string) float64 {
	v, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return 0
	}
	return v
}
