package common

import "strconv"

// AtoiDefault parses value as an integer, returning def when value is empty
// or unparsable. Query-parameter parsing never needs the error.
func AtoiDefault(value string, def int) int {
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}
