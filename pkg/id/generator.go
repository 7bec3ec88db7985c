// Package id generates identifiers for localization runs.
package id

import (
	"encoding/hex"
	"strings"

	"github.com/google/uuid"
)

const runPrefix = "run-"

// Generator produces unique identifiers.
type Generator func() string

// Generate generates a new unique ID.
func Generate() string {
	return uuid.New().String()
}

// RunID returns a short run identifier such as "run-1a2b3c4d".
func RunID() string {
	u := uuid.New()
	return runPrefix + hex.EncodeToString(u[:4])
}

// IsRunID reports whether s was produced by RunID or Generate.
func IsRunID(s string) bool {
	if rest, ok := strings.CutPrefix(s, runPrefix); ok {
		if len(rest) != 8 {
			return false
		}
		_, err := hex.DecodeString(rest)
		return err == nil
	}
	_, err := uuid.Parse(s)
	return err == nil
}
