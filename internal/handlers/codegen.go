package handlers

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
)

// codeAlphabet omits visually ambiguous characters (I, L, O, 0, 1) so codes
// survive being read aloud or copied from paper.
const codeAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

const (
	codeSegmentLen = 4
	codeSegments   = 2
	codeSeparator  = "-"

	// maxCodeAttempts bounds the collision-retry loop per code. With a
	// 31^8 token space, hitting it means something is wrong with the RNG
	// or the table, not bad luck.
	maxCodeAttempts = 5

	// MaxCodesPerBatch caps a single generation request.
	MaxCodesPerBatch = 500
)

// newCodeToken generates one random human-readable code like "K3FP-W7XA".
// Declared as a variable so tests can force token collisions.
var newCodeToken = func() (string, error) {
	segments := make([]string, codeSegments)
	for s := range segments {
		var sb strings.Builder
		for i := 0; i < codeSegmentLen; i++ {
			idx, err := rand.Int(rand.Reader, big.NewInt(int64(len(codeAlphabet))))
			if err != nil {
				return "", fmt.Errorf("generating code: %w", err)
			}
			sb.WriteByte(codeAlphabet[idx.Int64()])
		}
		segments[s] = sb.String()
	}
	return strings.Join(segments, codeSeparator), nil
}

// NormalizeCode canonicalizes user input before lookup: codes are issued
// uppercase and participants type them from emails or printed slips.
func NormalizeCode(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}
