// Package address repairs malformed token and account addresses received
// from upstream feed aggregators. Observed corruption splices marketing
// tag fragments (e.g. "pump") into the middle of a base58 account key.
package address

import (
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"
)

const (
	// Base58 length bounds for a 32-byte account key
	minAddressLen = 32
	maxAddressLen = 44

	pubkeyByteLen = 32
)

// DefaultNoisePatterns are the fragments known to get spliced into
// addresses by feed aggregators.
var DefaultNoisePatterns = []string{"pump", "bonk", "moon"}

// Recoverer repairs corrupted addresses by searching over candidate
// strings. It holds no mutable state and is safe for concurrent use.
type Recoverer struct {
	patterns []string
}

// NewRecoverer creates a Recoverer with the given noise patterns, or the
// defaults when none are provided.
func NewRecoverer(patterns ...string) *Recoverer {
	if len(patterns) == 0 {
		patterns = DefaultNoisePatterns
	}
	lowered := make([]string, len(patterns))
	for i, p := range patterns {
		lowered[i] = strings.ToLower(p)
	}
	return &Recoverer{patterns: lowered}
}

// Recover attempts to repair raw into a valid account address. It runs a
// breadth-first search from the raw input: each step strips one
// occurrence of a noise pattern, and over-long candidates additionally
// spawn front- and tail-truncated variants. The first candidate that
// passes the validity check wins, so the result is the valid string with
// the fewest edits from the input. Already-valid input is returned
// unchanged.
func (r *Recoverer) Recover(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}

	queue := []string{raw}
	visited := map[string]bool{raw: true}

	for len(queue) > 0 {
		candidate := queue[0]
		queue = queue[1:]

		if IsValid(candidate) {
			return candidate, true
		}

		for _, next := range r.expand(candidate) {
			if !visited[next] {
				visited[next] = true
				queue = append(queue, next)
			}
		}
	}

	return "", false
}

// expand produces the next generation of candidates for one string
func (r *Recoverer) expand(candidate string) []string {
	var out []string
	lower := strings.ToLower(candidate)

	for _, pattern := range r.patterns {
		for from := 0; ; {
			idx := strings.Index(lower[from:], pattern)
			if idx < 0 {
				break
			}
			at := from + idx
			out = append(out, candidate[:at]+candidate[at+len(pattern):])
			from = at + 1
		}
	}

	if len(candidate) > maxAddressLen {
		out = append(out,
			candidate[len(candidate)-maxAddressLen:], // front-truncated
			candidate[:maxAddressLen],                // tail-truncated
		)
	}

	return out
}

// IsValid reports whether s is a well-formed account address: base58
// within the length bounds, decoding to exactly 32 bytes that form a
// point on the ed25519 curve.
func IsValid(s string) bool {
	if len(s) < minAddressLen || len(s) > maxAddressLen {
		return false
	}

	decoded, err := base58.Decode(s)
	if err != nil || len(decoded) != pubkeyByteLen {
		return false
	}

	return solana.PublicKeyFromBytes(decoded).IsOnCurve()
}
