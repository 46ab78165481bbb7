package registry

import (
	crand "crypto/rand"
	"errors"
	"math/big"
)

// codeAlphabet omits visually ambiguous glyphs (I, L, O, 0, 1) so codes
// survive being read off a projector.
const codeAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

const codeLength = 4

// ErrCodeSpaceExhausted means rejection sampling could not find a free
// code. With a 31^4 space this only happens if something is very wrong.
var ErrCodeSpaceExhausted = errors.New("room code space exhausted")

// generateCode draws codes from crypto/rand until one misses the taken
// set. Secure randomness matters here: codes must not be guessable from
// earlier ones.
func generateCode(taken func(string) bool) (string, error) {
	const maxAttempts = 1000
	buf := make([]byte, codeLength)
	for attempt := 0; attempt < maxAttempts; attempt++ {
		for i := range buf {
			n, err := crand.Int(crand.Reader, big.NewInt(int64(len(codeAlphabet))))
			if err != nil {
				return "", err
			}
			buf[i] = codeAlphabet[n.Int64()]
		}
		code := string(buf)
		if !taken(code) {
			return code, nil
		}
	}
	return "", ErrCodeSpaceExhausted
}
