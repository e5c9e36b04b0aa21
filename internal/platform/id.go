package platform

import (
	"crypto/rand"

	"github.com/google/uuid"
)

const referenceAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"
const referenceLength = 8

func NewID() string {
	return uuid.New().String()
}

// NewReference generates a short human-readable code for citizen-facing
// identifiers, e.g. "SR-K7M2Q9XW". The alphabet omits easily confused
// characters.
func NewReference(prefix string) string {
	b := make([]byte, referenceLength)
	if _, err := rand.Read(b); err != nil {
		panic("crypto/rand: " + err.Error())
	}
	for i := range b {
		b[i] = referenceAlphabet[b[i]%byte(len(referenceAlphabet))]
	}
	return prefix + "-" + string(b)
}
