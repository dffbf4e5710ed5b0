package platform

import (
	"crypto/rand"

	"github.com/google/uuid"
)

const refAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
const refLength = 12

// NewID returns a UUIDv7. IDs minted later sort later, which keeps case and
// alert inserts at the right edge of their primary key indexes.
func NewID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New().String()
	}
	return id.String()
}

// NewRef returns prefix followed by a random lowercase token. Used for
// references handed out by in-process providers.
func NewRef(prefix string) string {
	b := make([]byte, refLength)
	if _, err := rand.Read(b); err != nil {
		panic("crypto/rand: " + err.Error())
	}
	for i := range b {
		b[i] = refAlphabet[b[i]%byte(len(refAlphabet))]
	}
	return prefix + string(b)
}
