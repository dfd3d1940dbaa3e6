package pastes

import (
	"crypto/rand"
	"math/big"
)

const (
	// idAlphabet omits 0/O, 1/I/l so identifiers survive being read aloud or retyped.
	idAlphabet = "23456789ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz"
	// GeneratedIDLength is the length of identifiers issued at creation.
	GeneratedIDLength = 8
)

var idAlphabetSize = big.NewInt(int64(len(idAlphabet)))

type randomIDProvider struct {
	length int
}

// NewRandomIDProvider constructs an IDProvider issuing short URL-safe identifiers.
func NewRandomIDProvider() IDProvider {
	return &randomIDProvider{length: GeneratedIDLength}
}

func (p *randomIDProvider) NewID() (string, error) {
	result := make([]byte, p.length)
	for i := range result {
		n, err := rand.Int(rand.Reader, idAlphabetSize)
		if err != nil {
			return "", err
		}
		result[i] = idAlphabet[n.Int64()]
	}
	return string(result), nil
}
