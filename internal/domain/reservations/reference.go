package reservations

import (
	"context"
	"crypto/rand"
	"errors"
	"math/big"
)

// MaxReferenceAttempts bounds collision retries when generating a booking reference.
const MaxReferenceAttempts = 10

const (
	referencePrefix   = "RSV-"
	referenceAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	referenceLength   = 6
)

var ErrReferenceExhausted = errors.New("reservations: could not allocate a unique booking reference")

// ReferenceSource produces candidate booking references.
type ReferenceSource func() (string, error)

// RandomReference draws an RSV-XXXXXX reference from crypto/rand.
func RandomReference() (string, error) {
	buf := make([]byte, referenceLength)
	max := big.NewInt(int64(len(referenceAlphabet)))
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		buf[i] = referenceAlphabet[n.Int64()]
	}
	return referencePrefix + string(buf), nil
}

// AllocateReference draws references from source until one is unused.
func AllocateReference(ctx context.Context, repo Repository, source ReferenceSource) (string, error) {
	if source == nil {
		source = RandomReference
	}
	for attempt := 0; attempt < MaxReferenceAttempts; attempt++ {
		candidate, err := source()
		if err != nil {
			return "", err
		}
		taken, err := repo.ReferenceExists(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
	}
	return "", ErrReferenceExhausted
}
