package crypto

import (
	"crypto/rand"
	"errors"
	"math"
)

const (
	// Base36 matches the digit set of a base-36 number rendering.
	Base36 = "0123456789abcdefghijklmnopqrstuvwxyz"

	// ResetFragmentSize is the length of each half of a reset token.
	ResetFragmentSize = 13

	maxAlphabetSize = 255
	minAlphabetSize = 8
)

var (
	ErrAlphabetTooLong  = errors.New("alphabet must contain no more than 255 characters")
	ErrAlphabetTooShort = errors.New("alphabet must contain at least 8 characters")
	ErrAlphabetNotASCII = errors.New("alphabet must contain only ASCII characters")
	ErrInvalidSize      = errors.New("size must be positive")
)

func getMask(alphabetLen int) int {
	for i := 1; i <= 8; i++ {
		mask := (2 << uint(i)) - 1
		if mask > alphabetLen-1 {
			return mask
		}
	}
	return maxAlphabetSize
}

// RandomString draws size characters uniformly from alphabet using
// crypto/rand with mask-and-reject sampling.
func RandomString(alphabet string, size int) (string, error) {
	if size <= 0 {
		return "", ErrInvalidSize
	}
	if len(alphabet) > maxAlphabetSize {
		return "", ErrAlphabetTooLong
	}
	if len(alphabet) < minAlphabetSize {
		return "", ErrAlphabetTooShort
	}
	for i := 0; i < len(alphabet); i++ {
		if alphabet[i] > 127 {
			return "", ErrAlphabetNotASCII
		}
	}

	mask := getMask(len(alphabet))
	step := int(math.Ceil(1.6 * float64(mask*size) / float64(len(alphabet))))

	id := make([]byte, size)
	buffer := make([]byte, step)

	for position := 0; position < size; {
		if _, err := rand.Read(buffer); err != nil {
			return "", err
		}
		for i := 0; i < step && position < size; i++ {
			index := buffer[i] & byte(mask)
			if int(index) < len(alphabet) {
				id[position] = alphabet[index]
				position++
			}
		}
	}

	return string(id), nil
}

// NewResetToken mints a password reset token: two independently drawn base-36
// fragments, concatenated.
func NewResetToken() (string, error) {
	first, err := RandomString(Base36, ResetFragmentSize)
	if err != nil {
		return "", err
	}
	second, err := RandomString(Base36, ResetFragmentSize)
	if err != nil {
		return "", err
	}
	return first + second, nil
}
