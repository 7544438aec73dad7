package utils // package utils provides hashing and one-time code helpers

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// GenerateOTP returns a numeric code of exactly digits characters, drawn
// uniformly from [10^(digits-1), 10^digits-1] so it never has a leading
// zero.  For five digits that is [10000, 99999].
func GenerateOTP(digits int) (string, error) {
	if digits < 1 || digits > 18 {
		return "", fmt.Errorf("otp length %d out of range", digits)
	}
	low := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(digits-1)), nil)
	span := new(big.Int).Sub(new(big.Int).Mul(low, big.NewInt(10)), low) // 9 * 10^(digits-1)
	n, err := rand.Int(rand.Reader, span)
	if err != nil {
		return "", fmt.Errorf("read random: %w", err)
	}
	return n.Add(n, low).String(), nil
}
