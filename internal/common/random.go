package common

import (
	"crypto/rand"
	"encoding/hex"
	"math/big"
	"strconv"
)

// MakeRandHexString generates a random hexadecimal string from size random
// bytes, so the final string length is twice the size. It returns an error
// if the random number generator fails.
func MakeRandHexString(size int) (string, error) {
	b := make([]byte, size)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// MakeVerificationCode generates a random 7-digit numeric code in the range
// 1000000..9999999, the format embedded in verification email links. The
// range is wide enough to resist online guessing while staying typo-friendly.
func MakeVerificationCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(9000000))
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(n.Int64()+1000000, 10), nil
}
