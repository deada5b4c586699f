// Package idgen is the ID service: the one place that generates random
// identifiers, one-time codes, and tokens. It does not provide a clock;
// the other components read wall-clock time with time.Now directly.
package idgen

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"math/big"

	"github.com/google/uuid"
)

// pairCodeAlphabet excludes characters easily confused by a human reading
// them off a screen: 0/O, 1/I/L.
const pairCodeAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

const otpMin = 10_000_000
const otpSpan = 90_000_000 // otp uniform in [10_000_000, 100_000_000)

// NewUUID returns a random textual UUID, used for OTP session ids and RTC
// session ids.
func NewUUID() string {
	return uuid.NewString()
}

// NewOTP returns an 8-digit decimal code uniform in [10_000_000, 100_000_000).
func NewOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(otpSpan))
	if err != nil {
		return "", fmt.Errorf("idgen: generate otp: %w", err)
	}
	return fmt.Sprintf("%08d", otpMin+n.Int64()), nil
}

// NewToken returns 64 lowercase hex characters (32 random bytes), used as
// the bearer token issued on OTP grant.
func NewToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("idgen: generate token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// NewPairCode returns an 8-symbol code from the unambiguous alphabet,
// rendered as "XXXX-XXXX".
func NewPairCode() (string, error) {
	raw := make([]byte, 8)
	for i := range raw {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(pairCodeAlphabet))))
		if err != nil {
			return "", fmt.Errorf("idgen: generate pair code: %w", err)
		}
		raw[i] = pairCodeAlphabet[n.Int64()]
	}
	return fmt.Sprintf("%s-%s", raw[:4], raw[4:]), nil
}
