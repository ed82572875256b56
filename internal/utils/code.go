package utils

import (
	"crypto/rand"
	"fmt"
)

// codeAlphabet omits 0/O and 1/I, which are easy to confuse when a code
// is read back or retyped.
const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

const codeTokenLen = 8

// NewActivationCode builds a code token like "VIP30-7K2MQX4D": the granted
// duration is visible in the prefix, the suffix is random. Uniqueness is
// enforced by the database; at 32^8 suffixes per duration, collisions in a
// batch are a storage error, not something to retry here.
func NewActivationCode(durationDays int) (string, error) {
	buf := make([]byte, codeTokenLen)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	for i, b := range buf {
		buf[i] = codeAlphabet[int(b)%len(codeAlphabet)]
	}
	return fmt.Sprintf("VIP%d-%s", durationDays, buf), nil
}
