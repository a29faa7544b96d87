package services

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

const codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// OrderNumberPrefix starts every human-readable order number.
const OrderNumberPrefix = "ME-"

// randomCode draws n characters uniformly from codeAlphabet.
func randomCode(n int) (string, error) {
	max := big.NewInt(int64(len(codeAlphabet)))
	buf := make([]byte, n)
	for i := range buf {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		buf[i] = codeAlphabet[idx.Int64()]
	}
	return string(buf), nil
}

// NewOrderNumber returns "ME-" followed by 8 random [A-Z0-9] characters.
func NewOrderNumber() (string, error) {
	code, err := randomCode(8)
	if err != nil {
		return "", err
	}
	return OrderNumberPrefix + code, nil
}

// newOTP generates a random 6-digit code between 100000 and 999999.
func newOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}
