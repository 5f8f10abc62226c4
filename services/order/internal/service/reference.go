package service

import (
	"crypto/rand"
	"fmt"
	"time"
)

const referenceAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// NewTransferReference builds "BT-<unix millis>-<6 upper-case alphanumerics>".
func NewTransferReference(now time.Time) (string, error) {
	buf := make([]byte, 6)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("transfer reference: %w", err)
	}
	for i, b := range buf {
		buf[i] = referenceAlphabet[int(b)%len(referenceAlphabet)]
	}
	return fmt.Sprintf("BT-%d-%s", now.UnixMilli(), buf), nil
}
