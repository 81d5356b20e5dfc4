// Package webhook verifies and reconciles asynchronous processor events
// against the payment ledger.
package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// SignatureHeader carries the processor's event signature
const SignatureHeader = "Processor-Signature"

// DefaultTolerance is how far a signed timestamp may drift from now before
// the delivery is rejected as a possible replay
const DefaultTolerance = 5 * time.Minute

// Signature verification failures. All map to a 400 with no state mutation.
var (
	ErrMissingSignature = errors.New("missing signature header")
	ErrBadSignature     = errors.New("signature mismatch")
	ErrStaleTimestamp   = errors.New("signed timestamp outside tolerance")
)

// VerifySignature checks the authenticity of a webhook delivery. The header
// format is "t=<unix>,v1=<hex hmac-sha256(secret, "<unix>.<payload>")>".
// Comparison is constant time.
func VerifySignature(payload []byte, header, secret string, tolerance time.Duration) error {
	return verifyAt(payload, header, secret, tolerance, time.Now())
}

func verifyAt(payload []byte, header, secret string, tolerance time.Duration, now time.Time) error {
	if header == "" {
		return ErrMissingSignature
	}

	var timestamp int64
	var signatures []string

	for _, part := range strings.Split(header, ",") {
		key, value, found := strings.Cut(strings.TrimSpace(part), "=")
		if !found {
			continue
		}
		switch key {
		case "t":
			ts, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid timestamp: %w", ErrBadSignature)
			}
			timestamp = ts
		case "v1":
			signatures = append(signatures, value)
		}
	}

	if timestamp == 0 || len(signatures) == 0 {
		return ErrBadSignature
	}

	signedAt := time.Unix(timestamp, 0)
	if now.Sub(signedAt) > tolerance || signedAt.Sub(now) > tolerance {
		return ErrStaleTimestamp
	}

	expected := ComputeSignature(payload, timestamp, secret)
	for _, sig := range signatures {
		provided, err := hex.DecodeString(sig)
		if err != nil {
			continue
		}
		if hmac.Equal(provided, expected) {
			return nil
		}
	}

	return ErrBadSignature
}

// ComputeSignature produces the expected HMAC for a payload at a timestamp.
// Exported for tests and for signing outbound test deliveries.
func ComputeSignature(payload []byte, timestamp int64, secret string) []byte {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.", timestamp)
	mac.Write(payload)
	return mac.Sum(nil)
}
