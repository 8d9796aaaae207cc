// Package auth verifies inbound webhook authenticity.
//
// The post-call webhook is signed with an HMAC-SHA256 over
// "{timestamp}.{body}" and delivered as a header of the form
// "t=<unix-seconds>,v0=<hex-digest>". The client-data webhook uses a static
// API key. Both comparisons are constant-time.
package auth

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

// TimestampTolerance is how far in the past a signature timestamp may be.
// There is no upper bound; clock skew toward the future is accepted.
const TimestampTolerance = 1800 * time.Second

// Classified verification failures. Callers surface these as HTTP 401 with
// the error text as the reason.
var (
	ErrMissingHeader     = errors.New("missing signature header")
	ErrMalformedHeader   = errors.New("malformed signature header")
	ErrExpiredTimestamp  = errors.New("signature timestamp outside tolerance window")
	ErrSignatureMismatch = errors.New("signature does not match request body")
	ErrMissingAPIKey     = errors.New("missing API key header")
	ErrInvalidAPIKey     = errors.New("invalid API key")
)

// ParseSignatureHeader splits a "t=<ts>,v0=<hex>" header into its timestamp
// and digest. Both fields are mandatory and order is fixed.
func ParseSignatureHeader(header string) (int64, string, error) {
	if strings.TrimSpace(header) == "" {
		return 0, "", fmt.Errorf("%w: empty value", ErrMalformedHeader)
	}

	parts := strings.Split(header, ",")
	if len(parts) != 2 {
		return 0, "", fmt.Errorf("%w: expected t=<timestamp>,v0=<hash>", ErrMalformedHeader)
	}

	tsPart, hashPart := parts[0], parts[1]

	if !strings.HasPrefix(tsPart, "t=") {
		return 0, "", fmt.Errorf("%w: timestamp field must start with t=", ErrMalformedHeader)
	}
	tsValue := tsPart[len("t="):]
	if tsValue == "" {
		return 0, "", fmt.Errorf("%w: empty timestamp", ErrMalformedHeader)
	}
	ts, err := strconv.ParseInt(tsValue, 10, 64)
	if err != nil {
		return 0, "", fmt.Errorf("%w: timestamp is not an integer", ErrMalformedHeader)
	}

	if !strings.HasPrefix(hashPart, "v0=") {
		return 0, "", fmt.Errorf("%w: hash field must start with v0=", ErrMalformedHeader)
	}
	digest := hashPart[len("v0="):]
	if digest == "" {
		return 0, "", fmt.Errorf("%w: empty hash", ErrMalformedHeader)
	}

	return ts, digest, nil
}

// ComputeSignature returns the hex HMAC-SHA256 of "{timestamp}.{body}" keyed
// by secret.
func ComputeSignature(timestamp int64, body, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.%s", timestamp, body)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks a signed webhook request. The header must parse, the
// timestamp must be no older than the tolerance window, and the digest must
// match the body. Each failure mode returns its classified error.
func VerifySignature(header, body, secret string) error {
	return verifySignatureAt(header, body, secret, time.Now())
}

func verifySignatureAt(header, body, secret string, now time.Time) error {
	if header == "" {
		return ErrMissingHeader
	}

	ts, digest, err := ParseSignatureHeader(header)
	if err != nil {
		return err
	}

	cutoff := now.Unix() - int64(TimestampTolerance/time.Second)
	if ts < cutoff {
		return fmt.Errorf("%w: timestamp %d older than cutoff %d", ErrExpiredTimestamp, ts, cutoff)
	}

	expected := ComputeSignature(ts, body, secret)
	if !hmac.Equal([]byte(expected), []byte(digest)) {
		return ErrSignatureMismatch
	}

	return nil
}

// VerifyAPIKey compares a static API key header against the configured value
// in constant time.
func VerifyAPIKey(provided, expected string) error {
	if provided == "" {
		return ErrMissingAPIKey
	}
	if !hmac.Equal([]byte(provided), []byte(expected)) {
		return ErrInvalidAPIKey
	}
	return nil
}
