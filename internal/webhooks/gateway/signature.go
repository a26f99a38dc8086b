package gateway

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

var (
	// ErrSignatureMissing means the request carried no signature header.
	ErrSignatureMissing = errors.New("gateway signature missing")
	// ErrSignatureInvalid covers malformed headers, digest mismatches and
	// stale timestamps. Callers get no further detail on purpose.
	ErrSignatureInvalid = errors.New("gateway signature invalid")
	// ErrSecretNotConfigured is a deployment error, not a client error.
	ErrSecretNotConfigured = errors.New("gateway webhook secret not configured")
)

// VerifySignature authenticates the raw request body against the shared
// secret before anything downstream is allowed to parse it.
//
// The header carries a timestamp and one or more candidate signatures:
// "t=<unix>,v1=<hex>[,v1=<hex>...]". Multiple v1 entries support secret
// rotation on the gateway side. The signed string is "<t>.<body>" and the
// digest is HMAC-SHA256. Acceptance requires a constant-time digest match
// and |now - t| <= tolerance. Fails closed on anything else.
func VerifySignature(payload []byte, header, secret string, tolerance time.Duration, now time.Time) error {
	if strings.TrimSpace(secret) == "" {
		return ErrSecretNotConfigured
	}
	if strings.TrimSpace(header) == "" {
		return ErrSignatureMissing
	}

	timestamp, candidates, err := parseSignatureHeader(header)
	if err != nil {
		return err
	}

	age := now.Sub(time.Unix(timestamp, 0))
	if age < 0 {
		age = -age
	}
	if age > tolerance {
		return fmt.Errorf("%w: timestamp outside tolerance", ErrSignatureInvalid)
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(strconv.FormatInt(timestamp, 10)))
	mac.Write([]byte("."))
	mac.Write(payload)
	expected := mac.Sum(nil)

	for _, candidate := range candidates {
		decoded, err := hex.DecodeString(candidate)
		if err != nil {
			continue
		}
		if hmac.Equal(expected, decoded) {
			return nil
		}
	}
	return fmt.Errorf("%w: no matching digest", ErrSignatureInvalid)
}

func parseSignatureHeader(header string) (int64, []string, error) {
	var (
		timestamp  int64
		candidates []string
		sawTs      bool
	)
	for _, part := range strings.Split(header, ",") {
		key, value, found := strings.Cut(strings.TrimSpace(part), "=")
		if !found {
			return 0, nil, fmt.Errorf("%w: malformed header", ErrSignatureInvalid)
		}
		switch key {
		case "t":
			ts, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return 0, nil, fmt.Errorf("%w: malformed timestamp", ErrSignatureInvalid)
			}
			timestamp = ts
			sawTs = true
		case "v1":
			candidates = append(candidates, value)
		default:
			// Unknown scheme versions are skipped, not rejected.
		}
	}
	if !sawTs || len(candidates) == 0 {
		return 0, nil, fmt.Errorf("%w: missing timestamp or signature", ErrSignatureInvalid)
	}
	return timestamp, candidates, nil
}
