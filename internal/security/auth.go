// Package security covers the trust boundary of the export API: HMAC request
// signing, bcrypt API keys, signed download tokens, and input validation for
// queries and email addresses.
package security

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"time"
)

// maxClockDrift bounds the accepted age of a signed request (replay window).
const maxClockDrift = 5 * time.Minute

var (
	ErrInvalidSignature = errors.New("invalid request signature")
	ErrRequestExpired   = errors.New("request timestamp expired or too far in future")
)

// SignRequest computes the hex HMAC-SHA256 signature over
// method + path + body + timestamp. Clients send it as X-Signature together
// with the X-Timestamp header.
func SignRequest(secret, method, path, body, timestamp string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(method + path + body + timestamp))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifyRequest checks a request signature in constant time after rejecting
// stale timestamps. An empty secret disables signing (local development).
func VerifyRequest(secret, method, path, body, timestamp, signature string) error {
	if secret == "" {
		return nil
	}

	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid timestamp: %w", err)
	}
	drift := time.Since(time.Unix(ts, 0))
	if drift > maxClockDrift || drift < -maxClockDrift {
		return ErrRequestExpired
	}

	expected := SignRequest(secret, method, path, body, timestamp)
	if !hmac.Equal([]byte(signature), []byte(expected)) {
		return ErrInvalidSignature
	}
	return nil
}
