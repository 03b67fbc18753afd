package slack

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"time"
)

// Request signing
// Reference: https://api.slack.com/authentication/verifying-requests-from-slack
const (
	HeaderTimestamp = "X-Slack-Request-Timestamp"
	HeaderSignature = "X-Slack-Signature"

	signatureVersion = "v0"

	// MaxRequestAge is the replay window, applied in both directions
	MaxRequestAge = 300 * time.Second
)

// VerifySignatureAt reports whether signature authenticates body at
// timestamp and timestamp is within MaxRequestAge of now.
func VerifySignatureAt(secret, timestamp, body, signature string, now time.Time) bool {
	requestTime, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return false
	}

	age := now.Unix() - requestTime
	if age < 0 {
		age = -age
	}
	if age > int64(MaxRequestAge/time.Second) {
		return false
	}

	expected := Sign(secret, timestamp, body)
	return hmac.Equal([]byte(expected), []byte(signature))
}

// Sign computes the "v0=<hex>" signature for body at timestamp
func Sign(secret, timestamp, body string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(signatureVersion + ":" + timestamp + ":" + body))
	return signatureVersion + "=" + hex.EncodeToString(mac.Sum(nil))
}
