// Package payment verifies and decodes the payment provider's signed
// checkout callbacks.  The engine never talks to the provider; it only
// reacts to the "paid" notification.
package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strconv"
	"strings"
	"time"
)

// SignatureHeader carries "t=<unix>,v1=<hex hmac>".
const SignatureHeader = "Payment-Signature"

// ErrSignatureInvalid is returned for a missing, malformed, stale or
// mismatching signature.
var ErrSignatureInvalid = errors.New("invalid payment signature")

// Sign computes the v1 signature of body at ts.
func Sign(secret string, ts time.Time, body []byte) string {
	t := strconv.FormatInt(ts.Unix(), 10)
	return "t=" + t + ",v1=" + mac(secret, t, body)
}

func mac(secret, t string, body []byte) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write([]byte(t))
	h.Write([]byte("."))
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}

// Verify checks header against body.  Any v1 entry may match, which lets
// the provider roll its secret.  Timestamps further than tolerance from
// now are rejected.
func Verify(header string, body []byte, secret string, tolerance time.Duration, now time.Time) error {
	if secret == "" || header == "" {
		return ErrSignatureInvalid
	}
	var ts string
	var sigs []string
	for _, part := range strings.Split(header, ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch k {
		case "t":
			ts = v
		case "v1":
			sigs = append(sigs, v)
		}
	}
	if ts == "" || len(sigs) == 0 {
		return ErrSignatureInvalid
	}
	unix, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return ErrSignatureInvalid
	}
	if tolerance > 0 {
		skew := now.Sub(time.Unix(unix, 0))
		if skew > tolerance || skew < -tolerance {
			return ErrSignatureInvalid
		}
	}

	want := []byte(mac(secret, ts, body))
	for _, s := range sigs {
		if hmac.Equal(want, []byte(s)) {
			return nil
		}
	}
	return ErrSignatureInvalid
}
