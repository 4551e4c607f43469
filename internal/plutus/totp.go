package plutus

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base32"
	"encoding/binary"
	"fmt"
	"strings"
	"time"
)

const (
	totpPeriod = 30 * time.Second
	totpDigits = 6
)

// TOTP generates RFC 6238 one-time codes (SHA-1, 30s step, 6 digits) from a
// base32 secret. The auth endpoint expects the current code on every login.
type TOTP struct {
	secret string
	now    func() time.Time
}

func NewTOTP(secret string) *TOTP {
	return &TOTP{secret: secret, now: time.Now}
}

// Now returns the code for the current time step.
func (t *TOTP) Now() (string, error) {
	return t.at(t.now())
}

func (t *TOTP) at(ts time.Time) (string, error) {
	normalized := strings.ToUpper(strings.ReplaceAll(t.secret, " ", ""))
	key, err := base32.StdEncoding.WithPadding(base32.NoPadding).DecodeString(strings.TrimRight(normalized, "="))
	if err != nil {
		return "", fmt.Errorf("bad totp secret: %w", err)
	}

	var counter [8]byte
	binary.BigEndian.PutUint64(counter[:], uint64(ts.Unix())/uint64(totpPeriod.Seconds()))

	mac := hmac.New(sha1.New, key)
	mac.Write(counter[:])
	sum := mac.Sum(nil)

	// Dynamic truncation per RFC 4226 section 5.3
	offset := sum[len(sum)-1] & 0x0f
	code := binary.BigEndian.Uint32(sum[offset:offset+4]) & 0x7fffffff

	return fmt.Sprintf("%0*d", totpDigits, code%1_000_000), nil
}
