package plan

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
)

// KeyBytes is the entropy of a generated key; it renders as twice as many hex characters.
const KeyBytes = 8

// NewKey returns a random upper-case hex token.
func NewKey() (string, error) {
	buf := make([]byte, KeyBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate key: %w", err)
	}
	return strings.ToUpper(hex.EncodeToString(buf)), nil
}

// RedeemPolicy decides how a redeemed key combines with an existing expiry.
type RedeemPolicy string

const (
	// PolicyOverwrite sets expiry to now+days regardless of the remaining balance.
	PolicyOverwrite RedeemPolicy = "overwrite"
	// PolicyExtend adds days to the later of now and the current expiry.
	PolicyExtend RedeemPolicy = "extend"
)

// ParsePolicy accepts the config spelling of a policy; empty means overwrite.
func ParsePolicy(s string) (RedeemPolicy, error) {
	switch RedeemPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", PolicyOverwrite:
		return PolicyOverwrite, nil
	case PolicyExtend:
		return PolicyExtend, nil
	}
	return "", fmt.Errorf("invalid redeem policy %q; allowed: overwrite, extend", s)
}
