package validate

import (
	"strings"

	"github.com/ShiraazMoollatjie/goluhn"
)

const (
	RailCard   = "card"
	RailWallet = "wallet"
)

// Destination reports whether dest is well-formed for the configured
// payout rail. Card numbers must pass the Luhn check; wallet addresses
// are opaque tokens with length bounds.
func Destination(rail, dest string) bool {
	switch rail {
	case RailCard:
		return goluhn.Validate(dest) == nil
	case RailWallet:
		if strings.ContainsAny(dest, " \t\n") {
			return false
		}
		return len(dest) >= 8 && len(dest) <= 128
	default:
		return false
	}
}
