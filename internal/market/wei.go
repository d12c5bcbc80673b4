// Package market implements the reconciliation and lifecycle engine: turning
// raw ledger facts into per-token records, deriving auction phases, validating
// bids, gating commands, and scheduling refresh scans.
package market

import (
	"fmt"
	"math/big"
	"strings"
)

// etherDecimals is the ledger's base-unit scale (1 ether = 10^18 wei).
const etherDecimals = 18

var weiPerEther = new(big.Int).Exp(big.NewInt(10), big.NewInt(etherDecimals), nil)

// ParseEther converts a decimal ether amount ("0.25", "1", "-3.5") into wei.
// It rejects anything that is not a plain finite decimal with at most 18
// fractional digits.
func ParseEther(s string) (*big.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("market: empty amount")
	}

	neg := false
	switch s[0] {
	case '-':
		neg = true
		s = s[1:]
	case '+':
		s = s[1:]
	}
	if s == "" || s == "." {
		return nil, fmt.Errorf("market: %q is not a decimal amount", s)
	}

	intPart, fracPart := s, ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		intPart, fracPart = s[:i], s[i+1:]
		if strings.IndexByte(fracPart, '.') >= 0 {
			return nil, fmt.Errorf("market: %q is not a decimal amount", s)
		}
	}
	if intPart == "" {
		intPart = "0"
	}
	if !isDigits(intPart) || (fracPart != "" && !isDigits(fracPart)) {
		return nil, fmt.Errorf("market: %q is not a decimal amount", s)
	}
	if len(fracPart) > etherDecimals {
		return nil, fmt.Errorf("market: %q has more than %d decimal places", s, etherDecimals)
	}

	whole, ok := new(big.Int).SetString(intPart, 10)
	if !ok {
		return nil, fmt.Errorf("market: %q is not a decimal amount", s)
	}
	wei := new(big.Int).Mul(whole, weiPerEther)

	if fracPart != "" {
		// Right-pad the fraction to 18 digits so "0.5" becomes 5*10^17.
		padded := fracPart + strings.Repeat("0", etherDecimals-len(fracPart))
		frac, ok := new(big.Int).SetString(padded, 10)
		if !ok {
			return nil, fmt.Errorf("market: %q is not a decimal amount", s)
		}
		wei.Add(wei, frac)
	}

	if neg {
		wei.Neg(wei)
	}
	return wei, nil
}

// FormatEther renders a wei amount as a decimal ether string with trailing
// zeros trimmed ("250000000000000000" -> "0.25").
func FormatEther(wei *big.Int) string {
	if wei == nil {
		return "0"
	}
	neg := wei.Sign() < 0
	abs := new(big.Int).Abs(wei)

	whole := new(big.Int)
	frac := new(big.Int)
	whole.QuoRem(abs, weiPerEther, frac)

	out := whole.String()
	if frac.Sign() != 0 {
		digits := fmt.Sprintf("%018s", frac.String())
		digits = strings.TrimRight(digits, "0")
		out += "." + digits
	}
	if neg {
		out = "-" + out
	}
	return out
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return len(s) > 0
}
