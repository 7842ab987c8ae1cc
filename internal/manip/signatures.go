package manip

import "strings"

// SignatureMatcher is one attack fingerprint: a call-data prefix tied to a
// known protocol entry point. Matchers are independent and ranked in slice
// order, so new fingerprints register without touching orchestration.
type SignatureMatcher struct {
	Name     string `json:"name"`
	Selector string `json:"selector"` // 4-byte selector, "0x"-prefixed hex
}

// Matches reports whether the transaction call data starts with the
// matcher's selector. Comparison is case-insensitive on the hex text.
func (m SignatureMatcher) Matches(input string) bool {
	if m.Selector == "" || input == "" {
		return false
	}
	return strings.HasPrefix(strings.ToLower(input), strings.ToLower(m.Selector))
}

// DefaultFlashLoanSignatures covers the flash-loan entry points of the
// major lending protocols.
func DefaultFlashLoanSignatures() []SignatureMatcher {
	return []SignatureMatcher{
		{Name: "aave_v2_flashLoan", Selector: "0xab9c4b5d"},
		{Name: "aave_v3_flashLoanSimple", Selector: "0x42b0b77c"},
		{Name: "uniswap_v2_swap_callback", Selector: "0x490e6cbc"},
		{Name: "uniswap_v3_flash", Selector: "0x1b806b85"},
		{Name: "dydx_operate", Selector: "0x5c38449e"},
	}
}
