package cep

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Address is the provider-agnostic representation of a resolved postal code.
// Providers format CEP differently ("70150903" vs "70150-903"), so callers
// should not compare it byte for byte.
type Address struct {
	CEP          string `json:"cep"`
	Street       string `json:"street"`
	Details      string `json:"details"`
	Neighborhood string `json:"neighborhood"`
	City         string `json:"city"`
	State        string `json:"state"`
}

// SameLocality reports whether a and other point at the same place:
// equal city, state and neighborhood once case and accents are folded.
func (a Address) SameLocality(other Address) bool {
	return fold(a.City) == fold(other.City) &&
		fold(a.State) == fold(other.State) &&
		fold(a.Neighborhood) == fold(other.Neighborhood)
}

// Normalize trims code and drops the hyphen of the "NNNNN-NNN" form.
// Anything else is left for the provider to accept or reject.
func Normalize(code string) string {
	code = strings.TrimSpace(code)
	if len(code) > 5 && code[5] == '-' {
		return code[:5] + code[6:]
	}
	return code
}

func fold(s string) string {
	s, _, _ = transform.String(
		transform.Chain(
			norm.NFD,
			runes.Remove(runes.In(unicode.Mn)),
			norm.NFC,
		),
		strings.TrimSpace(strings.ToLower(s)),
	)
	return s
}
