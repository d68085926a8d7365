package extractor

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"call-insights-go/internal/types"
)

// Products are checked in this order. Every hit overwrites the previous one,
// so the last present candidate wins.
var Products = []string{"mobile", "laptop", "refrigerator", "washing machine", "TV"}

const customerPrefix = "customer:"

// Extractor pulls customer name, order id and product out of a transcript.
// Build it once and share it; it holds only compiled, read-only state.
type Extractor struct {
	orderID  *regexp.Regexp
	name     *regexp.Regexp
	products []string
}

func New() *Extractor {
	return &Extractor{
		orderID: regexp.MustCompile(`(?i)(?:#|ORD-?|ID)\d+`),
		// trigger phrase is case-insensitive, the name itself is not
		name:     regexp.MustCompile(`(?i:this is|my name is|I am)\s+([A-Z][a-z]+(?: [A-Z][a-z]+)*)`),
		products: Products,
	}
}

// Extract never fails for string input.
func (e *Extractor) Extract(transcript string) types.Entities {
	return types.Entities{
		CustomerName: e.CustomerName(transcript),
		OrderID:      e.OrderID(transcript),
		Product:      e.Product(transcript),
	}
}

// OrderID returns the leftmost #123 / ORD123 / ORD-123 / ID123 token, as written.
func (e *Extractor) OrderID(transcript string) *string {
	return types.Ptr(e.orderID.FindString(transcript))
}

// CustomerName searches only "Customer:" lines and stops at the first line with a match.
func (e *Extractor) CustomerName(transcript string) *string {
	for _, line := range strings.Split(transcript, "\n") {
		if !strings.HasPrefix(strings.ToLower(strings.TrimSpace(line)), customerPrefix) {
			continue
		}
		if m := e.name.FindStringSubmatch(line); m != nil {
			return types.Ptr(m[1])
		}
	}
	return nil
}

// Product returns the last candidate contained in the text, naively capitalized ("TV" -> "Tv").
func (e *Extractor) Product(transcript string) *string {
	lower := strings.ToLower(transcript)
	var product string
	for _, p := range e.products {
		if strings.Contains(lower, strings.ToLower(p)) {
			product = capitalize(p)
		}
	}
	return types.Ptr(product)
}

// capitalize upper-cases the first rune and lower-cases the rest.
func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + strings.ToLower(s[size:])
}
