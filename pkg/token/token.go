package token

import (
	"fmt"
	"strconv"
	"strings"
)

// Evidence tokens are structured identifiers for one observed clinical fact.
// Three serialized shapes exist:
//
//	"E_91"              binary (feature present)
//	"E_55_@_V_167"      categorical (feature + value code)
//	"E_56_@_5"          numeric / ordinal (feature + number)
//
// Every component that touches tokens (codebook decoding, presence checks,
// scoring) goes through this package so they all agree on what a head is.
const (
	// Separator splits the feature head from its value tail.
	Separator = "_@_"

	// ValuePrefix marks a categorical value code (e.g. "V_167").
	ValuePrefix = "V_"
)

// HeadOf returns the feature head of a token: the text before the first
// value separator, or the whole token when no separator exists.
func HeadOf(tok string) string {
	head, _, _ := strings.Cut(tok, Separator)
	return head
}

// TailOf returns the value tail of a token, or "" for a bare head.
func TailOf(tok string) string {
	_, tail, _ := strings.Cut(tok, Separator)
	return tail
}

// IsCategoricalTail reports whether a value tail denotes a categorical
// value code. A numeric tail that happens to start with the prefix is
// treated as categorical too; the categorical check always wins.
func IsCategoricalTail(tail string) bool {
	return strings.HasPrefix(tail, ValuePrefix)
}

// Compose builds a token string from a head and an optional value.
//
// The value is typically whatever the NLU layer pulled out of model JSON:
// nil (binary), a number (ordinal), or a string (categorical code). String
// values are normalized to carry the categorical prefix; this is a
// normalization rule, not validation, so a malformed code is passed through
// after prefixing.
func Compose(head string, value any) string {
	switch v := value.(type) {
	case nil:
		return head
	case int:
		return head + Separator + strconv.Itoa(v)
	case int64:
		return head + Separator + strconv.FormatInt(v, 10)
	case float64:
		// JSON numbers decode as float64; ordinal values are whole.
		return head + Separator + strconv.Itoa(int(v))
	case string:
		if strings.HasPrefix(v, ValuePrefix) {
			return head + Separator + v
		}
		return head + Separator + ValuePrefix + v
	default:
		return head + Separator + fmt.Sprint(v)
	}
}

// Kind discriminates the three token shapes.
type Kind int

const (
	Binary Kind = iota
	Categorical
	Numeric
)

// Token is a parsed evidence token. Equality is structural; an unused
// field is always the zero value, so Tokens compare with ==.
type Token struct {
	Head      string
	Kind      Kind
	ValueCode string // categorical only
	Number    int    // numeric only
}

// Parse splits a serialized token into its structured form. It is total:
// a tail that is neither a value code nor an integer is kept verbatim as a
// categorical code so that String round-trips the input.
func Parse(tok string) Token {
	head, tail, found := strings.Cut(tok, Separator)
	if !found {
		return Token{Head: head, Kind: Binary}
	}
	if IsCategoricalTail(tail) {
		return Token{Head: head, Kind: Categorical, ValueCode: tail}
	}
	if n, err := strconv.Atoi(tail); err == nil {
		return Token{Head: head, Kind: Numeric, Number: n}
	}
	return Token{Head: head, Kind: Categorical, ValueCode: tail}
}

// String serializes the token back to its canonical text form.
func (t Token) String() string {
	switch t.Kind {
	case Categorical:
		return t.Head + Separator + t.ValueCode
	case Numeric:
		return t.Head + Separator + strconv.Itoa(t.Number)
	default:
		return t.Head
	}
}
