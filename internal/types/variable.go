package types

import "strings"

// VariableCode is an ACS variable name such as "B03002_001E": table id,
// sequential field number and a type suffix.
type VariableCode string

// Kind is the statistical type of a variable, derived from its suffix.
type Kind int

const (
	KindUnknown Kind = iota
	KindEstimate
	KindMarginOfError
	KindPercentEstimate
	KindPercentMarginOfError
)

func (k Kind) String() string {
	switch k {
	case KindEstimate:
		return "estimate"
	case KindMarginOfError:
		return "margin of error"
	case KindPercentEstimate:
		return "percent estimate"
	case KindPercentMarginOfError:
		return "percent margin of error"
	default:
		return "unknown"
	}
}

// Kind classifies the code by its suffix. Only E, M, PE and PM are
// recognized; anything else is KindUnknown.
func (c VariableCode) Kind() Kind {
	s := string(c)
	if c.IsPercent() {
		switch s[len(s)-1] {
		case 'E':
			return KindPercentEstimate
		case 'M':
			return KindPercentMarginOfError
		}
		return KindUnknown
	}
	if len(s) < 2 || !isDigit(s[len(s)-2]) {
		return KindUnknown
	}
	switch s[len(s)-1] {
	case 'E':
		return KindEstimate
	case 'M':
		return KindMarginOfError
	}
	return KindUnknown
}

// IsPercent reports whether the second-to-last character is 'P'.
func (c VariableCode) IsPercent() bool {
	s := string(c)
	return len(s) >= 2 && s[len(s)-2] == 'P'
}

// IsMarginOfError reports whether the code ends in 'M'. This is the filter
// used when margins of error are excluded from a request, so it matches
// percent margins too.
func (c VariableCode) IsMarginOfError() bool {
	return strings.HasSuffix(string(c), "M")
}

// InTable reports whether the code belongs to the table with the given prefix.
func (c VariableCode) InTable(prefix string) bool {
	return strings.Contains(string(c), prefix)
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}
