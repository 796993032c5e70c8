package types

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMalformedTract is returned for a source tract code that is neither 5 nor 6 characters.
var ErrMalformedTract = errors.New("malformed tract id")

// TractID is a 6-character census tract code, e.g. "010100".
type TractID string

// AreaID identifies a community area as it appears in the crosswalk.
type AreaID string

// AreaName is the human-readable community area name.
type AreaName string

// NormalizeTract fixes a source tract code so that five-character IDs get
// their leading zero back. Six-character IDs pass through; any other length
// is rejected.
func NormalizeTract(raw string) (TractID, error) {
	tract := strings.TrimSpace(raw)
	switch len(tract) {
	case 5:
		return TractID("0" + tract), nil
	case 6:
		return TractID(tract), nil
	default:
		return "", fmt.Errorf("%w: %q has %d characters", ErrMalformedTract, raw, len(tract))
	}
}
