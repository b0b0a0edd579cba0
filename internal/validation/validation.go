package validation

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/ndewijer/Market-Dashboard-Backend/internal/apperrors"
	"github.com/ndewijer/Market-Dashboard-Backend/internal/model"
)

var assetNamePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]{0,99}$`)

// ValidateAssetName checks that name can be an asset name from the registry.
func ValidateAssetName(name string) error {
	if strings.TrimSpace(name) == "" {
		return apperrors.ErrInvalidAssetName
	}
	if !assetNamePattern.MatchString(name) {
		return fmt.Errorf("%w: %q", apperrors.ErrInvalidAssetName, name)
	}
	return nil
}

// ParseDate parses a YYYY-MM-DD calendar date as midnight UTC.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(model.DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", apperrors.ErrInvalidDate, s)
	}
	return t, nil
}
