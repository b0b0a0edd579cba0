package validation

import (
	"strings"
	"time"

	"github.com/ndewijer/Market-Dashboard-Backend/internal/api/request"
	"github.com/ndewijer/Market-Dashboard-Backend/internal/apperrors"
	"github.com/ndewijer/Market-Dashboard-Backend/internal/model"
)

// ValidatePriceQuery parses the price window. start is required; a missing end
// means today.
func ValidatePriceQuery(q request.PriceQuery, now time.Time) (start, end time.Time, err error) {
	errors := make(map[string]string)

	if strings.TrimSpace(q.Start) == "" {
		errors["start"] = "start is required"
	} else if start, err = ParseDate(q.Start); err != nil {
		errors["start"] = "start must be formatted as YYYY-MM-DD"
	}

	end = model.Day(now)
	if q.End != "" {
		if end, err = ParseDate(q.End); err != nil {
			errors["end"] = "end must be formatted as YYYY-MM-DD"
		}
	}

	if len(errors) == 0 && end.Before(start) {
		errors["end"] = "end must not be before start"
	}

	if len(errors) > 0 {
		return time.Time{}, time.Time{}, &Error{Fields: errors}
	}
	return start, end, nil
}

// ValidateDocType checks the {type} path parameter of the docs routes.
func ValidateDocType(s string) (model.DocType, error) {
	t := model.DocType(strings.ToLower(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", apperrors.ErrInvalidDocType
	}
	return t, nil
}
