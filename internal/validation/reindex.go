package validation

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ndewijer/Market-Dashboard-Backend/internal/api/request"
	"github.com/ndewijer/Market-Dashboard-Backend/internal/model"
)

const (
	minPeriod = 2
	maxPeriod = 500
)

// ValidateReindexQuery turns query parameters into a ReindexRequest. Missing
// window sizes fall back to defBefore and defAfter.
func ValidateReindexQuery(assetName string, q request.ReindexQuery, defBefore, defAfter int) (model.ReindexRequest, error) {
	errors := make(map[string]string)
	req := model.ReindexRequest{AssetName: assetName, DaysBefore: defBefore, DaysAfter: defAfter}

	if strings.TrimSpace(q.Date) == "" {
		errors["date"] = "date is required"
	} else if d, err := ParseDate(q.Date); err != nil {
		errors["date"] = "date must be formatted as YYYY-MM-DD"
	} else {
		req.ReferenceDate = d
	}

	if q.Before != "" {
		n, ok := parseBounded(q.Before, 0, model.MaxWindowDays)
		if !ok {
			errors["before"] = fmt.Sprintf("before must be a whole number of days between 0 and %d", model.MaxWindowDays)
		}
		req.DaysBefore = n
	}
	if q.After != "" {
		n, ok := parseBounded(q.After, 0, model.MaxWindowDays)
		if !ok {
			errors["after"] = fmt.Sprintf("after must be a whole number of days between 0 and %d", model.MaxWindowDays)
		}
		req.DaysAfter = n
	}

	if len(errors) > 0 {
		return model.ReindexRequest{}, &Error{Fields: errors}
	}
	return req, nil
}

// ValidateStatsQuery checks the benchmark name and SMA period. A missing period
// is returned as 0 so the service applies its default.
func ValidateStatsQuery(q request.StatsQuery) (benchmark string, period int, err error) {
	errors := make(map[string]string)

	if q.Benchmark != "" {
		if ValidateAssetName(q.Benchmark) != nil {
			errors["benchmark"] = "benchmark must be a valid asset name"
		}
	}
	if q.Period != "" {
		n, ok := parseBounded(q.Period, minPeriod, maxPeriod)
		if !ok {
			errors["period"] = "period must be between 2 and 500"
		}
		period = n
	}

	if len(errors) > 0 {
		return "", 0, &Error{Fields: errors}
	}
	return q.Benchmark, period, nil
}

func parseBounded(s string, lo, hi int) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < lo || n > hi {
		return 0, false
	}
	return n, true
}
