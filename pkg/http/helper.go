package http

import (
	"net/http"
	"strconv"

	"communa/pkg/config"
	apperrors "communa/pkg/errors"
)

// ExtractLimitOffset reads limit and offset query parameters and clamps
// them to the configured pagination bounds. Absent parameters fall back
// to the defaults rather than erroring.
func ExtractLimitOffset(r *http.Request) (int, int64, error) {
	query := r.URL.Query()

	limit, err := parseQueryInt(query.Get("limit"))
	if err != nil {
		return 0, 0, apperrors.InvalidInput("invalid limit parameter: " + query.Get("limit"))
	}

	offset, err := parseQueryInt(query.Get("offset"))
	if err != nil {
		return 0, 0, apperrors.InvalidInput("invalid offset parameter: " + query.Get("offset"))
	}

	return config.NormalizePaginationLimit(int(limit)), config.NormalizeOffset(offset), nil
}

func parseQueryInt(s string) (int64, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.ParseInt(s, 10, 64)
}
