package http

import (
	"courtkeeper/pkg/config"
	apperrors "courtkeeper/pkg/errors"
	"net/http"
	"strconv"
)

// Page is a clamped limit/offset window over a list endpoint.
type Page struct {
	Limit  int
	Offset int64
}

// ExtractPage reads ?limit= and ?offset=. A missing or zero limit means the
// default page size; larger limits are capped. Garbage or negative values are
// rejected rather than silently clamped.
func ExtractPage(r *http.Request) (Page, error) {
	query := r.URL.Query()

	limit, err := queryInt(query.Get("limit"), "limit")
	if err != nil {
		return Page{}, err
	}
	offset, err := queryInt(query.Get("offset"), "offset")
	if err != nil {
		return Page{}, err
	}

	return Page{
		Limit:  config.NormalizePaginationLimit(int(limit)),
		Offset: config.NormalizeOffset(offset),
	}, nil
}

func queryInt(raw, name string) (int64, error) {
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v < 0 {
		return 0, apperrors.InvalidInput("invalid " + name + " parameter: " + raw)
	}
	return v, nil
}
