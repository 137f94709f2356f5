package http

import (
	apperrors "courtkeeper/pkg/errors"
	"courtkeeper/pkg/model"
	"net/http"
	"strings"
)

// Identity headers are set by the gateway after authentication; this
// service trusts them as given.
const (
	HeaderRequesterID   = "X-Requester-ID"
	HeaderRequesterRole = "X-Requester-Role"
	HeaderIdempotency   = "Idempotency-Key"
)

// ExtractRequester reads the caller identity. A missing role means member.
func ExtractRequester(r *http.Request) (model.Requester, error) {
	id := strings.TrimSpace(r.Header.Get(HeaderRequesterID))
	if id == "" {
		return model.Requester{}, apperrors.Unauthorized("Missing " + HeaderRequesterID + " header")
	}

	role := model.Role(strings.ToLower(strings.TrimSpace(r.Header.Get(HeaderRequesterRole))))
	if role == "" {
		role = model.RoleMember
	}
	return model.Requester{ID: id, Role: role}, nil
}
