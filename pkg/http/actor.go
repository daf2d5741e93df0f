package http

import (
	"net/http"
	"strconv"

	apperrors "inventario/pkg/errors"
	"inventario/pkg/model"
)

const (
	HeaderUserID           = "X-User-Id"
	HeaderPrivileged       = "X-Privileged"
	HeaderCanManageReturns = "X-Can-Manage-Returns"
)

// ExtractActor reads the caller identity propagated by the gateway.
// Capability checks already happened upstream; these headers only relay the
// result.
func ExtractActor(r *http.Request) (model.Actor, error) {
	userID := r.Header.Get(HeaderUserID)
	if userID == "" {
		return model.Actor{}, apperrors.Unauthorized("Missing user identity")
	}

	return model.Actor{
		UserID:           userID,
		Privileged:       parseBoolHeader(r, HeaderPrivileged),
		CanManageReturns: parseBoolHeader(r, HeaderCanManageReturns),
	}, nil
}

func parseBoolHeader(r *http.Request, name string) bool {
	v, err := strconv.ParseBool(r.Header.Get(name))
	return err == nil && v
}
