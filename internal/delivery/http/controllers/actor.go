package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"airstream/internal/delivery/http/helpers"
	"airstream/internal/delivery/http/middleware"
	"airstream/internal/domain"
)

// requireActor loads the full user (roles and group memberships) for the
// authenticated request. On failure it writes the 401 response and
// returns false; callers should return immediately.
func requireActor(w http.ResponseWriter, r *http.Request, users domain.UserService) (*domain.User, bool) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return nil, false
	}
	actor, err := users.GetActor(r.Context(), userID)
	if err != nil {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return nil, false
	}
	return actor, true
}

func parsePositiveInt(s string) (int, error) {
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	if v <= 0 {
		return 0, errors.New("must be positive")
	}
	return v, nil
}
