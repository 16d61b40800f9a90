package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/openbookings/server/internal/api/middleware"
	"github.com/openbookings/server/internal/api/problem"
	"github.com/openbookings/server/internal/auth"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// decodeJSON parses and validates a request body. A problem response is
// written on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, env string, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		problem.Write(w, r, http.StatusBadRequest, "validation-error", "Invalid request body", err, env)
		return false
	}
	if err := validate.Struct(dst); err != nil {
		fieldErrors := map[string]interface{}{}
		if verrs, ok := err.(validator.ValidationErrors); ok {
			for _, fe := range verrs {
				fieldErrors[fe.Field()] = fe.Tag()
			}
		}
		problem.Write(w, r, http.StatusBadRequest, "validation-error", "Invalid request", err, env,
			problem.WithErrors(fieldErrors))
		return false
	}
	return true
}

// requireClaims fetches the verified token claims; RequireAuth should
// have run earlier in the chain, so a miss is a server wiring error.
func requireClaims(w http.ResponseWriter, r *http.Request, env string) (*auth.Claims, bool) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		problem.Write(w, r, http.StatusUnauthorized, "unauthorized", "Authentication required", auth.ErrMissingToken, env)
		return nil, false
	}
	return claims, true
}

func pathParam(r *http.Request, key string) string {
	if r == nil {
		return ""
	}
	return r.PathValue(key)
}
