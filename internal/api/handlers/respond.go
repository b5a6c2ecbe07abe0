package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/AlessiaSanfi/EventHub-Project/internal/api/problem"
)

// Problem type URIs shared by all handlers.
const (
	typeValidation   = "https://eventhub.app/problems/validation-error"
	typeNotFound     = "https://eventhub.app/problems/not-found"
	typeConflict     = "https://eventhub.app/problems/conflict"
	typeUnauthorized = "https://eventhub.app/problems/unauthorized"
	typeForbidden    = "https://eventhub.app/problems/forbidden"
	typeServerError  = "https://eventhub.app/problems/server-error"
)

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// writeValidationProblem unpacks validator errors into a field map so
// clients can attach messages to form inputs.
func writeValidationProblem(w http.ResponseWriter, r *http.Request, err error, env string) {
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		fields := make(map[string]any, len(fieldErrs))
		for _, fe := range fieldErrs {
			fields[fe.Field()] = fe.Tag()
		}
		problem.Write(w, r, http.StatusBadRequest, typeValidation, "Invalid request", err, env,
			problem.WithErrors(fields))
		return
	}
	problem.Write(w, r, http.StatusBadRequest, typeValidation, "Invalid request", err, env)
}
