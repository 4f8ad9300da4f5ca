package http

import (
	"encoding/json"
	"net/http"

	commonerrors "github.com/devsanjithm/accountd/internal/common/errors"
)

type ErrorEnvelope struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func WriteError(w http.ResponseWriter, status int, code, message string) {
	WriteJSON(w, status, ErrorEnvelope{Code: code, Message: message})
}

// WriteDomainError maps a DomainError onto the wire envelope; anything else
// collapses to a generic internal error so internals never leak.
func WriteDomainError(w http.ResponseWriter, err error) {
	if de, ok := commonerrors.AsDomainError(err); ok {
		WriteError(w, de.HTTPStatus(), de.Code(), de.Message())
		return
	}
	WriteError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
}

func DecodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}
