package rest

import (
	"encoding/json"
	"errors"
	"mime"
	"net/http"

	"ragstore/internal/auth"
)

// handleToken exchanges admin credentials for a bearer token. Both JSON
// bodies and classic form posts are accepted.
func (h *Handler) handleToken(w http.ResponseWriter, r *http.Request) {
	var req TokenRequest
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/x-www-form-urlencoded" || mediaType == "multipart/form-data" {
		if err := r.ParseForm(); err != nil {
			writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "Invalid form body")
			return
		}
		req.Username = r.FormValue("username")
		req.Password = r.FormValue("password")
	} else if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "Invalid request body")
		return
	}
	if req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "Missing credentials")
		return
	}
	token, err := h.auth.SignIn(req.Username, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) || errors.Is(err, auth.ErrAccountDisabled) {
			w.Header().Set("WWW-Authenticate", "Bearer")
			writeError(w, http.StatusUnauthorized, ErrCodeUnauthorized, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, "Could not issue token")
		return
	}
	writeJSON(w, http.StatusOK, token)
}
