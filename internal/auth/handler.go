package auth

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/obada/child-profiles-backend/internal/models"
)

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// Handler holds auth-related HTTP handlers.
type Handler struct {
	verifier *Verifier
	codec    *Codec
	dev      bool
}

func NewHandler(verifier *Verifier, codec *Codec, dev bool) *Handler {
	return &Handler{verifier: verifier, codec: codec, dev: dev}
}

// Login authenticates a profile by name or email plus password and issues a
// bearer token.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"status":  "fail",
			"message": "invalid request body",
		})
		return
	}

	child, err := h.verifier.Verify(r.Context(), req.Name, req.Email, req.Password)
	switch {
	case errors.Is(err, ErrMissingCredentials):
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"status":  "fail",
			"message": err.Error(),
		})
		return
	case errors.Is(err, ErrInvalidCredentials):
		writeJSON(w, http.StatusUnauthorized, map[string]string{
			"status":  "fail",
			"message": err.Error(),
		})
		return
	case err != nil:
		log.Printf("login error: %v", err)
		body := map[string]string{
			"status":  "error",
			"message": "error during login",
		}
		if h.dev {
			body["details"] = err.Error()
		}
		writeJSON(w, http.StatusInternalServerError, body)
		return
	}

	token, err := h.codec.Issue(child.ID.Hex())
	if err != nil {
		log.Printf("token issue error: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"status":  "error",
			"message": "error during login",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "success",
		"token":  token,
		"data":   map[string]interface{}{"child": child},
	})
}
