// internal/server/handlers/page.go

package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"mediaintel/internal/domain/dashboard"
	"mediaintel/internal/service/navigation"
)

// SessionCookie holds the navigation session id
const SessionCookie = "mi_session"

// PageHandler handles navigation between dashboard pages
type PageHandler struct {
	navigator *navigation.Navigator
}

// NewPageHandler creates a new page handler
func NewPageHandler(navigator *navigation.Navigator) *PageHandler {
	return &PageHandler{
		navigator: navigator,
	}
}

// SelectPageRequest is the body of a page change
type SelectPageRequest struct {
	Page string `json:"page"`
}

// GetCurrentPage returns the page selected in this session
func (h *PageHandler) GetCurrentPage(w http.ResponseWriter, r *http.Request) {
	session := h.session(w, r)
	respondWithJSON(w, http.StatusOK, map[string]dashboard.Page{"page": h.navigator.Current(session)})
}

// SelectPage changes the page of this session
func (h *PageHandler) SelectPage(w http.ResponseWriter, r *http.Request) {
	var req SelectPageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}
	if req.Page == "" {
		respondWithError(w, http.StatusBadRequest, "Missing page", nil)
		return
	}

	session := h.session(w, r)
	page, err := h.navigator.Select(session, req.Page)
	if err != nil {
		if errors.Is(err, dashboard.ErrUnknownPage) {
			respondWithError(w, http.StatusNotFound, "Unknown page, returned to "+page.Title, nil)
			return
		}
		respondWithError(w, http.StatusInternalServerError, "Failed to select page", err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]dashboard.Page{"page": page})
}

// ResetPage forgets this session's selection and returns the default page
func (h *PageHandler) ResetPage(w http.ResponseWriter, r *http.Request) {
	session := h.session(w, r)
	h.navigator.Forget(session)
	respondWithJSON(w, http.StatusOK, map[string]dashboard.Page{"page": h.navigator.Current(session)})
}

// session returns the session id from the cookie, issuing one when absent
func (h *PageHandler) session(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(SessionCookie); err == nil && c.Value != "" {
		return c.Value
	}

	id := h.navigator.NewSession()
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return id
}
