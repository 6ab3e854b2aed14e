package handler

import (
	"mime"
	"net/http"
	"strconv"

	"naspac-portal/internal/backend"
	"naspac-portal/internal/domain"
	"naspac-portal/internal/observability"
)

// AppointmentLetter streams the endorsed or job confirmation letter of the
// signed-in personnel.
func AppointmentLetter(w http.ResponseWriter, r *http.Request) {
	c, ok := requireClient(w, r)
	if !ok {
		return
	}
	if c.Session().State().Role != domain.RolePersonnel {
		writeRestricted(w)
		return
	}

	letter := backend.LetterType(r.URL.Query().Get("type"))
	if letter != backend.LetterEndorsed && letter != backend.LetterJobConfirmation {
		writeError(w, http.StatusBadRequest, "Invalid letter type")
		return
	}

	doc, err := c.Backend.DownloadLetter(r.Context(), letter)
	if err != nil {
		observability.FromContext(r.Context()).Warn("letter download failed", "letter", letter, "error", err)
		writeError(w, http.StatusBadGateway, "Failed to download letter")
		return
	}

	w.Header().Set("Content-Type", doc.ContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": doc.Filename}))
	w.Header().Set("Content-Length", strconv.Itoa(len(doc.Body)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(doc.Body)
}
