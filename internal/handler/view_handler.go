package handler

import (
	"encoding/json"
	"net/http"

	"naspac-portal/internal/views"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"
)

// ViewResponse is the backend data a view is rendered from, keyed by path
type ViewResponse struct {
	View  string                     `json:"view"`
	Route string                     `json:"route"`
	Data  map[string]json.RawMessage `json:"data"`
}

// View checks the session role against the view's allow-list and loads its
// data. A role outside the list gets the restricted placeholder, not a redirect.
func View(w http.ResponseWriter, r *http.Request) {
	c, ok := requireClient(w, r)
	if !ok {
		return
	}
	role := c.Session().State().Role

	v, err := views.Authorize(chi.URLParam(r, "view"), role)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	paths := v.DataPaths(role)
	results := make([]json.RawMessage, len(paths))
	g, ctx := errgroup.WithContext(r.Context())
	for i, path := range paths {
		g.Go(func() error {
			raw, err := c.Backend.Fetch(ctx, path)
			if err != nil {
				return err
			}
			results[i] = raw
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		writeServiceError(w, r, err)
		return
	}

	data := make(map[string]json.RawMessage, len(paths))
	for i, path := range paths {
		data[path] = results[i]
	}
	writeJSON(w, http.StatusOK, ViewResponse{View: v.Name, Route: v.Route, Data: data})
}
