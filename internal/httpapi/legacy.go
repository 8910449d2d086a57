package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/opencanvas/canvasd/internal/canvas"
)

// mountLegacy wires the verbatim backward-compatible surface: /health,
// /canvas, /elements(/:id), /clear, /snapshot.
func (a *api) mountLegacy(r chi.Router) {
	r.Get("/health", a.legacyHealth)
	r.Get("/canvas", a.legacyGetCanvas)
	r.Post("/canvas", a.legacyPostCanvas)
	r.Get("/elements", a.legacyListElements)
	r.Post("/elements", a.legacyCreateElement)
	r.Get("/elements/{id}", a.legacyGetElement)
	r.Put("/elements/{id}", a.legacyUpdateElement)
	r.Delete("/elements/{id}", a.legacyDeleteElement)
	r.Post("/clear", a.legacyClear)
	r.Get("/snapshot", a.legacySnapshot)
}

func (a *api) legacyHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "clients": a.svc.Bus.Count()})
}

func (a *api) legacyGetCanvas(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.svc.ExportScene())
}

func (a *api) legacyPostCanvas(w http.ResponseWriter, r *http.Request) {
	var scene canvas.Scene
	if err := json.NewDecoder(r.Body).Decode(&scene); err != nil {
		badRequest(w, "invalid scene body: "+err.Error())
		return
	}
	_, _ = a.svc.ApplyCanvasSync(scene.Elements, nil)
	writeJSON(w, http.StatusOK, a.svc.ExportScene())
}

func (a *api) legacyListElements(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.svc.Store.List())
}

func (a *api) legacyCreateElement(w http.ResponseWriter, r *http.Request) {
	var el canvas.Element
	if err := json.NewDecoder(r.Body).Decode(&el); err != nil {
		badRequest(w, "invalid element body: "+err.Error())
		return
	}
	created, err := a.svc.CreateElement(&el, nil)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, created)
}

func (a *api) legacyGetElement(w http.ResponseWriter, r *http.Request) {
	el, err := a.svc.Store.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, el)
}

func (a *api) legacyUpdateElement(w http.ResponseWriter, r *http.Request) {
	var delta map[string]any
	if err := json.NewDecoder(r.Body).Decode(&delta); err != nil {
		badRequest(w, "invalid patch body: "+err.Error())
		return
	}
	el, err := a.svc.UpdateElement(chi.URLParam(r, "id"), delta, nil)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, el)
}

func (a *api) legacyDeleteElement(w http.ResponseWriter, r *http.Request) {
	if !a.svc.DeleteElement(chi.URLParam(r, "id"), nil) {
		writeJSON(w, http.StatusNotFound, map[string]any{"success": false, "error": "element not found"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (a *api) legacyClear(w http.ResponseWriter, r *http.Request) {
	a.svc.ClearCanvas(nil)
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (a *api) legacySnapshot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.svc.ExportScene())
}
