package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/opencanvas/canvasd/internal/canvas"
	"github.com/opencanvas/canvasd/internal/canvaserr"
	"github.com/opencanvas/canvasd/internal/correlator"
)

// mountREST wires the primary /api/... surface.
func (a *api) mountREST(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Get("/elements", a.restListElements)
		r.Post("/elements", a.restCreateElement)
		r.Get("/elements/search", a.restSearchElements)
		r.Post("/elements/batch", a.restBatchElements)
		r.Post("/elements/sync", a.restSyncElements)
		r.Get("/elements/{id}", a.restGetElement)
		r.Put("/elements/{id}", a.restUpdateElement)
		r.Delete("/elements/clear", a.restClearElements)
		r.Delete("/elements/{id}", a.restDeleteElement)

		r.Post("/elements/from-mermaid", a.restFromMermaid)
		r.Post("/elements/from-mermaid/result", a.restFromMermaidResult)
		r.Post("/export/image", a.restExportImage)
		r.Post("/export/image/result", a.restExportImageResult)
		r.Post("/viewport", a.restViewport)
		r.Post("/viewport/result", a.restViewportResult)

		r.Post("/snapshots", a.restCreateSnapshot)
		r.Get("/snapshots", a.restListSnapshots)
		r.Get("/snapshots/{name}", a.restGetSnapshot)

		r.Get("/sync/status", a.restSyncStatus)
	})
}

func (a *api) restListElements(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"elements": a.svc.Store.List()})
}

func (a *api) restCreateElement(w http.ResponseWriter, r *http.Request) {
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
	writeOK(w, map[string]any{"element": created})
}

func (a *api) restSearchElements(w http.ResponseWriter, r *http.Request) {
	q := parseSearchQuery(r.URL.Query())
	elements := a.svc.Store.Search(q)
	writeJSON(w, http.StatusOK, map[string]any{"elements": elements, "count": len(elements)})
}

func (a *api) restBatchElements(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Elements []*canvas.Element `json:"elements"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		badRequest(w, "invalid batch body: "+err.Error())
		return
	}
	created, err := a.svc.BatchCreate(body.Elements, nil)
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, map[string]any{"elements": created, "count": len(created)})
}

func (a *api) restSyncElements(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Elements []*canvas.Element `json:"elements"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		badRequest(w, "invalid sync body: "+err.Error())
		return
	}
	before, after := a.svc.ApplyCanvasSync(body.Elements, nil)
	a.svc.Bus.Broadcast(bcast("elements_synced", map[string]any{"count": after}), nil)
	writeOK(w, map[string]any{
		"beforeCount": before,
		"afterCount":  after,
		"syncedAt":    time.Now().UTC().Format(time.RFC3339Nano),
	})
}

func (a *api) restGetElement(w http.ResponseWriter, r *http.Request) {
	el, err := a.svc.Store.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, map[string]any{"element": el})
}

func (a *api) restUpdateElement(w http.ResponseWriter, r *http.Request) {
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
	writeOK(w, map[string]any{"element": el})
}

func (a *api) restClearElements(w http.ResponseWriter, r *http.Request) {
	a.svc.ClearCanvas(nil)
	a.svc.Bus.Broadcast(bcast("canvas_cleared", nil), nil)
	writeOK(w, nil)
}

func (a *api) restDeleteElement(w http.ResponseWriter, r *http.Request) {
	if !a.svc.DeleteElement(chi.URLParam(r, "id"), nil) {
		writeError(w, canvaserr.New(canvaserr.NotFound, "element %q not found", chi.URLParam(r, "id")))
		return
	}
	writeOK(w, nil)
}

func (a *api) restFromMermaid(w http.ResponseWriter, r *http.Request) {
	var body struct {
		MermaidDiagram string         `json:"mermaidDiagram"`
		Config         map[string]any `json:"config"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		badRequest(w, "invalid body: "+err.Error())
		return
	}
	payload := map[string]any{"mermaidDiagram": body.MermaidDiagram, "config": body.Config}
	_, waiter, err := a.svc.IssueCorrelated(correlator.Mermaid, correlator.DefaultDeadline(correlator.Mermaid), "mermaid_convert", payload)
	if err != nil {
		writeError(w, err)
		return
	}
	result, err := waiter.Wait(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	m, _ := result.(map[string]any)
	elements := m["elements"]
	count := 0
	if list, ok := elements.([]any); ok {
		count = len(list)
	}
	writeOK(w, map[string]any{"elements": elements, "count": count})
}

func (a *api) restFromMermaidResult(w http.ResponseWriter, r *http.Request) {
	var body struct {
		RequestID string `json:"requestId"`
		Elements  any    `json:"elements"`
		Error     string `json:"error"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		badRequest(w, "invalid body: "+err.Error())
		return
	}
	if body.RequestID == "" {
		badRequest(w, "requestId is required")
		return
	}
	if body.Error != "" {
		a.svc.Corr.Fail(body.RequestID, canvaserr.New(canvaserr.PeerError, "%s", body.Error))
	} else {
		a.svc.Corr.Resolve(body.RequestID, map[string]any{"elements": body.Elements})
	}
	writeOK(w, nil)
}

func (a *api) restExportImage(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Format     string `json:"format"`
		Background string `json:"background"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		badRequest(w, "invalid body: "+err.Error())
		return
	}
	if body.Format != "png" && body.Format != "svg" {
		badRequest(w, "format must be png or svg")
		return
	}
	payload := map[string]any{"format": body.Format, "background": body.Background}
	_, waiter, err := a.svc.IssueCorrelated(correlator.ExportImage, correlator.DefaultDeadline(correlator.ExportImage), "export_image_request", payload)
	if err != nil {
		writeError(w, err)
		return
	}
	result, err := waiter.Wait(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	m, _ := result.(map[string]any)
	writeOK(w, map[string]any{"format": body.Format, "data": m["data"]})
}

func (a *api) restExportImageResult(w http.ResponseWriter, r *http.Request) {
	var body struct {
		RequestID string `json:"requestId"`
		Format    string `json:"format"`
		Data      string `json:"data"`
		Error     string `json:"error"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		badRequest(w, "invalid body: "+err.Error())
		return
	}
	if body.RequestID == "" {
		badRequest(w, "requestId is required")
		return
	}
	if body.Error != "" {
		a.svc.Corr.Fail(body.RequestID, canvaserr.New(canvaserr.PeerError, "%s", body.Error))
	} else {
		a.svc.Corr.Resolve(body.RequestID, map[string]any{"data": body.Data})
	}
	writeOK(w, nil)
}

func (a *api) restViewport(w http.ResponseWriter, r *http.Request) {
	var payload map[string]any
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		badRequest(w, "invalid body: "+err.Error())
		return
	}
	_, waiter, err := a.svc.IssueCorrelated(correlator.Viewport, correlator.DefaultDeadline(correlator.Viewport), "set_viewport", payload)
	if err != nil {
		writeError(w, err)
		return
	}
	result, err := waiter.Wait(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	m, _ := result.(map[string]any)
	writeOK(w, m)
}

func (a *api) restViewportResult(w http.ResponseWriter, r *http.Request) {
	var body struct {
		RequestID string `json:"requestId"`
		Success   bool   `json:"success"`
		Message   string `json:"message"`
		Error     string `json:"error"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		badRequest(w, "invalid body: "+err.Error())
		return
	}
	if body.RequestID == "" {
		badRequest(w, "requestId is required")
		return
	}
	if body.Error != "" {
		a.svc.Corr.Fail(body.RequestID, canvaserr.New(canvaserr.PeerError, "%s", body.Error))
	} else {
		a.svc.Corr.Resolve(body.RequestID, map[string]any{"success": body.Success, "message": body.Message})
	}
	writeOK(w, nil)
}

func (a *api) restCreateSnapshot(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Name == "" {
		badRequest(w, "name is required")
		return
	}
	snap := a.svc.SnapshotScene(body.Name)
	writeOK(w, map[string]any{"snapshot": snap})
}

func (a *api) restListSnapshots(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"snapshots": a.svc.Store.SnapshotList()})
}

func (a *api) restGetSnapshot(w http.ResponseWriter, r *http.Request) {
	snap, err := a.svc.Store.SnapshotGet(chi.URLParam(r, "name"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (a *api) restSyncStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"clients": a.svc.Bus.Count(), "elementCount": a.svc.Store.Count()})
}
