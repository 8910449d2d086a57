package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opencanvas/canvasd/internal/canvasservice"
)

func newTestRouter() (*canvasservice.Service, http.Handler) {
	svc := canvasservice.New()
	return svc, NewRouter(svc, Options{})
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestHealthReportsClientCount(t *testing.T) {
	_, h := newTestRouter()
	rr := doJSON(t, h, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, float64(0), body["clients"])
}

func TestCreateAndGetElement(t *testing.T) {
	_, h := newTestRouter()
	rr := doJSON(t, h, http.MethodPost, "/api/elements", map[string]any{"type": "rectangle", "x": 0, "y": 0, "width": 100, "height": 50})
	require.Equal(t, http.StatusOK, rr.Code)

	var created struct {
		Success bool           `json:"success"`
		Element map[string]any `json:"element"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &created))
	require.True(t, created.Success)
	id := created.Element["id"].(string)
	require.NotEmpty(t, id)

	rr2 := doJSON(t, h, http.MethodGet, "/api/elements/"+id, nil)
	assert.Equal(t, http.StatusOK, rr2.Code)
}

func TestPatchPreservesAngle(t *testing.T) {
	_, h := newTestRouter()
	create := doJSON(t, h, http.MethodPost, "/api/elements", map[string]any{"type": "rectangle", "x": 0, "y": 0, "width": 100, "height": 50})
	var created struct {
		Element map[string]any `json:"element"`
	}
	require.NoError(t, json.Unmarshal(create.Body.Bytes(), &created))
	id := created.Element["id"].(string)

	patch := doJSON(t, h, http.MethodPut, "/api/elements/"+id, map[string]any{"x": 200})
	require.Equal(t, http.StatusOK, patch.Code)
	var patched struct {
		Element map[string]any `json:"element"`
	}
	require.NoError(t, json.Unmarshal(patch.Body.Bytes(), &patched))
	assert.Equal(t, 0.0, patched.Element["angle"])
	assert.Equal(t, 200.0, patched.Element["x"])
}

func TestBatchResolvesArrowBindings(t *testing.T) {
	_, h := newTestRouter()
	body := map[string]any{"elements": []map[string]any{
		{"id": "A", "type": "rectangle", "x": 0, "y": 0, "width": 100, "height": 50},
		{"id": "B", "type": "rectangle", "x": 300, "y": 0, "width": 100, "height": 50},
		{"type": "arrow", "x": 0, "y": 0, "start": map[string]any{"id": "A"}, "end": map[string]any{"id": "B"}},
	}}
	rr := doJSON(t, h, http.MethodPost, "/api/elements/batch", body)
	require.Equal(t, http.StatusOK, rr.Code)

	var result struct {
		Elements []map[string]any `json:"elements"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &result))
	require.Len(t, result.Elements, 3)
	arrow := result.Elements[2]
	assert.Equal(t, "A", arrow["startBinding"].(map[string]any)["elementId"])
	assert.Equal(t, "B", arrow["endBinding"].(map[string]any)["elementId"])
	assert.Len(t, arrow["points"], 2)
	assert.Nil(t, arrow["start"])
	assert.Nil(t, arrow["end"])
}

func TestSearchCompositeFilter(t *testing.T) {
	_, h := newTestRouter()
	elements := []map[string]any{
		{"type": "rectangle", "x": 0, "y": 0, "width": 200, "height": 50, "strokeColor": "#ff0000"},
		{"type": "rectangle", "x": 0, "y": 0, "width": 50, "height": 50, "strokeColor": "#ff0000"},
		{"type": "ellipse", "x": 0, "y": 0, "width": 200, "height": 50, "strokeColor": "#ff0000"},
		{"type": "rectangle", "x": 0, "y": 0, "width": 200, "height": 50, "strokeColor": "#00ff00"},
		{"type": "rectangle", "x": 0, "y": 0, "width": 200, "height": 50, "strokeColor": "#ff0000", "text": "hi"},
	}
	for _, el := range elements {
		rr := doJSON(t, h, http.MethodPost, "/api/elements", el)
		require.Equal(t, http.StatusOK, rr.Code)
	}

	rr := doJSON(t, h, http.MethodGet, "/api/elements/search?type=rectangle&strokeColor=%23ff0000&minWidth=100", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var result struct {
		Count int `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &result))
	assert.Equal(t, 2, result.Count)
}

func TestSyncAssignsIDsAndResolvesBindings(t *testing.T) {
	_, h := newTestRouter()
	body := map[string]any{"elements": []map[string]any{
		{"id": "A", "type": "rectangle", "x": 0, "y": 0, "width": 100, "height": 50},
		{"type": "rectangle", "x": 300, "y": 0, "width": 100, "height": 50},
		{"type": "arrow", "x": 0, "y": 0, "start": map[string]any{"id": "A"}},
	}}
	rr := doJSON(t, h, http.MethodPost, "/api/elements/sync", body)
	require.Equal(t, http.StatusOK, rr.Code)

	list := doJSON(t, h, http.MethodGet, "/api/elements", nil)
	require.Equal(t, http.StatusOK, list.Code)
	var result struct {
		Elements []map[string]any `json:"elements"`
	}
	require.NoError(t, json.Unmarshal(list.Body.Bytes(), &result))
	require.Len(t, result.Elements, 3)

	ids := map[string]bool{}
	var arrow map[string]any
	for _, el := range result.Elements {
		id, _ := el["id"].(string)
		require.NotEmpty(t, id, "every synced element must be assigned a non-empty id")
		assert.False(t, ids[id], "synced element ids must be unique")
		ids[id] = true
		if el["type"] == "arrow" {
			arrow = el
		}
	}
	require.NotNil(t, arrow)
	assert.Equal(t, "A", arrow["startBinding"].(map[string]any)["elementId"])
	assert.Len(t, arrow["points"], 2)
}

func TestExportImageWithoutPeersReturns503(t *testing.T) {
	_, h := newTestRouter()
	rr := doJSON(t, h, http.MethodPost, "/api/export/image", map[string]any{"format": "png"})
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.False(t, body["success"].(bool))
}

func TestLateResultStillReturns200(t *testing.T) {
	_, h := newTestRouter()
	rr := doJSON(t, h, http.MethodPost, "/api/export/image/result", map[string]any{"requestId": "ghost", "format": "png", "data": ""})
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestSnapshotLifecycle(t *testing.T) {
	_, h := newTestRouter()
	doJSON(t, h, http.MethodPost, "/api/elements", map[string]any{"type": "rectangle", "x": 0, "y": 0, "width": 100, "height": 50})

	rr := doJSON(t, h, http.MethodPost, "/api/snapshots", map[string]any{"name": "v1"})
	require.Equal(t, http.StatusOK, rr.Code)

	rrGet := doJSON(t, h, http.MethodGet, "/api/snapshots/v1", nil)
	require.Equal(t, http.StatusOK, rrGet.Code)

	rrMissing := doJSON(t, h, http.MethodGet, "/api/snapshots/nope", nil)
	assert.Equal(t, http.StatusNotFound, rrMissing.Code)
}

func TestSnapshotCreateMissingNameIs400(t *testing.T) {
	_, h := newTestRouter()
	rr := doJSON(t, h, http.MethodPost, "/api/snapshots", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}
