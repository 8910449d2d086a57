package httpapi

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLegacyHealth(t *testing.T) {
	_, h := newTestRouter()
	rr := doJSON(t, h, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestLegacyCreateAndListElements(t *testing.T) {
	_, h := newTestRouter()
	rr := doJSON(t, h, http.MethodPost, "/elements", map[string]any{"type": "rectangle", "x": 0, "y": 0, "width": 10, "height": 10})
	require.Equal(t, http.StatusOK, rr.Code)

	rr2 := doJSON(t, h, http.MethodGet, "/elements", nil)
	require.Equal(t, http.StatusOK, rr2.Code)
	var list []map[string]any
	require.NoError(t, json.Unmarshal(rr2.Body.Bytes(), &list))
	assert.Len(t, list, 1)
}

func TestLegacyDeleteUnknownReturns404(t *testing.T) {
	_, h := newTestRouter()
	rr := doJSON(t, h, http.MethodDelete, "/elements/does-not-exist", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestLegacyCanvasRoundTrip(t *testing.T) {
	_, h := newTestRouter()
	rr := doJSON(t, h, http.MethodPost, "/canvas", map[string]any{"elements": []map[string]any{
		{"id": "x1", "type": "rectangle", "x": 0, "y": 0, "width": 10, "height": 10},
	}})
	require.Equal(t, http.StatusOK, rr.Code)

	rr2 := doJSON(t, h, http.MethodGet, "/canvas", nil)
	require.Equal(t, http.StatusOK, rr2.Code)
	var scene map[string]any
	require.NoError(t, json.Unmarshal(rr2.Body.Bytes(), &scene))
	elements := scene["elements"].([]any)
	assert.Len(t, elements, 1)
}

func TestLegacyClearEmptiesCanvas(t *testing.T) {
	_, h := newTestRouter()
	doJSON(t, h, http.MethodPost, "/elements", map[string]any{"type": "rectangle", "x": 0, "y": 0, "width": 10, "height": 10})
	rr := doJSON(t, h, http.MethodPost, "/clear", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	rr2 := doJSON(t, h, http.MethodGet, "/elements", nil)
	var list []map[string]any
	require.NoError(t, json.Unmarshal(rr2.Body.Bytes(), &list))
	assert.Empty(t, list)
}
