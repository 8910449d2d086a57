package binding

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opencanvas/canvasd/internal/canvas"
)

func TestResolveBoundaryScenario(t *testing.T) {
	a := &canvas.Element{ID: "A", Type: "rectangle", X: 0, Y: 0, Width: 100, Height: 50}
	b := &canvas.Element{ID: "B", Type: "rectangle", X: 300, Y: 0, Width: 100, Height: 50}
	arrow := &canvas.Element{ID: "arrow1", Type: "arrow", X: 0, Y: 0, Start: &canvas.EndpointRef{ID: "A"}, End: &canvas.EndpointRef{ID: "B"}}

	batch := []*canvas.Element{a, b, arrow}
	Resolve(batch, map[string]*canvas.Element{})

	require.NotNil(t, arrow.StartBinding)
	require.NotNil(t, arrow.EndBinding)
	assert.Equal(t, "A", arrow.StartBinding.ElementID)
	assert.Equal(t, "B", arrow.EndBinding.ElementID)
	require.Len(t, arrow.Points, 2)
	assert.Nil(t, arrow.Start)
	assert.Nil(t, arrow.End)
}

func TestResolveAgainstStoredElements(t *testing.T) {
	stored := map[string]*canvas.Element{
		"A": {ID: "A", Type: "rectangle", X: 0, Y: 0, Width: 100, Height: 100},
	}
	arrow := &canvas.Element{ID: "arrow1", Type: "arrow", Start: &canvas.EndpointRef{ID: "A"}, End: &canvas.EndpointRef{ID: "missing"}}

	Resolve([]*canvas.Element{arrow}, stored)

	require.NotNil(t, arrow.StartBinding)
	assert.Nil(t, arrow.EndBinding, "missing end reference yields no binding record")
	require.Len(t, arrow.Points, 2)
}

func TestResolveDiamondAndEllipseDoNotPanic(t *testing.T) {
	diamond := &canvas.Element{ID: "D", Type: "diamond", X: 0, Y: 0, Width: 100, Height: 100}
	ellipse := &canvas.Element{ID: "E", Type: "ellipse", X: 300, Y: 300, Width: 80, Height: 40}
	arrow := &canvas.Element{ID: "arrow1", Type: "arrow", Start: &canvas.EndpointRef{ID: "D"}, End: &canvas.EndpointRef{ID: "E"}}

	Resolve([]*canvas.Element{diamond, ellipse, arrow}, map[string]*canvas.Element{})

	require.NotNil(t, arrow.StartBinding)
	require.NotNil(t, arrow.EndBinding)
	require.Len(t, arrow.Points, 2)
}

func TestResolveDegenerateSameCenterPicksBottomFace(t *testing.T) {
	a := &canvas.Element{ID: "A", Type: "rectangle", X: 0, Y: 0, Width: 100, Height: 100}
	b := &canvas.Element{ID: "B", Type: "rectangle", X: 0, Y: 0, Width: 100, Height: 100}
	arrow := &canvas.Element{ID: "arrow1", Type: "arrow", Start: &canvas.EndpointRef{ID: "A"}, End: &canvas.EndpointRef{ID: "B"}}

	assert.NotPanics(t, func() {
		Resolve([]*canvas.Element{a, b, arrow}, map[string]*canvas.Element{})
	})
	require.Len(t, arrow.Points, 2)
	// Both centers are (50,50); the bottom face midpoint is (50,100).
	assert.Equal(t, 50.0, arrow.X)
	assert.Equal(t, 100.0, arrow.Y)
}

func TestResolveSkipsElementsWithoutReferences(t *testing.T) {
	arrow := &canvas.Element{ID: "arrow1", Type: "arrow", Points: []canvas.Point{{0, 0}, {10, 10}}}
	Resolve([]*canvas.Element{arrow}, map[string]*canvas.Element{})
	assert.Len(t, arrow.Points, 2)
	assert.Equal(t, canvas.Point{0, 0}, arrow.Points[0])
}
