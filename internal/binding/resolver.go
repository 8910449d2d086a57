// Package binding implements the arrow binding resolver: a pure function
// from an input-form element batch (carrying raw start/end endpoint
// references) to a resolved-form batch (edge-attachment points, gap
// offsets, and binding records). Shaped after a wire-request/resolved-form
// split seen elsewhere in this codebase, generalized here to element
// geometry.
package binding

import (
	"math"

	"github.com/opencanvas/canvasd/internal/canvas"
)

// Gap is the uniform offset applied away from each edge attachment point.
const Gap = 8.0

// Resolve runs the arrow binding resolver over batch, using working as the
// combined batch∪store element map for reference lookups. It mutates in
// place the elements of batch that carry start/end references and returns
// batch; elements without references pass through untouched.
func Resolve(batch []*canvas.Element, working map[string]*canvas.Element) []*canvas.Element {
	// The resolver must see every element of this batch when resolving
	// intra-batch references, so merge the batch into a local copy of the
	// working map before resolving any one of them.
	merged := make(map[string]*canvas.Element, len(working)+len(batch))
	for k, v := range working {
		merged[k] = v
	}
	for _, el := range batch {
		merged[el.ID] = el
	}

	for _, el := range batch {
		if !canvas.IsArrowLike(el.Type) {
			continue
		}
		if el.Start == nil && el.End == nil {
			continue
		}
		resolveOne(el, merged)
	}
	return batch
}

func resolveOne(arrow *canvas.Element, working map[string]*canvas.Element) {
	var startPeer, endPeer *canvas.Element
	if arrow.Start != nil {
		startPeer = working[arrow.Start.ID]
	}
	if arrow.End != nil {
		endPeer = working[arrow.End.ID]
	}

	var startCenter, endCenter point
	if startPeer != nil {
		startCenter = center(startPeer)
	}
	if endPeer != nil {
		endCenter = center(endPeer)
	}

	var start, end point
	switch {
	case startPeer != nil && endPeer != nil:
		start = edgeAttachment(startPeer, endCenter)
		end = edgeAttachment(endPeer, startCenter)
	case startPeer != nil:
		// Missing end reference: substitute the straight default end point
		// 100 units right of the arrow's own declared position.
		end = point{arrow.X + 100, arrow.Y}
		start = edgeAttachment(startPeer, end)
	case endPeer != nil:
		start = point{arrow.X, arrow.Y}
		end = edgeAttachment(endPeer, start)
	default:
		// Both references missing from the working map: straight default
		// anchored at the arrow's own declared position.
		start = point{arrow.X, arrow.Y}
		end = point{arrow.X + 100, arrow.Y}
	}

	origStart, origEnd := start, end
	start = applyGap(origStart, origEnd)
	end = applyGap(origEnd, origStart)

	arrow.X = start.x
	arrow.Y = start.y
	arrow.Points = []canvas.Point{{0, 0}, {end.x - start.x, end.y - start.y}}

	if startPeer != nil {
		arrow.StartBinding = &canvas.Binding{ElementID: startPeer.ID, Focus: 0, Gap: Gap}
	}
	if endPeer != nil {
		arrow.EndBinding = &canvas.Binding{ElementID: endPeer.ID, Focus: 0, Gap: Gap}
	}
	arrow.Start = nil
	arrow.End = nil
}

type point struct{ x, y float64 }

func center(el *canvas.Element) point {
	return point{el.X + el.Width/2, el.Y + el.Height/2}
}

// edgeAttachment computes where the vector from el's center toward other
// crosses el's silhouette, type-specific.
func edgeAttachment(el *canvas.Element, other point) point {
	c := center(el)
	dx := other.x - c.x
	dy := other.y - c.y
	hw := el.Width / 2
	hh := el.Height / 2

	if dx == 0 && dy == 0 {
		// Degenerate case: pick the bottom face.
		return point{c.x, c.y + hh}
	}

	switch el.Type {
	case "diamond":
		scale := 1 / (math.Abs(dx)/hw + math.Abs(dy)/hh)
		return point{c.x + dx*scale, c.y + dy*scale}
	case "ellipse":
		theta := math.Atan2(dy, dx)
		return point{c.x + hw*math.Cos(theta), c.y + hh*math.Sin(theta)}
	default: // rectangle and everything else defaults to the rectangle silhouette.
		if hw == 0 || hh == 0 {
			return point{c.x + dx, c.y + dy}
		}
		// Project along the bounding-box silhouette: pick the horizontal or
		// vertical face whose slope places the intersection on that face.
		slope := math.Abs(dy / dx)
		boxSlope := hh / hw
		if math.IsInf(slope, 1) || slope > boxSlope {
			// Crosses the top/bottom face.
			scale := hh / math.Abs(dy)
			return point{c.x + dx*scale, c.y + dy*scale}
		}
		scale := hw / math.Abs(dx)
		return point{c.x + dx*scale, c.y + dy*scale}
	}
}

// applyGap moves p off its edge attachment by Gap along the p→target
// direction, i.e. toward target.
func applyGap(p, target point) point {
	dx := target.x - p.x
	dy := target.y - p.y
	dist := math.Hypot(dx, dy)
	if dist == 0 {
		return p
	}
	return point{p.x + (dx/dist)*Gap, p.y + (dy/dist)*Gap}
}
