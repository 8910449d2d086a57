// Package canvasservice composes the scene store, normalizer, arrow binding
// resolver, broadcast bus, and correlator into the operations shared by the
// REST facade, the WebSocket facade, and the tool gateway. Centralizing
// these here keeps the "normalize, resolve, store, broadcast" sequence
// written once instead of duplicated across three transports.
package canvasservice

import (
	"time"

	"github.com/opencanvas/canvasd/internal/binding"
	"github.com/opencanvas/canvasd/internal/broadcast"
	"github.com/opencanvas/canvasd/internal/canvas"
	"github.com/opencanvas/canvasd/internal/canvaserr"
	"github.com/opencanvas/canvasd/internal/correlator"
	"github.com/opencanvas/canvasd/internal/telemetry"
)

// Service is the canvas state service's core: every mutation that must be
// visible to attached peers goes through one of its methods.
type Service struct {
	Store *canvas.Store
	Norm  *canvas.Normalizer
	Bus   *broadcast.Bus
	Corr  *correlator.Correlator
}

// New constructs a Service wired to fresh, empty components.
func New() *Service {
	return &Service{
		Store: canvas.NewStore(),
		Norm:  canvas.NewNormalizer(),
		Bus:   broadcast.New(),
		Corr:  correlator.New(),
	}
}

func (s *Service) broadcastSync(exclude *broadcast.Peer) {
	s.Bus.Broadcast(broadcast.Message{Type: "canvas_sync", Data: s.Store.Scene()}, exclude)
}

// CreateElement normalizes input, resolves any arrow/line endpoint
// references against the current store contents, stores the result, and
// broadcasts canvas_sync to every peer except exclude.
func (s *Service) CreateElement(input *canvas.Element, exclude *broadcast.Peer) (*canvas.Element, error) {
	el, err := s.Norm.Normalize(input)
	if err != nil {
		return nil, err
	}
	if canvas.IsArrowLike(el.Type) && (el.Start != nil || el.End != nil) {
		binding.Resolve([]*canvas.Element{el}, s.Store.WorkingMap())
	}
	s.Store.Put(el)
	telemetry.MutationsTotal.WithLabelValues("create").Inc()
	s.Bus.Broadcast(broadcast.Message{Type: "element_created", Data: el}, exclude)
	s.broadcastSync(exclude)
	return el, nil
}

// BatchCreate normalizes and resolves every element of inputs as one batch
// (so arrows may reference peer elements created in the same call), stores
// them all, and broadcasts elements_batch_created and canvas_sync once for
// the whole batch.
func (s *Service) BatchCreate(inputs []*canvas.Element, exclude *broadcast.Peer) ([]*canvas.Element, error) {
	normalized := make([]*canvas.Element, 0, len(inputs))
	for _, in := range inputs {
		el, err := s.Norm.Normalize(in)
		if err != nil {
			return nil, err
		}
		normalized = append(normalized, el)
	}
	binding.Resolve(normalized, s.Store.WorkingMap())
	for _, el := range normalized {
		s.Store.Put(el)
	}
	telemetry.MutationsTotal.WithLabelValues("batch_create").Add(float64(len(normalized)))
	s.Bus.Broadcast(broadcast.Message{Type: "elements_batch_created", Data: normalized}, exclude)
	s.broadcastSync(exclude)
	return normalized, nil
}

// UpdateElement merge-patches id with delta and broadcasts canvas_sync.
func (s *Service) UpdateElement(id string, delta map[string]any, exclude *broadcast.Peer) (*canvas.Element, error) {
	el, err := s.Store.Patch(id, delta)
	if err != nil {
		return nil, err
	}
	telemetry.MutationsTotal.WithLabelValues("update").Inc()
	s.Bus.Broadcast(broadcast.Message{Type: "element_updated", Data: el}, exclude)
	s.broadcastSync(exclude)
	return el, nil
}

// DeleteElement removes id from the store and broadcasts canvas_sync,
// reporting whether the element existed.
func (s *Service) DeleteElement(id string, exclude *broadcast.Peer) bool {
	ok := s.Store.Delete(id)
	if !ok {
		return false
	}
	telemetry.MutationsTotal.WithLabelValues("delete").Inc()
	s.Bus.Broadcast(broadcast.Message{Type: "element_deleted", Data: map[string]string{"id": id}}, exclude)
	s.broadcastSync(exclude)
	return true
}

// ClearCanvas empties the store and broadcasts canvas_sync.
func (s *Service) ClearCanvas(exclude *broadcast.Peer) {
	s.Store.Clear()
	telemetry.MutationsTotal.WithLabelValues("clear").Inc()
	s.broadcastSync(exclude)
}

// ApplyCanvasSync normalizes and resolves an inbound full-scene replacement
// (the WebSocket facade's canvas_sync frame and the REST /sync endpoint),
// replaces the live element set, and broadcasts canvas_sync onward. It
// returns the element count before and after the replacement.
func (s *Service) ApplyCanvasSync(elements []*canvas.Element, exclude *broadcast.Peer) (before, after int) {
	before = s.Store.Count()
	normalized := make([]*canvas.Element, 0, len(elements))
	for _, el := range elements {
		n, err := s.Norm.Normalize(el)
		if err != nil {
			continue
		}
		normalized = append(normalized, n)
	}
	binding.Resolve(normalized, s.Store.WorkingMap())
	s.Store.Replace(normalized)
	after = s.Store.Count()
	telemetry.MutationsTotal.WithLabelValues("sync").Inc()
	s.broadcastSync(exclude)
	return before, after
}

// DuplicateElements clones each named element, offsets its position, and
// stores the clones as new elements.
func (s *Service) DuplicateElements(ids []string, offsetX, offsetY float64, exclude *broadcast.Peer) ([]*canvas.Element, error) {
	clones := make([]*canvas.Element, 0, len(ids))
	for _, id := range ids {
		el, err := s.Store.Get(id)
		if err != nil {
			return nil, err
		}
		clone := el.Clone()
		clone.ID = ""
		clone.X += offsetX
		clone.Y += offsetY
		clone.StartBinding = nil
		clone.EndBinding = nil
		normalized, err := s.Norm.Normalize(clone)
		if err != nil {
			return nil, err
		}
		clones = append(clones, normalized)
	}
	for _, el := range clones {
		s.Store.Put(el)
	}
	telemetry.MutationsTotal.WithLabelValues("duplicate").Add(float64(len(clones)))
	s.broadcastSync(exclude)
	return clones, nil
}

// GroupElements assigns a freshly minted group id to every named element.
func (s *Service) GroupElements(ids []string, exclude *broadcast.Peer) (string, error) {
	groupID := canvas.NewGroupID()
	for _, id := range ids {
		el, err := s.Store.Get(id)
		if err != nil {
			return "", err
		}
		clone := el.Clone()
		clone.GroupIds = append(append([]string(nil), clone.GroupIds...), groupID)
		s.Store.Put(clone)
	}
	telemetry.MutationsTotal.WithLabelValues("group").Inc()
	s.broadcastSync(exclude)
	return groupID, nil
}

// UngroupElements removes groupID from every named element's group list.
func (s *Service) UngroupElements(ids []string, groupID string, exclude *broadcast.Peer) error {
	for _, id := range ids {
		el, err := s.Store.Get(id)
		if err != nil {
			return err
		}
		clone := el.Clone()
		kept := clone.GroupIds[:0:0]
		for _, g := range clone.GroupIds {
			if g != groupID {
				kept = append(kept, g)
			}
		}
		clone.GroupIds = kept
		s.Store.Put(clone)
	}
	telemetry.MutationsTotal.WithLabelValues("ungroup").Inc()
	s.broadcastSync(exclude)
	return nil
}

// SetLocked sets the Locked flag on every named element.
func (s *Service) SetLocked(ids []string, locked bool, exclude *broadcast.Peer) error {
	for _, id := range ids {
		el, err := s.Store.Get(id)
		if err != nil {
			return err
		}
		clone := el.Clone()
		clone.Locked = locked
		s.Store.Put(clone)
	}
	op := "lock"
	if !locked {
		op = "unlock"
	}
	telemetry.MutationsTotal.WithLabelValues(op).Inc()
	s.broadcastSync(exclude)
	return nil
}

// Elements resolves ids to their stored elements, failing on the first
// missing one.
func (s *Service) Elements(ids []string) ([]*canvas.Element, error) {
	out := make([]*canvas.Element, 0, len(ids))
	for _, id := range ids {
		el, err := s.Store.Get(id)
		if err != nil {
			return nil, err
		}
		out = append(out, el)
	}
	return out, nil
}

// ApplyPositions overwrites each element's X/Y per the alignment/
// distribution operations' computed layout, then broadcasts once.
func (s *Service) ApplyPositions(positions map[string][2]float64, exclude *broadcast.Peer) ([]*canvas.Element, error) {
	out := make([]*canvas.Element, 0, len(positions))
	for id, xy := range positions {
		el, err := s.Store.Get(id)
		if err != nil {
			return nil, err
		}
		clone := el.Clone()
		clone.X, clone.Y = xy[0], xy[1]
		s.Store.Put(clone)
		out = append(out, clone)
	}
	telemetry.MutationsTotal.WithLabelValues("layout").Inc()
	s.broadcastSync(exclude)
	return out, nil
}

// SnapshotScene delegates to the store's snapshot registry.
func (s *Service) SnapshotScene(name string) *canvas.Snapshot {
	return s.Store.SnapshotCreate(name)
}

// RestoreSnapshot replaces the live scene with a snapshot's contents and
// broadcasts canvas_sync.
func (s *Service) RestoreSnapshot(name string, exclude *broadcast.Peer) error {
	if err := s.Store.SnapshotRestore(name); err != nil {
		return err
	}
	telemetry.MutationsTotal.WithLabelValues("restore_snapshot").Inc()
	s.broadcastSync(exclude)
	return nil
}

// ImportScene replaces or merges elements into the live store depending on
// mode ("replace" or "merge") and broadcasts canvas_sync.
func (s *Service) ImportScene(scene canvas.Scene, mode string, exclude *broadcast.Peer) error {
	switch mode {
	case "merge":
		for _, el := range scene.Elements {
			s.Store.Put(el)
		}
	default: // "replace" and unspecified both replace wholesale.
		s.Store.Replace(scene.Elements)
	}
	telemetry.MutationsTotal.WithLabelValues("import").Inc()
	s.broadcastSync(exclude)
	return nil
}

// ExportScene returns the full wire scene.
func (s *Service) ExportScene() canvas.Scene {
	return s.Store.Scene()
}

// IssueCorrelated allocates a correlated request, tags payload with its id,
// and broadcasts msgType to every attached peer. It fails fast with
// Unavailable when no peer is attached, since no WebSocket client could
// ever answer.
func (s *Service) IssueCorrelated(kind correlator.Kind, deadline time.Duration, msgType string, payload map[string]any) (string, *correlator.Waiter, error) {
	if s.Bus.Count() == 0 {
		return "", nil, canvaserr.New(canvaserr.Unavailable, "no canvas client is connected")
	}
	id, waiter := s.Corr.Issue(kind, deadline)
	payload["requestId"] = id
	s.Bus.Broadcast(broadcast.Message{Type: msgType, Data: payload}, nil)
	return id, waiter, nil
}
