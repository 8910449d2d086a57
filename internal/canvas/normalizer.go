package canvas

import (
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/opencanvas/canvasd/internal/canvaserr"
)

// Normalizer fills defaults, assigns identity/version fields, and validates
// element shapes before an element reaches the scene store. It is the
// single place that materializes defaults.
type Normalizer struct {
	// now is overridable in tests; defaults to time.Now.
	now func() time.Time
}

// NewNormalizer constructs a Normalizer using the real clock.
func NewNormalizer() *Normalizer {
	return &Normalizer{now: time.Now}
}

// Normalize validates and fills defaults on el in place, returning el for
// chaining. It assigns an id only when el.ID is empty, and resets
// version/versionNonce/timestamps unconditionally on create; callers that patch an existing element use Store.Patch instead,
// which bumps version fields without re-running defaulting.
func (n *Normalizer) Normalize(el *Element) (*Element, error) {
	if el == nil {
		return nil, canvaserr.New(canvaserr.InvalidArgument, "element is required")
	}
	if el.Type == "" || !ElementTypes[el.Type] {
		return nil, canvaserr.New(canvaserr.InvalidArgument, "unknown element type %q", el.Type)
	}
	if el.Start != nil && el.Start.ID == "" {
		return nil, canvaserr.New(canvaserr.InvalidArgument, "start binding id must be a non-empty string")
	}
	if el.End != nil && el.End.ID == "" {
		return nil, canvaserr.New(canvaserr.InvalidArgument, "end binding id must be a non-empty string")
	}

	if el.ID == "" {
		el.ID = newElementID()
	}

	if el.Width == 0 {
		el.Width = 200
	}
	if el.Height == 0 {
		el.Height = 100
	}
	if el.X == 0 && el.Y == 0 {
		el.X = 100
		el.Y = 100
	}
	if el.StrokeColor == "" {
		el.StrokeColor = "#1e1e2e"
	}
	if el.BackgroundColor == "" {
		el.BackgroundColor = "transparent"
	}
	if el.FillStyle == "" {
		el.FillStyle = "hachure"
	}
	if el.StrokeWidth == 0 {
		el.StrokeWidth = 2
	}
	if el.StrokeStyle == "" {
		el.StrokeStyle = "solid"
	}
	if el.Roughness == 0 {
		el.Roughness = 1
	}
	if el.Opacity == 0 {
		el.Opacity = 100
	}
	if el.GroupIds == nil {
		el.GroupIds = []string{}
	}
	el.IsDeleted = false

	if IsArrowLike(el.Type) && len(el.Points) == 0 && el.Start == nil && el.End == nil {
		el.Points = []Point{{0, 0}, {el.Width, 0}}
	}

	now := n.now()
	el.Version = 1
	el.VersionNonce = rand.Uint32()
	el.Updated = now.UnixMilli()
	iso := now.UTC().Format(time.RFC3339Nano)
	el.CreatedAt = iso
	el.UpdatedAt = iso

	return el, nil
}

// newElementID returns a 20 hex-char id derived from a UUID with dashes
// stripped.
func newElementID() string {
	raw := strings.ReplaceAll(uuid.New().String(), "-", "")
	if len(raw) > 20 {
		raw = raw[:20]
	}
	return raw
}

// NewGroupID mints an id for a freshly created element group.
func NewGroupID() string {
	return newElementID()
}
