// Package canvas implements the scene store and element normalizer: the
// authoritative in-memory element set, its snapshot registry, and the
// single place that materializes element defaults before anything reaches
// the store.
package canvas

// Point is a single [x, y] vertex of a line/arrow/freedraw polyline.
type Point [2]float64

// Binding associates an arrow/line endpoint with another element.
type Binding struct {
	ElementID string  `json:"elementId"`
	Focus     float64 `json:"focus"`
	Gap       float64 `json:"gap"`
}

// Element is one drawable record on the canvas.
//
// Fields are carried as a flat struct rather than a type-tag sum because
// every field below is optional depending on Type, and the normalizer,
// search, and patch must all operate uniformly over whatever fields are
// present — a Go struct with pointer/zero-value optionals gives that
// uniform merge/search surface without a type switch at every call site,
// while JSON field presence is still recoverable for patch semantics (see
// Patch in store.go).
type Element struct {
	ID   string `json:"id"`
	Type string `json:"type"`

	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Angle  float64 `json:"angle"`

	StrokeColor     string  `json:"strokeColor"`
	BackgroundColor string  `json:"backgroundColor"`
	StrokeWidth     float64 `json:"strokeWidth"`
	StrokeStyle     string  `json:"strokeStyle"`
	Roughness       float64 `json:"roughness"`
	Opacity         float64 `json:"opacity"`
	FillStyle       string  `json:"fillStyle"`

	Text       string  `json:"text,omitempty"`
	FontSize   float64 `json:"fontSize,omitempty"`
	FontFamily string  `json:"fontFamily,omitempty"`

	Points []Point `json:"points,omitempty"`

	StartBinding *Binding `json:"startBinding,omitempty"`
	EndBinding   *Binding `json:"endBinding,omitempty"`

	GroupIds      []string `json:"groupIds"`
	Locked        bool     `json:"locked"`
	IsDeleted     bool     `json:"isDeleted"`
	BoundElements []string `json:"boundElements,omitempty"`

	Version      int    `json:"version"`
	VersionNonce uint32 `json:"versionNonce"`
	Updated      int64  `json:"updated"`
	CreatedAt    string `json:"createdAt"`
	UpdatedAt    string `json:"updatedAt"`

	// Start/End are the raw input-form endpoint references accepted on
	// create; the arrow binding resolver consumes and strips them,
	// replacing them with StartBinding/EndBinding.
	Start *EndpointRef `json:"start,omitempty"`
	End   *EndpointRef `json:"end,omitempty"`
}

// EndpointRef is the raw input-form reference an arrow/line carries before
// binding resolution.
type EndpointRef struct {
	ID string `json:"id"`
}

// Clone returns an independent deep copy of e, used by the snapshot
// registry (snapshot copies must stay independent of the live store) and
// by tool-catalogue operations that duplicate elements.
func (e *Element) Clone() *Element {
	if e == nil {
		return nil
	}
	c := *e
	if e.Points != nil {
		c.Points = append([]Point(nil), e.Points...)
	}
	if e.GroupIds != nil {
		c.GroupIds = append([]string(nil), e.GroupIds...)
	}
	if e.BoundElements != nil {
		c.BoundElements = append([]string(nil), e.BoundElements...)
	}
	if e.StartBinding != nil {
		b := *e.StartBinding
		c.StartBinding = &b
	}
	if e.EndBinding != nil {
		b := *e.EndBinding
		c.EndBinding = &b
	}
	if e.Start != nil {
		s := *e.Start
		c.Start = &s
	}
	if e.End != nil {
		en := *e.End
		c.End = &en
	}
	return &c
}

// ElementTypes is the closed set of recognized element type tags.
var ElementTypes = map[string]bool{
	"rectangle": true,
	"ellipse":   true,
	"diamond":   true,
	"text":      true,
	"line":      true,
	"arrow":     true,
	"freedraw":  true,
	"image":     true,
	"frame":     true,
}

// IsArrowLike reports whether t is a type that carries points/bindings.
func IsArrowLike(t string) bool {
	return t == "arrow" || t == "line"
}

// AppState is the scene's `appState` map.
type AppState struct {
	ViewBackgroundColor string `json:"viewBackgroundColor"`
	GridSize            int    `json:"gridSize"`
}

// DefaultAppState returns the appState defaults used for a freshly created
// scene.
func DefaultAppState() AppState {
	return AppState{ViewBackgroundColor: "#ffffff", GridSize: 20}
}

// Scene is the full wire representation of the canvas.
type Scene struct {
	Elements []*Element     `json:"elements"`
	AppState AppState       `json:"appState"`
	Files    map[string]any `json:"files"`
}
