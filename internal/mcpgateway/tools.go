package mcpgateway

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/opencanvas/canvasd/internal/canvas"
	"github.com/opencanvas/canvasd/internal/canvaserr"
	"github.com/opencanvas/canvasd/internal/canvasservice"
	"github.com/opencanvas/canvasd/internal/correlator"
)

// register populates the closed tool catalogue. Every handler is a pure
// function of (ctx, svc, args) with no access to the gateway beyond svc,
// matching the Scene Store / Correlator / Broadcast Bus operations each
// tool is documented to use.
func (g *Gateway) register() {
	g.add("create_element", "Create a single canvas element.", toolCreateElement)
	g.add("batch_create_elements", "Create multiple canvas elements as one batch, resolving intra-batch arrow references.", toolBatchCreateElements)
	g.add("update_element", "Patch an existing element by id.", toolUpdateElement)
	g.add("delete_element", "Delete an element by id.", toolDeleteElement)
	g.add("clear_canvas", "Remove every element from the canvas.", toolClearCanvas)
	g.add("duplicate_elements", "Clone elements with a position offset.", toolDuplicateElements)
	g.add("query_elements", "Search elements by type, style, size, or text.", toolQueryElements)
	g.add("get_element", "Fetch a single element by id.", toolGetElement)
	g.add("describe_scene", "Render a human-readable summary of the current scene.", toolDescribeScene)
	g.add("group_elements", "Assign a shared group id to the named elements.", toolGroupElements)
	g.add("ungroup_elements", "Remove a group id from the named elements.", toolUngroupElements)
	g.add("lock_elements", "Lock the named elements against further edits.", toolLockElements)
	g.add("unlock_elements", "Unlock the named elements.", toolUnlockElements)
	g.add("align_elements", "Align the named elements to one edge or axis of their bounding box.", toolAlignElements)
	g.add("distribute_elements", "Evenly space the named elements between their outer bounds.", toolDistributeElements)
	g.add("snapshot_scene", "Create a named snapshot of the current scene.", toolSnapshotScene)
	g.add("restore_snapshot", "Restore the scene from a named snapshot.", toolRestoreSnapshot)
	g.add("import_scene", "Adopt a supplied scene, merging or replacing the current one.", toolImportScene)
	g.add("export_scene", "Dump the canonical scene JSON.", toolExportScene)
	g.add("create_from_mermaid", "Convert a mermaid diagram into canvas elements via the connected editor.", toolCreateFromMermaid)
	g.add("set_viewport", "Adjust the connected editor's viewport.", toolSetViewport)
	g.add("export_to_image", "Render the scene to an image via the connected editor.", toolExportToImage)
	g.add("get_canvas_screenshot", "Capture a screenshot of the current canvas via the connected editor.", toolGetCanvasScreenshot)
	g.add("get_resource", "Fetch a read-only projection of the scene, theme, or library.", toolGetResource)
	g.add("read_diagram_guide", "Return a static guide on diagramming conventions.", toolReadDiagramGuide)
	g.add("export_to_excalidraw_url", "Encode the scene into an excalidraw.com URL fragment.", toolExportToExcalidrawURL)
}

func decodeArgs(args json.RawMessage, v any) error {
	if len(args) == 0 {
		return canvaserr.New(canvaserr.InvalidArgument, "arguments are required")
	}
	if err := json.Unmarshal(args, v); err != nil {
		return canvaserr.New(canvaserr.InvalidArgument, "invalid arguments: %v", err)
	}
	return nil
}

func toolCreateElement(ctx context.Context, svc *canvasservice.Service, args json.RawMessage) (ToolResult, error) {
	var el canvas.Element
	if err := decodeArgs(args, &el); err != nil {
		return ToolResult{}, err
	}
	created, err := svc.CreateElement(&el, nil)
	if err != nil {
		return ToolResult{}, err
	}
	return textResult(fmt.Sprintf(`{"id":%q}`, created.ID)), nil
}

func toolBatchCreateElements(ctx context.Context, svc *canvasservice.Service, args json.RawMessage) (ToolResult, error) {
	var body struct {
		Elements []*canvas.Element `json:"elements"`
	}
	if err := decodeArgs(args, &body); err != nil {
		return ToolResult{}, err
	}
	created, err := svc.BatchCreate(body.Elements, nil)
	if err != nil {
		return ToolResult{}, err
	}
	return jsonTextResult(map[string]any{"elements": created, "count": len(created)})
}

func toolUpdateElement(ctx context.Context, svc *canvasservice.Service, args json.RawMessage) (ToolResult, error) {
	var body struct {
		ID    string         `json:"id"`
		Delta map[string]any `json:"updates"`
	}
	if err := decodeArgs(args, &body); err != nil {
		return ToolResult{}, err
	}
	el, err := svc.UpdateElement(body.ID, body.Delta, nil)
	if err != nil {
		return ToolResult{}, err
	}
	return jsonTextResult(el)
}

func toolDeleteElement(ctx context.Context, svc *canvasservice.Service, args json.RawMessage) (ToolResult, error) {
	var body struct {
		ID string `json:"id"`
	}
	if err := decodeArgs(args, &body); err != nil {
		return ToolResult{}, err
	}
	if !svc.DeleteElement(body.ID, nil) {
		return ToolResult{}, canvaserr.New(canvaserr.NotFound, "element %q not found", body.ID)
	}
	return textResult("deleted"), nil
}

func toolClearCanvas(ctx context.Context, svc *canvasservice.Service, args json.RawMessage) (ToolResult, error) {
	svc.ClearCanvas(nil)
	return textResult("canvas cleared"), nil
}

func toolDuplicateElements(ctx context.Context, svc *canvasservice.Service, args json.RawMessage) (ToolResult, error) {
	var body struct {
		IDs     []string `json:"ids"`
		OffsetX float64  `json:"offsetX"`
		OffsetY float64  `json:"offsetY"`
	}
	if err := decodeArgs(args, &body); err != nil {
		return ToolResult{}, err
	}
	clones, err := svc.DuplicateElements(body.IDs, body.OffsetX, body.OffsetY, nil)
	if err != nil {
		return ToolResult{}, err
	}
	return jsonTextResult(map[string]any{"elements": clones})
}

func toolQueryElements(ctx context.Context, svc *canvasservice.Service, args json.RawMessage) (ToolResult, error) {
	var body struct {
		Type         string   `json:"type"`
		Types        []string `json:"types"`
		TextContains string   `json:"textContains"`
	}
	if len(args) > 0 {
		if err := decodeArgs(args, &body); err != nil {
			return ToolResult{}, err
		}
	}
	q := canvas.Query{Types: body.Types, TextContains: body.TextContains}
	if body.Type != "" {
		q.Types = append(q.Types, body.Type)
	}
	elements := svc.Store.Search(q)
	return jsonTextResult(map[string]any{"elements": elements, "count": len(elements)})
}

func toolGetElement(ctx context.Context, svc *canvasservice.Service, args json.RawMessage) (ToolResult, error) {
	var body struct {
		ID string `json:"id"`
	}
	if err := decodeArgs(args, &body); err != nil {
		return ToolResult{}, err
	}
	el, err := svc.Store.Get(body.ID)
	if err != nil {
		return ToolResult{}, err
	}
	return jsonTextResult(el)
}

func toolDescribeScene(ctx context.Context, svc *canvasservice.Service, args json.RawMessage) (ToolResult, error) {
	elements := svc.Store.List()
	if len(elements) == 0 {
		return textResult("The canvas is empty."), nil
	}
	counts := make(map[string]int)
	for _, el := range elements {
		counts[el.Type]++
	}
	types := make([]string, 0, len(counts))
	for t := range counts {
		types = append(types, t)
	}
	sort.Strings(types)
	var b strings.Builder
	fmt.Fprintf(&b, "The canvas contains %d element(s): ", len(elements))
	parts := make([]string, 0, len(types))
	for _, t := range types {
		parts = append(parts, fmt.Sprintf("%d %s", counts[t], t))
	}
	b.WriteString(strings.Join(parts, ", "))
	b.WriteString(".")
	return textResult(b.String()), nil
}

func toolGroupElements(ctx context.Context, svc *canvasservice.Service, args json.RawMessage) (ToolResult, error) {
	var body struct {
		IDs []string `json:"ids"`
	}
	if err := decodeArgs(args, &body); err != nil {
		return ToolResult{}, err
	}
	groupID, err := svc.GroupElements(body.IDs, nil)
	if err != nil {
		return ToolResult{}, err
	}
	return jsonTextResult(map[string]any{"groupId": groupID})
}

func toolUngroupElements(ctx context.Context, svc *canvasservice.Service, args json.RawMessage) (ToolResult, error) {
	var body struct {
		IDs     []string `json:"ids"`
		GroupID string   `json:"groupId"`
	}
	if err := decodeArgs(args, &body); err != nil {
		return ToolResult{}, err
	}
	if err := svc.UngroupElements(body.IDs, body.GroupID, nil); err != nil {
		return ToolResult{}, err
	}
	return textResult("ungrouped"), nil
}

func toolLockElements(ctx context.Context, svc *canvasservice.Service, args json.RawMessage) (ToolResult, error) {
	return setLocked(svc, args, true)
}

func toolUnlockElements(ctx context.Context, svc *canvasservice.Service, args json.RawMessage) (ToolResult, error) {
	return setLocked(svc, args, false)
}

func setLocked(svc *canvasservice.Service, args json.RawMessage, locked bool) (ToolResult, error) {
	var body struct {
		IDs []string `json:"ids"`
	}
	if err := decodeArgs(args, &body); err != nil {
		return ToolResult{}, err
	}
	if err := svc.SetLocked(body.IDs, locked, nil); err != nil {
		return ToolResult{}, err
	}
	if locked {
		return textResult("locked"), nil
	}
	return textResult("unlocked"), nil
}

func toolAlignElements(ctx context.Context, svc *canvasservice.Service, args json.RawMessage) (ToolResult, error) {
	var body struct {
		IDs       []string `json:"ids"`
		Alignment string   `json:"alignment"`
	}
	if err := decodeArgs(args, &body); err != nil {
		return ToolResult{}, err
	}
	elements, err := svc.Elements(body.IDs)
	if err != nil {
		return ToolResult{}, err
	}
	if len(elements) == 0 {
		return ToolResult{}, canvaserr.New(canvaserr.InvalidArgument, "at least one element id is required")
	}

	minX, minY := elements[0].X, elements[0].Y
	maxX, maxY := elements[0].X+elements[0].Width, elements[0].Y+elements[0].Height
	for _, el := range elements[1:] {
		minX = min(minX, el.X)
		minY = min(minY, el.Y)
		maxX = max(maxX, el.X+el.Width)
		maxY = max(maxY, el.Y+el.Height)
	}

	positions := make(map[string][2]float64, len(elements))
	for _, el := range elements {
		x, y := el.X, el.Y
		switch body.Alignment {
		case "left":
			x = minX
		case "right":
			x = maxX - el.Width
		case "top":
			y = minY
		case "bottom":
			y = maxY - el.Height
		case "center":
			x = (minX+maxX)/2 - el.Width/2
		case "middle":
			y = (minY+maxY)/2 - el.Height/2
		default:
			return ToolResult{}, canvaserr.New(canvaserr.InvalidArgument, "unknown alignment %q", body.Alignment)
		}
		positions[el.ID] = [2]float64{x, y}
	}

	updated, err := svc.ApplyPositions(positions, nil)
	if err != nil {
		return ToolResult{}, err
	}
	return jsonTextResult(map[string]any{"elements": updated})
}

func toolDistributeElements(ctx context.Context, svc *canvasservice.Service, args json.RawMessage) (ToolResult, error) {
	var body struct {
		IDs       []string `json:"ids"`
		Direction string   `json:"direction"`
	}
	if err := decodeArgs(args, &body); err != nil {
		return ToolResult{}, err
	}
	elements, err := svc.Elements(body.IDs)
	if err != nil {
		return ToolResult{}, err
	}
	if len(elements) < 3 {
		return ToolResult{}, canvaserr.New(canvaserr.InvalidArgument, "distribute requires at least 3 elements")
	}

	horizontal := body.Direction == "horizontal"
	if !horizontal && body.Direction != "vertical" {
		return ToolResult{}, canvaserr.New(canvaserr.InvalidArgument, "unknown direction %q", body.Direction)
	}

	sorted := append([]*canvas.Element(nil), elements...)
	sort.Slice(sorted, func(i, j int) bool {
		if horizontal {
			return sorted[i].X < sorted[j].X
		}
		return sorted[i].Y < sorted[j].Y
	})

	var lo, hi, sumSize float64
	if horizontal {
		lo, hi = sorted[0].X, sorted[len(sorted)-1].X+sorted[len(sorted)-1].Width
	} else {
		lo, hi = sorted[0].Y, sorted[len(sorted)-1].Y+sorted[len(sorted)-1].Height
	}
	for _, el := range sorted {
		if horizontal {
			sumSize += el.Width
		} else {
			sumSize += el.Height
		}
	}
	gap := (hi - lo - sumSize) / float64(len(sorted)-1)

	positions := make(map[string][2]float64, len(sorted))
	cursor := lo
	for _, el := range sorted {
		if horizontal {
			positions[el.ID] = [2]float64{cursor, el.Y}
			cursor += el.Width + gap
		} else {
			positions[el.ID] = [2]float64{el.X, cursor}
			cursor += el.Height + gap
		}
	}

	updated, err := svc.ApplyPositions(positions, nil)
	if err != nil {
		return ToolResult{}, err
	}
	return jsonTextResult(map[string]any{"elements": updated})
}

func toolSnapshotScene(ctx context.Context, svc *canvasservice.Service, args json.RawMessage) (ToolResult, error) {
	var body struct {
		Name string `json:"name"`
	}
	if err := decodeArgs(args, &body); err != nil {
		return ToolResult{}, err
	}
	snap := svc.SnapshotScene(body.Name)
	return jsonTextResult(map[string]any{"name": snap.Name, "count": len(snap.Elements)})
}

func toolRestoreSnapshot(ctx context.Context, svc *canvasservice.Service, args json.RawMessage) (ToolResult, error) {
	var body struct {
		Name string `json:"name"`
	}
	if err := decodeArgs(args, &body); err != nil {
		return ToolResult{}, err
	}
	if err := svc.RestoreSnapshot(body.Name, nil); err != nil {
		return ToolResult{}, err
	}
	return textResult("restored"), nil
}

func toolImportScene(ctx context.Context, svc *canvasservice.Service, args json.RawMessage) (ToolResult, error) {
	var body struct {
		Scene canvas.Scene `json:"scene"`
		Mode  string       `json:"mode"`
	}
	if err := decodeArgs(args, &body); err != nil {
		return ToolResult{}, err
	}
	if body.Mode != "merge" && body.Mode != "replace" {
		return ToolResult{}, canvaserr.New(canvaserr.InvalidArgument, "mode must be merge or replace")
	}
	if err := svc.ImportScene(body.Scene, body.Mode, nil); err != nil {
		return ToolResult{}, err
	}
	return textResult("imported"), nil
}

func toolExportScene(ctx context.Context, svc *canvasservice.Service, args json.RawMessage) (ToolResult, error) {
	return jsonTextResult(svc.ExportScene())
}

func toolCreateFromMermaid(ctx context.Context, svc *canvasservice.Service, args json.RawMessage) (ToolResult, error) {
	var body struct {
		MermaidDiagram string         `json:"mermaidDiagram"`
		Config         map[string]any `json:"config"`
	}
	if err := decodeArgs(args, &body); err != nil {
		return ToolResult{}, err
	}
	payload := map[string]any{"mermaidDiagram": body.MermaidDiagram, "config": body.Config}
	_, waiter, err := svc.IssueCorrelated(correlator.Mermaid, correlator.DefaultDeadline(correlator.Mermaid), "mermaid_convert", payload)
	if err != nil {
		return ToolResult{}, err
	}
	result, err := waiter.Wait(ctx)
	if err != nil {
		return ToolResult{}, err
	}
	return jsonTextResult(result)
}

func toolSetViewport(ctx context.Context, svc *canvasservice.Service, args json.RawMessage) (ToolResult, error) {
	var payload map[string]any
	if len(args) > 0 {
		if err := decodeArgs(args, &payload); err != nil {
			return ToolResult{}, err
		}
	} else {
		payload = map[string]any{}
	}
	_, waiter, err := svc.IssueCorrelated(correlator.Viewport, correlator.DefaultDeadline(correlator.Viewport), "set_viewport", payload)
	if err != nil {
		return ToolResult{}, err
	}
	result, err := waiter.Wait(ctx)
	if err != nil {
		return ToolResult{}, err
	}
	return jsonTextResult(result)
}

func toolExportToImage(ctx context.Context, svc *canvasservice.Service, args json.RawMessage) (ToolResult, error) {
	var body struct {
		Format     string `json:"format"`
		Background string `json:"background"`
	}
	if err := decodeArgs(args, &body); err != nil {
		return ToolResult{}, err
	}
	if body.Format != "png" && body.Format != "svg" {
		return ToolResult{}, canvaserr.New(canvaserr.InvalidArgument, "format must be png or svg")
	}
	payload := map[string]any{"format": body.Format, "background": body.Background}
	_, waiter, err := svc.IssueCorrelated(correlator.ExportImage, correlator.DefaultDeadline(correlator.ExportImage), "export_image_request", payload)
	if err != nil {
		return ToolResult{}, err
	}
	result, err := waiter.Wait(ctx)
	if err != nil {
		return ToolResult{}, err
	}
	m, _ := result.(map[string]any)
	if m != nil && body.Format == "png" {
		data, _ := m["data"].(string)
		return imageResult("image/png", data), nil
	}
	return jsonTextResult(result)
}

func toolGetCanvasScreenshot(ctx context.Context, svc *canvasservice.Service, args json.RawMessage) (ToolResult, error) {
	payload := map[string]any{"format": "png"}
	_, waiter, err := svc.IssueCorrelated(correlator.ExportImage, correlator.DefaultDeadline(correlator.ExportImage), "export_image_request", payload)
	if err != nil {
		return ToolResult{}, err
	}
	result, err := waiter.Wait(ctx)
	if err != nil {
		return ToolResult{}, err
	}
	m, _ := result.(map[string]any)
	data, _ := m["data"].(string)
	return imageResult("image/png", data), nil
}

func toolGetResource(ctx context.Context, svc *canvasservice.Service, args json.RawMessage) (ToolResult, error) {
	var body struct {
		Resource string `json:"resource"`
	}
	if err := decodeArgs(args, &body); err != nil {
		return ToolResult{}, err
	}
	switch body.Resource {
	case "scene":
		return jsonTextResult(svc.ExportScene())
	case "elements":
		return jsonTextResult(map[string]any{"elements": svc.Store.List()})
	case "theme":
		return jsonTextResult(map[string]any{
			"viewBackgroundColor":        "#ffffff",
			"currentItemStrokeColor":     "#1e1e2e",
			"currentItemBackgroundColor": "transparent",
		})
	case "library":
		return jsonTextResult(map[string]any{"items": []any{}})
	default:
		return ToolResult{}, canvaserr.New(canvaserr.InvalidArgument, "unknown resource %q", body.Resource)
	}
}

const diagramGuide = `Prefer rectangles for processes, diamonds for decisions, and ellipses for terminators. Keep arrow directions consistent with data or control flow. Group related elements rather than nesting deeply. Favor horizontal flow for sequential processes and vertical flow for hierarchies.`

func toolReadDiagramGuide(ctx context.Context, svc *canvasservice.Service, args json.RawMessage) (ToolResult, error) {
	return textResult(diagramGuide), nil
}

func toolExportToExcalidrawURL(ctx context.Context, svc *canvasservice.Service, args json.RawMessage) (ToolResult, error) {
	scene := svc.ExportScene()
	raw, err := json.Marshal(scene)
	if err != nil {
		return ToolResult{}, canvaserr.New(canvaserr.Internal, "failed to encode scene: %v", err)
	}
	encoded := base64.URLEncoding.EncodeToString(raw)
	url := fmt.Sprintf("https://excalidraw.com/#json=%s,%d", encoded, time.Now().UnixMilli())
	return textResult(url), nil
}

func jsonTextResult(v any) (ToolResult, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return ToolResult{}, canvaserr.New(canvaserr.Internal, "failed to encode result: %v", err)
	}
	return textResult(string(raw)), nil
}
