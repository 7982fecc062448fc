package editor

import (
	"sort"
	"strconv"
	"sync/atomic"

	"github.com/codersauce/red/internal/keymap"
	"github.com/codersauce/red/internal/plugin/api"
	"github.com/codersauce/red/internal/render"
)

// overlayIDSeq hands out createOverlay IDs; distinct from pluginCall's
// request/reply plumbing since overlay identity must survive past the
// call that created it.
var overlayIDSeq uint64

func (e *Editor) nextOverlayID() string {
	return "overlay:" + strconv.FormatUint(atomic.AddUint64(&overlayIDSeq, 1), 10)
}

func (e *Editor) setOverlay(id string, o render.Overlay) {
	if e.overlays == nil {
		e.overlays = make(map[string]render.Overlay)
	}
	e.overlays[id] = o
}

func (e *Editor) removeOverlay(id string) {
	delete(e.overlays, id)
}

// Overlays implements render.ChromeSource, sorted by id so Compose's
// draw order (and therefore Diff's output) is deterministic across
// calls with the same overlay set.
func (e *Editor) Overlays() []render.Overlay {
	if len(e.overlays) == 0 {
		return nil
	}
	ids := make([]string, 0, len(e.overlays))
	for id := range e.overlays {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out := make([]render.Overlay, len(ids))
	for i, id := range ids {
		out[i] = e.overlays[id]
	}
	return out
}

// pickResult is the outcome of a plugin api.pick() prompt: the chosen
// item's index into req.Items, or ok=false if the prompt was cancelled.
type pickResult struct {
	index int
	ok    bool
}

// pickerState tracks one in-flight api.pick() prompt. Only one can be
// active at a time; a second pick() while one is pending cancels the
// first, the same way opening a new command-line prompt would.
type pickerState struct {
	req    api.PickRequest
	result chan pickResult
}

// startPicker arms a numeric picker overlay: each item is shown with
// its 1-based index, and digit keys 1-9 choose by that index while
// Escape cancels. This trades the spec's fuzzy-filterable picker UI
// for a minimal one digit keys can drive without a text-input mode of
// their own; see DESIGN.md's plugin wiring notes on plugin_overlay.go.
func (e *Editor) startPicker(req api.PickRequest, result chan pickResult) {
	if e.activePicker != nil {
		e.activePicker.result <- pickResult{ok: false}
	}
	e.activePicker = &pickerState{req: req, result: result}
	lines := make([]string, 0, len(req.Items)+1)
	if req.Title != "" {
		lines = append(lines, req.Title)
	}
	for i, item := range req.Items {
		label := item.Label
		if label == "" {
			label = item.Value
		}
		lines = append(lines, strconv.Itoa(i+1)+". "+label)
	}
	w, h := e.backend.Size()
	row := h / 2
	if row > 0 && row < h {
		row--
	}
	col := w/2 - 20
	if col < 0 {
		col = 0
	}
	e.setOverlay(pickerOverlayID, render.Overlay{Row: row, Col: col, Lines: lines})
}

const pickerOverlayID = "picker"

// handlePickerKey consumes one key while a picker prompt is active,
// returning true if it handled the key (so Editor.handleKey should not
// also run it through the keymap).
func (e *Editor) handlePickerKey(k keymap.Key) bool {
	p := e.activePicker
	if p == nil {
		return false
	}
	switch {
	case k.Name == "Escape" || k.Name == "Esc":
		e.closePicker(pickResult{ok: false})
		return true
	case k.Rune >= '1' && k.Rune <= '9':
		idx := int(k.Rune - '1')
		if idx < len(p.req.Items) {
			e.closePicker(pickResult{index: idx, ok: true})
		}
		return true
	default:
		return true
	}
}

func (e *Editor) closePicker(res pickResult) {
	p := e.activePicker
	if p == nil {
		return
	}
	e.activePicker = nil
	e.removeOverlay(pickerOverlayID)
	p.result <- res
}
