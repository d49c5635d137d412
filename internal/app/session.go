// Package app ties the markup layers, the form document and its persistence
// together into an annotation session.
package app

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"log"
	"strings"
	"sync"

	"quality-master/internal/form"
	qmimage "quality-master/internal/image"
	"quality-master/internal/ink"
	"quality-master/internal/legend"
	"quality-master/internal/schedule"
	"quality-master/internal/store"
	"quality-master/pkg/geometry"

	"github.com/benbjohnson/clock"
)

var (
	// ErrOrderLocked is returned when editing a production order that was
	// fixed by the scope selector.
	ErrOrderLocked = errors.New("app: production order is locked")
	// ErrUnknownCategory is returned when selecting a legend key that does
	// not exist.
	ErrUnknownCategory = errors.New("app: unknown legend category")
)

// Smoothed strokes are split into pieces no longer than this many pixels.
const smoothStep = 4.0

// Option customises a Session.
type Option func(*Session)

// WithClock sets the clock driving the snapshot debouncer.
func WithClock(c clock.Clock) Option {
	return func(s *Session) { s.clock = c }
}

// WithDecoder sets the decoder used for uploaded photos.
func WithDecoder(d qmimage.Decoder) Option {
	return func(s *Session) { s.decoder = d }
}

// Session is the annotation state for one production order: the form
// document, the background and ink layers, the active tool and the pointer
// state machine. All methods are safe for concurrent use.
type Session struct {
	mu sync.Mutex

	cfg         Config
	store       store.Store
	key         form.ScopeKey
	orderLocked bool

	doc        *form.Document
	background *qmimage.Layer
	ink        *qmimage.Layer

	renderer *ink.Renderer
	importer *qmimage.Importer
	decoder  qmimage.Decoder
	clock    clock.Clock
	debounce *schedule.Debouncer

	// Pointer state. dragging is false in IDLE; anchor and prev are only
	// meaningful while dragging.
	dragging bool
	anchor   geometry.Point2D
	prev     geometry.Point2D

	listeners listeners
	pending   []event
}

// NewSession opens the session for cfg's scope, restoring whatever document
// and layers were stored under it. A store that cannot be read is logged and
// the session starts from defaults.
func NewSession(ctx context.Context, cfg Config, st store.Store, opts ...Option) (*Session, error) {
	if st == nil {
		return nil, errors.New("app: store is required")
	}
	cfg = cfg.withDefaults()
	key := cfg.ScopeKey()
	if _, err := key.Identifier(); err != nil {
		return nil, err
	}

	s := &Session{
		cfg:         cfg,
		store:       st,
		key:         key,
		orderLocked: cfg.OrderLocked(),
		background:  qmimage.NewLayer(qmimage.RoleBackground, cfg.CanvasWidth, cfg.CanvasHeight),
		ink:         qmimage.NewLayer(qmimage.RoleInk, cfg.CanvasWidth, cfg.CanvasHeight),
		renderer:    ink.NewRenderer(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.importer = qmimage.NewImporter(cfg.CanvasWidth, cfg.CanvasHeight)
	s.importer.Quality = cfg.JPEGQuality
	if s.decoder != nil {
		s.importer.Decoder = s.decoder
	}
	s.debounce = schedule.NewDebouncer(s.clock, cfg.DebounceInterval, s.onDebounce)

	doc, ok, err := st.Load(ctx, key)
	if err != nil {
		log.Printf("Session: cannot read %s, starting fresh: %v", key, err)
	}
	if !ok || doc == nil {
		doc = form.New()
		doc.Version = cfg.SchemaVersion
	}
	s.doc = doc
	s.applyLockedOrder()
	s.restoreLayers()

	log.Printf("Session: opened %s (locked=%v, background=%v, ink=%v)",
		key, s.orderLocked, !s.background.IsEmpty(), s.ink.HasInk())
	return s, nil
}

// applyLockedOrder fills the order field from the scope selector when the
// document has none.
func (s *Session) applyLockedOrder() {
	if s.orderLocked && strings.TrimSpace(s.doc.Header.ProductionOrder) == "" {
		s.doc.Header.ProductionOrder = s.key.ProductionOrder
	}
}

// restoreLayers decodes the stored data URLs into the layers. Unreadable
// image data leaves that layer empty.
func (s *Session) restoreLayers() {
	m := &s.doc.Markup
	if m.BackgroundImageDataURL != "" {
		img, err := qmimage.DecodeDataURL(m.BackgroundImageDataURL)
		if err != nil {
			log.Printf("Session: dropping unreadable background: %v", err)
			m.BackgroundImageDataURL = ""
		} else {
			s.background.Replace(img)
		}
	}
	if m.DrawingDataURL != "" {
		img, err := qmimage.DecodeDataURL(m.DrawingDataURL)
		if err != nil {
			log.Printf("Session: dropping unreadable drawing: %v", err)
			m.DrawingDataURL = ""
		} else {
			s.ink.Replace(img)
		}
	}
}

// On registers an event listener for the specified event type. Listeners
// run on the goroutine that caused the event, after the session lock is
// released.
func (s *Session) On(kind EventType, fn EventListener) {
	s.listeners.on(kind, fn)
}

// Emit triggers all listeners for the specified event type.
func (s *Session) Emit(kind EventType, data interface{}) {
	s.listeners.emit(kind, data)
}

func (s *Session) queue(kind EventType, data interface{}) {
	s.pending = append(s.pending, event{kind: kind, data: data})
}

// unlock releases the session lock and delivers queued events.
func (s *Session) unlock() {
	evs := s.pending
	s.pending = nil
	s.mu.Unlock()
	for _, ev := range evs {
		s.Emit(ev.kind, ev.data)
	}
}

// Key returns the scope key the session persists under.
func (s *Session) Key() form.ScopeKey {
	return s.key
}

// Config returns the configuration the session was opened with.
func (s *Session) Config() Config {
	return s.cfg
}

// OrderLocked reports whether the production order is fixed by the scope
// selector.
func (s *Session) OrderLocked() bool {
	return s.orderLocked
}

// Size returns the canvas dimensions.
func (s *Session) Size() image.Point {
	return image.Pt(s.cfg.CanvasWidth, s.cfg.CanvasHeight)
}

// Dragging reports whether a stroke is in progress.
func (s *Session) Dragging() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dragging
}

// Document returns a copy of the current form document.
func (s *Session) Document() *form.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.Clone()
}

// Pointer handling. Points are in canvas pixel space; the widget maps them
// through a geometry.Viewport first.

// PointerDown starts a stroke at p. Nothing is drawn until the pointer moves.
func (s *Session) PointerDown(p geometry.Point2D) {
	s.mu.Lock()
	defer s.unlock()
	s.dragging = true
	s.anchor = p
	s.prev = p
}

// PointerMove extends the stroke to p using the tool state current at this
// moment and schedules a snapshot. It is ignored when no stroke is active.
func (s *Session) PointerMove(p geometry.Point2D) {
	s.mu.Lock()
	defer s.unlock()
	if !s.dragging {
		return
	}

	style := s.styleLocked()
	var dirty image.Rectangle
	if s.cfg.Smoothing {
		// Extrapolate the next control point; the true one is not known yet.
		next := p.Add(p.Sub(s.anchor))
		steps := geometry.SegmentsFor(s.anchor, p, smoothStep)
		pts := geometry.CatmullRom(s.prev, s.anchor, p, next, steps)
		dirty = s.renderer.DrawPath(s.ink.Buffer(), pts, style)
	} else {
		dirty = s.renderer.DrawSegment(s.ink.Buffer(), ink.Segment{From: s.anchor, To: p, Style: style})
	}
	s.prev = s.anchor
	s.anchor = p

	s.debounce.Arm()
	s.queue(EventInkChanged, dirty)
}

// PointerUp ends the stroke and persists it immediately.
func (s *Session) PointerUp() {
	s.endStroke()
}

// PointerCancel ends the stroke like PointerUp. The drawn ink is kept.
func (s *Session) PointerCancel() {
	s.endStroke()
}

// PointerLeave ends the stroke like PointerUp.
func (s *Session) PointerLeave() {
	s.endStroke()
}

func (s *Session) endStroke() {
	s.mu.Lock()
	defer s.unlock()
	if !s.dragging {
		return
	}
	s.dragging = false
	s.anchor = geometry.Point2D{}
	s.prev = geometry.Point2D{}
	s.debounce.Cancel()
	s.snapshotLocked()
}

// onDebounce is the timer callback scheduled while dragging. A stroke that
// already ended has been flushed, so it has nothing to do.
func (s *Session) onDebounce() {
	s.mu.Lock()
	defer s.unlock()
	if !s.dragging {
		return
	}
	s.snapshotLocked()
}

func (s *Session) styleLocked() ink.Style {
	m := s.doc.Markup
	st := ink.Style{Mode: ink.Pen, Color: legend.ColorFor(m.LegendKey), Width: float64(m.BrushSize)}
	if m.Tool == form.ToolEraser {
		st.Mode = ink.Eraser
	}
	return st
}

// snapshotLocked encodes the ink layer into the document and persists it.
func (s *Session) snapshotLocked() {
	url := ""
	if s.ink.HasInk() {
		var err error
		url, err = qmimage.PNGDataURL(s.ink.Image)
		if err != nil {
			log.Printf("Session: cannot encode drawing: %v", err)
			s.queue(EventPersistFailed, err)
			return
		}
	}
	s.doc.Markup.DrawingDataURL = url
	s.persistLocked()
}

// persistLocked writes the whole document. A failure is reported to
// listeners; the in-memory document is kept either way.
func (s *Session) persistLocked() {
	s.doc.Touch()
	if err := s.store.Save(context.Background(), s.key, s.doc); err != nil {
		log.Printf("Session: save %s failed: %v", s.key, err)
		s.queue(EventPersistFailed, err)
		return
	}
	s.queue(EventPersisted, s.key)
}

// Tool state.

// SelectCategory switches to the pen with the given legend category.
func (s *Session) SelectCategory(key string) error {
	if !legend.Valid(key) {
		return fmt.Errorf("%w: %q", ErrUnknownCategory, key)
	}
	s.mu.Lock()
	defer s.unlock()
	s.doc.Markup.Tool = form.ToolPen
	s.doc.Markup.LegendKey = key
	s.queue(EventToolChanged, s.doc.Markup)
	s.persistLocked()
	return nil
}

// SelectEraser switches to the eraser. The legend category is kept for
// SelectPen.
func (s *Session) SelectEraser() {
	s.mu.Lock()
	defer s.unlock()
	s.doc.Markup.Tool = form.ToolEraser
	s.queue(EventToolChanged, s.doc.Markup)
	s.persistLocked()
}

// SelectPen switches back to the pen with the current category.
func (s *Session) SelectPen() {
	s.mu.Lock()
	defer s.unlock()
	s.doc.Markup.Tool = form.ToolPen
	s.queue(EventToolChanged, s.doc.Markup)
	s.persistLocked()
}

// SetBrushSize sets the stroke width, clamped to the allowed range, and
// returns the value applied.
func (s *Session) SetBrushSize(n int) int {
	s.mu.Lock()
	defer s.unlock()
	s.doc.Markup.BrushSize = form.ClampBrushSize(n)
	s.queue(EventToolChanged, s.doc.Markup)
	s.persistLocked()
	return s.doc.Markup.BrushSize
}

// Layers.

// ImportBackground replaces the background with the photo read from r,
// letterboxed into the canvas. On failure nothing changes.
func (s *Session) ImportBackground(r io.Reader) (*qmimage.Imported, error) {
	// Decoding a phone photo is slow; keep it outside the lock.
	imp, err := s.importer.Import(r)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.unlock()
	s.background.Replace(imp.Image)
	s.doc.Markup.BackgroundImageDataURL = imp.DataURL
	s.queue(EventBackgroundChanged, nil)
	s.persistLocked()
	log.Printf("Session: imported %dx%d photo into %v", imp.SourceSize.X, imp.SourceSize.Y, imp.Placement)
	return imp, nil
}

// ClearDrawing erases all ink, keeping the background.
func (s *Session) ClearDrawing() {
	s.mu.Lock()
	defer s.unlock()
	s.ink.Clear()
	s.doc.Markup.DrawingDataURL = ""
	s.queue(EventInkChanged, s.ink.Bounds())
	s.persistLocked()
}

// ClearBackground removes the photo together with the ink drawn over it.
func (s *Session) ClearBackground() {
	s.mu.Lock()
	defer s.unlock()
	s.background.Clear()
	s.ink.Clear()
	s.doc.Markup.BackgroundImageDataURL = ""
	s.doc.Markup.DrawingDataURL = ""
	s.queue(EventBackgroundChanged, nil)
	s.queue(EventInkChanged, s.ink.Bounds())
	s.persistLocked()
}

// SaveDrawing persists the current ink layer now.
func (s *Session) SaveDrawing() {
	s.mu.Lock()
	defer s.unlock()
	s.debounce.Cancel()
	s.snapshotLocked()
}

// SetBackgroundDisplay sets whether and how strongly the photo is shown
// under the ink while drawing. It is not persisted and does not affect
// export.
func (s *Session) SetBackgroundDisplay(visible bool, opacity float64) {
	s.mu.Lock()
	defer s.unlock()
	s.background.Visible = visible
	s.background.SetOpacity(opacity)
	s.queue(EventBackgroundChanged, nil)
}

// BackgroundDisplay returns the photo display settings.
func (s *Session) BackgroundDisplay() (visible bool, opacity float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.background.Visible, s.background.Opacity
}

// Render returns the canvas as displayed: the photo with its display
// settings, then the ink, on white.
func (s *Session) Render() *image.RGBA {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := qmimage.NewComposite(s.cfg.CanvasWidth, s.cfg.CanvasHeight)
	c.AddLayer(s.background)
	c.AddLayer(s.ink)
	return c.Render()
}

// ExportFlattened returns the flattened canvas as PNG bytes, with the photo
// at full strength. Unchanged layers always produce identical bytes.
func (s *Session) ExportFlattened() ([]byte, error) {
	s.mu.Lock()
	img := qmimage.Flatten(s.background, s.ink, s.cfg.CanvasWidth, s.cfg.CanvasHeight)
	s.mu.Unlock()
	return qmimage.EncodePNG(img)
}

// ExportFilename names the flattened export after the header identifiers.
func (s *Session) ExportFilename() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.ExportFilename()
}

// Header and checklist fields. Every change is written through.

// SetPanelSerial sets the panel serial number.
func (s *Session) SetPanelSerial(v string) {
	s.mu.Lock()
	defer s.unlock()
	s.doc.Header.PanelSerial = v
	s.documentChangedLocked()
}

// SetProductionOrder sets the production order field. The storage scope
// does not follow the field; only the scope selector chooses it.
func (s *Session) SetProductionOrder(v string) error {
	if s.orderLocked {
		return ErrOrderLocked
	}
	s.mu.Lock()
	defer s.unlock()
	s.doc.Header.ProductionOrder = v
	s.documentChangedLocked()
	return nil
}

// SetInitials signs one checklist item.
func (s *Session) SetInitials(section, itemID, v string) error {
	return s.edit(func(d *form.Document) error { return d.SetInitials(section, itemID, v) })
}

// SetSectionDate sets a section's inspection date.
func (s *Session) SetSectionDate(section, v string) error {
	return s.edit(func(d *form.Document) error { return d.SetDate(section, v) })
}

// SetSectionNotes sets a section's notes.
func (s *Session) SetSectionNotes(section, v string) error {
	return s.edit(func(d *form.Document) error { return d.SetNotes(section, v) })
}

// SetApproval sets one of the sign-off initials fields.
func (s *Session) SetApproval(field, v string) error {
	return s.edit(func(d *form.Document) error { return d.SetApproval(field, v) })
}

func (s *Session) edit(fn func(*form.Document) error) error {
	s.mu.Lock()
	defer s.unlock()
	if err := fn(s.doc); err != nil {
		return err
	}
	s.documentChangedLocked()
	return nil
}

func (s *Session) documentChangedLocked() {
	s.queue(EventDocumentChanged, nil)
	s.persistLocked()
}

// Reset discards this scope's stored document and starts over with
// defaults. Other scopes are untouched.
func (s *Session) Reset() error {
	s.mu.Lock()
	defer s.unlock()
	s.debounce.Cancel()
	s.dragging = false

	err := s.store.Clear(context.Background(), s.key)
	if err != nil {
		log.Printf("Session: clear %s failed: %v", s.key, err)
		s.queue(EventPersistFailed, err)
	}

	s.doc = form.New()
	s.doc.Version = s.cfg.SchemaVersion
	s.applyLockedOrder()
	s.background.Clear()
	s.ink.Clear()

	s.queue(EventReset, nil)
	s.queue(EventBackgroundChanged, nil)
	s.queue(EventInkChanged, s.ink.Bounds())
	s.queue(EventDocumentChanged, nil)
	return err
}

// Record returns the panel serial and the serialised document, the payload
// of a remote upsert.
func (s *Session) Record() (string, []byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := s.doc.Encode()
	if err != nil {
		return "", nil, err
	}
	return strings.TrimSpace(s.doc.Header.PanelSerial), data, nil
}

// Close persists a stroke that is still waiting for its snapshot.
func (s *Session) Close() {
	if s.debounce.Pending() {
		s.debounce.Flush()
	}
}
