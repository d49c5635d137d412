// Package form defines the persisted inspection record: header identifiers,
// the checklist sections and the markup sub-document.
package form

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"quality-master/internal/legend"

	"github.com/google/uuid"
)

// Canvas dimensions of both markup layers.
const (
	CanvasWidth  = 900
	CanvasHeight = 450
)

// Brush size limits.
const (
	MinBrushSize     = 2
	MaxBrushSize     = 30
	DefaultBrushSize = 6
)

var (
	ErrUnknownSection  = errors.New("form: unknown section")
	ErrUnknownItem     = errors.New("form: unknown checklist item")
	ErrUnknownApproval = errors.New("form: unknown approval field")
)

// Tool is the active markup tool.
type Tool string

const (
	ToolPen    Tool = "PEN"
	ToolEraser Tool = "ERASER"
)

// Header carries the identifiers the record is filed under.
type Header struct {
	PanelSerial     string `json:"panelSerial"`
	ProductionOrder string `json:"productionOrder"`
}

// Item is one checklist line signed off with the inspector's initials.
type Item struct {
	ID       string `json:"id"`
	Label    string `json:"label"`
	Initials string `json:"initials"`
}

// Checklist is the part shared by every inspection section.
type Checklist struct {
	Date  string `json:"date"`
	Notes string `json:"notes"`
	Items []Item `json:"items"`
}

// IP6 is the pre-paint line inspection.
type IP6 struct {
	Checklist
	ReadyForPrimerInitials string `json:"readyForPrimerInitials"`
}

// IP8 is the post-paint inspection.
type IP8 struct {
	Checklist
	RemoveFromPaintlineInitials string `json:"removeFromPaintlineInitials"`
}

// Visual is the visual inspection guide.
type Visual struct {
	Checklist
	ApprovedForPrimerInitials  string `json:"approvedForPrimerInitials"`
	ApprovedForTopcoatInitials string `json:"approvedForTopcoatInitials"`
	QCFinalApprovalInitials    string `json:"qcFinalApprovalInitials"`
}

// Markup is the annotation sub-document: tool state plus both layer
// snapshots as data URLs. An empty URL means the layer is empty.
type Markup struct {
	Tool                   Tool   `json:"tool"`
	LegendKey              string `json:"legendKey"`
	BrushSize              int    `json:"brushSize"`
	BackgroundImageDataURL string `json:"backgroundImageDataUrl"`
	DrawingDataURL         string `json:"drawingDataUrl"`
}

// Document is the full persisted unit for one production order.
type Document struct {
	Version  int       `json:"version"`
	ID       string    `json:"id"`
	Created  time.Time `json:"created"`
	Modified time.Time `json:"modified"`

	Header Header `json:"header"`
	IP6    IP6    `json:"ip6"`
	IP8    IP8    `json:"ip8"`
	Visual Visual `json:"visual"`
	Markup Markup `json:"markup"`
}

// Section keys.
const (
	SectionIP6    = "ip6"
	SectionIP8    = "ip8"
	SectionVisual = "visual"
)

// Approval field keys, named after their JSON fields.
const (
	ApprovalReadyForPrimer      = "readyForPrimerInitials"
	ApprovalRemoveFromPaintline = "removeFromPaintlineInitials"
	ApprovalApprovedForPrimer   = "approvedForPrimerInitials"
	ApprovalApprovedForTopcoat  = "approvedForTopcoatInitials"
	ApprovalQCFinal             = "qcFinalApprovalInitials"
)

// New creates a document with blank answers and default tool state.
func New() *Document {
	now := time.Now()
	return &Document{
		Version:  SchemaVersion,
		ID:       uuid.NewString(),
		Created:  now,
		Modified: now,
		IP6: IP6{Checklist: Checklist{Items: items(
			"ip6_1", "A-surface flat with no visible depressions under raking light",
			"ip6_2", "Fillet corners acceptable (rounded, not flattened)",
			"ip6_3", "No surface porosity or pinholes visible",
			"ip6_4", "No high spots",
			"ip6_5", "No low spots",
			"ip6_6", "No unsanded substrate or spot-primed areas",
			"ip6_7", "Pin holes and bun holes filled and feathered",
			"ip6_8", `First 3" of returns sanded and acceptable`,
			"ip6_9", "No witness tool lines remain",
			"ip6_10", "Clearly label “Ready for paint” on the bag side of panel",
			"ip6_11", "Write the inspector’s initials on the bag side of panel",
		)}},
		IP8: IP8{Checklist: Checklist{Items: items(
			"ip8_1", "Inspected from ~10 ft",
			"ip8_2", "High-gloss finish consistent across panel",
			"ip8_3", "No visible paint defects (runs, dirt nibs, fisheyes)",
			"ip8_4", "Orange peel within acceptable visual standard",
			"ip8_5", "No dramatic waves or lines visible",
			"ip8_6", "No tool witness lines telegraphing",
			"ip8_7", "Fillet corners remain rounded (not flat)",
		)}},
		Visual: Visual{Checklist: Checklist{Items: items(
			"vis_1", "Pinholes / Pitting",
			"vis_2", "Embeds verified",
			"vis_3", "Threading verified",
			"vis_4", "Corners / Contours",
			"vis_5", "Air Pockets / Bugholes",
			"vis_6", "Uniform Flatness",
		)}},
		Markup: Markup{
			Tool:      ToolPen,
			LegendKey: legend.Default().Key,
			BrushSize: DefaultBrushSize,
		},
	}
}

func items(pairs ...string) []Item {
	out := make([]Item, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, Item{ID: pairs[i], Label: pairs[i+1]})
	}
	return out
}

// Decode parses a stored document and normalises its tool state.
func Decode(data []byte) (*Document, error) {
	var doc *Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("form: decode: %w", err)
	}
	if doc == nil {
		return nil, errors.New("form: decode: empty document")
	}
	doc.Normalize()
	return doc, nil
}

// Encode serialises the document. The output is the record payload sent to
// the remote store as well as the local snapshot.
func (d *Document) Encode() ([]byte, error) {
	data, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("form: encode: %w", err)
	}
	return data, nil
}

// Normalize repairs tool state that a hand-edited or older record may carry.
func (d *Document) Normalize() {
	if d.Markup.Tool != ToolPen && d.Markup.Tool != ToolEraser {
		d.Markup.Tool = ToolPen
	}
	if !legend.Valid(d.Markup.LegendKey) {
		d.Markup.LegendKey = legend.Default().Key
	}
	if d.Markup.BrushSize == 0 {
		d.Markup.BrushSize = DefaultBrushSize
	}
	d.Markup.BrushSize = ClampBrushSize(d.Markup.BrushSize)
}

// ClampBrushSize limits n to [MinBrushSize, MaxBrushSize].
func ClampBrushSize(n int) int {
	return min(max(n, MinBrushSize), MaxBrushSize)
}

// Clone returns a deep copy.
func (d *Document) Clone() *Document {
	out := *d
	out.IP6.Items = append([]Item(nil), d.IP6.Items...)
	out.IP8.Items = append([]Item(nil), d.IP8.Items...)
	out.Visual.Items = append([]Item(nil), d.Visual.Items...)
	return &out
}

// Touch records a modification time.
func (d *Document) Touch() {
	d.Modified = time.Now()
}

// Checklist returns the shared checklist part of a section.
func (d *Document) Checklist(section string) (*Checklist, error) {
	switch section {
	case SectionIP6:
		return &d.IP6.Checklist, nil
	case SectionIP8:
		return &d.IP8.Checklist, nil
	case SectionVisual:
		return &d.Visual.Checklist, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownSection, section)
}

// SetInitials signs one checklist item. Only that item changes.
func (d *Document) SetInitials(section, itemID, initials string) error {
	cl, err := d.Checklist(section)
	if err != nil {
		return err
	}
	for i := range cl.Items {
		if cl.Items[i].ID == itemID {
			cl.Items[i].Initials = initials
			return nil
		}
	}
	return fmt.Errorf("%w: %q in %s", ErrUnknownItem, itemID, section)
}

// SetDate sets a section's inspection date.
func (d *Document) SetDate(section, date string) error {
	cl, err := d.Checklist(section)
	if err != nil {
		return err
	}
	cl.Date = date
	return nil
}

// SetNotes sets a section's free-text notes.
func (d *Document) SetNotes(section, notes string) error {
	cl, err := d.Checklist(section)
	if err != nil {
		return err
	}
	cl.Notes = notes
	return nil
}

// SetApproval sets one of the sign-off initials fields.
func (d *Document) SetApproval(field, initials string) error {
	switch field {
	case ApprovalReadyForPrimer:
		d.IP6.ReadyForPrimerInitials = initials
	case ApprovalRemoveFromPaintline:
		d.IP8.RemoveFromPaintlineInitials = initials
	case ApprovalApprovedForPrimer:
		d.Visual.ApprovedForPrimerInitials = initials
	case ApprovalApprovedForTopcoat:
		d.Visual.ApprovedForTopcoatInitials = initials
	case ApprovalQCFinal:
		d.Visual.QCFinalApprovalInitials = initials
	default:
		return fmt.Errorf("%w: %q", ErrUnknownApproval, field)
	}
	return nil
}

var filenameSafe = strings.NewReplacer("/", "-", "\\", "-")

// ExportFilename names the flattened markup download:
// markup[_<productionOrder>][_<panelSerial>].png. Path separators in the
// identifiers become "-", so the name is always a single path element.
func (d *Document) ExportFilename() string {
	var b strings.Builder
	b.WriteString("markup")
	if po := strings.TrimSpace(d.Header.ProductionOrder); po != "" {
		b.WriteString("_" + filenameSafe.Replace(po))
	}
	if ps := strings.TrimSpace(d.Header.PanelSerial); ps != "" {
		b.WriteString("_" + filenameSafe.Replace(ps))
	}
	b.WriteString(".png")
	return b.String()
}
