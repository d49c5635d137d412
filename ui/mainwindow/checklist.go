package mainwindow

import (
	"quality-master/internal/form"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"
)

type approvalField struct {
	key   string
	label string
}

type sectionSpec struct {
	key       string
	title     string
	approvals []approvalField
}

var sections = []sectionSpec{
	{form.SectionIP6, "Inspection Point 6 - Pre-Paint Line Inspection", []approvalField{
		{form.ApprovalReadyForPrimer, "Ready for Primer"},
	}},
	{form.SectionIP8, "Inspection Point 8 - Post-Paint Inspection (Coraflon)", []approvalField{
		{form.ApprovalRemoveFromPaintline, "Remove from the Paintline"},
	}},
	{form.SectionVisual, "Visual Inspection Guide", []approvalField{
		{form.ApprovalApprovedForPrimer, "Approved for Primer"},
		{form.ApprovalApprovedForTopcoat, "Approved for Topcoat"},
		{form.ApprovalQCFinal, "QC Final Approval"},
	}},
}

// checklistFields owns the entries of the three checklist sections.
type checklistFields struct {
	mw   *MainWindow
	tabs *container.AppTabs

	dates     map[string]*widget.Entry
	notes     map[string]*widget.Entry
	initials  map[string]map[string]*widget.Entry // section -> item ID
	approvals map[string]*widget.Entry
}

func newChecklistFields(mw *MainWindow) *checklistFields {
	f := &checklistFields{
		mw:        mw,
		dates:     make(map[string]*widget.Entry),
		notes:     make(map[string]*widget.Entry),
		initials:  make(map[string]map[string]*widget.Entry),
		approvals: make(map[string]*widget.Entry),
	}

	// Item labels come from a fresh document; every stored document carries
	// the same items.
	template := form.New()
	f.tabs = container.NewAppTabs()
	for _, sec := range sections {
		f.tabs.Append(container.NewTabItem(shortTitle(sec.key), f.section(template, sec)))
	}
	return f
}

func shortTitle(section string) string {
	switch section {
	case form.SectionIP6:
		return "IP6"
	case form.SectionIP8:
		return "IP8"
	default:
		return "Visual"
	}
}

func (f *checklistFields) section(template *form.Document, sec sectionSpec) fyne.CanvasObject {
	report := func(err error) {
		if err != nil {
			f.mw.updateStatus(err.Error())
		}
	}

	date := f.entry("YYYY-MM-DD", func(v string) { report(f.mw.session.SetSectionDate(sec.key, v)) })
	f.dates[sec.key] = date

	rows := container.New(newTwoColumn())
	cl, _ := template.Checklist(sec.key)
	f.initials[sec.key] = make(map[string]*widget.Entry)
	for _, item := range cl.Items {
		id := item.ID
		e := f.entry("Initials", func(v string) { report(f.mw.session.SetInitials(sec.key, id, v)) })
		f.initials[sec.key][id] = e
		label := widget.NewLabel(item.Label)
		label.Wrapping = fyne.TextWrapWord
		rows.Add(label)
		rows.Add(e)
	}

	signoff := container.NewGridWithColumns(len(sec.approvals) + 1)
	signoff.Add(labeled("Date", date))
	for _, a := range sec.approvals {
		field := a.key
		e := f.entry("Initials", func(v string) { report(f.mw.session.SetApproval(field, v)) })
		f.approvals[field] = e
		signoff.Add(labeled(a.label, e))
	}

	notes := widget.NewMultiLineEntry()
	notes.SetMinRowsVisible(3)
	notes.OnChanged = func(v string) {
		if !f.mw.loading {
			report(f.mw.session.SetSectionNotes(sec.key, v))
		}
	}
	f.notes[sec.key] = notes

	return container.NewVBox(
		widget.NewLabelWithStyle(sec.title, fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		signoff,
		rows,
		labeled("Notes", notes),
	)
}

// entry returns a single-line entry that writes through unless the window
// is repopulating.
func (f *checklistFields) entry(placeholder string, write func(string)) *widget.Entry {
	e := widget.NewEntry()
	e.SetPlaceHolder(placeholder)
	e.OnChanged = func(v string) {
		if !f.mw.loading {
			write(v)
		}
	}
	return e
}

func labeled(text string, obj fyne.CanvasObject) fyne.CanvasObject {
	return container.NewVBox(widget.NewLabelWithStyle(text, fyne.TextAlignLeading, fyne.TextStyle{Bold: true}), obj)
}

// populate copies the checklist sections of doc into the entries. The
// caller sets loading.
func (f *checklistFields) populate(doc *form.Document) {
	for _, sec := range sections {
		cl, err := doc.Checklist(sec.key)
		if err != nil {
			continue
		}
		f.dates[sec.key].SetText(cl.Date)
		f.notes[sec.key].SetText(cl.Notes)
		for _, item := range cl.Items {
			if e, ok := f.initials[sec.key][item.ID]; ok {
				e.SetText(item.Initials)
			}
		}
	}
	f.approvals[form.ApprovalReadyForPrimer].SetText(doc.IP6.ReadyForPrimerInitials)
	f.approvals[form.ApprovalRemoveFromPaintline].SetText(doc.IP8.RemoveFromPaintlineInitials)
	f.approvals[form.ApprovalApprovedForPrimer].SetText(doc.Visual.ApprovedForPrimerInitials)
	f.approvals[form.ApprovalApprovedForTopcoat].SetText(doc.Visual.ApprovedForTopcoatInitials)
	f.approvals[form.ApprovalQCFinal].SetText(doc.Visual.QCFinalApprovalInitials)
}

// twoColumn lays out label/entry pairs: the label takes the remaining width
// and the entry a fixed one.
type twoColumn struct {
	entryWidth float32
}

func newTwoColumn() *twoColumn {
	return &twoColumn{entryWidth: 120}
}

func (l *twoColumn) MinSize(objects []fyne.CanvasObject) fyne.Size {
	var h, w float32
	for i := 0; i+1 < len(objects); i += 2 {
		a, b := objects[i].MinSize(), objects[i+1].MinSize()
		h += max(a.Height, b.Height) + 4
		w = max(w, a.Width+l.entryWidth+8)
	}
	return fyne.NewSize(w, h)
}

func (l *twoColumn) Layout(objects []fyne.CanvasObject, size fyne.Size) {
	y := float32(0)
	labelWidth := size.Width - l.entryWidth - 8
	for i := 0; i+1 < len(objects); i += 2 {
		label, entry := objects[i], objects[i+1]
		h := max(label.MinSize().Height, entry.MinSize().Height)
		label.Move(fyne.NewPos(0, y))
		label.Resize(fyne.NewSize(labelWidth, h))
		entry.Move(fyne.NewPos(labelWidth+8, y))
		entry.Resize(fyne.NewSize(l.entryWidth, entry.MinSize().Height))
		y += h + 4
	}
}
