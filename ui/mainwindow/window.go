// Package mainwindow provides the main application window.
package mainwindow

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"quality-master/internal/app"
	"quality-master/internal/form"
	qmimage "quality-master/internal/image"
	"quality-master/internal/legend"
	"quality-master/internal/ocr"
	"quality-master/internal/remote"
	"quality-master/internal/store"
	"quality-master/internal/version"
	"quality-master/ui/markup"
	"quality-master/ui/prefs"

	"fyne.io/fyne/v2"
	fynecanvas "fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/widget"
)

// Services are the optional collaborators of the window.
type Services struct {
	Remote *remote.Client    // nil hides Submit
	OCR    *ocr.SerialReader // nil disables serial suggestions
}

// MainWindow is the primary application window.
type MainWindow struct {
	fyne.Window
	app      fyne.App
	session  *app.Session
	prefs    *prefs.Prefs
	services Services

	canvas    *markup.Canvas
	statusBar *widget.Label

	orderEntry  *widget.Entry
	serialEntry *widget.Entry
	suggestion  *widget.Button

	toolButtons map[string]*widget.Button // legend key, or eraserKey
	brushSlider *widget.Slider
	brushLabel  *widget.Label

	fields  *checklistFields
	loading bool // suppresses write-through while fields are repopulated
}

const eraserKey = "ERASER"

// New creates the main window for session.
func New(fyneApp fyne.App, session *app.Session, p *prefs.Prefs, services Services) *MainWindow {
	win := fyneApp.NewWindow("Quality Master")

	mw := &MainWindow{
		Window:      win,
		app:         fyneApp,
		session:     session,
		prefs:       p,
		services:    services,
		toolButtons: make(map[string]*widget.Button),
	}

	mw.setupUI()
	mw.setupMenus()
	mw.setupEventHandlers()
	mw.populate(session.Document())

	win.Resize(fyne.NewSize(
		float32(p.FloatWithFallback(prefs.KeyWindowWidth, 1100)),
		float32(p.FloatWithFallback(prefs.KeyWindowHeight, 900)),
	))
	win.SetOnClosed(mw.onClosed)
	win.SetOnDropped(mw.onDropped)
	return mw
}

// setupUI creates the main UI layout.
func (mw *MainWindow) setupUI() {
	mw.canvas = markup.New(mw.session)
	mw.statusBar = widget.NewLabel("Ready")
	mw.fields = newChecklistFields(mw)

	markupCard := widget.NewCard("Panel Markup", "Draw over the photo by defect category",
		container.NewBorder(mw.createToolbar(), mw.createActions(), nil, nil, mw.canvas))

	body := container.NewVBox(
		mw.createHeader(),
		mw.fields.tabs,
		markupCard,
	)

	content := container.NewBorder(
		nil,
		container.NewPadded(mw.statusBar),
		nil,
		nil,
		container.NewVScroll(body),
	)
	mw.SetContent(content)
}

// createHeader builds the production order and panel serial fields.
func (mw *MainWindow) createHeader() fyne.CanvasObject {
	mw.orderEntry = widget.NewEntry()
	mw.orderEntry.SetPlaceHolder("Enter production order (or use a PO link)")
	mw.orderEntry.OnChanged = func(v string) {
		if mw.loading {
			return
		}
		if err := mw.session.SetProductionOrder(v); err != nil {
			mw.updateStatus(err.Error())
		}
	}

	orderBox := container.NewVBox(widget.NewLabelWithStyle("Production Order", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}), mw.orderEntry)
	if mw.session.OrderLocked() {
		mw.orderEntry.Disable()
		orderBox.Add(widget.NewLabel("PO is locked from link: " + mw.session.Key().ProductionOrder))
	}

	mw.serialEntry = widget.NewEntry()
	mw.serialEntry.SetPlaceHolder("Enter panel serial")
	mw.serialEntry.OnChanged = func(v string) {
		if mw.loading {
			return
		}
		mw.session.SetPanelSerial(v)
		mw.suggestion.Hide()
	}
	mw.suggestion = widget.NewButton("", nil)
	mw.suggestion.Hide()

	serialBox := container.NewVBox(
		widget.NewLabelWithStyle("Panel Serial", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		container.NewBorder(nil, nil, nil, mw.suggestion, mw.serialEntry),
	)

	resetBtn := widget.NewButton("Reset", mw.onReset)
	title := widget.NewLabelWithStyle("Quality Master", fyne.TextAlignCenter, fyne.TextStyle{Bold: true})

	return widget.NewCard("", "", container.NewVBox(
		container.NewBorder(nil, nil, nil, resetBtn, title),
		container.NewGridWithColumns(2, orderBox, serialBox),
	))
}

// createToolbar creates the legend, eraser and brush controls.
func (mw *MainWindow) createToolbar() fyne.CanvasObject {
	tools := container.NewHBox()
	for _, e := range legend.All() {
		key := e.Key
		btn := widget.NewButton(e.Label, func() {
			if err := mw.session.SelectCategory(key); err != nil {
				mw.updateStatus(err.Error())
			}
		})
		mw.toolButtons[key] = btn
		tools.Add(container.NewHBox(swatch(e.Color), btn))
	}

	eraser := widget.NewButton("Eraser", mw.session.SelectEraser)
	mw.toolButtons[eraserKey] = eraser
	tools.Add(eraser)

	mw.brushLabel = widget.NewLabel("")
	mw.brushSlider = widget.NewSlider(form.MinBrushSize, form.MaxBrushSize)
	mw.brushSlider.Step = 1
	mw.brushSlider.OnChanged = func(v float64) {
		mw.brushLabel.SetText(fmt.Sprintf("%d px", int(v)))
	}
	mw.brushSlider.OnChangeEnded = func(v float64) {
		if mw.loading {
			return
		}
		mw.session.SetBrushSize(int(v))
	}

	brush := container.NewBorder(nil, nil, widget.NewLabel("Brush"), mw.brushLabel, mw.brushSlider)
	return container.NewVBox(container.NewHScroll(tools), brush, mw.createPhotoControls())
}

// createPhotoControls shows, hides or fades the photo while drawing. Exports
// always carry the photo at full strength.
func (mw *MainWindow) createPhotoControls() fyne.CanvasObject {
	fade := widget.NewSlider(0.1, 1)
	fade.Step = 0.05
	fade.SetValue(1)
	show := widget.NewCheck("Show photo", nil)
	show.SetChecked(true)

	apply := func() {
		mw.session.SetBackgroundDisplay(show.Checked, fade.Value)
	}
	show.OnChanged = func(bool) { apply() }
	fade.OnChangeEnded = func(float64) { apply() }

	return container.NewBorder(nil, nil, show, nil, fade)
}

func swatch(c color.Color) fyne.CanvasObject {
	r := fynecanvas.NewRectangle(c)
	r.SetMinSize(fyne.NewSize(14, 14))
	r.CornerRadius = 3
	return container.NewCenter(r)
}

// createActions creates the buttons under the canvas.
func (mw *MainWindow) createActions() fyne.CanvasObject {
	actions := container.NewHBox(
		widget.NewButton("Upload image...", mw.onUpload),
		widget.NewButton("Clear Drawing", mw.session.ClearDrawing),
		widget.NewButton("Clear Background", mw.session.ClearBackground),
		widget.NewButton("Save Drawing", mw.session.SaveDrawing),
		widget.NewButton("Download PNG...", mw.onDownload),
	)
	if mw.services.Remote != nil {
		submit := widget.NewButton("Submit", mw.onSubmit)
		submit.Importance = widget.HighImportance
		actions.Add(submit)
	}
	return actions
}

// setupMenus creates the application menus.
func (mw *MainWindow) setupMenus() {
	fileMenu := fyne.NewMenu("File",
		fyne.NewMenuItem("Upload Image...", mw.onUpload),
		fyne.NewMenuItem("Download PNG...", mw.onDownload),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Reset Form", mw.onReset),
	)
	helpMenu := fyne.NewMenu("Help",
		fyne.NewMenuItem("About", mw.onAbout),
	)
	mw.SetMainMenu(fyne.NewMainMenu(fileMenu, helpMenu))
}

// setupEventHandlers registers for session events.
func (mw *MainWindow) setupEventHandlers() {
	refresh := func(interface{}) { mw.canvas.Refresh() }
	mw.session.On(app.EventInkChanged, refresh)
	mw.session.On(app.EventBackgroundChanged, refresh)

	mw.session.On(app.EventToolChanged, func(data interface{}) {
		if m, ok := data.(form.Markup); ok {
			mw.showTool(m)
		}
	})

	mw.session.On(app.EventPersisted, func(interface{}) {
		mw.updateStatus("Saved on this device " + time.Now().Format("15:04:05"))
	})

	mw.session.On(app.EventPersistFailed, func(data interface{}) {
		err, _ := data.(error)
		if errors.Is(err, store.ErrQuotaExceeded) {
			mw.updateStatus("Warning: device storage is full, changes are kept only until the app closes")
			return
		}
		mw.updateStatus(fmt.Sprintf("Warning: could not save on this device: %v", err))
	})

	mw.session.On(app.EventReset, func(interface{}) {
		mw.populate(mw.session.Document())
		mw.updateStatus("Form reset")
	})
}

// populate copies doc into the widgets without writing it back.
func (mw *MainWindow) populate(doc *form.Document) {
	mw.loading = true
	defer func() { mw.loading = false }()

	mw.orderEntry.SetText(doc.Header.ProductionOrder)
	mw.serialEntry.SetText(doc.Header.PanelSerial)
	mw.suggestion.Hide()
	mw.fields.populate(doc)
	mw.showTool(doc.Markup)
	mw.canvas.Refresh()
}

// showTool highlights the active tool and syncs the brush slider.
func (mw *MainWindow) showTool(m form.Markup) {
	active := m.LegendKey
	if m.Tool == form.ToolEraser {
		active = eraserKey
	}
	for key, btn := range mw.toolButtons {
		want := widget.MediumImportance
		if key == active {
			want = widget.HighImportance
		}
		if btn.Importance != want {
			btn.Importance = want
			btn.Refresh()
		}
	}

	was := mw.loading
	mw.loading = true
	mw.brushSlider.SetValue(float64(m.BrushSize))
	mw.loading = was
	mw.brushLabel.SetText(fmt.Sprintf("%d px", m.BrushSize))
}

// updateStatus updates the status bar text.
func (mw *MainWindow) updateStatus(text string) {
	mw.statusBar.SetText(text)
}

// getLastDir returns the last used directory as a ListableURI, or nil.
func (mw *MainWindow) getLastDir() fyne.ListableURI {
	path := mw.prefs.String(prefs.KeyLastDir)
	if path == "" {
		return nil
	}
	listable, err := storage.ListerForURI(storage.NewFileURI(path))
	if err != nil {
		return nil
	}
	return listable
}

// saveLastDir saves the directory of the given file path.
func (mw *MainWindow) saveLastDir(filePath string) {
	mw.prefs.SetString(prefs.KeyLastDir, filepath.Dir(filePath))
}

func (mw *MainWindow) onUpload() {
	fd := dialog.NewFileOpen(func(reader fyne.URIReadCloser, err error) {
		if err != nil || reader == nil {
			return
		}
		mw.saveLastDir(reader.URI().Path())
		go mw.importBackground(reader.URI().Name(), reader)
	}, mw.Window)

	fd.SetFilter(storage.NewExtensionFileFilter(qmimage.SupportedFormats()))
	if loc := mw.getLastDir(); loc != nil {
		fd.SetLocation(loc)
	}
	fd.Show()
}

// onDropped imports the first dropped file with a supported image
// extension as the background photo.
func (mw *MainWindow) onDropped(_ fyne.Position, uris []fyne.URI) {
	for _, u := range uris {
		if !qmimage.IsSupportedFormat(u.Path()) {
			continue
		}
		f, err := os.Open(u.Path())
		if err != nil {
			log.Printf("Drop: %v", err)
			continue
		}
		mw.saveLastDir(u.Path())
		go mw.importBackground(u.Name(), f)
		return
	}
	mw.updateStatus("Drop a JPEG, PNG, GIF, BMP, TIFF or WebP photo")
}

// importBackground replaces the background with the photo in r and closes
// r. It runs off the UI goroutine.
func (mw *MainWindow) importBackground(name string, r io.ReadCloser) {
	defer r.Close()
	mw.updateStatus("Importing " + name + "...")
	imp, err := mw.session.ImportBackground(r)
	if err != nil {
		log.Printf("Upload: %v", err)
		dialog.ShowError(fmt.Errorf("could not read that image: %w", err), mw.Window)
		mw.updateStatus("Upload failed")
		return
	}
	mw.updateStatus(fmt.Sprintf("Imported %dx%d photo", imp.SourceSize.X, imp.SourceSize.Y))
	mw.suggestSerial(imp.Image)
}

// suggestSerial offers an OCR reading of the photo when the serial is blank.
func (mw *MainWindow) suggestSerial(img image.Image) {
	if mw.services.OCR == nil || mw.session.Document().Header.PanelSerial != "" {
		return
	}
	serial, err := mw.services.OCR.Suggest(img)
	if err != nil {
		if !errors.Is(err, ocr.ErrNoSerial) {
			log.Printf("OCR: %v", err)
		}
		return
	}
	mw.suggestion.SetText("Use " + serial)
	mw.suggestion.OnTapped = func() {
		mw.serialEntry.SetText(serial)
		mw.suggestion.Hide()
	}
	mw.suggestion.Show()
}

func (mw *MainWindow) onDownload() {
	data, err := mw.session.ExportFlattened()
	if err != nil {
		dialog.ShowError(err, mw.Window)
		return
	}
	fd := dialog.NewFileSave(func(writer fyne.URIWriteCloser, err error) {
		if err != nil || writer == nil {
			return
		}
		defer writer.Close()
		mw.saveLastDir(writer.URI().Path())
		if _, err := writer.Write(data); err != nil {
			dialog.ShowError(err, mw.Window)
			return
		}
		mw.updateStatus("Exported " + writer.URI().Name())
	}, mw.Window)
	fd.SetFileName(mw.session.ExportFilename())
	fd.SetFilter(storage.NewExtensionFileFilter([]string{".png"}))
	if loc := mw.getLastDir(); loc != nil {
		fd.SetLocation(loc)
	}
	fd.Show()
}

func (mw *MainWindow) onSubmit() {
	serial, data, err := mw.session.Record()
	if err != nil {
		dialog.ShowError(err, mw.Window)
		return
	}
	if serial == "" {
		dialog.ShowError(remote.ErrSerialRequired, mw.Window)
		return
	}
	mw.updateStatus("Submitting " + serial + "...")
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if _, err := mw.services.Remote.Save(ctx, serial, data); err != nil {
			log.Printf("Submit %s: %v", serial, err)
			dialog.ShowError(err, mw.Window)
			mw.updateStatus("Submit failed")
			return
		}
		mw.updateStatus("Submitted " + serial)
	}()
}

func (mw *MainWindow) onReset() {
	dialog.ShowConfirm("Reset form",
		"Clear this production order's form and markup on this device?",
		func(ok bool) {
			if !ok {
				return
			}
			if err := mw.session.Reset(); err != nil {
				mw.updateStatus(fmt.Sprintf("Warning: reset could not clear saved data: %v", err))
			}
		}, mw.Window)
}

func (mw *MainWindow) onAbout() {
	dialog.ShowInformation("About Quality Master",
		fmt.Sprintf("Quality Master v%s\n\n"+
			"Panel inspection checklist and defect markup.\n\n"+
			"Storage scope: %s\n\n"+
			"Built: %s\n"+
			"Commit: %s",
			version.Version, mw.session.Key(), version.BuildTime, version.GitCommit),
		mw.Window)
}

// onClosed remembers the window size and persists any pending stroke.
func (mw *MainWindow) onClosed() {
	mw.session.Close()
	size := mw.Canvas().Size()
	mw.prefs.SetFloat(prefs.KeyWindowWidth, float64(size.Width))
	mw.prefs.SetFloat(prefs.KeyWindowHeight, float64(size.Height))
	mw.SavePreferences()
}

// SavePreferences writes preferences if they changed.
func (mw *MainWindow) SavePreferences() {
	if err := mw.prefs.SaveIfChanged(); err != nil {
		log.Printf("Preferences: save failed: %v", err)
	}
}
