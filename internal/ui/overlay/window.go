// Package overlay renders a widget in a small desktop window.
package overlay

import (
	"fmt"
	"image/color"

	"stagecraft/internal/core/model"
	"stagecraft/internal/core/stagekeeper"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"
)

// Config defines overlay visuals.
type Config struct {
	Width   float32
	Height  float32
	Opacity uint8
}

// Widget is the part of a Keeper the window drives.
type Widget interface {
	Config() model.SequenceConfig
	Snapshot() stagekeeper.Snapshot
	PointerDown() bool
	PointerUp() bool
	Tap() bool
	RequestAdvance(target model.Stage) bool
	Reset()
}

// Window manages the overlay UI.
type Window struct {
	app         fyne.App
	window      fyne.Window
	config      Config
	widget      Widget
	background  *canvas.Rectangle
	titleLabel  *canvas.Text
	stageLabel  *canvas.Text
	detailLabel *canvas.Text
	progress    *widget.ProgressBar
	pad         *HoldPad
	nextButton  *widget.Button
	resetButton *widget.Button
}

const (
	defaultWidth  = float32(420)
	defaultHeight = float32(320)
)

var (
	titleColor  = color.NRGBA{R: 255, G: 255, B: 255, A: 255}
	stageColor  = color.NRGBA{R: 232, G: 190, B: 66, A: 255}
	detailColor = color.NRGBA{R: 190, G: 190, B: 200, A: 255}
)

// New creates the window for a mounted widget. It is not shown until Show.
func New(app fyne.App, config Config, target Widget) *Window {
	window := app.NewWindow(target.Config().Name)
	if app.Icon() != nil {
		window.SetIcon(app.Icon())
	}
	window.SetPadded(false)

	background := canvas.NewRectangle(color.NRGBA{R: 0, G: 0, B: 0, A: opacityOrDefault(config.Opacity)})

	titleLabel := canvas.NewText(target.Config().Name, titleColor)
	titleLabel.TextStyle = fyne.TextStyle{Bold: true}
	titleLabel.TextSize = 21

	stageLabel := canvas.NewText("", stageColor)
	stageLabel.TextStyle = fyne.TextStyle{Bold: true}
	stageLabel.TextSize = 16

	detailLabel := canvas.NewText("", detailColor)
	detailLabel.TextSize = 14

	progress := widget.NewProgressBar()
	pad := NewHoldPad("")
	nextButton := widget.NewButton("Next", nil)
	resetButton := widget.NewButton("Reset", nil)

	header := container.New(&headerLayout{}, titleLabel, stageLabel, detailLabel)
	buttons := container.NewGridWithColumns(2, nextButton, resetButton)
	content := container.NewBorder(header, container.NewVBox(progress, buttons), nil, nil, container.NewPadded(pad))
	window.SetContent(container.NewStack(background, container.NewPadded(content)))

	overlay := &Window{
		app:         app,
		window:      window,
		config:      config,
		widget:      target,
		background:  background,
		titleLabel:  titleLabel,
		stageLabel:  stageLabel,
		detailLabel: detailLabel,
		progress:    progress,
		pad:         pad,
		nextButton:  nextButton,
		resetButton: resetButton,
	}
	overlay.wireControls()
	overlay.renderUnsafe(target.Snapshot())
	return overlay
}

// Show resizes, centres and shows the window.
func (overlay *Window) Show() {
	width, height := overlay.config.Width, overlay.config.Height
	if width <= 0 {
		width = defaultWidth
	}
	if height <= 0 {
		height = defaultHeight
	}
	minSize := overlay.window.Content().MinSize()
	overlay.window.Resize(fyne.NewSize(max(width, minSize.Width), max(height, minSize.Height)))
	overlay.window.CenterOnScreen()
	overlay.window.Show()
}

// SetOnClosed registers a handler for the window closing.
func (overlay *Window) SetOnClosed(handler func()) {
	overlay.window.SetOnClosed(handler)
}

// Follow redraws the window for every event until the channel is closed.
// It is meant to run on its own goroutine.
func (overlay *Window) Follow(events <-chan stagekeeper.Event) {
	for range events {
		snapshot := overlay.widget.Snapshot()
		fyne.Do(func() {
			overlay.renderUnsafe(snapshot)
		})
	}
}

// Pad exposes the hold pad.
func (overlay *Window) Pad() *HoldPad {
	return overlay.pad
}

func (overlay *Window) wireControls() {
	overlay.pad.OnPress = func() {
		overlay.widget.PointerDown()
		overlay.renderUnsafe(overlay.widget.Snapshot())
	}
	overlay.pad.OnRelease = func() {
		overlay.widget.PointerUp()
		overlay.renderUnsafe(overlay.widget.Snapshot())
	}
	overlay.pad.OnTap = func() {
		overlay.widget.Tap()
		overlay.renderUnsafe(overlay.widget.Snapshot())
	}
	overlay.nextButton.OnTapped = func() {
		snapshot := overlay.widget.Snapshot()
		if next, ok := overlay.widget.Config().PrimarySuccessor(snapshot.Stage); ok {
			overlay.widget.RequestAdvance(next)
		}
		overlay.renderUnsafe(overlay.widget.Snapshot())
	}
	overlay.resetButton.OnTapped = func() {
		overlay.widget.Reset()
		overlay.renderUnsafe(overlay.widget.Snapshot())
	}
}

func (overlay *Window) renderUnsafe(snapshot stagekeeper.Snapshot) {
	overlay.stageLabel.Text = string(snapshot.Stage)
	overlay.stageLabel.Refresh()

	overlay.detailLabel.Text = describe(snapshot)
	overlay.detailLabel.Refresh()

	overlay.pad.SetText(padCaption(snapshot))

	if snapshot.Entry == model.EntryHold {
		overlay.progress.SetValue(snapshot.Progress)
		overlay.progress.Show()
	} else {
		overlay.progress.Hide()
	}

	if snapshot.Completed && snapshot.Stage == overlay.widget.Config().Terminal() {
		overlay.nextButton.Disable()
	} else {
		overlay.nextButton.Enable()
	}
}

func describe(snapshot stagekeeper.Snapshot) string {
	switch {
	case snapshot.Completed && snapshot.Entry == model.EntryNone:
		return "complete"
	case snapshot.Entry == model.EntryHold:
		return fmt.Sprintf("hold %d%%", int(snapshot.Progress*100))
	case snapshot.Entry == model.EntryTap:
		return fmt.Sprintf("taps %d/%d", snapshot.Taps, snapshot.RequiredTaps)
	case snapshot.Entry == model.EntryTimer:
		return "waiting"
	default:
		return ""
	}
}

func padCaption(snapshot stagekeeper.Snapshot) string {
	switch snapshot.Entry {
	case model.EntryHold:
		if snapshot.Holding {
			return "keep holding"
		}
		return "press and hold"
	case model.EntryTap:
		return "tap"
	default:
		return ""
	}
}

func opacityOrDefault(opacity uint8) uint8 {
	if opacity == 0 {
		return 230
	}
	return opacity
}

type headerLayout struct{}

func (layout *headerLayout) Layout(objects []fyne.CanvasObject, size fyne.Size) {
	if len(objects) < 3 {
		return
	}
	title := objects[0]
	stage := objects[1]
	detail := objects[2]

	pad := float32(8)
	availableWidth := size.Width - pad*2
	if availableWidth < 0 {
		availableWidth = 0
	}

	titleSize := title.MinSize()
	title.Move(fyne.NewPos(pad, pad))
	title.Resize(fyne.NewSize(availableWidth, titleSize.Height))

	stageSize := stage.MinSize()
	stageY := pad + titleSize.Height + 6
	stage.Move(fyne.NewPos(pad, stageY))
	stage.Resize(fyne.NewSize(availableWidth, stageSize.Height))

	detailSize := detail.MinSize()
	detailY := stageY + stageSize.Height + 4
	detail.Move(fyne.NewPos(pad, detailY))
	detail.Resize(fyne.NewSize(availableWidth, detailSize.Height))
}

func (layout *headerLayout) MinSize(objects []fyne.CanvasObject) fyne.Size {
	if len(objects) < 3 {
		return fyne.NewSize(0, 0)
	}
	width := float32(0)
	height := float32(0)
	for _, object := range objects[:3] {
		size := object.MinSize()
		width = max(width, size.Width)
		height += size.Height
	}
	return fyne.NewSize(width+16, height+26)
}
