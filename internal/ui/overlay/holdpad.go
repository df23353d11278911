package overlay

import (
	"image/color"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"
)

var (
	padIdleColor    = color.NRGBA{R: 48, G: 52, B: 64, A: 255}
	padPressedColor = color.NRGBA{R: 232, G: 190, B: 66, A: 255}
	padTextColor    = color.NRGBA{R: 255, G: 255, B: 255, A: 255}
)

// HoldPad is a press target that reports presses, releases and taps
// separately. A plain button only reports taps, which cannot drive a hold.
type HoldPad struct {
	widget.BaseWidget

	OnPress   func()
	OnRelease func()
	OnTap     func()

	background *canvas.Rectangle
	label      *canvas.Text
	pressed    bool
}

var (
	_ desktop.Mouseable = (*HoldPad)(nil)
	_ fyne.Tappable     = (*HoldPad)(nil)
)

// NewHoldPad creates a pad showing text.
func NewHoldPad(text string) *HoldPad {
	label := canvas.NewText(text, padTextColor)
	label.Alignment = fyne.TextAlignCenter
	label.TextStyle = fyne.TextStyle{Bold: true}
	label.TextSize = 16

	pad := &HoldPad{
		background: canvas.NewRectangle(padIdleColor),
		label:      label,
	}
	pad.background.CornerRadius = 12
	pad.ExtendBaseWidget(pad)
	return pad
}

// CreateRenderer implements fyne.Widget.
func (pad *HoldPad) CreateRenderer() fyne.WidgetRenderer {
	return widget.NewSimpleRenderer(container.NewStack(pad.background, container.NewCenter(pad.label)))
}

// MinSize keeps the pad comfortably large.
func (pad *HoldPad) MinSize() fyne.Size {
	return fyne.NewSize(160, 120)
}

// SetText replaces the pad caption.
func (pad *HoldPad) SetText(text string) {
	pad.label.Text = text
	pad.label.Refresh()
}

// Pressed reports whether the pointer is currently down on the pad.
func (pad *HoldPad) Pressed() bool {
	return pad.pressed
}

// MouseDown implements desktop.Mouseable.
func (pad *HoldPad) MouseDown(*desktop.MouseEvent) {
	if pad.pressed {
		return
	}
	pad.setPressed(true)
	if pad.OnPress != nil {
		pad.OnPress()
	}
}

// MouseUp implements desktop.Mouseable.
func (pad *HoldPad) MouseUp(*desktop.MouseEvent) {
	if !pad.pressed {
		return
	}
	pad.setPressed(false)
	if pad.OnRelease != nil {
		pad.OnRelease()
	}
}

// Tapped implements fyne.Tappable.
func (pad *HoldPad) Tapped(*fyne.PointEvent) {
	if pad.OnTap != nil {
		pad.OnTap()
	}
}

func (pad *HoldPad) setPressed(pressed bool) {
	pad.pressed = pressed
	if pressed {
		pad.background.FillColor = padPressedColor
	} else {
		pad.background.FillColor = padIdleColor
	}
	pad.background.Refresh()
}
