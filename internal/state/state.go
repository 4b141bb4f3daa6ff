package state

import (
	"image/color"
	"sync"
)

// IconBorder is the fixed inset subtracted from each side of IconSize to get
// the clip box of the icon image.
const IconBorder = 10.0

// RenderState holds every visual parameter the layer surfaces read.
type RenderState struct {
	// Background
	BackgroundImage *ImageSource
	BackgroundColor color.NRGBA
	BackgroundBlur  float64

	// Title text
	Title      string
	TitleColor color.NRGBA
	FontSize   float64
	LineHeight float64 // multiplier of FontSize
	Extrusion  float64 // 0 = flat
	FontFamily string

	// Icon
	IconImage      *ImageSource
	IconSize       float64 // total box including border
	IconRotation   float64 // degrees
	IconBackground color.NRGBA
	IconPadding    float64 // 0 = no background plate
	ShadowColor    color.NRGBA
	ShadowBlur     float64
	ShadowOffsetX  float64
	ShadowOffsetY  float64

	// Watermark
	Watermark      string
	WatermarkColor color.NRGBA
}

// Default returns the state a fresh session starts with.
func Default() RenderState {
	return RenderState{
		BackgroundColor: color.NRGBA{R: 0x1e, G: 0x29, B: 0x3b, A: 0xff},
		Title:           "Hello World",
		TitleColor:      color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff},
		FontSize:        120,
		LineHeight:      1.2,
		FontFamily:      "Go",
		IconSize:        360,
		IconBackground:  color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff},
		ShadowColor:     color.NRGBA{A: 0x80},
		ShadowBlur:      20,
		ShadowOffsetY:   10,
		WatermarkColor:  color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0x99},
	}
}

// HasBackgroundImage reports whether the image source takes precedence over
// the background color.
func (s RenderState) HasBackgroundImage() bool {
	return s.BackgroundImage != nil && !s.BackgroundImage.Empty()
}

// HasIcon reports whether the icon layer has anything to draw.
func (s RenderState) HasIcon() bool {
	return s.IconImage != nil && !s.IconImage.Empty()
}

// IconInnerSize is the side of the square the icon image is clipped to.
// It is <= 0 when IconSize does not exceed twice the border.
func (s RenderState) IconInnerSize() float64 {
	return s.IconSize - 2*IconBorder
}

type Store struct {
	mu    sync.RWMutex
	state RenderState
}

func NewStore(initial RenderState) *Store {
	return &Store{state: initial}
}

// Snapshot returns a copy of the current state. Image sources are shared
// pointers and must be treated as immutable.
func (store *Store) Snapshot() RenderState {
	store.mu.RLock()
	defer store.mu.RUnlock()
	return store.state
}

// Update applies fn to the state under the write lock.
func (store *Store) Update(fn func(*RenderState)) {
	store.mu.Lock()
	fn(&store.state)
	store.mu.Unlock()
}

func (store *Store) Reset(next RenderState) {
	store.mu.Lock()
	store.state = next
	store.mu.Unlock()
}
