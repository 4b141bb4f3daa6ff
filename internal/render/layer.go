package render

import "strings"

// Layer identifies one of the four layer surfaces.
type Layer int

const (
	LayerBackground Layer = iota
	LayerText
	LayerIcon
	LayerWatermark

	layerCount
)

// ComposeOrder is the fixed z-order of the compositor, back to front.
var ComposeOrder = [layerCount]Layer{LayerBackground, LayerText, LayerIcon, LayerWatermark}

// RedrawOrder is the order the scheduler issues redraws within one flush.
var RedrawOrder = [layerCount]Layer{LayerBackground, LayerText, LayerWatermark, LayerIcon}

func (l Layer) String() string {
	switch l {
	case LayerBackground:
		return "background"
	case LayerText:
		return "text"
	case LayerIcon:
		return "icon"
	case LayerWatermark:
		return "watermark"
	}
	return "unknown"
}

// LayerSet is a set of dirty flags, one bit per layer.
type LayerSet uint8

const AllLayers LayerSet = 1<<layerCount - 1

func LayersOf(layers ...Layer) LayerSet {
	var set LayerSet
	for _, l := range layers {
		set |= 1 << l
	}
	return set
}

func (s LayerSet) Has(l Layer) bool { return s&(1<<l) != 0 }

func (s LayerSet) Empty() bool { return s == 0 }

func (s LayerSet) String() string {
	var names []string
	for _, l := range RedrawOrder {
		if s.Has(l) {
			names = append(names, l.String())
		}
	}
	return strings.Join(names, ",")
}
