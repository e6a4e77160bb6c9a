package explorer

// ChartGeometry describes the rendered chart and popover dimensions the
// frontend reports with a click, in CSS pixels.
type ChartGeometry struct {
	Width         float64 `json:"width"`         // plot area width
	Height        float64 `json:"height"`        // plot area height
	ViewportWidth float64 `json:"viewportWidth"` // full viewport width
	PopoverWidth  float64 `json:"popoverWidth"`
	Margin        float64 `json:"margin"`  // minimum gap to either viewport edge
	OffsetY       float64 `json:"offsetY"` // popover renders this far above the anchor
}

// Geometry defaults applied when the frontend omits a dimension.
const (
	defaultPopoverWidth = 280
	defaultMargin       = 12
	defaultOffsetY      = 16
)

// Anchor is the screen position for a selected chart point: the anchor point
// itself plus the clamped top-left corner of the popover.
type Anchor struct {
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
	PopoverLeft float64 `json:"popoverLeft"`
	PopoverTop  float64 `json:"popoverTop"`
}

func (g ChartGeometry) normalized() ChartGeometry {
	if g.PopoverWidth <= 0 {
		g.PopoverWidth = defaultPopoverWidth
	}
	if g.Margin <= 0 {
		g.Margin = defaultMargin
	}
	if g.OffsetY <= 0 {
		g.OffsetY = defaultOffsetY
	}
	if g.ViewportWidth <= 0 {
		g.ViewportWidth = g.Width
	}
	return g
}

// AnchorFor maps a series index and price onto the chart and positions the
// popover. The popover is centered on the anchor horizontally, then its left
// edge is clamped to [margin, viewportWidth-popoverWidth-margin] so the full
// width stays visible. The vertical position is a fixed offset above the
// anchor and is not clamped.
func AnchorFor(g ChartGeometry, index, seriesLen int, price, minPrice, maxPrice float64) Anchor {
	g = g.normalized()

	x := g.Width / 2
	if seriesLen > 1 {
		x = g.Width * float64(index) / float64(seriesLen-1)
	}

	y := g.Height / 2
	if span := maxPrice - minPrice; span > 0 {
		y = g.Height * (1 - (price-minPrice)/span)
	}

	left := clamp(x-g.PopoverWidth/2, g.Margin, g.ViewportWidth-g.PopoverWidth-g.Margin)

	return Anchor{
		X:           x,
		Y:           y,
		PopoverLeft: left,
		PopoverTop:  y - g.OffsetY,
	}
}

func clamp(v, lo, hi float64) float64 {
	if hi < lo {
		// Viewport narrower than the popover: pin to the left margin.
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
