package export

import (
	"io"
	"strconv"

	svg "github.com/ajstarks/svgo"
	"github.com/mattn/go-runewidth"

	"github.com/Dicklesworthstone/treenav/pkg/model"
)

// SVGOptions controls GenerateSVG. Zero values take the defaults.
type SVGOptions struct {
	Icons     model.Icons
	RowHeight int
	Indent    int
	FontSize  int
	Margin    int

	// IncludeHidden also draws rows under collapsed branches.
	IncludeHidden bool
}

func (o SVGOptions) withDefaults() SVGOptions {
	o.Icons = o.Icons.WithDefaults()
	if o.RowHeight <= 0 {
		o.RowHeight = 22
	}
	if o.Indent <= 0 {
		o.Indent = 18
	}
	if o.FontSize <= 0 {
		o.FontSize = 14
	}
	if o.Margin <= 0 {
		o.Margin = 12
	}
	return o
}

const (
	textStyle      = "font-family:monospace;fill:#222"
	connectorStyle = "stroke:#999;stroke-width:1"
)

// GenerateSVG draws rows as an indented outline with connector lines from
// each row to its parent.
func GenerateSVG(w io.Writer, rows []model.Row, opts SVGOptions) {
	opts = opts.withDefaults()

	var drawn []model.Row
	for _, r := range rows {
		if r.Visible || opts.IncludeHidden {
			drawn = append(drawn, r)
		}
	}

	charWidth := opts.FontSize * 6 / 10
	width := 2 * opts.Margin
	for _, r := range drawn {
		line := indentX(r.Level, opts) + (runewidth.StringWidth(opts.Icons.For(r.Icon))+1+runewidth.StringWidth(r.Label))*charWidth
		if line+opts.Margin > width {
			width = line + opts.Margin
		}
	}
	height := len(drawn)*opts.RowHeight + 2*opts.Margin

	canvas := svg.New(w)
	canvas.Start(width, height)
	canvas.Rect(0, 0, width, height, "fill:white")

	var stack []int
	for i, r := range drawn {
		for len(stack) > 0 && drawn[stack[len(stack)-1]].Level >= r.Level {
			stack = stack[:len(stack)-1]
		}
		y := baseline(i, opts)
		x := indentX(r.Level, opts)
		if len(stack) > 0 {
			p := stack[len(stack)-1]
			px := indentX(drawn[p].Level, opts) + charWidth/2
			midY := y - opts.FontSize/3
			canvas.Line(px, baseline(p, opts)+opts.RowHeight/4, px, midY, connectorStyle)
			canvas.Line(px, midY, x-2, midY, connectorStyle)
		}
		canvas.Text(x, y, opts.Icons.For(r.Icon)+" "+r.Label, textStyle+";font-size:"+strconv.Itoa(opts.FontSize)+"px")
		stack = append(stack, i)
	}
	canvas.End()
}

func indentX(level int, opts SVGOptions) int {
	return opts.Margin + (level-1)*opts.Indent
}

func baseline(i int, opts SVGOptions) int {
	return opts.Margin + i*opts.RowHeight + opts.FontSize
}
