// Package mapplot renders saved AR maps as top-down PNG plots.
package mapplot

import (
	"fmt"
	"image/color"
	"io"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/banshee-data/armap/internal/armap"
	"github.com/banshee-data/armap/internal/httputil"
)

// Options controls plot styling.
type Options struct {
	Title      string
	Width      vg.Length
	Height     vg.Length
	PointSize  vg.Length
	PointColor color.Color
	PlaneColor color.Color
}

// DefaultOptions returns an 8x8 inch plot with green points and cyan planes.
func DefaultOptions() Options {
	return Options{
		Title:      "AR map (top-down)",
		Width:      8 * vg.Inch,
		Height:     8 * vg.Inch,
		PointSize:  vg.Points(1.5),
		PointColor: ToColor(armap.Color{0, 1, 0, 1}),
		PlaneColor: ToColor(armap.Color{0, 0.8, 1, 0.3}),
	}
}

// ToColor converts an RGBA tuple in [0,1] to a color.Color.
func ToColor(c armap.Color) color.Color {
	b := func(f float32) uint8 {
		switch {
		case f <= 0:
			return 0
		case f >= 1:
			return 255
		}
		return uint8(f*255 + 0.5)
	}
	return color.NRGBA{R: b(c[0]), G: b(c[1]), B: b(c[2]), A: b(c[3])}
}

// Footprint returns the plane proxy's four corners projected onto the
// X/Z ground plane, in winding order.
func Footprint(p armap.PlaneDescriptor) plotter.XYs {
	rot := armap.UpToNormal(p.Normal)
	hw, hh := p.Size.X/2, p.Size.Y/2
	corners := []armap.Vec3{{X: -hw, Z: -hh}, {X: hw, Z: -hh}, {X: hw, Z: hh}, {X: -hw, Z: hh}}

	out := make(plotter.XYs, len(corners))
	for i, c := range corners {
		w := rot.Rotate(c)
		out[i] = plotter.XY{X: float64(w.X + p.Center.X), Y: float64(w.Z + p.Center.Z)}
	}
	return out
}

// Render builds the plot for snap.
func Render(snap *armap.MapSnapshot, opt Options) (*plot.Plot, error) {
	if snap == nil {
		return nil, fmt.Errorf("render: nil snapshot")
	}
	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s - %d points, %d planes", opt.Title, len(snap.Points), snap.PlaneCount())
	p.X.Label.Text = "X (m)"
	p.Y.Label.Text = "Z (m)"
	p.Add(plotter.NewGrid())

	for i := 0; i < snap.PlaneCount(); i++ {
		poly, err := plotter.NewPolygon(Footprint(snap.Plane(i)))
		if err != nil {
			return nil, fmt.Errorf("plane %d: %w", i, err)
		}
		poly.Color = opt.PlaneColor
		poly.LineStyle.Width = vg.Points(0.5)
		p.Add(poly)
		if i == 0 {
			p.Legend.Add("planes", poly)
		}
	}

	if len(snap.Points) > 0 {
		xys := make(plotter.XYs, len(snap.Points))
		for i, pt := range snap.Points {
			xys[i] = plotter.XY{X: float64(pt.X), Y: float64(pt.Z)}
		}
		sc, err := plotter.NewScatter(xys)
		if err != nil {
			return nil, fmt.Errorf("points: %w", err)
		}
		sc.GlyphStyle.Color = opt.PointColor
		sc.GlyphStyle.Radius = opt.PointSize
		sc.GlyphStyle.Shape = draw.CircleGlyph{}
		p.Add(sc)
		p.Legend.Add("points", sc)
	}
	return p, nil
}

// WritePNG renders snap as PNG to w.
func WritePNG(w io.Writer, snap *armap.MapSnapshot, opt Options) error {
	p, err := Render(snap, opt)
	if err != nil {
		return err
	}
	wt, err := p.WriterTo(opt.Width, opt.Height, "png")
	if err != nil {
		return fmt.Errorf("png writer: %w", err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("write png: %w", err)
	}
	return nil
}

// SavePNG renders snap to the file at path.
func SavePNG(path string, snap *armap.MapSnapshot, opt Options) error {
	p, err := Render(snap, opt)
	if err != nil {
		return err
	}
	return p.Save(opt.Width, opt.Height, path)
}

// FetchSnapshot downloads and decodes a map record from a running server,
// typically its /api/map/file route.
func FetchSnapshot(c httputil.HTTPClient, url string) (*armap.MapSnapshot, error) {
	body, err := httputil.GetBody(c, url)
	if err != nil {
		return nil, err
	}
	return armap.DecodeSnapshot(body)
}
