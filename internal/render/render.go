// ABOUTME: Draws one PNG per packed host: workloads as labelled boxes over the host's capacity
// ABOUTME: CPU runs along x and memory along y, with headroom lines and an optional usage overlay

package render

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/hawson/pve-balance/internal/models"
)

// Options controls canvas size and overlays.
type Options struct {
	Width        int // canvas width for the largest host
	Height       int // canvas height for the largest host
	Margin       int
	UsageOverlay bool // shade each workload's current usage inside its box
}

// DefaultOptions returns an 800x600 canvas with a 24px margin.
func DefaultOptions() Options {
	return Options{Width: 800, Height: 600, Margin: 24}
}

var (
	background = color.RGBA{255, 255, 255, 255}
	outline    = color.RGBA{40, 40, 40, 255}
	headroom   = color.RGBA{220, 40, 40, 255}
	usage      = color.RGBA{90, 90, 90, 160}
	textColor  = color.RGBA{0, 0, 0, 255}

	palette = []color.RGBA{
		{125, 86, 244, 255},
		{0, 173, 216, 255},
		{80, 200, 120, 255},
		{240, 180, 60, 255},
		{230, 110, 150, 255},
		{110, 160, 230, 255},
	}
)

// Renderer draws packed hosts on a shared scale so the largest host fills
// the configured canvas and smaller hosts are proportionally smaller.
type Renderer struct {
	opts  Options
	hosts []*models.Host
	sx    float64 // pixels per core
	sy    float64 // pixels per GiB
}

// New computes the shared scale from hosts.
func New(hosts []*models.Host, opts Options) *Renderer {
	r := &Renderer{opts: opts, hosts: hosts}

	var maxCPU, maxMem float64
	for _, h := range hosts {
		maxCPU = math.Max(maxCPU, float64(h.MaxCPU))
		maxMem = math.Max(maxMem, h.MaxMemoryGiB())
	}
	if maxCPU > 0 {
		r.sx = float64(opts.Width-2*opts.Margin) / maxCPU
	}
	if maxMem > 0 {
		r.sy = float64(opts.Height-2*opts.Margin) / maxMem
	}
	return r
}

func (r *Renderer) px(cores float64) int { return int(math.Round(cores * r.sx)) }
func (r *Renderer) py(gib float64) int   { return int(math.Round(gib * r.sy)) }

// Render draws a single host.
func (r *Renderer) Render(h *models.Host) *image.RGBA {
	m := r.opts.Margin
	w := r.px(float64(h.MaxCPU))
	ht := r.py(h.MaxMemoryGiB())

	img := image.NewRGBA(image.Rect(0, 0, w+2*m, ht+2*m))
	draw.Draw(img, img.Bounds(), image.NewUniform(background), image.Point{}, draw.Src)

	// Memory grows upward from the bottom edge of the host box.
	originX, originY := m, m+ht
	box := image.Rect(originX, m, originX+w, originY)

	x, y := originX, originY
	for i, wl := range h.Allocated {
		bw := r.px(float64(wl.MaxCPU))
		bh := r.py(wl.MaxMemoryGiB())
		rect := image.Rect(x, y-bh, x+bw, y).Intersect(box)

		fill := palette[i%len(palette)]
		draw.Draw(img, rect, image.NewUniform(fill), image.Point{}, draw.Src)
		if r.opts.UsageOverlay {
			r.drawUsage(img, rect, wl)
		}
		strokeRect(img, rect, outline)
		label(img, rect, wl.Name)

		x += bw
		y -= bh
	}

	hx := originX + r.px(float64(h.MaxCPU-h.MinFreeCPU))
	hy := originY - r.py(models.BytesToGiB(h.MaxMemoryBytes-h.MinFreeMemoryBytes))
	vline(img, hx, box.Min.Y, box.Max.Y, headroom)
	hline(img, box.Min.X, box.Max.X, hy, headroom)

	strokeRect(img, box, outline)
	title := fmt.Sprintf("%s  %dc / %.0fG  (%d)", h.Name, h.MaxCPU, h.MaxMemoryGiB(), len(h.Allocated))
	drawText(img, m, m-6, title)
	return img
}

func (r *Renderer) drawUsage(img *image.RGBA, rect image.Rectangle, wl *models.Workload) {
	util := math.Min(math.Max(wl.CPUUtilization, 0), 1)
	uw := int(math.Round(float64(rect.Dx()) * util))
	uh := int(math.Min(float64(rect.Dy()), float64(r.py(models.BytesToGiB(wl.MemoryUsedBytes)))))
	if uw <= 0 || uh <= 0 {
		return
	}
	overlay := image.Rect(rect.Min.X, rect.Max.Y-uh, rect.Min.X+uw, rect.Max.Y)
	draw.Draw(img, overlay, image.NewUniform(usage), image.Point{}, draw.Over)
}

// Save renders every host and writes <prefix>-<host>.png files into dir.
func (r *Renderer) Save(dir, prefix string) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating image directory: %w", err)
	}

	paths := make([]string, 0, len(r.hosts))
	for _, h := range r.hosts {
		path := filepath.Join(dir, fmt.Sprintf("%s-%s.png", prefix, safeName(h.Name)))
		if err := writePNG(path, r.Render(h)); err != nil {
			return paths, err
		}
		slog.Debug("Image written", "host", h.Name, "path", path)
		paths = append(paths, path)
	}
	return paths, nil
}

func writePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("encoding %s: %w", path, err)
	}
	return f.Close()
}

func safeName(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			return r
		}
		return '_'
	}, name)
}

func hline(img *image.RGBA, x0, x1, y int, c color.Color) {
	for x := x0; x < x1; x++ {
		img.Set(x, y, c)
	}
}

func vline(img *image.RGBA, x, y0, y1 int, c color.Color) {
	for y := y0; y < y1; y++ {
		img.Set(x, y, c)
	}
}

func strokeRect(img *image.RGBA, r image.Rectangle, c color.Color) {
	if r.Empty() {
		return
	}
	hline(img, r.Min.X, r.Max.X, r.Min.Y, c)
	hline(img, r.Min.X, r.Max.X, r.Max.Y-1, c)
	vline(img, r.Min.X, r.Min.Y, r.Max.Y, c)
	vline(img, r.Max.X-1, r.Min.Y, r.Max.Y, c)
}

// label writes name inside rect, truncated to fit. Boxes too short for a
// line of text are left bare.
func label(img *image.RGBA, rect image.Rectangle, name string) {
	face := basicfont.Face7x13
	if rect.Dy() < face.Height+2 {
		return
	}
	name = fitLabel(face, name, rect.Dx()-4)
	if name == "" {
		return
	}
	drawText(img, rect.Min.X+2, rect.Min.Y+face.Ascent+1, name)
}

// fitLabel drops trailing runes from name until it is at most width pixels wide.
func fitLabel(face font.Face, name string, width int) string {
	runes := []rune(name)
	for len(runes) > 0 && font.MeasureString(face, string(runes)).Ceil() > width {
		runes = runes[:len(runes)-1]
	}
	return string(runes)
}

func drawText(img *image.RGBA, x, y int, s string) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(textColor),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(s)
}
