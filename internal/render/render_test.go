package render

import (
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"unicode/utf8"

	"golang.org/x/image/font/basicfont"

	"github.com/hawson/pve-balance/internal/models"
)

func testHost(t *testing.T, name string, cpu int, memGiB int64) *models.Host {
	t.Helper()
	h, err := models.NewHost(models.MakeHostRecord(name, "online", cpu, memGiB*models.GiB, 0, 0), models.DefaultReservation(), 0)
	if err != nil {
		t.Fatalf("NewHost failed: %v", err)
	}
	return h
}

func testWorkload(t *testing.T, cpu int, memGiB int64, util float64, usedGiB int64) *models.Workload {
	t.Helper()
	w, err := models.NewWorkload(models.MakeWorkloadRecord(1, "vm1", "running", "a", cpu, memGiB*models.GiB, util, usedGiB*models.GiB), 0)
	if err != nil {
		t.Fatalf("NewWorkload failed: %v", err)
	}
	return w
}

func testOptions() Options {
	return Options{Width: 800, Height: 600, Margin: 20}
}

func TestRender_SizesProportionalToCapacity(t *testing.T) {
	large := testHost(t, "large", 16, 64)
	small := testHost(t, "small", 8, 32)
	r := New([]*models.Host{large, small}, testOptions())

	tests := []struct {
		host          *models.Host
		width, height int
	}{
		{large, 800, 600},
		{small, 420, 320},
	}

	for _, tt := range tests {
		t.Run(tt.host.Name, func(t *testing.T) {
			b := r.Render(tt.host).Bounds()
			if b.Dx() != tt.width || b.Dy() != tt.height {
				t.Errorf("Expected %dx%d, got %dx%d", tt.width, tt.height, b.Dx(), b.Dy())
			}
		})
	}
}

func TestRender_DrawsWorkloadsAndHeadroom(t *testing.T) {
	h := testHost(t, "a", 16, 64)
	h.Allocate(testWorkload(t, 2, 8, 0, 0), false)

	img := New([]*models.Host{h}, testOptions()).Render(h)

	if got := img.RGBAAt(100, 570); got != palette[0] {
		t.Errorf("Expected workload fill %v, got %v", palette[0], got)
	}
	if got := img.RGBAAt(400, 300); got != background {
		t.Errorf("Expected empty space %v, got %v", background, got)
	}
	// 15 usable cores at 47.5px each, rounded, plus the margin.
	if got := img.RGBAAt(733, 300); got != headroom {
		t.Errorf("Expected CPU headroom line %v, got %v", headroom, got)
	}
	if got := img.RGBAAt(400, 76); got != headroom {
		t.Errorf("Expected memory headroom line %v, got %v", headroom, got)
	}
}

func TestRender_UsageOverlay(t *testing.T) {
	h := testHost(t, "a", 16, 64)
	h.Allocate(testWorkload(t, 2, 8, 1.0, 8), false)

	opts := testOptions()
	plain := New([]*models.Host{h}, opts).Render(h)
	opts.UsageOverlay = true
	shaded := New([]*models.Host{h}, opts).Render(h)

	if plain.RGBAAt(100, 570) != palette[0] {
		t.Errorf("Expected plain fill without overlay, got %v", plain.RGBAAt(100, 570))
	}
	if shaded.RGBAAt(100, 570) == palette[0] {
		t.Error("Expected overlay to shade the workload box")
	}
}

func TestSave(t *testing.T) {
	hosts := []*models.Host{testHost(t, "pve1", 16, 64), testHost(t, "pve/2", 8, 32)}
	dir := filepath.Join(t.TempDir(), "img")

	paths, err := New(hosts, testOptions()).Save(dir, "packed")
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	want := []string{"packed-pve1.png", "packed-pve_2.png"}
	if len(paths) != len(want) {
		t.Fatalf("Expected %d files, got %d", len(want), len(paths))
	}
	for i, name := range want {
		if filepath.Base(paths[i]) != name {
			t.Errorf("Expected %s, got %s", name, filepath.Base(paths[i]))
		}

		f, err := os.Open(paths[i])
		if err != nil {
			t.Fatalf("Open failed: %v", err)
		}
		_, err = png.Decode(f)
		f.Close()
		if err != nil {
			t.Errorf("Expected valid PNG at %s, got %v", paths[i], err)
		}
	}
}

func TestSafeName(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"pve1", "pve1"},
		{"esx-01.lab", "esx-01.lab"},
		{"a/b c", "a_b_c"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := safeName(tt.in); got != tt.want {
				t.Errorf("Expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestFitLabel(t *testing.T) {
	face := basicfont.Face7x13
	tests := []struct {
		name  string
		in    string
		width int
		want  string
	}{
		{"fits", "web", 100, "web"},
		{"trimmed", "database", 28, "data"},
		{"multibyte trimmed", "ñandú-db", 28, "ñand"},
		{"too narrow", "db", 3, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := fitLabel(face, tt.in, tt.width)
			if !utf8.ValidString(got) {
				t.Fatalf("Expected valid UTF-8, got %q", got)
			}
			if got != tt.want {
				t.Errorf("Expected %q, got %q", tt.want, got)
			}
		})
	}
}
