package theme

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/lucasb-eyer/go-colorful"
)

const gpl = `GIMP Palette
Name: two
Columns: 2
# comment
  0   0   0	black
200 100  50	warm
`

func TestLoadGPL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "two.gpl")
	if err := os.WriteFile(path, []byte(gpl), 0644); err != nil {
		t.Fatal(err)
	}
	p, err := LoadGPL(path)
	if err != nil {
		t.Fatal(err)
	}
	if p.Name != "two" || len(p.Colors) != 2 {
		t.Fatalf("palette = %+v", p)
	}
	if mid := p.Lookup(0.5); mid != (RGB{100, 50, 25}) {
		t.Fatalf("Lookup(0.5) = %v", mid)
	}
	if p.Lookup(-1) != p.Colors[0] || p.Lookup(2) != p.Colors[1] {
		t.Fatalf("Lookup does not clamp")
	}
}

func TestLoadGPLEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.gpl")
	os.WriteFile(path, []byte("GIMP Palette\n"), 0644)
	if _, err := LoadGPL(path); err == nil {
		t.Fatalf("empty palette loaded")
	}
}

func TestLoadDefaultsToPlasma(t *testing.T) {
	p, err := Load("")
	if err != nil || p.Name != "plasma" {
		t.Fatalf("Load(\"\") = %v, %v", p, err)
	}
}

func TestCellColor(t *testing.T) {
	if got := Cell(colorful.Color{R: 1, G: 0.5, B: 0}); got != "#ff8000" {
		t.Fatalf("Cell = %s", got)
	}
	th := New(Plasma())
	if th.Color(0) != "#0d0887" {
		t.Fatalf("Color(0) = %s", th.Color(0))
	}
}
