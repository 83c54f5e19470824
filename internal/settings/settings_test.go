package settings

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/patchlibrary/feedesk/constants"
	"github.com/patchlibrary/feedesk/internal/entity"
)

func writeSettings(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "feedesk.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write settings file: %v", err)
	}
	return path
}

func TestLoadEmptyPathReturnsDefaults(t *testing.T) {
	got, err := Load("", nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got != entity.DefaultReceiptSettings() {
		t.Errorf("Load(\"\") = %+v, want defaults", got)
	}
}

func TestLoadOverlaysFile(t *testing.T) {
	path := writeSettings(t, `
[receipt]
logo_path = "/srv/feedesk/logo.png"
accent_color = "#aa3366"
styled_layout = false
include_photo = true
paper_size = "letter"
`)
	got, err := Load(path, nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.LogoPath != "/srv/feedesk/logo.png" {
		t.Errorf("LogoPath = %q", got.LogoPath)
	}
	if got.AccentColor != "#aa3366" {
		t.Errorf("AccentColor = %q", got.AccentColor)
	}
	if got.StyledLayout {
		t.Error("StyledLayout = true, want file override false")
	}
	if !got.IncludePhoto {
		t.Error("IncludePhoto = false, want true")
	}
	if got.PaperSize != constants.PaperLetter {
		t.Errorf("PaperSize = %q, want Letter", got.PaperSize)
	}
}

func TestLoadPartialFileKeepsDefaults(t *testing.T) {
	path := writeSettings(t, `
[receipt]
accent_color = "#112233"
`)
	got, err := Load(path, nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.AccentColor != "#112233" {
		t.Errorf("AccentColor = %q", got.AccentColor)
	}
	if !got.StyledLayout {
		t.Error("StyledLayout default lost on partial file")
	}
	if got.PaperSize != constants.PaperA4 {
		t.Errorf("PaperSize = %q, want default A4", got.PaperSize)
	}
}

func TestLoadRejectsBadValuesSoftly(t *testing.T) {
	path := writeSettings(t, `
[receipt]
accent_color = "red; } body { display: none"
paper_size = "A5"
`)
	got, err := Load(path, nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.AccentColor != entity.DefaultReceiptSettings().AccentColor {
		t.Errorf("AccentColor = %q, want default kept for invalid value", got.AccentColor)
	}
	if got.PaperSize != constants.PaperA4 {
		t.Errorf("PaperSize = %q, want A4 fallback", got.PaperSize)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.toml"), nil); err == nil {
		t.Error("Load of missing file returned nil error")
	}
}
