// Package settings loads the install's receipt presentation settings from
// a TOML file, overlaying them on the built-in defaults.
package settings

import (
	"log/slog"
	"regexp"

	"github.com/BurntSushi/toml"

	"github.com/patchlibrary/feedesk/constants"
	"github.com/patchlibrary/feedesk/internal/common"
	"github.com/patchlibrary/feedesk/internal/entity"
)

type fileSettings struct {
	Receipt struct {
		LogoPath     string `toml:"logo_path"`
		AccentColor  string `toml:"accent_color"`
		StyledLayout *bool  `toml:"styled_layout"`
		IncludePhoto bool   `toml:"include_photo"`
		PaperSize    string `toml:"paper_size"`
	} `toml:"receipt"`
}

var accentPattern = regexp.MustCompile(`^#[0-9a-fA-F]{3,8}$`)

// Load reads the settings file at path. An empty path returns the defaults
// unchanged; a missing or unreadable file is an error. Individual fields
// that are absent keep their defaults.
func Load(path string, logger *slog.Logger) (entity.ReceiptSettings, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := entity.DefaultReceiptSettings()
	if path == "" {
		return s, nil
	}

	var f fileSettings
	if _, err := toml.DecodeFile(path, &f); err != nil {
		return s, common.WrapError(err, "load settings file")
	}

	if f.Receipt.LogoPath != "" {
		s.LogoPath = f.Receipt.LogoPath
	}
	if f.Receipt.AccentColor != "" {
		if accentPattern.MatchString(f.Receipt.AccentColor) {
			s.AccentColor = f.Receipt.AccentColor
		} else {
			logger.Warn("settings.accent_color.invalid",
				"value", f.Receipt.AccentColor, "using", s.AccentColor)
		}
	}
	if f.Receipt.StyledLayout != nil {
		s.StyledLayout = *f.Receipt.StyledLayout
	}
	s.IncludePhoto = f.Receipt.IncludePhoto
	if f.Receipt.PaperSize != "" {
		size, ok := constants.ParsePaperSize(f.Receipt.PaperSize)
		if !ok {
			logger.Warn("settings.paper_size.unknown",
				"value", f.Receipt.PaperSize, "using", size)
		}
		s.PaperSize = size
	}

	logger.Info("settings.loaded",
		"path", path,
		"paper_size", s.PaperSize,
		"styled", s.StyledLayout)
	return s, nil
}
