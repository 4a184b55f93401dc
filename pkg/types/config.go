// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// ConversionBackend identifies how the rendering engine is invoked.
type ConversionBackend string

const (
	// BackendNative runs a locally installed soffice binary.
	BackendNative ConversionBackend = "native"
	// BackendContainer runs soffice inside a docker or podman container.
	BackendContainer ConversionBackend = "container"
)

// ConversionConfig holds settings for the document conversion stage.
type ConversionConfig struct {
	// Backend selects the engine invocation: native or container.
	Backend ConversionBackend `json:"backend" yaml:"backend" mapstructure:"backend"`

	// SofficePath is the LibreOffice binary for the native backend
	// (default "soffice", resolved on PATH).
	SofficePath string `json:"soffice_path" yaml:"soffice_path" mapstructure:"soffice_path"`

	// Image is the container image for the container backend.
	Image string `json:"image" yaml:"image" mapstructure:"image"`

	// Timeout bounds a single engine run (default 5m).
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// KeepRevisions disables accepting tracked changes before rendering.
	KeepRevisions bool `json:"keep_revisions" yaml:"keep_revisions" mapstructure:"keep_revisions"`
}

// TextBackend identifies the PDF text extraction library used by the locator.
type TextBackend string

const (
	TextTabula     TextBackend = "tabula"
	TextLedongthuc TextBackend = "ledongthuc"
	TextFitz       TextBackend = "fitz"
)

// LocatorConfig holds settings for the keyword location stage.
type LocatorConfig struct {
	// Backend selects the text extraction library (default tabula).
	Backend TextBackend `json:"backend" yaml:"backend" mapstructure:"backend"`

	// OCR enables recognising pages that have no text layer. It needs a
	// binary built with the "ocr" tag.
	OCR bool `json:"ocr" yaml:"ocr" mapstructure:"ocr"`

	// OCRLanguage is the Tesseract language list (default "eng").
	OCRLanguage string `json:"ocr_language" yaml:"ocr_language" mapstructure:"ocr_language"`

	// OCRDPI is the render resolution for OCR (default 150).
	OCRDPI float64 `json:"ocr_dpi" yaml:"ocr_dpi" mapstructure:"ocr_dpi"`
}

// SortMode selects how the files of a section directory are ordered.
type SortMode string

const (
	// SortName orders files lexicographically by filename.
	SortName SortMode = "name"
	// SortPriority orders files by the first Priority key contained in the
	// filename, unmatched files last, by name within equal rank.
	SortPriority SortMode = "priority"
)

// SectionConfig declares one report section sourced from a directory.
type SectionConfig struct {
	// Label is the heading text the section is anchored to.
	Label Label `json:"label" yaml:"label" mapstructure:"label"`

	// Dir is the directory holding the section's PDFs. A relative Dir is
	// resolved against the source document's directory.
	Dir string `json:"dir" yaml:"dir" mapstructure:"dir"`

	// Sort selects the file order (default name).
	Sort SortMode `json:"sort,omitempty" yaml:"sort,omitempty" mapstructure:"sort"`

	// Priority lists the filename keys for SortPriority.
	Priority []string `json:"priority,omitempty" yaml:"priority,omitempty" mapstructure:"priority"`
}

// ServerConfig holds settings for the HTTP host.
type ServerConfig struct {
	// Addr is the listen address (default "127.0.0.1:8080").
	Addr string `json:"addr" yaml:"addr" mapstructure:"addr"`

	// AllowedOrigins lists browser origins permitted to call the API. "*"
	// allows any origin. Requests carrying any other Origin are refused.
	AllowedOrigins []string `json:"allowed_origins" yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// LogConfig selects the diagnostic log handler.
type LogConfig struct {
	// Level is debug, info, warn, or error (default info).
	Level string `json:"level" yaml:"level" mapstructure:"level"`

	// Format is text or json (default text).
	Format string `json:"format" yaml:"format" mapstructure:"format"`
}

// Config groups all settings read from the config file and environment.
type Config struct {
	Conversion ConversionConfig `json:"conversion" yaml:"conversion" mapstructure:"conversion"`
	Locator    LocatorConfig    `json:"locator" yaml:"locator" mapstructure:"locator"`
	Sections   []SectionConfig  `json:"sections" yaml:"sections" mapstructure:"sections"`
	ProfilesDB string           `json:"profiles_db" yaml:"profiles_db" mapstructure:"profiles_db"`
	Server     ServerConfig     `json:"server" yaml:"server" mapstructure:"server"`
	Log        LogConfig        `json:"log" yaml:"log" mapstructure:"log"`
}

// DefaultSections are the four standard appendices of a protection study
// report, each read from a directory next to the report document.
var DefaultSections = []SectionConfig{
	{Label: "– Short Circuit Results", Dir: "SC", Sort: SortPriority, Priority: []string{"PRES", "ULT", "GEN"}},
	{Label: "– Coordination Curves", Dir: "TCC", Sort: SortName},
	{Label: "– Utility Fault Data", Dir: "REF", Sort: SortName},
	{Label: "– System Model Data", Dir: "SLD", Sort: SortName},
}
