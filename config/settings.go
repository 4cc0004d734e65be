package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// JournalSettings are the editorial knobs that are not secrets.
type JournalSettings struct {
	Name              string   `yaml:"name"`
	Sections          []string `yaml:"sections"`
	ReviewDays        int      `yaml:"review_days"`
	MaxKeywords       int      `yaml:"max_keywords"`
	NotifyChannel     string   `yaml:"notify_channel"`
	EventBufferSize   int      `yaml:"event_buffer_size"`
	MaxUploadMB       int      `yaml:"max_upload_mb"`
	AllowedMediaTypes []string `yaml:"allowed_media_types"`
}

// DefaultJournalSettings mirrors the section list of the submission wizard.
func DefaultJournalSettings() JournalSettings {
	return JournalSettings{
		Name: "Journal of Applied Research",
		Sections: []string{
			"Computer Science",
			"Engineering",
			"Medicine",
			"Physics",
			"Biology",
			"Chemistry",
		},
		ReviewDays:      14,
		MaxKeywords:     10,
		NotifyChannel:   "journal:workflow-events",
		EventBufferSize: 256,
		MaxUploadMB:     25,
		AllowedMediaTypes: []string{
			"application/pdf",
			"application/msword",
			"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
			"application/zip",
			"text/plain",
		},
	}
}

// LoadJournalSettings reads the YAML file at path over the defaults.
// An empty path returns the defaults with env overrides applied.
func LoadJournalSettings(path string) (JournalSettings, error) {
	settings := DefaultJournalSettings()
	if strings.TrimSpace(path) != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return settings, fmt.Errorf("read journal config: %w", err)
		}
		if err := yaml.Unmarshal(raw, &settings); err != nil {
			return settings, fmt.Errorf("parse journal config %s: %w", path, err)
		}
	}

	if days, err := strconv.Atoi(os.Getenv("REVIEW_DAYS")); err == nil && days > 0 {
		settings.ReviewDays = days
	}
	if settings.ReviewDays <= 0 {
		settings.ReviewDays = 14
	}
	if settings.EventBufferSize <= 0 {
		settings.EventBufferSize = 256
	}
	return settings, nil
}

// ReviewWindow is the default time a reviewer has to complete a review.
func (s JournalSettings) ReviewWindow() time.Duration {
	return time.Duration(s.ReviewDays) * 24 * time.Hour
}

// MaxUploadBytes returns the upload limit in bytes.
func (s JournalSettings) MaxUploadBytes() int64 {
	if s.MaxUploadMB <= 0 {
		return 25 << 20
	}
	return int64(s.MaxUploadMB) << 20
}

// HasSection reports whether section is configured; an empty list allows any section.
func (s JournalSettings) HasSection(section string) bool {
	if len(s.Sections) == 0 {
		return true
	}
	for _, candidate := range s.Sections {
		if strings.EqualFold(candidate, section) {
			return true
		}
	}
	return false
}

// AllowsMediaType reports whether contentType may be uploaded.
func (s JournalSettings) AllowsMediaType(contentType string) bool {
	if len(s.AllowedMediaTypes) == 0 {
		return true
	}
	base := strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0])
	for _, allowed := range s.AllowedMediaTypes {
		if strings.EqualFold(allowed, base) {
			return true
		}
	}
	return false
}
