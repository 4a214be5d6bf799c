// Package config loads the credentials and endpoints geoarchive needs for
// Zotero, ScienceBase and the GeoKB, and checks them before any work starts.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// Environment variable names.
const (
	EnvZoteroAPIKey     = "ZOTERO_API_KEY"
	EnvZoteroLibraryID  = "ZOTERO_LIBRARY_ID"
	EnvSBAccessToken    = "SB_ACCESS_TOKEN"
	EnvSBRefreshToken   = "SB_REFRESH_TOKEN"
	EnvWBSPARQLEndpoint = "WB_SPARQL_ENDPOINT"
	EnvWBURL            = "WB_URL"
	EnvMediaWikiAPI     = "MEDIAWIKI_API"
	EnvWBBotUserAgent   = "WB_BOT_USER_AGENT"
	EnvWBBotUser        = "WB_BOT_USER"
	EnvWBBotPass        = "WB_BOT_PASS"
	EnvLogLevel         = "GEOARCHIVE_LOG_LEVEL"
	EnvCachePath        = "GEOARCHIVE_CACHE"
	EnvJournalPath      = "GEOARCHIVE_JOURNAL"
)

// Defaults for the NI 43-101 archive collection.
const (
	DefaultZoteroLibraryID   = "4530692"
	DefaultFileArchiveItemID = "6618596fd34e7eb9eb7d7b7c"
	DefaultDropboxItemID     = "66185a07d34e7eb9eb7d7b80"
	DefaultCachePath         = "/tmp"
)

// Configuration errors. ErrMissing is wrapped by every *Error, ErrInvalid by
// every *InvalidError.
var (
	ErrMissing = errors.New("missing configuration")
	ErrInvalid = errors.New("invalid configuration")
)

// Error reports the settings a service needs that are not set.
type Error struct {
	Service string
	Missing []string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s configuration: %s not set", e.Service, strings.Join(e.Missing, ", "))
}

func (e *Error) Unwrap() error {
	return ErrMissing
}

// InvalidError reports a setting whose value is not accepted.
type InvalidError struct {
	Service string
	Setting string
	Value   string
	Reason  string
}

func (e *InvalidError) Error() string {
	return fmt.Sprintf("%s configuration: %s %s, got %q", e.Service, e.Setting, e.Reason, e.Value)
}

func (e *InvalidError) Unwrap() error {
	return ErrInvalid
}

// IsConfigError returns true if err is or wraps a configuration error.
func IsConfigError(err error) bool {
	return errors.Is(err, ErrMissing) || errors.Is(err, ErrInvalid)
}

// Zotero holds the Zotero Web API settings.
type Zotero struct {
	APIKey      string `yaml:"api_key,omitempty"`
	LibraryID   string `yaml:"library_id,omitempty"`
	LibraryType string `yaml:"library_type,omitempty"`
}

// ScienceBase holds the ScienceBase session tokens.
type ScienceBase struct {
	AccessToken  string `yaml:"access_token,omitempty"`
	RefreshToken string `yaml:"refresh_token,omitempty"`
	BaseURL      string `yaml:"base_url,omitempty"`
}

// GeoKB holds the Wikibase endpoints and bot credentials.
type GeoKB struct {
	SPARQLEndpoint string `yaml:"sparql_endpoint,omitempty"`
	URL            string `yaml:"url,omitempty"`
	MediaWikiAPI   string `yaml:"mediawiki_api,omitempty"`
	UserAgent      string `yaml:"user_agent,omitempty"`
	BotUser        string `yaml:"bot_user,omitempty"`
	BotPass        string `yaml:"bot_pass,omitempty"`
}

// NI43101 identifies the ScienceBase items of the NI 43-101 collection.
type NI43101 struct {
	FileArchiveItemID string `yaml:"file_archive_item_id,omitempty"`
	DropboxItemID     string `yaml:"dropbox_item_id,omitempty"`
}

// Config is the complete geoarchive configuration.
type Config struct {
	Zotero      Zotero      `yaml:"zotero"`
	ScienceBase ScienceBase `yaml:"sciencebase"`
	GeoKB       GeoKB       `yaml:"geokb"`
	NI43101     NI43101     `yaml:"ni43101"`
	CachePath   string      `yaml:"cache_path,omitempty"`
	JournalPath string      `yaml:"journal_path,omitempty"`
	LogLevel    string      `yaml:"log_level,omitempty"`
}

// envBindings maps environment variables onto config fields.
func (c *Config) envBindings() []struct {
	name  string
	field *string
} {
	return []struct {
		name  string
		field *string
	}{
		{EnvZoteroAPIKey, &c.Zotero.APIKey},
		{EnvZoteroLibraryID, &c.Zotero.LibraryID},
		{EnvSBAccessToken, &c.ScienceBase.AccessToken},
		{EnvSBRefreshToken, &c.ScienceBase.RefreshToken},
		{EnvWBSPARQLEndpoint, &c.GeoKB.SPARQLEndpoint},
		{EnvWBURL, &c.GeoKB.URL},
		{EnvMediaWikiAPI, &c.GeoKB.MediaWikiAPI},
		{EnvWBBotUserAgent, &c.GeoKB.UserAgent},
		{EnvWBBotUser, &c.GeoKB.BotUser},
		{EnvWBBotPass, &c.GeoKB.BotPass},
		{EnvLogLevel, &c.LogLevel},
		{EnvCachePath, &c.CachePath},
		{EnvJournalPath, &c.JournalPath},
	}
}

// ApplyEnv overrides fields with any non-empty environment variables.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	for _, b := range c.envBindings() {
		if v, ok := lookup(b.name); ok && v != "" {
			*b.field = v
		}
	}
}

// applyDefaults fills settings that have a sensible default.
func (c *Config) applyDefaults() {
	if c.Zotero.LibraryID == "" {
		c.Zotero.LibraryID = DefaultZoteroLibraryID
	}
	if c.Zotero.LibraryType == "" {
		c.Zotero.LibraryType = "group"
	}
	if c.NI43101.FileArchiveItemID == "" {
		c.NI43101.FileArchiveItemID = DefaultFileArchiveItemID
	}
	if c.NI43101.DropboxItemID == "" {
		c.NI43101.DropboxItemID = DefaultDropboxItemID
	}
	if c.CachePath == "" {
		c.CachePath = DefaultCachePath
	}
	c.CachePath = ExpandPath(c.CachePath)
	c.JournalPath = ExpandPath(c.JournalPath)
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

// Load reads the YAML file at path (a missing file is not an error), overlays
// the process environment and fills defaults.
func Load(path string) (*Config, error) {
	cfg, err := loadFile(path)
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnv(os.LookupEnv)
	cfg.applyDefaults()
	return cfg, nil
}

func missing(pairs ...string) []string {
	var out []string
	for i := 0; i+1 < len(pairs); i += 2 {
		if pairs[i+1] == "" {
			out = append(out, pairs[i])
		}
	}
	return out
}

// RequireZotero checks the Zotero settings.
func (c *Config) RequireZotero() error {
	m := missing(
		EnvZoteroAPIKey, c.Zotero.APIKey,
		EnvZoteroLibraryID, c.Zotero.LibraryID,
	)
	if len(m) > 0 {
		return &Error{Service: "zotero", Missing: m}
	}
	if c.Zotero.LibraryType != "group" && c.Zotero.LibraryType != "user" {
		return &InvalidError{
			Service: "zotero",
			Setting: "library_type",
			Value:   c.Zotero.LibraryType,
			Reason:  "must be group or user",
		}
	}
	return nil
}

// RequireScienceBase checks the ScienceBase session tokens.
func (c *Config) RequireScienceBase() error {
	m := missing(
		EnvSBAccessToken, c.ScienceBase.AccessToken,
		EnvSBRefreshToken, c.ScienceBase.RefreshToken,
	)
	if len(m) > 0 {
		return &Error{Service: "sciencebase", Missing: m}
	}
	return nil
}

// RequireGeoKB checks the Wikibase endpoints and bot credentials.
func (c *Config) RequireGeoKB() error {
	m := missing(
		EnvWBSPARQLEndpoint, c.GeoKB.SPARQLEndpoint,
		EnvWBURL, c.GeoKB.URL,
		EnvMediaWikiAPI, c.GeoKB.MediaWikiAPI,
		EnvWBBotUserAgent, c.GeoKB.UserAgent,
		EnvWBBotUser, c.GeoKB.BotUser,
		EnvWBBotPass, c.GeoKB.BotPass,
	)
	if len(m) > 0 {
		return &Error{Service: "geokb", Missing: m}
	}
	return nil
}
