package settings

import (
	"encoding/json"
	"time"
)

// Providers
const (
	ProviderGoogle    = "google"
	ProviderWordPress = "wordpress"
	ProviderAcademic  = "academic"

	secretMask = "********"
)

var Providers = []string{ProviderGoogle, ProviderWordPress, ProviderAcademic}

// Settings is the persisted configuration of an integration provider.
type Settings struct {
	Provider  string          `json:"provider"`
	Enabled   bool            `json:"enabled"`
	Config    json.RawMessage `json:"config"`
	UpdatedBy string          `json:"updatedBy"`
	UpdatedAt *time.Time      `json:"updatedAt"` // UTC; nil until first saved
}

// Patch is a partial update of Settings; Config is a JSON merge patch (RFC 7386).
type Patch struct {
	Enabled *bool           `json:"enabled"`
	Config  json.RawMessage `json:"config" validate:"omitempty,jsonobject"`
}

type (
	// providerConfig is implemented by the typed configuration of each provider.
	providerConfig interface {
		// requiredWhenEnabled returns the JSON field names that must be set before enabling the provider.
		requiredWhenEnabled() map[string]string
		// secrets returns the JSON field names that must never be shown.
		secrets() []string
	}

	GoogleConfig struct {
		ClientID        string `json:"clientId"`
		ClientSecret    string `json:"clientSecret"`
		RedirectURL     string `json:"redirectUrl" validate:"omitempty,url"`
		SpreadsheetID   string `json:"spreadsheetId"`
		SyncSubmissions bool   `json:"syncSubmissions"`
	}

	WordPressConfig struct {
		SiteURL             string `json:"siteUrl" validate:"omitempty,url"`
		Username            string `json:"username"`
		ApplicationPassword string `json:"applicationPassword"`
		PostCategory        string `json:"postCategory"`
	}

	AcademicConfig struct {
		BaseURL      string `json:"baseUrl" validate:"omitempty,url"`
		APIKey       string `json:"apiKey"`
		SchoolCode   string `json:"schoolCode"`
		SyncApproved bool   `json:"syncApproved"`
	}
)

func (c *GoogleConfig) requiredWhenEnabled() map[string]string {
	return map[string]string{"clientId": c.ClientID, "clientSecret": c.ClientSecret}
}

func (c *GoogleConfig) secrets() []string { return []string{"clientSecret"} }

func (c *WordPressConfig) requiredWhenEnabled() map[string]string {
	return map[string]string{"siteUrl": c.SiteURL, "username": c.Username, "applicationPassword": c.ApplicationPassword}
}

func (c *WordPressConfig) secrets() []string { return []string{"applicationPassword"} }

func (c *AcademicConfig) requiredWhenEnabled() map[string]string {
	return map[string]string{"baseUrl": c.BaseURL, "apiKey": c.APIKey}
}

func (c *AcademicConfig) secrets() []string { return []string{"apiKey"} }

func newProviderConfig(provider string) (providerConfig, bool) {
	switch provider {
	case ProviderGoogle:
		return new(GoogleConfig), true
	case ProviderWordPress:
		return new(WordPressConfig), true
	case ProviderAcademic:
		return new(AcademicConfig), true
	default:
		return nil, false
	}
}
