// internal/browser/types.go
package browser

import (
	"time"
)

// BrowserConfig defines browser automation configuration
type BrowserConfig struct {
	Headless       bool          `yaml:"headless" json:"headless"`
	UserDataDir    string        `yaml:"user_data_dir,omitempty" json:"user_data_dir,omitempty"`
	ExecPath       string        `yaml:"exec_path,omitempty" json:"exec_path,omitempty"`
	Timeout        time.Duration `yaml:"timeout" json:"timeout"`
	ViewportWidth  int           `yaml:"viewport_width" json:"viewport_width"`
	ViewportHeight int           `yaml:"viewport_height" json:"viewport_height"`
	WaitSelector   string        `yaml:"wait_selector,omitempty" json:"wait_selector,omitempty"`
	WaitDelay      time.Duration `yaml:"wait_delay,omitempty" json:"wait_delay,omitempty"`
	UserAgent      string        `yaml:"user_agent,omitempty" json:"user_agent,omitempty"`
	DisableImages  bool          `yaml:"disable_images" json:"disable_images"`
	MaxTabs        int           `yaml:"max_tabs" json:"max_tabs"`
}

// DefaultBrowserConfig returns default browser configuration
func DefaultBrowserConfig() *BrowserConfig {
	return &BrowserConfig{
		Headless:       true,
		Timeout:        30 * time.Second,
		ViewportWidth:  1920,
		ViewportHeight: 1080,
		DisableImages:  true, // recipes are read from markup, images are not needed
		MaxTabs:        4,
	}
}

// BrowserStats contains browser fetch statistics
type BrowserStats struct {
	BrowserStarts   int64         `json:"browser_starts"`
	PagesLoaded     int64         `json:"pages_loaded"`
	Errors          int64         `json:"errors"`
	AverageLoadTime time.Duration `json:"average_load_time"`
}
