// Package updater carries the configuration for the component update
// checker: endpoints, cadence, and the debug switches that alter them.
// The network scheduling that consumes this configuration lives outside
// this package.
package updater

import (
	"strings"
	"time"
)

// Service endpoints for the component update protocol. The default URL may
// be overridden with the url-source switch; the alternative URL exists as
// a fallback for environments that cannot reach the default one.
const (
	DefaultURL     = "https://update.caravel-web.dev/service/update2"
	AlternativeURL = "http://update.caravel-web.dev/service/update2"
)

// Debug switch values accepted in the component-updater switch, comma
// separated (e.g. "fast-update,disable-pings,url-source=https://...").
const (
	// switchFastUpdate speeds up component checking.
	switchFastUpdate = "fast-update"

	// switchRequestParam adds a "testrequest=1" attribute to update checks.
	switchRequestParam = "test-request"

	// switchDisablePings disables the requests reporting the success or
	// failure of component install and update attempts.
	switchDisablePings = "disable-pings"

	// switchURLSource overrides the update endpoint.
	switchURLSource = "url-source"

	// switchDisableDeltaUpdates disables differential updates.
	switchDisableDeltaUpdates = "disable-delta-updates"

	// switchDisableBackgroundDownloads disables background downloads.
	switchDisableBackgroundDownloads = "disable-background-downloads"
)

// Configurator exposes the update checker's effective configuration.
type Configurator struct {
	fastUpdate          bool
	testRequest         bool
	pingsEnabled        bool
	deltasEnabled       bool
	backgroundDownloads bool
	urlSource           string
}

// New parses a comma-separated component-updater switch value into a
// Configurator. Unknown values are ignored.
func New(switches string) *Configurator {
	c := &Configurator{
		pingsEnabled:        true,
		deltasEnabled:       true,
		backgroundDownloads: true,
	}

	for _, value := range strings.Split(switches, ",") {
		value = strings.TrimSpace(value)
		switch {
		case value == switchFastUpdate:
			c.fastUpdate = true
		case value == switchRequestParam:
			c.testRequest = true
		case value == switchDisablePings:
			c.pingsEnabled = false
		case value == switchDisableDeltaUpdates:
			c.deltasEnabled = false
		case value == switchDisableBackgroundDownloads:
			c.backgroundDownloads = false
		case strings.HasPrefix(value, switchURLSource+"="):
			c.urlSource = strings.TrimPrefix(value, switchURLSource+"=")
		}
	}

	return c
}

// InitialDelay is how long to wait after startup before the first update
// check.
func (c *Configurator) InitialDelay() time.Duration {
	if c.fastUpdate {
		return 10 * time.Second
	}
	return time.Minute
}

// NextCheckDelay is the interval between update checks.
func (c *Configurator) NextCheckDelay() time.Duration {
	if c.fastUpdate {
		return time.Minute
	}
	return 6 * time.Hour
}

// StepDelay is the pause between processing consecutive components in one
// check cycle.
func (c *Configurator) StepDelay() time.Duration {
	if c.fastUpdate {
		return time.Second
	}
	return time.Minute
}

// UpdateURL returns the endpoint update checks are sent to.
func (c *Configurator) UpdateURL() string {
	if c.urlSource != "" {
		return c.urlSource
	}
	return DefaultURL
}

// PingURL returns the endpoint install/update outcome pings are sent to,
// or "" when pings are disabled.
func (c *Configurator) PingURL() string {
	if !c.pingsEnabled {
		return ""
	}
	return c.UpdateURL()
}

// ExtraRequestParams returns attributes appended to update check requests.
func (c *Configurator) ExtraRequestParams() string {
	if c.testRequest {
		return "testrequest=1"
	}
	return ""
}

// DeltasEnabled reports whether differential updates are enabled.
func (c *Configurator) DeltasEnabled() bool {
	return c.deltasEnabled
}

// BackgroundDownloadsEnabled reports whether downloads may use the
// system's background transfer service.
func (c *Configurator) BackgroundDownloadsEnabled() bool {
	return c.backgroundDownloads
}
