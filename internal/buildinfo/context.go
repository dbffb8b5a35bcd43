// Package buildinfo holds build-time metadata injected with -ldflags.
package buildinfo

import "runtime"

// UnknownValue is reported for metadata the build did not set.
const UnknownValue = "unknown"

// Set at link time: -ldflags "-X github.com/tphakala/lungcheck/internal/buildinfo.version=v1.2.3"
var (
	version   string
	buildDate string
)

// Context is a snapshot of build metadata.
type Context struct {
	Version   string
	BuildDate string
}

// NewContext creates a Context from explicit values.
func NewContext(version, buildDate string) *Context {
	return &Context{Version: version, BuildDate: buildDate}
}

// Current returns the metadata linked into this binary.
func Current() *Context {
	return NewContext(version, buildDate)
}

// GetVersion returns the version, or UnknownValue.
func (c *Context) GetVersion() string {
	if c == nil || c.Version == "" {
		return UnknownValue
	}
	return c.Version
}

// GetBuildDate returns the build date, or UnknownValue.
func (c *Context) GetBuildDate() string {
	if c == nil || c.BuildDate == "" {
		return UnknownValue
	}
	return c.BuildDate
}

// Release is the Sentry release identifier, e.g. lungcheck@v1.2.3
func (c *Context) Release() string {
	if c == nil || c.Version == "" {
		return "lungcheck@dev"
	}
	return "lungcheck@" + c.Version
}

// String formats the metadata for the version command.
func (c *Context) String() string {
	return "lungcheck " + c.GetVersion() + " (built " + c.GetBuildDate() + ", " + runtime.Version() + ")"
}
