// Package uaparse classifies User-Agent strings into coarse device and
// browser families for audit records. It is best-effort substring matching,
// not authoritative detection; unknown agents fall back to "desktop"/"other".
package uaparse

import "strings"

// Device families.
const (
	DeviceMobile  = "mobile"
	DeviceTablet  = "tablet"
	DeviceDesktop = "desktop"
)

// Browser families.
const (
	BrowserChrome  = "chrome"
	BrowserFirefox = "firefox"
	BrowserSafari  = "safari"
	BrowserEdge    = "edge"
	BrowserOpera   = "opera"
	BrowserOther   = "other"
)

// Classify returns the device and browser family for a User-Agent string.
func Classify(userAgent string) (deviceType, browser string) {
	return DeviceType(userAgent), Browser(userAgent)
}

// DeviceType returns the coarse device family. Tablets are checked before
// phones because tablet agents usually also contain "Mobile".
func DeviceType(userAgent string) string {
	ua := strings.ToLower(userAgent)

	switch {
	case strings.Contains(ua, "ipad"),
		strings.Contains(ua, "tablet"),
		strings.Contains(ua, "kindle"):
		return DeviceTablet
	case strings.Contains(ua, "android") && !strings.Contains(ua, "mobile"):
		// Android without "Mobile" is the tablet form factor.
		return DeviceTablet
	case strings.Contains(ua, "mobi"),
		strings.Contains(ua, "iphone"),
		strings.Contains(ua, "android"),
		strings.Contains(ua, "windows phone"):
		return DeviceMobile
	default:
		return DeviceDesktop
	}
}

// Browser returns the major browser family. Order matters: Edge and Opera
// embed "Chrome" in their agents, and Chrome embeds "Safari".
func Browser(userAgent string) string {
	ua := strings.ToLower(userAgent)

	switch {
	case strings.Contains(ua, "edg/"), strings.Contains(ua, "edge"):
		return BrowserEdge
	case strings.Contains(ua, "opr/"), strings.Contains(ua, "opera"):
		return BrowserOpera
	case strings.Contains(ua, "firefox"):
		return BrowserFirefox
	case strings.Contains(ua, "chrome"), strings.Contains(ua, "crios"):
		return BrowserChrome
	case strings.Contains(ua, "safari"):
		return BrowserSafari
	default:
		return BrowserOther
	}
}
