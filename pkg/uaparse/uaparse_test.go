package uaparse

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		ua      string
		device  string
		browser string
	}{
		{
			name:    "desktop firefox",
			ua:      "Mozilla/5.0 (X11; Linux x86_64; rv:127.0) Gecko/20100101 Firefox/127.0",
			device:  DeviceDesktop,
			browser: BrowserFirefox,
		},
		{
			name:    "desktop chrome",
			ua:      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36",
			device:  DeviceDesktop,
			browser: BrowserChrome,
		},
		{
			name:    "desktop edge embeds chrome",
			ua:      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36 Edg/126.0.0.0",
			device:  DeviceDesktop,
			browser: BrowserEdge,
		},
		{
			name:    "desktop opera embeds chrome",
			ua:      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36 OPR/112.0.0.0",
			device:  DeviceDesktop,
			browser: BrowserOpera,
		},
		{
			name:    "iphone safari",
			ua:      "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1",
			device:  DeviceMobile,
			browser: BrowserSafari,
		},
		{
			name:    "iphone chrome",
			ua:      "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) CriOS/126.0.0.0 Mobile/15E148 Safari/604.1",
			device:  DeviceMobile,
			browser: BrowserChrome,
		},
		{
			name:    "android phone",
			ua:      "Mozilla/5.0 (Linux; Android 14; Pixel 8) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Mobile Safari/537.36",
			device:  DeviceMobile,
			browser: BrowserChrome,
		},
		{
			name:    "android tablet has no Mobile token",
			ua:      "Mozilla/5.0 (Linux; Android 14; SM-X910) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36",
			device:  DeviceTablet,
			browser: BrowserChrome,
		},
		{
			name:    "ipad",
			ua:      "Mozilla/5.0 (iPad; CPU OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1",
			device:  DeviceTablet,
			browser: BrowserSafari,
		},
		{
			name:    "curl",
			ua:      "curl/8.6.0",
			device:  DeviceDesktop,
			browser: BrowserOther,
		},
		{
			name:    "empty",
			ua:      "",
			device:  DeviceDesktop,
			browser: BrowserOther,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			device, browser := Classify(tc.ua)
			require.Equal(t, tc.device, device)
			require.Equal(t, tc.browser, browser)
		})
	}
}
