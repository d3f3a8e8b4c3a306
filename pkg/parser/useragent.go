package parser

import (
	"fmt"
	"strings"

	"github.com/avct/uasurfer"
)

// DescribeUserAgent condenses a User-Agent header into "<browser> <major> on <os>".
// Empty input gives an empty string.
func DescribeUserAgent(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return ""
	}
	ua := uasurfer.Parse(raw)
	browser := strings.TrimPrefix(ua.Browser.Name.String(), "Browser")
	os := strings.TrimPrefix(ua.OS.Name.String(), "OS")
	if ua.Browser.Version.Major > 0 {
		browser = fmt.Sprintf("%s %d", browser, ua.Browser.Version.Major)
	}
	return browser + " on " + os
}
