package parser

import "strings"

// IPLabels maps the row labels of the browserleaks IP page to record keys.
var IPLabels = map[string]string{
	"IP Address":                "ip",
	"Hostname":                  "hostname",
	"Country":                   "country",
	"State/Region":              "state_region",
	"City":                      "city",
	"ISP":                       "isp",
	"Organization":              "organization",
	"Network":                   "network",
	"Usage Type":                "usage_type",
	"Timezone":                  "timezone",
	"Local Time":                "local_time",
	"Coordinates":               "coordinates",
	"IPv6 Address":              "ipv6",
	"Local IP Address":          "webrtc_local_ip",
	"Public IP Address":         "webrtc_public_ip",
	"Request":                   "request",
	"User-Agent":                "user-agent",
	"Accept":                    "accept",
	"Accept-Language":           "accept-language",
	"Accept-Encoding":           "accept-encoding",
	"Referer":                   "referer",
	"Upgrade-Insecure-Requests": "upgrade-insecure-requests",
	"Sec-Fetch-Dest":            "sec-fetch-dest",
	"Sec-Fetch-Mode":            "sec-fetch-mode",
	"Sec-Fetch-Site":            "sec-fetch-site",
	"Sec-Fetch-User":            "sec-fetch-user",
	"Priority":                  "priority",
	"TE":                        "te",
	"Host":                      "host",
	"Relays":                    "relays",
}

// LabelSets lists the mapping tables a target can name in its config.
var LabelSets = map[string]map[string]string{
	"ip": IPLabels,
}

// Normalizer turns a row label into a record key.
type Normalizer struct {
	Mapping map[string]string
	// ReplaceSeparators also turns '/' and '-' into '_' in the fallback.
	ReplaceSeparators bool
}

// Normalize returns the mapped key for label, or the generic snake_case form.
func (n Normalizer) Normalize(label string) string {
	label = strings.TrimSpace(label)
	if key, ok := n.Mapping[label]; ok {
		return key
	}
	key := strings.ReplaceAll(strings.ToLower(label), " ", "_")
	if n.ReplaceSeparators {
		key = strings.NewReplacer("/", "_", "-", "_").Replace(key)
	}
	return key
}

// Normalize maps label through mapping, falling back to lowercase with
// spaces replaced by underscores.
func Normalize(label string, mapping map[string]string) string {
	return Normalizer{Mapping: mapping}.Normalize(label)
}
