// Package urlfeatures extracts lexical risk signals from raw URL strings.
//
// Extraction works on the characters the user typed. Nothing is fetched,
// decoded or normalised, and every input string yields a record:
//
//	f := urlfeatures.Extract("http://192.168.0.1/login")
//	f.IsIPAddress // true
//	f.HasHTTPS    // false
//
// Only IPv4 hosts are recognised as IP hosts: dotted quads as typed, plus
// the hex, octal, shortened and single-number forms browsers rewrite into
// dotted quads. IPv6 literals and internationalised domains are not handled.
package urlfeatures

import (
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"
)

// dottedQuad matches four groups of 1–3 digits separated by dots.
// Octet ranges are not validated: 999.999.999.999 matches.
var dottedQuad = regexp.MustCompile(`^(?:[0-9]{1,3}\.){3}[0-9]{1,3}$`)

const httpsPrefix = "https://"

// URLFeatures is the lexical fingerprint of a single URL. All fields are
// pure functions of URL.
type URLFeatures struct {
	URL         string `json:"url"`
	Length      int    `json:"length"`
	HasAtSymbol bool   `json:"hasAtSymbol"`
	HasHTTPS    bool   `json:"hasHttps"`
	DotCount    int    `json:"dotCount"`
	IsIPAddress bool   `json:"isIPAddress"`
}

// Extract builds the URLFeatures for raw. It never fails.
func Extract(raw string) URLFeatures {
	return URLFeatures{
		URL:         raw,
		Length:      utf8.RuneCountInString(raw),
		HasAtSymbol: strings.Contains(raw, "@"),
		HasHTTPS:    strings.HasPrefix(strings.ToLower(raw), httpsPrefix),
		DotCount:    strings.Count(raw, "."),
		IsIPAddress: isIPHost(raw),
	}
}

// IsDottedQuad reports whether s is an IPv4-looking dotted quad.
func IsDottedQuad(s string) bool {
	return dottedQuad.MatchString(s)
}

// Host returns the hostname Extract resolved for IP detection, or "" when
// the URL could not be parsed. Numeric IPv4 forms are shown dotted.
func (f URLFeatures) Host() string {
	host, err := resolveHost(f.URL)
	if err != nil {
		return ""
	}
	if IsDottedQuad(host) {
		return host
	}
	if addr, _, ok := canonicalIPv4(host); ok {
		return addr
	}
	return host
}

// isIPHost tests the parsed hostname, or the whole raw string when parsing
// fails. The fallback can misclassify inputs with parse-breaking characters.
// Dotted quads are taken as typed, so out-of-range octets still match.
func isIPHost(raw string) bool {
	host, err := resolveHost(raw)
	if err != nil {
		return IsDottedQuad(raw)
	}
	if IsDottedQuad(host) {
		return true
	}
	_, numeric, ok := canonicalIPv4(host)
	switch {
	case ok:
		return true
	case numeric:
		// A browser rejects this URL outright, so test the raw string.
		return IsDottedQuad(raw)
	default:
		return false
	}
}

// resolveHost parses raw as a URL, prepending http:// when it does not
// already start with "http".
func resolveHost(raw string) (string, error) {
	candidate := raw
	if !strings.HasPrefix(raw, "http") {
		candidate = "http://" + raw
	}
	u, err := url.Parse(candidate)
	if err != nil {
		return "", err
	}
	return u.Hostname(), nil
}
