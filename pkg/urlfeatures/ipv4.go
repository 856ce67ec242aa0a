package urlfeatures

import (
	"fmt"
	"strconv"
	"strings"
)

// canonicalIPv4 rewrites a host written in any of the IPv4 forms browsers
// accept into dotted-decimal form: one to four parts, each decimal, octal
// (leading 0) or hex (0x), with an optional trailing dot. So 0x7f.1,
// 3232235777 and 192.168.1.1. become 127.0.0.1, 192.168.1.1 and 192.168.1.1.
//
// numeric reports whether the last label is a number, which is what makes a
// browser treat the host as an address at all. A numeric host that fails to
// parse makes the whole URL invalid there.
func canonicalIPv4(host string) (addr string, numeric, ok bool) {
	parts := strings.Split(strings.ToLower(host), ".")
	if len(parts) > 1 && parts[len(parts)-1] == "" {
		parts = parts[:len(parts)-1]
	}
	if !isIPv4Number(parts[len(parts)-1]) {
		return "", false, false
	}
	if len(parts) > 4 {
		return "", true, false
	}

	var ip uint64
	for i, p := range parts {
		n, valid := parseIPv4Part(p)
		if !valid {
			return "", true, false
		}
		if i < len(parts)-1 {
			if n > 255 {
				return "", true, false
			}
			ip |= n << (8 * (3 - i))
			continue
		}
		// The last part fills every byte the others left.
		if n >= 1<<(8*(5-len(parts))) {
			return "", true, false
		}
		ip |= n
	}
	return fmt.Sprintf("%d.%d.%d.%d", byte(ip>>24), byte(ip>>16), byte(ip>>8), byte(ip)), true, true
}

// isIPv4Number reports whether s looks like a number to a browser: plain
// decimal digits, or 0x followed by hex digits.
func isIPv4Number(s string) bool {
	if s == "" {
		return false
	}
	digits := func(s, set string) bool {
		for _, r := range s {
			if !strings.ContainsRune(set, r) {
				return false
			}
		}
		return true
	}
	if digits(s, "0123456789") {
		return true
	}
	return strings.HasPrefix(s, "0x") && digits(s[2:], "0123456789abcdef")
}

func parseIPv4Part(p string) (uint64, bool) {
	if p == "" {
		return 0, false
	}
	base := 10
	switch {
	case strings.HasPrefix(p, "0x"):
		base, p = 16, p[2:]
	case len(p) > 1 && p[0] == '0':
		base, p = 8, p[1:]
	}
	if p == "" {
		return 0, true
	}
	n, err := strconv.ParseUint(p, base, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}
