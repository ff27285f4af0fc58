package utils

import (
	"regexp"
	"strings"
)

var emailRegexp = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

func IsEmpty(s string) bool {
	return strings.TrimSpace(s) == ""
}

func IsEmail(s string) bool {
	return emailRegexp.MatchString(s)
}

// NormalizeWebsite prefixes a bare host with http://.
func NormalizeWebsite(site string) string {
	site = strings.TrimSpace(site)
	if site == "" {
		return ""
	}
	if strings.HasPrefix(site, "http://") || strings.HasPrefix(site, "https://") {
		return site
	}
	return "http://" + site
}
