package harvest

import (
	"net/url"
	"path"
	"strings"
)

// DefaultBlockedHosts are social, marketplace and encyclopedia hosts whose
// pages do not represent competing content.
var DefaultBlockedHosts = []string{
	"pinterest.com",
	"amazon.es",
	"amazon.com",
	"canva.com",
	"wikipedia.org",
	"play.google.com",
	"apps.apple.com",
	"itunes.apple.com",
	"twitter.com",
	"x.com",
	"facebook.com",
	"instagram.com",
	"tiktok.com",
}

// DefaultBlockedExtensions are document formats the harvester cannot read.
var DefaultBlockedExtensions = []string{"pdf", "doc", "docx", "ppt", "pptx", "xls", "xlsx"}

// Filter excludes URLs by host suffix or file extension.
type Filter struct {
	Hosts      []string
	Extensions []string
}

// DefaultFilter returns the standard block-list.
func DefaultFilter() Filter {
	return Filter{Hosts: DefaultBlockedHosts, Extensions: DefaultBlockedExtensions}
}

// Blocked reports whether raw matches a blocked host (exactly or as a
// subdomain) or ends in a blocked extension.
func (f Filter) Blocked(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	if host != "" {
		for _, h := range f.Hosts {
			if host == h || strings.HasSuffix(host, "."+h) {
				return true
			}
		}
	}
	ext := strings.TrimPrefix(strings.ToLower(path.Ext(u.Path)), ".")
	if ext != "" {
		for _, e := range f.Extensions {
			if ext == e {
				return true
			}
		}
	}
	return false
}

// Apply splits urls into kept and blocked, preserving order and dropping
// duplicates from kept.
func (f Filter) Apply(urls []string) ([]string, map[string]bool) {
	kept := make([]string, 0, len(urls))
	blocked := make(map[string]bool)
	seen := make(map[string]bool, len(urls))
	for _, u := range urls {
		if f.Blocked(u) {
			blocked[u] = true
			continue
		}
		if seen[u] {
			continue
		}
		seen[u] = true
		kept = append(kept, u)
	}
	return kept, blocked
}
