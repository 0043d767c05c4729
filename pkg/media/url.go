package media

import (
	"net/url"
	"strings"
)

// ResolveURL turns a stored media reference into a client URL.
// Absolute references are returned unchanged; relative ones are placed under
// mediaURL and, when baseURL is known, made absolute. If that fails the
// relative media path is returned. An empty reference yields nil.
func ResolveURL(baseURL, mediaURL, ref string) *string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil
	}
	if isAbsoluteURL(ref) {
		return &ref
	}
	rel := joinMediaPath(mediaURL, ref)
	if baseURL == "" {
		return &rel
	}
	base, err := url.Parse(baseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return &rel
	}
	target, err := url.Parse(rel)
	if err != nil {
		return &rel
	}
	abs := base.ResolveReference(target).String()
	return &abs
}

func joinMediaPath(mediaURL, ref string) string {
	if strings.HasPrefix(ref, "/") {
		return ref
	}
	if mediaURL == "" {
		mediaURL = "/media/"
	}
	if !strings.HasSuffix(mediaURL, "/") {
		mediaURL += "/"
	}
	return mediaURL + ref
}

func isAbsoluteURL(ref string) bool {
	u, err := url.Parse(ref)
	return err == nil && u.Scheme != "" && u.Host != ""
}
