package feed

import "regexp"

var versionSuffix = regexp.MustCompile(`v\d+$`)

// StripVersion removes a trailing arXiv version suffix ("v2") so ids can
// be compared across revisions.
func StripVersion(arxivID string) string {
	return versionSuffix.ReplaceAllString(arxivID, "")
}
