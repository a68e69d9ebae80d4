package storage

import (
	"crypto/sha256"
	"fmt"
	"net/url"
	"strings"
)

const DefaultBucket = "linkmark-snapshots"

// SnapshotKey is the object key for a highlighted export of pageURL:
// host/path_<hash>.html, where the hash covers the full URL so query
// variants of one page don't overwrite each other.
func SnapshotKey(pageURL string) string {
	h := sha256.Sum256([]byte(pageURL))
	hashPrefix := fmt.Sprintf("%x", h[:4])

	u, err := url.Parse(pageURL)
	if err != nil || u.Host == "" {
		return fmt.Sprintf("unknown/%s_%s.html", sanitize(pageURL), hashPrefix)
	}

	path := strings.TrimSuffix(u.Path, "/")
	if path == "" {
		path = "/index"
	}

	return fmt.Sprintf("%s%s_%s.html", strings.ToLower(u.Host), path, hashPrefix)
}

func sanitize(s string) string {
	r := strings.NewReplacer("/", "_", ":", "_", "?", "_", "&", "_", "=", "_")
	return r.Replace(s)
}
