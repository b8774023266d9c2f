// Package transcriber implements the Transcriber stage: fetch a YouTube
// transcript and video metadata, then forward to the summary queue.
package transcriber

import (
	"net/url"
	"strings"
)

// ExtractVideoID pulls the 11-character video id out of any of the common
// YouTube URL shapes: watch?v=, youtu.be/<id>, shorts/<id>, embed/<id>.
func ExtractVideoID(rawURL string) (string, bool) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", false
	}

	host := strings.ToLower(u.Host)
	switch {
	case strings.Contains(host, "youtu.be"):
		id := strings.Trim(u.Path, "/")
		return id, id != ""
	case strings.Contains(host, "youtube.com"):
		if v := u.Query().Get("v"); v != "" {
			return v, true
		}
		for _, prefix := range []string{"/shorts/", "/embed/", "/live/"} {
			if strings.HasPrefix(u.Path, prefix) {
				id := strings.TrimPrefix(u.Path, prefix)
				id = strings.SplitN(id, "/", 2)[0]
				return id, id != ""
			}
		}
		return "", false
	default:
		return "", false
	}
}

// CanonicalWatchURL builds the canonical watch URL the transcriber stores
// once the video id is known; the submitted URL shape is discarded.
func CanonicalWatchURL(videoID string) string {
	return "https://www.youtube.com/watch?v=" + videoID
}
