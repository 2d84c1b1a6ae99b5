package discovery

import "strings"

// nonHTMLExtensions is the fixed list of path extensions treated as non-HTML
// and therefore never enqueued, even if in scope.
var nonHTMLExtensions = []string{
	".pdf",
	".doc", ".docx", ".xls", ".xlsx", ".ppt", ".pptx",
	".zip", ".tar", ".gz", ".tgz", ".rar", ".7z",
	".mp3", ".wav", ".ogg", ".flac", ".aac",
	".mp4", ".avi", ".mov", ".wmv", ".mkv", ".webm",
	".jpg", ".jpeg", ".png", ".gif", ".bmp", ".svg", ".webp", ".ico",
	".css", ".js", ".json", ".xml", ".txt",
	".exe", ".dmg", ".apk",
	".woff", ".woff2", ".ttf", ".eot",
}

// IsNonHTMLPath reports whether path ends in an extension known not to be
// an HTML page.
func IsNonHTMLPath(path string) bool {
	lower := strings.ToLower(path)
	for _, ext := range nonHTMLExtensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}
