package backup

import "strings"

// Category is the top-level folder a file is organized under. It is
// derived per-upload from the declared source tag and MIME type, and
// never persisted.
type Category string

const (
	CategoryPhotos    Category = "Photos"
	CategoryVideos    Category = "Videos"
	CategoryOther     Category = "Other"
	CategoryWhatsApp  Category = "WhatsApp"
	CategoryWeChat    Category = "WeChat"
	CategoryDownloads Category = "Downloads"
)

// sourceFolders maps source tags to dedicated folders that bypass
// MIME-based classification. The "camera" tag is deliberately absent:
// camera uploads classify by MIME type like everything else.
var sourceFolders = map[string]Category{
	"whatsapp":  CategoryWhatsApp,
	"wechat":    CategoryWeChat,
	"downloads": CategoryDownloads,
}

// CategoryFor selects the destination folder for an upload. A source tag
// with a dedicated folder wins regardless of MIME type; otherwise the
// MIME prefix decides.
func CategoryFor(sourceTag, mimeType string) Category {
	if folder, ok := sourceFolders[strings.ToLower(sourceTag)]; ok {
		return folder
	}
	switch {
	case strings.HasPrefix(mimeType, "image/"):
		return CategoryPhotos
	case strings.HasPrefix(mimeType, "video/"):
		return CategoryVideos
	default:
		return CategoryOther
	}
}
