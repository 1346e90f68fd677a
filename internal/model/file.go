package model

import "time"

// FileStatus is the lifecycle state of an imported file.
type FileStatus string

const (
	FileStatusImported FileStatus = "imported"
	FileStatusDeleted  FileStatus = "deleted"
	FileStatusFailed   FileStatus = "failed"
)

// IsValid checks if the status is one of the known values.
func (s FileStatus) IsValid() bool {
	switch s {
	case FileStatusImported, FileStatusDeleted, FileStatusFailed:
		return true
	}
	return false
}

// File is a copy of a Google Drive file stored inside a dataroom.
type File struct {
	ID           string     `json:"id"`
	DataroomID   string     `json:"dataroom_id"`
	UserID       string     `json:"-"`
	GoogleFileID *string    `json:"google_file_id"`
	Name         string     `json:"name"`
	MimeType     *string    `json:"mime_type"`
	SizeBytes    *int64     `json:"size_bytes"`
	StoragePath  string     `json:"-"`
	OriginalURL  *string    `json:"original_url"`
	Status       FileStatus `json:"status"`
	ImportedAt   time.Time  `json:"imported_at"`
}

// IsVisible returns true if the file can be read, downloaded or deleted.
func (f *File) IsVisible() bool {
	return f.Status != FileStatusDeleted
}

// ContentType returns the MIME type of the stored bytes. Google Workspace
// documents are stored in their export format.
func (f *File) ContentType() string {
	if f.MimeType == nil || *f.MimeType == "" {
		return "application/octet-stream"
	}
	if exported, ok := ExportMimeType(*f.MimeType); ok {
		return exported
	}
	return *f.MimeType
}

var exportMimeTypes = map[string]string{
	"application/vnd.google-apps.document":     "application/pdf",
	"application/vnd.google-apps.spreadsheet":  "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	"application/vnd.google-apps.presentation": "application/pdf",
	"application/vnd.google-apps.drawing":      "application/pdf",
}

// ExportMimeType returns the format a Google Workspace type is exported to.
// ok is false for regular files that download as-is.
func ExportMimeType(mimeType string) (string, bool) {
	exported, ok := exportMimeTypes[mimeType]
	return exported, ok
}

var mimeExtensions = map[string]string{
	"application/pdf":                          ".pdf",
	"application/vnd.google-apps.document":     ".pdf",
	"application/vnd.google-apps.spreadsheet":  ".xlsx",
	"application/vnd.google-apps.presentation": ".pdf",
	"application/vnd.google-apps.drawing":      ".pdf",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document":   ".docx",
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":         ".xlsx",
	"application/vnd.openxmlformats-officedocument.presentationml.presentation": ".pptx",
	"text/plain":       ".txt",
	"text/html":        ".html",
	"text/csv":         ".csv",
	"image/jpeg":       ".jpg",
	"image/png":        ".png",
	"image/gif":        ".gif",
	"image/webp":       ".webp",
	"application/json": ".json",
	"application/xml":  ".xml",
}

// ExtensionForMimeType returns the file extension used when storing content
// of the given Drive MIME type, or "" when unknown.
func ExtensionForMimeType(mimeType string) string {
	return mimeExtensions[mimeType]
}
