package client

import (
	"strconv"
	"time"
)

// User is the signed-in account.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      *string   `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// DisplayName returns the name, falling back to the email.
func (u *User) DisplayName() string {
	if u.Name != nil && *u.Name != "" {
		return *u.Name
	}
	return u.Email
}

// Me is the /auth/me payload.
type Me struct {
	User            *User `json:"user"`
	GoogleConnected bool  `json:"google_connected"`
}

// Dataroom is a named collection of imported files. Files is only set by
// GetDataroom.
type Dataroom struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Name        string    `json:"name"`
	Description *string   `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	FileCount   int       `json:"file_count"`
	Files       []File    `json:"files,omitempty"`
}

// FileStatus is the lifecycle state of an imported file.
type FileStatus string

const (
	FileStatusImported FileStatus = "imported"
	FileStatusDeleted  FileStatus = "deleted"
	FileStatusFailed   FileStatus = "failed"
)

// File is a file imported into a dataroom.
type File struct {
	ID           string     `json:"id"`
	DataroomID   string     `json:"dataroom_id"`
	GoogleFileID *string    `json:"google_file_id"`
	Name         string     `json:"name"`
	MimeType     *string    `json:"mime_type"`
	SizeBytes    *int64     `json:"size_bytes"`
	OriginalURL  *string    `json:"original_url"`
	Status       FileStatus `json:"status"`
	ImportedAt   time.Time  `json:"imported_at"`
}

// DriveFile is an entry of the caller's Google Drive listing.
type DriveFile struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	MimeType     *string `json:"mime_type"`
	Size         *string `json:"size"`
	ModifiedTime *string `json:"modified_time"`
	WebViewLink  *string `json:"web_view_link"`
	IconLink     *string `json:"icon_link"`
}

// DriveFilePage is one page of a Drive listing.
type DriveFilePage struct {
	Files         []DriveFile `json:"files"`
	NextPageToken *string     `json:"next_page_token"`
}

// FormatFileSize renders a decimal byte count as B, KB, MB or GB. Empty or
// unparseable input yields "".
func FormatFileSize(sizeStr string) string {
	if sizeStr == "" {
		return ""
	}
	bytes, err := strconv.ParseInt(sizeStr, 10, 64)
	if err != nil {
		return ""
	}

	const (
		kb = 1024
		mb = kb * 1024
		gb = mb * 1024
	)
	switch {
	case bytes < kb:
		return strconv.FormatInt(bytes, 10) + " B"
	case bytes < mb:
		return strconv.FormatFloat(float64(bytes)/kb, 'f', 1, 64) + " KB"
	case bytes < gb:
		return strconv.FormatFloat(float64(bytes)/mb, 'f', 1, 64) + " MB"
	default:
		return strconv.FormatFloat(float64(bytes)/gb, 'f', 1, 64) + " GB"
	}
}

// FormatBytes is FormatFileSize for a known byte count.
func FormatBytes(n int64) string {
	return FormatFileSize(strconv.FormatInt(n, 10))
}
