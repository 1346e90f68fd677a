package model

// DriveFile is a Google Drive listing entry normalized to snake_case keys.
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

// DriveFileMetadata is what an import needs to know about a Drive file.
type DriveFileMetadata struct {
	ID          string
	Name        string
	MimeType    string
	Size        *int64
	WebViewLink *string
}
