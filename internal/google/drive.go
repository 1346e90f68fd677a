package google

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/dataroom/dataroom/internal/model"
)

const (
	folderMimeType = "application/vnd.google-apps.folder"
	listFields     = "files(id,name,mimeType,modifiedTime,size,webViewLink,iconLink),nextPageToken"
	metadataFields = "id,name,mimeType,size,webViewLink"
)

// ListOptions narrows a Drive listing.
type ListOptions struct {
	PageSize  int
	PageToken string
	// Query matches file names containing the text.
	Query string
	// FolderID restricts the listing to direct children of a folder.
	FolderID string
}

type driveFile struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	MimeType     *string `json:"mimeType"`
	Size         *string `json:"size"`
	ModifiedTime *string `json:"modifiedTime"`
	WebViewLink  *string `json:"webViewLink"`
	IconLink     *string `json:"iconLink"`
}

type driveFileList struct {
	Files         []driveFile `json:"files"`
	NextPageToken string      `json:"nextPageToken"`
}

// ListFiles returns one page of non-folder files, newest first.
func (c *Client) ListFiles(ctx context.Context, accessToken string, opts ListOptions) (*model.DriveFilePage, error) {
	params := url.Values{}
	params.Set("pageSize", strconv.Itoa(opts.PageSize))
	params.Set("fields", listFields)
	params.Set("orderBy", "modifiedTime desc")
	params.Set("q", BuildQuery(opts.Query, opts.FolderID))
	if opts.PageToken != "" {
		params.Set("pageToken", opts.PageToken)
	}
	endpoint := c.cfg.DriveURL + "/files?" + params.Encode()

	resp, err := c.do(ctx, c.http, func() (*http.Request, error) {
		return c.newAuthorizedRequest(ctx, endpoint, accessToken)
	})
	if err != nil {
		return nil, wrap(CodeDriveListFailed, "Failed to list Drive files", err)
	}
	defer resp.Body.Close()

	var list driveFileList
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		return nil, wrap(CodeDriveListFailed, "Failed to decode Drive listing", err)
	}

	page := &model.DriveFilePage{Files: make([]model.DriveFile, 0, len(list.Files))}
	for _, f := range list.Files {
		page.Files = append(page.Files, model.DriveFile{
			ID:           f.ID,
			Name:         f.Name,
			MimeType:     f.MimeType,
			Size:         f.Size,
			ModifiedTime: f.ModifiedTime,
			WebViewLink:  f.WebViewLink,
			IconLink:     f.IconLink,
		})
	}
	if list.NextPageToken != "" {
		next := list.NextPageToken
		page.NextPageToken = &next
	}
	return page, nil
}

// BuildQuery builds the Drive search expression for a listing.
func BuildQuery(nameContains, folderID string) string {
	parts := []string{"mimeType != '" + folderMimeType + "'"}
	if folderID != "" {
		parts = append(parts, "'"+escapeQueryValue(folderID)+"' in parents")
	}
	if nameContains != "" {
		parts = append(parts, "name contains '"+escapeQueryValue(nameContains)+"'")
	}
	return strings.Join(parts, " and ")
}

var queryEscaper = strings.NewReplacer(`\`, `\\`, `'`, `\'`)

func escapeQueryValue(s string) string {
	return queryEscaper.Replace(s)
}

// GetFileMetadata fetches what an import needs to know about a file.
func (c *Client) GetFileMetadata(ctx context.Context, accessToken, fileID string) (*model.DriveFileMetadata, error) {
	endpoint := c.cfg.DriveURL + "/files/" + url.PathEscape(fileID) + "?fields=" + url.QueryEscape(metadataFields)

	resp, err := c.do(ctx, c.http, func() (*http.Request, error) {
		return c.newAuthorizedRequest(ctx, endpoint, accessToken)
	})
	if err != nil {
		return nil, wrap(CodeDriveMetadataFailed, "Failed to get file metadata", err)
	}
	defer resp.Body.Close()

	var f driveFile
	if err := json.NewDecoder(resp.Body).Decode(&f); err != nil {
		return nil, wrap(CodeDriveMetadataFailed, "Failed to decode file metadata", err)
	}

	meta := &model.DriveFileMetadata{
		ID:          f.ID,
		Name:        f.Name,
		MimeType:    "application/octet-stream",
		WebViewLink: f.WebViewLink,
	}
	if meta.ID == "" {
		meta.ID = fileID
	}
	if f.MimeType != nil && *f.MimeType != "" {
		meta.MimeType = *f.MimeType
	}
	// Drive reports size as a decimal string and omits it for Workspace files.
	if f.Size != nil {
		if n, err := strconv.ParseInt(*f.Size, 10, 64); err == nil {
			meta.Size = &n
		}
	}
	return meta, nil
}

// Download streams a file's content. Workspace documents are exported.
// The caller must close the returned reader.
func (c *Client) Download(ctx context.Context, accessToken, fileID, mimeType string) (io.ReadCloser, error) {
	var endpoint string
	if exportMime, ok := model.ExportMimeType(mimeType); ok {
		endpoint = c.cfg.DriveURL + "/files/" + url.PathEscape(fileID) + "/export?mimeType=" + url.QueryEscape(exportMime)
	} else {
		endpoint = c.cfg.DriveURL + "/files/" + url.PathEscape(fileID) + "?alt=media"
	}

	resp, err := c.do(ctx, c.download, func() (*http.Request, error) {
		return c.newAuthorizedRequest(ctx, endpoint, accessToken)
	})
	if err != nil {
		return nil, wrap(CodeDriveDownloadFailed, "Failed to download file", err)
	}
	return resp.Body, nil
}
