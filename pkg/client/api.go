package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strconv"
)

// Me returns the signed-in user and whether Google is connected.
func (c *Client) Me(ctx context.Context) (*Me, error) {
	var me Me
	if err := c.doJSON(ctx, http.MethodGet, "/auth/me", nil, nil, &me); err != nil {
		return nil, err
	}
	return &me, nil
}

// Logout revokes the session. The stored token is cleared even when the
// call fails.
func (c *Client) Logout(ctx context.Context) error {
	err := c.doJSON(ctx, http.MethodPost, "/auth/logout", nil, nil, nil)
	if clearErr := c.tokens.ClearToken(); clearErr != nil {
		return errors.Join(err, fmt.Errorf("clear token: %w", clearErr))
	}
	return err
}

// GoogleAuthURL is where a browser starts Google sign-in.
func (c *Client) GoogleAuthURL() string {
	return c.baseURL + "/auth/google/start"
}

// ListDatarooms returns the caller's datarooms, newest first.
func (c *Client) ListDatarooms(ctx context.Context) ([]Dataroom, error) {
	var out struct {
		Datarooms []Dataroom `json:"datarooms"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/api/datarooms", nil, nil, &out); err != nil {
		return nil, err
	}
	return out.Datarooms, nil
}

// GetDataroom returns a dataroom together with its imported files.
func (c *Client) GetDataroom(ctx context.Context, id string) (*Dataroom, error) {
	var room Dataroom
	if err := c.doJSON(ctx, http.MethodGet, "/api/datarooms/"+url.PathEscape(id), nil, nil, &room); err != nil {
		return nil, err
	}
	return &room, nil
}

// CreateDataroom creates a dataroom. A nil description is omitted.
func (c *Client) CreateDataroom(ctx context.Context, name string, description *string) (*Dataroom, error) {
	body := map[string]any{"name": name}
	if description != nil {
		body["description"] = *description
	}

	var room Dataroom
	if err := c.doJSON(ctx, http.MethodPost, "/api/datarooms", nil, body, &room); err != nil {
		return nil, err
	}
	return &room, nil
}

// DataroomUpdate is a partial update; nil fields are left unchanged.
type DataroomUpdate struct {
	Name        *string
	Description *string
}

// UpdateDataroom applies a partial update.
func (c *Client) UpdateDataroom(ctx context.Context, id string, upd DataroomUpdate) (*Dataroom, error) {
	body := map[string]any{}
	if upd.Name != nil {
		body["name"] = *upd.Name
	}
	if upd.Description != nil {
		body["description"] = *upd.Description
	}

	var room Dataroom
	if err := c.doJSON(ctx, http.MethodPut, "/api/datarooms/"+url.PathEscape(id), nil, body, &room); err != nil {
		return nil, err
	}
	return &room, nil
}

// DeleteDataroom deletes a dataroom and its files.
func (c *Client) DeleteDataroom(ctx context.Context, id string) error {
	return c.doJSON(ctx, http.MethodDelete, "/api/datarooms/"+url.PathEscape(id), nil, nil, nil)
}

// ListDataroomFiles returns the imported files of a dataroom.
func (c *Client) ListDataroomFiles(ctx context.Context, id string) ([]File, error) {
	var out struct {
		Files []File `json:"files"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/api/datarooms/"+url.PathEscape(id)+"/files", nil, nil, &out); err != nil {
		return nil, err
	}
	return out.Files, nil
}

// DriveListParams selects a page of the Drive listing. Zero values are
// omitted from the request.
type DriveListParams struct {
	PageSize  int
	PageToken string
	Query     string
}

// ListDriveFiles returns one page of the caller's Drive files.
func (c *Client) ListDriveFiles(ctx context.Context, params DriveListParams) (*DriveFilePage, error) {
	query := url.Values{}
	if params.PageSize > 0 {
		query.Set("page_size", strconv.Itoa(params.PageSize))
	}
	if params.PageToken != "" {
		query.Set("page_token", params.PageToken)
	}
	if params.Query != "" {
		query.Set("q", params.Query)
	}

	var page DriveFilePage
	if err := c.doJSON(ctx, http.MethodGet, "/api/drive/files", query, nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// ImportFile copies a Drive file into a dataroom.
func (c *Client) ImportFile(ctx context.Context, dataroomID, googleFileID string) (*File, error) {
	body := map[string]string{
		"dataroom_id":    dataroomID,
		"google_file_id": googleFileID,
	}

	var f File
	if err := c.doJSON(ctx, http.MethodPost, "/api/files/import", nil, body, &f); err != nil {
		return nil, err
	}
	return &f, nil
}

// GetFile returns file metadata.
func (c *Client) GetFile(ctx context.Context, id string) (*File, error) {
	var f File
	if err := c.doJSON(ctx, http.MethodGet, "/api/files/"+url.PathEscape(id), nil, nil, &f); err != nil {
		return nil, err
	}
	return &f, nil
}

// DeleteFile deletes a file.
func (c *Client) DeleteFile(ctx context.Context, id string) error {
	return c.doJSON(ctx, http.MethodDelete, "/api/files/"+url.PathEscape(id), nil, nil, nil)
}

// Download is an open file download. The caller must close Body.
type Download struct {
	Filename    string
	ContentType string
	// Size is -1 when the server did not send a length.
	Size int64
	Body io.ReadCloser
}

// OpenFile starts downloading a file's content.
func (c *Client) OpenFile(ctx context.Context, id string) (*Download, error) {
	resp, err := c.send(ctx, http.MethodGet, "/api/files/"+url.PathEscape(id)+"/download", nil, nil)
	if err != nil {
		return nil, err
	}

	d := &Download{
		ContentType: resp.Header.Get("Content-Type"),
		Size:        resp.ContentLength,
		Body:        resp.Body,
	}
	if _, params, err := mime.ParseMediaType(resp.Header.Get("Content-Disposition")); err == nil {
		d.Filename = params["filename"]
	}
	return d, nil
}

// DownloadResult describes a completed download.
type DownloadResult struct {
	Filename    string
	ContentType string
	Size        int64
	Written     int64
}

// DownloadFile streams a file's content into w.
func (c *Client) DownloadFile(ctx context.Context, id string, w io.Writer) (*DownloadResult, error) {
	d, err := c.OpenFile(ctx, id)
	if err != nil {
		return nil, err
	}
	defer d.Body.Close()

	n, err := io.Copy(w, d.Body)
	result := &DownloadResult{
		Filename:    d.Filename,
		ContentType: d.ContentType,
		Size:        d.Size,
		Written:     n,
	}
	if err != nil {
		return result, fmt.Errorf("download %s: %w", id, err)
	}
	return result, nil
}
