// Package dto provides Data Transfer Objects for API requests and responses.
package dto

import (
	"bytes"
	"encoding/json"

	"github.com/dataroom/dataroom/internal/model"
)

// ErrorResponse represents an API error.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// MessageResponse acknowledges an operation with no resource to return.
type MessageResponse struct {
	Message string `json:"message"`
}

// OptionalString tracks whether a JSON field was present, so that an
// explicit null can be told apart from an absent field.
type OptionalString struct {
	Present bool
	Value   *string
}

// UnmarshalJSON implements json.Unmarshaler. It only runs for present fields.
func (o *OptionalString) UnmarshalJSON(data []byte) error {
	o.Present = true

	if string(bytes.TrimSpace(data)) == "null" {
		o.Value = nil
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	o.Value = &s
	return nil
}

// MeResponse is the body of GET /auth/me.
type MeResponse struct {
	User            *model.User `json:"user"`
	GoogleConnected bool        `json:"google_connected"`
}

// AuthDebugResponse is the body of GET /auth/debug.
type AuthDebugResponse struct {
	ClientID    string `json:"client_id"`
	RedirectURI string `json:"redirect_uri"`
	HasSecret   bool   `json:"has_secret"`
}

// CreateDataroomRequest represents the request body for creating a dataroom.
type CreateDataroomRequest struct {
	Name        string         `json:"name"`
	Description OptionalString `json:"description"`
}

// UpdateDataroomRequest represents the request body for updating a dataroom.
type UpdateDataroomRequest struct {
	Name        *string        `json:"name"`
	Description OptionalString `json:"description"`
}

// DataroomResponse is a dataroom together with its imported files.
type DataroomResponse struct {
	*model.Dataroom
	Files []*model.File `json:"files"`
}

// DataroomListResponse is the body of GET /api/datarooms.
type DataroomListResponse struct {
	Datarooms []*model.Dataroom `json:"datarooms"`
}

// FileListResponse is a list of imported files.
type FileListResponse struct {
	Files []*model.File `json:"files"`
}

// ImportFileRequest represents the request body for importing a Drive file.
type ImportFileRequest struct {
	DataroomID   string `json:"dataroom_id"`
	GoogleFileID string `json:"google_file_id"`
}

// ToDataroomDetail builds a detail response. A nil file list renders as [].
func ToDataroomDetail(room *model.Dataroom, files []*model.File) *DataroomResponse {
	if files == nil {
		files = []*model.File{}
	}
	return &DataroomResponse{Dataroom: room, Files: files}
}
