package model

import "time"

// Default dataroom provisioned for every new user.
const (
	DefaultDataroomName        = "My Dataroom"
	DefaultDataroomDescription = "Default dataroom for imported files"
)

// Dataroom is a named container of imported files owned by one user.
type Dataroom struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Name        string    `json:"name"`
	Description *string   `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	// FileCount counts only files in FileStatusImported.
	FileCount int `json:"file_count"`
}

// DataroomUpdate carries a partial update. Nil Name leaves the name as is;
// DescriptionSet with a nil Description clears it.
type DataroomUpdate struct {
	Name           *string
	Description    *string
	DescriptionSet bool
}
