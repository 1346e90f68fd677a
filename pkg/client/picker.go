package client

import (
	"context"
	"errors"
	"sync"
	"time"
)

// Picker defaults.
const (
	PickerPageSize        = 20
	DefaultSearchDebounce = 300 * time.Millisecond
)

// Messages shown by the picker.
const (
	MsgDriveReconnect  = "Your Google connection expired. Please reconnect your account."
	MsgDriveLoadFailed = "Failed to load files from Google Drive"
	MsgAlreadyImported = "This file has already been imported"
	MsgImportReconnect = "Your Google connection expired. Please reconnect."
	MsgImportFailed    = "Failed to import file"
)

// PickerState is a snapshot of the picker.
type PickerState struct {
	Files         []DriveFile
	Loading       bool
	LoadingMore   bool
	Error         string
	Query         string
	NextPageToken string
	ImportingID   string
	Imported      map[string]bool
	ImportError   string
}

// HasMore reports whether another page can be loaded.
func (s PickerState) HasMore() bool {
	return s.NextPageToken != ""
}

// Picker browses the caller's Drive and imports files into one dataroom.
// Load results that were superseded by a newer Load are discarded, so the
// listing always reflects the latest query. It is safe for concurrent use.
type Picker struct {
	client     *Client
	dataroomID string
	debounce   time.Duration
	onImported func(*File)
	onChange   func(PickerState)

	mu    sync.Mutex
	state PickerState
	gen   uint64
	timer *time.Timer
}

// PickerOption configures a Picker.
type PickerOption func(*Picker)

// WithSearchDebounce sets how long Search waits for typing to settle.
func WithSearchDebounce(d time.Duration) PickerOption {
	return func(p *Picker) { p.debounce = d }
}

// WithOnImported registers a callback for each successful import.
func WithOnImported(fn func(*File)) PickerOption {
	return func(p *Picker) { p.onImported = fn }
}

// WithOnChange registers a callback run after every state change.
func WithOnChange(fn func(PickerState)) PickerOption {
	return func(p *Picker) { p.onChange = fn }
}

// NewPicker creates a picker importing into dataroomID.
func NewPicker(c *Client, dataroomID string, opts ...PickerOption) *Picker {
	p := &Picker{
		client:     c,
		dataroomID: dataroomID,
		debounce:   DefaultSearchDebounce,
		state:      PickerState{Imported: make(map[string]bool)},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Snapshot returns a copy of the current state.
func (p *Picker) Snapshot() PickerState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snapshotLocked()
}

func (p *Picker) snapshotLocked() PickerState {
	st := p.state
	st.Files = append([]DriveFile(nil), p.state.Files...)
	st.Imported = make(map[string]bool, len(p.state.Imported))
	for id := range p.state.Imported {
		st.Imported[id] = true
	}
	return st
}

// commit unlocks p.mu and notifies the listener.
func (p *Picker) commit() {
	var st PickerState
	listener := p.onChange
	if listener != nil {
		st = p.snapshotLocked()
	}
	p.mu.Unlock()

	if listener != nil {
		listener(st)
	}
}

// Load fetches the first page for query and replaces the listing.
func (p *Picker) Load(ctx context.Context, query string) error {
	p.mu.Lock()
	p.gen++
	gen := p.gen
	p.state.Loading = true
	p.state.Error = ""
	p.state.Query = query
	p.commit()

	page, err := p.client.ListDriveFiles(ctx, DriveListParams{PageSize: PickerPageSize, Query: query})

	p.mu.Lock()
	if gen != p.gen {
		p.mu.Unlock()
		return nil
	}
	p.state.Loading = false
	if err != nil {
		p.state.Error = loadErrorMessage(err)
	} else {
		p.state.Files = page.Files
		p.state.NextPageToken = deref(page.NextPageToken)
	}
	p.commit()
	return err
}

// LoadMore appends the next page. It does nothing when there is no next
// page or a load is already running.
func (p *Picker) LoadMore(ctx context.Context) error {
	p.mu.Lock()
	if p.state.NextPageToken == "" || p.state.Loading || p.state.LoadingMore {
		p.mu.Unlock()
		return nil
	}
	gen := p.gen
	token := p.state.NextPageToken
	query := p.state.Query
	p.state.LoadingMore = true
	p.commit()

	page, err := p.client.ListDriveFiles(ctx, DriveListParams{
		PageSize:  PickerPageSize,
		PageToken: token,
		Query:     query,
	})

	p.mu.Lock()
	p.state.LoadingMore = false
	if gen != p.gen {
		p.commit()
		return nil
	}
	if err != nil {
		p.state.Error = loadErrorMessage(err)
	} else {
		p.state.Files = append(p.state.Files, page.Files...)
		p.state.NextPageToken = deref(page.NextPageToken)
	}
	p.commit()
	return err
}

// Retry reloads the current query.
func (p *Picker) Retry(ctx context.Context) error {
	return p.Load(ctx, p.Snapshot().Query)
}

// Search records query and loads it once no other Search call has arrived
// for the debounce interval.
func (p *Picker) Search(ctx context.Context, query string) {
	p.mu.Lock()
	if p.timer != nil {
		p.timer.Stop()
	}
	p.state.Query = query
	p.timer = time.AfterFunc(p.debounce, func() {
		_ = p.Load(ctx, query)
	})
	p.commit()
}

// Close stops a pending Search.
func (p *Picker) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
}

// Import copies f into the picker's dataroom. A file the server reports
// as already imported is marked imported as well.
func (p *Picker) Import(ctx context.Context, f DriveFile) (*File, error) {
	p.mu.Lock()
	p.state.ImportingID = f.ID
	p.state.ImportError = ""
	p.commit()

	file, err := p.client.ImportFile(ctx, p.dataroomID, f.ID)

	p.mu.Lock()
	p.state.ImportingID = ""
	if err == nil {
		p.state.Imported[f.ID] = true
		p.commit()
		if p.onImported != nil {
			p.onImported(file)
		}
		return file, nil
	}

	switch ErrorCode(err) {
	case CodeAlreadyExists:
		p.state.ImportError = MsgAlreadyImported
		p.state.Imported[f.ID] = true
	case CodeOAuthRevoked:
		p.state.ImportError = MsgImportReconnect
	default:
		p.state.ImportError = importErrorMessage(err)
	}
	p.commit()
	return nil, err
}

// IsImported reports whether the Drive file was imported by this picker.
func (p *Picker) IsImported(driveFileID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state.Imported[driveFileID]
}

// DismissImportError clears the import error.
func (p *Picker) DismissImportError() {
	p.mu.Lock()
	p.state.ImportError = ""
	p.commit()
}

func loadErrorMessage(err error) string {
	if ErrorCode(err) == CodeOAuthRevoked {
		return MsgDriveReconnect
	}
	return MsgDriveLoadFailed
}

func importErrorMessage(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return MsgImportFailed
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
