package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/eiannone/keyboard"
	"github.com/urfave/cli/v2"

	"github.com/dataroom/dataroom/pkg/client"
)

// pickerWindow is how many rows the picker shows at once; rows are picked
// with the digit keys.
const pickerWindow = 10

func driveCommand() *cli.Command {
	return &cli.Command{
		Name:  "drive",
		Usage: "Browse your Google Drive",
		Subcommands: []*cli.Command{
			{
				Name:  "ls",
				Usage: "List Drive files",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "q", Usage: "Filter by file name"},
					&cli.IntFlag{Name: "page-size", Usage: "Files per page (1-100)", Value: client.PickerPageSize},
					&cli.StringFlag{Name: "page-token", Usage: "Token from a previous listing"},
				},
				Action: action(func(ctx context.Context, c *cli.Context, e *env) error {
					page, err := e.client.ListDriveFiles(ctx, client.DriveListParams{
						PageSize:  c.Int("page-size"),
						PageToken: c.String("page-token"),
						Query:     c.String("q"),
					})
					if err != nil {
						return err
					}
					if err := printDriveFiles(e.out, page.Files); err != nil {
						return err
					}
					if page.NextPageToken != nil && *page.NextPageToken != "" {
						fmt.Fprintf(e.out, "\nMore files: --page-token %s\n", *page.NextPageToken)
					}
					return nil
				}),
			},
			{
				Name:      "pick",
				Usage:     "Interactively import Drive files into a dataroom",
				ArgsUsage: "ROOM",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "q", Usage: "Initial name filter"},
				},
				Action: action(func(ctx context.Context, c *cli.Context, e *env) error {
					if err := requireArgs(c, "room"); err != nil {
						return err
					}
					room, err := e.client.GetDataroom(ctx, c.Args().First())
					if err != nil {
						return err
					}

					keys, err := openTerminalKeys()
					if err != nil {
						return fmt.Errorf("open keyboard: %w", err)
					}
					defer keys.Close()

					v := newPickerView(e.client, room, e.out)
					defer v.picker.Close()
					return v.run(ctx, keys, c.String("q"))
				}),
			},
		},
	}
}

// keySource yields key presses. It is the terminal in production.
type keySource interface {
	GetKey() (rune, keyboard.Key, error)
}

type terminalKeys struct{}

func openTerminalKeys() (terminalKeys, error) {
	return terminalKeys{}, keyboard.Open()
}

func (terminalKeys) GetKey() (rune, keyboard.Key, error) {
	return keyboard.GetKey()
}

func (terminalKeys) Close() {
	keyboard.Close()
}

// pickerView renders a client.Picker and maps key presses onto it.
type pickerView struct {
	picker *client.Picker
	room   *client.Dataroom
	out    io.Writer

	mu        sync.Mutex
	state     client.PickerState
	offset    int
	searching bool
	status    string
}

func newPickerView(api *client.Client, room *client.Dataroom, out io.Writer) *pickerView {
	v := &pickerView{room: room, out: out}
	v.picker = client.NewPicker(api, room.ID,
		client.WithOnChange(v.update),
		client.WithOnImported(func(f *client.File) {
			v.setStatus(fmt.Sprintf("Imported %s", f.Name))
		}),
	)
	v.state = v.picker.Snapshot()
	return v
}

func (v *pickerView) update(st client.PickerState) {
	v.mu.Lock()
	v.state = st
	if v.offset >= len(st.Files) {
		v.offset = 0
	}
	v.renderLocked()
	v.mu.Unlock()
}

func (v *pickerView) setStatus(msg string) {
	v.mu.Lock()
	v.status = msg
	v.renderLocked()
	v.mu.Unlock()
}

// run loads the first page and handles keys until the user quits.
func (v *pickerView) run(ctx context.Context, keys keySource, query string) error {
	_ = v.picker.Load(ctx, query)

	for {
		ch, key, err := keys.GetKey()
		if err != nil {
			return fmt.Errorf("read key: %w", err)
		}
		if key == keyboard.KeyCtrlC {
			return nil
		}

		v.mu.Lock()
		searching := v.searching
		v.mu.Unlock()

		if searching {
			v.handleSearchKey(ctx, ch, key)
			continue
		}
		if done := v.handleKey(ctx, ch, key); done {
			return nil
		}
	}
}

func (v *pickerView) handleSearchKey(ctx context.Context, ch rune, key keyboard.Key) {
	query := v.picker.Snapshot().Query
	switch key {
	case keyboard.KeyEnter, keyboard.KeyEsc:
		v.mu.Lock()
		v.searching = false
		v.renderLocked()
		v.mu.Unlock()
		return
	case keyboard.KeyBackspace, keyboard.KeyBackspace2:
		if query == "" {
			return
		}
		r := []rune(query)
		query = string(r[:len(r)-1])
	case keyboard.KeySpace:
		query += " "
	default:
		if ch == 0 {
			return
		}
		query += string(ch)
	}
	v.mu.Lock()
	v.offset = 0
	v.mu.Unlock()
	v.picker.Search(ctx, query)
}

// handleKey reports whether the picker should exit.
func (v *pickerView) handleKey(ctx context.Context, ch rune, key keyboard.Key) bool {
	if key == keyboard.KeyEsc {
		return true
	}

	switch {
	case ch == 'q':
		return true
	case ch >= '0' && ch <= '9':
		v.importRow(ctx, int(ch-'0'))
	case ch == 'n':
		v.next(ctx)
	case ch == 'p':
		v.mu.Lock()
		if v.offset >= pickerWindow {
			v.offset -= pickerWindow
		}
		v.renderLocked()
		v.mu.Unlock()
	case ch == '/':
		v.mu.Lock()
		v.searching = true
		v.status = ""
		v.renderLocked()
		v.mu.Unlock()
	case ch == 'r':
		_ = v.picker.Retry(ctx)
	case ch == 'x':
		v.picker.DismissImportError()
	}
	return false
}

func (v *pickerView) next(ctx context.Context) {
	v.mu.Lock()
	if v.offset+pickerWindow < len(v.state.Files) {
		v.offset += pickerWindow
		v.renderLocked()
		v.mu.Unlock()
		return
	}
	hasMore := v.state.HasMore()
	v.mu.Unlock()

	if !hasMore {
		return
	}
	if err := v.picker.LoadMore(ctx); err != nil {
		return
	}

	v.mu.Lock()
	if v.offset+pickerWindow < len(v.state.Files) {
		v.offset += pickerWindow
	}
	v.renderLocked()
	v.mu.Unlock()
}

func (v *pickerView) importRow(ctx context.Context, row int) {
	v.mu.Lock()
	idx := v.offset + row
	if idx >= len(v.state.Files) || v.state.ImportingID != "" {
		v.mu.Unlock()
		return
	}
	f := v.state.Files[idx]
	v.status = ""
	v.mu.Unlock()

	if v.picker.IsImported(f.ID) {
		v.setStatus(fmt.Sprintf("%s is already in %s", f.Name, v.room.Name))
		return
	}
	if _, err := v.picker.Import(ctx, f); err != nil && errors.Is(err, client.ErrSessionExpired) {
		v.setStatus("Session expired; run `dataroomctl login`")
	}
}

// renderLocked redraws the whole view. Callers hold v.mu.
func (v *pickerView) renderLocked() {
	var b strings.Builder
	b.WriteString("\033[H\033[2J")
	fmt.Fprintf(&b, "Import into %q\n", v.room.Name)

	st := v.state
	switch {
	case v.searching:
		fmt.Fprintf(&b, "Search: %s_\n\n", st.Query)
	case st.Query != "":
		fmt.Fprintf(&b, "Filter: %s\n\n", st.Query)
	default:
		b.WriteString("\n")
	}

	switch {
	case st.Loading:
		b.WriteString("Loading files...\n")
	case st.Error != "":
		fmt.Fprintf(&b, "%s\n[r] retry\n", st.Error)
	case len(st.Files) == 0:
		if st.Query != "" {
			b.WriteString("No files match your search\n")
		} else {
			b.WriteString("No files found in your Google Drive\n")
		}
	default:
		end := min(v.offset+pickerWindow, len(st.Files))
		t := newTable(&b)
		for i, f := range st.Files[v.offset:end] {
			mark := " "
			switch {
			case st.ImportingID == f.ID:
				mark = "~"
			case st.Imported[f.ID]:
				mark = "✓"
			}
			size := ""
			if f.Size != nil {
				size = client.FormatFileSize(*f.Size)
			}
			fmt.Fprintf(t, "[%d]\t%s\t%s\t%s\n", i, mark, f.Name, size)
		}
		t.Flush()
		fmt.Fprintf(&b, "\n%d-%d of %d", v.offset+1, end, len(st.Files))
		if st.HasMore() {
			b.WriteString("+")
		}
		b.WriteString("\n")
		if st.LoadingMore {
			b.WriteString("Loading more...\n")
		}
	}

	if st.ImportingID != "" {
		b.WriteString("Importing...\n")
	}
	if st.ImportError != "" {
		fmt.Fprintf(&b, "%s [x] dismiss\n", st.ImportError)
	}
	if v.status != "" {
		fmt.Fprintf(&b, "%s\n", v.status)
	}
	b.WriteString("\n[0-9] import  [n]ext  [p]rev  [/] search  [r]eload  [q]uit\n")

	io.WriteString(v.out, b.String())
}
