package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/dataroom/dataroom/pkg/client"
)

const timeLayout = "2006-01-02 15:04"

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format(timeLayout)
}

func orDash(s *string) string {
	if s == nil || *s == "" {
		return "-"
	}
	return *s
}

func fileSize(f client.File) string {
	if f.SizeBytes == nil {
		return "-"
	}
	return client.FormatBytes(*f.SizeBytes)
}

func printRooms(w io.Writer, rooms []client.Dataroom) error {
	if len(rooms) == 0 {
		_, err := fmt.Fprintln(w, "No datarooms yet. Create one with `dataroomctl rooms create --name NAME`.")
		return err
	}
	t := newTable(w)
	fmt.Fprintln(t, "ID\tNAME\tFILES\tCREATED")
	for _, r := range rooms {
		fmt.Fprintf(t, "%s\t%s\t%d\t%s\n", r.ID, r.Name, r.FileCount, formatTime(r.CreatedAt))
	}
	return t.Flush()
}

func printRoom(w io.Writer, r *client.Dataroom) error {
	t := newTable(w)
	fmt.Fprintf(t, "ID\t%s\n", r.ID)
	fmt.Fprintf(t, "Name\t%s\n", r.Name)
	fmt.Fprintf(t, "Description\t%s\n", orDash(r.Description))
	fmt.Fprintf(t, "Files\t%d\n", r.FileCount)
	fmt.Fprintf(t, "Created\t%s\n", formatTime(r.CreatedAt))
	fmt.Fprintf(t, "Updated\t%s\n", formatTime(r.UpdatedAt))
	return t.Flush()
}

func printFiles(w io.Writer, files []client.File) error {
	if len(files) == 0 {
		_, err := fmt.Fprintln(w, "No files. Import one with `dataroomctl drive pick ROOM`.")
		return err
	}
	t := newTable(w)
	fmt.Fprintln(t, "ID\tNAME\tTYPE\tSIZE\tIMPORTED")
	for _, f := range files {
		fmt.Fprintf(t, "%s\t%s\t%s\t%s\t%s\n", f.ID, f.Name, orDash(f.MimeType), fileSize(f), formatTime(f.ImportedAt))
	}
	return t.Flush()
}

func printFile(w io.Writer, f *client.File) error {
	t := newTable(w)
	fmt.Fprintf(t, "ID\t%s\n", f.ID)
	fmt.Fprintf(t, "Name\t%s\n", f.Name)
	fmt.Fprintf(t, "Dataroom\t%s\n", f.DataroomID)
	fmt.Fprintf(t, "Type\t%s\n", orDash(f.MimeType))
	fmt.Fprintf(t, "Size\t%s\n", fileSize(*f))
	fmt.Fprintf(t, "Status\t%s\n", f.Status)
	fmt.Fprintf(t, "Drive ID\t%s\n", orDash(f.GoogleFileID))
	fmt.Fprintf(t, "Original\t%s\n", orDash(f.OriginalURL))
	fmt.Fprintf(t, "Imported\t%s\n", formatTime(f.ImportedAt))
	return t.Flush()
}

func printDriveFiles(w io.Writer, files []client.DriveFile) error {
	if len(files) == 0 {
		_, err := fmt.Fprintln(w, "No files found")
		return err
	}
	t := newTable(w)
	fmt.Fprintln(t, "ID\tNAME\tTYPE\tSIZE\tMODIFIED")
	for _, f := range files {
		size := "-"
		if f.Size != nil {
			if s := client.FormatFileSize(*f.Size); s != "" {
				size = s
			}
		}
		fmt.Fprintf(t, "%s\t%s\t%s\t%s\t%s\n", f.ID, f.Name, orDash(f.MimeType), size, orDash(f.ModifiedTime))
	}
	return t.Flush()
}
