package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/cheggaaa/pb/v3"
	"github.com/urfave/cli/v2"

	"github.com/dataroom/dataroom/pkg/client"
)

func filesCommand() *cli.Command {
	return &cli.Command{
		Name:  "files",
		Usage: "Work with imported files",
		Subcommands: []*cli.Command{
			{
				Name:      "list",
				Usage:     "List the files of a dataroom",
				ArgsUsage: "ROOM",
				Action: action(func(ctx context.Context, c *cli.Context, e *env) error {
					if err := requireArgs(c, "room"); err != nil {
						return err
					}
					files, err := e.client.ListDataroomFiles(ctx, c.Args().First())
					if err != nil {
						return err
					}
					return printFiles(e.out, files)
				}),
			},
			{
				Name:      "info",
				Usage:     "Show file metadata",
				ArgsUsage: "ID",
				Action: action(func(ctx context.Context, c *cli.Context, e *env) error {
					if err := requireArgs(c, "id"); err != nil {
						return err
					}
					f, err := e.client.GetFile(ctx, c.Args().First())
					if err != nil {
						return err
					}
					return printFile(e.out, f)
				}),
			},
			{
				Name:      "import",
				Usage:     "Import a Google Drive file into a dataroom",
				ArgsUsage: "ROOM DRIVE_ID",
				Action: action(func(ctx context.Context, c *cli.Context, e *env) error {
					if err := requireArgs(c, "room", "drive_id"); err != nil {
						return err
					}
					f, err := e.client.ImportFile(ctx, c.Args().Get(0), c.Args().Get(1))
					if err != nil {
						return err
					}
					fmt.Fprintf(e.out, "Imported %s (%s, %s)\n", f.Name, f.ID, fileSize(*f))
					return nil
				}),
			},
			{
				Name:      "download",
				Usage:     "Download a file",
				ArgsUsage: "ID",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "out",
						Aliases: []string{"o"},
						Usage:   "Output path; a directory keeps the server's file name. Use - for stdout",
					},
				},
				Action: action(func(ctx context.Context, c *cli.Context, e *env) error {
					if err := requireArgs(c, "id"); err != nil {
						return err
					}
					return download(ctx, e, c.Args().First(), c.String("out"))
				}),
			},
			{
				Name:      "rm",
				Usage:     "Delete a file",
				ArgsUsage: "ID",
				Action: action(func(ctx context.Context, c *cli.Context, e *env) error {
					if err := requireArgs(c, "id"); err != nil {
						return err
					}
					id := c.Args().First()
					if err := e.client.DeleteFile(ctx, id); err != nil {
						return err
					}
					fmt.Fprintf(e.out, "Deleted file %s\n", id)
					return nil
				}),
			},
		},
	}
}

func download(ctx context.Context, e *env, id, out string) error {
	d, err := e.client.OpenFile(ctx, id)
	if err != nil {
		return err
	}
	defer d.Body.Close()

	if out == "-" {
		_, err := io.Copy(e.out, d.Body)
		return err
	}

	path := downloadPath(out, d.Filename, id)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}

	var body io.Reader = d.Body
	var bar *pb.ProgressBar
	if d.Size > 0 {
		bar = pb.New64(d.Size)
		bar.SetTemplate(pb.Full)
		bar.Set(pb.Bytes, true)
		bar.SetWriter(e.errOut)
		bar.Start()
		body = bar.NewProxyReader(d.Body)
	}

	n, copyErr := io.Copy(f, body)
	if bar != nil {
		bar.Finish()
	}
	closeErr := f.Close()
	if copyErr != nil {
		_ = os.Remove(path)
		return fmt.Errorf("download %s: %w", id, copyErr)
	}
	if closeErr != nil {
		return fmt.Errorf("write %s: %w", path, closeErr)
	}

	fmt.Fprintf(e.out, "Saved %s (%s)\n", path, client.FormatBytes(n))
	return nil
}

// downloadPath resolves where a download is written. The server's file name
// is reduced to its base so it cannot escape the target directory.
func downloadPath(out, filename, id string) string {
	name := filepath.Base(filepath.Clean("/" + filename))
	if name == "/" || name == "." || name == "" {
		name = id
	}
	if out == "" {
		return name
	}
	if info, err := os.Stat(out); err == nil && info.IsDir() {
		return filepath.Join(out, name)
	}
	return out
}
