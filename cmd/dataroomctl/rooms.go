package main

import (
	"bufio"
	"context"
	"fmt"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/dataroom/dataroom/pkg/client"
)

func roomsCommand() *cli.Command {
	return &cli.Command{
		Name:  "rooms",
		Usage: "Manage datarooms",
		Subcommands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List your datarooms",
				Action: action(func(ctx context.Context, c *cli.Context, e *env) error {
					rooms, err := e.client.ListDatarooms(ctx)
					if err != nil {
						return err
					}
					return printRooms(e.out, rooms)
				}),
			},
			{
				Name:      "show",
				Usage:     "Show a dataroom and its files",
				ArgsUsage: "ID",
				Action: action(func(ctx context.Context, c *cli.Context, e *env) error {
					if err := requireArgs(c, "id"); err != nil {
						return err
					}
					room, err := e.client.GetDataroom(ctx, c.Args().First())
					if err != nil {
						return err
					}
					if err := printRoom(e.out, room); err != nil {
						return err
					}
					fmt.Fprintln(e.out)
					return printFiles(e.out, room.Files)
				}),
			},
			{
				Name:  "create",
				Usage: "Create a dataroom",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "name", Usage: "Dataroom name", Required: true},
					&cli.StringFlag{Name: "description", Usage: "Optional description"},
				},
				Action: action(func(ctx context.Context, c *cli.Context, e *env) error {
					var description *string
					if c.IsSet("description") {
						d := c.String("description")
						description = &d
					}
					room, err := e.client.CreateDataroom(ctx, c.String("name"), description)
					if err != nil {
						return err
					}
					fmt.Fprintf(e.out, "Created dataroom %s (%s)\n", room.Name, room.ID)
					return nil
				}),
			},
			{
				Name:      "update",
				Usage:     "Rename a dataroom or change its description",
				ArgsUsage: "ID",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "name", Usage: "New name"},
					&cli.StringFlag{Name: "description", Usage: "New description"},
				},
				Action: action(func(ctx context.Context, c *cli.Context, e *env) error {
					if err := requireArgs(c, "id"); err != nil {
						return err
					}
					var upd client.DataroomUpdate
					if c.IsSet("name") {
						n := c.String("name")
						upd.Name = &n
					}
					if c.IsSet("description") {
						d := c.String("description")
						upd.Description = &d
					}
					if upd.Name == nil && upd.Description == nil {
						return fmt.Errorf("nothing to update; pass --name or --description")
					}

					room, err := e.client.UpdateDataroom(ctx, c.Args().First(), upd)
					if err != nil {
						return err
					}
					fmt.Fprintf(e.out, "Updated dataroom %s (%s)\n", room.Name, room.ID)
					return nil
				}),
			},
			{
				Name:      "delete",
				Usage:     "Delete a dataroom and all of its files",
				ArgsUsage: "ID",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "yes", Aliases: []string{"y"}, Usage: "Do not ask for confirmation"},
				},
				Action: action(func(ctx context.Context, c *cli.Context, e *env) error {
					if err := requireArgs(c, "id"); err != nil {
						return err
					}
					id := c.Args().First()

					if !c.Bool("yes") {
						if !confirm(e, fmt.Sprintf("Delete dataroom %s and all its files?", id)) {
							fmt.Fprintln(e.out, "Aborted")
							return nil
						}
					}

					if err := e.client.DeleteDataroom(ctx, id); err != nil {
						return err
					}
					fmt.Fprintf(e.out, "Deleted dataroom %s\n", id)
					return nil
				}),
			},
		},
	}
}

// confirm asks a yes/no question on the command's input.
func confirm(e *env, question string) bool {
	fmt.Fprintf(e.out, "%s [y/N]: ", question)
	line, _ := bufio.NewReader(e.in).ReadString('\n')
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	return false
}
