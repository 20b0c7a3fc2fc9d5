package main

import (
	"errors"
	"fmt"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/warp/jottick/config"
	"github.com/warp/jottick/generic"
)

func newExportCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "export-ics",
		Short: "Write the calendar export and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := app.open(cmd.Context(), cmd, false)
			if err != nil {
				return err
			}
			defer rt.Close()

			res, err := rt.coord.ExportICal(cmd.Context(), rt.coord.Reminders())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d events to %s\n", res.EventCount, res.Path)
			return nil
		},
	}
}

func newImportCmd(app *App) *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "import-ics <url>",
		Short: "Subscribe to a calendar feed and exit",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := app.open(cmd.Context(), cmd, false)
			if err != nil {
				return err
			}
			defer rt.Close()

			src, err := rt.coord.ImportICal(cmd.Context(), args[0], name)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d events from %s (%s)\n", src.EventCount, src.Name, src.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Display name for the calendar")
	return cmd
}

func newCheckConfigCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "check-config",
		Short: "Validate and print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.loadConfig(cmd)
			if err != nil {
				return err
			}
			out, err := config.Format(cfg)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}
}

var errNoRevisions = errors.New("the configured store keeps no revisions (use the sqlite backend)")

func newRevisionsCmd(app *App) *cobra.Command {
	var restore int
	cmd := &cobra.Command{
		Use:   "revisions",
		Short: "List saved revisions, or restore one with --restore",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.loadConfig(cmd)
			if err != nil {
				return err
			}
			st, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			rs, ok := st.(generic.RevisionStore)
			if !ok {
				return errNoRevisions
			}
			ctx := cmd.Context()

			if restore > 0 {
				doc, err := rs.LoadRevision(ctx, restore)
				if err != nil {
					return err
				}
				// Restoring appends a new revision; nothing is lost.
				if err := rs.Save(ctx, doc); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Restored revision %d\n", restore)
				return nil
			}

			revs, err := rs.Revisions(ctx)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "REVISION\tSAVED\tSIZE")
			for _, r := range revs {
				fmt.Fprintf(w, "%s\t%s (%s)\t%s\n",
					strconv.Itoa(r.Number),
					humanize.Time(r.SavedAt),
					r.SavedAt.Local().Format(time.DateTime),
					humanize.Bytes(uint64(r.Size)),
				)
			}
			return w.Flush()
		},
	}
	cmd.Flags().IntVar(&restore, "restore", 0, "Revision number to restore")
	return cmd
}
