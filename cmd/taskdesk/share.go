package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"taskdesk/internal/config"
	"taskdesk/internal/parser"
	"taskdesk/internal/share"
	"taskdesk/internal/tasks"
)

func shareCmd() *cobra.Command {
	var baseURL string
	cmd := &cobra.Command{
		Use:   "share",
		Short: "Print a read-only share link for all tasks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(_ context.Context, store *tasks.Store, _ *slog.Logger) error {
				token, err := share.Encode(store.All())
				if err != nil {
					return err
				}
				base := baseURL
				if base == "" {
					cfg, err := config.Load(configPath)
					if err != nil {
						return err
					}
					base = cfg.PublicURL
				}
				link, err := share.Link(base, token)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), link)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&baseURL, "base-url", "", "app URL to build the link on (default: public_url from config)")
	return cmd
}

func decodeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "decode [token]",
		Short: "Show the tasks carried by a share token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			shared, err := share.Decode(args[0], time.Now())
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(shared)
		},
	}
}

func parseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "parse [text...]",
		Short: "Show how a chat phrase is turned into a task",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res := parser.Parse(strings.Join(args, " "), time.Now())
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "title:    %s\n", res.Title)
			fmt.Fprintf(out, "priority: %s\n", res.Priority)
			if res.DueDate != nil {
				fmt.Fprintf(out, "due:      %s\n", res.DueDate)
			} else {
				fmt.Fprintln(out, "due:      -")
			}
			return nil
		},
	}
}
