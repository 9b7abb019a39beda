package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/jonwraymond/chatquery/access"
	"github.com/jonwraymond/chatquery/health"
	"github.com/jonwraymond/chatquery/query"
)

// errUnhealthy makes the health command exit non-zero.
var errUnhealthy = errors.New("chatquery is unhealthy")

func newQueryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query",
		Short: "Search chat history",
		Long: `Search the messages of one group by content substring or regex.

Times accept relative forms (30m, 2h, 7d) or absolute "YYYY-MM-DD HH:MM"
and "YYYY-MM-DD" in the configured timezone. --as-user and --in-group
describe who is asking: a group chat always reads its own group, and only
superusers may pick a --group from a private chat.`,
		Args: cobra.NoArgs,
		RunE: handleQuery,
	}
	cmd.Flags().String("content", "", "substring the message must contain")
	cmd.Flags().String("regex", "", "RE2 expression the message must match")
	cmd.Flags().Int64("user", 0, "only messages from this user id")
	cmd.Flags().String("after", "", "lower time bound (e.g. 2h, 2024-07-15 10:00)")
	cmd.Flags().String("before", "", "upper time bound")
	cmd.Flags().Int("limit", 0, "maximum messages to show (default 20, max 100)")
	cmd.Flags().Int64("group", 0, "group to read; superusers in a private chat only")
	cmd.Flags().Int64("as-user", 0, "user id issuing the query")
	cmd.Flags().Int64("in-group", 0, "group the query is sent from; 0 for a private chat")
	cmd.Flags().Bool("json", false, "print the answer as JSON")
	return cmd
}

func handleQuery(cmd *cobra.Command, _ []string) error {
	flags := cmd.Flags()
	var p query.Params
	p.Content, _ = flags.GetString("content")
	p.Regex, _ = flags.GetString("regex")
	p.After, _ = flags.GetString("after")
	p.Before, _ = flags.GetString("before")
	p.Limit, _ = flags.GetInt("limit")
	p.GroupID, _ = flags.GetInt64("group")
	if flags.Changed("user") {
		uid, _ := flags.GetInt64("user")
		p.UserID = &uid
	}

	var id access.Identity
	id.UserID, _ = flags.GetInt64("as-user")
	id.GroupID, _ = flags.GetInt64("in-group")
	asJSON, _ := flags.GetBool("json")

	return withApp(cmd, func(ctx context.Context, a *app) error {
		ans, err := a.service.Execute(ctx, &id, p)
		if err != nil {
			return err
		}
		if asJSON {
			return writeJSON(cmd.OutOrStdout(), ans)
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), query.Render(ans, a.service.Location()))
		return err
	})
}

func newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print cache tier sizes and counters as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(_ context.Context, a *app) error {
				return writeJSON(cmd.OutOrStdout(), a.cache.Stats())
			})
		},
	}
}

func newClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Drop every cache entry and the persisted cold tier",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				if err := a.cache.Clear(ctx); err != nil {
					return err
				}
				_, err := fmt.Fprintln(cmd.OutOrStdout(), "cache cleared")
				return err
			})
		},
	}
}

func newHealthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check the cache and the message store",
		Long:  "Print a JSON health report. Exits non-zero when any check is unhealthy.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				report := a.healthReport(ctx)
				if err := writeJSON(cmd.OutOrStdout(), report); err != nil {
					return err
				}
				if report.Status == health.StatusUnhealthy {
					return errUnhealthy
				}
				return nil
			})
		},
	}
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the message table and index if missing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				if err := a.store.EnsureSchema(ctx); err != nil {
					return err
				}
				_, err := fmt.Fprintln(cmd.OutOrStdout(), "schema ready")
				return err
			})
		},
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
