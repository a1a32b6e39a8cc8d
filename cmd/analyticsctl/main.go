package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"portfolio/analytics/client"
	"portfolio/analytics/models"
)

const watchInterval = 5 * time.Second

type globalOptions struct {
	server string
	apiKey string
	token  string
}

func (o *globalOptions) client() *client.Client {
	return client.New(o.server, client.WithAPIKey(o.apiKey), client.WithToken(o.token))
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}
	var watch bool

	root := &cobra.Command{
		Use:   "analyticsctl",
		Short: "View visitor analytics events",
		Example: `  analyticsctl             # view events once
  analyticsctl --watch     # refresh every 5 seconds
  analyticsctl -w          # short version of --watch
  analyticsctl sessions    # list reconstructed sessions`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c := opts.client()
			out := cmd.OutOrStdout()
			if watch {
				return watchEvents(cmd.Context(), c, out)
			}
			if err := viewEvents(cmd.Context(), c, out); err != nil {
				renderUnreachable(out, err)
				return fmt.Errorf("could not reach %s", c.BaseURL())
			}
			return nil
		},
	}

	defaultServer := os.Getenv("ANALYTICS_URL")
	if defaultServer == "" {
		defaultServer = client.DefaultBaseURL
	}
	root.PersistentFlags().StringVar(&opts.server, "server", defaultServer, "analytics server base URL")
	root.PersistentFlags().StringVar(&opts.apiKey, "api-key", os.Getenv("ANALYTICS_API_KEY"), "dashboard API key (X-API-KEY)")
	root.PersistentFlags().StringVar(&opts.token, "token", os.Getenv("ANALYTICS_TOKEN"), "operator JWT")
	root.Flags().BoolVarP(&watch, "watch", "w", false, "watch events in real time")

	root.AddCommand(newSessionsCmd(opts))
	root.AddCommand(newTrackCmd(opts))
	root.AddCommand(newLoginCmd(opts))
	return root
}

func viewEvents(ctx context.Context, c *client.Client, out io.Writer) error {
	fmt.Fprintln(out, "Fetching user events...")
	fmt.Fprintln(out)

	events, err := c.Events(ctx)
	if err != nil {
		return err
	}
	renderEvents(out, events, time.Local)
	if len(events) == 0 {
		return nil
	}

	summary, err := c.Summary(ctx)
	if err != nil {
		return err
	}
	renderSummary(out, summary)
	return nil
}

func watchEvents(ctx context.Context, c *client.Client, out io.Writer) error {
	fmt.Fprintln(out, "Watching for new events... (Press Ctrl+C to stop)")

	ticker := time.NewTicker(watchInterval)
	defer ticker.Stop()
	for {
		fmt.Fprint(out, "\033[H\033[2J")
		if err := viewEvents(ctx, c, out); err != nil {
			renderUnreachable(out, err)
		}
		fmt.Fprintf(out, "\nRefreshing in %d seconds...\n", int(watchInterval/time.Second))

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func newSessionsCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sessions",
		Short: "List reconstructed visitor sessions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sessions, err := opts.client().Sessions(cmd.Context())
			if err != nil {
				renderUnreachable(cmd.OutOrStdout(), err)
				return err
			}
			renderSessions(cmd.OutOrStdout(), sessions)
			return nil
		},
	}
}

func newTrackCmd(opts *globalOptions) *cobra.Command {
	var visitorID, sessionID, queuePath string

	cmd := &cobra.Command{
		Use:   "track <event-name> [key=value...]",
		Short: "Send a custom event; undelivered events are queued and retried on the next send",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tracker, err := client.NewTracker(opts.client(), queuePath)
			if err != nil {
				return err
			}

			event, err := customEvent(args[0], args[1:], visitorID, sessionID)
			if err != nil {
				return err
			}

			if err := tracker.Track(cmd.Context(), event); err != nil {
				if client.Retryable(err) {
					fmt.Fprintf(cmd.OutOrStdout(), "Server unavailable, event queued (%d pending)\n", tracker.Pending())
					return nil
				}
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Event sent")
			return nil
		},
	}

	cmd.Flags().StringVar(&visitorID, "visitor", "visitor_cli", "visitor id")
	cmd.Flags().StringVar(&sessionID, "session", "", "session id (default: a new id per run)")
	cmd.Flags().StringVar(&queuePath, "queue", defaultQueuePath(), "file holding undelivered events")
	return cmd
}

func newLoginCmd(opts *globalOptions) *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in as a dashboard operator and print a token for --token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			token, err := opts.client().Login(cmd.Context(), email, password)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "operator email")
	cmd.Flags().StringVar(&password, "password", os.Getenv("ANALYTICS_PASSWORD"), "operator password")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func customEvent(name string, pairs []string, visitorID, sessionID string) (models.Event, error) {
	data := make(map[string]string, len(pairs))
	for _, p := range pairs {
		key, value, ok := strings.Cut(p, "=")
		if !ok || key == "" {
			return models.Event{}, fmt.Errorf("expected key=value, got %q", p)
		}
		data[key] = value
	}
	if sessionID == "" {
		sessionID = "session_" + uuid.New().String()
	}

	event := models.Event{
		Type:      models.EventTypeCustom,
		VisitorID: visitorID,
		SessionID: sessionID,
		URL:       "cli://analyticsctl",
	}
	if err := event.SetExtra("eventName", name); err != nil {
		return models.Event{}, err
	}
	if err := event.SetExtra("eventData", data); err != nil {
		return models.Event{}, err
	}
	return event, nil
}

func defaultQueuePath() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "analyticsctl", "queue.json")
}
