package main

import (
	"bufio"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/jonathan/mentor-match/internal/conversation"
	"github.com/jonathan/mentor-match/internal/db"
	"github.com/jonathan/mentor-match/internal/observability"
	"github.com/jonathan/mentor-match/internal/server"
	"github.com/spf13/cobra"
)

// localUser owns sessions started from the terminal
var localUser = uuid.MustParse("00000000-0000-0000-0000-000000000001")

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with the matcher in the terminal",
	Long: `Starts a session and reads learner messages from stdin, one per line.

Commands: /select <mentor-id> picks a presented mentor, /cancel abandons the session and
/quit exits. Without GEMINI_API_KEY (or with --offline) messages are read by the keyword
matcher.`,
	RunE: runChat,
}

var (
	chatMemory  bool
	chatMentors string
	chatOffline bool
)

func init() {
	chatCmd.Flags().BoolVar(&chatMemory, "memory", false, "Keep sessions and catalog in memory instead of the configured database")
	chatCmd.Flags().StringVarP(&chatMentors, "mentors", "m", "", "Mentors JSON file imported before the chat starts")
	chatCmd.Flags().BoolVar(&chatOffline, "offline", false, "Read messages with the keyword matcher")
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if chatOffline {
		cfg.Offline = true
	}
	logger := newLogger(cmd.ErrOrStderr(), cfg)

	var store db.Store
	if chatMemory {
		store = db.NewMemoryStore()
	} else {
		store, err = openStore(ctx, cfg, logger)
		if err != nil {
			return err
		}
	}
	defer store.Close() //nolint:errcheck

	if chatMentors != "" {
		mentors, err := loadMentors(chatMentors)
		if err != nil {
			return err
		}
		if err := store.UpsertMentors(ctx, mentors); err != nil {
			return fmt.Errorf("failed to import mentors: %w", err)
		}
	}

	completer, closeCompleter, err := newCompleter(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeCompleter() //nolint:errcheck

	ctrl, err := newController(cfg, completer, store, logger)
	if err != nil {
		return err
	}

	session, err := ctrl.StartSession(ctx, localUser)
	if err != nil {
		return err
	}

	var printer *observability.Printer
	if cfg.Verbose {
		printer = observability.NewPrinter(out)
	}

	fmt.Fprintln(out, "Tell me what you'd like to learn. Type /quit to leave.") //nolint:errcheck

	in := bufio.NewScanner(cmd.InOrStdin())
	for {
		fmt.Fprint(out, "> ") //nolint:errcheck
		if !in.Scan() {
			break
		}
		line := strings.TrimSpace(in.Text())
		if line == "" {
			continue
		}

		var result *conversation.TurnResult
		switch {
		case line == "/quit":
			return nil
		case line == "/cancel":
			result, err = ctrl.Cancel(ctx, session.ID, localUser)
		case strings.HasPrefix(line, "/select"):
			result, err = ctrl.Select(ctx, session.ID, localUser, strings.TrimSpace(strings.TrimPrefix(line, "/select")))
		default:
			result, err = ctrl.HandleMessage(ctx, session.ID, localUser, line)
		}
		if err != nil {
			// client mistakes are shown and the chat continues
			if server.HTTPStatus(err) < http.StatusInternalServerError {
				fmt.Fprintf(out, "! %s\n", server.PublicMessage(err)) //nolint:errcheck
				continue
			}
			return err
		}

		fmt.Fprintln(out, result.Reply) //nolint:errcheck
		if printer != nil {
			printer.PrintTurn(result)
		}
		if result.Session.Step.Terminal() {
			return nil
		}
	}
	return in.Err()
}
