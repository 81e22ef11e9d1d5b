package cli

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/anonify/internal/client/config"
	"github.com/dmitrijs2005/anonify/internal/logging"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// newLogger builds the process logger; tests swap it for a quiet one.
var newLogger = func(level string) (logging.Logger, func(), error) {
	z, err := logging.NewProductionZap(level)
	if err != nil {
		return nil, nil, err
	}
	return logging.NewZapLogger(z), func() { _ = z.Sync() }, nil
}

// rootState holds what PersistentPreRunE builds, so that it can be released
// whether or not the command succeeded.
type rootState struct {
	app   *App
	flush func()
}

func (s *rootState) close(ctx context.Context) {
	if s.app != nil {
		_ = s.app.Close(ctx)
		s.app = nil
	}
	if s.flush != nil {
		s.flush()
		s.flush = nil
	}
}

// newRootCommand builds the anonify command tree. Commands read prompts from
// in and write to out.
func newRootCommand(in io.Reader, out io.Writer) (*cobra.Command, *rootState) {
	state := &rootState{}

	root := &cobra.Command{
		Use:   "anonify",
		Short: "Anonify - redact sensitive regions from images through a chat",
		Long: `Anonify is a chat client for the Anonify redaction service.

Send an image in a chat and get back the detected sensitive regions and the
redacted picture. Run without arguments to start the interactive client.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configArgs(cmd.Flags()))
			if err != nil {
				return err
			}

			log, flush, err := newLogger(cfg.LogLevel)
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			state.flush = flush

			state.app, err = NewApp(cmd.Context(), cfg, log, in, out)
			return err
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			state.app.Run(cmd.Context())
			return nil
		},
	}
	root.SetIn(in)
	root.SetOut(out)

	f := root.PersistentFlags()
	f.StringP("config", "c", "", "path to config file (.json or .toml)")
	f.StringP("server", "a", "", "backend base URL")
	f.StringP("db", "d", "", "local database path")
	f.StringP("log-level", "l", "", "log level (debug, info, warn, error)")
	f.Duration("request-timeout", 0, "per-request timeout")
	f.Duration("reply-delay", 0, "delay before the reply to a text message")
	f.Float64("confidence", 0, "detection confidence threshold in [0,1]")
	f.Bool("return-image", true, "ask the backend for the redacted image")
	f.String("archive-dir", "", "directory for archived redacted images")
	f.String("s3-bucket", "", "S3 bucket for archived redacted images")
	f.String("s3-region", "", "S3 region")
	f.String("s3-endpoint", "", "S3 endpoint (MinIO)")

	appFn := func() *App { return state.app }
	root.AddCommand(
		authCommands(appFn)...,
	)
	root.AddCommand(
		chatsCommand(appFn),
		chatCommand(appFn),
		entitiesCommand(appFn),
		taskCommand(appFn),
		archiveCommand(appFn),
	)
	return root, state
}

// configArgs turns the flags set on the command line back into arguments
// for config.Load, so that flags keep the highest precedence.
func configArgs(fs *pflag.FlagSet) []string {
	var args []string
	fs.Visit(func(f *pflag.Flag) {
		args = append(args, "--"+f.Name+"="+f.Value.String())
	})
	return args
}

// Execute runs the command tree with ctx.
func Execute(ctx context.Context, in io.Reader, out io.Writer, args []string) error {
	root, state := newRootCommand(in, out)
	defer state.close(ctx)

	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

func authCommands(app func() *App) []*cobra.Command {
	var forget bool
	logout := &cobra.Command{
		Use:   "logout",
		Short: "End the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if forget {
				return app().Forget(cmd.Context())
			}
			return app().Logout(cmd.Context())
		},
	}
	logout.Flags().BoolVar(&forget, "forget", false, "also wipe the local database")

	return []*cobra.Command{
		logout,
		{
			Use:   "login",
			Short: "Log in and remember the session",
			Args:  cobra.NoArgs,
			RunE:  func(cmd *cobra.Command, _ []string) error { return app().Login(cmd.Context()) },
		},
		{
			Use:   "register",
			Short: "Create an account",
			Args:  cobra.NoArgs,
			RunE:  func(cmd *cobra.Command, _ []string) error { return app().Register(cmd.Context()) },
		},
		{
			Use:   "profile",
			Short: "Show the current account",
			Args:  cobra.NoArgs,
			RunE:  requireSession(app, func(cmd *cobra.Command, _ []string) error { return app().Profile(cmd.Context()) }),
		},
		{
			Use:   "passwd",
			Short: "Change username or password",
			Args:  cobra.NoArgs,
			RunE:  requireSession(app, func(cmd *cobra.Command, _ []string) error { return app().UpdateProfile(cmd.Context()) }),
		},
	}
}

func chatsCommand(app func() *App) *cobra.Command {
	chats := &cobra.Command{
		Use:   "chats",
		Short: "List and manage chats",
		Args:  cobra.NoArgs,
		RunE:  requireSession(app, func(cmd *cobra.Command, _ []string) error { return app().ListChats(cmd.Context()) }),
	}
	chats.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List chats, newest first",
			Args:  cobra.NoArgs,
			RunE:  requireSession(app, func(cmd *cobra.Command, _ []string) error { return app().ListChats(cmd.Context()) }),
		},
		&cobra.Command{
			Use:   "new [title]",
			Short: "Create a chat",
			RunE: requireSession(app, func(cmd *cobra.Command, args []string) error {
				return app().NewChat(cmd.Context(), strings.Join(args, " "))
			}),
		},
		&cobra.Command{
			Use:   "rename <id> <title>",
			Short: "Rename a chat",
			Args:  cobra.MinimumNArgs(2),
			RunE: requireSession(app, func(cmd *cobra.Command, args []string) error {
				id, err := parseChatID(args[0])
				if err != nil {
					return err
				}
				return app().RenameChat(cmd.Context(), id, strings.Join(args[1:], " "))
			}),
		},
		&cobra.Command{
			Use:   "delete <id>",
			Short: "Delete a chat",
			Args:  cobra.ExactArgs(1),
			RunE: requireSession(app, func(cmd *cobra.Command, args []string) error {
				id, err := parseChatID(args[0])
				if err != nil {
					return err
				}
				return app().DeleteChat(cmd.Context(), id)
			}),
		},
	)
	return chats
}

func chatCommand(app func() *App) *cobra.Command {
	return &cobra.Command{
		Use:   "chat <id>",
		Short: "Open a chat interactively",
		Args:  cobra.ExactArgs(1),
		RunE: requireSession(app, func(cmd *cobra.Command, args []string) error {
			id, err := parseChatID(args[0])
			if err != nil {
				return err
			}
			return app().OpenChat(cmd.Context(), id)
		}),
	}
}

func entitiesCommand(app func() *App) *cobra.Command {
	return &cobra.Command{
		Use:   "entities",
		Short: "List the entity kinds the service detects",
		Args:  cobra.NoArgs,
		RunE:  func(cmd *cobra.Command, _ []string) error { return app().Entities(cmd.Context()) },
	}
}

func taskCommand(app func() *App) *cobra.Command {
	return &cobra.Command{
		Use:   "task <id>",
		Short: "Show the processing log of a redaction task",
		Args:  cobra.ExactArgs(1),
		RunE:  requireSession(app, func(cmd *cobra.Command, args []string) error { return app().TaskLog(cmd.Context(), args[0]) }),
	}
}

func archiveCommand(app func() *App) *cobra.Command {
	archive := &cobra.Command{
		Use:   "archive",
		Short: "Locally archived redaction results",
	}
	archive.AddCommand(&cobra.Command{
		Use:   "list <chat id>",
		Short: "List archived results of a chat",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseChatID(args[0])
			if err != nil {
				return err
			}
			return app().Archived(cmd.Context(), id)
		},
	})
	return archive
}

// requireSession wraps run so that it only starts with a usable credential.
func requireSession(app func() *App, run func(*cobra.Command, []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		if err := app().RequireSession(cmd.Context()); err != nil {
			return err
		}
		return run(cmd, args)
	}
}

func parseChatID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid chat id %q", s)
	}
	return id, nil
}
