package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tartampluch/go-lunar-birthday/internal/app"
	"github.com/tartampluch/go-lunar-birthday/internal/config"
	"github.com/tartampluch/go-lunar-birthday/internal/logger"
)

// main delegates to runMain so deferred calls run before os.Exit.
func main() {
	os.Exit(runMain(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// configError marks failures that happen before any work starts.
type configError struct{ err error }

func (e configError) Error() string { return e.err.Error() }
func (e configError) Unwrap() error { return e.err }

// runMain executes the command line and maps the outcome onto an exit code.
func runMain(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	root := newRootCmd(stdin, stdout)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(stderr, "%s: %v\n", config.ErrAppFailed, err)
		var cfgErr configError
		if errors.As(err, &cfgErr) {
			return config.ExitCodeConfig
		}
		return config.ExitCodeError
	}
	return config.ExitCodeSuccess
}

func newRootCmd(stdin io.Reader, stdout io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:           config.AppCommand,
		Short:         config.CmdShortRoot,
		Long:          config.CmdLongRoot,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				return a.Run(ctx)
			})
		},
	}

	preview := &cobra.Command{
		Use:   config.CmdUsePreview,
		Short: config.CmdShortPreview,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				return a.Preview(ctx, stdout)
			})
		},
	}

	serve := &cobra.Command{
		Use:   config.CmdUseServe,
		Short: config.CmdShortServe,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				return a.Serve(ctx)
			})
		},
	}

	token := &cobra.Command{
		Use:   config.CmdUseToken,
		Short: config.CmdShortToken,
	}
	token.AddCommand(
		&cobra.Command{
			Use:   config.CmdUseTokenSet,
			Short: config.CmdShortTokenSet,
			Args:  cobra.MaximumNArgs(1),
			RunE: func(_ *cobra.Command, args []string) error {
				value, err := tokenArg(args, stdin)
				if err != nil {
					return err
				}
				if err := config.StoreToken(value); err != nil {
					return err
				}
				_, err = fmt.Fprintln(stdout, config.MsgTokenStored)
				return err
			},
		},
		&cobra.Command{
			Use:   config.CmdUseTokenClear,
			Short: config.CmdShortTokenClr,
			Args:  cobra.NoArgs,
			RunE: func(_ *cobra.Command, _ []string) error {
				if err := config.ClearToken(); err != nil {
					return err
				}
				_, err := fmt.Fprintln(stdout, config.MsgTokenCleared)
				return err
			},
		},
	)

	version := &cobra.Command{
		Use:   config.CmdUseVersion,
		Short: config.CmdShortVersion,
		Args:  cobra.NoArgs,
		Run: func(_ *cobra.Command, _ []string) {
			printVersion(stdout)
		},
	}

	root.AddCommand(preview, serve, token, version)
	return root
}

// withApp loads settings, builds the logger and the pipeline, then runs fn.
func withApp(ctx context.Context, fn func(context.Context, *app.App) error) error {
	settings, err := config.Load()
	if err != nil {
		return configError{err}
	}

	log, err := logger.New(settings.LogLevel)
	if err != nil {
		return configError{err}
	}
	defer func() { _ = log.Sync() }()

	logStartupInfo(log)

	a, err := app.New(settings, log)
	if err != nil {
		return configError{err}
	}
	if err := fn(ctx, a); err != nil {
		log.Error(config.ErrAppFailed, zap.String(config.LogKeyComponent, config.CompMain), zap.Error(err))
		return err
	}

	log.Info(config.MsgAppStop, zap.String(config.LogKeyComponent, config.CompMain))
	return nil
}

// tokenArg takes the token from the argument, else the first line of stdin,
// so it need not appear in shell history.
func tokenArg(args []string, stdin io.Reader) (string, error) {
	if len(args) == 1 {
		return strings.TrimSpace(args[0]), nil
	}
	line, err := bufio.NewReader(stdin).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func printVersion(w io.Writer) {
	fmt.Fprintf(w, config.MsgVersionOutput,
		config.AppName,
		config.Version,
		config.Commit,
		config.Date,
		runtime.GOOS,
		runtime.GOARCH,
	)
}

func logStartupInfo(log *zap.Logger) {
	log.Info(config.MsgAppStarting,
		zap.String(config.LogKeyComponent, config.CompMain),
		zap.String(config.LogKeyVersion, config.Version),
		zap.String(config.LogKeyGoVer, runtime.Version()),
		zap.String(config.LogKeyOS, runtime.GOOS),
		zap.String(config.LogKeyArch, runtime.GOARCH),
		zap.Int(config.LogKeyPID, os.Getpid()),
	)
}
