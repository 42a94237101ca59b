// File: cmd/open.go
package cmd

import (
	"context"
	"fmt"
	"io"
	"time"

	json "github.com/json-iterator/go"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/scalpel-wd/internal/config"
	"github.com/xkilldash9x/scalpel-wd/internal/observability"
	"github.com/xkilldash9x/scalpel-wd/pkg/webdriver"
)

// sessionCleanupTimeout bounds the DELETE issued after the command finishes,
// which runs even when the command context is already cancelled.
const sessionCleanupTimeout = 10 * time.Second

type openOptions struct {
	find        string
	using       string
	waitFor     string
	script      string
	screenshot  string
	keepSession bool
	metrics     bool
}

func newOpenCmd() *cobra.Command {
	opts := &openOptions{}

	cmd := &cobra.Command{
		Use:   "open <url>",
		Short: "Open a URL in a new session and report on the loaded page",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := configFromContext(cmd.Context())
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("using") {
				cfg.SetDefaultsUsing(opts.using)
			}
			if cmd.Flags().Changed("metrics") {
				cfg.SetMetricsEnabled(opts.metrics)
			}
			return runOpen(cmd.Context(), cmd.OutOrStdout(), cfg, args[0], opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.find, "find", "", "print the text of every element matching this selector")
	f.StringVar(&opts.using, "using", "", "locator strategy for --find and --wait-for")
	f.StringVar(&opts.waitFor, "wait-for", "", "wait for an element matching this selector before reporting")
	f.StringVar(&opts.script, "script", "", "execute this script and print its result")
	f.StringVar(&opts.screenshot, "screenshot", "", "save a PNG screenshot to this path")
	f.BoolVar(&opts.keepSession, "keep-session", false, "leave the session open and print its id")
	f.BoolVar(&opts.metrics, "metrics", false, "print command metrics when done")
	return cmd
}

func runOpen(ctx context.Context, out io.Writer, cfg config.Interface, target string, opts *openOptions) (err error) {
	logger := observability.GetLogger()

	sess, metrics, err := newSession(cfg)
	if err != nil {
		return err
	}
	if err := sess.Init(ctx); err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}

	defer func() {
		if opts.keepSession {
			fmt.Fprintf(out, "session: %s\n", sess.ID())
		} else {
			cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sessionCleanupTimeout)
			defer cancel()
			if derr := sess.Delete(cleanupCtx); derr != nil {
				logger.Warn("Failed to delete session", zap.String("session_id", sess.ID()), zap.Error(derr))
			}
		}
		if metrics != nil {
			if merr := metrics.WriteText(out); merr != nil && err == nil {
				err = merr
			}
		}
	}()

	if err := sess.SetURL(ctx, target); err != nil {
		return fmt.Errorf("failed to open %s: %w", target, err)
	}

	if opts.waitFor != "" {
		if _, err := sess.WaitForElement(ctx, opts.waitFor); err != nil {
			return err
		}
	}

	title, err := sess.GetTitle(ctx)
	if err != nil {
		return err
	}
	current, err := sess.GetURL(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "title: %s\nurl: %s\n", title, current)

	if opts.find != "" {
		if err := printMatches(ctx, out, sess, opts.find); err != nil {
			return err
		}
	}

	if opts.script != "" {
		value, err := sess.Execute(ctx, opts.script)
		if err != nil {
			return fmt.Errorf("script failed: %w", err)
		}
		result := "null"
		if !value.IsNull() {
			result = string(value)
		}
		fmt.Fprintf(out, "script: %s\n", result)
	}

	if opts.screenshot != "" {
		if err := sess.SaveScreenshot(ctx, opts.screenshot); err != nil {
			return err
		}
		fmt.Fprintf(out, "screenshot: %s\n", opts.screenshot)
	}
	return nil
}

func printMatches(ctx context.Context, out io.Writer, sess *webdriver.Session, selector string) error {
	els, err := sess.GetList(ctx, selector)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "found: %d\n", len(els))
	for i, el := range els {
		text, err := el.GetText(ctx)
		if err != nil {
			return err
		}
		quoted, _ := json.MarshalToString(text)
		fmt.Fprintf(out, "  [%d] %s %s\n", i, el.ID(), quoted)
	}
	return nil
}
