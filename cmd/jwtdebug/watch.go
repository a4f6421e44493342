package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/bionicotaku/lingo-utils-jwtdebug"
)

func newWatchCmd(a *app) *cobra.Command {
	var (
		tokenFile string
		debounce  time.Duration
		skew      time.Duration
	)
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Re-decode and re-verify a token file on every change",
		Long: `Watch decodes the token in --token-file and, when a key is configured,
verifies it. Every write to the file triggers a new evaluation after the
debounce delay; only the result for the latest content is printed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if tokenFile == "" {
				return errors.New("--token-file is required")
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.watch(ctx, cmd.OutOrStdout(), tokenFile, debounce, skew)
		},
	}
	cmd.Flags().StringVar(&tokenFile, "token-file", "", "token file to watch")
	cmd.Flags().DurationVar(&debounce, "debounce", 500*time.Millisecond, "delay after the last change before evaluating")
	cmd.Flags().DurationVar(&skew, "skew", 0, "tolerated clock skew for exp and nbf (at most 5m)")
	return cmd
}

func (a *app) watch(ctx context.Context, out io.Writer, path string, debounce, skew time.Duration) error {
	presenterCfg, err := a.presenterConfig()
	if err != nil {
		return err
	}
	material, err := a.keyMaterial()
	if err != nil {
		return err
	}
	alg, err := a.algorithm("")
	if err != nil {
		return err
	}

	bench := jwtdebug.NewWorkbench(jwtdebug.WorkbenchConfig{
		Debounce:  debounce,
		Verify:    []jwtdebug.VerifyOption{jwtdebug.WithAcceptableSkew(skew)},
		Presenter: presenterCfg,
	}, func(up jwtdebug.Update) {
		printUpdate(out, up)
	}, jwtdebug.WithLogger(a.log))
	defer bench.Close()

	submit := func() {
		data, err := os.ReadFile(path)
		if err != nil {
			a.log.Warn("read token file", "file", path, "error", err)
			return
		}
		gen := bench.Submit(jwtdebug.Input{
			Mode:      jwtdebug.ModeDecode,
			Token:     string(data),
			Algorithm: alg,
			Key:       material,
		})
		a.log.Debug("submitted", "file", path, "generation", gen)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	// Editors often replace the file instead of writing it, so the directory
	// is watched and events are filtered by name.
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}

	submit()
	bench.Flush()
	a.log.Info("watching", "file", abs)

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != abs {
				continue
			}
			if event.Has(fsnotify.Write | fsnotify.Create) {
				submit()
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			a.log.Warn("watcher error", "error", err)
		}
	}
}

func printUpdate(w io.Writer, up jwtdebug.Update) {
	fmt.Fprintf(w, "--- #%d %s\n", up.Generation, time.Now().Format(time.TimeOnly))
	if up.Err != nil {
		fmt.Fprintf(w, "FAIL  [%s] %v\n", jwtdebug.CodeOf(up.Err), up.Err)
		return
	}
	if up.Token != nil {
		printToken(w, up.Token)
	}
	if up.Summary != nil {
		printSummary(w, *up.Summary)
	}
	if up.Verification != nil {
		printResult(w, *up.Verification)
	}
}
