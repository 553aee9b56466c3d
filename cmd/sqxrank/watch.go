package main

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/okian/sqxrank/pkg/logger"
)

const defaultSettle = 500 * time.Millisecond

func (c *cli) newWatchCmd() *cobra.Command {
	f := &rankFlags{}
	var settle time.Duration
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Rank once, then again every time the export changes",
		Long: `Rank once, then again every time the databank export is rewritten.
Runs never overlap: changes arriving during a run are handled after it.
Stop with Ctrl+C.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := f.apply(c, cmd); err != nil {
				return err
			}
			return c.watch(cmd, f, settle)
		},
	}
	f.register(cmd)
	cmd.Flags().DurationVar(&settle, "settle", defaultSettle, "quiet period after the last change before ranking")
	return cmd
}

func (c *cli) watch(cmd *cobra.Command, f *rankFlags, settle time.Duration) error {
	ctx := cmd.Context()
	input, err := filepath.Abs(c.cfg.InputPath)
	if err != nil {
		return fmt.Errorf("resolve input: %w", err)
	}
	c.cfg.InputPath = input

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	// The directory is watched so exports replaced by rename are seen too.
	if err := watcher.Add(filepath.Dir(input)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(input), err)
	}
	c.log.Info(ctx, "watching export", logger.String("path", input), logger.Duration("settle", settle))

	c.runOnce(ctx, cmd, f)
	return c.loop(ctx, watcher, input, settle, func() { c.runOnce(ctx, cmd, f) })
}

// loop calls run once per burst of changes to input, after settle has
// passed without further events. It returns when ctx is done.
func (c *cli) loop(ctx context.Context, w *fsnotify.Watcher, input string, settle time.Duration, run func()) error {
	timer := time.NewTimer(settle)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			c.log.Info(ctx, "watch stopped")
			return nil

		case event, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != input {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			c.log.Debug(ctx, "export changed", logger.String("op", event.Op.String()))
			timer.Reset(settle)

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			c.log.Warn(ctx, "watcher error", logger.Error(err))

		case <-timer.C:
			run()
		}
	}
}

// runOnce ranks and reports; failures are logged so watching continues.
func (c *cli) runOnce(ctx context.Context, cmd *cobra.Command, f *rankFlags) {
	if err := c.rank(cmd, f); err != nil {
		c.log.Warn(ctx, "waiting for the next change")
	}
}
