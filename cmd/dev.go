package cmd

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/sourcegraph/conc/pool"
	"github.com/spf13/cobra"

	"github.com/conneroisu/devkit/internal/appctx"
	"github.com/conneroisu/devkit/internal/build"
	"github.com/conneroisu/devkit/internal/reload"
	"github.com/conneroisu/devkit/internal/watcher"
)

func newDevCommand(c *cli) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:     "dev",
		Aliases: []string{"w"},
		Short:   "Development build, rebuilt on every source change",
		Long: `Build in development mode, then watch the configured directories and
rebuild on every change. Each rebuild is copied into the vault's plugin
directory and announced to reload clients over a websocket.

Examples:
  devkit dev
  devkit dev --reload-addr 127.0.0.1:7357`,
		Args: cobra.NoArgs,
		RunE: c.run(func(ctx context.Context, app *appctx.Context, _ []string) error {
			if addr != "" {
				app.Config.Dev.ReloadAddr = addr
			}
			return runDev(ctx, app)
		}),
	}
	cmd.Flags().StringVar(&addr, "reload-addr", "", "serve reload notifications on host:port (overrides dev.reload_addr)")
	addFlagValidation(cmd.Flags(), "reload-addr", validateListenAddr)
	return cmd
}

// devSession rebuilds the project and tells reload clients about it.
type devSession struct {
	app     *appctx.Context
	builder *build.Builder
	hub     *reload.Hub
	plugin  string
}

func newDevSession(app *appctx.Context) *devSession {
	s := &devSession{
		app:     app,
		builder: newBuilder(app, build.ModeDevelopment),
	}
	if id, err := s.builder.PluginID(); err == nil {
		s.plugin = id
	}
	if app.Config.Dev.ReloadAddr != "" {
		s.hub = reload.NewHub(reload.DefaultOrigins, app.Logger)
	}
	return s
}

func runDev(ctx context.Context, app *appctx.Context) error {
	s := newDevSession(app)

	if err := s.builder.Build(ctx); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		s.report(err)
	}

	fw, err := watcher.NewFileWatcher(app.Project.Root(), app.Config.Dev.Debounce, app.Logger)
	if err != nil {
		return err
	}
	fw.AddFilter(watcher.NoGitFilter)
	fw.AddFilter(watcher.NoNodeModulesFilter)
	fw.AddFilter(watcher.NoOutputFilter(app.Config.Build.OutDir))
	fw.AddFilter(devFilter(app.Config.Build.StaticDir))
	fw.AddHandler(s.rebuild)
	for _, dir := range app.Config.Dev.Watch {
		if err := fw.AddRecursive(dir); err != nil {
			return err
		}
	}

	p := pool.New().WithContext(ctx).WithCancelOnError()
	if s.hub != nil {
		p.Go(func(ctx context.Context) error {
			return s.hub.Serve(ctx, app.Config.Dev.ReloadAddr)
		})
	}
	p.Go(func(ctx context.Context) error {
		if err := fw.Start(ctx); err != nil {
			return err
		}
		app.Console.Info("Watching %s for changes (Ctrl+C stops)", strings.Join(app.Config.Dev.Watch, ", "))
		<-ctx.Done()
		return fw.Stop()
	})

	err = p.Wait()
	if ctx.Err() != nil {
		return nil
	}
	return err
}

// devFilter accepts bundle sources and anything under the static directory.
func devFilter(staticDir string) watcher.FileFilter {
	prefix := filepath.ToSlash(filepath.Clean(staticDir)) + "/"
	return func(path string) bool {
		return watcher.SourceFilter(path) || strings.HasPrefix(path, prefix)
	}
}

// rebuild is the watcher handler. Build failures are reported to the
// console and reload clients; the session keeps watching.
func (s *devSession) rebuild(ctx context.Context, events []watcher.ChangeEvent) error {
	s.app.Logger.Debug(ctx, "Rebuilding", "changes", len(events))

	if err := s.builder.Run(ctx, s.builder.RebuildSteps()...); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		s.report(err)
		s.broadcast(reload.Message{Type: reload.TypeBuildError, Error: err.Error()})
		return nil
	}

	snap := s.builder.Metrics().Snapshot()
	s.app.Console.Success("Rebuilt in %d ms (%d builds)", snap.LastDuration.Milliseconds(), snap.TotalBuilds)
	s.broadcast(reload.Message{Type: reload.TypeReload})
	return nil
}

func (s *devSession) report(err error) {
	s.app.Console.Fail("Build failed: %v", err)
	if d := diagnostics(err); d != "" {
		s.app.Console.Info("%s", d)
	}
}

func (s *devSession) broadcast(msg reload.Message) {
	if s.hub == nil {
		return
	}
	msg.Plugin = s.plugin
	msg.Timestamp = time.Now()
	s.hub.Broadcast(msg)
}
