package commands

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.trai.ch/zerr"
	"go.uber.org/zap"

	"github.com/Dicklesworthstone/treenav/pkg/export"
	"github.com/Dicklesworthstone/treenav/pkg/loader"
	"github.com/Dicklesworthstone/treenav/pkg/watcher"
)

const shutdownTimeout = 5 * time.Second

func (c *CLI) newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the tree as a live-reloading HTML page",
		Long: "Serve the tree as an HTML page. The page is rebuilt from the data\n" +
			"files on every request, and open browsers reload when the data or\n" +
			"the saved expand state changes.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			addr, _ := cmd.Flags().GetString("addr")
			title, _ := cmd.Flags().GetString("title")

			sess, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer sess.Close()
			ctx := cmd.Context()

			hub := export.NewLiveReloadHub()
			defer hub.Stop()

			if sess.cfg.Watch.Enabled {
				stop := watchForPreview(ctx, sess, hub)
				defer stop()
			}

			ln, err := net.Listen("tcp", addr)
			if err != nil {
				return zerr.With(zerr.Wrap(err, "listen"), "addr", addr)
			}
			srv := &http.Server{
				Handler:           previewHandler(sess, hub, title),
				ReadHeaderTimeout: 10 * time.Second,
			}
			cmd.Printf("Serving tree at http://%s\n", ln.Addr())
			sess.log.Info("preview server started", zap.String("addr", ln.Addr().String()))

			errCh := make(chan error, 1)
			go func() { errCh <- srv.Serve(ln) }()

			select {
			case err := <-errCh:
				return zerr.Wrap(err, "serve")
			case <-ctx.Done():
			}

			// Event streams only end when the hub stops.
			hub.Stop()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				return zerr.Wrap(err, "shutdown")
			}
			if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
				return zerr.Wrap(err, "serve")
			}
			return nil
		},
	}
	cmd.Flags().String("addr", "127.0.0.1:7070", "Listen address")
	cmd.Flags().String("title", "", "Page title")
	return cmd
}

func previewHandler(sess *session, hub *export.LiveReloadHub, title string) http.Handler {
	page := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		content, err := renderPreview(r.Context(), sess, title)
		if err != nil {
			sess.log.Warn("rendering preview", zap.Error(err))
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = io.WriteString(w, content)
	})

	mux := http.NewServeMux()
	mux.Handle("/", export.WithLiveReload(page))
	mux.Handle(export.EventsPath, hub.SSEHandler())
	return mux
}

// renderPreview reloads the data files so the page reflects edits made
// since the server started.
func renderPreview(ctx context.Context, sess *session, title string) (string, error) {
	forest, err := loader.LoadForests(ctx, sess.paths)
	if err != nil {
		return "", err
	}
	f, err := newFlattener(ctx, sess, forest)
	if err != nil {
		return "", err
	}
	hash, err := f.Forest().Hash()
	if err != nil {
		return "", err
	}
	return export.GenerateHTML(f.Forest(), export.HTMLOptions{Title: title, DataHash: hash})
}

// watchForPreview notifies the hub when the data files or the saved state
// change. The returned function stops watching.
func watchForPreview(ctx context.Context, sess *session, hub *export.LiveReloadHub) func() {
	paths := append([]string{sess.cfg.StatePath()}, sess.paths...)
	w, err := watcher.NewWatcher(paths,
		watcher.WithDebounceDuration(sess.cfg.Watch.Debounce),
		watcher.WithLogger(sess.log),
	)
	if err == nil {
		err = w.Start()
	}
	if err != nil {
		sess.log.Warn("live reload disabled", zap.Error(err))
		if w != nil {
			w.Stop()
		}
		return func() {}
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case <-ctx.Done():
				return
			case <-w.Changed():
				sess.log.Info("tree changed, reloading preview", zap.Int("clients", hub.ClientCount()))
				hub.Notify()
			}
		}
	}()
	return func() {
		cancel()
		<-done
		w.Stop()
	}
}
