package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dmitrijs2005/anonify/internal/client/api"
	"github.com/dmitrijs2005/anonify/internal/client/archive"
	"github.com/dmitrijs2005/anonify/internal/client/attachment"
	"github.com/dmitrijs2005/anonify/internal/client/config"
	"github.com/dmitrijs2005/anonify/internal/client/directory"
	"github.com/dmitrijs2005/anonify/internal/client/models"
	"github.com/dmitrijs2005/anonify/internal/client/redaction"
	"github.com/dmitrijs2005/anonify/internal/client/repositories/results"
	"github.com/dmitrijs2005/anonify/internal/client/services"
	"github.com/dmitrijs2005/anonify/internal/client/session"
	"github.com/dmitrijs2005/anonify/internal/client/storage"
	"github.com/dmitrijs2005/anonify/internal/client/workflow"
	"github.com/dmitrijs2005/anonify/internal/logging"
	"github.com/dmitrijs2005/anonify/internal/netx"
	"github.com/jonboulle/clockwork"
)

type Mode string

const (
	ModeOnline  Mode = "online"
	ModeOffline Mode = "offline"
)

// archiveTimeout bounds a single archive upload.
const archiveTimeout = 30 * time.Second

// baseTransport is the transport under the session guard. Tests may swap it.
var baseTransport http.RoundTripper = http.DefaultTransport

type App struct {
	config   *config.Config
	log      logging.Logger
	repos    *storage.Repositories
	store    *session.Store
	guard    *session.Guard
	api      api.Client
	auth     services.AuthService
	dir      *directory.Directory
	engine   *workflow.Engine
	results  results.Repository
	previews *attachment.TempFilePreviewer
	reader   *bufio.Reader
	out      *syncWriter

	userName     string
	sessionEnded atomic.Bool
	unsubscribe  func()

	modeMu sync.Mutex
	mode   Mode
}

// NewApp opens the local database and wires the session, API client and
// workflow engine from c. Output goes to out; prompts read from in.
func NewApp(ctx context.Context, c *config.Config, log logging.Logger, in io.Reader, out io.Writer) (*App, error) {
	if log == nil {
		log = logging.Nop()
	}

	repos, err := storage.Open(ctx, c.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("error initializing database: %w", err)
	}

	store, err := session.NewStore(ctx, repos.Metadata)
	if err != nil {
		_ = repos.Close()
		return nil, err
	}

	guard := session.NewGuard(store, baseTransport, clockwork.NewRealClock(), log)
	apiClient, err := api.NewHTTPClient(c.ServerURL, guard, c.RequestTimeout)
	if err != nil {
		_ = repos.Close()
		return nil, err
	}

	previews := attachment.NewTempFilePreviewer(filepath.Join(os.TempDir(), "anonify-previews"))
	dir := directory.New(apiClient)

	opts := []workflow.Option{
		workflow.WithLogger(log),
		workflow.WithPreviewer(previews),
		workflow.WithRunnerConfig(redaction.Config{
			ReplyDelay: c.ReplyDelay,
			Options: models.RedactOptions{
				ConfidenceThreshold: c.ConfidenceThreshold,
				ReturnImage:         c.ReturnImage,
			},
		}),
	}

	arch, err := openArchive(ctx, c)
	if err != nil {
		_ = repos.Close()
		return nil, err
	}
	if arch != nil {
		rec := &archive.Recorder{
			Archive: arch,
			Results: repos.Results,
			Fetch:   fetchImage,
			Log:     log,
			Timeout: archiveTimeout,
		}
		opts = append(opts, workflow.WithResultHook(rec.Record))
	}

	a := &App{
		config:   c,
		log:      log,
		repos:    repos,
		store:    store,
		guard:    guard,
		api:      apiClient,
		auth:     services.NewAuthService(apiClient, store, repos.Metadata, log),
		dir:      dir,
		engine:   workflow.NewEngine(apiClient, dir, opts...),
		results:  repos.Results,
		previews: previews,
		reader:   bufio.NewReader(in),
		out:      &syncWriter{w: out},
	}
	a.unsubscribe = store.OnCleared(a.onSessionCleared)
	return a, nil
}

// openArchive returns the configured result archive, or nil when archiving
// is off. S3 wins over a local directory.
func openArchive(ctx context.Context, c *config.Config) (archive.Archive, error) {
	switch {
	case c.S3Bucket != "":
		return archive.NewS3Archive(ctx, archive.S3Config{
			Bucket:    c.S3Bucket,
			Region:    c.S3Region,
			Endpoint:  c.S3Endpoint,
			AccessKey: c.S3AccessKey,
			SecretKey: c.S3SecretKey,
		})
	case c.ArchiveDir != "":
		return archive.NewFileArchive(c.ArchiveDir)
	default:
		return nil, nil
	}
}

// fetchImage downloads redacted images the backend returns by URL. Those
// URLs point at object storage and take no credential.
func fetchImage(ctx context.Context, url string) ([]byte, string, error) {
	return netx.Download(ctx, nil, url, attachment.MaxFileSize)
}

// Close releases the engine, the API client and the database.
func (a *App) Close(ctx context.Context) error {
	if a.unsubscribe != nil {
		a.unsubscribe()
	}
	a.engine.Close()
	_ = a.auth.Close(ctx)
	return a.repos.Close()
}

// Run starts the interactive client and blocks until the user exits.
func (a *App) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if a.config.HealthCheckInterval > 0 {
		go a.StartHealthWatcher(ctx, a.config.HealthCheckInterval)
	}
	a.Root(ctx)
}

// RequireSession fails fast, without a request, when there is no usable
// credential. An expired credential is cleared on the way.
func (a *App) RequireSession(ctx context.Context) error {
	if err := a.guard.Require(ctx); err != nil {
		a.println("Not logged in. Run: anonify login")
		return err
	}
	return nil
}

func (a *App) isLoggedIn() bool {
	return a.store.Token() != ""
}

func (a *App) println(args ...any) {
	fmt.Fprintln(a.out, args...)
}

func (a *App) printf(format string, args ...any) {
	fmt.Fprintf(a.out, format, args...)
}

// onSessionCleared runs on every session reset. The REPLs notice the flag
// and return to the login prompt.
func (a *App) onSessionCleared(reason session.Reason) {
	a.sessionEnded.Store(true)
	a.log.Info(context.Background(), "session ended", "reason", string(reason))
	if reason != session.ReasonLogout {
		a.printf("Session ended (%s). Please log in again.\n", reason)
	}
}

func (a *App) currentMode() Mode {
	a.modeMu.Lock()
	defer a.modeMu.Unlock()
	return a.mode
}

func (a *App) setMode(mode Mode) {
	a.modeMu.Lock()
	changed := a.mode != mode
	a.mode = mode
	a.modeMu.Unlock()

	if changed {
		a.log.Info(context.Background(), "connectivity changed", "mode", string(mode))
	}
}

// StartHealthWatcher pings the backend every interval and records whether it
// is reachable. It returns when ctx is done.
func (a *App) StartHealthWatcher(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			a.checkHealth(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (a *App) checkHealth(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	if err := a.auth.Ping(ctx); err != nil {
		a.setMode(ModeOffline)
		return
	}
	a.setMode(ModeOnline)
}

// syncWriter serializes writes; delayed replies print from timer goroutines.
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}
