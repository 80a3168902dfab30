package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/docassist/internal/config"
	"github.com/kailas-cloud/docassist/internal/db/file"
	"github.com/kailas-cloud/docassist/internal/db/memory"
	dbRedis "github.com/kailas-cloud/docassist/internal/db/redis"
	logpkg "github.com/kailas-cloud/docassist/internal/logger"
	"github.com/kailas-cloud/docassist/internal/metrics"
	"github.com/kailas-cloud/docassist/internal/repository/history"
	"github.com/kailas-cloud/docassist/internal/repository/resultcache"
	"github.com/kailas-cloud/docassist/internal/transport/auth"
	"github.com/kailas-cloud/docassist/internal/transport/backend"
	"github.com/kailas-cloud/docassist/internal/transport/stream"
	chatuc "github.com/kailas-cloud/docassist/internal/usecase/chat"
	healthuc "github.com/kailas-cloud/docassist/internal/usecase/health"
	searchuc "github.com/kailas-cloud/docassist/internal/usecase/search"
)

// tokenEnvVar is consulted when neither backend.token nor backend.token_file yields a token.
const tokenEnvVar = "DOCASSIST_TOKEN"

// globalFlags are shared by every command.
type globalFlags struct {
	env        string
	configPath string
	store      string
}

// app is the composition root shared by the gateway and the CLI commands.
type app struct {
	env     string
	cfg     config.Config
	logger  *zap.Logger
	history *history.Store
	cache   *resultcache.Cache
	backend *backend.Client
	stream  *stream.Client
	checks  map[string]healthuc.Pinger
	closers []func()
}

func newApp(ctx context.Context, f globalFlags) (*app, error) {
	env := f.env
	if env == "" {
		env = config.GetEnv()
	}

	var (
		cfg config.Config
		err error
	)
	if f.configPath != "" {
		if err = config.LoadDotEnv(".env"); err == nil {
			cfg, err = config.LoadFile(f.configPath)
		}
	} else {
		cfg, err = config.Load(env)
	}
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if f.store != "" {
		cfg.History.Driver = f.store
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("invalid --store: %w", err)
		}
	}

	logger, err := logpkg.NewLogger(env, logpkg.Options{Level: cfg.Logging.Level, File: cfg.Logging.File})
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}

	a := &app{env: env, cfg: cfg, logger: logger, checks: map[string]healthuc.Pinger{}}
	a.closers = append(a.closers, func() { _ = logger.Sync() })

	if err := a.openHistory(ctx); err != nil {
		a.Close()
		return nil, err
	}

	httpClient := newHTTPClient(time.Duration(cfg.Backend.DialTimeoutSec) * time.Second)
	tokens := a.tokenSource()

	a.backend, err = backend.New(backend.Config{
		BaseURL:    cfg.Backend.BaseURL,
		SearchPath: cfg.Backend.SearchPath,
		HTTPClient: httpClient,
		Tokens:     tokens,
		Logger:     logger,
	})
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("create backend client: %w", err)
	}
	a.stream, err = stream.New(stream.Config{
		BaseURL:    cfg.Backend.BaseURL,
		HTTPClient: httpClient,
		Tokens:     tokens,
		Logger:     logger,
	})
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("create stream client: %w", err)
	}

	a.cache = resultcache.Default
	if ttl := cfg.Search.CacheTTL(); ttl != resultcache.DefaultTTL {
		a.cache = resultcache.New(ttl, nil, metrics.ResultCacheTotal)
	}
	return a, nil
}

// openHistory selects the slot driver for recent queries.
func (a *app) openHistory(ctx context.Context) error {
	hc := a.cfg.History
	var slot interface {
		Load(context.Context) ([]byte, error)
		Save(context.Context, []byte) error
	}

	switch hc.Driver {
	case config.DriverMemory:
		slot = memory.NewSlot()
	case config.DriverFile:
		path := hc.File
		if path == "" {
			p, err := file.DefaultPath()
			if err != nil {
				return fmt.Errorf("history file path: %w", err)
			}
			path = p
		}
		slot = file.NewSlot(path)
	case config.DriverRedis:
		store, err := dbRedis.NewStore(dbRedis.Config{Addrs: hc.Addrs, Password: hc.Password})
		if err != nil {
			return fmt.Errorf("create history store: %w", err)
		}
		a.closers = append(a.closers, store.Close)
		if err := store.WaitForReady(ctx, time.Duration(hc.ReadinessTimeout)*time.Second); err != nil {
			return fmt.Errorf("history store not ready: %w", err)
		}
		a.checks["history_store"] = store
		slot = store.Slot(hc.Slot)
	default:
		return fmt.Errorf("unknown history driver %q", hc.Driver)
	}

	a.history = history.New(slot, hc.Capacity, a.logger)
	a.logger.Debug("history store opened", zap.String("driver", hc.Driver))
	return nil
}

func (a *app) tokenSource() auth.TokenSource {
	chain := auth.Chain{auth.StaticToken(a.cfg.Backend.Token)}
	if a.cfg.Backend.TokenFile != "" {
		chain = append(chain, auth.FileToken(a.cfg.Backend.TokenFile))
	}
	return append(chain, auth.EnvToken(tokenEnvVar))
}

func (a *app) newOrchestrator() *searchuc.Orchestrator {
	return searchuc.New(a.backend, a.cache, a.history, searchuc.Config{
		PageSize:           a.cfg.Search.PageSize,
		Timeout:            a.cfg.Search.SearchTimeout(),
		IncludeAttachments: a.cfg.Search.IncludeAttachments,
	}, a.logger)
}

func (a *app) newChat() *chatuc.Service {
	return chatuc.New(a.stream, chatuc.Config{
		RAGPath:      a.cfg.Backend.RAGPath,
		AgentPath:    a.cfg.Backend.AgentPath,
		HistoryTurns: a.cfg.Chat.HistoryTurns,
		Timeout:      a.cfg.Chat.StreamTimeout(),
	}, a.logger)
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// newHTTPClient has no overall timeout: search and chat set their own deadlines and streams stay open.
func newHTTPClient(dialTimeout time.Duration) *http.Client {
	tr := http.DefaultTransport.(*http.Transport).Clone()
	tr.DialContext = (&net.Dialer{Timeout: dialTimeout, KeepAlive: 30 * time.Second}).DialContext
	return &http.Client{Transport: tr}
}
