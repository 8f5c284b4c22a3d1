package backend

import (
	"fmt"
	"net/http"
	"net/url"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/gettogather-api/pkg/config"
	"github.com/noah-isme/gettogather-api/pkg/database"
)

// Client groups the live collaborators of a configured backend.
type Client struct {
	DB      *sqlx.DB
	Auth    *GoTrue
	Storage Storage
}

// Handle is either configured, carrying a Client, or unconfigured, carrying the reason.
// Callers branch on Configured and never see a nil handle.
type Handle struct {
	client *Client
	reason string
}

// Unconfigured returns a handle that puts every consumer into mock/fallback mode.
func Unconfigured(reason string) Handle {
	return Handle{reason: reason}
}

// Configured wraps a live client.
func Configured(client *Client) Handle {
	if client == nil {
		return Unconfigured("nil client")
	}
	return Handle{client: client}
}

// Configured reports whether the backend is reachable from this process.
func (h Handle) Configured() bool {
	return h.client != nil
}

// Client returns the live client, or nil when unconfigured.
func (h Handle) Client() *Client {
	return h.client
}

// Reason explains why the handle is unconfigured.
func (h Handle) Reason() string {
	return h.reason
}

// Close releases the database pool if one was opened.
func (h Handle) Close() error {
	if h.client == nil || h.client.DB == nil {
		return nil
	}
	return h.client.DB.Close()
}

// Option customises Open.
type Option func(*openOptions)

type openOptions struct {
	logger     *zap.Logger
	httpClient *http.Client
	openDB     func(config.DatabaseConfig) (*sqlx.DB, error)
	storage    Storage
}

// WithLogger sets the logger used for degradation warnings.
func WithLogger(logger *zap.Logger) Option {
	return func(o *openOptions) { o.logger = logger }
}

// WithHTTPClient overrides the client used for auth and storage calls.
func WithHTTPClient(client *http.Client) Option {
	return func(o *openOptions) { o.httpClient = client }
}

// WithDBOpener replaces the database opener.
func WithDBOpener(fn func(config.DatabaseConfig) (*sqlx.DB, error)) Option {
	return func(o *openOptions) { o.openDB = fn }
}

// WithStorage replaces the storage driver selected from configuration.
func WithStorage(storage Storage) Option {
	return func(o *openOptions) { o.storage = storage }
}

// Open validates the backend configuration and connects. It never fails: any problem
// yields an unconfigured handle and a warning.
func Open(cfg *config.Config, opts ...Option) Handle {
	o := openOptions{logger: zap.NewNop(), openDB: database.NewPostgres}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}
	if o.httpClient == nil {
		o.httpClient = &http.Client{Timeout: cfg.Backend.Timeout}
	}

	if err := validate(cfg.Backend); err != nil {
		o.logger.Warn("backend not configured, running in mock mode", zap.Error(err))
		return Unconfigured(err.Error())
	}

	db, err := o.openDB(cfg.Database)
	if err != nil {
		o.logger.Warn("backend database unavailable, running in mock mode", zap.Error(err))
		return Unconfigured(fmt.Sprintf("open database: %v", err))
	}

	storage := o.storage
	if storage == nil {
		storage, err = NewStorage(cfg.Backend, cfg.Storage, cfg.PublicBaseURL, o.httpClient)
		if err != nil {
			o.logger.Warn("object storage unavailable, image uploads disabled", zap.Error(err))
			storage = nil
		}
	}

	return Configured(&Client{
		DB:      db,
		Auth:    NewGoTrue(cfg.Backend, o.httpClient),
		Storage: storage,
	})
}

func validate(cfg config.BackendConfig) error {
	if config.IsPlaceholder(cfg.URL, config.PlaceholderSupabaseURL) {
		return fmt.Errorf("backend url is not set")
	}
	if config.IsPlaceholder(cfg.AnonKey, config.PlaceholderSupabaseAnonKey) {
		return fmt.Errorf("backend anon key is not set")
	}
	u, err := url.Parse(cfg.URL)
	if err != nil {
		return fmt.Errorf("parse backend url: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("backend url %q must be an absolute http(s) url", cfg.URL)
	}
	return nil
}
