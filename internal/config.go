package internal

import (
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/tabula/internal/datastore"
	"github.com/starford/tabula/internal/schema"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App     ApplicationConfig `yaml:"app"`
	Store   StoreConfig       `yaml:"store"`
	Uploads UploadsConfig     `yaml:"uploads"`
	Inbox   InboxConfig       `yaml:"inbox"`
	Ingest  IngestConfig      `yaml:"ingest"`
	Auth    AuthConfig        `yaml:"auth"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Store.Validate(); err != nil {
		return err
	}
	if err := c.Uploads.Validate(); err != nil {
		return err
	}
	if err := c.Ingest.Validate(); err != nil {
		return err
	}
	return c.Auth.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// StoreConfig selects and configures the dataset store backend.
type StoreConfig struct {
	Driver string       `yaml:"driver"`
	SQLite SQLiteConfig `yaml:"sqlite"`
	Mongo  MongoConfig  `yaml:"mongo"`
}

// Validate validates the store configuration. Only the selected backend
// must be complete.
func (c *StoreConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Driver, validation.Required, validation.In(datastore.DriverSQLite, datastore.DriverMongo)),
	); err != nil {
		return err
	}
	if c.Driver == datastore.DriverMongo {
		return c.Mongo.Validate()
	}
	return c.SQLite.Validate()
}

// SQLiteConfig holds SQLite database configuration.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the SQLite configuration.
func (c *SQLiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// MongoConfig holds MongoDB connection configuration.
type MongoConfig struct {
	URI      string        `yaml:"uri"`
	Database string        `yaml:"database"`
	Timeout  time.Duration `yaml:"timeout"`
}

// Validate validates the MongoDB configuration.
func (c *MongoConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.URI, validation.Required),
		validation.Field(&c.Database, validation.Required),
		validation.Field(&c.Timeout, validation.Min(time.Duration(0))),
	)
}

// UploadsConfig holds where uploaded files are kept and how large they may be.
type UploadsConfig struct {
	Path     string `yaml:"path"`
	MaxBytes int64  `yaml:"max_bytes"`
}

// Validate validates the uploads configuration.
func (c *UploadsConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
		validation.Field(&c.MaxBytes, validation.Min(int64(0))),
	)
}

// InboxConfig holds the watched drop folder. An empty Path disables it.
type InboxConfig struct {
	Path string `yaml:"path"`
}

// Enabled reports whether a drop folder is configured.
func (c *InboxConfig) Enabled() bool {
	return c.Path != ""
}

// IngestConfig tunes schema inference.
type IngestConfig struct {
	SampleSize      int    `yaml:"sample_size"`
	ColumnDiscovery string `yaml:"column_discovery"`
}

// Validate validates the ingest configuration.
func (c *IngestConfig) Validate() error {
	if c.ColumnDiscovery == "" {
		c.ColumnDiscovery = string(schema.DiscoverFirstRecord)
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.SampleSize, validation.Min(0)),
		validation.Field(&c.ColumnDiscovery, validation.In(
			string(schema.DiscoverFirstRecord), string(schema.DiscoverSampleUnion))),
	)
}

// SchemaOptions converts the settings into inference options.
func (c *IngestConfig) SchemaOptions() schema.Options {
	return schema.Options{
		SampleSize: c.SampleSize,
		Discovery:  schema.Discovery(c.ColumnDiscovery),
	}
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local dev.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 5000,
			},
		},
		Store: StoreConfig{
			Driver: datastore.DriverSQLite,
			SQLite: SQLiteConfig{
				Path: "./tabula.db",
			},
			Mongo: MongoConfig{
				Database: "tabula",
				Timeout:  10 * time.Second,
			},
		},
		Uploads: UploadsConfig{
			Path:     "./uploads",
			MaxBytes: 50 << 20,
		},
		Ingest: IngestConfig{
			SampleSize:      schema.DefaultSampleSize,
			ColumnDiscovery: string(schema.DiscoverFirstRecord),
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
	}
}
