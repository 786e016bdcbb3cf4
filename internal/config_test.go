package internal

import (
	"strings"
	"testing"
)

func TestAuthConfig_DisabledMode(t *testing.T) {
	cfg := AuthConfig{Mode: "disabled", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("disabled mode should pass: %v", err)
	}
	if cfg.AuthEnabled() {
		t.Error("disabled mode should not be enabled")
	}
}

func TestAuthConfig_EmptyModeDefaultsDisabled(t *testing.T) {
	cfg := AuthConfig{Mode: "", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty mode should default to disabled: %v", err)
	}
	if cfg.Mode != AuthModeDisabled {
		t.Errorf("mode = %q, want %q", cfg.Mode, AuthModeDisabled)
	}
}

func TestAuthConfig_TokenModeValid(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: "mysecret"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("token mode with token should pass: %v", err)
	}
	if !cfg.AuthEnabled() {
		t.Error("token mode should be enabled")
	}
}

func TestAuthConfig_TokenModeEmptyToken(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: ""}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("token mode with empty token should fail")
	}
	if !strings.Contains(err.Error(), "token is empty") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestAuthConfig_InvalidMode(t *testing.T) {
	cfg := AuthConfig{Mode: "magic", Token: "x"}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("invalid mode should fail validation")
	}
}

func TestFullConfig_AuthValidationCalled(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Auth.Mode = "token"
	cfg.Auth.Token = ""
	err := cfg.Validate()
	if err == nil {
		t.Fatal("full config validate should catch auth error")
	}
}

func TestDefaultConfig_Valid(t *testing.T) {
	cfg := NewDefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should be valid: %v", err)
	}
	if cfg.Inbox.Enabled() {
		t.Error("inbox should be disabled by default")
	}
}

func TestStoreConfig_Driver(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Store.Driver = "postgres"
	if err := cfg.Validate(); err == nil {
		t.Fatal("unknown driver should fail validation")
	}
}

func TestStoreConfig_MongoRequiresURI(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Store.Driver = "mongo"
	if err := cfg.Validate(); err == nil {
		t.Fatal("mongo without uri should fail validation")
	}
	cfg.Store.Mongo.URI = "mongodb://localhost:27017"
	cfg.Store.SQLite.Path = ""
	if err := cfg.Validate(); err != nil {
		t.Fatalf("mongo config should pass without sqlite path: %v", err)
	}
}

func TestIngestConfig(t *testing.T) {
	cfg := IngestConfig{}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty ingest config should pass: %v", err)
	}
	if cfg.ColumnDiscovery != "first_record" {
		t.Errorf("discovery = %q, want first_record", cfg.ColumnDiscovery)
	}

	cfg = IngestConfig{SampleSize: 50, ColumnDiscovery: "sample_union"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("sample_union should pass: %v", err)
	}
	opts := cfg.SchemaOptions()
	if opts.SampleSize != 50 || string(opts.Discovery) != "sample_union" {
		t.Errorf("options = %+v", opts)
	}

	cfg = IngestConfig{ColumnDiscovery: "every_row"}
	if err := cfg.Validate(); err == nil {
		t.Error("unknown discovery should fail validation")
	}
	cfg = IngestConfig{SampleSize: -1}
	if err := cfg.Validate(); err == nil {
		t.Error("negative sample size should fail validation")
	}
}

func TestUploadsConfig_RequiresPath(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Uploads.Path = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("empty uploads path should fail validation")
	}
}
