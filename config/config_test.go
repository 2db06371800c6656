package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestServiceConfigApplyDefaults(t *testing.T) {
	t.Run("empty config gets development defaults", func(t *testing.T) {
		cfg := ServiceConfig{}
		cfg.ApplyDefaults()
		if cfg.Name != "hollowfoot" {
			t.Errorf("expected name 'hollowfoot', got %q", cfg.Name)
		}
		if cfg.Environment != "development" {
			t.Errorf("expected 'development', got %q", cfg.Environment)
		}
		if !cfg.Debug {
			t.Error("expected debug=true for development")
		}
		if cfg.Logging.Level != "debug" {
			t.Errorf("expected debug log level, got %q", cfg.Logging.Level)
		}
		if cfg.Logging.ServiceName != "hollowfoot" {
			t.Errorf("expected logging service name to follow name, got %q", cfg.Logging.ServiceName)
		}
	})

	t.Run("production keeps debug false", func(t *testing.T) {
		cfg := ServiceConfig{Name: "svc", Environment: "production"}
		cfg.ApplyDefaults()
		if cfg.Debug {
			t.Error("expected debug=false for production")
		}
		if cfg.Logging.Level != "info" {
			t.Errorf("expected info log level, got %q", cfg.Logging.Level)
		}
	})
}

func TestServiceConfigValidate(t *testing.T) {
	valid := func() ServiceConfig {
		c := ServiceConfig{Name: "svc", Environment: "staging"}
		c.ApplyDefaults()
		return c
	}

	tests := []struct {
		name    string
		mutate  func(*ServiceConfig)
		wantErr string
	}{
		{"valid", func(*ServiceConfig) {}, ""},
		{"missing name", func(c *ServiceConfig) { c.Name = "" }, "config.name is required"},
		{"invalid environment", func(c *ServiceConfig) { c.Environment = "qa" }, "config.environment must be one of"},
		{"invalid log level", func(c *ServiceConfig) { c.Logging.Level = "loud" }, "config.logging"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := valid()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.wantErr == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("expected error containing %q, got %q", tc.wantErr, err.Error())
			}
		})
	}
}

func TestConfigApplyDefaults(t *testing.T) {
	cfg := Config{}
	cfg.Tracing.Enabled = true
	cfg.Metrics.Enabled = true
	cfg.ApplyDefaults()

	if len(cfg.Engine.RecipeDirs) != 1 || cfg.Engine.RecipeDirs[0] != "." {
		t.Errorf("unexpected recipe dirs: %v", cfg.Engine.RecipeDirs)
	}
	if cfg.Tracing.Endpoint != "localhost:4318" || cfg.Tracing.SampleRate != 1.0 {
		t.Errorf("unexpected tracing defaults: %+v", cfg.Tracing)
	}
	if cfg.Metrics.Interval != 15*time.Second {
		t.Errorf("unexpected metrics interval: %v", cfg.Metrics.Interval)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestConfigValidateSections(t *testing.T) {
	t.Run("sample rate out of range", func(t *testing.T) {
		cfg := Config{}
		cfg.ApplyDefaults()
		cfg.Tracing.SampleRate = 2
		if err := cfg.Validate(); err == nil {
			t.Error("expected sample rate error")
		}
	})

	t.Run("duplicate recipe dirs", func(t *testing.T) {
		cfg := Config{}
		cfg.ApplyDefaults()
		cfg.Engine.RecipeDirs = []string{"a", "a"}
		if err := cfg.Validate(); err == nil {
			t.Error("expected unique error")
		}
	})
}

func TestObservabilityConversion(t *testing.T) {
	cfg := Config{ServiceConfig: ServiceConfig{Name: "hf", Version: "1.2.3", Environment: "staging"}}
	cfg.Tracing = Tracing{Enabled: true, Endpoint: "otel:4318", Insecure: true, SampleRate: 0.5}
	cfg.Metrics = Metrics{Enabled: true, Endpoint: "otel:4318", Interval: time.Minute}

	tc := cfg.TracerConfig()
	if tc.ServiceName != "hf" || tc.ServiceVersion != "1.2.3" || tc.SampleRate != 0.5 || !tc.Insecure {
		t.Errorf("unexpected tracer config: %+v", tc)
	}
	mc := cfg.MeterConfig()
	if mc.Endpoint != "otel:4318" || mc.Interval != time.Minute {
		t.Errorf("unexpected meter config: %+v", mc)
	}
}

func TestLoadConfigWithYAML(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "hollowfoot.yaml")

	yamlContent := `
name: test-service
environment: staging
engine:
  eager: true
  recipe_dirs: [recipes, shared]
tracing:
  enabled: true
  endpoint: collector:4318
  sample_rate: 0.25
metrics:
  interval: 30s
`
	if err := os.WriteFile(configPath, []byte(yamlContent), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	var cfg Config
	if err := LoadConfig("hollowfoot", &cfg, WithConfigFile(configPath)); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Name != "test-service" {
		t.Errorf("expected name 'test-service', got %q", cfg.Name)
	}
	if cfg.Environment != "staging" {
		t.Errorf("expected environment 'staging', got %q", cfg.Environment)
	}
	if !cfg.Engine.Eager {
		t.Error("expected engine.eager=true")
	}
	if len(cfg.Engine.RecipeDirs) != 2 || cfg.Engine.RecipeDirs[1] != "shared" {
		t.Errorf("unexpected recipe dirs: %v", cfg.Engine.RecipeDirs)
	}
	if cfg.Tracing.Endpoint != "collector:4318" || cfg.Tracing.SampleRate != 0.25 {
		t.Errorf("unexpected tracing: %+v", cfg.Tracing)
	}
	if cfg.Metrics.Interval != 30*time.Second {
		t.Errorf("unexpected metrics interval: %v", cfg.Metrics.Interval)
	}
}

func TestLoadConfigEnvOverride(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "hollowfoot.yaml")
	if err := os.WriteFile(configPath, []byte("name: from-file\nengine:\n  eager: false\n"), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	t.Setenv("HOLLOWFOOT_ENGINE_EAGER", "true")
	t.Setenv("HOLLOWFOOT_ENGINE_FREEZE_REGISTRY", "true")
	t.Setenv("HOLLOWFOOT_NAME", "from-env")

	var cfg Config
	if err := LoadConfig("hollowfoot", &cfg, WithConfigFile(configPath)); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Name != "from-env" {
		t.Errorf("expected env to override name, got %q", cfg.Name)
	}
	if !cfg.Engine.Eager {
		t.Error("expected env to set engine.eager")
	}
	if !cfg.Engine.FreezeRegistry {
		t.Error("expected env to set engine.freeze_registry")
	}
}

func TestLoadConfigMissingExplicitFile(t *testing.T) {
	var cfg Config
	err := LoadConfig("hollowfoot", &cfg, WithConfigFile(filepath.Join(t.TempDir(), "absent.yaml")))
	if err == nil {
		t.Fatal("expected error for missing explicit config file")
	}
}

func TestResolverWithMockFS(t *testing.T) {
	fs := &mockFS{files: map[string]bool{
		filepath.Join("cmd", "hollowfoot", "config.yml"): true,
		".env": true,
	}}
	resolver := &Resolver{FileSystem: fs}
	files := resolver.ResolveFiles("hollowfoot", LoaderConfig{})
	if files.ConfigFile != filepath.Join("cmd", "hollowfoot", "config.yml") {
		t.Errorf("unexpected config file %q", files.ConfigFile)
	}
	if files.EnvFile != ".env" {
		t.Errorf("unexpected env file %q", files.EnvFile)
	}

	explicit := resolver.ResolveFiles("hollowfoot", LoaderConfig{ConfigFile: "x.yaml"})
	if explicit.ConfigFile != "x.yaml" {
		t.Errorf("explicit path not kept: %q", explicit.ConfigFile)
	}
}

func TestEnvKeyVariants(t *testing.T) {
	got := envKeyVariants("ENGINE_RECIPE_DIRS")
	want := []string{"engine_recipe_dirs", "engine.recipe_dirs", "engine.recipe.dirs"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("variant %d: expected %q, got %q", i, want[i], got[i])
		}
	}

	if single := envKeyVariants("NAME"); len(single) != 1 || single[0] != "name" {
		t.Errorf("unexpected single-part variants: %v", single)
	}
}

type mockFS struct {
	files map[string]bool
}

func (m *mockFS) Exists(path string) bool  { return m.files[path] }
func (m *mockFS) LoadEnv(path string) error { return nil }

func TestLoaderOptions(t *testing.T) {
	var lc LoaderConfig
	WithFileSystem(&mockFS{})(&lc)
	WithConfigFile("/path/to/config.yml")(&lc)
	WithEnvFile("/path/to/.env")(&lc)
	if lc.FileSystem == nil {
		t.Error("expected FileSystem to be set")
	}
	if lc.ConfigFile != "/path/to/config.yml" {
		t.Errorf("expected config file path, got %q", lc.ConfigFile)
	}
	if lc.EnvFile != "/path/to/.env" {
		t.Errorf("expected env file path, got %q", lc.EnvFile)
	}
}
