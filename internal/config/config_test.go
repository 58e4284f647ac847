package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return configPath
}

func TestLoad_ValidConfig(t *testing.T) {
	content := `
device:
  name: "greenhouse"
  board: "esp32dev"
  listen:
    host: "0.0.0.0"
    port: 6053
entities:
  - name: "temp"
    kind: "sensor"
  - name: "relay"
    kind: "switch"
database:
  path: "/tmp/test.db"
  wal_mode: true
  busy_timeout: 5
`
	cfg, err := Load(writeConfig(t, content))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Device.Name != "greenhouse" {
		t.Errorf("Device.Name = %q, want %q", cfg.Device.Name, "greenhouse")
	}
	if cfg.Database.Path != "/tmp/test.db" {
		t.Errorf("Database.Path = %q, want %q", cfg.Database.Path, "/tmp/test.db")
	}
	if len(cfg.Entities) != 2 {
		t.Fatalf("len(Entities) = %d, want 2", len(cfg.Entities))
	}
	if cfg.Entities[1].Kind != "switch" {
		t.Errorf("Entities[1].Kind = %q, want %q", cfg.Entities[1].Kind, "switch")
	}
	if cfg.ListenAddr() != "0.0.0.0:6053" {
		t.Errorf("ListenAddr() = %q", cfg.ListenAddr())
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, `device: {name: "node"}`))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Device.Listen.Port != 6053 {
		t.Errorf("default listen port = %d, want 6053", cfg.Device.Listen.Port)
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Format != "json" {
		t.Errorf("default logging = %+v", cfg.Logging)
	}
	if !cfg.History.Enabled || cfg.History.RetentionDays != 30 {
		t.Errorf("default history = %+v", cfg.History)
	}
	if cfg.MQTT.Enabled {
		t.Error("mqtt mirror enabled by default")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("Load() expected error for missing file, got nil")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "invalid: [yaml: content"))
	if err == nil {
		t.Error("Load() expected error for invalid YAML, got nil")
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("NODELINK_DEVICE_PASSWORD", "from-env")
	t.Setenv("NODELINK_DATABASE_PATH", "/env/db.sqlite")

	cfg, err := Load(writeConfig(t, `
device:
  name: "node"
  password: "from-file"
database:
  path: "/file/db.sqlite"
`))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Device.Password != "from-env" {
		t.Errorf("Device.Password = %q, want env override", cfg.Device.Password)
	}
	if cfg.Database.Path != "/env/db.sqlite" {
		t.Errorf("Database.Path = %q, want env override", cfg.Database.Path)
	}
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config { return defaultConfig() }

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:    "defaults are valid",
			mutate:  func(*Config) {},
			wantErr: false,
		},
		{
			name:    "missing device name",
			mutate:  func(c *Config) { c.Device.Name = "" },
			wantErr: true,
		},
		{
			name:    "listen port out of range",
			mutate:  func(c *Config) { c.Device.Listen.Port = 70000 },
			wantErr: true,
		},
		{
			name: "unknown entity kind",
			mutate: func(c *Config) {
				c.Entities = []EntityConfig{{Name: "x", Kind: "thermostat"}}
			},
			wantErr: true,
		},
		{
			name: "duplicate entity",
			mutate: func(c *Config) {
				c.Entities = []EntityConfig{
					{Name: "temp", Kind: "sensor"},
					{Name: "temp", Kind: "sensor"},
				}
			},
			wantErr: true,
		},
		{
			name: "same name different kind is fine",
			mutate: func(c *Config) {
				c.Entities = []EntityConfig{
					{Name: "porch", Kind: "light"},
					{Name: "porch", Kind: "binary_sensor"},
				}
			},
			wantErr: false,
		},
		{
			name: "history without database path",
			mutate: func(c *Config) {
				c.History.Enabled = true
				c.Database.Path = ""
			},
			wantErr: true,
		},
		{
			name: "mqtt enabled without host",
			mutate: func(c *Config) {
				c.MQTT.Enabled = true
				c.MQTT.Broker.Host = ""
			},
			wantErr: true,
		},
		{
			name: "influx enabled without token",
			mutate: func(c *Config) {
				c.InfluxDB.Enabled = true
				c.InfluxDB.URL = "http://localhost:8086"
				c.InfluxDB.Org = "org"
				c.InfluxDB.Bucket = "bucket"
			},
			wantErr: true,
		},
		{
			name: "influx fully configured",
			mutate: func(c *Config) {
				c.InfluxDB.Enabled = true
				c.InfluxDB.URL = "http://localhost:8086"
				c.InfluxDB.Token = "secret"
				c.InfluxDB.Org = "org"
				c.InfluxDB.Bucket = "bucket"
			},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
