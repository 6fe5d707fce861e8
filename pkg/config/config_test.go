package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "slotwatch.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

const sampleConfig = `
poll_period: 3m
failure_cooldown: 90m
redis:
  enabled: true
  addr: redis:6379
targets:
  - name: Shipt 99 Ranch
    kind: shipt
    store: 99 Ranch
    account: shipt-main
  - name: Costco
    kind: costco
    zip_code: "95134"
`

func TestLoad_ReadsFileAndDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleConfig))
	require.NoError(t, err)

	assert.Equal(t, 3*time.Minute, cfg.PollPeriod)
	assert.Equal(t, 90*time.Minute, cfg.FailureCooldown)
	assert.Equal(t, 10*time.Second, cfg.InitialDelay)
	assert.Equal(t, "8080", cfg.ServerPort)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, "redis:6379", cfg.Redis.Addr)
	assert.Equal(t, "creds", cfg.Credentials.Dir)

	require.Len(t, cfg.Targets, 2)
	assert.Equal(t, TargetConfig{Name: "Shipt 99 Ranch", Kind: KindShipt, Store: "99 Ranch", Account: "shipt-main"}, cfg.Targets[0])
	assert.Equal(t, "95134", cfg.Targets[1].ZipCode)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	t.Setenv("SLOTWATCH_POLL_PERIOD", "45s")
	t.Setenv("SLOTWATCH_REDIS_ADDR", "cache:6380")

	cfg, err := Load(writeConfig(t, sampleConfig))
	require.NoError(t, err)

	assert.Equal(t, 45*time.Second, cfg.PollPeriod)
	assert.Equal(t, "cache:6380", cfg.Redis.Addr)
}

func TestLoad_MissingFileStillValidates(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least one target")
}

func TestValidate(t *testing.T) {
	base := func() Config {
		return Config{
			PollPeriod: time.Minute,
			Targets:    []TargetConfig{{Name: "Weee", Kind: KindWeee}},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"zero period", func(c *Config) { c.PollPeriod = 0 }, "poll_period"},
		{"unknown kind", func(c *Config) { c.Targets[0].Kind = "amazon" }, "unknown kind"},
		{"missing store", func(c *Config) { c.Targets[0] = TargetConfig{Name: "x", Kind: KindInstacart} }, "requires store"},
		{"duplicate name", func(c *Config) { c.Targets = append(c.Targets, c.Targets[0]) }, "duplicate"},
		{"missing name", func(c *Config) { c.Targets[0].Name = "" }, "missing name"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
