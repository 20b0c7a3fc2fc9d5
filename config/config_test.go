package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/jottick/views"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "jottick.jsonc")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_DefaultsAreValid(t *testing.T) {
	cfg, err := Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, BackendFile, cfg.Store.Backend)
	assert.Equal(t, time.Hour, cfg.ICal.RefreshInterval.Std())
	assert.Equal(t, views.DefaultToggles(), cfg.Calendar.Show)
}

func TestLoad_FileOverlaysDefaults(t *testing.T) {
	// GIVEN: A JSONC file with comments, trailing commas and partial sections
	path := writeConfig(t, `{
		// sqlite keeps revisions
		"store": {"backend": "sqlite", "path": "house.db"},
		"time_zone": "Europe/Paris",
		"ical": {"refresh_interval": "30m"},
		"calendar": {
			"show": {"completed": true},
			"colors": {"overdue": "#FF0000"},
		},
	}`)

	// WHEN
	cfg, err := Load(path, nil)
	require.NoError(t, err)

	// THEN: Given keys win, everything else keeps its default
	assert.Equal(t, BackendSQLite, cfg.Store.Backend)
	assert.Equal(t, "house.db", cfg.Store.Path)
	assert.Equal(t, 20, cfg.Store.KeepRevisions)
	assert.Equal(t, 30*time.Minute, cfg.ICal.RefreshInterval.Std())
	assert.Equal(t, 365, cfg.ICal.MaxInstances)
	assert.True(t, cfg.Calendar.Show.Completed)
	assert.True(t, cfg.Calendar.Show.ListDue)
	assert.Equal(t, "#FF0000", cfg.Calendar.Colors["overdue"])
	assert.Equal(t, "#10B981", cfg.Calendar.Colors["list_due"])

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, "Europe/Paris", loc.String())
}

func TestLoad_EnvBeatsFile(t *testing.T) {
	path := writeConfig(t, `{"addr": ":9000", "redis": {"url": "redis://file:6379"}}`)
	env := []string{
		"JOTTICK_ADDR=:7000",
		"JOTTICK_CORS_ORIGINS=https://a.example, ,https://b.example",
		"JOTTICK_KEEP_REVISIONS=5",
		"JOTTICK_ICAL_REFRESH=2h",
		"HOME=/ignored",
	}

	cfg, err := Load(path, env)
	require.NoError(t, err)

	assert.Equal(t, ":7000", cfg.Addr)
	assert.Equal(t, "redis://file:6379", cfg.Redis.URL)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
	assert.Equal(t, 5, cfg.Store.KeepRevisions)
	assert.Equal(t, 2*time.Hour, cfg.ICal.RefreshInterval.Std())
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
		env  []string
		want error
	}{
		{"bad jsonc", `{"addr": }`, nil, ErrConfigInvalid},
		{"bad duration", `{"ical": {"refresh_interval": 30}}`, nil, ErrConfigInvalid},
		{"unknown backend", `{"store": {"backend": "postgres"}}`, nil, ErrConfigInvalid},
		{"file without path", `{"store": {"path": ""}}`, nil, ErrConfigInvalid},
		{"bad zone", `{"time_zone": "Mars/Olympus"}`, nil, ErrConfigInvalid},
		{"too frequent refresh", `{"ical": {"refresh_interval": "10s"}}`, nil, ErrConfigInvalid},
		{"bad color", `{"calendar": {"colors": {"overdue": "red"}}}`, nil, ErrConfigInvalid},
		{"bad env number", `{}`, []string{"JOTTICK_KEEP_REVISIONS=many"}, ErrConfigInvalid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body), tt.env)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.json"), nil)
	assert.ErrorIs(t, err, ErrConfigFileNotFound)
}

func TestLoad_MemoryBackendNeedsNoPath(t *testing.T) {
	cfg, err := Load(writeConfig(t, `{"store": {"backend": "memory", "path": ""}}`), nil)
	require.NoError(t, err)
	assert.Equal(t, BackendMemory, cfg.Store.Backend)
}

func TestFormat_RoundTrips(t *testing.T) {
	cfg := Default()
	cfg.ICal.RefreshInterval = Duration(45 * time.Minute)

	out, err := Format(cfg)
	require.NoError(t, err)
	assert.Contains(t, out, `"refresh_interval": "45m0s"`)

	back := Default()
	require.NoError(t, Parse([]byte(out), &back))
	assert.Equal(t, cfg.ICal, back.ICal)
}
