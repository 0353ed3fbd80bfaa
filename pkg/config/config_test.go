package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsMatchPortalLimits(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	cfg := fromViper(v)

	assert.Equal(t, int64(50*1024*1024), cfg.Upload.MaxFileSizeBytes)
	require.Len(t, cfg.Upload.AllowedMIMEs, 3)
	assert.Contains(t, cfg.Upload.AllowedMIMEs, "application/pdf")
	assert.Equal(t, 2.0, cfg.Viewer.RenderScale)
	assert.Equal(t, StorageDriverLocal, cfg.Storage.Driver)
	assert.Equal(t, "documents", cfg.Storage.Bucket)
	assert.Equal(t, 30*time.Minute, cfg.Viewer.SessionTTL)
	assert.Equal(t, time.Duration(0), cfg.Viewer.FetchTimeout)
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("VIEWER_RENDER_SCALE", "1.5")
	t.Setenv("STORAGE_PUBLIC_BASE_URL", "https://cdn.example.com/")
	t.Setenv("UPLOAD_MAX_FILE_SIZE", "-1")

	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)
	cfg := fromViper(v)

	assert.Equal(t, 1.5, cfg.Viewer.RenderScale)
	assert.Equal(t, "https://cdn.example.com", cfg.Storage.PublicBaseURL)
	assert.Equal(t, int64(50*1024*1024), cfg.Upload.MaxFileSizeBytes)
}
