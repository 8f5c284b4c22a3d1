package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func TestDefaults(t *testing.T) {
	v := viper.New()
	setDefaults(v)

	cfg := fromViper(v)
	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, 500*time.Millisecond, cfg.Search.Debounce)
	assert.Equal(t, time.Second, cfg.Session.MockDelay)
	assert.Equal(t, 1500*time.Millisecond, cfg.Session.LoginMockDelay)
	assert.Equal(t, 10000, cfg.Session.MaxActive)
	assert.Equal(t, "event-images", cfg.Storage.Bucket)
	assert.Equal(t, "https://api.groq.com/openai/v1", cfg.LLM.BaseURL)
	assert.InDelta(t, 0.2, cfg.LLM.Temperature, 0.0001)
	assert.False(t, cfg.Session.CookieSecure)
}

func TestOverrides(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	v.Set("ENV", EnvProduction)
	v.Set("SEARCH_DEBOUNCE", "not-a-duration")
	v.Set("ALLOWED_ORIGINS", " http://a.test , ,http://b.test")
	v.Set("PUBLIC_BASE_URL", "https://events.example.edu/")

	cfg := fromViper(v)
	assert.True(t, cfg.Session.CookieSecure)
	assert.Equal(t, 500*time.Millisecond, cfg.Search.Debounce)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, "https://events.example.edu", cfg.PublicBaseURL)
}

func TestIsPlaceholder(t *testing.T) {
	assert.True(t, IsPlaceholder("", PlaceholderAPIKey))
	assert.True(t, IsPlaceholder("   ", PlaceholderAPIKey))
	assert.True(t, IsPlaceholder(PlaceholderAPIKey, PlaceholderAPIKey))
	assert.False(t, IsPlaceholder("gsk_live", PlaceholderAPIKey))
}

func TestLocation(t *testing.T) {
	assert.Equal(t, time.Local, SearchConfig{Timezone: "Local"}.Location())
	assert.Equal(t, time.Local, SearchConfig{Timezone: "Mars/Olympus"}.Location())
	assert.Equal(t, "UTC", SearchConfig{Timezone: "UTC"}.Location().String())
}
