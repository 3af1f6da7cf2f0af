package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestApplyEnvOverrides(t *testing.T) {
	t.Run("gemini key selects gemini", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("GEMINI_API_KEY", "g-key")

		cfg := DefaultConfig()
		cfg.applyEnvOverrides()
		assert.Equal(t, "gemini", cfg.LLM.Provider)
		assert.Equal(t, "g-key", cfg.LLM.APIKey)
	})

	t.Run("openai key selects openai", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("OPENAI_API_KEY", "o-key")

		cfg := DefaultConfig()
		cfg.applyEnvOverrides()
		assert.Equal(t, "openai", cfg.LLM.Provider)
		assert.Equal(t, "o-key", cfg.LLM.APIKey)
	})

	t.Run("openai wins when both are set", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("GEMINI_API_KEY", "g-key")
		t.Setenv("OPENAI_API_KEY", "o-key")

		cfg := DefaultConfig()
		cfg.applyEnvOverrides()
		assert.Equal(t, "openai", cfg.LLM.Provider)
		assert.Equal(t, "o-key", cfg.LLM.APIKey)
	})

	t.Run("deployment overrides", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("CHAINFORGE_ROOT", "/var/lib/chainforge")
		t.Setenv("CHAINFORGE_ADDR", ":9999")
		t.Setenv("CHAINFORGE_MODEL", "gpt-4o-mini")
		t.Setenv("CHAINFORGE_DEBUG", "true")

		cfg := DefaultConfig()
		cfg.applyEnvOverrides()
		assert.Equal(t, "/var/lib/chainforge", cfg.Paths.Root)
		assert.Equal(t, ":9999", cfg.Server.Addr)
		assert.Equal(t, "gpt-4o-mini", cfg.LLM.Model)
		assert.True(t, cfg.Logging.Debug)
	})

	t.Run("empty environment changes nothing", func(t *testing.T) {
		clearEnv(t)

		cfg := DefaultConfig()
		cfg.applyEnvOverrides()
		assert.Equal(t, DefaultConfig(), cfg)
	})
}
