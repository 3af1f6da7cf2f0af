package config

import "os"

// applyEnvOverrides lets the environment supply credentials and
// deployment-specific paths without editing the config file.
//
// An API key env var sets both the key and its provider;
// OPENAI_API_KEY wins when both are set.
func (c *Config) applyEnvOverrides() {
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		c.LLM.APIKey = key
		c.LLM.Provider = "gemini"
	}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		c.LLM.APIKey = key
		c.LLM.Provider = "openai"
	}

	if v := os.Getenv("CHAINFORGE_ROOT"); v != "" {
		c.Paths.Root = v
	}
	if v := os.Getenv("CHAINFORGE_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("CHAINFORGE_MODEL"); v != "" {
		c.LLM.Model = v
	}
	if os.Getenv("CHAINFORGE_DEBUG") == "true" {
		c.Logging.Debug = true
	}
}
