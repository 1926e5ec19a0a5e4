package config

import (
	"fmt"
	"net/url"
	"strconv"
)

func (c *Config) validate() error {
	if err := c.validateDatabase(); err != nil {
		return err
	}

	if err := c.validateNetwork(); err != nil {
		return err
	}

	if err := c.validateEmbedding(); err != nil {
		return err
	}

	return c.validateCORS()
}

func (c *Config) validateDatabase() error {
	if c.DatabaseURL.Value() == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	dbURL, err := url.Parse(c.DatabaseURL.Value())
	if err != nil {
		return fmt.Errorf("DATABASE_URL is not a valid URL: %w", err)
	}

	if dbURL.Scheme != "postgres" && dbURL.Scheme != "postgresql" {
		return fmt.Errorf("DATABASE_URL scheme must be postgres:// or postgresql://")
	}

	if dbURL.Hostname() == "" {
		return fmt.Errorf("DATABASE_URL must include a host")
	}

	host := dbURL.Hostname()
	if host != "localhost" && host != "127.0.0.1" && host != "::1" {
		if dbURL.Query().Get("sslmode") == "disable" {
			return fmt.Errorf("DATABASE_URL sslmode=disable is not allowed for non-local host %q", host)
		}
	}

	return nil
}

func (c *Config) validateNetwork() error {
	port, err := strconv.Atoi(c.Port)
	if err != nil {
		return fmt.Errorf("PORT must be a valid integer: %w", err)
	}

	if port < 1 || port > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535")
	}

	return nil
}

func (c *Config) validateEmbedding() error {
	switch c.EmbeddingProvider {
	case ProviderHosted:
		if c.OpenAIAPIKey.Value() == "" {
			return fmt.Errorf("OPENAI_API_KEY is required when EMBEDDING_PROVIDER is hosted")
		}
	case ProviderLocal:
		if _, err := url.ParseRequestURI(c.OllamaURL); err != nil {
			return fmt.Errorf("OLLAMA_URL is not a valid URL: %w", err)
		}
	default:
		return fmt.Errorf("EMBEDDING_PROVIDER must be %q or %q, got %q", ProviderHosted, ProviderLocal, c.EmbeddingProvider)
	}

	if c.OpenAIBaseURL != "" {
		if _, err := url.ParseRequestURI(c.OpenAIBaseURL); err != nil {
			return fmt.Errorf("OPENAI_BASE_URL is not a valid URL: %w", err)
		}
	}

	return nil
}

func (c *Config) validateCORS() error {
	for _, origin := range c.CORSOrigins {
		if origin == "*" {
			return fmt.Errorf("CORS_ORIGINS must not contain wildcard '*'")
		}

		u, err := url.Parse(origin)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("CORS_ORIGINS contains invalid origin %q (must have scheme and host)", origin)
		}
	}

	return nil
}
