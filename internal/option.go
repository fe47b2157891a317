package internal

import "github.com/starford/raido/internal/capture"

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config     *Config
	recognizer capture.Recognizer
	mcpMode    bool
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithRecognizer overrides the slip recognizer. The default is the
// built-in development stub.
func WithRecognizer(rec capture.Recognizer) Option {
	return func(a *application) {
		a.recognizer = rec
	}
}

// WithMCPMode switches the process to serve MCP over stdio instead of
// the HTTP API.
func WithMCPMode(enabled bool) Option {
	return func(a *application) {
		a.mcpMode = enabled
	}
}
