package logger

// Config holds logger configuration.
type Config struct {
	// Level is the minimum log level: debug, info, warn, error.
	Level string
	// Environment switches the encoder: "production" emits JSON,
	// anything else emits a colored console format.
	Environment string
}

// DefaultConfig returns a development-friendly configuration.
func DefaultConfig() Config {
	return Config{
		Level:       "info",
		Environment: "development",
	}
}
