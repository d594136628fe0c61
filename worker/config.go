package worker

import "time"

// Config holds configuration for an Executor.
type Config struct {
	// Concurrency is the maximum number of jobs run at the same time.
	Concurrency int

	// QueueSize is how many submitted jobs may wait for a free worker
	// before Submit blocks.
	QueueSize int

	// ShutdownTimeout bounds Shutdown. Stop takes its bound from the
	// context instead.
	ShutdownTimeout time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Concurrency:     10,
		QueueSize:       100,
		ShutdownTimeout: 30 * time.Second,
	}
}

func (c Config) normalize() Config {
	def := DefaultConfig()
	if c.Concurrency < 1 {
		c.Concurrency = def.Concurrency
	}
	if c.QueueSize < 0 {
		c.QueueSize = 0
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = def.ShutdownTimeout
	}
	return c
}
