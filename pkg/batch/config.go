package batch

import "time"

// Config holds the batching settings.
type Config struct {
	FlushAt         int           `env:"FLUSH_AT" envDefault:"20"`
	MaxBatchSize    int           `env:"MAX_BATCH_SIZE" envDefault:"100"`
	MaxQueueSize    int           `env:"MAX_QUEUE_SIZE" envDefault:"1000"`
	FlushInterval   time.Duration `env:"FLUSH_INTERVAL" envDefault:"30s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`
}

// Options converts the config into batcher options.
func (c Config) Options() []Option {
	return []Option{
		WithFlushAt(c.FlushAt),
		WithMaxBatchSize(c.MaxBatchSize),
		WithMaxQueueSize(c.MaxQueueSize),
		WithFlushInterval(c.FlushInterval),
		WithShutdownTimeout(c.ShutdownTimeout),
	}
}
