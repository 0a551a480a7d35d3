package debug

import (
	"os"
	"sync"

	"github.com/rs/zerolog"
)

const logFilepath = "/tmp/sira-debug.log"

var (
	once   sync.Once
	logger zerolog.Logger
)

// GetLogger returns the singleton debug logger. It writes to a side file so
// that log lines never bleed into the terminal surface.
func GetLogger() zerolog.Logger {
	once.Do(func() {
		f, err := os.OpenFile(logFilepath, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
		if err != nil {
			logger = zerolog.Nop()
			return
		}
		logger = zerolog.New(f).Level(zerolog.DebugLevel).With().Timestamp().Logger()
	})
	return logger
}
