package logger

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"

	"artnet2fshdr/internal/config"
)

type Log struct {
	*logrus.Entry
	closer io.Closer
}

// NewLogger конструктор.
func NewLogger(cfg config.LogConf) (*Log, error) {
	log := logrus.New()

	log.Formatter = &logrus.TextFormatter{
		TimestampFormat:  "2006-01-02 15:04:05.0000",
		DisableColors:    false,
		ForceColors:      cfg.File == "",
		FullTimestamp:    true,
		QuoteEmptyFields: true,
	}

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("logger. Error in settings (level: %s): %w", cfg.Level, err)
	}
	log.SetLevel(level)

	var closer io.Closer
	if cfg.File != "" {
		// Ротация файла журнала, stdout остаётся основным выводом.
		rotator := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
		}
		log.SetOutput(io.MultiWriter(os.Stdout, rotator))
		closer = rotator
	} else {
		log.SetOutput(os.Stdout)
		// Disable concurrency mutex as we use Stdout.
		log.SetNoLock()
	}
	log.Debug("set level: ", level)

	return &Log{Entry: log.WithFields(nil), closer: closer}, nil
}

// New wraps an existing logrus logger, used by tests with hooks/test.
func New(l *logrus.Logger) *Log {
	return &Log{Entry: logrus.NewEntry(l)}
}

// With will add the fields to the formatted log entry.
func (l *Log) With(fields Fields) *Log {
	return &Log{Entry: l.WithFields(logrus.Fields(fields)), closer: l.closer}
}

func (l *Log) GetLevel() string {
	return l.Logger.Level.String()
}

// Close flushes and closes the log file, if any.
func (l *Log) Close() error {
	if l.closer == nil {
		return nil
	}
	return l.closer.Close()
}

// Fields are a representation of formatted log fields.
type Fields map[string]interface{}

// Logger интерфейс для регистратора.
type Logger interface {
	// GetLevel возвращает текущий установленный уровень логирования.
	GetLevel() string
	With(fields Fields) *Log
}
