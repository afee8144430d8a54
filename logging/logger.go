package logging

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/exp/slices"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger je globalna instanca Logrusa.
var Logger = logrus.New()
var once sync.Once

// CustomFormatter implements logrus.Formatter with the planner's line format.
type CustomFormatter struct {
	SystemName string
}

func (f *CustomFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	var b *bytes.Buffer
	if entry.Buffer != nil {
		b = entry.Buffer
	} else {
		b = &bytes.Buffer{}
	}

	b.WriteString(fmt.Sprintf("Date: %s, Time: %s, ", entry.Time.Format("2006-01-02"), entry.Time.Format("15:04:05")))
	b.WriteString(fmt.Sprintf("Event Source: %s, ", f.SystemName))
	b.WriteString(fmt.Sprintf("Event Type: %s, ", strings.ToUpper(entry.Level.String())))
	b.WriteString(fmt.Sprintf("Event ID: %s, ", uuid.New().String()))
	b.WriteString(fmt.Sprintf("Message: %s", entry.Message))

	if len(entry.Data) > 0 {
		keys := make([]string, 0, len(entry.Data))
		for k := range entry.Data {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		for _, k := range keys {
			b.WriteString(fmt.Sprintf(", %s: %v", k, entry.Data[k]))
		}
	}

	if entry.HasCaller() {
		b.WriteString(fmt.Sprintf(", Location: %s:%d in %s", filepath.Base(entry.Caller.File), entry.Caller.Line, entry.Caller.Function))
	}

	b.WriteByte('\n')
	return b.Bytes(), nil
}

type Options struct {
	SystemName string
	// FilePath enables rotation through lumberjack. Empty means stdout.
	FilePath string
	Level    string
	// Output, when set, wins over FilePath.
	Output io.Writer
}

// InitLogger configures the global logger once.
func InitLogger(opts Options) error {
	var initErr error
	once.Do(func() {
		initErr = configure(Logger, opts)
		if initErr == nil {
			Logger.Infof("Event ID: LOGGER_INITIALIZED, Description: Logger initialized for %s", opts.SystemName)
		}
	})
	return initErr
}

func configure(l *logrus.Logger, opts Options) error {
	level := logrus.InfoLevel
	if opts.Level != "" {
		parsed, err := logrus.ParseLevel(opts.Level)
		if err != nil {
			return fmt.Errorf("invalid log level %q: %w", opts.Level, err)
		}
		level = parsed
	}

	switch {
	case opts.Output != nil:
		l.SetOutput(opts.Output)
	case opts.FilePath != "":
		if err := os.MkdirAll(filepath.Dir(opts.FilePath), 0700); err != nil {
			return fmt.Errorf("failed to create log directory: %w", err)
		}
		l.SetOutput(&lumberjack.Logger{
			Filename:   opts.FilePath,
			MaxSize:    10, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
			Compress:   true,
		})
	default:
		l.SetOutput(os.Stdout)
	}

	l.SetFormatter(&CustomFormatter{SystemName: opts.SystemName})
	l.SetLevel(level)
	l.SetReportCaller(true)
	return nil
}
