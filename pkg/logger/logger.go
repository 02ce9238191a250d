package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/vp-back/pkg/config"
)

// New creates a configured logrus logger
func New(cfg *config.LoggingConfig) (*logrus.Logger, error) {
	log := logrus.New()

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %s: %w", cfg.Level, err)
	}
	log.SetLevel(level)

	switch cfg.Format {
	case "json":
		log.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02 15:04:05.000",
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime:  "timestamp",
				logrus.FieldKeyLevel: "level",
				logrus.FieldKeyMsg:   "message",
			},
		})
	default:
		log.SetFormatter(&textFormatter{timestampFormat: "2006-01-02 15:04:05"})
	}

	output, err := getOutput(cfg.Output)
	if err != nil {
		return nil, fmt.Errorf("failed to set output: %w", err)
	}
	log.SetOutput(output)
	log.SetReportCaller(true)

	return log, nil
}

// textFormatter renders colored single-line log entries
type textFormatter struct {
	timestampFormat string
}

func (f *textFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	caller := ""
	if entry.HasCaller() {
		caller = fmt.Sprintf(" [%s]", formatCaller(entry.Caller))
	}

	fields := ""
	if len(entry.Data) > 0 {
		fields = " |"
		for k, v := range entry.Data {
			fields += fmt.Sprintf(" %s=%v", k, v)
		}
	}

	line := fmt.Sprintf("%s%s %s%s%s%s %s%s\n",
		"\033[90m", entry.Time.Format(f.timestampFormat),
		levelColor(entry.Level), strings.ToUpper(entry.Level.String()), "\033[0m",
		caller,
		entry.Message,
		fields,
	)

	return []byte(line), nil
}

func levelColor(level logrus.Level) string {
	switch level {
	case logrus.DebugLevel:
		return "\033[36m"
	case logrus.InfoLevel:
		return "\033[32m"
	case logrus.WarnLevel:
		return "\033[33m"
	case logrus.ErrorLevel:
		return "\033[31m"
	case logrus.FatalLevel, logrus.PanicLevel:
		return "\033[35m"
	default:
		return "\033[0m"
	}
}

func formatCaller(caller *runtime.Frame) string {
	_, file := filepath.Split(caller.File)

	funcName := caller.Function
	if idx := strings.LastIndex(funcName, "."); idx >= 0 {
		funcName = funcName[idx+1:]
	}

	return fmt.Sprintf("%s:%d %s", file, caller.Line, funcName)
}

func getOutput(output string) (io.Writer, error) {
	switch output {
	case "stdout":
		return os.Stdout, nil
	case "stderr":
		return os.Stderr, nil
	default:
		file, err := os.OpenFile(output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file %s: %w", output, err)
		}
		return file, nil
	}
}
