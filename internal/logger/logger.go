package logger

import (
	"os"
	"time"

	"github.com/sirupsen/logrus"
)

// ServiceName добавляется в каждую запись, чтобы логи разных сервисов различались в сборщике.
const ServiceName = "warmconnects-backend"

var Log *logrus.Logger

// Init создаёт логгер с JSON форматом. Неизвестный уровень превращается в info.
func Init(level string) {
	l := logrus.New()
	l.SetOutput(os.Stdout)

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	l.SetLevel(lvl)
	l.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339Nano})

	Log = l
}

// SetTextFormatter переключает на человекочитаемый формат для локальной разработки.
func SetTextFormatter() {
	if Log != nil {
		Log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
}

// L возвращает логгер приложения, а до вызова Init - стандартный логгер logrus.
func L() *logrus.Logger {
	if Log != nil {
		return Log
	}
	return logrus.StandardLogger()
}

// WithFields - L().WithFields с полем service.
func WithFields(fields logrus.Fields) *logrus.Entry {
	return L().WithField("service", ServiceName).WithFields(fields)
}
