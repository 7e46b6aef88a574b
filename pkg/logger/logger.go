package logger

import (
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

var log = logrus.New()

func init() {
	log.SetOutput(os.Stdout)
	log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "15:04:05",
	})
	log.SetLevel(logrus.InfoLevel)
}

// SetLevel 按配置中的日志级别字符串设置级别，无法识别时回退到 INFO
func SetLevel(level string) {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "DEBUG":
		log.SetLevel(logrus.DebugLevel)
	case "INFO":
		log.SetLevel(logrus.InfoLevel)
	case "WARN", "WARNING":
		log.SetLevel(logrus.WarnLevel)
	case "ERROR":
		log.SetLevel(logrus.ErrorLevel)
	default:
		log.SetLevel(logrus.InfoLevel)
	}
}

// IsDebugEnabled 是否启用调试级别
func IsDebugEnabled() bool {
	return log.IsLevelEnabled(logrus.DebugLevel)
}

// EnableDebugFromEnv 从环境变量启用调试模式
func EnableDebugFromEnv() {
	if debug := strings.ToLower(os.Getenv("DEBUG")); debug != "" {
		if debug == "true" || debug == "1" || debug == "on" || debug == "debug" {
			SetLevel("DEBUG")
			Debug("调试模式已启用")
		}
	}
}

// Debug 调试日志
func Debug(format string, args ...interface{}) {
	log.Debugf(format, args...)
}

// Info 信息日志
func Info(format string, args ...interface{}) {
	log.Infof(format, args...)
}

// Warn 警告日志
func Warn(format string, args ...interface{}) {
	log.Warnf(format, args...)
}

// Error 错误日志
func Error(format string, args ...interface{}) {
	log.Errorf(format, args...)
}
