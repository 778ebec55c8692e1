package main

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	logger   = zap.NewNop().Sugar()
	logLevel = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	logFile  *lumberjack.Logger
	// debugPacketDumpLen limits how many bytes of a packet payload are logged.
	// A value of 0 dumps the entire payload.
	debugPacketDumpLen = 256
)

// setupLogging writes to stdout and a rotated file under logs/errors.
func setupLogging(debug bool) {
	logDir := filepath.Join(baseDir, "logs", "errors")
	if err := os.MkdirAll(logDir, 0755); err != nil {
		fmt.Printf("could not create log directory: %v\n", err)
	}
	logFile = &lumberjack.Logger{
		Filename:   filepath.Join(logDir, "gomana.log"),
		MaxSize:    10, // MB
		MaxBackups: 3,
		MaxAge:     7, // days
	}

	encCfg := zapcore.EncoderConfig{
		TimeKey:       "ts",
		LevelKey:      "level",
		NameKey:       "logger",
		CallerKey:     "caller",
		MessageKey:    "msg",
		StacktraceKey: "stack",
		LineEnding:    zapcore.DefaultLineEnding,
		EncodeLevel:   zapcore.CapitalLevelEncoder,
		EncodeTime:    zapcore.ISO8601TimeEncoder,
		EncodeCaller:  zapcore.ShortCallerEncoder,
	}
	core := zapcore.NewTee(
		zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.AddSync(logFile), logLevel),
		zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.Lock(os.Stdout), logLevel),
	)
	logger = zap.New(core, zap.AddCaller()).Sugar()
	setDebugLogging(debug)
}

func syncLogging() {
	_ = logger.Sync()
	if logFile != nil {
		_ = logFile.Close()
	}
}

func logError(format string, v ...interface{}) {
	logger.Errorf(format, v...)
}

func logWarn(format string, v ...interface{}) {
	logger.Warnf(format, v...)
}

func logInfo(format string, v ...interface{}) {
	logger.Infof(format, v...)
}

func logDebug(format string, v ...interface{}) {
	logger.Debugf(format, v...)
}

func logDebugPacket(prefix string, data []byte) {
	if !logLevel.Enabled(zapcore.DebugLevel) {
		return
	}
	n := len(data)
	dump := data
	if debugPacketDumpLen > 0 && n > debugPacketDumpLen {
		dump = data[:debugPacketDumpLen]
	}
	logger.Debugf("%s len=%d payload=% x", prefix, n, dump)
}

func setDebugLogging(enabled bool) {
	if enabled {
		logLevel.SetLevel(zapcore.DebugLevel)
	} else {
		logLevel.SetLevel(zapcore.InfoLevel)
	}
}
