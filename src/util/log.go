package util

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger builds the process-wide structured logger. verbose raises the level
// to debug so stage-by-stage progress (bytes read, declarations parsed,
// procedures lowered, chosen backend) is printed; otherwise the level is info.
//
// The teacher's util package has no structured logger: main.go gates ad hoc
// fmt.Println calls behind an Options.Verbose bool (src/main.go, src/util/args.go).
// miaomiao1992-dingo's go.mod attests go.uber.org/zap in the pack, so the driver
// here replaces the ad hoc prints with a zap.Logger while keeping the same
// verbose/quiet distinction the teacher's flag expressed.
func NewLogger(verbose bool) *zap.Logger {
	level := zap.NewAtomicLevelAt(zapcore.InfoLevel)
	if verbose {
		level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	cfg := zap.Config{
		Level:            level,
		Development:      false,
		Encoding:         "console",
		EncoderConfig:    zap.NewDevelopmentEncoderConfig(),
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
	}
	cfg.EncoderConfig.TimeKey = ""
	logger, err := cfg.Build()
	if err != nil {
		// cfg is a constant literal; Build only fails on malformed config.
		panic(err)
	}
	return logger
}
