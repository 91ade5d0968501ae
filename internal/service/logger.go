package service

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"log"
)

// Logger 是全局日志接口
// 在其他模块中使用：service.Logger.Info("Order filled", zap.String("symbol", sym))
var Logger *zap.Logger

// InitLogger 初始化高性能的 Zap 日志
// 同时输出到 stdout 和日志文件 trading_bot.log
func InitLogger() {
	config := zap.NewProductionConfig()

	// 格式化时间
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	config.EncoderConfig.TimeKey = "time"

	config.OutputPaths = []string{"stdout", "trading_bot.log"}
	config.ErrorOutputPaths = []string{"stderr"}

	var err error
	Logger, err = config.Build()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
}
