package recorder

import (
	"encoding/csv"
	"fmt"
	"os"
	"time"

	"crypto-scalp-trader/internal/model"

	"go.uber.org/zap"
)

// Recorder 是成交记录和风控计数的单向出口：CSV 落盘 + 结构化日志。
// 写失败只记日志，绝不反向影响交易决策。
type Recorder struct {
	file   *os.File
	writer *csv.Writer
	logger *zap.SugaredLogger
}

var csvHeader = []string{"symbol", "entry_price", "exit_price", "quantity", "profit", "opened_at", "closed_at", "reason"}

// NewRecorder 打开（或追加）成交记录文件，文件为空时先写表头
func NewRecorder(path string, logger *zap.SugaredLogger) (*Recorder, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open trade log: %w", err)
	}

	r := &Recorder{
		file:   f,
		writer: csv.NewWriter(f),
		logger: logger,
	}

	info, err := f.Stat()
	if err == nil && info.Size() == 0 {
		r.writer.Write(csvHeader)
		r.writer.Flush()
	}
	return r, nil
}

// RecordTrade 追加一条完整的成交记录
func (r *Recorder) RecordTrade(rec model.TradeRecord) {
	r.logger.Infow("Trade closed",
		"symbol", rec.Symbol,
		"entry", rec.EntryPrice,
		"exit", rec.ExitPrice,
		"qty", rec.Quantity,
		"profit", rec.Profit,
		"reason", rec.Reason)

	row := []string{
		rec.Symbol,
		ftoa(rec.EntryPrice),
		ftoa(rec.ExitPrice),
		ftoa(rec.Quantity),
		ftoa(rec.Profit),
		rec.OpenedAt.Format(time.RFC3339),
		rec.ClosedAt.Format(time.RFC3339),
		rec.Reason,
	}
	if err := r.writer.Write(row); err != nil {
		r.logger.Errorw("Failed to write trade record", "err", err)
		return
	}
	r.writer.Flush()
	if err := r.writer.Error(); err != nil {
		r.logger.Errorw("Failed to flush trade record", "err", err)
	}
}

// RecordRiskCounters 发布最新的日内风控计数（接到 Governor.OnUpdate 上）
func (r *Recorder) RecordRiskCounters(tradesToday int, realizedLoss float64) {
	r.logger.Infow("Risk budget updated",
		"trades_today", tradesToday,
		"realized_loss_today", realizedLoss)
}

// Close 关闭底层文件
func (r *Recorder) Close() error {
	r.writer.Flush()
	return r.file.Close()
}

func ftoa(x float64) string { return fmt.Sprintf("%.8f", x) }
