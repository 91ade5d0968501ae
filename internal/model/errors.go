package model

import (
	"errors"
	"fmt"
)

// 错误分类：
//   - ErrDataUnavailable: 某个交易对本轮数据不足/缺失，跳过该对，不改任何状态
//   - ExchangeError:      下单/查询接口失败，跳过本次动作，本轮不重试
//   - ErrPositionExists / ErrPositionNotFound: 仓位不变式被破坏，属于编排层 bug
var (
	ErrDataUnavailable   = errors.New("market data unavailable")
	ErrPositionExists    = errors.New("position already open for symbol")
	ErrPositionNotFound  = errors.New("no open position for symbol")
	ErrMaxPositionsOpen  = errors.New("max simultaneous positions reached")
	ErrInsufficientFunds = errors.New("order size below minimum")
)

// ExchangeError 包装交易所接口的失败，保留操作名和交易所返回码
type ExchangeError struct {
	Op   string // 例如 "place_market_order"
	Code int    // HTTP 状态码或交易所错误码，未知时为 0
	Err  error
}

func (e *ExchangeError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("exchange %s failed (code %d): %v", e.Op, e.Code, e.Err)
	}
	return fmt.Sprintf("exchange %s failed: %v", e.Op, e.Err)
}

func (e *ExchangeError) Unwrap() error { return e.Err }

// IsExchangeError 判断错误链中是否存在交易所层失败
func IsExchangeError(err error) bool {
	var ee *ExchangeError
	return errors.As(err, &ee)
}
