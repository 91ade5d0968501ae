package api

import (
	"encoding/json"
	"strings"
	"time"

	"crypto-scalp-trader/internal/model"
	"crypto-scalp-trader/internal/service"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// combinedStreamMessage 是 Binance combined stream 的外层结构
type combinedStreamMessage struct {
	Stream string          `json:"stream"`
	Data   json.RawMessage `json:"data"`
}

// tickerEvent 适配 <symbol>@ticker 频道的 24hr 统计推送
type tickerEvent struct {
	EventTime          int64  `json:"E"`
	Symbol             string `json:"s"`
	LastPrice          string `json:"c"`
	PriceChangePercent string `json:"P"`
	QuoteVolume        string `json:"q"`
}

// Connector 通过 WebSocket 订阅所有交易对的 24h 行情流，持续刷新准入数据。
// 输出进入带缓冲的通道，写满时丢弃本条推送（行情快照可容忍丢失，准入层
// 自己有过期判断兜底）。
type Connector struct {
	wsURL     string
	symbols   []string
	statsChan chan model.TickerStats
}

// NewConnector 初始化行情连接器
func NewConnector(wsURL string, symbols []string) *Connector {
	service.Logger.Info("Connector initialized", zap.Strings("Symbols", symbols))
	return &Connector{
		wsURL:     wsURL,
		symbols:   symbols,
		statsChan: make(chan model.TickerStats, 256),
	}
}

// Start 建立连接并持续读取推送，断线后退避重连。应在独立 goroutine 中运行。
func (c *Connector) Start() {
	for {
		if err := c.connectAndRead(); err != nil {
			service.Logger.Error("WS connection lost, reconnecting...", zap.Error(err))
			time.Sleep(5 * time.Second)
		}
	}
}

func (c *Connector) connectAndRead() error {
	streams := make([]string, 0, len(c.symbols))
	for _, s := range c.symbols {
		streams = append(streams, strings.ToLower(s)+"@ticker")
	}
	u := c.wsURL + "/stream?streams=" + strings.Join(streams, "/")

	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	service.Logger.Info("Subscribed to 24h ticker streams", zap.Int("streams", len(streams)))

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		var msg combinedStreamMessage
		if err := json.Unmarshal(message, &msg); err != nil || len(msg.Data) == 0 {
			continue
		}

		var ev tickerEvent
		if err := json.Unmarshal(msg.Data, &ev); err != nil || ev.Symbol == "" {
			continue
		}

		last, err1 := service.StringToFloat(ev.LastPrice)
		changePct, err2 := service.StringToFloat(ev.PriceChangePercent)
		quoteVol, err3 := service.StringToFloat(ev.QuoteVolume)
		if err1 != nil || err2 != nil || err3 != nil {
			continue
		}

		stats := model.TickerStats{
			Symbol:         ev.Symbol,
			LastPrice:      last,
			PriceChangePct: changePct,
			QuoteVolume:    quoteVol,
			UpdatedAt:      time.UnixMilli(ev.EventTime),
		}

		// 使用 select/default 防止阻塞读循环
		select {
		case c.statsChan <- stats:
		default:
			service.Logger.Debug("Stats channel full, dropping ticker update",
				zap.String("Symbol", ev.Symbol))
		}
	}
}

// GetStatsChannel 供 Screener 消费行情快照
func (c *Connector) GetStatsChannel() <-chan model.TickerStats {
	return c.statsChan
}
