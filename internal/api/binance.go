package api

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"crypto-scalp-trader/internal/model"
	"crypto-scalp-trader/internal/service"

	"go.uber.org/zap"
)

// RestClient 是 Binance 现货 REST 网关。
// 所有请求带固定超时；失败统一包装为 *model.ExchangeError，本轮不重试。
type RestClient struct {
	baseURL    string
	apiKey     string
	secretKey  string
	httpClient *http.Client
	logger     *zap.SugaredLogger

	// 测试注入用，默认 time.Now
	now func() time.Time
}

// NewRestClient 初始化 REST 网关
func NewRestClient(baseURL, apiKey, secretKey string, logger *zap.SugaredLogger) *RestClient {
	return &RestClient{
		baseURL:    baseURL,
		apiKey:     apiKey,
		secretKey:  secretKey,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logger,
		now:        time.Now,
	}
}

// ---- 响应结构 ----

type accountResponse struct {
	Balances []struct {
		Asset  string `json:"asset"`
		Free   string `json:"free"`
		Locked string `json:"locked"`
	} `json:"balances"`
}

type ticker24hResponse struct {
	Symbol             string `json:"symbol"`
	LastPrice          string `json:"lastPrice"`
	PriceChangePercent string `json:"priceChangePercent"`
	QuoteVolume        string `json:"quoteVolume"`
}

type orderResponse struct {
	Symbol      string `json:"symbol"`
	OrderID     int64  `json:"orderId"`
	Side        string `json:"side"`
	ExecutedQty string `json:"executedQty"`
	Fills       []struct {
		Price string `json:"price"`
		Qty   string `json:"qty"`
	} `json:"fills"`
}

type apiErrorResponse struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}

// GetBalance 查询某个资产的可用余额
func (c *RestClient) GetBalance(ctx context.Context, asset string) (float64, error) {
	body, err := c.signedRequest(ctx, http.MethodGet, "/api/v3/account", url.Values{})
	if err != nil {
		return 0, err
	}

	var acct accountResponse
	if err := json.Unmarshal(body, &acct); err != nil {
		return 0, &model.ExchangeError{Op: "get_balance", Err: err}
	}
	for _, b := range acct.Balances {
		if b.Asset == asset {
			free, err := service.StringToFloat(b.Free)
			if err != nil {
				return 0, &model.ExchangeError{Op: "get_balance", Err: err}
			}
			return free, nil
		}
	}
	return 0, nil
}

// GetKlines 拉取已完成的 K 线。最后一根可能尚未收盘，直接丢弃。
// 可用 K 线不足 ta.MinBars 的判断留给调用方（快照构建处）。
func (c *RestClient) GetKlines(ctx context.Context, symbol, interval string, limit int) ([]model.Bar, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("interval", interval)
	params.Set("limit", strconv.Itoa(limit))

	body, err := c.publicRequest(ctx, "/api/v3/klines", params)
	if err != nil {
		return nil, err
	}

	// Binance 的 kline 是混合类型数组: [openTime, "open", "high", "low", "close", "volume", closeTime, ...]
	var raw [][]any
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, &model.ExchangeError{Op: "get_klines", Err: err}
	}

	bars := make([]model.Bar, 0, len(raw))
	for _, k := range raw {
		if len(k) < 7 {
			continue
		}
		bar, err := parseKline(k)
		if err != nil {
			c.logger.Debugw("Skipping malformed kline", "symbol", symbol, "err", err)
			continue
		}
		bars = append(bars, bar)
	}

	// 丢掉未收盘的最后一根
	if n := len(bars); n > 0 && bars[n-1].CloseTime.After(c.now()) {
		bars = bars[:n-1]
	}
	return bars, nil
}

func parseKline(k []any) (model.Bar, error) {
	openMs, ok := k[0].(float64)
	if !ok {
		return model.Bar{}, fmt.Errorf("bad open time %v", k[0])
	}
	closeMs, ok := k[6].(float64)
	if !ok {
		return model.Bar{}, fmt.Errorf("bad close time %v", k[6])
	}

	fields := make([]float64, 5) // open, high, low, close, volume
	for i := 0; i < 5; i++ {
		s, ok := k[i+1].(string)
		if !ok {
			return model.Bar{}, fmt.Errorf("bad field at %d: %v", i+1, k[i+1])
		}
		v, err := service.StringToFloat(s)
		if err != nil {
			return model.Bar{}, err
		}
		fields[i] = v
	}

	return model.Bar{
		OpenTime:  time.UnixMilli(int64(openMs)),
		CloseTime: time.UnixMilli(int64(closeMs)),
		Open:      fields[0],
		High:      fields[1],
		Low:       fields[2],
		Close:     fields[3],
		Volume:    fields[4],
	}, nil
}

// GetTickerStats 拉取一组交易对的 24h 行情快照
func (c *RestClient) GetTickerStats(ctx context.Context, symbols []string) ([]model.TickerStats, error) {
	params := url.Values{}
	if len(symbols) > 0 {
		encoded, _ := json.Marshal(symbols)
		params.Set("symbols", string(encoded))
	}

	body, err := c.publicRequest(ctx, "/api/v3/ticker/24hr", params)
	if err != nil {
		return nil, err
	}

	var raw []ticker24hResponse
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, &model.ExchangeError{Op: "get_ticker_stats", Err: err}
	}

	now := c.now()
	stats := make([]model.TickerStats, 0, len(raw))
	for _, t := range raw {
		last, err1 := service.StringToFloat(t.LastPrice)
		changePct, err2 := service.StringToFloat(t.PriceChangePercent)
		quoteVol, err3 := service.StringToFloat(t.QuoteVolume)
		if err1 != nil || err2 != nil || err3 != nil {
			c.logger.Debugw("Skipping malformed ticker", "symbol", t.Symbol)
			continue
		}
		stats = append(stats, model.TickerStats{
			Symbol:         t.Symbol,
			LastPrice:      last,
			PriceChangePct: changePct,
			QuoteVolume:    quoteVol,
			UpdatedAt:      now,
		})
	}
	return stats, nil
}

// PlaceMarketOrder 下市价单并等待交易所回执。
// 返回的成交价是各笔 fill 的数量加权均价。
func (c *RestClient) PlaceMarketOrder(ctx context.Context, symbol, side string, quantity float64) (*model.OrderResult, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("side", side)
	params.Set("type", "MARKET")
	params.Set("quantity", strconv.FormatFloat(quantity, 'f', -1, 64))

	body, err := c.signedRequest(ctx, http.MethodPost, "/api/v3/order", params)
	if err != nil {
		return nil, err
	}

	var ord orderResponse
	if err := json.Unmarshal(body, &ord); err != nil {
		return nil, &model.ExchangeError{Op: "place_market_order", Err: err}
	}

	executedQty, err := service.StringToFloat(ord.ExecutedQty)
	if err != nil || executedQty <= 0 {
		return nil, &model.ExchangeError{Op: "place_market_order",
			Err: fmt.Errorf("order %d not filled (executedQty=%q)", ord.OrderID, ord.ExecutedQty)}
	}

	var notional, qtySum float64
	for _, f := range ord.Fills {
		px, err1 := service.StringToFloat(f.Price)
		q, err2 := service.StringToFloat(f.Qty)
		if err1 != nil || err2 != nil {
			continue
		}
		notional += px * q
		qtySum += q
	}
	if qtySum == 0 {
		return nil, &model.ExchangeError{Op: "place_market_order",
			Err: fmt.Errorf("order %d has no usable fills", ord.OrderID)}
	}

	return &model.OrderResult{
		Symbol:        ord.Symbol,
		Side:          ord.Side,
		ExecutedPrice: notional / qtySum,
		ExecutedQty:   executedQty,
		OrderID:       ord.OrderID,
	}, nil
}

// ---- 请求底层 ----

func (c *RestClient) publicRequest(ctx context.Context, path string, params url.Values) ([]byte, error) {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, &model.ExchangeError{Op: path, Err: err}
	}
	return c.do(req, path)
}

// signedRequest 附加时间戳并用 HMAC-SHA256 对查询串签名
func (c *RestClient) signedRequest(ctx context.Context, method, path string, params url.Values) ([]byte, error) {
	params.Set("timestamp", strconv.FormatInt(c.now().UnixMilli(), 10))

	query := params.Encode()
	mac := hmac.New(sha256.New, []byte(c.secretKey))
	mac.Write([]byte(query))
	query += "&signature=" + hex.EncodeToString(mac.Sum(nil))

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path+"?"+query, nil)
	if err != nil {
		return nil, &model.ExchangeError{Op: path, Err: err}
	}
	req.Header.Set("X-MBX-APIKEY", c.apiKey)
	return c.do(req, path)
}

func (c *RestClient) do(req *http.Request, op string) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &model.ExchangeError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &model.ExchangeError{Op: op, Code: resp.StatusCode, Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr apiErrorResponse
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Msg != "" {
			return nil, &model.ExchangeError{Op: op, Code: apiErr.Code, Err: fmt.Errorf("%s", apiErr.Msg)}
		}
		return nil, &model.ExchangeError{Op: op, Code: resp.StatusCode,
			Err: fmt.Errorf("unexpected status %s", resp.Status)}
	}
	return body, nil
}
