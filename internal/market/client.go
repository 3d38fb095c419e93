package market

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	binanceKlinesURL = "https://api.binance.com/api/v3/klines"
	binanceTickerURL = "https://api.binance.com/api/v3/ticker/price"
	frankfurterURL   = "https://api.frankfurter.app/latest"

	historyDays = 180
)

// Fallback FX multipliers keep price display working when the FX API is
// down.
var (
	fallbackAUDRate = decimal.NewFromFloat(1.53)
	fallbackCNYRate = decimal.NewFromFloat(7.20)
)

// Point is one daily XRP price sample in three display currencies.
type Point struct {
	Timestamp int64   `json:"ts"` // milliseconds
	USD       float64 `json:"usd"`
	AUD       float64 `json:"aud"`
	CNY       float64 `json:"cny"`
}

// History is the market price series returned to the UI.
type History struct {
	RangeDays int     `json:"rangeDays"`
	Points    []Point `json:"points"`
}

// Client fetches XRP market prices: daily XRP/USD closes from Binance,
// AUD/CNY derived from current Frankfurter FX rates.
type Client struct {
	httpClient *http.Client
	logger     *zap.Logger

	klinesURL string
	tickerURL string
	fxURL     string
}

// NewClient creates a market price client.
func NewClient(logger *zap.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		logger:     logger,
		klinesURL:  binanceKlinesURL,
		tickerURL:  binanceTickerURL,
		fxURL:      frankfurterURL,
	}
}

func (c *Client) getJSON(ctx context.Context, rawURL string, query url.Values, out any) error {
	u := rawURL + "?" + query.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("failed to build market request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("market request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("market request failed: unexpected status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode market response: %w", err)
	}
	return nil
}

// XRPHistory returns the 180-day XRP price series. When the historical
// sources fail it degrades to a flat series at the current ticker
// price with static FX multipliers.
func (c *Client) XRPHistory(ctx context.Context) (*History, error) {
	history, err := c.fetchHistory(ctx)
	if err == nil {
		return history, nil
	}
	c.logger.Warn("falling back to ticker price for market history", zap.Error(err))
	return c.fetchFallback(ctx)
}

func (c *Client) fetchHistory(ctx context.Context) (*History, error) {
	var klines [][]json.RawMessage
	query := url.Values{}
	query.Set("symbol", "XRPUSDT")
	query.Set("interval", "1d")
	query.Set("limit", strconv.Itoa(historyDays))
	if err := c.getJSON(ctx, c.klinesURL, query, &klines); err != nil {
		return nil, err
	}
	if len(klines) == 0 {
		return nil, fmt.Errorf("empty klines response")
	}

	var fx struct {
		Rates struct {
			AUD float64 `json:"AUD"`
			CNY float64 `json:"CNY"`
		} `json:"rates"`
	}
	fxQuery := url.Values{}
	fxQuery.Set("from", "USD")
	fxQuery.Set("to", "AUD,CNY")
	if err := c.getJSON(ctx, c.fxURL, fxQuery, &fx); err != nil {
		return nil, err
	}
	if fx.Rates.AUD == 0 || fx.Rates.CNY == 0 {
		return nil, fmt.Errorf("invalid FX response")
	}

	points := make([]Point, 0, len(klines))
	for _, k := range klines {
		// Kline layout: [openTime, open, high, low, close, ...].
		if len(k) < 5 {
			continue
		}
		var openTime int64
		if err := json.Unmarshal(k[0], &openTime); err != nil {
			continue
		}
		var closeStr string
		if err := json.Unmarshal(k[4], &closeStr); err != nil {
			continue
		}
		usd, err := strconv.ParseFloat(closeStr, 64)
		if err != nil {
			continue
		}
		points = append(points, Point{
			Timestamp: openTime,
			USD:       usd,
			AUD:       usd * fx.Rates.AUD,
			CNY:       usd * fx.Rates.CNY,
		})
	}
	if len(points) == 0 {
		return nil, fmt.Errorf("no usable historical points")
	}

	return &History{RangeDays: historyDays, Points: points}, nil
}

func (c *Client) fetchFallback(ctx context.Context) (*History, error) {
	var ticker struct {
		Price string `json:"price"`
	}
	query := url.Values{}
	query.Set("symbol", "XRPUSDT")
	if err := c.getJSON(ctx, c.tickerURL, query, &ticker); err != nil {
		return nil, fmt.Errorf("unable to load XRP market data: %w", err)
	}
	usd, err := decimal.NewFromString(ticker.Price)
	if err != nil {
		return nil, fmt.Errorf("unable to load XRP market data: invalid ticker price %q", ticker.Price)
	}

	usdF, _ := usd.Float64()
	audF, _ := usd.Mul(fallbackAUDRate).Float64()
	cnyF, _ := usd.Mul(fallbackCNYRate).Float64()

	now := time.Now().UnixMilli()
	points := make([]Point, historyDays)
	for i := range points {
		points[i] = Point{
			Timestamp: now - int64(historyDays-1-i)*24*int64(time.Hour/time.Millisecond),
			USD:       usdF,
			AUD:       audF,
			CNY:       cnyF,
		}
	}
	return &History{RangeDays: historyDays, Points: points}, nil
}
