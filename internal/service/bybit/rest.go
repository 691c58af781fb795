package bybit

import (
	"context"
	"fmt"
	"io"
	"sort"
	"time"

	"VolWatch/internal/domain/models"
	drepo "VolWatch/internal/domain/repository"
	xhttp "VolWatch/pkg/http"
	xlogger "VolWatch/pkg/logger"

	"github.com/sony/gobreaker"
	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"
)

// intervalCode maps a timeframe to Bybit's v5 kline interval parameter.
func intervalCode(tf drepo.Timeframe) string {
	switch tf {
	case drepo.TF5m:
		return "5"
	case drepo.TF15m:
		return "15"
	case drepo.TF1h:
		return "60"
	case drepo.TF4h:
		return "240"
	default:
		return "15"
	}
}

// RESTClient fetches historical klines from the Bybit v5 market API.
// Requests pass through a token-bucket limiter and a circuit breaker so a
// flapping exchange cannot stall backfill workers indefinitely.
type RESTClient struct {
	baseURL  string
	category string
	http     *xhttp.Client
	limiter  *rate.Limiter
	breaker  *gobreaker.CircuitBreaker
	logger   *xlogger.Logger
}

// NewRESTClient creates a Bybit REST candle source.
func NewRESTClient(baseURL, category string, rps float64, timeout time.Duration, lgr *xlogger.Logger) *RESTClient {
	if rps <= 0 {
		rps = 5
	}
	if category == "" {
		category = "linear"
	}
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "bybit-rest",
		MaxRequests: 2,
		Interval:    30 * time.Second,
		Timeout:     15 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})
	return &RESTClient{
		baseURL:  baseURL,
		category: category,
		http:     xhttp.NewClient(xhttp.WithTimeout(timeout)),
		limiter:  rate.NewLimiter(rate.Limit(rps), int(rps)+1),
		breaker:  cb,
		logger:   lgr,
	}
}

// FetchCandles returns up to limit closed candles for (symbol, tf), oldest first.
func (c *RESTClient) FetchCandles(ctx context.Context, symbol string, tf drepo.Timeframe, limit int) ([]models.Candle, error) {
	if limit <= 0 {
		limit = 200
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("bybit rate wait: %w", err)
	}

	out, err := c.breaker.Execute(func() (interface{}, error) {
		return c.fetchKlines(ctx, symbol, tf, limit)
	})
	if err != nil {
		return nil, err
	}
	return out.([]models.Candle), nil
}

func (c *RESTClient) fetchKlines(ctx context.Context, symbol string, tf drepo.Timeframe, limit int) ([]models.Candle, error) {
	resp, err := c.http.SendRequest(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodGet,
		URL:    c.baseURL + "/v5/market/kline",
		QueryParams: map[string][]string{
			"category": {c.category},
			"symbol":   {symbol},
			"interval": {intervalCode(tf)},
			"limit":    {fmt.Sprintf("%d", limit)},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("bybit kline %s %s: %w", symbol, tf, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("bybit kline read: %w", err)
	}
	if resp.StatusCode != 200 {
		return nil, fmt.Errorf("bybit kline %s: status %d", symbol, resp.StatusCode)
	}

	root := gjson.ParseBytes(body)
	if rc := root.Get("retCode").Int(); rc != 0 {
		return nil, fmt.Errorf("bybit kline %s: retCode=%d msg=%s", symbol, rc, root.Get("retMsg").String())
	}

	// result.list rows: [startMs, open, high, low, close, volume, turnover], newest first
	rows := root.Get("result.list").Array()
	candles := make([]models.Candle, 0, len(rows))
	for _, row := range rows {
		f := row.Array()
		if len(f) < 6 {
			continue
		}
		cd := models.Candle{
			Time:   f[0].Int() / 1000,
			Open:   f[1].Float(),
			High:   f[2].Float(),
			Low:    f[3].Float(),
			Close:  f[4].Float(),
			Volume: f[5].Float(),
		}
		if !cd.Valid() {
			continue
		}
		candles = append(candles, cd)
	}
	sort.Slice(candles, func(i, j int) bool { return candles[i].Time < candles[j].Time })

	if c.logger != nil {
		c.logger.Debug("bybit kline fetched",
			xlogger.String("symbol", symbol),
			xlogger.String("tf", string(tf)),
			xlogger.Int("count", len(candles)),
		)
	}
	return candles, nil
}

var _ drepo.CandleSource = (*RESTClient)(nil)
