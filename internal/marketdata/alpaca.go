package marketdata

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"

	"backtester/internal/series"
	"backtester/internal/util"
)

// Compile-time interface check.
var _ Provider = (*AlpacaProvider)(nil)

// AlpacaProvider fetches bar history from the Alpaca market-data API.
type AlpacaProvider struct {
	client  *marketdata.Client
	limiter *util.RateLimiter
	retries int
}

// NewAlpacaProvider creates an AlpacaProvider with the given credentials.
// dataURL overrides the default API endpoint when non-empty. Calls are paced
// at ratePerMin requests per minute.
func NewAlpacaProvider(apiKey, apiSecret, dataURL string, ratePerMin int) *AlpacaProvider {
	opts := marketdata.ClientOpts{
		APIKey:    apiKey,
		APISecret: apiSecret,
	}
	if dataURL != "" {
		opts.BaseURL = dataURL
	}

	return &AlpacaProvider{
		client:  marketdata.NewClient(opts),
		limiter: util.NewRateLimiter(ratePerMin),
		retries: 3,
	}
}

// Fetch downloads bars for symbol at the given interval within [start, end]
// and shapes them into a raw Table. Transient API failures are retried with
// backoff; a persistent failure or an empty response yields a
// DataFetchError.
func (p *AlpacaProvider) Fetch(ctx context.Context, symbol, interval string, start, end time.Time) (series.Table, error) {
	tf, err := timeFrame(interval)
	if err != nil {
		return series.Table{}, err
	}

	if err := p.limiter.Wait(ctx); err != nil {
		return series.Table{}, err
	}

	symbol = strings.ToUpper(symbol)
	var bars []marketdata.Bar
	err = util.Retry(ctx, p.retries, 500*time.Millisecond, func() error {
		var ferr error
		bars, ferr = p.client.GetBars(symbol, marketdata.GetBarsRequest{
			TimeFrame: tf,
			Start:     start,
			End:       end,
			Feed:      "sip",
		})
		return ferr
	})
	if err != nil {
		return series.Table{}, &DataFetchError{Symbol: symbol, Err: err}
	}
	if len(bars) == 0 {
		return series.Table{}, &DataFetchError{
			Symbol: symbol,
			Err:    fmt.Errorf("no bars returned for %s to %s", start.Format("2006-01-02"), end.Format("2006-01-02")),
		}
	}

	tbl := series.Table{
		Symbol:     symbol,
		Timestamps: make([]time.Time, len(bars)),
		Columns: map[string][]float64{
			"open":   make([]float64, len(bars)),
			"high":   make([]float64, len(bars)),
			"low":    make([]float64, len(bars)),
			"close":  make([]float64, len(bars)),
			"volume": make([]float64, len(bars)),
		},
	}
	for i, b := range bars {
		tbl.Timestamps[i] = b.Timestamp
		tbl.Columns["open"][i] = b.Open
		tbl.Columns["high"][i] = b.High
		tbl.Columns["low"][i] = b.Low
		tbl.Columns["close"][i] = b.Close
		tbl.Columns["volume"][i] = float64(b.Volume)
	}
	return tbl, nil
}

func timeFrame(interval string) (marketdata.TimeFrame, error) {
	switch interval {
	case IntervalDay:
		return marketdata.OneDay, nil
	case IntervalWeek:
		return marketdata.NewTimeFrame(1, marketdata.Week), nil
	case IntervalHourly:
		return marketdata.OneHour, nil
	}
	return marketdata.TimeFrame{}, fmt.Errorf("unsupported interval %q", interval)
}
