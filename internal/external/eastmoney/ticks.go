package eastmoney

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/qlab/tickscan/internal/contracts"
)

// detailsResponse is the push gateway's trade-details envelope. Each detail
// line is "HH:MM:SS,price,volume,count,side" with side 1 sell, 2 buy,
// 4 neutral.
type detailsResponse struct {
	Data *struct {
		Code    string   `json:"code"`
		Details []string `json:"details"`
	} `json:"data"`
}

// FetchTicks retrieves the current session's trade details for one
// instrument. The details feed reports no per-trade price delta, so deltas
// are derived by differencing consecutive prices; the first record gets 0.
func (c *Client) FetchTicks(ctx context.Context, code string) (contracts.TickSeries, error) {
	secid, err := secID(code)
	if err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("secid", secid)
	params.Set("fields1", "f1,f2,f3,f4")
	params.Set("fields2", "f51,f52,f53,f54,f55")
	params.Set("pos", "-0")

	var resp detailsResponse
	if err := c.getJSON(ctx, c.baseURL+"/api/qt/stock/details/get", params, &resp); err != nil {
		return nil, fmt.Errorf("%w: %s", contracts.ErrProviderUnavailable, err)
	}
	if resp.Data == nil || len(resp.Data.Details) == 0 {
		return nil, contracts.ErrNoData
	}

	day := time.Now()
	var series contracts.TickSeries
	var prevPrice float64
	havePrev := false

	for _, line := range resp.Data.Details {
		fields := strings.Split(line, ",")
		if len(fields) < 5 {
			continue
		}

		at, err := parseSessionTime(fields[0], day)
		if err != nil {
			continue
		}
		price, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			continue
		}

		// Deltas difference the full price sequence, neutral fills
		// included, so a dropped record still moves the baseline.
		var delta float64
		if havePrev {
			delta = price - prevPrice
		}
		prevPrice = price
		havePrev = true

		volume, err := strconv.ParseInt(fields[2], 10, 64)
		if err != nil || volume <= 0 {
			continue
		}

		var side contracts.Side
		switch fields[4] {
		case "2":
			side = contracts.SideBuy
		case "1":
			side = contracts.SideSell
		default:
			continue
		}

		series = append(series, contracts.TickRecord{
			Time:       at,
			Price:      price,
			PriceDelta: delta,
			Volume:     volume,
			Side:       side,
		})
	}

	if len(series) == 0 {
		return nil, contracts.ErrNoData
	}

	c.logger.WithFields(map[string]interface{}{
		"code":  code,
		"ticks": len(series),
	}).Debug("Fetched tick data from EastMoney")

	return series, nil
}

// secID maps an exchange-prefixed code to the push gateway's market.code
// form: 1 for Shanghai, 0 for Shenzhen.
func secID(code string) (string, error) {
	upper := strings.ToUpper(code)
	switch {
	case strings.HasPrefix(upper, "SH"):
		return "1." + upper[2:], nil
	case strings.HasPrefix(upper, "SZ"):
		return "0." + upper[2:], nil
	default:
		return "", fmt.Errorf("unsupported instrument code %q", code)
	}
}

func parseSessionTime(hms string, day time.Time) (time.Time, error) {
	t, err := time.ParseInLocation("15:04:05", hms, time.Local)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(day.Year(), day.Month(), day.Day(),
		t.Hour(), t.Minute(), t.Second(), 0, time.Local), nil
}
