package tencent

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/qlab/tickscan/internal/contracts"
)

// maxPages bounds the detail pagination. One page carries a few thousand
// trades; a full session fits comfortably.
const maxPages = 30

// FetchTicks retrieves the current session's trade details for one
// instrument, paging through the detail endpoint until a page comes back
// empty. Records arrive in timestamp order and keep it.
//
// The endpoint answers with a small JS literal:
//
//	["sh600000","0/09:30:00/10.00/0.00/100/100000/B|1/09:30:03/..."]
//
// one record per "|" group, fields "/"-separated: seq, time, price, signed
// price delta, volume in lots, turnover in yuan, side (B buy, S sell, M
// neutral). Neutral and zero-volume records are dropped.
func (c *Client) FetchTicks(ctx context.Context, code string) (contracts.TickSeries, error) {
	symbol := strings.ToLower(code)
	day := time.Now()

	var series contracts.TickSeries
	for page := 0; page < maxPages; page++ {
		params := url.Values{}
		params.Set("appn", "detail")
		params.Set("action", "data")
		params.Set("c", symbol)
		params.Set("p", strconv.Itoa(page))

		body, err := c.fetch(ctx, "/data/index.php", params)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", contracts.ErrProviderUnavailable, err)
		}

		records, err := parseDetailPage(body, day)
		if err != nil {
			return nil, fmt.Errorf("parse detail page %d: %w", page, err)
		}
		if len(records) == 0 {
			break
		}
		series = append(series, records...)
	}

	if len(series) == 0 {
		return nil, contracts.ErrNoData
	}

	c.logger.WithFields(map[string]interface{}{
		"code":  code,
		"ticks": len(series),
	}).Debug("Fetched tick data from Tencent")

	return series, nil
}

// parseDetailPage extracts tick records from one detail response body.
func parseDetailPage(body string, day time.Time) (contracts.TickSeries, error) {
	payload, err := extractPayload(body)
	if err != nil {
		return nil, err
	}
	if payload == "" {
		return nil, nil
	}

	var records contracts.TickSeries
	for _, group := range strings.Split(payload, "|") {
		fields := strings.Split(group, "/")
		if len(fields) < 7 {
			continue
		}

		at, err := parseSessionTime(fields[1], day)
		if err != nil {
			continue
		}
		price, err := strconv.ParseFloat(fields[2], 64)
		if err != nil {
			continue
		}
		delta, err := strconv.ParseFloat(fields[3], 64)
		if err != nil {
			continue
		}
		volume, err := strconv.ParseInt(fields[4], 10, 64)
		if err != nil || volume <= 0 {
			continue
		}

		var side contracts.Side
		switch fields[6] {
		case "B":
			side = contracts.SideBuy
		case "S":
			side = contracts.SideSell
		default:
			// Neutral fills carry no direction signal.
			continue
		}

		records = append(records, contracts.TickRecord{
			Time:       at,
			Price:      price,
			PriceDelta: delta,
			Volume:     volume,
			Side:       side,
		})
	}

	return records, nil
}

// extractPayload pulls the second element of the JS array literal out of the
// response body. An empty payload means the page is past the end of the
// session's data.
func extractPayload(body string) (string, error) {
	start := strings.Index(body, "[")
	end := strings.LastIndex(body, "]")
	if start < 0 || end <= start {
		return "", fmt.Errorf("malformed detail response")
	}

	parts := strings.SplitN(body[start+1:end], ",", 2)
	if len(parts) < 2 {
		return "", nil
	}
	return strings.Trim(strings.TrimSpace(parts[1]), `"'`), nil
}

func parseSessionTime(hms string, day time.Time) (time.Time, error) {
	t, err := time.ParseInLocation("15:04:05", hms, time.Local)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(day.Year(), day.Month(), day.Day(),
		t.Hour(), t.Minute(), t.Second(), 0, time.Local), nil
}
