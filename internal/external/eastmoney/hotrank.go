package eastmoney

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/qlab/tickscan/internal/contracts"
)

// hotRankPageSize matches the app's board depth.
const hotRankPageSize = 100

// hotRankRequest is the ranking service's expected POST body.
type hotRankRequest struct {
	AppID      string `json:"appId"`
	GlobalID   string `json:"globalId"`
	MarketType string `json:"marketType"`
	PageNo     int    `json:"pageNo"`
	PageSize   int    `json:"pageSize"`
}

// hotRankResponse carries ranked security codes like "SH600000".
type hotRankResponse struct {
	Data []struct {
		Code string `json:"sc"`
		Rank int    `json:"rk"`
	} `json:"data"`
}

// quoteResponse is the push gateway's batch quote envelope. Prices and
// change percentages arrive scaled by 100.
type quoteResponse struct {
	Data *struct {
		Diff []struct {
			Price     float64 `json:"f2"`
			ChangePct float64 `json:"f3"`
			Code      string  `json:"f12"`
			Name      string  `json:"f14"`
		} `json:"diff"`
	} `json:"data"`
}

// FetchCandidates returns today's hot-rank board joined with live quotes.
// When the ranking service is down it falls back to scraping the HTML board,
// which carries the same codes with name, price and change inline.
func (c *Client) FetchCandidates(ctx context.Context) ([]contracts.Candidate, error) {
	codes, err := c.fetchHotRankCodes(ctx)
	if err != nil {
		c.logger.WithError(err).Warn("Hot rank service failed, falling back to HTML board")
		return c.scrapeHotRankBoard(ctx)
	}

	candidates, err := c.fetchQuotes(ctx, codes)
	if err != nil {
		return nil, fmt.Errorf("fetch quotes: %w", err)
	}

	c.logger.WithFields(map[string]interface{}{
		"ranked":     len(codes),
		"candidates": len(candidates),
	}).Info("Fetched hot rank candidates")

	return candidates, nil
}

func (c *Client) fetchHotRankCodes(ctx context.Context) ([]string, error) {
	req := hotRankRequest{
		AppID:      "appId01",
		GlobalID:   "786e4c21-70dc-435a-93bb-38",
		MarketType: "",
		PageNo:     1,
		PageSize:   hotRankPageSize,
	}

	var resp hotRankResponse
	if err := c.postJSON(ctx, c.hotRankBaseURL+"/stockrank/getAllCurrentList", req, &resp); err != nil {
		return nil, err
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("empty hot rank board")
	}

	codes := make([]string, 0, len(resp.Data))
	for _, entry := range resp.Data {
		codes = append(codes, entry.Code)
	}
	return codes, nil
}

// fetchQuotes resolves names, prices and intraday change for ranked codes
// via the batch quote endpoint.
func (c *Client) fetchQuotes(ctx context.Context, codes []string) ([]contracts.Candidate, error) {
	secids := make([]string, 0, len(codes))
	byNumeric := make(map[string]string, len(codes))
	for _, code := range codes {
		id, err := secID(code)
		if err != nil {
			continue
		}
		secids = append(secids, id)
		byNumeric[strings.ToUpper(code)[2:]] = strings.ToUpper(code)
	}
	if len(secids) == 0 {
		return nil, fmt.Errorf("no quotable codes on the board")
	}

	params := url.Values{}
	params.Set("secids", strings.Join(secids, ","))
	params.Set("fields", "f2,f3,f12,f14")
	params.Set("fltt", "1")

	var resp quoteResponse
	if err := c.getJSON(ctx, c.baseURL+"/api/qt/ulist.np/get", params, &resp); err != nil {
		return nil, err
	}
	if resp.Data == nil {
		return nil, fmt.Errorf("empty quote response")
	}

	candidates := make([]contracts.Candidate, 0, len(resp.Data.Diff))
	for _, q := range resp.Data.Diff {
		full, ok := byNumeric[q.Code]
		if !ok {
			continue
		}
		candidates = append(candidates, contracts.Candidate{
			Code:      full,
			Name:      q.Name,
			Price:     q.Price / 100,
			ChangePct: q.ChangePct / 100,
		})
	}
	return candidates, nil
}

// scrapeHotRankBoard parses the HTML ranking board. Each row carries the
// code, name, latest price and change percentage.
func (c *Client) scrapeHotRankBoard(ctx context.Context) ([]contracts.Candidate, error) {
	body, err := c.getHTML(ctx, c.hotRankPageURL)
	if err != nil {
		return nil, fmt.Errorf("fetch rank board: %w", err)
	}
	defer body.Close()

	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return nil, fmt.Errorf("parse rank board: %w", err)
	}

	var candidates []contracts.Candidate
	doc.Find("table.rank-table tbody tr").Each(func(i int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < 4 {
			return
		}

		code := strings.TrimSpace(cells.Eq(0).Text())
		name := strings.TrimSpace(cells.Eq(1).Text())
		price, err := strconv.ParseFloat(strings.TrimSpace(cells.Eq(2).Text()), 64)
		if err != nil {
			return
		}
		changeText := strings.TrimSuffix(strings.TrimSpace(cells.Eq(3).Text()), "%")
		changePct, err := strconv.ParseFloat(changeText, 64)
		if err != nil {
			return
		}

		candidates = append(candidates, contracts.Candidate{
			Code:      strings.ToUpper(code),
			Name:      name,
			Price:     price,
			ChangePct: changePct,
		})
	})

	if len(candidates) == 0 {
		return nil, fmt.Errorf("no candidates on the rank board")
	}
	return candidates, nil
}
