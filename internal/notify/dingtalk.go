package notify

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/qlab/tickscan/internal/contracts"
	"github.com/qlab/tickscan/pkg/config"
	"github.com/qlab/tickscan/pkg/httputil"
	"github.com/qlab/tickscan/pkg/logger"
)

// DingTalk posts the ranking report to a DingTalk group robot. Requests are
// signed with the robot's HMAC-SHA256 secret.
type DingTalk struct {
	httpClient *httputil.Client
	logger     *logger.Logger

	webhookURL string
	secret     string
	topN       int

	now func() time.Time
}

// NewDingTalk creates a DingTalk sink from config.
func NewDingTalk(httpClient *httputil.Client, cfg config.DingTalkConfig, log *logger.Logger) *DingTalk {
	return &DingTalk{
		httpClient: httpClient,
		logger:     log,
		webhookURL: cfg.WebhookURL,
		secret:     cfg.Secret,
		topN:       cfg.TopN,
		now:        time.Now,
	}
}

type markdownMessage struct {
	MsgType  string `json:"msgtype"`
	Markdown struct {
		Title string `json:"title"`
		Text  string `json:"text"`
	} `json:"markdown"`
}

type robotResponse struct {
	ErrCode int    `json:"errcode"`
	ErrMsg  string `json:"errmsg"`
}

// Send posts the top-N entries of the snapshot as a markdown report. An
// empty snapshot is logged and skipped without calling the webhook.
func (d *DingTalk) Send(ctx context.Context, snapshot *contracts.RankingSnapshot) error {
	if len(snapshot.Stocks) == 0 {
		d.logger.Info("No ranked stocks, skipping notification")
		return nil
	}

	msg := markdownMessage{MsgType: "markdown"}
	msg.Markdown.Title = fmt.Sprintf("Ranking report %s", snapshot.ModelVersion)
	msg.Markdown.Text = d.renderReport(snapshot)

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.signedURL(), strings.NewReader(string(body)))
	if err != nil {
		return fmt.Errorf("create webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("webhook request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("webhook status %d", resp.StatusCode)
	}

	var robot robotResponse
	if err := json.NewDecoder(resp.Body).Decode(&robot); err != nil {
		return fmt.Errorf("decode webhook response: %w", err)
	}
	if robot.ErrCode != 0 {
		return fmt.Errorf("webhook rejected: %d %s", robot.ErrCode, robot.ErrMsg)
	}

	d.logger.WithFields(map[string]interface{}{
		"stocks": min(len(snapshot.Stocks), d.topN),
	}).Info("Notification sent")

	return nil
}

// signedURL appends the millisecond timestamp and the base64 HMAC-SHA256
// signature the robot API expects.
func (d *DingTalk) signedURL() string {
	timestamp := strconv.FormatInt(d.now().UnixMilli(), 10)
	stringToSign := timestamp + "\n" + d.secret

	mac := hmac.New(sha256.New, []byte(d.secret))
	mac.Write([]byte(stringToSign))
	sign := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	sep := "?"
	if strings.Contains(d.webhookURL, "?") {
		sep = "&"
	}
	return fmt.Sprintf("%s%stimestamp=%s&sign=%s", d.webhookURL, sep, timestamp, url.QueryEscape(sign))
}

// renderReport formats the top-N entries as DingTalk markdown.
func (d *DingTalk) renderReport(snapshot *contracts.RankingSnapshot) string {
	stocks := snapshot.Stocks
	if len(stocks) > d.topN {
		stocks = stocks[:d.topN]
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# Intraday ranking %s - %s\n\n", snapshot.ModelVersion, snapshot.Date.Format("2006-01-02 15:04"))
	fmt.Fprintf(&b, "## Top %d by score\n\n", len(stocks))

	for _, s := range stocks {
		arrow := "down"
		if s.IntradayChange > 0 {
			arrow = "up"
		}
		fmt.Fprintf(&b, "### %d. %s (%s)\n", s.Rank, s.Name, s.Code)
		fmt.Fprintf(&b, "- **%.2f** (%s %.2f%%)\n", s.CurrentPrice, arrow, s.IntradayChange)
		fmt.Fprintf(&b, "- **Score**: **%.2f** (%s)\n", s.Score, s.ModelVersion)
		fmt.Fprintf(&b, "- Pressure ratio: %.2f\n", s.Features.Microstructure.PressureRatio)
		fmt.Fprintf(&b, "- Active buy ratio: %.2f%%\n", s.Features.OrderFlow.ActiveBuyRatio*100)
		fmt.Fprintf(&b, "- Large buy %.2f%% vs sell %.2f%%\n",
			s.Features.OrderFlow.LargeBuyRatio*100, s.Features.OrderFlow.LargeSellRatio*100)
		fmt.Fprintf(&b, "- Momentum %.2f / closing %.2f\n",
			s.Features.OrderFlow.MomentumRatio, s.Features.OrderFlow.ClosingRatio)
		fmt.Fprintf(&b, "- Wash-trade suspicion: %.2f%%\n", s.Features.WashTradeRatio*100)
		fmt.Fprintf(&b, "- Kyle's lambda: %.6f\n\n", s.Features.Microstructure.KyleLambda)
	}

	fmt.Fprintf(&b, "_%d candidates, %d dropped_\n", snapshot.Universe, snapshot.Failed)
	return b.String()
}
