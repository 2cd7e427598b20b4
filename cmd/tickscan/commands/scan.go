package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

// scanCmd represents the scan command
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Run one ranking pass now",
	Long: `Runs a single ranking pass over today's hot-rank universe:
fetch tick details per stock, clean wash trades, extract order-flow,
microstructure and momentum features, score and rank.

The snapshot is persisted when DATABASE_URL is set and pushed to
DingTalk when the webhook is configured.

Example:
  go run ./cmd/tickscan scan
  go run ./cmd/tickscan scan --model v8.0
  go run ./cmd/tickscan scan --top 10 --no-notify`,
	RunE: runScan,
}

var (
	scanModel    string
	scanTop      int
	scanNoNotify bool
	scanNoSave   bool
)

func init() {
	rootCmd.AddCommand(scanCmd)

	scanCmd.Flags().StringVar(&scanModel, "model", "", "scoring preset (default from MODEL_VERSION)")
	scanCmd.Flags().IntVar(&scanTop, "top", 20, "rows to print")
	scanCmd.Flags().BoolVar(&scanNoNotify, "no-notify", false, "skip the DingTalk push")
	scanCmd.Flags().BoolVar(&scanNoSave, "no-save", false, "skip database persistence")
}

func runScan(cmd *cobra.Command, args []string) error {
	d, err := initDeps(scanModel)
	if err != nil {
		return err
	}
	defer d.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	started := time.Now()
	snapshot, err := d.orchestrator.Run(ctx)
	if err != nil {
		return fmt.Errorf("ranking pass: %w", err)
	}

	fmt.Printf("=== tickscan %s (%s) ===\n", snapshot.Date.Format("2006-01-02"), snapshot.ModelVersion)
	fmt.Printf("universe %d, ranked %d, dropped %d, took %s\n\n",
		snapshot.Universe, len(snapshot.Stocks), snapshot.Failed, time.Since(started).Round(time.Millisecond))

	if len(snapshot.Stocks) == 0 {
		fmt.Println("No instrument survived this pass.")
		return nil
	}

	limit := min(scanTop, len(snapshot.Stocks))
	fmt.Printf("%-4s %-10s %-10s %10s %8s %8s\n", "#", "code", "name", "price", "chg%", "score")
	for _, s := range snapshot.Stocks[:limit] {
		fmt.Printf("%-4d %-10s %-10s %10.2f %8.2f %8.1f\n",
			s.Rank, s.Code, s.Name, s.CurrentPrice, s.IntradayChange, s.Score)
	}

	if d.rankings != nil && !scanNoSave {
		if err := d.rankings.SaveSnapshot(ctx, snapshot); err != nil {
			d.logger.WithError(err).Error("Failed to persist ranking snapshot")
		} else {
			fmt.Println("\nSnapshot saved to database")
		}
	}

	if d.sink != nil && !scanNoNotify {
		if err := d.sink.Send(ctx, snapshot); err != nil {
			return fmt.Errorf("send notification: %w", err)
		}
		fmt.Println("Notification sent")
	}

	return nil
}
