package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/qlab/tickscan/internal/scheduler"
	"github.com/qlab/tickscan/internal/scheduler/jobs"
)

// scheduleCmd represents the schedule command
var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Manage the scan scheduler",
	Long: `Starts the scheduler daemon or inspects registered jobs.

Registered jobs:
  intraday_scan - the daily ranking pass, fired late in the afternoon
                  session (SCAN_SCHEDULE cron expression)

Example:
  go run ./cmd/tickscan schedule start
  go run ./cmd/tickscan schedule list
  go run ./cmd/tickscan schedule run intraday_scan`,
}

var (
	scheduleStartCmd = &cobra.Command{
		Use:   "start",
		Short: "Start the scheduler daemon",
		RunE:  runSchedulerDaemon,
	}

	scheduleListCmd = &cobra.Command{
		Use:   "list",
		Short: "List registered jobs",
		RunE:  listScheduledJobs,
	}

	scheduleRunCmd = &cobra.Command{
		Use:   "run [job_name]",
		Short: "Run a job immediately",
		Args:  cobra.ExactArgs(1),
		RunE:  runScheduledJob,
	}
)

func init() {
	rootCmd.AddCommand(scheduleCmd)
	scheduleCmd.AddCommand(scheduleStartCmd)
	scheduleCmd.AddCommand(scheduleListCmd)
	scheduleCmd.AddCommand(scheduleRunCmd)
}

func initScheduler() (*scheduler.Scheduler, *deps, error) {
	d, err := initDeps("")
	if err != nil {
		return nil, nil, err
	}

	sched := scheduler.New(d.logger)
	if err := sched.AddJob(jobs.NewScanJob(d.orchestrator, d.sink, d.rankings, d.cfg.Scan.Schedule, d.logger)); err != nil {
		d.Close()
		return nil, nil, fmt.Errorf("register scan job: %w", err)
	}

	return sched, d, nil
}

func runSchedulerDaemon(cmd *cobra.Command, args []string) error {
	sched, d, err := initScheduler()
	if err != nil {
		return err
	}
	defer d.Close()

	sched.Start()

	fmt.Println("Scheduler started")
	fmt.Println("Registered jobs:")
	for _, jobName := range sched.GetAllJobs() {
		fmt.Printf("  - %s\n", jobName)
	}
	fmt.Println("Press Ctrl+C to stop")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	fmt.Println("Shutting down scheduler...")
	sched.Stop()
	fmt.Println("Scheduler stopped")

	return nil
}

func listScheduledJobs(cmd *cobra.Command, args []string) error {
	sched, d, err := initScheduler()
	if err != nil {
		return err
	}
	defer d.Close()

	fmt.Println("Registered jobs:")
	for _, jobName := range sched.GetAllJobs() {
		fmt.Printf("  - %s\n", jobName)
	}

	return nil
}

func runScheduledJob(cmd *cobra.Command, args []string) error {
	sched, d, err := initScheduler()
	if err != nil {
		return err
	}
	defer d.Close()

	if err := sched.RunJob(args[0]); err != nil {
		return fmt.Errorf("run job: %w", err)
	}

	// RunJob fires asynchronously; give the pass room to finish before the
	// process exits. Use the scan command for a synchronous run.
	fmt.Println("Job started, waiting for completion...")
	for {
		result, err := sched.LatestResult(args[0])
		if err != nil {
			return err
		}
		if result != nil {
			if !result.Success {
				return fmt.Errorf("job failed: %s", result.Error)
			}
			fmt.Println("Job finished")
			return nil
		}
		time.Sleep(time.Second)
	}
}
