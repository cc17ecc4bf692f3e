package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

var dailyCmd = &cobra.Command{
	Use:   "daily",
	Short: "生成日报",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		day := time.Now()
		if s, _ := cmd.Flags().GetString("date"); s != "" {
			t, err := time.ParseInLocation(time.DateOnly, s, time.Local)
			if err != nil {
				return fmt.Errorf("invalid --date %q: %w", s, err)
			}
			day = t
		}

		ctx, cancel := signalContext()
		defer cancel()
		a, err := openApp(ctx, appCfg, logger)
		if err != nil {
			return err
		}
		defer a.Close()

		report, err := a.daily(ctx, loadData(appCfg.Paths, logger), day)
		printReport(cmd.OutOrStdout(), report)
		return err
	},
}

var weeklyCmd = &cobra.Command{
	Use:   "weekly",
	Short: "根据近 7 天历史生成周报",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()
		a, err := openApp(ctx, appCfg, logger)
		if err != nil {
			return err
		}
		defer a.Close()

		report, err := a.weekly(ctx, loadData(appCfg.Paths, logger), time.Now())
		printReport(cmd.OutOrStdout(), report)
		return err
	},
}

var archiveCmd = &cobra.Command{
	Use:   "archive",
	Short: "重新生成归档索引",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()
		a, err := openApp(ctx, appCfg, logger)
		if err != nil {
			return err
		}
		defer a.Close()

		path, err := a.generator.PublishArchiveIndex()
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), path)
		return nil
	},
}
