package main

import (
	"fmt"

	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"

	"feeddigest/server"
	"feeddigest/utils"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "本地预览输出目录（自动刷新）并接收反馈",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, _ := cmd.Flags().GetString("addr")
		if addr == "" {
			addr = appCfg.Server.GetAddr()
		}

		var feedback server.FeedbackStore
		store, err := utils.OpenStore(appCfg.Paths.GetDatabaseFile())
		if err != nil {
			logger.Warnf("[预览] 数据库不可用，反馈接口已禁用: %v", err)
		} else {
			defer store.Close()
			feedback = store
		}

		ctx, cancel := signalContext()
		defer cancel()
		return server.NewPreview(appCfg.Paths.GetOutputDir(), feedback, logger).Run(ctx, addr)
	},
}

var feedbackCmd = &cobra.Command{
	Use:   "feedback <section> <up|down>",
	Short: "记录对某个版块的反馈",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := utils.OpenStore(appCfg.Paths.GetDatabaseFile())
		if err != nil {
			return err
		}
		defer store.Close()

		entry, err := store.AddFeedback(cmd.Context(), args[0], args[1])
		if err != nil {
			return err
		}
		logger.Infof("[反馈] 版块 [%s]: %s", entry.Section, entry.Rating)
		fmt.Fprintf(cmd.OutOrStdout(), "#%d %s %s\n", entry.ID, entry.Section, entry.Rating)
		return nil
	},
}

var feedbackListCmd = &cobra.Command{
	Use:   "list",
	Short: "列出最近的反馈",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		store, err := utils.OpenStore(appCfg.Paths.GetDatabaseFile())
		if err != nil {
			return err
		}
		defer store.Close()

		entries, err := store.ListFeedback(cmd.Context(), limit)
		if err != nil {
			return err
		}
		width := runewidth.StringWidth("版块")
		for _, e := range entries {
			width = max(width, runewidth.StringWidth(e.Section))
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%-6s  %s  %s  %s\n", "ID", runewidth.FillRight("版块", width), runewidth.FillRight("评价", 4), "时间")
		for _, e := range entries {
			fmt.Fprintf(out, "%-6d  %s  %-4s  %s\n", e.ID, runewidth.FillRight(e.Section, width), e.Rating, e.CreatedAt.Local().Format("2006-01-02 15:04"))
		}
		return nil
	},
}
