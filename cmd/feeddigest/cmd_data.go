package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"feeddigest/utils"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "分类缓存维护",
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "清空分类缓存",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := utils.OpenStore(appCfg.Paths.GetDatabaseFile())
		if err != nil {
			return err
		}
		defer store.Close()
		return clearClassifyCache(cmd.Context(), store, cmd.OutOrStdout(), logger)
	},
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "列出已保存快照的日期",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := utils.OpenStore(appCfg.Paths.GetDatabaseFile())
		if err != nil {
			return err
		}
		defer store.Close()
		return listHistory(cmd.Context(), store, cmd.OutOrStdout())
	},
}

func clearClassifyCache(ctx context.Context, store *utils.Store, w io.Writer, log *zap.SugaredLogger) error {
	n, err := store.ClearClassifyCache(ctx)
	if err != nil {
		return fmt.Errorf("清空分类缓存失败: %w", err)
	}
	log.Infof("[分类缓存] %s: 已清除 %d 条", store.Path(), n)
	fmt.Fprintf(w, "已清除 %d 条分类缓存\n", n)
	return nil
}

func listHistory(ctx context.Context, store *utils.Store, w io.Writer) error {
	dates, err := store.HistoryDates(ctx)
	if err != nil {
		return fmt.Errorf("读取历史日期失败: %w", err)
	}
	if len(dates) == 0 {
		fmt.Fprintln(w, "没有历史快照")
		return nil
	}
	for _, d := range dates {
		fmt.Fprintln(w, d)
	}
	return nil
}
