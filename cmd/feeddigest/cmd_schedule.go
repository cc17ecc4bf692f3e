package main

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"

	"feeddigest/models"
	"feeddigest/utils"
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "按配置时间持续生成日报与周报",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()
		a, err := openApp(ctx, appCfg, logger)
		if err != nil {
			return err
		}
		defer a.Close()
		return runScheduler(ctx, a)
	},
}

// nextRun 下一次触发时间以及该时间点要执行的任务
func nextRun(now time.Time, s models.ScheduleConfig) (at time.Time, daily, weekly bool, err error) {
	d, err := utils.NextDaily(now, s.GetDailyAt())
	if err != nil {
		return time.Time{}, false, false, err
	}
	w, err := utils.NextWeekly(now, s.GetWeeklyDay(), s.GetWeeklyAt())
	if err != nil {
		return time.Time{}, false, false, err
	}
	at = d
	if w.Before(at) {
		at = w
	}
	return at, !d.After(at), !w.After(at), nil
}

// runScheduler 数据配置变化只标记为待重载，在下一次运行前读取
func runScheduler(ctx context.Context, a *app) error {
	var dirty atomic.Bool
	var wg sync.WaitGroup
	defer wg.Wait()
	watchCtx, stopWatch := context.WithCancel(ctx)
	defer stopWatch()

	wg.Add(1)
	go func() {
		defer wg.Done()
		err := utils.WatchPaths(watchCtx, a.cfg.Paths.DataFiles(), utils.DefaultDebounce, func(name string) {
			dirty.Store(true)
			a.log.Infof("[调度] %s 已修改，将在下次运行前重新加载", name)
		}, a.log)
		if err != nil {
			a.log.Warnf("[调度] 配置监控不可用: %v", err)
		}
	}()

	data := loadData(a.cfg.Paths, a.log)
	for {
		at, daily, weekly, err := nextRun(time.Now(), a.cfg.Schedule)
		if err != nil {
			return err
		}
		a.log.Infof("[调度] 下次运行: %s (日报: %v, 周报: %v)", at.Format(time.DateTime), daily, weekly)

		timer := time.NewTimer(time.Until(at))
		select {
		case <-ctx.Done():
			timer.Stop()
			a.log.Infof("[调度] 已停止")
			return nil
		case <-timer.C:
		}

		if dirty.Swap(false) {
			a.log.Infof("[调度] 重新加载数据配置")
			data = loadData(a.cfg.Paths, a.log)
		}
		if daily {
			if report, err := a.daily(ctx, data, at); err != nil {
				a.log.Errorf("[调度] 日报失败: %v", err)
			} else {
				a.log.Infof("[调度] 日报完成: %s", report.Key)
			}
		}
		if weekly {
			if report, err := a.weekly(ctx, data, at); err != nil {
				a.log.Errorf("[调度] 周报失败: %v", err)
			} else {
				a.log.Infof("[调度] 周报完成: %s", report.Key)
			}
		}
	}
}
