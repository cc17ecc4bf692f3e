package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"feeddigest/models"
)

var (
	// 全局参数
	configPath string
	verbose    bool

	appCfg *models.AppConfig
	logger *zap.SugaredLogger
)

var rootCmd = &cobra.Command{
	Use:   "feeddigest",
	Short: "RSS 新闻摘要生成器",
	Long: `feeddigest 采集 RSS 源，按规则与模型筛选分类，
为每个类别合成带引用的摘要，并生成静态 HTML 日报与周报。`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := models.LoadAppConfig(configPath)
		if err != nil {
			return err
		}
		appCfg = cfg

		zcfg := zap.NewProductionConfig()
		zcfg.Encoding = "console"
		zcfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		level, err := zapcore.ParseLevel(cfg.Logging.GetLevel())
		if err != nil {
			return fmt.Errorf("invalid log level: %w", err)
		}
		if verbose {
			level = zapcore.DebugLevel
		}
		zcfg.Level = zap.NewAtomicLevelAt(level)

		l, err := zcfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		logger = l.Sugar()
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "feeddigest.yaml", "应用配置文件")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "输出调试日志")

	dailyCmd.Flags().String("date", "", "日报日期 YYYY-MM-DD（默认今天）")
	serveCmd.Flags().String("addr", "", "监听地址（默认取配置 server.addr）")
	feedbackListCmd.Flags().Int("limit", 20, "显示条数")

	feedbackCmd.AddCommand(feedbackListCmd)
	cacheCmd.AddCommand(cacheClearCmd)
	rootCmd.AddCommand(dailyCmd, weeklyCmd, archiveCmd, serveCmd, scheduleCmd, feedbackCmd, cacheCmd, historyCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
