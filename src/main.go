package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"GamesMarketDash/src/config"
	"GamesMarketDash/src/datasource/file"
	"GamesMarketDash/src/processor"
	"GamesMarketDash/src/storage"
	"GamesMarketDash/src/web"

	"github.com/robfig/cron"
	"github.com/spf13/cobra"
)

const (
	configFile     = "config.json"
	dataConfigFile = "dataconfig.json"
)

// rootOptions 所有子命令共用的参数
type rootOptions struct {
	ConfigDir string
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "gamesdash",
		Short: "Состояние игровой индустрии",
		Long:  "游戏市场看板: 读取游戏数据集, 按类型/评级/年份筛选并绘制发行和评分图表",
	}
	cmd.PersistentFlags().StringVar(&opts.ConfigDir, "config", "./config", "配置目录(config.json, dataconfig.json)")

	cmd.AddCommand(newServeCommand(opts))
	cmd.AddCommand(newSummaryCommand(opts))
	return cmd
}

func newServeCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:          "serve",
		Short:        "启动看板HTTP服务",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, opts)
		},
	}
}

// summaryOptions summary命令的筛选参数
// 没有指定的参数使用dataconfig.json中的默认筛选条件
type summaryOptions struct {
	Genres  []string
	Ratings []string
	From    int
	To      int
	changed func(name string) bool
}

// selection 用命令行中给出的参数覆盖默认条件
func (o *summaryOptions) selection(defaults processor.Selection) processor.Selection {
	sel := defaults
	if o.changed == nil {
		return sel
	}
	if o.changed("genre") {
		sel.Genres = o.Genres
	}
	if o.changed("rating") {
		sel.Ratings = o.Ratings
	}
	if o.changed("from") {
		sel.Years.Min = o.From
	}
	if o.changed("to") {
		sel.Years.Max = o.To
	}
	return sel
}

func newSummaryCommand(opts *rootOptions) *cobra.Command {
	sopts := &summaryOptions{}

	cmd := &cobra.Command{
		Use:          "summary",
		Short:        "在终端输出筛选结果",
		Long:         "在终端输出筛选结果; 未指定的筛选参数取dataconfig.json中的默认值",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			sopts.changed = cmd.Flags().Changed
			return runSummary(cmd.OutOrStdout(), cmd.ErrOrStderr(), opts, sopts)
		},
	}
	cmd.Flags().StringSliceVar(&sopts.Genres, "genre", nil, "游戏类型, 可重复(默认取配置)")
	cmd.Flags().StringSliceVar(&sopts.Ratings, "rating", nil, "评级, 可重复(默认取配置)")
	cmd.Flags().IntVar(&sopts.From, "from", 0, "起始年份(包含, 默认取配置)")
	cmd.Flags().IntVar(&sopts.To, "to", 0, "结束年份(包含, 默认取配置)")
	return cmd
}

func loadOptions(cfg *config.Config, dcfg *config.DataConfig) file.Options {
	return file.Options{
		Columns:  file.ColumnsFromMap(dcfg.Columns),
		MinYear:  dcfg.MinYear,
		Sheet:    cfg.SheetName,
		Encoding: cfg.Encoding,
	}
}

func loadDataset(cfg *config.Config, dcfg *config.DataConfig, logger *storage.Logger) (*storage.Dataset, error) {
	t1 := time.Now()
	table, err := file.Load(cfg.DataPath, loadOptions(cfg, dcfg))
	if err != nil {
		logger.Error(err.Error())
		return nil, err
	}
	logger.Info(fmt.Sprintf("数据加载完成: %s, %d 行, 耗时 %v", cfg.DataPath, table.Len(), time.Since(t1)))
	return storage.NewDataset(cfg.DataPath, table), nil
}

// reloadDataset 重新读取整个数据文件, 失败时保留旧数据
func reloadDataset(path string, opts file.Options, ds *storage.Dataset, logger *storage.Logger) {
	table, err := file.Load(path, opts)
	if err != nil {
		logger.Error(fmt.Sprintf("重新加载数据失败, 继续使用旧数据: %v", err))
		return
	}
	ds.Set(table)
	logger.Info(fmt.Sprintf("数据已重新加载: %s, %d 行", path, table.Len()))
}

// scheduleRotation 定时检查日志大小
func scheduleRotation(cfg *config.Config, logger *storage.Logger) (*cron.Cron, error) {
	c := cron.New()

	// 使用配置中的检查间隔而不是硬编码的1分钟
	cronSpec := fmt.Sprintf("@every %s", time.Duration(cfg.LogCheckInterval).String())
	err := c.AddFunc(cronSpec, func() {
		if err := logger.CheckRotate(cfg); err != nil {
			logger.Error("日志轮转失败: " + err.Error())
		}
	})
	if err != nil {
		return nil, fmt.Errorf("创建定时任务失败: %w", err)
	}
	return c, nil
}

// reopenOnHangup 收到SIGHUP时重新打开日志文件
func reopenOnHangup(ctx context.Context, hup <-chan os.Signal, logger *storage.Logger, name string) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-hup:
			if err := logger.Reopen(name); err != nil {
				logger.Error("重新打开日志文件失败: " + err.Error())
				continue
			}
			logger.Info("收到SIGHUP, 日志文件已重新打开")
		}
	}
}

func runServe(ctx context.Context, opts *rootOptions) error {
	cfg, dcfg, err := config.LoadConfig(opts.ConfigDir, configFile, dataConfigFile)
	if err != nil {
		return fmt.Errorf("加载配置失败: %w", err)
	}

	// 初始化日志系统
	logger, err := storage.NewLogger(cfg.LogName)
	if err != nil {
		return fmt.Errorf("初始化日志失败: %w", err)
	}
	defer logger.Close()

	ds, err := loadDataset(cfg, dcfg, logger)
	if err != nil {
		return err
	}

	c, err := scheduleRotation(cfg, logger)
	if err != nil {
		logger.Error(err.Error())
		return err
	}
	c.Start()
	defer c.Stop()

	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)
	go reopenOnHangup(ctx, hup, logger, cfg.LogName)

	if cfg.WatchData {
		monitor, err := file.NewFileMonitor(cfg.DataPath)
		if err != nil {
			logger.Error(err.Error())
			return err
		}
		defer monitor.Close()

		go func() {
			err := monitor.Watch(ctx, func(path string) {
				reloadDataset(path, loadOptions(cfg, dcfg), ds, logger)
			})
			if err != nil {
				logger.Error("数据文件监控失败: " + err.Error())
			}
		}()
		logger.Info("已开启数据文件监控: " + cfg.DataPath)
	}

	srv := &http.Server{
		Addr:        cfg.Server.Addr,
		Handler:     web.NewServer(ds, dcfg, logger).Handler(),
		ReadTimeout: time.Duration(cfg.Server.ReadTimeout),
		// 退出时结束/logs等长连接
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.ListenAndServe()
	}()
	logger.Info(fmt.Sprintf("看板服务已启动(地址: %s)，按Ctrl+C退出", cfg.Server.Addr))

	select {
	case err := <-errChan:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		logger.Error("HTTP服务异常退出: " + err.Error())
		return err
	case <-ctx.Done():
	}

	logger.Info("收到退出信号, 正在关闭...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func runSummary(out, errOut io.Writer, opts *rootOptions, sopts *summaryOptions) error {
	cfg, dcfg, err := config.LoadConfig(opts.ConfigDir, configFile, dataConfigFile)
	if err != nil {
		return fmt.Errorf("加载配置失败: %w", err)
	}

	logger := storage.NewWriterLogger(errOut)
	ds, err := loadDataset(cfg, dcfg, logger)
	if err != nil {
		return err
	}

	srv := web.NewServer(ds, dcfg, logger)
	table := ds.Get()
	sel := sopts.selection(srv.ParseSelection(url.Values{}, table))
	filtered := processor.Filter(table, sel)

	fmt.Fprintln(out, srv.CountText(processor.Count(filtered)))
	fmt.Fprintln(out)

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "%s\t%s\t%s\n", processor.ColYear, processor.ColPlatform, "Count")
	for _, r := range processor.ReleasesByYearPlatform(filtered) {
		fmt.Fprintf(tw, "%d\t%s\t%d\n", r.Year, r.Platform, r.Count)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	sum := processor.SummarizeScores(filtered)
	fmt.Fprintln(out)
	fmt.Fprintf(out, "%s: %s\n", processor.ColUserScore, sum.MeanUser)
	fmt.Fprintf(out, "%s: %s (%d/%d)\n", processor.ColCriticScore, sum.MeanCritic, sum.CriticCount, sum.Games)
	return nil
}
