package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/recipe-edge/recipe-edge/internal/cache"
	"github.com/recipe-edge/recipe-edge/internal/classify"
	"github.com/recipe-edge/recipe-edge/internal/config"
	"github.com/recipe-edge/recipe-edge/internal/lifecycle"
	"github.com/recipe-edge/recipe-edge/internal/logging"
	"github.com/recipe-edge/recipe-edge/internal/observe"
	"github.com/recipe-edge/recipe-edge/internal/server"
	"github.com/recipe-edge/recipe-edge/internal/server/routes"
	"github.com/recipe-edge/recipe-edge/internal/strategy"
	"github.com/recipe-edge/recipe-edge/internal/version"
)

// cliOptions 汇总 CLI 标志解析后的结果，便于在测试中注入。
type cliOptions struct {
	configPath  string
	checkOnly   bool
	showVersion bool
}

var (
	stdOut io.Writer = os.Stdout
	stdErr io.Writer = os.Stderr
)

func main() {
	opts, err := parseCLIFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintln(stdErr, err.Error())
		os.Exit(2)
	}
	os.Exit(run(opts))
}

// run 根据解析到的 CLI 选项执行业务流程，并返回退出码，方便测试。
func run(opts cliOptions) int {
	if opts.showVersion {
		printVersion()
		return 0
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		fmt.Fprintf(stdErr, "加载配置失败: %v\n", err)
		return 1
	}

	logger, err := logging.InitLogger(cfg.Global)
	if err != nil {
		fmt.Fprintf(stdErr, "初始化日志失败: %v\n", err)
		return 1
	}

	if opts.checkOnly {
		fields := logging.BaseFields("check_config", opts.configPath)
		fields["cache_version"] = cfg.Global.CacheVersion
		fields["origin"] = cfg.Global.OriginURL
		fields["precache_assets"] = len(cfg.Precache)
		fields["result"] = "ok"
		logger.WithFields(fields).Info("配置校验通过")
		return 0
	}

	accessor, err := newAccessor(cfg)
	if err != nil {
		fmt.Fprintf(stdErr, "初始化缓存存储失败: %v\n", err)
		return 1
	}

	httpClient := server.NewOriginHTTPClient(cfg)
	origin, err := strategy.NewOriginClient(httpClient, cfg.Global.OriginURL)
	if err != nil {
		fmt.Fprintf(stdErr, "初始化源站客户端失败: %v\n", err)
		return 1
	}

	// 启动顺序遵循“install → activate → 对外服务”：预缓存必须全量就绪、
	// 过期缓存代必须清理完，Fiber 才开始监听。install 失败直接退出，
	// 上一个部署继续服务。
	manager := lifecycle.NewManager(accessor, origin.Fetcher(), logger, cfg.Global.CacheVersion)
	ctx := context.Background()
	if err := manager.Install(ctx, cfg.Precache); err != nil {
		fmt.Fprintf(stdErr, "预缓存安装失败: %v\n", err)
		return 1
	}
	if err := manager.Activate(ctx); err != nil {
		fmt.Fprintf(stdErr, "缓存代激活失败: %v\n", err)
		return 1
	}

	observer, err := newObserver(cfg)
	if err != nil {
		fmt.Fprintf(stdErr, "初始化指标失败: %v\n", err)
		return 1
	}

	writer := cache.NewBackgroundWriter(logger, cfg.Global.WriteQueueSize, cfg.Global.RuntimeMaxEntries)
	executor := strategy.NewExecutor(origin, manager.Claim(), writer, logger)
	forwarder, err := strategy.NewForwarder(httpClient, cfg.Global.OriginURL, logger)
	if err != nil {
		fmt.Fprintf(stdErr, "初始化直通转发失败: %v\n", err)
		return 1
	}
	classifier := classify.New(cfg.Routes.MediaPrefixes, cfg.Routes.StaticPrefixes, cfg.Routes.APIPrefixes)

	fields := logging.BaseFields("startup", opts.configPath)
	fields["cache_version"] = cfg.Global.CacheVersion
	fields["origin"] = cfg.Global.OriginURL
	fields["backend"] = cfg.Global.StorageBackend
	fields["listen_port"] = cfg.Global.ListenPort
	fields["version"] = version.Full()
	logger.WithFields(fields).Info("配置加载完成")

	if err := startHTTPServer(cfg, classifier, executor, forwarder, observer, accessor, logger); err != nil {
		fmt.Fprintf(stdErr, "HTTP 服务启动失败: %v\n", err)
		return 1
	}
	return 0
}

// parseCLIFlags 解析 CLI 参数，并结合环境变量计算最终的配置路径。
func parseCLIFlags(args []string) (cliOptions, error) {
	fs := flag.NewFlagSet("recipe-edge", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var (
		configFlag string
		checkOnly  bool
		showVer    bool
	)

	fs.StringVar(&configFlag, "config", "", "配置文件路径（默认 ./config.toml，可被 RECIPE_EDGE_CONFIG 覆盖）")
	fs.BoolVar(&checkOnly, "check-config", false, "仅校验配置后退出")
	fs.BoolVar(&showVer, "version", false, "显示版本信息")

	if err := fs.Parse(args); err != nil {
		return cliOptions{}, fmt.Errorf("解析参数失败: %w", err)
	}

	path := os.Getenv("RECIPE_EDGE_CONFIG")
	if configFlag != "" {
		path = configFlag
	}
	if path == "" {
		path = "config.toml"
	}

	return cliOptions{
		configPath:  path,
		checkOnly:   checkOnly,
		showVersion: showVer,
	}, nil
}

// newAccessor 根据配置选择磁盘或 SQLite 后端。
func newAccessor(cfg *config.Config) (cache.Accessor, error) {
	if cfg.Global.StorageBackend == "sqlite" {
		if err := os.MkdirAll(cfg.Global.StoragePath, 0o755); err != nil {
			return nil, err
		}
		return cache.NewSQLiteAccessor(cfg.Global.StoragePath + "/cache.db")
	}
	return cache.NewFSAccessor(cfg.Global.StoragePath)
}

func newObserver(cfg *config.Config) (*observe.Observer, error) {
	if !cfg.Global.MetricsEnabled {
		return observe.Disabled(), nil
	}
	return observe.New()
}

func startHTTPServer(
	cfg *config.Config,
	classifier server.RequestClassifier,
	resolver server.FetchResolver,
	pass server.Passthrough,
	observer *observe.Observer,
	accessor cache.Accessor,
	logger *logrus.Logger,
) error {
	port := cfg.Global.ListenPort
	app, err := server.NewApp(server.AppOptions{
		Logger:     logger,
		Classifier: classifier,
		Resolver:   resolver,
		Pass:       pass,
		Observer:   observer,
		ListenPort: port,
	})
	if err != nil {
		return err
	}
	routes.RegisterDiagnosticsRoutes(app, routes.DiagnosticsOptions{
		Accessor:     accessor,
		Observer:     observer,
		CacheVersion: cfg.Global.CacheVersion,
	})

	logger.WithFields(logrus.Fields{
		"action": "listen",
		"port":   port,
	}).Info("Fiber 服务启动")

	return app.Listen(fmt.Sprintf(":%d", port))
}
