package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kingpin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/datasync-go/datasync/src/configs"
	"github.com/datasync-go/datasync/src/consts"
	"github.com/datasync-go/datasync/src/log"
	"github.com/datasync-go/datasync/src/metrics"
	"github.com/datasync-go/datasync/src/notify"
	"github.com/datasync-go/datasync/src/pipeline"
	"github.com/datasync-go/datasync/src/pkg/dump"
	"github.com/datasync-go/datasync/src/pkg/history"
	"github.com/datasync-go/datasync/src/pkg/mysql"
	"github.com/datasync-go/datasync/src/pkg/pool"
	dssentry "github.com/datasync-go/datasync/src/pkg/sentry"
	"github.com/datasync-go/datasync/src/servers"
)

// 进程退出码
const (
	exitOK     = 0
	exitFailed = 1
	exitUsage  = 2
)

const flushWindow = 2 * time.Second

type options struct {
	jobFile    string
	debug      bool
	logDir     string
	saveEvery  bool
	rotateDays int
	envFile    string
	historyDB  string
	listen     string
	sentryDSN  string
	sentryEnv  string
}

func parseArgs(args []string, stderr io.Writer) (*options, error) {
	info := consts.GetAppInfo()
	app := kingpin.New(consts.AppName, "Bounded-concurrency MySQL bulk migration.")
	app.Version(fmt.Sprintf("%s %s (%s, %s)", info.AppName, info.AppVersion, info.Platform, info.GoVersion))
	app.Writer(stderr)

	opts := &options{}
	app.Arg("job-file", "任务配置文件（.toml / .yml）").Required().StringVar(&opts.jobFile)
	app.Flag("debug", "输出 debug 日志").BoolVar(&opts.debug)
	app.Flag("log-dir", "日志目录，留空只输出到 stderr").StringVar(&opts.logDir)
	app.Flag("save-every-log", "每次运行单独写一个日志文件").BoolVar(&opts.saveEvery)
	app.Flag("rotate-days", "按天滚动日志的保留天数").Default("7").IntVar(&opts.rotateDays)
	app.Flag("env-file", "启动前加载的 .env 文件").StringVar(&opts.envFile)
	app.Flag("history-db", "运行历史 SQLite 路径，留空不记录").StringVar(&opts.historyDB)
	app.Flag("listen", "状态服务监听地址，如 127.0.0.1:8090").StringVar(&opts.listen)
	app.Flag("sentry-dsn", "Sentry DSN").Envar("DATASYNC_SENTRY_DSN").StringVar(&opts.sentryDSN)
	app.Flag("sentry-env", "Sentry environment").Default("production").StringVar(&opts.sentryEnv)

	if _, err := app.Parse(args); err != nil {
		return nil, err
	}
	return opts, nil
}

func run(args []string, stdout, stderr io.Writer) int {
	opts, err := parseArgs(args, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "%s: error: %v, try --help\n", consts.AppName, err)
		return exitUsage
	}

	if opts.envFile != "" {
		if err := godotenv.Load(opts.envFile); err != nil {
			fmt.Fprintf(stderr, "failed to load env file %s: %v\n", opts.envFile, err)
			return exitUsage
		}
	}

	logger, err := log.New(log.Config{
		Debug:        opts.debug,
		Dir:          opts.logDir,
		SaveEveryLog: opts.saveEvery,
		RotateDays:   opts.rotateDays,
		Stderr:       stderr,
	})
	if err != nil {
		fmt.Fprintf(stderr, "failed to init logger: %v\n", err)
		return exitUsage
	}
	defer logger.Close()

	if err := dssentry.Init(opts.sentryDSN, opts.sentryEnv, consts.GetAppInfo().Release()); err != nil {
		logger.WithError(err).Warn("failed to init sentry")
	}
	defer dssentry.Flush(flushWindow)

	job, err := configs.LoadJob(opts.jobFile)
	if err != nil {
		logger.WithError(err).Error("failed to load job")
		return exitUsage
	}
	jobLogger := logger.WithFields(logrus.Fields{
		"job":  job.Job.Name,
		"file": job.File,
	})
	dssentry.SetTag("job", job.Job.Name)

	route := job.Route()
	if !route.Supported() {
		jobLogger.WithFields(logrus.Fields{
			"route":         route.String(),
			"type":          job.Job.Type,
			"database_type": job.Job.DatabaseType,
		}).Warn("job is not supported, nothing to do")
		return exitOK
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	summary, err := migrate(ctx, opts, job, jobLogger)
	if err != nil {
		jobLogger.WithError(err).Error("migration aborted")
		return exitFailed
	}
	printSummary(stdout, summary)
	if !summary.OK() {
		return exitFailed
	}
	return exitOK
}

func migrate(ctx context.Context, opts *options, job *configs.Job, logger logrus.FieldLogger) (*pipeline.RunSummary, error) {
	registry := pool.NewRegistry(pool.OpenMySQL)
	defer func() {
		if err := registry.Close(); err != nil {
			logger.WithError(err).Warn("failed to close pools")
		}
	}()

	dispatcher := pipeline.NewDispatcher(
		registry,
		mysql.NewExecutor(logger),
		dump.NewMysqldump(dump.MysqldumpConfig{
			Path:         job.Options.MysqldumpPath,
			DumpDir:      job.Options.DumpDir,
			MinFreeBytes: uint64(job.Options.MinFreeSpaceMB) << 20,
		}, logger),
		dump.NewMysqlRestore(job.Options.MysqlPath, job.Options.DefaultCharacterSet, logger),
		logger,
	)

	collector := metrics.New(job.Job.Name)
	tracker := servers.NewTracker()
	dispatcher.AddObserver(collector)
	dispatcher.AddObserver(tracker)

	runID := pipeline.NewRunID()
	store := openHistory(ctx, opts.historyDB, runID, job, logger)
	if store != nil {
		defer store.Close()
		dispatcher.AddObserver(store.Recorder(runID))
	}

	if opts.listen != "" {
		srv := servers.New(servers.Config{
			Addr:    opts.listen,
			Tracker: tracker,
			Metrics: collector.Handler(),
			History: store,
			Logger:  logger,
		})
		if _, err := srv.Start(); err != nil {
			logger.WithError(err).Warn("status server disabled")
		} else {
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = srv.Close(shutdownCtx)
			}()
		}
	}

	summary, err := dispatcher.RunWithID(ctx, runID, job)
	if store != nil {
		// 运行可能已被信号取消，收尾写入不能继承 ctx
		finishCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if ferr := store.FinishRun(finishCtx, runID, summary, err); ferr != nil {
			logger.WithError(ferr).Warn("failed to finish run history")
		}
	}
	sendReport(job, notify.Report{JobName: job.Job.Name, RunID: runID, Summary: summary, Err: err}, logger)
	if err != nil {
		dssentry.CaptureException(err)
		return nil, err
	}
	return summary, nil
}

func sendReport(job *configs.Job, report notify.Report, logger logrus.FieldLogger) {
	if !job.Notify.Email.Enable {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := notify.NewMailer(job.Notify.Email, logger).Send(ctx, report); err != nil {
		logger.WithError(err).Warn("failed to send run report")
	}
}

// openHistory 打开历史库并写入运行记录，失败时返回 nil，迁移照常进行
func openHistory(ctx context.Context, path, runID string, job *configs.Job, logger logrus.FieldLogger) *history.Store {
	if path == "" {
		return nil
	}
	store, err := history.Open(path, logger)
	if err != nil {
		logger.WithError(err).Warn("run history disabled")
		return nil
	}
	err = store.BeginRun(ctx, history.Run{
		ID:      runID,
		JobName: job.Job.Name,
		JobFile: job.File,
		Source:  job.Source.String(),
		Target:  job.Target.String(),
	})
	if err != nil {
		logger.WithError(err).Warn("run history disabled")
		store.Close()
		return nil
	}
	return store
}
