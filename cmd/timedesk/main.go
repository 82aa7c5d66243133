package main

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/robfig/cron/v3"
	"github.com/spf13/pflag"

	"timedesk/internal/capture"
	"timedesk/internal/config"
	appLog "timedesk/internal/log"
	"timedesk/internal/metrics"
	"timedesk/internal/session"
	"timedesk/internal/source"
	"timedesk/internal/web"
)

type flagConfig struct {
	configPath string
	listen     string
	events     string
	once       bool
	snapshot   string
	debug      bool
}

func main() {
	flags := parseFlags()

	conf, err := config.Load(flags.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		os.Exit(1)
	}
	applyFlags(conf, flags)

	if err := appLog.Init(conf.LogOptions()); err != nil {
		appLog.Error("failed to initialize logging", err)
		os.Exit(1)
	}
	appLog.Info("timedesk starting", "version", "0.1.0")

	if err := conf.Validate(); err != nil {
		appLog.Error("invalid config", err, "config_path", flags.configPath)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, conf, flags); err != nil {
		appLog.Error("timedesk failed", err)
		os.Exit(1)
	}
	appLog.Info("timedesk exiting")
}

func parseFlags() flagConfig {
	var cfg flagConfig

	pflag.StringVar(&cfg.configPath, "config", "/etc/timedesk/config.yaml", "Path to config file")
	pflag.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")
	pflag.StringVar(&cfg.events, "events", "", "Events file or http(s) URL (overrides config if set)")
	pflag.BoolVar(&cfg.once, "once", false, "Compute the layout once, print it as JSON and exit")
	pflag.StringVar(&cfg.snapshot, "snapshot", "", "Capture the rendered page to this PNG and exit")
	pflag.BoolVar(&cfg.debug, "debug", false, "Log at debug level")

	pflag.Parse()
	return cfg
}

func applyFlags(conf *config.Config, flags flagConfig) {
	if flags.listen != "" {
		conf.Listen = flags.listen
	}
	if flags.events != "" {
		if strings.HasPrefix(flags.events, "http://") || strings.HasPrefix(flags.events, "https://") {
			conf.EventsURL = flags.events
		} else {
			conf.EventsFile = flags.events
			conf.EventsURL = ""
		}
	}
	if flags.debug {
		conf.Log.Level = string(appLog.LevelDebug)
	}
}

func newLoader(conf *config.Config) (source.Loader, error) {
	if conf.EventsURL != "" {
		return source.NewRemote(conf.EventsURL, conf.CacheDir), nil
	}
	return source.NewFile(conf.EventsFile)
}

// reloader serializes reloads triggered by cron, the file watcher and the API.
type reloader struct {
	mu      sync.Mutex
	loader  source.Loader
	sess    *session.Session
	metrics *metrics.Metrics
	loc     *time.Location
}

func (r *reloader) Reload(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	records, err := r.loader.Load(ctx, source.DecodeOptions{BaseYear: r.sess.BaseYear(), Location: r.loc})
	if err != nil {
		r.metrics.Reload(metrics.ReloadError)
		return err
	}
	return r.sess.Reload(records)
}

func run(ctx context.Context, conf *config.Config, flags flagConfig) error {
	scfg, err := conf.Session()
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.Register(registry)

	sess := session.New(scfg, session.WithMetrics(m))

	loader, err := newLoader(conf)
	if err != nil {
		return err
	}
	rl := &reloader{loader: loader, sess: sess, metrics: m, loc: scfg.Location}

	appLog.Info("effective config",
		"listen", conf.Listen,
		"timezone", conf.Timezone,
		"source", loader.Name(),
		"base_year", sess.BaseYear(),
		"clock_mode", conf.ClockMode,
		"refresh", conf.RefreshCron,
		"once", flags.once,
		"snapshot", flags.snapshot,
	)

	if err := rl.Reload(ctx); err != nil {
		if flags.once || flags.snapshot != "" {
			return err
		}
		appLog.Error("initial reload failed; serving empty timeline", err, "source", loader.Name())
	}

	if flags.once {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(sess.View())
	}

	c := cron.New()
	if _, err := c.AddFunc(conf.RefreshCron, func() {
		if err := rl.Reload(ctx); err != nil && !errors.Is(err, session.ErrNoEvents) {
			appLog.Error("scheduled reload failed", err, "source", loader.Name())
		}
	}); err != nil {
		return err
	}
	if _, err := c.AddFunc(conf.ClockTick, func() {
		sess.SetNow(time.Now())
	}); err != nil {
		return err
	}
	c.Start()
	defer c.Stop()

	if conf.WatchEventsFile && conf.EventsURL == "" {
		go func() {
			err := source.Watch(ctx, conf.EventsFile, func() {
				appLog.Info("events file changed, reloading", "path", conf.EventsFile)
				if err := rl.Reload(ctx); err != nil {
					appLog.Error("reload after file change failed", err, "path", conf.EventsFile)
				}
			})
			if err != nil {
				appLog.Error("events file watcher stopped", err, "path", conf.EventsFile)
			}
		}()
	}

	srv := web.NewServer(conf, sess,
		web.WithReload(rl.Reload),
		web.WithGatherer(registry),
	)

	if flags.snapshot == "" {
		return srv.Serve(ctx)
	}

	ln, err := net.Listen("tcp", conf.Listen)
	if err != nil {
		return err
	}
	serveCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ServeListener(serveCtx, ln) }()

	err = capture.Snapshot(ctx, capture.Options{
		URL:        pageURL(conf, ln.Addr().String()),
		OutputPath: flags.snapshot,
		Width:      int(conf.Viewport.Width),
		Height:     int(conf.Viewport.ContainerHeight),
		FullPage:   true,
	})
	cancel()
	if serr := <-errCh; serr != nil && err == nil {
		err = serr
	}
	if err == nil {
		appLog.Info("snapshot written", "path", flags.snapshot)
	}
	return err
}

// pageURL is the page on the bound address, with basic auth credentials
// when they are configured.
func pageURL(conf *config.Config, addr string) string {
	host := addr
	if h, port, err := net.SplitHostPort(addr); err == nil && (h == "" || h == "::" || h == "0.0.0.0") {
		host = net.JoinHostPort("127.0.0.1", port)
	}
	u := url.URL{Scheme: "http", Host: host, Path: "/"}
	if ba := conf.BasicAuth; ba != nil && ba.Username != "" && ba.Password != "" {
		u.User = url.UserPassword(ba.Username, ba.Password)
	}
	return u.String()
}
