// Command sellerpulse runs collection cycles against fixture-backed platforms,
// prints the resulting report and alerts, and optionally keeps running the
// monitoring pump until interrupted.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/schollz/progressbar/v3"

	"github.com/guarzo/sellerpulse/internal/config"
	"github.com/guarzo/sellerpulse/internal/connector"
	"github.com/guarzo/sellerpulse/internal/engine"
	"github.com/guarzo/sellerpulse/internal/logging"
	"github.com/guarzo/sellerpulse/internal/model"
	"github.com/guarzo/sellerpulse/internal/monitoring"
	"github.com/guarzo/sellerpulse/internal/pump"
	"github.com/guarzo/sellerpulse/internal/report"
	"github.com/guarzo/sellerpulse/internal/store"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(2)
		}
		logging.Error().Err(err).Msg("sellerpulse failed")
		os.Exit(1)
	}
}

// platformFlag collects repeated name=path fixture bindings
type platformFlag []platformSource

type platformSource struct {
	name string
	path string
}

func (p *platformFlag) String() string {
	parts := make([]string, len(*p))
	for i, s := range *p {
		parts[i] = s.name + "=" + s.path
	}
	return strings.Join(parts, ",")
}

func (p *platformFlag) Set(value string) error {
	name, path, ok := strings.Cut(value, "=")
	if !ok || name == "" || path == "" {
		return fmt.Errorf("want name=path, got %q", value)
	}
	*p = append(*p, platformSource{name: name, path: path})
	return nil
}

type options struct {
	configPath      string
	platforms       platformFlag
	format          string
	out             string
	compress        bool
	reportType      string
	recommendations bool
	charts          bool
	rules           string
	historyCSV      string
	serve           bool
	monitor         string
	metricsAddr     string
	progress        bool
	stateDir        string
}

func parseFlags(args []string) (*options, error) {
	opts := &options{}
	fs := flag.NewFlagSet("sellerpulse", flag.ContinueOnError)
	fs.StringVar(&opts.configPath, "config", "", "config file (default: $SELLERPULSE_CONFIG or ./config.yaml)")
	fs.Var(&opts.platforms, "platform", "platform fixture as name=path, repeatable")
	fs.StringVar(&opts.format, "format", "text", "report format: text, csv or json")
	fs.StringVar(&opts.out, "out", "", "write the report to this file instead of stdout")
	fs.BoolVar(&opts.compress, "brotli", false, "brotli-compress json output (requires -out)")
	fs.StringVar(&opts.reportType, "report-type", "performance", "report type label")
	fs.BoolVar(&opts.recommendations, "recommendations", true, "include the recommendations section")
	fs.BoolVar(&opts.charts, "charts", false, "mark the report as chart-enabled")
	fs.StringVar(&opts.rules, "rules", "", "alert rules as type=threshold pairs, e.g. low_ctr=0.02,price_drop_pct=10")
	fs.StringVar(&opts.historyCSV, "history-csv", "", "append each cycle's metrics to this CSV file")
	fs.BoolVar(&opts.serve, "serve", false, "keep running the monitoring pump after the first cycle")
	fs.StringVar(&opts.monitor, "monitor", "", "comma-separated search terms to monitor in -serve mode")
	fs.StringVar(&opts.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address in -serve mode")
	fs.BoolVar(&opts.progress, "progress", true, "show a progress bar across platforms")
	fs.StringVar(&opts.stateDir, "state-dir", "", "persist datasets, snapshots, schedules, sessions and rules under this directory")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if len(opts.platforms) == 0 {
		return nil, errors.New("at least one -platform name=path is required")
	}
	switch opts.format {
	case "text", "csv", "json":
	default:
		return nil, fmt.Errorf("unknown format %q", opts.format)
	}
	if opts.compress && (opts.format != "json" || opts.out == "") {
		return nil, errors.New("-brotli needs -format json and -out")
	}
	return opts, nil
}

// parseRules reads "low_ctr=0.02,price_drop=25" into rule specs
func parseRules(value string) ([]monitoring.RuleSpec, error) {
	if strings.TrimSpace(value) == "" {
		return nil, nil
	}
	var specs []monitoring.RuleSpec
	for _, part := range strings.Split(value, ",") {
		alertType, raw, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			return nil, fmt.Errorf("rule %q: want type=threshold", part)
		}
		threshold, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("rule %q: %w", part, err)
		}
		specs = append(specs, monitoring.RuleSpec{AlertType: model.AlertType(alertType), Threshold: threshold})
	}
	return specs, nil
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	opts, err := parseFlags(args)
	if err != nil {
		return err
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}
	logging.Init(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	log := logging.Component("cli")

	stores, err := openStores(opts.stateDir)
	if err != nil {
		return err
	}
	eng := engine.New(*cfg, stores)
	defer func() {
		// Close would also clear the persisted state
		closeFn := eng.Close
		if opts.stateDir != "" {
			closeFn = eng.Registry().Close
		}
		if err := closeFn(); err != nil {
			log.Warn().Err(err).Msg("close failed")
		}
	}()

	for _, src := range opts.platforms {
		fixture, err := connector.LoadFixture(src.path)
		if err != nil {
			return fmt.Errorf("platform %s: %w", src.name, err)
		}
		if err := eng.AddPlatform(src.name, connector.NewStatic(fixture)); err != nil {
			return err
		}
	}

	specs, err := parseRules(opts.rules)
	if err != nil {
		return err
	}
	if _, err := eng.ConfigureAlertRules(specs); err != nil {
		return err
	}

	if err := runCycles(ctx, eng, opts, stdout); err != nil {
		return err
	}
	if !opts.serve {
		return nil
	}
	return serve(ctx, eng, cfg, opts, stdout)
}

// openStores returns file-backed stores under dir, or in-memory ones when dir
// is empty
func openStores(dir string) (engine.Stores, error) {
	if dir == "" {
		return engine.Stores{}, nil
	}
	datasets, err := store.OpenFile[model.CollectedDataset](filepath.Join(dir, "datasets.json"))
	if err != nil {
		return engine.Stores{}, err
	}
	snapshots, err := store.OpenFile[model.CompetitorSnapshot](filepath.Join(dir, "snapshots.json"))
	if err != nil {
		return engine.Stores{}, err
	}
	updates, err := store.OpenFile[model.ScheduledUpdate](filepath.Join(dir, "schedules.json"))
	if err != nil {
		return engine.Stores{}, err
	}
	sessions, err := store.OpenFile[model.MonitoringSession](filepath.Join(dir, "sessions.json"))
	if err != nil {
		return engine.Stores{}, err
	}
	rules, err := store.OpenFile[model.AlertRule](filepath.Join(dir, "rules.json"))
	if err != nil {
		return engine.Stores{}, err
	}
	return engine.Stores{
		Datasets:  datasets,
		Snapshots: snapshots,
		Updates:   updates,
		Sessions:  sessions,
		Rules:     rules,
	}, nil
}

func runCycles(ctx context.Context, eng *engine.Engine, opts *options, stdout io.Writer) error {
	var bar *progressbar.ProgressBar
	if opts.progress && len(opts.platforms) > 1 {
		bar = progressbar.NewOptions(len(opts.platforms),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionSetDescription("collecting"),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
		)
	}

	reportCfg := report.Config{
		ReportType:             opts.reportType,
		IncludeRecommendations: opts.recommendations,
		IncludeCharts:          opts.charts,
	}

	var alerts []model.TriggeredAlert
	for _, src := range opts.platforms {
		cycle, err := eng.RunCycle(ctx, src.name, reportCfg)
		if err != nil {
			return fmt.Errorf("platform %s: %w", src.name, err)
		}
		if bar != nil {
			_ = bar.Add(1)
		}

		if err := writeReport(cycle.Report, opts, src.name, stdout); err != nil {
			return err
		}
		if opts.historyCSV != "" {
			if err := eng.History().AppendCSV(opts.historyCSV, src.name); err != nil {
				return err
			}
		}
		alerts = append(alerts, cycle.Alerts...)
	}
	if bar != nil {
		_ = bar.Finish()
	}

	_, err := io.WriteString(stdout, monitoring.FormatAlerts(alerts))
	return err
}

func writeReport(r *report.Report, opts *options, platformName string, stdout io.Writer) error {
	w := stdout
	if opts.out != "" {
		path := opts.out
		if len(opts.platforms) > 1 {
			path = platformName + "-" + path
		}
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("creating report file: %w", err)
		}
		defer f.Close()
		w = f
	}

	switch {
	case opts.format == "csv":
		return r.WriteCSV(w)
	case opts.format == "json" && opts.compress:
		return r.WriteJSONBrotli(w)
	case opts.format == "json":
		return r.WriteJSON(w)
	default:
		_, err := io.WriteString(w, r.Text())
		return err
	}
}

func serve(ctx context.Context, eng *engine.Engine, cfg *config.Config, opts *options, stdout io.Writer) error {
	log := logging.Component("cli")

	for _, term := range strings.Split(opts.monitor, ",") {
		term = strings.TrimSpace(term)
		if term == "" {
			continue
		}
		session, resumed, err := eng.ResumeCompetitorMonitoring(term, monitoring.MonitoringOptions{})
		if err != nil {
			return err
		}
		log.Info().
			Str("session_id", session.SessionID).
			Str("search_term", term).
			Bool("resumed", resumed).
			Msg("monitoring")
	}

	p, err := pump.New(eng.Scheduler(), eng.Snapshots(), pump.Options{
		Spec: cfg.Monitor.PumpSpec,
		OnChanges: func(session model.MonitoringSession, changes []model.CompetitorChange) {
			fmt.Fprintf(stdout, "%d competitor changes for %q on %s\n", len(changes), session.SearchTerm, session.Platform)
			for _, c := range changes {
				fmt.Fprintf(stdout, "  %s %s\n", c.Type, c.ItemID)
			}
		},
	})
	if err != nil {
		return err
	}

	var srv *http.Server
	if opts.metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		srv = &http.Server{Addr: opts.metricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error().Err(err).Msg("metrics server stopped")
			}
		}()
		log.Info().Str("addr", opts.metricsAddr).Msg("serving metrics")
	}

	p.Start()
	<-ctx.Done()
	<-p.Stop().Done()

	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("metrics server shutdown")
		}
	}
	return nil
}
