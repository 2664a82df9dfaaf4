package main

import (
	"context"
	"fmt"
	"time"

	"cukerail/internal/config"
	"cukerail/internal/logging"
	"cukerail/internal/reporter"
	"cukerail/internal/store"
	"cukerail/internal/testrail"
)

// loadConfig resolves and validates the configuration selected by --config.
func (o *rootOptions) loadConfig() (*config.Config, error) {
	cfg, err := config.Resolve(o.configPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newClient(cfg *config.Config) (*testrail.Client, error) {
	client, err := testrail.New(cfg.URL, cfg.User, cfg.Password,
		testrail.WithTimeout(time.Duration(cfg.Timeout)),
		testrail.WithLogger(logging.New("testrail")),
	)
	if err != nil {
		return nil, fmt.Errorf("create TestRail client: %w", err)
	}
	return client, nil
}

// openStore opens the submission ledger. db "-" keeps it in memory.
func openStore(cfg *config.Config) (store.Store, error) {
	if cfg.DB == "" || cfg.DB == "-" {
		return store.NewMemStore(), nil
	}
	st, err := store.Open(cfg.DB)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	return st, nil
}

func reporterOptions(cfg *config.Config, rec store.Recorder) []reporter.Option {
	opts := []reporter.Option{
		reporter.WithProject(cfg.Project),
		reporter.WithStatuses(reporter.NewStatusTable(cfg.Statuses)),
		reporter.WithCaseTypes(cfg.CaseTypes.Automated, cfg.CaseTypes.Manual),
		reporter.WithManualMinPriority(cfg.ManualMinPriority),
		reporter.WithConfigurationsField(cfg.ConfigurationsField),
		reporter.WithPlanDescription(cfg.PlanDescription),
		reporter.WithLogger(logging.New("reporter")),
	}
	if rec != nil {
		opts = append(opts, reporter.WithRecorder(rec))
	}
	return opts
}

// planName returns the --plan value, falling back to the configured plan.
func planName(flagValue string, cfg *config.Config) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	if cfg.Plan != "" {
		return cfg.Plan, nil
	}
	return "", fmt.Errorf("%w: no plan given, use --plan or set plan in the config", reporter.ErrInvalidArgument)
}

// session bundles what a TestRail command works with.
type session struct {
	cfg    *config.Config
	client *testrail.Client
	store  store.Store
}

func (o *rootOptions) openSession() (*session, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, err
	}
	client, err := newClient(cfg)
	if err != nil {
		return nil, err
	}
	st, err := openStore(cfg)
	if err != nil {
		return nil, err
	}
	return &session{cfg: cfg, client: client, store: st}, nil
}

func (s *session) Close() error { return s.store.Close() }

// newReporter builds a reporter for plan, or the configured plan when
// plan is empty.
func (s *session) newReporter(ctx context.Context, plan string) (*reporter.Reporter, error) {
	name, err := planName(plan, s.cfg)
	if err != nil {
		return nil, err
	}
	return reporter.New(ctx, s.client, name, reporterOptions(s.cfg, s.store)...)
}
