package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Ramsey-B/thistle/config"
	"github.com/Ramsey-B/thistle/pkg/kafka"
	"github.com/Ramsey-B/thistle/pkg/metrics"
	"github.com/Ramsey-B/thistle/pkg/screening"
	"github.com/Ramsey-B/thistle/pkg/tracing"
)

func newScreenCmd(a *app) *cobra.Command {
	var (
		customers, negative, positive, out string
		workers                            int
		residual, textfile                 string
		strict, snapshot, consolidate      bool
		noScoring, publish                 bool
	)

	cmd := &cobra.Command{
		Use:   "screen",
		Short: "Run a batch screening and write the match ledger",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := a.cfg
			f := cmd.Flags()
			override(f.Changed("customers"), &cfg.CustomerPath, customers)
			override(f.Changed("negative"), &cfg.NegativePath, negative)
			override(f.Changed("positive"), &cfg.PositivePath, positive)
			override(f.Changed("out"), &cfg.OutputDir, out)
			override(f.Changed("workers"), &cfg.Workers, workers)
			override(f.Changed("residual-mode"), &cfg.ResidualMode, residual)
			override(f.Changed("metrics-textfile"), &cfg.MetricsTextfile, textfile)
			override(f.Changed("strict-ids"), &cfg.StrictDuplicateIDs, strict)
			override(f.Changed("snapshot"), &cfg.SnapshotEnabled, snapshot)
			override(f.Changed("consolidate"), &cfg.ConsolidateLedger, consolidate)
			override(f.Changed("no-scoring"), &cfg.ScoringEnabled, !noScoring)
			override(f.Changed("kafka"), &cfg.KafkaEnabled, publish)
			if err := cfg.Validate(); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if cfg.TracingEnabled {
				shutdown := tracing.Setup(cfg.AppName, a.log)
				defer func() { _ = shutdown(context.Background()) }()
			}

			var publisher screening.Publisher
			if cfg.KafkaEnabled {
				producer := newProducer(a, cfg)
				defer producer.Close()
				publisher = screening.NewKafkaPublisher(producer)
			}

			svc := screening.NewService(a.log, optionsFromConfig(cfg), metrics.New(), publisher)
			result, err := svc.Run(ctx)
			if err != nil {
				return err
			}

			a.log.WithFields(map[string]any{
				"run_id":      result.RunID,
				"output_dir":  cfg.OutputDir,
				"ledger_rows": result.Ledger.Len(),
				"unmatched":   len(result.Unmatched),
			}).Info("Ledger written")
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&customers, "customers", "", "customer list CSV")
	f.StringVar(&negative, "negative", "", "negative watchlist CSV")
	f.StringVar(&positive, "positive", "", "positive watchlist CSV")
	f.StringVarP(&out, "out", "o", "", "output directory")
	f.IntVar(&workers, "workers", 0, "comparator goroutines per rule")
	f.StringVar(&residual, "residual-mode", "", "PDM pool: per_list or combined")
	f.StringVar(&textfile, "metrics-textfile", "", "write Prometheus metrics to this file")
	f.BoolVar(&strict, "strict-ids", false, "fail on watchlist ids shared by distinct rows")
	f.BoolVar(&snapshot, "snapshot", false, "write per-rule ledgers, pools and preprocessed lists")
	f.BoolVar(&consolidate, "consolidate", false, "merge negative and positive outcomes per customer and stage")
	f.BoolVar(&noScoring, "no-scoring", false, "skip composite scoring")
	f.BoolVar(&publish, "kafka", false, "publish ledger rows as match events")
	return cmd
}

func override[T any](changed bool, dst *T, v T) {
	if changed {
		*dst = v
	}
}

func optionsFromConfig(cfg *config.Config) screening.Options {
	return screening.Options{
		CustomerPath:       cfg.CustomerPath,
		NegativePath:       cfg.NegativePath,
		PositivePath:       cfg.PositivePath,
		OutputDir:          cfg.OutputDir,
		Workers:            cfg.Workers,
		ResidualMode:       cfg.ResidualMode,
		StrictDuplicateIDs: cfg.StrictDuplicateIDs,
		Snapshot:           cfg.SnapshotEnabled,
		Scoring:            cfg.ScoringEnabled,
		Consolidate:        cfg.ConsolidateLedger,
		MetricsTextfile:    cfg.MetricsTextfile,
	}
}

func newProducer(a *app, cfg *config.Config) *kafka.Producer {
	return kafka.NewProducer(kafka.ProducerConfig{
		Brokers:      cfg.KafkaBrokers,
		Topic:        cfg.KafkaOutputTopic,
		BatchSize:    cfg.KafkaBatchSize,
		BatchTimeout: cfg.KafkaBatchTimeoutDuration(),
		RequiredAcks: cfg.KafkaRequiredAcks,
		Compression:  cfg.KafkaCompression,
	}, a.log)
}
