package main

import (
	"context"
	"net/http"
	"time"

	"github.com/xoplog/microjson/mjbase"
	"github.com/xoplog/microjson/mjbytes"
	"github.com/xoplog/microjson/mjfield"
	"github.com/xoplog/microjson/mjjson"
	"github.com/xoplog/microjson/mjnum"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

type runOptions struct {
	workers      int
	rate         float64
	events       int
	config       string
	flatten      bool
	kafkaBrokers []string
	kafkaTopic   string
	metricsAddr  string
}

func newRunCmd() *cobra.Command {
	var opts runOptions
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run workers that each open spans and emit events",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCommand(cmd, opts)
		},
	}
	f := cmd.Flags()
	f.IntVar(&opts.workers, "workers", 4, "number of concurrent workers")
	f.Float64Var(&opts.rate, "rate", 0, "events per second across all workers, 0 for unlimited")
	f.IntVar(&opts.events, "events", 10, "events per worker")
	f.StringVar(&opts.config, "config", "", "TOML file with layer settings")
	f.BoolVar(&opts.flatten, "flatten", false, "put fields at the top level")
	f.StringSliceVar(&opts.kafkaBrokers, "kafka-brokers", nil, "send lines to these Kafka brokers instead of stdout")
	f.StringVar(&opts.kafkaTopic, "kafka-topic", "logs", "Kafka topic")
	f.StringVar(&opts.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	return cmd
}

func runCommand(cmd *cobra.Command, opts runOptions) error {
	if opts.workers < 1 {
		return errors.Errorf("--workers must be at least 1, got %d", opts.workers)
	}
	if opts.events < 0 {
		return errors.Errorf("--events must not be negative, got %d", opts.events)
	}
	config := mjjson.DefaultConfig()
	if opts.config != "" {
		var err error
		config, err = mjjson.LoadConfigFile(opts.config)
		if err != nil {
			return err
		}
	}
	if cmd.Flags().Changed("flatten") {
		config.FlattenEvent = opts.flatten
	}
	if config.Source == "" {
		config.Source = "mjgen " + version
	}

	var sink mjbytes.BytesWriter
	if len(opts.kafkaBrokers) != 0 {
		sink = mjbytes.WriteToKafka(mjbytes.NewKafkaProducer(opts.kafkaBrokers, opts.kafkaTopic))
	} else {
		sink = mjbytes.WriteToIOWriter(cmd.OutOrStdout())
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	layer := mjjson.New(sink,
		mjjson.WithConfig(config),
		mjjson.WithThreadNames(true),
		mjjson.WithMetrics(reg),
		mjjson.WithErrorReporter(func(err error) {
			cmd.PrintErrln("mjgen:", err)
		}),
	)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if opts.metricsAddr != "" {
		srv := &http.Server{
			Addr:              opts.metricsAddr,
			Handler:           promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				cmd.PrintErrln("mjgen: metrics server:", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	start := time.Now()
	runErr := generate(ctx, layer, workload{
		workers: opts.workers,
		events:  opts.events,
		rate:    opts.rate,
	})
	summary := &mjbase.Event{
		Level:    mjnum.InfoLevel,
		Metadata: genMeta,
		Fields: mjfield.NewSet(
			mjfield.Message("run complete"),
			mjfield.Int("workers", opts.workers),
			mjfield.Int("events", opts.workers*opts.events),
			mjfield.String("elapsed", time.Since(start).String()),
		),
	}
	if runErr != nil {
		summary.Level = mjnum.ErrorLevel
		summary.Fields.Add(mjfield.Error("error", runErr))
	}
	if err := layer.OnEvent(nil, summary); err != nil && runErr == nil {
		runErr = err
	}
	if err := layer.Close(); err != nil && runErr == nil {
		runErr = err
	}
	return runErr
}
