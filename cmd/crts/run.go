package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/cognitive-radio/crts/internal/feedback"
	"github.com/cognitive-radio/crts/internal/harness"
	"github.com/cognitive-radio/crts/internal/impairment"
	"github.com/cognitive-radio/crts/internal/metrics"
	"github.com/cognitive-radio/crts/internal/transport"
	"github.com/cognitive-radio/crts/pkg/config"
	"github.com/cognitive-radio/crts/pkg/logger"
	"github.com/cognitive-radio/crts/pkg/utils"
)

type runOptions struct {
	master       string
	dataDir      string
	stdoutData   bool
	seed         int64
	maxFrames    int
	metricsAddr  string
	feedbackAddr string
}

var runOpts runOptions

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run every engine against every scenario of a master file",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return runTests(ctx, runOpts)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	f := runCmd.Flags()
	f.StringVarP(&runOpts.master, "master", "m", "master.yaml", "master test list")
	f.StringVar(&runOpts.dataDir, "data-dir", "data", "directory for the per-frame data log")
	f.BoolVar(&runOpts.stdoutData, "stdout-data", false, "also print data log rows to stdout")
	f.Int64Var(&runOpts.seed, "seed", 0, "random seed for channel impairments (0 uses the master file, then the clock)")
	f.IntVar(&runOpts.maxFrames, "max-frames", 0, "frame limit per test (0 uses the master file)")
	f.StringVar(&runOpts.metricsAddr, "metrics-addr", "", "serve /metrics and run status on this address")
	f.StringVar(&runOpts.feedbackAddr, "feedback-addr", "", "accept remote feedback over gRPC on this address")
}

func runTests(ctx context.Context, o runOptions) error {
	m, err := config.LoadMaster(o.master)
	if err != nil {
		return err
	}
	seed := o.seed
	if seed == 0 {
		seed = m.Seed
	}
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	utils.SetSeed(seed)

	rm := harness.NewRunManager(ctx, "", o.master)
	rm.SetMetadata("seed", fmt.Sprint(seed))
	log := logger.With("run_id", rm.GetRun().ID)

	exporter, err := metrics.NewExporter(nil)
	if err != nil {
		return fmt.Errorf("failed to register metrics: %w", err)
	}

	dataLog, closeData, err := openDataLog(o.dataDir, rm.GetRun().ID, o.stdoutData)
	if err != nil {
		return err
	}
	defer closeData()

	ch := feedback.NewChannel()

	rx := impairment.NewRxWorker(impairment.NewPipeline(utils.NewRandSource(seed + 1)))
	rx.SetLogger(log)
	rx.Start(rm.Context())
	defer func() {
		if err := rx.Stop(); err != nil {
			log.Warn("rx worker stopped with error", "error", err)
		}
	}()

	lb := harness.NewLoopback(ch, rx)
	lb.SetLogger(log)
	orch := harness.NewOrchestrator(lb, ch, harness.Options{
		MaxFrames: o.maxFrames,
		Seed:      seed,
		Exporter:  exporter,
		DataLog:   dataLog,
		Logger:    log,
		Run:       rm,
	})

	var shutdown []func(context.Context)
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		for _, fn := range shutdown {
			fn(sctx)
		}
	}()

	if o.feedbackAddr != "" {
		lis, err := net.Listen("tcp", o.feedbackAddr)
		if err != nil {
			return fmt.Errorf("failed to listen for feedback on %s: %w", o.feedbackAddr, err)
		}
		grpcServer := grpc.NewServer(grpc.UnaryInterceptor(exporter.UnaryServerInterceptor()))
		srv := transport.NewServer(ch)
		srv.SetLogger(log)
		transport.Register(grpcServer, srv)
		go func() {
			log.Info("feedback server listening", "addr", o.feedbackAddr)
			if err := grpcServer.Serve(lis); err != nil {
				log.Error("feedback server error", "error", err)
				rm.Cancel()
			}
		}()
		shutdown = append(shutdown, func(context.Context) { grpcServer.GracefulStop() })
	}

	if o.metricsAddr != "" {
		httpSrv := &http.Server{
			Addr:              o.metricsAddr,
			Handler:           transport.NewHTTPServer(rm, orch.Summary(), exporter).Handler(),
			ReadHeaderTimeout: 5 * time.Second,
			WriteTimeout:      10 * time.Second,
			IdleTimeout:       120 * time.Second,
			MaxHeaderBytes:    1 << 20,
		}
		go func() {
			log.Info("metrics server listening", "addr", o.metricsAddr)
			if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("metrics server error", "error", err)
			}
		}()
		shutdown = append(shutdown, func(ctx context.Context) {
			if err := httpSrv.Shutdown(ctx); err != nil {
				log.Error("metrics server shutdown error", "error", err)
			}
		})
	}

	rm.Start()
	log.Info("run started", "master", o.master, "seed", seed)
	if err := orch.Run(rm.Context(), m); err != nil {
		rm.Fail(err)
		log.Error("run failed", rm.Stats()...)
		return err
	}
	rm.Complete()
	log.Info("run completed", rm.Stats()...)
	return nil
}

// openDataLog opens a size-rotated data log under dir.
func openDataLog(dir, runID string, stdout bool) (io.Writer, func(), error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("failed to create data dir %s: %w", dir, err)
	}
	lj := &lumberjack.Logger{
		Filename:   filepath.Join(dir, runID+".dat"),
		MaxSize:    50,
		MaxBackups: 5,
		Compress:   true,
	}
	var w io.Writer = lj
	if stdout {
		w = io.MultiWriter(lj, os.Stdout)
	}
	return w, func() { _ = lj.Close() }, nil
}
