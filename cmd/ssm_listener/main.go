// Command ssm_listener consumes inbound ASM/SSM messages from a NATS
// subject and processes each one synchronously: parse, resolve against
// the schedule, log, then apply or reject. There is no queueing beyond
// the transport itself; a message is fully decided before the next one
// is handled.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"schedlink/internal/config"
	"schedlink/internal/gateway"
	"schedlink/internal/metrics"
	"schedlink/internal/storage"
)

func main() {
	zl, err := zap.NewProduction()
	if err != nil {
		os.Exit(1)
	}
	defer zl.Sync()
	logger := zl.Sugar()

	cfg := config.Load()
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := storage.Open(ctx, cfg.Storage)
	if err != nil {
		logger.Fatalw("open storage", "error", err)
	}
	defer db.Close()

	var archive *storage.Archive
	if cfg.ArchiveEnabled {
		archive, err = storage.OpenArchive(ctx, cfg.ClickHouse)
		if err != nil {
			logger.Fatalw("open archive", "error", err)
		}
		defer archive.Close()
		if err := archive.CreateSchema(ctx); err != nil {
			logger.Fatalw("archive schema", "error", err)
		}
	}

	proc := gateway.New(db, db, logger)
	m := metrics.New("schedlink")

	nc, err := nats.Connect(cfg.NATSURL,
		nats.Name("schedlink-ssm-listener"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second))
	if err != nil {
		logger.Fatalw("connect nats", "url", cfg.NATSURL, "error", err)
	}
	defer nc.Drain()

	sub, err := nc.Subscribe(cfg.NATSSubject, func(msg *nats.Msg) {
		handleMessage(ctx, proc, archive, m, logger, string(msg.Data))
	})
	if err != nil {
		logger.Fatalw("subscribe", "subject", cfg.NATSSubject, "error", err)
	}
	defer sub.Unsubscribe()

	go func() {
		http.Handle("/metrics", promhttp.Handler())
		if err := http.ListenAndServe(cfg.MetricsAddr, nil); err != nil {
			logger.Errorw("metrics server", "error", err)
		}
	}()

	logger.Infow("listening", "subject", cfg.NATSSubject, "metrics", cfg.MetricsAddr)
	<-ctx.Done()
	logger.Info("shutting down")
}

func handleMessage(ctx context.Context, proc *gateway.Processor, archive *storage.Archive,
	m *metrics.Metrics, logger *zap.SugaredLogger, raw string) {

	start := time.Now()
	m.MessagesReceived.Inc()

	in, err := proc.ProcessInbound(ctx, raw)
	if err != nil {
		logger.Errorw("process inbound", "error", err)
		return
	}
	if n := len(in.Message.Errors); n > 0 {
		m.ParseErrors.Add(float64(n))
	}

	action := string(in.Message.ActionCode)
	status := "applied"
	if _, err := proc.Apply(ctx, in); err != nil {
		// Apply already logged the rejection with its reason.
		m.MessagesRejected.WithLabelValues(action).Inc()
		status = "rejected"
	} else {
		m.MessagesApplied.WithLabelValues(action).Inc()
	}

	if archive != nil {
		flightDate := ""
		if !in.Message.FlightDate.IsZero() {
			flightDate = in.Message.FlightDate.Format("2006-01-02")
		}
		err := archive.Write(ctx, storage.ArchivedMessage{
			LogID:        in.EntryID,
			ReceivedAt:   start.UTC(),
			MessageType:  string(in.Message.MessageType),
			ActionCode:   action,
			Direction:    "inbound",
			FlightNumber: in.Message.FlightNumber,
			FlightDate:   flightDate,
			Status:       status,
			RawMessage:   raw,
		})
		if err != nil {
			logger.Warnw("archive write", "entry_id", in.EntryID, "error", err)
		}
	}

	m.ProcessingTime.Observe(time.Since(start).Seconds())
}
