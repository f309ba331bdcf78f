package main

import (
	"context"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/luno/jettison/errors"
	"github.com/luno/jettison/j"
	"github.com/spf13/cobra"

	"github.com/vcon-dev/conserver"
	"github.com/vcon-dev/conserver/adapters/jlog"
	"github.com/vcon-dev/conserver/adapters/kafkapubsub"
	"github.com/vcon-dev/conserver/adapters/redisqueue"
	"github.com/vcon-dev/conserver/api"
)

const shutdownTimeout = 30 * time.Second

var serveNoAPI bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Load the chain definitions and run the engine and the operator API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		b, err := connect(ctx)
		if err != nil {
			return err
		}
		defer b.Close()

		err = b.cfg.Validate()
		if err != nil {
			return err
		}

		err = b.cfg.Apply(ctx, b.chains)
		if err != nil {
			return err
		}

		opts, err := b.cfg.EngineOptions()
		if err != nil {
			return err
		}

		logger := jlog.New()
		opts = append(opts, conserver.WithLogger(logger))

		switch b.cfg.Engine.PubSub {
		case "":
		case "redis":
			opts = append(opts, conserver.WithPubSub(redisqueue.NewPubSub(b.client)))
		case "kafka":
			ps := kafkapubsub.New(b.cfg.Kafka.Brokers, kafkapubsub.WithGroupID(b.cfg.Kafka.GroupID))
			defer ps.Close()

			opts = append(opts, conserver.WithPubSub(ps))
		default:
			return errors.New("unknown pubsub transport", j.MKV{"pubsub": b.cfg.Engine.PubSub})
		}

		engine := b.engine(opts...)
		err = engine.Run(ctx)
		if err != nil {
			return err
		}
		defer engine.Stop()

		logger.Debug(ctx, "engine started", map[string]string{"processes": strconv.Itoa(len(engine.States()))})

		if serveNoAPI {
			<-ctx.Done()
			return nil
		}

		srv := &http.Server{
			Addr: b.cfg.API.Addr,
			Handler: api.NewRouter(api.Deps{
				Records: b.records,
				Chains:  b.chains,
				Queue:   b.queue,
				Engine:  engine,
				Logger:  logger,
			}),
			ReadHeaderTimeout: 10 * time.Second,
		}

		errs := make(chan error, 1)
		go func() {
			errs <- srv.ListenAndServe()
		}()

		logger.Debug(ctx, "api listening", map[string]string{"addr": b.cfg.API.Addr})

		select {
		case <-ctx.Done():
		case err := <-errs:
			if !errors.Is(err, http.ErrServerClosed) {
				return err
			}
		}

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()

		return srv.Shutdown(shutdownCtx)
	},
}

func init() {
	serveCmd.Flags().BoolVar(&serveNoAPI, "no-api", false, "Run the engine without the operator API")
}
