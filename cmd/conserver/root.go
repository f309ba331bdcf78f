package main

import (
	"context"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/vcon-dev/conserver"
	"github.com/vcon-dev/conserver/adapters/redisqueue"
	"github.com/vcon-dev/conserver/adapters/redisstore"
	"github.com/vcon-dev/conserver/config"
	"github.com/vcon-dev/conserver/modules"
)

var (
	configPath string
	envFiles   []string
)

var rootCmd = &cobra.Command{
	Use:   "conserver",
	Short: "Run vCon processing chains",
	Long: `conserver pops vCon ids from Redis ingress lists, runs each one through the links of the
chain owning the list and hands the result to egress lists, other chains and storages.

Configuration is read from --config, $CONSERVER_CONFIG or conserver.yml (YAML or TOML).`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to the YAML or TOML config file")
	rootCmd.PersistentFlags().StringSliceVar(&envFiles, "env-file", nil, "Env files to load before reading the config (default .env)")

	rootCmd.AddCommand(serveCmd, loadCmd, dlqCmd, enqueueCmd)
}

// backend holds the Redis backed stores every command works with.
type backend struct {
	cfg     *config.Config
	client  redis.UniversalClient
	records *redisstore.Store
	chains  *redisstore.ChainStore
	queue   *redisqueue.Queue
}

func connect(ctx context.Context) (*backend, error) {
	err := config.LoadEnv(envFiles...)
	if err != nil {
		return nil, err
	}

	cfg, err := config.Load(config.Path(configPath))
	if err != nil {
		return nil, err
	}

	opts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)
	err = client.Ping(ctx).Err()
	if err != nil {
		_ = client.Close()
		return nil, err
	}

	return &backend{
		cfg:     cfg,
		client:  client,
		records: redisstore.New(client),
		chains:  redisstore.NewChainStore(client),
		queue:   redisqueue.New(client),
	}, nil
}

func (b *backend) Close() error {
	return b.client.Close()
}

// engine builds an engine over the backend that is only used for its dead letter operations.
func (b *backend) engine(opts ...conserver.Option) *conserver.Engine {
	opts = append([]conserver.Option{conserver.WithDeliveryCounter(redisstore.NewCounter(b.client))}, opts...)
	return conserver.New(b.chains, b.records, b.queue, modules.NewRegistry(), opts...)
}
