package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/morph-dev/portal-state-network-utils/assembler"
	"github.com/morph-dev/portal-state-network-utils/db/badgerdb"
	"github.com/morph-dev/portal-state-network-utils/gossiper"
	"github.com/morph-dev/portal-state-network-utils/portal"
	"github.com/morph-dev/portal-state-network-utils/storage"
	"github.com/morph-dev/portal-state-network-utils/types"
)

var errNoBlock = errors.New("--block is required")

func addDistributionFlags(flags *pflag.FlagSet) {
	flags.Int(flagConcurrency, gossiper.DefaultConcurrency, "records published concurrently")
	flags.String(flagDB, "", "badger database directory")
}

// assemble loads the block data of --block and assembles its content.
func assemble(ctx context.Context) (*types.BlockData, *assembler.Content, error) {
	if !viper.IsSet(flagBlock) {
		return nil, nil, errNoBlock
	}
	number := viper.GetUint64(flagBlock)
	data, err := types.LoadBlockDataFromDir(viper.GetString(flagDataDir), number)
	if err != nil {
		return nil, nil, err
	}
	start := time.Now()
	content, err := assembler.NewAssembler(viper.GetInt(flagWorkers)).Assemble(ctx, data)
	if err != nil {
		return nil, nil, fmt.Errorf("assemble block %d: %w", number, err)
	}
	log.Info().
		Uint64("block", number).
		Str("hash", data.BlockHash().Hex()).
		Int("history", content.History.Len()).
		Int("state", content.State.Len()).
		Dur("took", time.Since(start)).
		Msg("Assembled content")
	return data, content, nil
}

// openStore opens the badger content store at --db. The returned close
// function is nil when no directory is configured.
func openStore() (*storage.ContentStore, func(), error) {
	dir := viper.GetString(flagDB)
	if dir == "" {
		return nil, nil, nil
	}
	db, err := badgerdb.NewDB(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("open database %s: %w", dir, err)
	}
	closeDB := func() {
		if err := db.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close database")
		}
	}
	return storage.NewContentStore(db), closeDB, nil
}

// distribute publishes history content before state content.
func distribute(ctx context.Context, driver *gossiper.Driver, content *assembler.Content) []gossiper.Outcome {
	outcomes := driver.Distribute(ctx, content.History)
	return append(outcomes, driver.Distribute(ctx, content.State)...)
}

func summarize(outcomes []gossiper.Outcome) (published, failed int) {
	for _, o := range outcomes {
		if o.Published() {
			published++
		} else {
			failed++
		}
	}
	return published, failed
}

func gossip(ctx context.Context) error {
	data, content, err := assemble(ctx)
	if err != nil {
		return err
	}
	metrics, err := newMetrics()
	if err != nil {
		return err
	}
	publisher, err := gossiper.DialRPCPublisher(ctx, viper.GetString(flagPortalClient), viper.GetDuration(flagTimeout))
	if err != nil {
		return err
	}
	defer publisher.Close()

	opts := []gossiper.Option{
		gossiper.WithConcurrency(viper.GetInt(flagConcurrency)),
		gossiper.WithMetrics(metrics),
	}
	recorder, closeStore, err := openStore()
	if err != nil {
		return err
	}
	if recorder != nil {
		defer closeStore()
		opts = append(opts, gossiper.WithRecorder(recorder))
	}

	outcomes := distribute(ctx, gossiper.NewDriver(publisher, opts...), content)
	published, failed := summarize(outcomes)
	log.Info().Uint64("block", data.BlockNumber()).Int("published", published).Int("failed", failed).Msg("Gossiped block content")

	if path := viper.GetString(flagReport); path != "" {
		if err := gossiper.NewReport(data.BlockNumber(), outcomes).Save(path); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
		log.Info().Str("path", path).Msg("Wrote distribution report")
	}
	return nil
}

func GossipCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gossip",
		Short: "Gossip the content of a block through a Portal client",
		RunE: func(cmd *cobra.Command, args []string) error {
			return gossip(cmd.Context())
		},
	}
	cmd.Flags().String(flagPortalClient, "http://127.0.0.1:8545", "JSON-RPC endpoint of the Portal client")
	cmd.Flags().Duration(flagTimeout, gossiper.DefaultTimeout, "timeout of a single gossip call")
	cmd.Flags().String(flagReport, "", "write a YAML distribution report to this file")
	addDistributionFlags(cmd.Flags())
	return cmd
}

func store(ctx context.Context) error {
	data, content, err := assemble(ctx)
	if err != nil {
		return err
	}
	metrics, err := newMetrics()
	if err != nil {
		return err
	}
	contentStore, closeStore, err := openStore()
	if err != nil {
		return err
	}
	if contentStore == nil {
		return errors.New("--db is required")
	}
	defer closeStore()

	driver := gossiper.NewDriver(
		gossiper.NewStorePublisher(contentStore),
		gossiper.WithConcurrency(viper.GetInt(flagConcurrency)),
		gossiper.WithMetrics(metrics),
	)
	published, failed := summarize(distribute(ctx, driver, content))
	log.Info().Uint64("block", data.BlockNumber()).Int("stored", published).Int("failed", failed).Msg("Stored block content")
	if failed > 0 {
		return fmt.Errorf("%d records could not be stored", failed)
	}
	return nil
}

func StoreCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "store",
		Short: "Store the content of a block in a local database",
		RunE: func(cmd *cobra.Command, args []string) error {
			return store(cmd.Context())
		},
	}
	addDistributionFlags(cmd.Flags())
	return cmd
}

func inspect(ctx context.Context) error {
	contentStore, closeStore, err := openStore()
	if err != nil {
		return err
	}
	if contentStore == nil && !viper.IsSet(flagBlock) {
		return errors.New("--block or --db is required")
	}
	if contentStore != nil {
		defer closeStore()
	}
	if viper.IsSet(flagBlock) {
		if err := inspectBlock(ctx); err != nil {
			return err
		}
	}
	if contentStore != nil {
		return inspectStore(contentStore)
	}
	return nil
}

func inspectBlock(ctx context.Context) error {
	data, content, err := assemble(ctx)
	if err != nil {
		return err
	}
	counts := make(map[string]int)
	for _, set := range []*portal.ContentSet{content.History, content.State} {
		for _, r := range set.Records() {
			counts[keyKind(r.Key)]++
		}
	}
	event := log.Info().Uint64("block", data.BlockNumber()).Int("accounts", len(data.State))
	for kind, n := range counts {
		event = event.Int(kind, n)
	}
	event.Int("history", content.History.Len()).Int("state", content.State.Len()).Msg("Block content")
	return nil
}

// inspectStore reads back every stored record and its last outcome.
func inspectStore(contentStore *storage.ContentStore) error {
	for _, network := range []portal.Network{portal.HistoryNetwork, portal.StateNetwork} {
		summary, err := contentStore.Summarize(network)
		if err != nil {
			return fmt.Errorf("%s content: %w", network, err)
		}
		log.Info().
			Str("network", network.String()).
			Int("records", summary.Records).
			Int("published", summary.Published).
			Int("failed", summary.Failed).
			Int("unpublished", summary.Unpublished).
			Msg("Stored content")
	}
	return nil
}

func keyKind(key portal.ContentKey) string {
	switch key.(type) {
	case portal.BlockHeaderKey:
		return "blockHeader"
	case portal.AccountTrieNodeKey:
		return "accountTrieNode"
	case portal.ContractStorageTrieNodeKey:
		return "contractStorageTrieNode"
	case portal.ContractBytecodeKey:
		return "contractBytecode"
	default:
		return "unknown"
	}
}

func InspectCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Log what the content of a block or a content database holds",
		RunE: func(cmd *cobra.Command, args []string) error {
			return inspect(cmd.Context())
		},
	}
	cmd.Flags().String(flagDB, "", "badger database directory to read back")
	return cmd
}
