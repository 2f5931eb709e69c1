package kv

import (
	"github.com/spf13/cobra"

	"github.com/meridiankv/meridian-go/client"
	"github.com/meridiankv/meridian-go/cmd/util"
)

var (
	collection *client.Collection
	cluster    *client.Cluster

	// KeyValueCommands represents the KV command group
	KeyValueCommands = &cobra.Command{
		Use:               "kv",
		Short:             "Perform document operations against a cluster",
		PersistentPreRunE: setupClient,
		PersistentPostRun: teardownClient,
	}
)

func init() {
	// Initialize viper
	cobra.OnInitialize(util.InitClientConfig)

	// Add common cluster connection flags to the KV command
	util.SetupClientFlags(KeyValueCommands)

	// Add subcommands
	KeyValueCommands.AddCommand(getCmd)
	KeyValueCommands.AddCommand(upsertCmd)
	KeyValueCommands.AddCommand(insertCmd)
	KeyValueCommands.AddCommand(replaceCmd)
	KeyValueCommands.AddCommand(removeCmd)
	KeyValueCommands.AddCommand(existsCmd)
	KeyValueCommands.AddCommand(touchCmd)
	KeyValueCommands.AddCommand(pingCmd)
	KeyValueCommands.AddCommand(perfTestCmd)
}

// setupClient connects to the cluster and opens the target collection
func setupClient(cmd *cobra.Command, _ []string) error {
	// Bind command flags to viper
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}

	// Get serializer and transport
	s, err := util.GetSerializer()
	if err != nil {
		return err
	}

	t, err := util.GetConnector()
	if err != nil {
		return err
	}

	// Connect to the cluster
	cluster, err = client.Connect(
		util.GetClientConfig(),
		client.WithSerializer(s),
		client.WithConnector(t),
	)
	if err != nil {
		return err
	}

	bucket, scope, col := util.GetBucketPath()
	collection = cluster.Bucket(bucket).Scope(scope).Collection(col)
	return nil
}

func teardownClient(_ *cobra.Command, _ []string) {
	if cluster != nil {
		cluster.Close()
	}
}
