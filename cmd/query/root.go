package query

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/meridiankv/meridian-go/client"
	"github.com/meridiankv/meridian-go/cmd/util"
)

var (
	// QueryCmd runs a key-prefix scan against a collection
	QueryCmd = &cobra.Command{
		Use:   "query [prefix]",
		Short: "Scans a collection for documents whose key starts with the given prefix",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runQuery,
	}
)

func init() {
	// Initialize viper
	cobra.OnInitialize(util.InitClientConfig)

	// Query needs the same cluster connection flags as the kv commands
	util.SetupClientFlags(QueryCmd)
}

func runQuery(cmd *cobra.Command, args []string) error {
	// Bind command flags to viper
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}

	s, err := util.GetSerializer()
	if err != nil {
		return err
	}

	t, err := util.GetConnector()
	if err != nil {
		return err
	}

	cluster, err := client.Connect(
		util.GetClientConfig(),
		client.WithSerializer(s),
		client.WithConnector(t),
	)
	if err != nil {
		return err
	}
	defer cluster.Close()

	prefix := ""
	if len(args) > 0 {
		prefix = args[0]
	}

	bucket, scope, collection := util.GetBucketPath()
	res, err := cluster.Query(prefix, &client.QueryOptions{
		Bucket:     bucket,
		Scope:      scope,
		Collection: collection,
	})
	if err != nil {
		return err
	}

	for _, row := range res.Rows() {
		fmt.Printf("%s\n", row)
	}
	fmt.Printf("(%d rows)\n", len(res.Rows()))
	return nil
}
