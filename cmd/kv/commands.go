package kv

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/meridiankv/meridian-go/client"
)

var (
	getCmd = &cobra.Command{
		Use:   "get [key]",
		Short: "Fetches a document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			res, err := collection.Get(key)
			if err != nil {
				return err
			}
			fmt.Printf("key=%s, cas=%d, content=%s\n", key, res.Cas(), res.Bytes())
			return nil
		},
	}
	upsertCmd = &cobra.Command{
		Use:   "upsert [key] [value] [expireIn]",
		Short: "Stores a document regardless of whether it exists. The optional expireIn is in seconds",
		Args:  cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := expiryOpts(args)
			if err != nil {
				return err
			}
			res, err := collection.Upsert(args[0], []byte(args[1]), &client.UpsertOptions{ExpireIn: opts})
			if err != nil {
				return err
			}
			fmt.Printf("upserted, cas=%d\n", res.Cas())
			return nil
		},
	}
	insertCmd = &cobra.Command{
		Use:   "insert [key] [value] [expireIn]",
		Short: "Stores a document that must not exist yet. The optional expireIn is in seconds",
		Args:  cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := expiryOpts(args)
			if err != nil {
				return err
			}
			res, err := collection.Insert(args[0], []byte(args[1]), &client.InsertOptions{ExpireIn: opts})
			if err != nil {
				return err
			}
			fmt.Printf("inserted, cas=%d\n", res.Cas())
			return nil
		},
	}
	replaceCmd = &cobra.Command{
		Use:   "replace [key] [value]",
		Short: "Overwrites a document that must exist, optionally guarded by --cas",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cas, err := cmd.Flags().GetUint64("cas")
			if err != nil {
				return err
			}
			res, err := collection.Replace(args[0], []byte(args[1]), &client.ReplaceOptions{Cas: cas})
			if err != nil {
				return err
			}
			fmt.Printf("replaced, cas=%d\n", res.Cas())
			return nil
		},
	}
	removeCmd = &cobra.Command{
		Use:   "remove [key]",
		Short: "Deletes a document, optionally guarded by --cas",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cas, err := cmd.Flags().GetUint64("cas")
			if err != nil {
				return err
			}
			if err := collection.Remove(args[0], &client.RemoveOptions{Cas: cas}); err != nil {
				return err
			}
			fmt.Println("removed")
			return nil
		},
	}
	existsCmd = &cobra.Command{
		Use:   "exists [key]",
		Short: "Checks if a document exists",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			res, err := collection.Exists(key)
			if err != nil {
				return err
			}
			fmt.Printf("key=%s, exists=%t, cas=%d\n", key, res.Exists(), res.Cas())
			return nil
		},
	}
	touchCmd = &cobra.Command{
		Use:   "touch [key] [expireIn]",
		Short: "Updates a document's expiry (in seconds, 0 removes it)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			seconds, err := strconv.ParseUint(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("expireIn must be a number: %w", err)
			}
			if err := collection.Touch(args[0], time.Duration(seconds)*time.Second); err != nil {
				return err
			}
			fmt.Println("touched")
			return nil
		},
	}
	pingCmd = &cobra.Command{
		Use:   "ping",
		Short: "Checks connectivity to every endpoint",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cluster.Ping(); err != nil {
				return err
			}
			fmt.Println("all endpoints reachable")
			return nil
		},
	}
)

func init() {
	replaceCmd.Flags().Uint64("cas", 0, "Only replace if the stored cas token matches")
	removeCmd.Flags().Uint64("cas", 0, "Only remove if the stored cas token matches")
}

// expiryOpts parses the optional trailing expireIn argument
func expiryOpts(args []string) (time.Duration, error) {
	if len(args) < 3 {
		return 0, nil
	}
	seconds, err := strconv.ParseUint(args[2], 10, 64)
	if err != nil {
		return 0, errors.New("expireIn must be a number")
	}
	return time.Duration(seconds) * time.Second, nil
}
