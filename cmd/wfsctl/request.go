package main

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/delta10/wfs-filter-proxy/internal/ogc"
	"github.com/delta10/wfs-filter-proxy/internal/wfs"
)

func newKVPCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "kvp <query string>",
		Short: "Convert a key-value-pair request into its XML encoding",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			values, err := url.ParseQuery(strings.TrimPrefix(args[0], "?"))
			if err != nil {
				return err
			}

			request, err := wfs.ParseKVP(values)
			if err != nil {
				return err
			}
			return wfs.Encode(cmd.OutOrStdout(), wfs.NewDocument(request))
		},
	}
}

func newLockCmd() *cobra.Command {
	var (
		expiry     uint64
		lockAction string
		featureIDs []string
	)

	lockCmd := &cobra.Command{
		Use:   "lock <typeName>...",
		Short: "Build a LockFeature request with a generated handle",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			action, err := wfs.ParseAllSome(strings.ToUpper(lockAction))
			if err != nil {
				return err
			}

			request := wfs.NewLockFeature()
			request.Handle = uuid.NewString()
			request.LockAction.Set(action)
			if cmd.Flags().Changed("expiry") {
				if expiry == 0 {
					return fmt.Errorf("expiry must be a positive integer")
				}
				request.Expiry.Set(expiry)
			}

			for _, typeName := range args {
				lock := &wfs.Lock{TypeName: wfs.ParseQName(typeName)}
				var ids []string
				for _, id := range featureIDs {
					if strings.HasPrefix(id, lock.TypeName.Local+".") {
						ids = append(ids, id)
					}
				}
				if len(ids) > 0 {
					lock.Filter = ogc.NewFeatureIDFilter(ids...)
				}
				request.Locks = append(request.Locks, lock)
			}

			if err := wfs.Validate(request); err != nil {
				return err
			}
			return wfs.Encode(cmd.OutOrStdout(), wfs.NewDocument(request))
		},
	}

	lockCmd.Flags().Uint64Var(&expiry, "expiry", wfs.DefaultExpiry, "Lock expiry in minutes")
	lockCmd.Flags().StringVar(&lockAction, "lock-action", string(wfs.AllSomeAll), "ALL or SOME")
	lockCmd.Flags().StringSliceVar(&featureIDs, "feature-id", nil, "Feature ids to lock, matched to type names by prefix")

	return lockCmd
}
