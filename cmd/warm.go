package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kyiv-estate/rentscout/internal/model"
)

var warmKind string

var warmCmd = &cobra.Command{
	Use:   "warm",
	Short: "Pre-materialize collages for current channel offers",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(ctx, "warm")
		if err != nil {
			return err
		}
		defer env.Close()

		kinds := []model.Kind{model.KindOffice, model.KindWarehouse}
		if warmKind != "" {
			kinds = []model.Kind{model.Kind(warmKind)}
		}

		for _, kind := range kinds {
			warmed, err := env.Service.Warm(ctx, kind)
			if err != nil {
				return err
			}
			fmt.Printf("%s: %d collages ready\n", kind, warmed)
		}
		return nil
	},
}

func init() {
	warmCmd.Flags().StringVar(&warmKind, "kind", "", "warm one kind only: office or warehouse")
	rootCmd.AddCommand(warmCmd)
}
