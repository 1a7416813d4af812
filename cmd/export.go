package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kyiv-estate/rentscout/internal/export"
	"github.com/kyiv-estate/rentscout/internal/filter"
	"github.com/kyiv-estate/rentscout/internal/model"
	"github.com/kyiv-estate/rentscout/pkg/notion"
)

var exportFlags struct {
	kind     string
	out      string
	toNotion bool
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export current offers to a spreadsheet or Notion",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(ctx, "export")
		if err != nil {
			return err
		}
		defer env.Close()

		kind := model.Kind(exportFlags.kind)
		if kind != model.KindOffice && kind != model.KindWarehouse {
			return fmt.Errorf("unknown kind %q", exportFlags.kind)
		}

		offers, err := env.Service.Offers(ctx, filter.Params{Kind: kind})
		if err != nil {
			return err
		}
		if len(offers) == 0 {
			fmt.Println("no offers to export")
			return nil
		}

		if err := export.WriteXLSX(exportFlags.out, offers); err != nil {
			return err
		}
		fmt.Printf("wrote %d offers to %s\n", len(offers), exportFlags.out)

		if exportFlags.toNotion {
			if cfg.Notion.Token == "" || cfg.Notion.OfferDB == "" {
				return fmt.Errorf("notion export needs RENTSCOUT_NOTION_TOKEN and RENTSCOUT_NOTION_OFFER_DB")
			}
			client := notion.NewClient(cfg.Notion.Token)
			created, err := export.NewPublisher(client, cfg.Notion.OfferDB).Publish(ctx, offers)
			if err != nil {
				return err
			}
			zap.L().Info("notion export complete", zap.Int("pages", created))
			fmt.Printf("published %d offers to notion\n", created)
		}
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportFlags.kind, "kind", "office", "listing kind: office or warehouse")
	exportCmd.Flags().StringVar(&exportFlags.out, "out", "offers.xlsx", "output spreadsheet path")
	exportCmd.Flags().BoolVar(&exportFlags.toNotion, "notion", false, "also publish to the Notion database")
	rootCmd.AddCommand(exportCmd)
}
