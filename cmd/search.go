package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kyiv-estate/rentscout/internal/filter"
	"github.com/kyiv-estate/rentscout/internal/model"
)

var searchFlags struct {
	kind    string
	minSize float64
	maxSize float64
	minPPM2 float64
	maxPPM2 float64
	shore   string
	bucket  string
	pages   int
}

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Run a one-off search and print the result cards",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(ctx, "search")
		if err != nil {
			return err
		}
		defer env.Close()

		params, err := searchParams()
		if err != nil {
			return err
		}

		token, total, err := env.Service.Search(ctx, params)
		if err != nil {
			return err
		}
		fmt.Printf("%d offers\n", total)
		if total == 0 {
			return nil
		}

		for n := 0; n < searchFlags.pages; n++ {
			view, err := env.Service.Page(ctx, token, n)
			if err != nil {
				break
			}
			fmt.Printf("--- page %d/%d ---\n", view.Page+1, view.TotalPages)
			for _, card := range view.Cards {
				fmt.Println(card.Caption)
				if card.HasPhoto {
					fmt.Printf("[collage: %s.jpg]\n", card.GroupSlug)
				}
				fmt.Println()
			}
			if !view.HasNext {
				break
			}
		}
		return nil
	},
}

func searchParams() (filter.Params, error) {
	params := filter.Params{
		Kind:       model.Kind(searchFlags.kind),
		MinSize:    searchFlags.minSize,
		Shore:      model.Shore(searchFlags.shore),
		SizeBucket: filter.Bucket(searchFlags.bucket),
	}
	if params.Kind != model.KindOffice && params.Kind != model.KindWarehouse {
		return filter.Params{}, fmt.Errorf("unknown kind %q", searchFlags.kind)
	}
	if searchFlags.maxSize > 0 {
		params.MaxSize = &searchFlags.maxSize
	}
	if searchFlags.minPPM2 > 0 {
		params.MinPPM2 = &searchFlags.minPPM2
	}
	if searchFlags.maxPPM2 > 0 {
		params.MaxPPM2 = &searchFlags.maxPPM2
	}
	return params, nil
}

func init() {
	searchCmd.Flags().StringVar(&searchFlags.kind, "kind", "office", "listing kind: office or warehouse")
	searchCmd.Flags().Float64Var(&searchFlags.minSize, "min-size", 0, "minimum size in m²")
	searchCmd.Flags().Float64Var(&searchFlags.maxSize, "max-size", 0, "maximum size in m² (0: unbounded)")
	searchCmd.Flags().Float64Var(&searchFlags.minPPM2, "min-ppm2", 0, "minimum price per m²")
	searchCmd.Flags().Float64Var(&searchFlags.maxPPM2, "max-ppm2", 0, "maximum price per m² (0: unbounded)")
	searchCmd.Flags().StringVar(&searchFlags.shore, "shore", "", "warehouse shore: left or right")
	searchCmd.Flags().StringVar(&searchFlags.bucket, "bucket", "", "warehouse size bucket: le1000 or ge1000")
	searchCmd.Flags().IntVar(&searchFlags.pages, "pages", 1, "how many result pages to print")
	rootCmd.AddCommand(searchCmd)
}
