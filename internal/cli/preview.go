package cli

import (
	"errors"
	"fmt"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"github.com/chapter-verse/bookfront/internal/brand"
)

var previewVariant string

var previewCmd = &cobra.Command{
	Use:   "preview",
	Short: "Show the display name and tagline of a brand",
	Long: `Show what a visitor assigned to a brand sees in the hero.
Without --variant you are asked to pick one.

Example:
  bookfront preview --variant modern`,
	Args: cobra.NoArgs,
	RunE: runPreview,
}

func init() {
	previewCmd.Flags().StringVar(&previewVariant, "variant", "", "brand variant (poetic or modern)")
	rootCmd.AddCommand(previewCmd)
}

func runPreview(cmd *cobra.Command, args []string) error {
	var v brand.Variant
	if cmd.Flags().Changed("variant") {
		parsed, err := brand.ParseVariant(previewVariant)
		if err != nil {
			return err
		}
		v = parsed
	} else {
		picked, err := promptVariant()
		if errors.Is(err, promptui.ErrInterrupt) {
			return nil
		}
		if err != nil {
			return err
		}
		v = picked
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "VARIANT: %s\n", v)
	fmt.Fprintf(out, "NAME:    %s\n", v.DisplayName())
	fmt.Fprintf(out, "TAGLINE: %s\n", v.Tagline())
	return nil
}

func promptVariant() (brand.Variant, error) {
	items := make([]string, len(brand.Variants))
	for i, v := range brand.Variants {
		items[i] = fmt.Sprintf("%s (%s)", v.DisplayName(), v)
	}

	prompt := promptui.Select{
		Label: "Brand",
		Items: items,
		Size:  len(items),
	}

	idx, _, err := prompt.Run()
	if err != nil {
		return "", err
	}
	return brand.Variants[idx], nil
}
