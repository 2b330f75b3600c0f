package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/veneer/internal/colour"
	"github.com/jmylchreest/veneer/internal/image"
)

var (
	// Extract command flags
	extractSamples int
	extractFormat  string
)

// extractCmd represents the extract command
var extractCmd = &cobra.Command{
	Use:   "extract <image>",
	Short: "Extract the overlay colour scheme from an image",
	Long: `Extract the colour scheme the agent would derive from a wallpaper.

The image is sampled, clustered in Lab space and reduced to a dominant,
accent and background colour plus the panel and popup variants.

Supported image formats: JPEG, PNG, GIF, WebP

Examples:
  # Show the scheme as a table
  veneer extract wallpaper.jpg

  # Sample more pixels and print JSON
  veneer extract --samples 16384 --format json wallpaper.png`,
	Args: cobra.ExactArgs(1),
	RunE: runExtract,
}

func init() {
	extractCmd.Flags().IntVarP(&extractSamples, "samples", "s", colour.DefaultSampleBudget, "number of pixels sampled")
	extractCmd.Flags().StringVarP(&extractFormat, "format", "f", "table", "output format (table, json)")
}

// runExtract executes the extract command.
func runExtract(cmd *cobra.Command, args []string) error {
	imagePath := args[0]
	if err := image.ValidateImagePath(imagePath); err != nil {
		return fmt.Errorf("invalid image path: %w", err)
	}
	if extractFormat != "table" && extractFormat != "json" {
		return fmt.Errorf("invalid format: %s (valid: table, json)", extractFormat)
	}

	extractor := colour.NewExtractor(newLogger())
	scheme := extractor.Extract(imagePath, colour.ExtractOptions{SampleBudget: extractSamples, Force: true})
	if scheme == nil {
		return fmt.Errorf("no colours could be extracted from %s", imagePath)
	}

	out := cmd.OutOrStdout()
	if extractFormat == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(scheme)
	}
	fmt.Fprint(out, schemeTable(scheme).Render())
	return nil
}

func schemeTable(s *colour.Scheme) *Table {
	table := NewTable([]string{"ROLE", "HEX", "RGB"})
	for _, row := range []struct {
		role string
		rgb  colour.RGB
	}{
		{"dominant", s.Dominant},
		{"accent", s.Accent},
		{"background", s.Background},
		{"darker", s.Variants.Darker},
		{"lighter", s.Variants.Lighter},
		{"panel (dark)", s.Variants.PanelDark},
		{"popup (dark)", s.Variants.PopupDark},
		{"panel (light)", s.Variants.PanelLight},
		{"popup (light)", s.Variants.PopupLight},
	} {
		table.AddRow([]string{row.role, row.rgb.Hex(), row.rgb.String()})
	}
	return table
}
