package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/magabrotheeeer/geoestate/internal/models"
)

// PropertyStore сохраняет объекты каталога.
type PropertyStore interface {
	UpsertProperty(ctx context.Context, p *models.Property) error
}

type geoJSONFeature struct {
	Type       string          `json:"type"`
	Properties json.RawMessage `json:"properties"`
	Geometry   json.RawMessage `json:"geometry"`
}

type geoJSONCollection struct {
	Type     string           `json:"type"`
	Features []geoJSONFeature `json:"features"`
}

// parseProperties читает GeoJSON FeatureCollection. Каждый Feature должен иметь id и unitType.
func parseProperties(r io.Reader) ([]*models.Property, error) {
	var fc geoJSONCollection
	if err := json.NewDecoder(r).Decode(&fc); err != nil {
		return nil, fmt.Errorf("decode geojson: %w", err)
	}
	if fc.Type != "FeatureCollection" {
		return nil, fmt.Errorf("expected FeatureCollection, got %q", fc.Type)
	}

	result := make([]*models.Property, 0, len(fc.Features))
	for i, f := range fc.Features {
		if f.Type != "Feature" {
			return nil, fmt.Errorf("feature %d: expected Feature, got %q", i, f.Type)
		}
		var p models.Property
		if len(f.Properties) > 0 {
			if err := json.Unmarshal(f.Properties, &p); err != nil {
				return nil, fmt.Errorf("feature %d: %w", i, err)
			}
		}
		if p.ID == "" {
			return nil, fmt.Errorf("feature %d: missing id", i)
		}
		if p.UnitType == "" {
			return nil, fmt.Errorf("feature %d (%s): missing unitType", i, p.ID)
		}
		if len(f.Geometry) > 0 && string(f.Geometry) != "null" {
			p.Geometry = f.Geometry
		}
		result = append(result, &p)
	}
	return result, nil
}

func importProperties(ctx context.Context, store PropertyStore, r io.Reader, out io.Writer) (int, error) {
	props, err := parseProperties(r)
	if err != nil {
		return 0, err
	}
	for _, p := range props {
		if err := store.UpsertProperty(ctx, p); err != nil {
			return 0, fmt.Errorf("import %s: %w", p.ID, err)
		}
	}
	fmt.Fprintf(out, "imported %d properties\n", len(props))
	return len(props), nil
}

var propertiesCmd = &cobra.Command{
	Use:   "properties",
	Short: "Manage the property catalog",
}

var propertiesImportCmd = &cobra.Command{
	Use:   "import <file.geojson>",
	Short: "Import or update properties from a GeoJSON FeatureCollection",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()

		_, db, err := openStorage()
		if err != nil {
			return err
		}
		defer db.Close()

		_, err = importProperties(cmd.Context(), db, f, cmd.OutOrStdout())
		return err
	},
}

func init() {
	propertiesCmd.AddCommand(propertiesImportCmd)
}
