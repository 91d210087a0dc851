package commands

import (
	"encoding/json"
	"os"

	"github.com/alekLukanen/errs"
	"github.com/spf13/cobra"

	"github.com/alekLukanen/StrollerPricer/features"
	"github.com/alekLukanen/StrollerPricer/operations"
	"github.com/alekLukanen/StrollerPricer/storage"
)

var (
	inspectArtifacts string
	inspectVersion   int
)

func init() {
	inspectCmd.Flags().StringVar(&inspectArtifacts, "artifacts", "artifacts.json", "Artifact store to describe. Ignored with --remote.")
	inspectCmd.Flags().IntVar(&inspectVersion, "version", 0, "Remote store version to describe, 0 for the latest.")
	rootCmd.AddCommand(inspectCmd)
}

type storeSummary struct {
	ConfigFingerprint string                  `json:"config_fingerprint"`
	OutputWidth       int                     `json:"output_width"`
	OutputColumns     []string                `json:"output_columns"`
	Impute            *features.ImputeValues  `json:"impute,omitempty"`
	Outlier           *features.OutlierBounds `json:"outlier,omitempty"`
	OneHot            *features.OneHotSchema  `json:"onehot,omitempty"`
	Scaler            *features.ScalerParams  `json:"scale,omitempty"`
}

type remoteSummary struct {
	Status   operations.FeatureStatus  `json:"status"`
	Manifest *storage.ArtifactManifest `json:"manifest"`
	Store    storeSummary              `json:"store"`
}

func summarize(store *features.ArtifactStore) storeSummary {
	summary := storeSummary{
		ConfigFingerprint: store.ConfigFingerprint(),
		OutputWidth:       store.OutputWidth(),
		OutputColumns:     store.OutputColumns(),
	}
	if v, ok := store.ImputeValues(); ok {
		summary.Impute = &v
	}
	if v, ok := store.OutlierBounds(); ok {
		summary.Outlier = &v
	}
	if v, ok := store.OneHotSchema(); ok {
		summary.OneHot = v
	}
	if v, ok := store.ScalerParams(); ok {
		summary.Scaler = &v
	}
	return summary
}

var inspectCmd = &cobra.Command{
	Use:   "inspect [--artifacts <store.json>]",
	Short: "Describes an artifact store.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		logger := newLogger()
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")

		if remoteConfigFile != "" {
			wh, err := openWarehouse(ctx, logger)
			if err != nil {
				return err
			}
			defer wh.Close()

			status, err := wh.FeatureService().Status(ctx)
			if err != nil {
				return err
			}
			manifest, err := wh.Manifest(ctx, inspectVersion)
			if err != nil {
				return err
			}
			store, err := wh.ArtifactStore(ctx, manifest)
			if err != nil {
				return err
			}
			return enc.Encode(remoteSummary{Status: status, Manifest: manifest, Store: summarize(store)})
		}

		data, err := os.ReadFile(inspectArtifacts)
		if err != nil {
			return errs.NewStackError(err)
		}
		store, err := features.NewArtifactStoreFromBytes(data)
		if err != nil {
			return err
		}
		return enc.Encode(summarize(store))
	},
}
