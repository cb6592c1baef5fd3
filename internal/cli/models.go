package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"gptlocal/internal/catalog"
	"gptlocal/internal/common/fsutil"
	"gptlocal/internal/registry"
)

func newModelsCmd(a *app) *cobra.Command {
	var remote, asJSON bool
	cmd := &cobra.Command{
		Use:   "models",
		Short: "List local model files, or the remote catalog with --remote",
		Example: "  gptlocal models\n" +
			"  gptlocal models --remote --json",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if remote {
				entries, err := catalog.NewClient(a.cfg.CatalogURL, a.httpClient).Fetch(cmd.Context())
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(out, entries)
				}
				tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "FILENAME\tSIZE\tPARAMS\tQUANT\tNAME")
				for _, e := range entries {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", e.Filename, e.Filesize, e.Parameters, e.Quant, e.Name)
				}
				return tw.Flush()
			}

			dir := a.cfg.ModelsDir
			if dir == "" {
				d, err := fsutil.DefaultModelDir()
				if err != nil {
					return err
				}
				dir = d
			} else {
				d, err := fsutil.ExpandHome(dir)
				if err != nil {
					return err
				}
				dir = d
			}
			if !fsutil.IsDir(dir) {
				a.log.Debug().Str("dir", dir).Msg("model directory does not exist")
				if asJSON {
					return writeJSON(out, []any{})
				}
				return nil
			}
			models, err := registry.LoadDir(dir, a.cfg.ModelSuffix)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(out, models)
			}
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tSIZE\tPATH")
			for _, m := range models {
				fmt.Fprintf(tw, "%s\t%d\t%s\n", m.ID, m.SizeBytes, m.Path)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&remote, "remote", false, "List the downloadable catalog instead of local files")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON")
	return cmd
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
