package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"gptlocal/internal/resolver"
)

func newPullCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "pull <model>",
		Short:   "Make sure a model file is present locally, downloading it if needed",
		Example: "  gptlocal pull ggml-gpt4all-j-v1.3-groovy",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := a.newResolver().Resolve(cmd.Context(), resolver.Request{
				Name:          args[0],
				Dir:           a.cfg.ModelsDir,
				AllowDownload: a.cfg.DownloadsAllowed(),
			})
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), path)
			return err
		},
	}
}
