package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"xritd/internal/xrit"
)

func newRenameCommand() *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:         "rename <file>...",
		Short:       "Rename transport files to the name in their annotation record",
		Args:        cobra.MinimumNArgs(1),
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			for _, path := range args {
				if dryRun {
					name, err := xrit.DecodedName(path)
					if err != nil {
						return fmt.Errorf("%s: %w", path, err)
					}
					if name == "" {
						fmt.Fprintf(out, "%s: no annotation name\n", path)
						continue
					}
					fmt.Fprintf(out, "%s -> %s\n", path, filepath.Join(filepath.Dir(path), name))
					continue
				}
				target, found, err := xrit.RenameToDecodedName(path)
				if err != nil {
					return err
				}
				if !found {
					fmt.Fprintf(out, "%s: no annotation name\n", path)
					continue
				}
				fmt.Fprintf(out, "%s -> %s\n", path, target)
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&dryRun, "dry-run", "n", false, "Print the new names without renaming")
	return cmd
}
