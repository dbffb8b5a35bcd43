// Package history implements the command that prints stored diagnoses.
package history

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tphakala/lungcheck/internal/conf"
	"github.com/tphakala/lungcheck/internal/datastore"
	"github.com/tphakala/lungcheck/internal/diagnosis"
)

// DefaultLimit matches the HTTP history endpoint.
const DefaultLimit = 10

// Command creates the history command.
func Command(settings *conf.Settings) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Print recent diagnoses, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := datastore.Open(settings)
			if err != nil {
				return err
			}
			defer store.Close()

			records, err := store.History(cmd.Context(), limit)
			if err != nil {
				return err
			}
			out := make([]diagnosis.DTO, len(records))
			for i, rec := range records {
				out[i] = diagnosis.NewDTO(rec)
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(out); err != nil {
				return fmt.Errorf("failed to write history: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", DefaultLimit, "Maximum number of entries")
	return cmd
}
