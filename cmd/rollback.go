package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/enrich-cli/internal/rollback"
)

var (
	rollbackID    string
	rollbackInput string
)

var rollbackCmd = &cobra.Command{
	Use:   "rollback",
	Short: "Undo an applied change using its stored rollback action",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		action, err := st.GetRollback(ctx, rollbackID)
		if err != nil {
			return err
		}

		records, err := readRecordsCSV(rollbackInput)
		if err != nil {
			return err
		}

		for i := range records {
			if records[i].ID != action.OrgID {
				continue
			}
			rollback.Apply(&records[i], action)
			zap.L().Info("rollback applied",
				zap.String("org", action.OrgID),
				zap.Int("fields_reverted", len(action.Reverts)),
			)
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(records[i])
		}

		return eris.Errorf("record %s not found in input", action.OrgID)
	},
}

func init() {
	rollbackCmd.Flags().StringVar(&rollbackID, "id", "", "rollback action id (required)")
	rollbackCmd.Flags().StringVar(&rollbackInput, "input", "", "CSV file holding the current records (required)")
	_ = rollbackCmd.MarkFlagRequired("id")
	_ = rollbackCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(rollbackCmd)
}
