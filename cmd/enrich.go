package main

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/enrich-cli/internal/model"
)

var (
	enrichInput string
	enrichForce bool
)

var enrichCmd = &cobra.Command{
	Use:   "enrich",
	Short: "Run enrichment over a batch of organisation records",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		records, err := readRecordsCSV(enrichInput)
		if err != nil {
			return err
		}
		if len(records) == 0 {
			return eris.New("no records in input")
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		p, err := initPipeline(st, enrichForce)
		if err != nil {
			return err
		}

		outcomes, metrics, err := p.Run(ctx, records)
		if err != nil {
			return eris.Wrap(err, "enrich run")
		}

		zap.L().Info("enrichment complete",
			zap.Int("processed", metrics.Processed),
			zap.Int("admitted", metrics.Admitted),
			zap.Int("rejected", metrics.Rejected),
		)

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			Outcomes any `json:"outcomes"`
			Metrics  any `json:"metrics"`
		}{outcomes, metrics})
	},
}

// readRecordsCSV parses the batch input. The header row names the columns;
// unknown columns are ignored.
func readRecordsCSV(path string) ([]model.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "open input %s", path)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, eris.Wrap(err, "read csv header")
	}
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.ToLower(strings.TrimSpace(name))] = i
	}
	if _, ok := col["id"]; !ok {
		return nil, eris.New("csv input missing id column")
	}

	get := func(row []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var records []model.Record
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrap(err, "read csv row")
		}
		rec := model.Record{
			ID:          get(row, "id"),
			Name:        get(row, "name"),
			Region:      get(row, "region"),
			Category:    get(row, "category"),
			Status:      model.OrgStatus(get(row, "status")),
			Website:     get(row, "website"),
			ContactName: get(row, "contact_name"),
			Phone:       get(row, "phone"),
			Email:       get(row, "email"),
		}
		if rec.ID == "" {
			continue
		}
		if rec.Status == "" {
			rec.Status = model.StatusCandidate
		}
		records = append(records, rec)
	}
	return records, nil
}

func init() {
	enrichCmd.Flags().StringVar(&enrichInput, "input", "", "CSV file of organisation records (required)")
	enrichCmd.Flags().BoolVar(&enrichForce, "force", false, "apply changes even when the gate rejects them (rollback still planned)")
	_ = enrichCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(enrichCmd)
}
