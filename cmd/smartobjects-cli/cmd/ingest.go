package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	smartobjects "github.com/mnubo/Mnubo.SmartObjects.Client-sub001"
)

func (a *app) ingestCmd() *cobra.Command {
	var (
		file        string
		data        string
		showResults bool
	)

	ingestCmd := &cobra.Command{
		Use:   "ingest <dataset-key>",
		Short: "Send rows to a dataset",
		Long: `Send a JSON array of rows to a dataset. Each row is an object whose keys
are field keys of the dataset.

Examples:
  # Ingest from file
  smartobjects-cli ingest vehicles --file rows.json

  # Ingest from stdin and show per-row results
  cat rows.json | smartobjects-cli ingest vehicles --file - --results`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runIngest(cmd, args[0], file, data, showResults)
		},
	}

	ingestCmd.Flags().StringVarP(&file, "file", "f", "", "JSON file containing rows, - for stdin")
	ingestCmd.Flags().StringVarP(&data, "data", "d", "", "Inline JSON rows")
	ingestCmd.Flags().BoolVar(&showResults, "results", false, "Decode and print per-row results")

	return ingestCmd
}

func (a *app) runIngest(cmd *cobra.Command, datasetKey, file, data string, showResults bool) error {
	p, err := a.printer(cmd)
	if err != nil {
		return err
	}

	var rows []smartobjects.Row
	if file == "-" {
		raw, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("failed to read stdin: %w", err)
		}
		data = string(raw)
		file = ""
	}
	loaded, err := readJSONInput(file, data, &rows)
	if err != nil {
		return err
	}
	if !loaded {
		return fmt.Errorf("either --file or --data must be provided")
	}

	client, err := a.client(cmd)
	if err != nil {
		return err
	}
	defer client.Close()

	if !showResults {
		body, err := client.Datalake.SendRows(cmd.Context(), datasetKey, rows)
		if err != nil {
			return err
		}
		p.Success("%d rows sent to dataset %s", len(rows), datasetKey)
		if body = strings.TrimSpace(body); body != "" && p.format != "table" {
			fmt.Fprintln(cmd.OutOrStdout(), body)
		}
		return nil
	}

	result, err := client.Datalake.SendRowsWithResponse(cmd.Context(), datasetKey, rows)
	if err != nil {
		return err
	}
	if failed := len(result.Failed()); failed > 0 {
		fmt.Fprintf(cmd.ErrOrStderr(), "⚠ Warning: %d of %d rows were rejected\n", failed, len(rows))
	}
	return p.Print(result)
}

// readJSONInput decodes a JSON document from file or, failing that, from the
// inline data. It reports false when neither was given.
func readJSONInput(file, data string, v any) (bool, error) {
	var raw []byte
	switch {
	case file != "":
		content, err := os.ReadFile(file)
		if err != nil {
			return false, fmt.Errorf("failed to read file: %w", err)
		}
		raw = content
	case data != "":
		raw = []byte(data)
	default:
		return false, nil
	}

	if err := json.Unmarshal(raw, v); err != nil {
		return false, fmt.Errorf("failed to parse JSON: %w", err)
	}
	return true, nil
}
