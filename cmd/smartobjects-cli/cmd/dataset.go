package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	smartobjects "github.com/mnubo/Mnubo.SmartObjects.Client-sub001"
)

// datasetFlags holds the flags of the dataset subcommands
type datasetFlags struct {
	file        string
	data        string
	key         string
	displayName string
	description string
	fields      []string
	metadata    map[string]string
	force       bool
}

func (a *app) datasetCmd() *cobra.Command {
	f := &datasetFlags{}

	datasetCmd := &cobra.Command{
		Use:     "dataset",
		Aliases: []string{"datasets", "ds"},
		Short:   "Manage datalake datasets",
		Long:    `Create, read, update and delete datasets in the SmartObjects datalake.`,
	}

	listCmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List datasets",
		Args:    cobra.NoArgs,
		RunE:    a.runDatasetList,
	}

	getCmd := &cobra.Command{
		Use:     "get <dataset-key>",
		Aliases: []string{"show"},
		Short:   "Get a dataset by key",
		Args:    cobra.ExactArgs(1),
		RunE:    a.runDatasetGet,
	}

	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new dataset",
		Long: `Create a new dataset from a JSON file, inline JSON or flags.

The request is validated locally before it is sent.

Examples:
  # Create from file
  smartobjects-cli dataset create --file dataset.json

  # Create from flags
  smartobjects-cli dataset create --key vehicles \
    --field speed:SPEED --field plate:TEXT --metadata team=fleet`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runDatasetCreate(cmd, f)
		},
	}

	updateCmd := &cobra.Command{
		Use:   "update <dataset-key>",
		Short: "Update the display name, description and metadata of a dataset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runDatasetUpdate(cmd, args[0], f)
		},
	}

	deleteCmd := &cobra.Command{
		Use:     "delete <dataset-key>",
		Aliases: []string{"rm", "remove"},
		Short:   "Delete a dataset",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runDatasetDelete(cmd, args[0], f.force)
		},
	}

	createCmd.Flags().StringVarP(&f.file, "file", "f", "", "JSON file containing the dataset")
	createCmd.Flags().StringVarP(&f.data, "data", "d", "", "Inline JSON dataset")
	createCmd.Flags().StringVar(&f.key, "key", "", "Dataset key")
	createCmd.Flags().StringVar(&f.displayName, "display-name", "", "Dataset display name")
	createCmd.Flags().StringVar(&f.description, "description", "", "Dataset description")
	createCmd.Flags().StringArrayVar(&f.fields, "field", nil, "Field as key:TYPE, repeatable")
	createCmd.Flags().StringToStringVar(&f.metadata, "metadata", nil, "Metadata as key=value pairs")

	updateCmd.Flags().StringVarP(&f.file, "file", "f", "", "JSON file containing the update")
	updateCmd.Flags().StringVarP(&f.data, "data", "d", "", "Inline JSON update")
	updateCmd.Flags().StringVar(&f.displayName, "display-name", "", "Dataset display name")
	updateCmd.Flags().StringVar(&f.description, "description", "", "Dataset description")
	updateCmd.Flags().StringToStringVar(&f.metadata, "metadata", nil, "Metadata as key=value pairs")

	deleteCmd.Flags().BoolVarP(&f.force, "force", "y", false, "Force deletion without confirmation")

	datasetCmd.AddCommand(listCmd, getCmd, createCmd, updateCmd, deleteCmd)
	return datasetCmd
}

func (a *app) runDatasetList(cmd *cobra.Command, args []string) error {
	p, err := a.printer(cmd)
	if err != nil {
		return err
	}
	client, err := a.client(cmd)
	if err != nil {
		return err
	}
	defer client.Close()

	datasets, err := client.Datalake.ListDatasets(cmd.Context())
	if err != nil {
		return err
	}
	return p.Print(datasets)
}

func (a *app) runDatasetGet(cmd *cobra.Command, args []string) error {
	p, err := a.printer(cmd)
	if err != nil {
		return err
	}
	client, err := a.client(cmd)
	if err != nil {
		return err
	}
	defer client.Close()

	dataset, err := client.Datalake.GetDataset(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	return p.Print(dataset)
}

func (a *app) runDatasetCreate(cmd *cobra.Command, f *datasetFlags) error {
	p, err := a.printer(cmd)
	if err != nil {
		return err
	}

	request := &smartobjects.CreateDatasetRequest{}
	loaded, err := readJSONInput(f.file, f.data, request)
	if err != nil {
		return err
	}
	if !loaded {
		if f.key == "" {
			return fmt.Errorf("either --file, --data or --key must be provided")
		}
		fields, err := parseFieldSpecs(f.fields)
		if err != nil {
			return err
		}
		request = smartobjects.NewCreateDatasetRequest(f.key, fields...)
		request.DisplayName = f.displayName
		request.Description = f.description
		if f.metadata != nil {
			request.Metadata = f.metadata
		}
	}

	client, err := a.client(cmd)
	if err != nil {
		return err
	}
	defer client.Close()

	if _, err := client.Datalake.CreateDataset(cmd.Context(), request); err != nil {
		return err
	}

	p.Success("Dataset %s created successfully", request.DatasetKey)
	if p.format == "table" {
		return nil
	}
	return p.Print(map[string]string{"datasetKey": request.DatasetKey, "status": "created"})
}

func (a *app) runDatasetUpdate(cmd *cobra.Command, datasetKey string, f *datasetFlags) error {
	p, err := a.printer(cmd)
	if err != nil {
		return err
	}

	request := &smartobjects.UpdateDatasetRequest{}
	loaded, err := readJSONInput(f.file, f.data, request)
	if err != nil {
		return err
	}
	if !loaded {
		request.DisplayName = f.displayName
		request.Description = f.description
		request.Metadata = f.metadata
		if request.Metadata == nil {
			request.Metadata = map[string]string{}
		}
	}

	client, err := a.client(cmd)
	if err != nil {
		return err
	}
	defer client.Close()

	if err := client.Datalake.UpdateDataset(cmd.Context(), datasetKey, request); err != nil {
		return err
	}

	p.Success("Dataset %s updated successfully", datasetKey)
	return nil
}

func (a *app) runDatasetDelete(cmd *cobra.Command, datasetKey string, force bool) error {
	p, err := a.printer(cmd)
	if err != nil {
		return err
	}

	if !force {
		fmt.Fprintf(cmd.OutOrStdout(), "Are you sure you want to delete dataset %s? (y/N): ", datasetKey)
		var response string
		_, _ = fmt.Fscanln(cmd.InOrStdin(), &response)
		if response != "y" && response != "Y" {
			fmt.Fprintln(cmd.OutOrStdout(), "Deletion cancelled.")
			return nil
		}
	}

	client, err := a.client(cmd)
	if err != nil {
		return err
	}
	defer client.Close()

	if err := client.Datalake.DeleteDataset(cmd.Context(), datasetKey); err != nil {
		return err
	}

	p.Success("Dataset %s deleted successfully", datasetKey)
	return nil
}

// parseFieldSpecs turns "key:TYPE" flags into dataset fields.
func parseFieldSpecs(specs []string) ([]*smartobjects.DatasetField, error) {
	fields := make([]*smartobjects.DatasetField, 0, len(specs))
	for _, spec := range specs {
		key, typeToken, ok := strings.Cut(spec, ":")
		if !ok {
			return nil, fmt.Errorf("invalid field %q, expected key:TYPE", spec)
		}
		fieldType, err := smartobjects.ParseHighLevelType(typeToken)
		if err != nil {
			return nil, err
		}
		field, err := smartobjects.NewDatasetField(key, fieldType)
		if err != nil {
			return nil, err
		}
		fields = append(fields, field)
	}
	return fields, nil
}
