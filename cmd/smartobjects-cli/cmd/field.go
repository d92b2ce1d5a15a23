package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	smartobjects "github.com/mnubo/Mnubo.SmartObjects.Client-sub001"
)

type fieldFlags struct {
	key         string
	fieldType   string
	displayName string
	description string
	aliases     []string
}

func (a *app) fieldCmd() *cobra.Command {
	f := &fieldFlags{}

	fieldCmd := &cobra.Command{
		Use:     "field",
		Aliases: []string{"fields"},
		Short:   "Manage the fields of a dataset",
	}

	addCmd := &cobra.Command{
		Use:   "add <dataset-key>",
		Short: "Add a field to a dataset",
		Long: `Add a typed field to an existing dataset.

Examples:
  smartobjects-cli field add vehicles --key temperature --type TEMPERATURE \
    --display-name "Cabin temperature" --alias temp`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runFieldAdd(cmd, args[0], f)
		},
	}

	updateCmd := &cobra.Command{
		Use:   "update <dataset-key> <field-key>",
		Short: "Update the display name and description of a field",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runFieldUpdate(cmd, args[0], args[1], f)
		},
	}

	addCmd.Flags().StringVar(&f.key, "key", "", "Field key (required)")
	addCmd.Flags().StringVar(&f.fieldType, "type", "", "Field type, e.g. TEXT or TEMPERATURE (required)")
	addCmd.Flags().StringVar(&f.displayName, "display-name", "", "Field display name")
	addCmd.Flags().StringVar(&f.description, "description", "", "Field description")
	addCmd.Flags().StringSliceVar(&f.aliases, "alias", nil, "Field alias, repeatable")
	_ = addCmd.MarkFlagRequired("key")
	_ = addCmd.MarkFlagRequired("type")

	updateCmd.Flags().StringVar(&f.displayName, "display-name", "", "Field display name")
	updateCmd.Flags().StringVar(&f.description, "description", "", "Field description")

	fieldCmd.AddCommand(addCmd, updateCmd)
	return fieldCmd
}

func (a *app) runFieldAdd(cmd *cobra.Command, datasetKey string, f *fieldFlags) error {
	p, err := a.printer(cmd)
	if err != nil {
		return err
	}

	fieldType, err := smartobjects.ParseHighLevelType(f.fieldType)
	if err != nil {
		return err
	}
	field, err := smartobjects.NewDatasetField(f.key, fieldType)
	if err != nil {
		return err
	}
	field.DisplayName = f.displayName
	field.Description = f.description
	if len(f.aliases) > 0 {
		field.Aliases = f.aliases
	}

	client, err := a.client(cmd)
	if err != nil {
		return err
	}
	defer client.Close()

	if err := client.Datalake.AddField(cmd.Context(), datasetKey, field); err != nil {
		return fmt.Errorf("failed to add field %s: %w", f.key, err)
	}

	p.Success("Field %s added to dataset %s", f.key, datasetKey)
	return nil
}

func (a *app) runFieldUpdate(cmd *cobra.Command, datasetKey, fieldKey string, f *fieldFlags) error {
	p, err := a.printer(cmd)
	if err != nil {
		return err
	}

	client, err := a.client(cmd)
	if err != nil {
		return err
	}
	defer client.Close()

	request := &smartobjects.UpdateDatasetFieldRequest{
		DisplayName: f.displayName,
		Description: f.description,
	}
	if err := client.Datalake.UpdateField(cmd.Context(), datasetKey, fieldKey, request); err != nil {
		return fmt.Errorf("failed to update field %s: %w", fieldKey, err)
	}

	p.Success("Field %s of dataset %s updated", fieldKey, datasetKey)
	return nil
}
