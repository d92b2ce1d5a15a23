package smartobjects

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
)

// DatalakeClient manages streaming datasets, their fields, and row ingestion.
//
// Every operation validates its input locally first; a rejected input returns
// a *ValidationError and nothing is sent.
type DatalakeClient struct {
	transport Transport
	validator DatasetValidator
}

// NewDatalakeClient creates a datalake client on top of the given transport.
// A nil validator selects NewDatasetValidator().
func NewDatalakeClient(transport Transport, validator DatasetValidator) *DatalakeClient {
	if validator == nil {
		validator = NewDatasetValidator()
	}
	return &DatalakeClient{
		transport: transport,
		validator: validator,
	}
}

// CreateDataset creates a new dataset and returns the raw server response.
//
// Example:
//
//	field, _ := smartobjects.NewDatasetField("speed", smartobjects.HighLevelTypeSpeed)
//	req := smartobjects.NewCreateDatasetRequest("vehicles", field)
//	req.DisplayName = "Vehicles"
//	_, err := client.Datalake.CreateDataset(ctx, req)
func (c *DatalakeClient) CreateDataset(ctx context.Context, request *CreateDatasetRequest) (string, error) {
	if err := c.validator.ValidateCreateDataset(request); err != nil {
		return "", err
	}

	body, err := marshal(request.normalized(), "create dataset request")
	if err != nil {
		return "", err
	}

	return c.transport.SendWithBody(ctx, http.MethodPost, DatasetsPath, body)
}

// GetDataset retrieves a dataset by key.
//
// Example:
//
//	dataset, err := client.Datalake.GetDataset(ctx, "vehicles")
func (c *DatalakeClient) GetDataset(ctx context.Context, datasetKey string) (*Dataset, error) {
	if err := c.validator.ValidateDatasetKey(datasetKey); err != nil {
		return nil, err
	}

	raw, err := c.transport.Send(ctx, http.MethodGet, joinPath(DatasetsPath, datasetKey))
	if err != nil {
		return nil, err
	}

	var dataset Dataset
	if err := unmarshal(raw, &dataset, "dataset"); err != nil {
		return nil, err
	}
	return &dataset, nil
}

// DeleteDataset deletes a dataset and all of its data.
func (c *DatalakeClient) DeleteDataset(ctx context.Context, datasetKey string) error {
	if err := c.validator.ValidateDatasetKey(datasetKey); err != nil {
		return err
	}

	_, err := c.transport.Send(ctx, http.MethodDelete, joinPath(DatasetsPath, datasetKey))
	return err
}

// UpdateDataset replaces the display name, description and metadata of a
// dataset. Fields are managed with AddField and UpdateField.
func (c *DatalakeClient) UpdateDataset(ctx context.Context, datasetKey string, request *UpdateDatasetRequest) error {
	if err := c.validator.ValidateDatasetKey(datasetKey); err != nil {
		return err
	}
	if request == nil {
		return nilArgumentError("request", ErrRequestNil)
	}

	body, err := marshal(request, "update dataset request")
	if err != nil {
		return err
	}

	_, err = c.transport.SendWithBody(ctx, http.MethodPut, joinPath(DatasetsPath, datasetKey), body)
	return err
}

// ListDatasets retrieves every dataset visible to the caller.
//
// Example:
//
//	datasets, err := client.Datalake.ListDatasets(ctx)
func (c *DatalakeClient) ListDatasets(ctx context.Context) ([]*Dataset, error) {
	raw, err := c.transport.Send(ctx, http.MethodGet, DatasetsPath)
	if err != nil {
		return nil, err
	}

	datasets := []*Dataset{}
	if err := unmarshal(raw, &datasets, "dataset list"); err != nil {
		return nil, err
	}
	return datasets, nil
}

// AddField adds a field to an existing dataset.
func (c *DatalakeClient) AddField(ctx context.Context, datasetKey string, field *DatasetField) error {
	if err := c.validator.ValidateDatasetKey(datasetKey); err != nil {
		return err
	}
	if err := c.validator.ValidateField(field); err != nil {
		return err
	}

	body, err := marshal(field, "dataset field")
	if err != nil {
		return err
	}

	_, err = c.transport.SendWithBody(ctx, http.MethodPost, joinPath(DatasetsPath, datasetKey, FieldsPath), body)
	return err
}

// UpdateField changes the display name and description of a field. The key
// and type of a field cannot be changed.
func (c *DatalakeClient) UpdateField(ctx context.Context, datasetKey, fieldKey string, request *UpdateDatasetFieldRequest) error {
	if err := c.validator.ValidateDatasetKey(datasetKey); err != nil {
		return err
	}
	if err := c.validator.ValidateFieldKey(fieldKey); err != nil {
		return err
	}
	if request == nil {
		return nilArgumentError("request", ErrRequestNil)
	}

	body, err := marshal(request, "update field request")
	if err != nil {
		return err
	}

	_, err = c.transport.SendWithBody(ctx, http.MethodPut, joinPath(DatasetsPath, datasetKey, FieldsPath, fieldKey), body)
	return err
}

// SendRows ingests rows into a dataset and returns the raw server response.
// At most MaxIngestionRows rows can be sent per call.
//
// Example:
//
//	row := smartobjects.NewRow()
//	_ = row.Set("speed", 88.5)
//	_ = row.Set("recorded_at", time.Now())
//	_, err := client.Datalake.SendRows(ctx, "vehicles", []smartobjects.Row{row})
func (c *DatalakeClient) SendRows(ctx context.Context, datasetKey string, rows []Row) (string, error) {
	if err := c.validator.ValidateDatasetKey(datasetKey); err != nil {
		return "", err
	}
	if err := c.validator.ValidateIngestionRows(rows); err != nil {
		return "", err
	}
	if rows == nil {
		rows = []Row{}
	}

	body, err := marshal(rows, "ingestion rows")
	if err != nil {
		return "", err
	}

	return c.transport.SendWithBody(ctx, http.MethodPost, joinPath(IngestionPath, datasetKey), body)
}

// SendRowsWithResponse is SendRows with the per-row outcome decoded. The
// platform answers either with a bare array of row results or with an object
// wrapping them; an empty body yields an empty result.
func (c *DatalakeClient) SendRowsWithResponse(ctx context.Context, datasetKey string, rows []Row) (*IngestionResult, error) {
	raw, err := c.SendRows(ctx, datasetKey, rows)
	if err != nil {
		return nil, err
	}

	result := &IngestionResult{Results: []RowResult{}}
	trimmed := strings.TrimSpace(raw)
	switch {
	case trimmed == "":
		return result, nil
	case strings.HasPrefix(trimmed, "["):
		err = unmarshal(trimmed, &result.Results, "ingestion result")
	default:
		err = unmarshal(trimmed, result, "ingestion result")
	}
	if err != nil {
		return nil, err
	}
	return result, nil
}

func marshal(v any, target string) ([]byte, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return nil, NewSerializationError("encode", target, err)
	}
	return body, nil
}

func unmarshal(raw string, v any, target string) error {
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return NewSerializationError("decode", target, err)
	}
	return nil
}
