package smartobjects

import (
	"encoding/json"
	"time"
)

// DatasetField describes one typed column of a dataset.
type DatasetField struct {
	Key         string        `json:"key"`
	DisplayName string        `json:"displayName"`
	Description string        `json:"description"`
	Type        HighLevelType `json:"type"`
	Aliases     []string      `json:"aliases"`
}

// MarshalJSON writes nil Aliases as an empty list.
func (f DatasetField) MarshalJSON() ([]byte, error) {
	type wireField DatasetField
	w := wireField(f)
	if w.Aliases == nil {
		w.Aliases = []string{}
	}
	return json.Marshal(w)
}

// NewDatasetField builds a field, defaulting Aliases to an empty list.
//
// Example:
//
//	field, err := smartobjects.NewDatasetField("temperature", smartobjects.HighLevelTypeTemperature)
func NewDatasetField(key string, fieldType HighLevelType) (*DatasetField, error) {
	if key == "" {
		return nil, NewValidationError("fieldKey", ErrMsgFieldKeyEmpty, key)
	}
	if !fieldType.IsValid() {
		return nil, NewValidationError("type", ErrMsgFieldTypeRequired, fieldType)
	}
	return &DatasetField{
		Key:     key,
		Type:    fieldType,
		Aliases: []string{},
	}, nil
}

// CreateDatasetRequest is the payload of DatalakeClient.CreateDataset.
type CreateDatasetRequest struct {
	DatasetKey  string            `json:"datasetKey"`
	DisplayName string            `json:"displayName"`
	Description string            `json:"description"`
	Fields      []*DatasetField   `json:"fields"`
	Metadata    map[string]string `json:"metadata"`
}

// NewCreateDatasetRequest builds a request with empty fields and metadata.
func NewCreateDatasetRequest(datasetKey string, fields ...*DatasetField) *CreateDatasetRequest {
	if fields == nil {
		fields = []*DatasetField{}
	}
	return &CreateDatasetRequest{
		DatasetKey: datasetKey,
		Fields:     fields,
		Metadata:   map[string]string{},
	}
}

// normalized returns a shallow copy whose nil collections are empty. Nil
// field aliases are handled by DatasetField.MarshalJSON.
func (r *CreateDatasetRequest) normalized() *CreateDatasetRequest {
	out := *r
	if out.Fields == nil {
		out.Fields = []*DatasetField{}
	}
	if out.Metadata == nil {
		out.Metadata = map[string]string{}
	}
	return &out
}

// UpdateDatasetRequest carries the mutable descriptive parts of a dataset.
type UpdateDatasetRequest struct {
	DisplayName string            `json:"displayName"`
	Description string            `json:"description"`
	Metadata    map[string]string `json:"metadata"`
}

// UpdateDatasetFieldRequest carries the mutable descriptive parts of a field.
type UpdateDatasetFieldRequest struct {
	DisplayName string `json:"displayName"`
	Description string `json:"description"`
}

// Dataset is the server-side definition of a dataset. It is a read result.
type Dataset struct {
	Key               string            `json:"key"`
	DisplayName       string            `json:"displayName"`
	Description       string            `json:"description"`
	Metadata          map[string]string `json:"metadata"`
	Fields            []*DatasetField   `json:"fields"`
	DatasetGeneration int64             `json:"datasetGeneration"`
	Version           int64             `json:"version"`
	CreatedBy         string            `json:"createdBy"`
	CreatedAt         time.Time         `json:"createdAt"`
	ModifiedBy        string            `json:"modifiedBy"`
	ModifiedAt        time.Time         `json:"modifiedAt"`
}

// Field returns the field with the given key, or nil.
func (d *Dataset) Field(key string) *DatasetField {
	for _, f := range d.Fields {
		if f != nil && f.Key == key {
			return f
		}
	}
	return nil
}

// IngestionResult is the decoded response of a row ingestion call.
type IngestionResult struct {
	Results []RowResult `json:"results"`
}

// RowResult reports the outcome of one ingested row, by position in the batch.
type RowResult struct {
	Index   int    `json:"index"`
	Result  string `json:"result"`
	Message string `json:"message,omitempty"`
}

// Failed returns the row results whose outcome is not "success".
func (r *IngestionResult) Failed() []RowResult {
	var failed []RowResult
	for _, rr := range r.Results {
		if rr.Result != "success" {
			failed = append(failed, rr)
		}
	}
	return failed
}
