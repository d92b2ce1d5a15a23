package smartobjects

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/samber/lo"
)

// DatasetValidator checks datalake identifiers and payloads before they are
// sent. Every method returns a *ValidationError on the first failed rule.
type DatasetValidator interface {
	ValidateDatasetKey(key string) error
	ValidateFieldKey(key string) error
	ValidateField(field *DatasetField) error
	ValidateCreateDataset(request *CreateDatasetRequest) error
	ValidateIngestionRows(rows []Row) error
}

var (
	datasetKeyPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
	fieldKeyPattern   = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)
)

type datasetValidator struct{}

// NewDatasetValidator returns the default, stateless validator.
func NewDatasetValidator() DatasetValidator {
	return datasetValidator{}
}

func (datasetValidator) ValidateDatasetKey(key string) error {
	if key == "" {
		return NewValidationError("datasetKey", ErrMsgDatasetKeyEmpty, key)
	}
	if utf8.RuneCountInString(key) > MaxKeyLength {
		return NewValidationError("datasetKey", ErrMsgDatasetKeyTooLong, key)
	}
	if !datasetKeyPattern.MatchString(key) {
		return NewValidationError("datasetKey", ErrMsgDatasetKeyCharset, key)
	}
	lower := strings.ToLower(key)
	if lo.SomeBy(ReservedDatasetKeyPrefixes, func(prefix string) bool {
		return strings.HasPrefix(lower, prefix)
	}) {
		return NewValidationError("datasetKey", ErrMsgDatasetKeyReserved, key)
	}
	return nil
}

func (datasetValidator) ValidateFieldKey(key string) error {
	if key == "" {
		return NewValidationError("fieldKey", ErrMsgFieldKeyEmpty, key)
	}
	if utf8.RuneCountInString(key) > MaxKeyLength {
		return NewValidationError("fieldKey", ErrMsgFieldKeyTooLong, key)
	}
	if !fieldKeyPattern.MatchString(key) {
		return NewValidationError("fieldKey", ErrMsgFieldKeyCharset, key)
	}
	// case-sensitive: "X_foo" is a legal field key
	if strings.HasPrefix(key, "x_") {
		return NewValidationError("fieldKey", ErrMsgFieldKeyReserved, key)
	}
	return nil
}

func (v datasetValidator) ValidateField(field *DatasetField) error {
	if field == nil {
		return nilArgumentError("field", ErrFieldNil)
	}
	if err := v.ValidateFieldKey(field.Key); err != nil {
		return err
	}
	if utf8.RuneCountInString(field.DisplayName) > MaxDisplayNameLength {
		return NewValidationError("displayName", ErrMsgDisplayNameTooLong, field.DisplayName)
	}
	if utf8.RuneCountInString(field.Description) > MaxFieldDescriptionLength {
		return NewValidationError("description", ErrMsgFieldDescTooLong, field.Description)
	}
	return nil
}

func (v datasetValidator) ValidateCreateDataset(request *CreateDatasetRequest) error {
	if request == nil {
		return nilArgumentError("request", ErrRequestNil)
	}
	if err := v.ValidateDatasetKey(request.DatasetKey); err != nil {
		return err
	}
	if utf8.RuneCountInString(request.DisplayName) > MaxDisplayNameLength {
		return NewValidationError("displayName", ErrMsgDisplayNameTooLong, request.DisplayName)
	}
	if utf8.RuneCountInString(request.Description) > MaxDatasetDescriptionLength {
		return NewValidationError("description", ErrMsgDatasetDescTooLong, request.Description)
	}
	for _, field := range request.Fields {
		if err := v.ValidateField(field); err != nil {
			return err
		}
	}
	return nil
}

// ValidateIngestionRows only bounds the batch size; row contents are checked
// against the dataset schema by the platform.
func (datasetValidator) ValidateIngestionRows(rows []Row) error {
	if len(rows) > MaxIngestionRows {
		return NewValidationError("rows", ErrMsgTooManyRows, len(rows))
	}
	return nil
}
