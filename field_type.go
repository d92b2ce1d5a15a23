package smartobjects

import (
	"encoding/json"
	"fmt"
)

// HighLevelType is the semantic type of a dataset field. Its wire form is a
// fixed upper-snake-case token that never changes with the Go identifier.
type HighLevelType int

const (
	HighLevelTypeUnspecified HighLevelType = iota
	HighLevelTypeBoolean
	HighLevelTypeInt
	HighLevelTypeLong
	HighLevelTypeFloat
	HighLevelTypeDouble
	HighLevelTypeText
	HighLevelTypeTime
	HighLevelTypeDatetime
	HighLevelTypeVolume
	HighLevelTypeAcceleration
	HighLevelTypeSpeed
	HighLevelTypeState
	HighLevelTypeMass
	HighLevelTypeEmail
	HighLevelTypeTemperature
	HighLevelTypeArea
	HighLevelTypeLength
	HighLevelTypeCountryISO
	HighLevelTypeSubdivision1ISO
	HighLevelTypeSubdivision2ISO
	HighLevelTypeTimeZone
	HighLevelTypeDuration
)

var highLevelTypeTokens = map[HighLevelType]string{
	HighLevelTypeBoolean:         "BOOLEAN",
	HighLevelTypeInt:             "INT",
	HighLevelTypeLong:            "LONG",
	HighLevelTypeFloat:           "FLOAT",
	HighLevelTypeDouble:          "DOUBLE",
	HighLevelTypeText:            "TEXT",
	HighLevelTypeTime:            "TIME",
	HighLevelTypeDatetime:        "DATETIME",
	HighLevelTypeVolume:          "VOLUME",
	HighLevelTypeAcceleration:    "ACCELERATION",
	HighLevelTypeSpeed:           "SPEED",
	HighLevelTypeState:           "STATE",
	HighLevelTypeMass:            "MASS",
	HighLevelTypeEmail:           "EMAIL",
	HighLevelTypeTemperature:     "TEMPERATURE",
	HighLevelTypeArea:            "AREA",
	HighLevelTypeLength:          "LENGTH",
	HighLevelTypeCountryISO:      "COUNTRY_ISO",
	HighLevelTypeSubdivision1ISO: "SUBDIVISION_1_ISO",
	HighLevelTypeSubdivision2ISO: "SUBDIVISION_2_ISO",
	HighLevelTypeTimeZone:        "TIME_ZONE",
	HighLevelTypeDuration:        "DURATION",
}

var highLevelTypesByToken = func() map[string]HighLevelType {
	m := make(map[string]HighLevelType, len(highLevelTypeTokens))
	for t, token := range highLevelTypeTokens {
		m[token] = t
	}
	return m
}()

// HighLevelTypes returns every known type in declaration order.
func HighLevelTypes() []HighLevelType {
	types := make([]HighLevelType, 0, len(highLevelTypeTokens))
	for t := HighLevelTypeBoolean; t <= HighLevelTypeDuration; t++ {
		types = append(types, t)
	}
	return types
}

// ParseHighLevelType maps a wire token such as "ACCELERATION" to its type.
func ParseHighLevelType(token string) (HighLevelType, error) {
	t, ok := highLevelTypesByToken[token]
	if !ok {
		return HighLevelTypeUnspecified, fmt.Errorf("%s: %q", ErrMsgUnknownHighLevelType, token)
	}
	return t, nil
}

// IsValid reports whether t has a wire token.
func (t HighLevelType) IsValid() bool {
	_, ok := highLevelTypeTokens[t]
	return ok
}

func (t HighLevelType) String() string {
	if token, ok := highLevelTypeTokens[t]; ok {
		return token
	}
	return fmt.Sprintf("UNKNOWN(%d)", int(t))
}

func (t HighLevelType) MarshalJSON() ([]byte, error) {
	token, ok := highLevelTypeTokens[t]
	if !ok {
		return nil, fmt.Errorf("%s: %d", ErrMsgUnknownHighLevelType, int(t))
	}
	return json.Marshal(token)
}

func (t *HighLevelType) UnmarshalJSON(data []byte) error {
	var token string
	if err := json.Unmarshal(data, &token); err != nil {
		return err
	}
	parsed, err := ParseHighLevelType(token)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
