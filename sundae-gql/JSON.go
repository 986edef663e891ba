package sundaegql

import (
	"encoding/json"
	"fmt"
)

// JSON is an opaque scalar for free-form maps such as notification data.
type JSON struct {
	Data interface{}
}

func FromRaw(raw json.RawMessage) (JSON, error) {
	m := map[string]interface{}{}
	if err := json.Unmarshal(raw, &m); err != nil {
		return JSON{}, err
	}
	return JSON{Data: m}, nil
}

// FromMap wraps m; a nil map stays null.
func FromMap(m map[string]interface{}) *JSON {
	if m == nil {
		return nil
	}
	return &JSON{Data: m}
}

func (JSON) ImplementsGraphQLType(name string) bool {
	return name == "JSON"
}

func (a *JSON) UnmarshalGraphQL(input interface{}) error {
	switch input.(type) {
	case map[string]interface{}, []interface{}, string, bool, float64, int32, int64, nil:
		a.Data = input
		return nil
	default:
		return fmt.Errorf("unsupported JSON input %T", input)
	}
}

func (a JSON) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.Data)
}
