package sundaegql

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Millis is a unix millisecond timestamp. It is encoded as a decimal string
// because GraphQL Int is 32 bits.
type Millis int64

func (Millis) ImplementsGraphQLType(name string) bool {
	return name == "Millis"
}

func (m *Millis) UnmarshalGraphQL(input interface{}) error {
	switch v := input.(type) {
	case string:
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid Millis %q", v)
		}
		*m = Millis(n)
	case int32:
		*m = Millis(v)
	case int64:
		*m = Millis(v)
	case float64:
		*m = Millis(v)
	default:
		return fmt.Errorf("invalid Millis %v", input)
	}
	return nil
}

func (m Millis) MarshalJSON() ([]byte, error) {
	return json.Marshal(strconv.FormatInt(int64(m), 10))
}
