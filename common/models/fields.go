package models

import (
	"errors"
	"fmt"
	"strconv"
)

// ErrUnknownField is returned when a row has no field of the requested name
var ErrUnknownField = errors.New("unknown field")

// ErrFieldType is returned when a field value has the wrong type
var ErrFieldType = errors.New("invalid field value")

func asString(field string, value any) (string, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case nil:
		return "", nil
	default:
		return "", fmt.Errorf("%w: %s expects a string, got %T", ErrFieldType, field, value)
	}
}

// asInt accepts the number shapes produced by encoding/json as well as Go ints
func asInt(field string, value any) (int, error) {
	switch v := value.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		if v != float64(int(v)) {
			return 0, fmt.Errorf("%w: %s expects an integer, got %v", ErrFieldType, field, v)
		}
		return int(v), nil
	case string:
		if v == "" {
			return 0, nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return 0, fmt.Errorf("%w: %s expects an integer: %v", ErrFieldType, field, err)
		}
		return n, nil
	case nil:
		return 0, nil
	default:
		return 0, fmt.Errorf("%w: %s expects an integer, got %T", ErrFieldType, field, value)
	}
}

func asBool(field string, value any) (bool, error) {
	switch v := value.(type) {
	case bool:
		return v, nil
	case nil:
		return false, nil
	default:
		return false, fmt.Errorf("%w: %s expects a boolean, got %T", ErrFieldType, field, value)
	}
}
