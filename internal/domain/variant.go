package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strconv"
)

var ErrInvalidVariant = errors.New("invalid variant type")

// Variant distinguishes otherwise identical product selections (size, color, ...).
type Variant string

const NoVariant Variant = ""

// VariantOf normalises a caller supplied discriminator. Strings and integers keep
// their text form, maps become canonical JSON and string sets become sorted JSON
// arrays, so two equal selections always compare equal after a storage round trip.
func VariantOf(v any) (Variant, error) {
	switch val := v.(type) {
	case nil:
		return NoVariant, nil
	case Variant:
		return val, nil
	case string:
		return Variant(val), nil
	case int:
		return Variant(strconv.Itoa(val)), nil
	case int8, int16, int32, int64:
		return Variant(fmt.Sprintf("%d", val)), nil
	case uint, uint8, uint16, uint32, uint64:
		return Variant(fmt.Sprintf("%d", val)), nil
	case json.Number:
		n, err := val.Int64()
		if err != nil {
			return NoVariant, fmt.Errorf("%w: non-integer number %s", ErrInvalidVariant, val)
		}
		return Variant(strconv.FormatInt(n, 10)), nil
	case map[string]string:
		return marshalVariant(val)
	case map[string]any:
		return marshalVariant(val)
	case []string:
		return stringSet(val)
	case []any:
		set := make([]string, 0, len(val))
		for _, e := range val {
			s, ok := e.(string)
			if !ok {
				return NoVariant, fmt.Errorf("%w: set element %T", ErrInvalidVariant, e)
			}
			set = append(set, s)
		}
		return stringSet(set)
	default:
		return NoVariant, fmt.Errorf("%w: %T, expected string, integer, map or string set", ErrInvalidVariant, v)
	}
}

func stringSet(values []string) (Variant, error) {
	set := slices.Clone(values)
	slices.Sort(set)
	return marshalVariant(slices.Compact(set))
}

// json.Marshal sorts map keys, which makes the encoding canonical.
func marshalVariant(v any) (Variant, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return NoVariant, fmt.Errorf("%w: %v", ErrInvalidVariant, err)
	}
	return Variant(data), nil
}
