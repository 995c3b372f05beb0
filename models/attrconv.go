package models

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/shopspring/decimal"
)

// ToAttributeValue converts a decoded JSON value into a DynamoDB attribute,
// recursing through maps and lists. Every numeric leaf becomes the exact
// decimal N type so monetary precision survives the round trip; strings,
// booleans and nulls pass through unchanged.
func ToAttributeValue(v interface{}) (types.AttributeValue, error) {
	switch t := v.(type) {
	case nil:
		return &types.AttributeValueMemberNULL{Value: true}, nil
	case json.Number:
		return &types.AttributeValueMemberN{Value: t.String()}, nil
	case decimal.Decimal:
		return &types.AttributeValueMemberN{Value: t.String()}, nil
	case string:
		return &types.AttributeValueMemberS{Value: t}, nil
	case bool:
		return &types.AttributeValueMemberBOOL{Value: t}, nil
	case float64:
		return &types.AttributeValueMemberN{Value: decimal.NewFromFloat(t).String()}, nil
	case int:
		return &types.AttributeValueMemberN{Value: strconv.Itoa(t)}, nil
	case int64:
		return &types.AttributeValueMemberN{Value: strconv.FormatInt(t, 10)}, nil
	case map[string]interface{}:
		return toAttributeMap(t)
	case []interface{}:
		list := make([]types.AttributeValue, 0, len(t))
		for _, el := range t {
			av, err := ToAttributeValue(el)
			if err != nil {
				return nil, err
			}
			list = append(list, av)
		}
		return &types.AttributeValueMemberL{Value: list}, nil
	default:
		return attributevalue.Marshal(v)
	}
}

func toAttributeMap(m map[string]interface{}) (*types.AttributeValueMemberM, error) {
	out := make(map[string]types.AttributeValue, len(m))
	for k, v := range m {
		av, err := ToAttributeValue(v)
		if err != nil {
			return nil, err
		}
		out[k] = av
	}
	return &types.AttributeValueMemberM{Value: out}, nil
}

// ToAttributeValues converts a full decoded body into a DynamoDB item.
func ToAttributeValues(m map[string]interface{}) (map[string]types.AttributeValue, error) {
	av, err := toAttributeMap(m)
	if err != nil {
		return nil, err
	}
	return av.Value, nil
}

// FromAttributeValue is the inverse of ToAttributeValue. N attributes come
// back as json.Number, never float64, so re-encoding keeps the stored digits.
func FromAttributeValue(av types.AttributeValue) (interface{}, error) {
	switch t := av.(type) {
	case *types.AttributeValueMemberNULL:
		return nil, nil
	case *types.AttributeValueMemberN:
		return json.Number(t.Value), nil
	case *types.AttributeValueMemberS:
		return t.Value, nil
	case *types.AttributeValueMemberBOOL:
		return t.Value, nil
	case *types.AttributeValueMemberM:
		out := make(map[string]interface{}, len(t.Value))
		for k, v := range t.Value {
			dv, err := FromAttributeValue(v)
			if err != nil {
				return nil, err
			}
			out[k] = dv
		}
		return out, nil
	case *types.AttributeValueMemberL:
		out := make([]interface{}, 0, len(t.Value))
		for _, v := range t.Value {
			dv, err := FromAttributeValue(v)
			if err != nil {
				return nil, err
			}
			out = append(out, dv)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported attribute type %T", av)
	}
}

// FromAttributeValues converts a stored item back into a JSON-shaped map.
func FromAttributeValues(item map[string]types.AttributeValue) (map[string]interface{}, error) {
	out := make(map[string]interface{}, len(item))
	for k, v := range item {
		dv, err := FromAttributeValue(v)
		if err != nil {
			return nil, err
		}
		out[k] = dv
	}
	return out, nil
}
