package repository

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"golang-microcap-tracker/internal/entity"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"
)

const orderSetSchemaJSON = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "properties": {
    "microCapOnly": {"type": ["boolean", "null"]},
    "buys":  {"type": ["array", "null"], "items": {"$ref": "#/definitions/order"}},
    "sells": {"type": ["array", "null"], "items": {"$ref": "#/definitions/order"}}
  },
  "definitions": {
    "number": {"type": ["number", "string", "null"]},
    "order": {
      "type": "object",
      "required": ["symbol"],
      "properties": {
        "symbol":          {"type": "string", "minLength": 1},
        "quantity":        {"$ref": "#/definitions/number"},
        "assumedPrice":    {"$ref": "#/definitions/number"},
        "stopLossPercent": {"$ref": "#/definitions/number"},
        "marketCapUsd":    {"$ref": "#/definitions/number"}
      }
    }
  }
}`

var orderSetSchema = compileOrderSetSchema()

func compileOrderSetSchema() *jsonschema.Schema {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("orderset.json", strings.NewReader(orderSetSchemaJSON)); err != nil {
		panic(fmt.Sprintf("order set schema: %v", err))
	}
	schema, err := compiler.Compile("orderset.json")
	if err != nil {
		panic(fmt.Sprintf("order set schema: %v", err))
	}
	return schema
}

type rawOrder struct {
	Symbol          string           `json:"symbol"`
	Quantity        *decimal.Decimal `json:"quantity"`
	AssumedPrice    *decimal.Decimal `json:"assumedPrice"`
	StopLossPercent *decimal.Decimal `json:"stopLossPercent"`
	MarketCapUsd    *decimal.Decimal `json:"marketCapUsd"`
}

type rawOrderSet struct {
	MicroCapOnly *bool      `json:"microCapOnly"`
	Buys         []rawOrder `json:"buys"`
	Sells        []rawOrder `json:"sells"`
}

var (
	minQuantity = decimal.NewFromInt(math.MinInt64)
	maxQuantity = decimal.NewFromInt(math.MaxInt64)
)

// toOrder rejects fractional quantities and quantities outside int64 instead
// of truncating them.
func (o rawOrder) toOrder() (entity.Order, error) {
	order := entity.Order{
		Symbol:          entity.NormalizeSymbol(o.Symbol),
		AssumedPrice:    o.AssumedPrice,
		StopLossPercent: o.StopLossPercent,
		MarketCapUsd:    o.MarketCapUsd,
	}
	if o.Quantity == nil {
		return order, nil
	}
	q := *o.Quantity
	if !q.IsInteger() {
		return entity.Order{}, fmt.Errorf("%w: %s quantity %s is not a whole number", ErrInvalidOrderSet, order.Symbol, q)
	}
	if q.LessThan(minQuantity) || q.GreaterThan(maxQuantity) {
		return entity.Order{}, fmt.Errorf("%w: %s quantity %s is out of range", ErrInvalidOrderSet, order.Symbol, q)
	}
	order.Quantity = q.IntPart()
	return order, nil
}

// stripCodeFence removes a surrounding ```json fence some models add.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimPrefix(s, "json")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// ParseOrderSet decodes a decision provider's answer. Empty content yields an
// empty micro-cap-only set. Content that is not a JSON object of the expected
// shape, or whose quantities are fractional or overflow int64, yields
// ErrInvalidOrderSet. Missing quantities decode as 0, which a sell
// treats as "everything".
func ParseOrderSet(content string) (entity.OrderSet, error) {
	raw := stripCodeFence(content)
	if raw == "" {
		return entity.OrderSet{MicroCapOnly: true}, nil
	}

	if !gjson.Valid(raw) {
		return entity.OrderSet{}, fmt.Errorf("%w: malformed json", ErrInvalidOrderSet)
	}
	var doc interface{}
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return entity.OrderSet{}, fmt.Errorf("%w: %v", ErrInvalidOrderSet, err)
	}
	if err := orderSetSchema.Validate(doc); err != nil {
		return entity.OrderSet{}, fmt.Errorf("%w: %v", ErrInvalidOrderSet, err)
	}

	var decoded rawOrderSet
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		return entity.OrderSet{}, fmt.Errorf("%w: %v", ErrInvalidOrderSet, err)
	}

	set := entity.OrderSet{MicroCapOnly: true}
	if decoded.MicroCapOnly != nil {
		set.MicroCapOnly = *decoded.MicroCapOnly
	}
	for _, o := range decoded.Sells {
		order, err := o.toOrder()
		if err != nil {
			return entity.OrderSet{}, err
		}
		set.Sells = append(set.Sells, order)
	}
	for _, o := range decoded.Buys {
		order, err := o.toOrder()
		if err != nil {
			return entity.OrderSet{}, err
		}
		set.Buys = append(set.Buys, order)
	}
	return set, nil
}
