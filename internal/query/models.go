package query

import (
	"encoding/json"
	"fmt"
)

// Query represents a complete Plausible v2 query payload.
// The zero SiteID is allowed at construction time; the executor resolves
// it from the active site profile before dispatch.
type Query struct {
	SiteID     string      `json:"site_id,omitempty"`
	Metrics    []string    `json:"metrics"`
	DateRange  DateRange   `json:"date_range"`
	Dimensions []string    `json:"dimensions,omitempty"`
	Filters    []Filter    `json:"filters,omitempty"`
	OrderBy    []OrderBy   `json:"order_by,omitempty"`
	Pagination *Pagination `json:"pagination,omitempty"`
}

// Pagination bounds the result window. The upstream API silently
// mis-handles dimensional queries without it, so the validator requires
// it whenever dimensions are present.
type Pagination struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// DateRange is either a relative shortcut ("7d", "month", ...) or an
// explicit [start, end] pair of YYYY-MM-DD dates. Exactly one form is
// set at a time; Shortcut wins when both are populated.
type DateRange struct {
	Shortcut string
	Start    string
	End      string
}

// RangeShortcuts lists the relative tokens the upstream API accepts.
var RangeShortcuts = []string{"day", "7d", "28d", "30d", "91d", "month", "6mo", "12mo", "year", "all"}

// IsShortcut reports whether s is a known relative range token.
func IsShortcut(s string) bool {
	for _, t := range RangeShortcuts {
		if s == t {
			return true
		}
	}
	return false
}

func (d DateRange) MarshalJSON() ([]byte, error) {
	if d.Shortcut != "" {
		return json.Marshal(d.Shortcut)
	}
	return json.Marshal([2]string{d.Start, d.End})
}

func (d *DateRange) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		d.Shortcut = s
		d.Start, d.End = "", ""
		return nil
	}
	var pair []string
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("date_range must be a string or a [start, end] pair")
	}
	if len(pair) != 2 {
		return fmt.Errorf("date_range pair must have exactly two elements, got %d", len(pair))
	}
	d.Shortcut = ""
	d.Start, d.End = pair[0], pair[1]
	return nil
}

// IsZero reports whether the date range was left unset.
func (d DateRange) IsZero() bool {
	return d.Shortcut == "" && d.Start == "" && d.End == ""
}

func (d DateRange) String() string {
	if d.Shortcut != "" {
		return d.Shortcut
	}
	return d.Start + ".." + d.End
}

// Filter is a tagged variant: exactly one of Leaf or Logical is set.
// On the wire both render as JSON arrays, ["is","event:page",["/"]] for
// leaves and ["and",[...]] for logical nodes.
type Filter struct {
	Leaf    *LeafFilter
	Logical *LogicalFilter
}

// LeafFilter matches a single dimension against a value set.
type LeafFilter struct {
	Operator  string
	Dimension string
	Values    []string
}

// LogicalFilter combines child filters with and/or/not.
type LogicalFilter struct {
	Op       string
	Children []Filter
}

// Leaf operators accepted by the upstream API.
const (
	OpIs       = "is"
	OpIsNot    = "is_not"
	OpContains = "contains"
	OpMatches  = "matches"
)

// NewLeaf builds a leaf filter.
func NewLeaf(operator, dimension string, values ...string) Filter {
	return Filter{Leaf: &LeafFilter{Operator: operator, Dimension: dimension, Values: values}}
}

// And combines filters conjunctively.
func And(children ...Filter) Filter {
	return Filter{Logical: &LogicalFilter{Op: "and", Children: children}}
}

// Or combines filters disjunctively.
func Or(children ...Filter) Filter {
	return Filter{Logical: &LogicalFilter{Op: "or", Children: children}}
}

// Not negates the given filters.
func Not(children ...Filter) Filter {
	return Filter{Logical: &LogicalFilter{Op: "not", Children: children}}
}

func isLogicalOp(op string) bool {
	return op == "and" || op == "or" || op == "not"
}

func (f Filter) MarshalJSON() ([]byte, error) {
	switch {
	case f.Logical != nil:
		return json.Marshal([2]interface{}{f.Logical.Op, f.Logical.Children})
	case f.Leaf != nil:
		return json.Marshal([3]interface{}{f.Leaf.Operator, f.Leaf.Dimension, f.Leaf.Values})
	default:
		return nil, fmt.Errorf("filter has neither leaf nor logical form")
	}
}

func (f *Filter) UnmarshalJSON(data []byte) error {
	var parts []json.RawMessage
	if err := json.Unmarshal(data, &parts); err != nil {
		return fmt.Errorf("filter must be a JSON array: %w", err)
	}
	if len(parts) < 2 {
		return fmt.Errorf("filter array needs at least an operator and an operand")
	}

	var op string
	if err := json.Unmarshal(parts[0], &op); err != nil {
		return fmt.Errorf("filter operator must be a string: %w", err)
	}

	if isLogicalOp(op) {
		var children []Filter
		if err := json.Unmarshal(parts[1], &children); err != nil {
			// "not" may wrap a single filter rather than a list.
			var single Filter
			if err2 := json.Unmarshal(parts[1], &single); err2 != nil {
				return fmt.Errorf("logical filter %q needs a filter list: %w", op, err)
			}
			children = []Filter{single}
		}
		f.Leaf = nil
		f.Logical = &LogicalFilter{Op: op, Children: children}
		return nil
	}

	if len(parts) != 3 {
		return fmt.Errorf("leaf filter needs [operator, dimension, values], got %d elements", len(parts))
	}
	var dimension string
	if err := json.Unmarshal(parts[1], &dimension); err != nil {
		return fmt.Errorf("filter dimension must be a string: %w", err)
	}
	var values []string
	if err := json.Unmarshal(parts[2], &values); err != nil {
		return fmt.Errorf("filter values must be a string list: %w", err)
	}
	f.Logical = nil
	f.Leaf = &LeafFilter{Operator: op, Dimension: dimension, Values: values}
	return nil
}

// OrderBy sorts results by a metric or dimension. Serializes as
// ["field", "asc"|"desc"].
type OrderBy struct {
	Field     string
	Direction string
}

func (o OrderBy) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]string{o.Field, o.Direction})
}

func (o *OrderBy) UnmarshalJSON(data []byte) error {
	var pair []string
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("order_by entry must be a [field, direction] pair: %w", err)
	}
	if len(pair) != 2 {
		return fmt.Errorf("order_by entry must have exactly two elements, got %d", len(pair))
	}
	o.Field, o.Direction = pair[0], pair[1]
	return nil
}
