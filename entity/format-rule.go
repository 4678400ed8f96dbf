package entity

// FormatRule describes how ledger rows are painted by the presentation layer.
type FormatRule struct {
	Name       string `json:"name" bson:"name"`
	Column     string `json:"column" bson:"column"`
	Operator   string `json:"operator" bson:"operator"`
	Value      string `json:"value" bson:"value"`
	Background string `json:"background" bson:"background"`
}

const (
	OperatorEquals   = "equals"
	OperatorContains = "contains"
)

// CodeRow is a ledger row together with the style its rules resolve to.
type CodeRow struct {
	*CodeRecord
	Style string `json:"style,omitempty"`
}
