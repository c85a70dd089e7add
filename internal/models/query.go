package models

// Field names a filterable/orderable transaction column
type Field string

const (
	FieldID                 Field = "id"
	FieldType               Field = "type"
	FieldAmount             Field = "amount"
	FieldDescription        Field = "description"
	FieldDate               Field = "date"
	FieldPaymentMethod      Field = "payment_method"
	FieldVendor             Field = "vendor"
	FieldCategoryID         Field = "category_id"
	FieldAccountID          Field = "account_id"
	FieldInstallments       Field = "installments"
	FieldInstallmentNo      Field = "installment_no"
	FieldInstallmentGroupID Field = "installment_group_id"
)

// MatchKind selects how a FieldFilter compares values
type MatchKind int

const (
	MatchExact MatchKind = iota
	// MatchPrefix only applies to string fields
	MatchPrefix
)

// FieldFilter restricts a find to records whose Field matches Value.
// A nil Value matches records where the field is absent.
type FieldFilter struct {
	Field Field
	Value any
	Match MatchKind
}

// Eq builds an exact-match filter
func Eq(field Field, value any) FieldFilter {
	return FieldFilter{Field: field, Value: value, Match: MatchExact}
}

// Prefix builds a prefix filter on a string field
func Prefix(field Field, prefix string) FieldFilter {
	return FieldFilter{Field: field, Value: prefix, Match: MatchPrefix}
}

// OrderBy orders find results; the zero value orders by date ascending
type OrderBy struct {
	Field Field
	Desc  bool
}
