package domain

import (
	"fmt"
	"strings"
)

type ColumnType string

const (
	ColumnText      ColumnType = "text"
	ColumnInteger   ColumnType = "integer"
	ColumnNumeric   ColumnType = "numeric"
	ColumnTimestamp ColumnType = "timestamptz"
)

type Column struct {
	Name       string
	Type       ColumnType
	Nullable   bool
	References string // "table.column" for foreign keys
}

type Table struct {
	Name       string
	PrimaryKey string
	Columns    []Column
}

// SchemaDescriptor is static metadata about the relational store. Planning
// and retrieval validate every column reference against it; it is never
// mutated at runtime.
type SchemaDescriptor struct {
	Tables []Table
}

func (s SchemaDescriptor) Table(name string) (Table, bool) {
	for _, t := range s.Tables {
		if t.Name == name {
			return t, true
		}
	}
	return Table{}, false
}

func (s SchemaDescriptor) HasColumn(table, column string) bool {
	t, ok := s.Table(table)
	if !ok {
		return false
	}
	for _, c := range t.Columns {
		if c.Name == column {
			return true
		}
	}
	return false
}

// Summary produces a compact textual overview of the schema, suitable for
// prompt preambles and operator output.
func (s SchemaDescriptor) Summary() string {
	var b strings.Builder
	for i, t := range s.Tables {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "Table %s\n", t.Name)
		for _, c := range t.Columns {
			nullability := "NOT NULL"
			if c.Nullable {
				nullability = "NULLABLE"
			}
			pk := ""
			if c.Name == t.PrimaryKey {
				pk = " PRIMARY KEY"
			}
			fk := ""
			if c.References != "" {
				fk = " REFERENCES " + c.References
			}
			fmt.Fprintf(&b, "  - %s %s%s %s%s\n", c.Name, c.Type, pk, nullability, fk)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// CorpusDescriptor is static metadata about the vector collection.
type CorpusDescriptor struct {
	Collection string
	Fields     []string
}

// RetailSchema describes the transactional store the assistant answers
// structured questions from.
func RetailSchema() SchemaDescriptor {
	return SchemaDescriptor{Tables: []Table{
		{
			Name:       "customers",
			PrimaryKey: "id",
			Columns: []Column{
				{Name: "id", Type: ColumnInteger},
				{Name: "name", Type: ColumnText},
				{Name: "email", Type: ColumnText},
			},
		},
		{
			Name:       "customer_addresses",
			PrimaryKey: "id",
			Columns: []Column{
				{Name: "id", Type: ColumnInteger},
				{Name: "customer_id", Type: ColumnInteger, References: "customers.id"},
				{Name: "label", Type: ColumnText},
				{Name: "street", Type: ColumnText},
				{Name: "city", Type: ColumnText},
				{Name: "state", Type: ColumnText},
				{Name: "postal_code", Type: ColumnText},
				{Name: "country", Type: ColumnText},
			},
		},
		{
			Name:       "categories",
			PrimaryKey: "id",
			Columns: []Column{
				{Name: "id", Type: ColumnInteger},
				{Name: "name", Type: ColumnText},
			},
		},
		{
			Name:       "items",
			PrimaryKey: "id",
			Columns: []Column{
				{Name: "id", Type: ColumnInteger},
				{Name: "name", Type: ColumnText},
				{Name: "price", Type: ColumnNumeric},
				{Name: "category_id", Type: ColumnInteger, References: "categories.id"},
			},
		},
		{
			Name:       "suppliers",
			PrimaryKey: "id",
			Columns: []Column{
				{Name: "id", Type: ColumnInteger},
				{Name: "name", Type: ColumnText},
				{Name: "contact_email", Type: ColumnText},
			},
		},
		{
			Name:       "item_suppliers",
			PrimaryKey: "id",
			Columns: []Column{
				{Name: "id", Type: ColumnInteger},
				{Name: "item_id", Type: ColumnInteger, References: "items.id"},
				{Name: "supplier_id", Type: ColumnInteger, References: "suppliers.id"},
				{Name: "wholesale_price", Type: ColumnNumeric},
				{Name: "lead_time_days", Type: ColumnInteger},
			},
		},
		{
			Name:       "purchases",
			PrimaryKey: "id",
			Columns: []Column{
				{Name: "id", Type: ColumnInteger},
				{Name: "customer_id", Type: ColumnInteger, References: "customers.id"},
				{Name: "item_id", Type: ColumnInteger, References: "items.id"},
				{Name: "shipping_address_id", Type: ColumnInteger, Nullable: true, References: "customer_addresses.id"},
				{Name: "quantity", Type: ColumnInteger},
				{Name: "total_amount", Type: ColumnNumeric},
				{Name: "purchased_at", Type: ColumnTimestamp},
			},
		},
	}}
}

// InsightCorpus describes the semantic document collection.
func InsightCorpus(collection string) CorpusDescriptor {
	return CorpusDescriptor{
		Collection: collection,
		Fields:     []string{"title", "category", "content"},
	}
}
