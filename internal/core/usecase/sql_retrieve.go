package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/kirillkom/insight-assistant/internal/core/domain"
	"github.com/kirillkom/insight-assistant/internal/core/ports"
)

const (
	TemplateCustomerPurchaseTotal = "customer_purchase_total"
	TemplateCustomerPurchases     = "customer_purchases"
	TemplateCustomerItemQuantity  = "customer_item_quantity"
	TemplateItemPrice             = "item_price"
	TemplateItemSuppliers         = "item_suppliers"
	TemplatePurchaseOverview      = "purchase_overview"
)

// paramSpec binds a descriptor-qualified column to the SQL expression used
// for it inside a template. Column is validated against the schema
// descriptor; Expr is the only thing that ever reaches the query text.
type paramSpec struct {
	Column   string
	Expr     string
	Operator string
	Required bool
}

type queryTemplate struct {
	Name      string
	Select    string
	Suffix    string
	Params    []paramSpec
	KeyColumn string
}

var allowedOperators = map[string]struct{}{
	"=": {}, ">": {}, ">=": {}, "<": {}, "<=": {},
}

func retailTemplates() map[string]queryTemplate {
	purchaseDateParams := []paramSpec{
		{Column: "purchases.purchased_at", Expr: "p.purchased_at", Operator: ">="},
		{Column: "purchases.purchased_at", Expr: "p.purchased_at", Operator: "<"},
	}

	templates := []queryTemplate{
		{
			Name: TemplateCustomerPurchaseTotal,
			Select: `SELECT c.name, SUM(p.total_amount) AS total_amount, COUNT(p.id) AS purchase_count
FROM customers c
JOIN purchases p ON p.customer_id = c.id`,
			Suffix: `
GROUP BY c.name`,
			Params: append([]paramSpec{
				{Column: "customers.name", Expr: "c.name", Operator: "=", Required: true},
			}, purchaseDateParams...),
			KeyColumn: "name",
		},
		{
			Name: TemplateCustomerPurchases,
			Select: `SELECT p.id, c.name, i.name AS item_name, p.quantity, p.total_amount, p.purchased_at
FROM purchases p
JOIN customers c ON c.id = p.customer_id
JOIN items i ON i.id = p.item_id`,
			Suffix: `
ORDER BY p.purchased_at DESC
LIMIT 50`,
			Params: append([]paramSpec{
				{Column: "customers.name", Expr: "c.name", Operator: "=", Required: true},
			}, purchaseDateParams...),
			KeyColumn: "id",
		},
		{
			Name: TemplateCustomerItemQuantity,
			Select: `SELECT c.name, i.name AS item_name, SUM(p.quantity) AS units, SUM(p.total_amount) AS total_amount
FROM purchases p
JOIN customers c ON c.id = p.customer_id
JOIN items i ON i.id = p.item_id`,
			Suffix: `
GROUP BY c.name, i.name`,
			Params: []paramSpec{
				{Column: "customers.name", Expr: "c.name", Operator: "=", Required: true},
				{Column: "items.name", Expr: "i.name", Operator: "=", Required: true},
			},
			KeyColumn: "item_name",
		},
		{
			Name: TemplateItemPrice,
			Select: `SELECT i.id, i.name, i.price, cat.name AS category
FROM items i
LEFT JOIN categories cat ON cat.id = i.category_id`,
			Params: []paramSpec{
				{Column: "items.name", Expr: "i.name", Operator: "=", Required: true},
			},
			KeyColumn: "id",
		},
		{
			Name: TemplateItemSuppliers,
			Select: `SELECT s.id, s.name AS supplier_name, i.name AS item_name, sup.wholesale_price, sup.lead_time_days
FROM item_suppliers sup
JOIN suppliers s ON s.id = sup.supplier_id
JOIN items i ON i.id = sup.item_id`,
			Suffix: `
ORDER BY sup.lead_time_days ASC`,
			Params: []paramSpec{
				{Column: "items.name", Expr: "i.name", Operator: "=", Required: true},
			},
			KeyColumn: "supplier_name",
		},
		{
			Name: TemplatePurchaseOverview,
			Select: `SELECT p.id, c.name, i.name AS item_name, p.quantity, p.total_amount, p.purchased_at
FROM purchases p
JOIN customers c ON c.id = p.customer_id
JOIN items i ON i.id = p.item_id`,
			Suffix: `
ORDER BY p.purchased_at DESC
LIMIT 25`,
			Params:    purchaseDateParams,
			KeyColumn: "id",
		},
	}

	out := make(map[string]queryTemplate, len(templates))
	for _, t := range templates {
		out[t.Name] = t
	}
	return out
}

// SQLRetriever executes SQL-routed sub-queries through the whitelisted
// template registry. Every filter is checked against the schema descriptor
// and the template's declared parameters before any SQL is assembled;
// values travel only as bind arguments.
type SQLRetriever struct {
	store     ports.RelationalStore
	schema    domain.SchemaDescriptor
	templates map[string]queryTemplate
}

func NewSQLRetriever(store ports.RelationalStore, schema domain.SchemaDescriptor) *SQLRetriever {
	return &SQLRetriever{
		store:     store,
		schema:    schema,
		templates: retailTemplates(),
	}
}

func (r *SQLRetriever) Retrieve(ctx context.Context, sq domain.SubQuery) (*domain.SQLResult, error) {
	if sq.Backend != domain.BackendSQL {
		return nil, domain.WrapError(domain.ErrInvalidInput, "sql retrieve",
			fmt.Errorf("sub-query %s routed to wrong backend %s", sq.ID, sq.Backend))
	}

	tpl, ok := r.templates[sq.Template]
	if !ok {
		return nil, domain.WrapError(domain.ErrSchemaViolation, "sql retrieve",
			fmt.Errorf("unknown query template %q", sq.Template))
	}

	query, args, err := buildQuery(tpl, sq.Filters, r.schema)
	if err != nil {
		return nil, err
	}

	rows, err := r.store.Select(ctx, query, args...)
	if err != nil {
		if domain.IsKind(err, domain.ErrBackendUnavailable) {
			return nil, err
		}
		return nil, domain.WrapError(domain.ErrBackendUnavailable, "sql retrieve", err)
	}

	return &domain.SQLResult{
		SubQueryID: sq.ID,
		Template:   tpl.Name,
		KeyColumn:  tpl.KeyColumn,
		Rows:       rows,
	}, nil
}

// buildQuery matches each filter to a declared parameter, then assembles the
// WHERE clause in template declaration order with positional placeholders.
func buildQuery(tpl queryTemplate, filters []domain.Filter, schema domain.SchemaDescriptor) (string, []any, error) {
	bound := make([]*domain.Filter, len(tpl.Params))

	for i := range filters {
		f := filters[i]
		if _, ok := allowedOperators[f.Operator]; !ok {
			return "", nil, domain.WrapError(domain.ErrSchemaViolation, "sql retrieve",
				fmt.Errorf("operator %q is not allowed", f.Operator))
		}
		table, column, ok := splitQualifiedColumn(f.Column)
		if !ok || !schema.HasColumn(table, column) {
			return "", nil, domain.WrapError(domain.ErrSchemaViolation, "sql retrieve",
				fmt.Errorf("column %q is not in the schema descriptor", f.Column))
		}

		matched := false
		for j, spec := range tpl.Params {
			if spec.Column != f.Column || spec.Operator != f.Operator {
				continue
			}
			if bound[j] != nil {
				continue
			}
			bound[j] = &filters[i]
			matched = true
			break
		}
		if !matched {
			return "", nil, domain.WrapError(domain.ErrSchemaViolation, "sql retrieve",
				fmt.Errorf("filter %s %s is not declared by template %q", f.Column, f.Operator, tpl.Name))
		}
	}

	var conditions []string
	var args []any
	for j, spec := range tpl.Params {
		if bound[j] == nil {
			if spec.Required {
				return "", nil, domain.WrapError(domain.ErrSchemaViolation, "sql retrieve",
					fmt.Errorf("template %q requires a %s %s filter", tpl.Name, spec.Column, spec.Operator))
			}
			continue
		}
		args = append(args, bound[j].Value)
		conditions = append(conditions, fmt.Sprintf("%s %s $%d", spec.Expr, spec.Operator, len(args)))
	}

	query := tpl.Select
	if len(conditions) > 0 {
		query += "\nWHERE " + strings.Join(conditions, " AND ")
	}
	query += tpl.Suffix
	return query, args, nil
}

func splitQualifiedColumn(qualified string) (string, string, bool) {
	parts := strings.SplitN(qualified, ".", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return parts[0], parts[1], true
}
