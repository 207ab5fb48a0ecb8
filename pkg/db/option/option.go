package option

import (
	"fmt"

	"gorm.io/gorm"
)

// QueryOption composes optional query clauses onto a gorm statement.
type QueryOption interface {
	Apply(stmt *gorm.DB) *gorm.DB
}

type queryOptionFunc func(stmt *gorm.DB) *gorm.DB

func (f queryOptionFunc) Apply(stmt *gorm.DB) *gorm.DB { return f(stmt) }

type Operator string

const (
	EQ  Operator = "="
	GT  Operator = ">"
	GTE Operator = ">="
	LT  Operator = "<"
	LTE Operator = "<="
)

type Condition struct {
	Field    string
	Operator Operator
	Value    any
}

// ApplyOperator adds simple comparison conditions. Field names are caller
// constants, never user input.
func ApplyOperator(conds ...Condition) QueryOption {
	return queryOptionFunc(func(stmt *gorm.DB) *gorm.DB {
		for _, c := range conds {
			if c.Field == "" || c.Operator == "" {
				continue
			}
			stmt = stmt.Where(fmt.Sprintf("%s %s ?", c.Field, c.Operator), c.Value)
		}
		return stmt
	})
}
