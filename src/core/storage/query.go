package storage

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrInvalidOrder reports an order option naming a field that is not a plain
// identifier. Order fields are embedded into the statement text, so anything
// else is rejected instead of bound.
var ErrInvalidOrder = errors.New("invalid order field")

// Condition is one parameterized predicate. All conditions on a Query are
// ANDed together; expressions containing OR must carry their own parentheses.
type Condition struct {
	Expr string
	Args []interface{}
}

// Query describes a statement target without any shared builder state: the
// table, an optional projection, the filter predicates and an optional
// grouping column.
type Query struct {
	Table   string
	Fields  []string
	Where   []Condition
	GroupBy string
}

// Options carries the optional clauses recognized by reads. Order accepts a
// field name ("name"), a sign-prefixed name for descending ("-counter"), a
// comma or whitespace separated list, a []string of such names, or a
// map[string]bool keyed by field with an ascending flag. Limit and Offset
// apply only when positive; zero leaves the clause unset.
type Options struct {
	Order  interface{}
	Limit  int
	Offset int
}

// Executor dispatches query descriptions to the storage engine and decodes
// rows into typed destinations.
type Executor struct {
	db *gorm.DB
}

func NewExecutor(db *gorm.DB) *Executor {
	return &Executor{db: db}
}

// Select runs a read described by q and scans the rows into dest, which must
// be a pointer to a slice of the row type.
func (e *Executor) Select(q Query, opts Options, dest interface{}) error {
	tx, err := applyOptions(e.apply(q), opts)
	if err != nil {
		return err
	}
	if err := tx.Find(dest).Error; err != nil {
		return fmt.Errorf("select from %s: %w", q.Table, err)
	}
	return nil
}

// Insert creates one row from record. The id assigned by the storage engine
// is written back into the record's ID field.
func (e *Executor) Insert(table string, record interface{}) error {
	if err := e.db.Table(table).Create(record).Error; err != nil {
		return fmt.Errorf("insert into %s: %w", table, err)
	}
	return nil
}

// InsertIgnore creates one row from record, treating a uniqueness conflict as
// success. On conflict the record's ID field is left untouched; callers
// re-read to learn the winning row.
func (e *Executor) InsertIgnore(table string, record interface{}) error {
	err := e.db.Table(table).Clauses(clause.OnConflict{DoNothing: true}).Create(record).Error
	if err != nil {
		return fmt.Errorf("insert into %s: %w", table, err)
	}
	return nil
}

// Delete removes the rows matching q and reports how many were affected.
func (e *Executor) Delete(q Query) (int64, error) {
	var (
		exprs []string
		args  []interface{}
	)
	for _, cond := range q.Where {
		exprs = append(exprs, "("+cond.Expr+")")
		args = append(args, cond.Args...)
	}
	stmt := "DELETE FROM " + q.Table
	if len(exprs) > 0 {
		stmt += " WHERE " + strings.Join(exprs, " AND ")
	}
	result := e.db.Exec(stmt, args...)
	if result.Error != nil {
		return 0, fmt.Errorf("delete from %s: %w", q.Table, result.Error)
	}
	return result.RowsAffected, nil
}

// Exec runs a raw statement. Only the tag association bulk insert uses this;
// its values are strconv-formatted integers, never caller strings.
func (e *Executor) Exec(stmt string, args ...interface{}) error {
	if err := e.db.Exec(stmt, args...).Error; err != nil {
		return fmt.Errorf("exec: %w", err)
	}
	return nil
}

func (e *Executor) apply(q Query) *gorm.DB {
	tx := e.db.Table(q.Table)
	if len(q.Fields) > 0 {
		tx = tx.Select(strings.Join(q.Fields, ", "))
	}
	for _, cond := range q.Where {
		tx = tx.Where(cond.Expr, cond.Args...)
	}
	if q.GroupBy != "" {
		tx = tx.Group(q.GroupBy)
	}
	return tx
}

func applyOptions(tx *gorm.DB, opts Options) (*gorm.DB, error) {
	columns, err := orderColumns(opts.Order)
	if err != nil {
		return nil, err
	}
	for _, col := range columns {
		tx = tx.Order(clause.OrderByColumn{Column: clause.Column{Name: col.name}, Desc: col.desc})
	}
	if opts.Limit > 0 {
		tx = tx.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		tx = tx.Offset(opts.Offset)
	}
	return tx, nil
}

type orderColumn struct {
	name string
	desc bool
}

var (
	identPattern     = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
	orderListPattern = regexp.MustCompile(`\s*,\s*|\s+`)
)

func orderColumns(order interface{}) ([]orderColumn, error) {
	switch value := order.(type) {
	case nil:
		return nil, nil
	case string:
		trimmed := strings.TrimSpace(value)
		if trimmed == "" {
			return nil, nil
		}
		return parseSignedFields(orderListPattern.Split(trimmed, -1))
	case []string:
		return parseSignedFields(value)
	case map[string]bool:
		// Sorted for a stable clause; map iteration order is not.
		keys := make([]string, 0, len(value))
		for key := range value {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		columns := make([]orderColumn, 0, len(keys))
		for _, key := range keys {
			if !identPattern.MatchString(key) {
				return nil, fmt.Errorf("%w: %q", ErrInvalidOrder, key)
			}
			columns = append(columns, orderColumn{name: key, desc: !value[key]})
		}
		return columns, nil
	default:
		return nil, fmt.Errorf("%w: unsupported order type %T", ErrInvalidOrder, order)
	}
}

func parseSignedFields(fields []string) ([]orderColumn, error) {
	columns := make([]orderColumn, 0, len(fields))
	for _, field := range fields {
		desc := false
		if strings.HasPrefix(field, "-") {
			desc = true
			field = field[1:]
		}
		if !identPattern.MatchString(field) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidOrder, field)
		}
		columns = append(columns, orderColumn{name: field, desc: desc})
	}
	return columns, nil
}
