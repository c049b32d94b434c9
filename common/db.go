package common

import (
	"context"
	"fmt"

	g "github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/mysql"
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/jmoiron/sqlx"
)

var (
	dialect = g.Dialect("mysql")
)

type QueryArg struct {
	Db     *sqlx.DB                // db connection
	Table  string                  // table
	Fields []interface{}           // query fields
	Ex     []exp.Expression        // where conditions
	Order  []exp.OrderedExpression // order conditions
	Offset uint                    // offset
	Limit  uint                    // limit
}

// SelectAllCtx 分页列表查询（带 Context）
func SelectAllCtx(ctx context.Context, data interface{}, args QueryArg) error {

	if args.Db == nil {
		return fmt.Errorf("invalid db")
	}
	if args.Table == "" {
		return fmt.Errorf("invalid table")
	}
	if len(args.Fields) == 0 {
		return fmt.Errorf("invalid fields")
	}

	ds := dialect.Select(args.Fields...).From(args.Table)

	if len(args.Ex) > 0 {
		ds = ds.Where(args.Ex...)
	}

	if len(args.Order) > 0 {
		ds = ds.Order(args.Order...)
	}

	if args.Offset > 0 {
		ds = ds.Offset(args.Offset)
	}

	if args.Limit > 0 {
		ds = ds.Limit(args.Limit)
	}

	query, qargs, err := ds.Prepared(true).ToSQL()
	if err != nil {
		return err
	}
	if err = args.Db.SelectContext(ctx, data, query, qargs...); err != nil {
		Printf("select %s err: %s\n", args.Table, err.Error())
	}

	return err
}

// CountCtx 按条件统计行数（带 Context）
func CountCtx(ctx context.Context, db *sqlx.DB, table string, ex ...exp.Expression) (int64, error) {

	var count int64
	query, qargs, err := dialect.Select(g.COUNT("*")).From(table).Where(ex...).Prepared(true).ToSQL()
	if err != nil {
		return 0, err
	}
	if err = db.GetContext(ctx, &count, query, qargs...); err != nil {
		Printf("count %s err: %s\n", table, err.Error())
	}

	return count, err
}

// SelectOneExtCtx：在 sqlx.ExtContext 上查询单条记录
func SelectOneExtCtx(ctx context.Context, exec sqlx.ExtContext, data interface{}, table string, fields []interface{}, ex ...exp.Expression) error {
	query, args, err := dialect.Select(fields...).From(table).Where(ex...).Limit(1).Prepared(true).ToSQL()
	if err != nil {
		return err
	}
	return sqlx.GetContext(ctx, exec, data, query, args...)
}
