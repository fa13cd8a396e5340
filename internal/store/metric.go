package store

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"regexp"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/stdlib"
	"github.com/mattn/go-sqlite3"
	"github.com/ngrok/sqlmw"
	"github.com/prometheus/client_golang/prometheus"
)

// Driver names registered with database/sql. Both wrap the stock drivers and
// record every operation.
const (
	postgresDriverName = "pgx-instrumented"
	sqliteDriverName   = "sqlite3-instrumented"
)

var (
	verbRegex   = regexp.MustCompile(`^\s*(\w+)`)
	dbOpLatency *prometheus.HistogramVec
	dbOpTotal   *prometheus.CounterVec
)

type metricInterceptor struct {
	sqlmw.NullInterceptor
}

func init() {
	dbOpLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:      "db_op_duration_milliseconds",
		Help:      "Time spent on a database operation",
		Subsystem: "harvester",
		Buckets:   []float64{1, 10, 100, 500, 1000, 5000},
	},
		[]string{"op", "verb"},
	)
	dbOpTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:      "db_op_total",
		Help:      "Number of database operations",
		Subsystem: "harvester",
	},
		[]string{"op", "result"},
	)

	prometheus.MustRegister(dbOpLatency)
	prometheus.MustRegister(dbOpTotal)

	sql.Register(postgresDriverName, sqlmw.Driver(stdlib.GetDefaultDriver(), &metricInterceptor{}))
	sql.Register(sqliteDriverName, sqlmw.Driver(&sqlite3.SQLiteDriver{ConnectHook: registerSQLiteFunctions}, &metricInterceptor{}))
}

func (mi *metricInterceptor) ConnBeginTx(ctx context.Context, conn driver.ConnBeginTx, opts driver.TxOptions) (context.Context, driver.Tx, error) {
	start := time.Now()
	tx, err := conn.BeginTx(ctx, opts)
	mi.measure("begin", "begin", start, err)
	return ctx, tx, err
}

func (mi *metricInterceptor) ConnPrepareContext(ctx context.Context, conn driver.ConnPrepareContext, query string) (context.Context, driver.Stmt, error) {
	start := time.Now()
	stmt, err := conn.PrepareContext(ctx, query)
	mi.measure("prepare", verb(query, "prepare"), start, err)
	return ctx, stmt, err
}

func (mi *metricInterceptor) ConnExecContext(ctx context.Context, conn driver.ExecerContext, query string, args []driver.NamedValue) (driver.Result, error) {
	start := time.Now()
	res, err := conn.ExecContext(ctx, query, args)
	mi.measure("exec", verb(query, "exec"), start, err)
	return res, err
}

func (mi *metricInterceptor) ConnQueryContext(ctx context.Context, conn driver.QueryerContext, query string, args []driver.NamedValue) (context.Context, driver.Rows, error) {
	start := time.Now()
	rows, err := conn.QueryContext(ctx, query, args)
	mi.measure("query", verb(query, "query"), start, err)
	return ctx, rows, err
}

func (mi *metricInterceptor) StmtExecContext(ctx context.Context, conn driver.StmtExecContext, query string, args []driver.NamedValue) (driver.Result, error) {
	start := time.Now()
	res, err := conn.ExecContext(ctx, args)
	mi.measure("stmt_exec", verb(query, "stmt_exec"), start, err)
	return res, err
}

func (mi *metricInterceptor) StmtQueryContext(ctx context.Context, conn driver.StmtQueryContext, query string, args []driver.NamedValue) (context.Context, driver.Rows, error) {
	start := time.Now()
	rows, err := conn.QueryContext(ctx, args)
	mi.measure("stmt_query", verb(query, "stmt_query"), start, err)
	return ctx, rows, err
}

func (mi *metricInterceptor) TxCommit(ctx context.Context, conn driver.Tx) error {
	start := time.Now()
	err := conn.Commit()
	mi.measure("commit", "commit", start, err)
	return err
}

func (mi *metricInterceptor) TxRollback(ctx context.Context, conn driver.Tx) error {
	start := time.Now()
	err := conn.Rollback()
	mi.measure("rollback", "rollback", start, err)
	return err
}

func (mi *metricInterceptor) measure(op, verb string, start time.Time, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	dbOpTotal.WithLabelValues(op, result).Inc()
	dbOpLatency.WithLabelValues(op, verb).Observe(float64(time.Since(start).Milliseconds()))
}

// verb returns the lower-cased leading SQL keyword of query.
func verb(query, fallback string) string {
	if m := verbRegex.FindStringSubmatch(query); len(m) > 1 {
		return strings.ToLower(m[1])
	}
	return fallback
}
