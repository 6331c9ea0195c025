package store

import (
	"context"
	"database/sql/driver"
	"regexp"
	"strings"
	"time"

	"github.com/ngrok/sqlmw"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	verbRegex   = regexp.MustCompile(`^\s*(\w+)`)
	tableRegex  = regexp.MustCompile(`(?i)\b(?:from|into|update)\s+"?(\w+)"?`)
	dbOpLatency *prometheus.HistogramVec
	dbOpTotal   *prometheus.CounterVec
)

// metricInterceptor instruments the postgres driver used by gorm.
type metricInterceptor struct {
	sqlmw.NullInterceptor
}

func init() {
	dbOpLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:      "db_op_duration_milliseconds",
		Help:      "Time spent on a database operation",
		Subsystem: "catalog_bulk",
		Buckets:   []float64{5, 25, 100, 500, 2000},
	},
		[]string{"op", "verb", "table"},
	)
	dbOpTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:      "db_op_total",
		Help:      "Number of database operations",
		Subsystem: "catalog_bulk",
	},
		[]string{"op"},
	)

	prometheus.MustRegister(dbOpLatency)
	prometheus.MustRegister(dbOpTotal)
}

func (mi *metricInterceptor) ConnBeginTx(ctx context.Context, conn driver.ConnBeginTx, opts driver.TxOptions) (context.Context, driver.Tx, error) {
	defer mi.observe("begin", "begin", "", time.Now())
	tx, err := conn.BeginTx(ctx, opts)
	return ctx, tx, err
}

func (mi *metricInterceptor) ConnExecContext(ctx context.Context, conn driver.ExecerContext, query string, args []driver.NamedValue) (driver.Result, error) {
	defer mi.observe("exec", sqlVerb(query), sqlTable(query), time.Now())
	return conn.ExecContext(ctx, query, args)
}

func (mi *metricInterceptor) ConnQueryContext(ctx context.Context, conn driver.QueryerContext, query string, args []driver.NamedValue) (context.Context, driver.Rows, error) {
	defer mi.observe("query", sqlVerb(query), sqlTable(query), time.Now())
	rows, err := conn.QueryContext(ctx, query, args)
	return ctx, rows, err
}

func (mi *metricInterceptor) TxCommit(ctx context.Context, conn driver.Tx) error {
	defer mi.observe("commit", "commit", "", time.Now())
	return conn.Commit()
}

func (mi *metricInterceptor) TxRollback(ctx context.Context, conn driver.Tx) error {
	defer mi.observe("rollback", "rollback", "", time.Now())
	return conn.Rollback()
}

func (mi *metricInterceptor) observe(op, verb, table string, start time.Time) {
	dbOpTotal.With(prometheus.Labels{"op": op}).Inc()
	dbOpLatency.With(prometheus.Labels{"op": op, "verb": verb, "table": table}).Observe(float64(time.Since(start).Milliseconds()))
}

func sqlVerb(query string) string {
	if m := verbRegex.FindStringSubmatch(query); len(m) > 1 {
		return strings.ToLower(m[1])
	}
	return "unknown"
}

// sqlTable is the first table a statement reads or writes, so import load on the
// catalog tables can be told apart from job bookkeeping.
func sqlTable(query string) string {
	if m := tableRegex.FindStringSubmatch(query); len(m) > 1 {
		return strings.ToLower(m[1])
	}
	return "unknown"
}
