// Package schema creates and evolves the SQLite schema.
//
// The current tables are described by typed descriptors (see Tables). Ensure
// compares each descriptor with the live table and applies, in one transaction:
//
//   - create: the table does not exist yet
//   - add_column: a declared column is missing; it is added with its default
//   - rebuild: the primary key or an identity column's type changed; rows are
//     copied into a fresh table by shared column names, identities coerced to
//     integers, and rows whose identity cannot be coerced are excluded
//   - fold/drop: a legacy table is copied into its current counterpart and dropped
//
// Running Ensure against an up-to-date database changes nothing and reports
// no actions.
package schema

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/jmoiron/sqlx"

	"github.com/mukeshyadav-sketch/cricbuzz-webscraping/internal/logger"
)

// ErrMigration marks any failure while ensuring the schema
var ErrMigration = errors.New("schema migration failed")

// ActionKind names a schema change
type ActionKind string

const (
	ActionCreate    ActionKind = "create"
	ActionAddColumn ActionKind = "add_column"
	ActionRebuild   ActionKind = "rebuild"
	ActionFold      ActionKind = "fold"
	ActionDrop      ActionKind = "drop"
)

// Action is one applied schema change
type Action struct {
	Table    string     `json:"table" yaml:"table"`
	Kind     ActionKind `json:"kind" yaml:"kind"`
	Detail   string     `json:"detail,omitempty" yaml:"detail,omitempty"`
	Copied   int        `json:"copied,omitempty" yaml:"copied,omitempty"`
	Excluded int        `json:"excluded,omitempty" yaml:"excluded,omitempty"`
}

// Report lists the actions applied by one Ensure run
type Report struct {
	Actions []Action `json:"actions" yaml:"actions"`
}

// Changed reports whether anything was applied
func (r Report) Changed() bool {
	return len(r.Actions) > 0
}

// Excluded totals the rows dropped because their identity could not be coerced
func (r Report) Excluded() int {
	n := 0
	for _, a := range r.Actions {
		n += a.Excluded
	}
	return n
}

func (r *Report) add(a Action) {
	r.Actions = append(r.Actions, a)
}

// Manager applies table descriptors and legacy folds to a database
type Manager struct {
	db     *sqlx.DB
	tables []Table
	folds  []Fold
}

// NewManager returns a Manager for the current schema
func NewManager(db *sqlx.DB) *Manager {
	return &Manager{db: db, tables: Tables, folds: LegacyFolds}
}

// WithTables overrides the descriptors, mostly for tests
func (m *Manager) WithTables(tables []Table, folds []Fold) *Manager {
	return &Manager{db: m.db, tables: tables, folds: folds}
}

// Ensure brings the database up to date. Either every action is applied or,
// on any failure, none is; the error is marked with ErrMigration.
func (m *Manager) Ensure(ctx context.Context) (Report, error) {
	var report Report

	tx, err := m.db.BeginTxx(ctx, nil)
	if err != nil {
		return Report{}, migrationError(err, "beginning migration")
	}
	defer func() { _ = tx.Rollback() }()

	for _, t := range m.tables {
		if err := m.ensureTable(ctx, tx, t, &report); err != nil {
			return Report{}, migrationError(err, "ensuring table "+t.Name)
		}
	}

	for _, f := range m.folds {
		if err := m.fold(ctx, tx, f, &report); err != nil {
			return Report{}, migrationError(err, "folding legacy table "+f.From)
		}
	}

	if err := tx.Commit(); err != nil {
		return Report{}, migrationError(err, "committing migration")
	}

	for _, a := range report.Actions {
		logger.Info("Schema change applied", logger.Fields{
			"table":    a.Table,
			"kind":     string(a.Kind),
			"detail":   a.Detail,
			"copied":   a.Copied,
			"excluded": a.Excluded,
		})
	}
	return report, nil
}

func migrationError(err error, msg string) error {
	return errors.Mark(errors.Wrap(err, msg), ErrMigration)
}

type columnInfo struct {
	CID     int            `db:"cid"`
	Name    string         `db:"name"`
	Type    string         `db:"type"`
	NotNull int            `db:"notnull"`
	Default sql.NullString `db:"dflt_value"`
	PK      int            `db:"pk"`
}

func tableExists(ctx context.Context, tx *sqlx.Tx, name string) (bool, error) {
	var n int
	err := tx.GetContext(ctx, &n, `SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, name)
	if err != nil {
		return false, errors.Wrapf(err, "looking up table %s", name)
	}
	return n > 0, nil
}

func tableInfo(ctx context.Context, tx *sqlx.Tx, name string) ([]columnInfo, error) {
	var cols []columnInfo
	if err := tx.SelectContext(ctx, &cols, fmt.Sprintf("PRAGMA table_info(%s)", name)); err != nil {
		return nil, errors.Wrapf(err, "reading columns of %s", name)
	}
	return cols, nil
}

func (m *Manager) ensureTable(ctx context.Context, tx *sqlx.Tx, t Table, report *Report) error {
	exists, err := tableExists(ctx, tx, t.Name)
	if err != nil {
		return err
	}
	if !exists {
		if _, err := tx.ExecContext(ctx, t.CreateSQL(t.Name)); err != nil {
			return errors.Wrap(err, "creating table")
		}
		report.add(Action{Table: t.Name, Kind: ActionCreate})
		return nil
	}

	live, err := tableInfo(ctx, tx, t.Name)
	if err != nil {
		return err
	}

	if reason := structuralChange(t, live); reason != "" {
		copied, excluded, err := rebuild(ctx, tx, t)
		if err != nil {
			return err
		}
		report.add(Action{Table: t.Name, Kind: ActionRebuild, Detail: reason, Copied: copied, Excluded: excluded})
		return nil
	}

	present := make(map[string]bool, len(live))
	for _, c := range live {
		present[strings.ToLower(c.Name)] = true
	}
	for _, c := range t.Columns {
		if present[strings.ToLower(c.Name)] {
			continue
		}
		stmt := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s", t.Name, c.definition(false))
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return errors.Wrapf(err, "adding column %s", c.Name)
		}
		report.add(Action{Table: t.Name, Kind: ActionAddColumn, Detail: c.Name})
	}
	return nil
}

// structuralChange returns why the live table needs a rebuild, or ""
func structuralChange(t Table, live []columnInfo) string {
	pk := make([]string, 0, len(t.PrimaryKey))
	byPos := make(map[int]string)
	for _, c := range live {
		if c.PK > 0 {
			byPos[c.PK] = strings.ToLower(c.Name)
		}
	}
	for i := 1; i <= len(byPos); i++ {
		pk = append(pk, byPos[i])
	}
	want := make([]string, len(t.PrimaryKey))
	for i, name := range t.PrimaryKey {
		want[i] = strings.ToLower(name)
	}
	if strings.Join(pk, ",") != strings.Join(want, ",") {
		return fmt.Sprintf("primary key (%s) -> (%s)", strings.Join(pk, ", "), strings.Join(want, ", "))
	}

	for _, c := range live {
		declared, ok := t.Column(c.Name)
		if !ok || !declared.Identity {
			continue
		}
		if !strings.EqualFold(strings.TrimSpace(c.Type), declared.Type) {
			return fmt.Sprintf("%s type %s -> %s", declared.Name, c.Type, declared.Type)
		}
	}
	return ""
}

// rebuild replaces t with a fresh table: create new, copy, drop old, rename new
func rebuild(ctx context.Context, tx *sqlx.Tx, t Table) (int, int, error) {
	tmp := t.Name + "_new"
	if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+tmp); err != nil {
		return 0, 0, errors.Wrap(err, "clearing rebuild table")
	}
	if _, err := tx.ExecContext(ctx, t.CreateSQL(tmp)); err != nil {
		return 0, 0, errors.Wrap(err, "creating rebuild table")
	}

	live, err := tableInfo(ctx, tx, t.Name)
	if err != nil {
		return 0, 0, err
	}
	var pairs [][2]string
	for _, c := range live {
		if declared, ok := t.Column(c.Name); ok {
			pairs = append(pairs, [2]string{c.Name, declared.Name})
		}
	}

	copied, excluded, err := copyRows(ctx, tx, t.Name, tmp, t, pairs)
	if err != nil {
		return 0, 0, err
	}

	if _, err := tx.ExecContext(ctx, "DROP TABLE "+t.Name); err != nil {
		return 0, 0, errors.Wrap(err, "dropping old table")
	}
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("ALTER TABLE %s RENAME TO %s", tmp, t.Name)); err != nil {
		return 0, 0, errors.Wrap(err, "renaming rebuilt table")
	}
	return copied, excluded, nil
}

func (m *Manager) fold(ctx context.Context, tx *sqlx.Tx, f Fold, report *Report) error {
	exists, err := tableExists(ctx, tx, f.From)
	if err != nil || !exists {
		return err
	}

	live, err := tableInfo(ctx, tx, f.From)
	if err != nil {
		return err
	}
	present := make(map[string]string, len(live))
	for _, c := range live {
		present[strings.ToLower(c.Name)] = c.Name
	}
	var pairs [][2]string
	for _, p := range f.Columns {
		if name, ok := present[strings.ToLower(p[0])]; ok {
			pairs = append(pairs, [2]string{name, p[1]})
		}
	}

	var copied, excluded int
	if f.Flag != "" {
		copied, excluded, err = flagRows(ctx, tx, f, pairs)
	} else {
		copied, excluded, err = copyRows(ctx, tx, f.From, f.Into.Name, f.Into, pairs)
	}
	if err != nil {
		return err
	}
	report.add(Action{Table: f.Into.Name, Kind: ActionFold, Detail: "from " + f.From, Copied: copied, Excluded: excluded})

	if _, err := tx.ExecContext(ctx, "DROP TABLE "+f.From); err != nil {
		return errors.Wrap(err, "dropping legacy table")
	}
	report.add(Action{Table: f.From, Kind: ActionDrop})
	return nil
}

// copyRows inserts every row of from into into, mapping columns by pairs.
// Rows whose identity columns cannot be coerced are skipped and logged.
func copyRows(ctx context.Context, tx *sqlx.Tx, from, into string, t Table, pairs [][2]string) (int, int, error) {
	if len(pairs) == 0 {
		return 0, 0, nil
	}
	rows, err := readRows(ctx, tx, from, pairs)
	if err != nil {
		return 0, 0, err
	}

	targets := make([]string, len(pairs))
	for i, p := range pairs {
		targets[i] = p[1]
	}
	stmt := fmt.Sprintf("INSERT OR IGNORE INTO %s (%s) VALUES (%s)",
		into, strings.Join(targets, ", "), strings.TrimSuffix(strings.Repeat("?, ", len(pairs)), ", "))

	var copied, excluded int
	for _, row := range rows {
		values, ok := coerceRow(t, pairs, row)
		if !ok {
			excluded++
			logger.Warn("Row excluded: identity is not a non-negative integer", logger.Fields{
				"from": from,
				"into": t.Name,
				"row":  describe(pairs, row),
			})
			continue
		}
		res, err := tx.ExecContext(ctx, stmt, values...)
		if err != nil {
			return 0, 0, errors.Wrapf(err, "copying row into %s", into)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, 0, errors.Wrapf(err, "counting rows copied into %s", into)
		}
		if n == 0 {
			// IGNORE skipped it: a NOT NULL column is empty or the key repeats
			excluded++
			logger.Warn("Row excluded: violates a constraint of the target table", logger.Fields{
				"from": from,
				"into": t.Name,
				"row":  describe(pairs, row),
			})
			continue
		}
		copied++
	}
	return copied, excluded, nil
}

// flagRows sets f.Flag on target rows keyed by the mapped columns
func flagRows(ctx context.Context, tx *sqlx.Tx, f Fold, pairs [][2]string) (int, int, error) {
	if len(pairs) == 0 {
		return 0, 0, nil
	}
	rows, err := readRows(ctx, tx, f.From, pairs)
	if err != nil {
		return 0, 0, err
	}

	conds := make([]string, len(pairs))
	for i, p := range pairs {
		conds[i] = p[1] + " = ?"
	}
	stmt := fmt.Sprintf("UPDATE %s SET %s = 1 WHERE %s", f.Into.Name, f.Flag, strings.Join(conds, " AND "))

	var flagged, excluded int
	for _, row := range rows {
		values, ok := coerceRow(f.Into, pairs, row)
		if !ok {
			excluded++
			logger.Warn("Row excluded: identity is not a non-negative integer", logger.Fields{
				"from": f.From,
				"into": f.Into.Name,
				"row":  describe(pairs, row),
			})
			continue
		}
		res, err := tx.ExecContext(ctx, stmt, values...)
		if err != nil {
			return 0, 0, errors.Wrapf(err, "flagging %s", f.Flag)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			flagged++
		}
	}
	return flagged, excluded, nil
}

func readRows(ctx context.Context, tx *sqlx.Tx, from string, pairs [][2]string) ([][]interface{}, error) {
	sources := make([]string, len(pairs))
	for i, p := range pairs {
		sources[i] = `"` + p[0] + `"`
	}
	rs, err := tx.QueryxContext(ctx, fmt.Sprintf("SELECT %s FROM %s", strings.Join(sources, ", "), from))
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", from)
	}
	defer rs.Close()

	var rows [][]interface{}
	for rs.Next() {
		row, err := rs.SliceScan()
		if err != nil {
			return nil, errors.Wrapf(err, "scanning %s", from)
		}
		rows = append(rows, row)
	}
	return rows, errors.Wrapf(rs.Err(), "iterating %s", from)
}

func coerceRow(t Table, pairs [][2]string, row []interface{}) ([]interface{}, bool) {
	values := make([]interface{}, len(row))
	for i, v := range row {
		if b, ok := v.([]byte); ok {
			v = string(b)
		}
		if col, ok := t.Column(pairs[i][1]); ok && col.Identity {
			id, ok := CoerceIdentity(v)
			if !ok {
				return nil, false
			}
			v = id
		}
		values[i] = v
	}
	return values, true
}

// CoerceIdentity converts a stored identity to a non-negative integer
func CoerceIdentity(v interface{}) (int64, bool) {
	switch x := v.(type) {
	case int64:
		if x < 0 {
			return 0, false
		}
		return x, true
	case int:
		return CoerceIdentity(int64(x))
	case float64:
		if x < 0 || x != math.Trunc(x) || x > math.MaxInt64 {
			return 0, false
		}
		return int64(x), true
	case []byte:
		return CoerceIdentity(string(x))
	case string:
		s := strings.TrimSpace(x)
		if id, err := strconv.ParseInt(s, 10, 64); err == nil {
			return CoerceIdentity(id)
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return CoerceIdentity(f)
		}
	}
	return 0, false
}

func describe(pairs [][2]string, row []interface{}) string {
	parts := make([]string, len(pairs))
	for i, p := range pairs {
		v := row[i]
		if b, ok := v.([]byte); ok {
			v = string(b)
		}
		parts[i] = fmt.Sprintf("%s=%v", p[0], v)
	}
	return strings.Join(parts, " ")
}
