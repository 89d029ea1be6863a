package record

import (
	"context"
	"database/sql"
	"errors"
	"net/url"
	"strconv"
	"strings"
	"time"

	// Registers the "mysql" driver.
	_ "github.com/go-sql-driver/mysql"
	// Registers the "postgres" driver.
	_ "github.com/lib/pq"
	// Registers the "sqlite" driver.
	_ "modernc.org/sqlite"

	"github.com/ardnew/brace/pkg"
)

// Supported SQL driver names.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
)

// Drivers lists the SQL driver names accepted by [OpenSQL].
var Drivers = []string{DriverSQLite, DriverPostgres, DriverMySQL}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS records (
		entity VARCHAR(128) NOT NULL,
		id     VARCHAR(128) NOT NULL,
		PRIMARY KEY (entity, id))`,
	`CREATE TABLE IF NOT EXISTS fields (
		entity    VARCHAR(128) NOT NULL,
		id        VARCHAR(128) NOT NULL,
		name      VARCHAR(128) NOT NULL,
		kind      VARCHAR(16)  NOT NULL,
		value     TEXT,
		label     TEXT,
		formatted TEXT,
		PRIMARY KEY (entity, id, name))`,
	`CREATE TABLE IF NOT EXISTS relations (
		entity    VARCHAR(128) NOT NULL,
		id        VARCHAR(128) NOT NULL,
		relation  VARCHAR(128) NOT NULL,
		position  INTEGER      NOT NULL,
		to_entity VARCHAR(128) NOT NULL,
		to_id     VARCHAR(128) NOT NULL,
		PRIMARY KEY (entity, id, relation, position))`,
	`CREATE TABLE IF NOT EXISTS labels (
		entity VARCHAR(128) NOT NULL,
		field  VARCHAR(128) NOT NULL,
		value  INTEGER      NOT NULL,
		locale INTEGER      NOT NULL,
		label  TEXT         NOT NULL,
		PRIMARY KEY (entity, field, value, locale))`,
	`CREATE TABLE IF NOT EXISTS meta (
		name  VARCHAR(64) NOT NULL PRIMARY KEY,
		value TEXT        NOT NULL)`,
}

// Field kinds stored in the fields table.
const (
	kindString = "string"
	kindInt    = "int"
	kindFloat  = "float"
	kindBool   = "bool"
	kindTime   = "time"
	kindRef    = "ref"
	kindOption = "option"
)

// Keys of the meta table.
const (
	metaURL      = "url"
	metaUser     = "user"
	metaSettings = "settings"
)

// SQL is a [Source] backed by a relational database. Records are stored in a
// generic entity/attribute layout created by [SQL.Migrate]; actions are not
// supported.
type SQL struct {
	db     *sql.DB
	driver string
}

// OpenSQL opens and pings a database using one of the registered drivers.
func OpenSQL(ctx context.Context, driver, dsn string) (*SQL, error) {
	switch driver {
	case DriverSQLite, DriverPostgres, DriverMySQL:
	default:
		return nil, pkg.ErrDriver.Wrapf("%q", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, err
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()

		return nil, err
	}

	return &SQL{db: db, driver: driver}, nil
}

// Close closes the underlying database.
func (s *SQL) Close() error { return s.db.Close() }

// rebind rewrites "?" placeholders into the driver's positional form.
func (s *SQL) rebind(query string) string {
	if s.driver != DriverPostgres {
		return query
	}

	var (
		sb strings.Builder
		n  int
	)

	for _, r := range query {
		if r == '?' {
			n++

			sb.WriteByte('$')
			sb.WriteString(strconv.Itoa(n))

			continue
		}

		sb.WriteRune(r)
	}

	return sb.String()
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *SQL) exec(ctx context.Context, x execer, query string, args ...any) error {
	_, err := x.ExecContext(ctx, s.rebind(query), args...)

	return err
}

// Migrate creates the tables used by the source if they do not exist.
func (s *SQL) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if err := s.exec(ctx, s.db, stmt); err != nil {
			return err
		}
	}

	return nil
}

// Import writes the contents of a fixture in one transaction, replacing
// records, labels and metadata with the same keys.
func (s *SQL) Import(ctx context.Context, f *Fixture) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	defer func() {
		if err != nil {
			err = errors.Join(err, tx.Rollback())
		}
	}()

	meta := map[string]string{metaURL: f.URL, metaUser: f.User, metaSettings: f.Settings}
	for name, value := range meta {
		if value == "" {
			continue
		}

		if err = s.exec(ctx, tx, `DELETE FROM meta WHERE name = ?`, name); err != nil {
			return err
		}

		if err = s.exec(ctx, tx, `INSERT INTO meta (name, value) VALUES (?, ?)`, name, value); err != nil {
			return err
		}
	}

	for _, fr := range f.Records {
		if err = s.importRecord(ctx, tx, fr); err != nil {
			return err
		}
	}

	for _, l := range f.Labels {
		if err = s.exec(ctx, tx,
			`DELETE FROM labels WHERE entity = ? AND field = ? AND value = ? AND locale = ?`,
			l.Entity, l.Field, l.Value, l.Locale,
		); err != nil {
			return err
		}

		if err = s.exec(ctx, tx,
			`INSERT INTO labels (entity, field, value, locale, label) VALUES (?, ?, ?, ?, ?)`,
			l.Entity, l.Field, l.Value, l.Locale, l.Label,
		); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (s *SQL) importRecord(ctx context.Context, tx *sql.Tx, fr FixtureRecord) error {
	r, err := fr.Record()
	if err != nil {
		return err
	}

	rel, err := fr.Relations()
	if err != nil {
		return err
	}

	for _, table := range []string{"records", "fields", "relations"} {
		if err := s.exec(ctx, tx,
			`DELETE FROM `+table+` WHERE entity = ? AND id = ?`, r.Entity, r.ID,
		); err != nil {
			return err
		}
	}

	if err := s.exec(ctx, tx,
		`INSERT INTO records (entity, id) VALUES (?, ?)`, r.Entity, r.ID,
	); err != nil {
		return err
	}

	for name, v := range r.Fields {
		kind, value, label := encodeField(v)

		var formatted sql.NullString
		if f, ok := r.Formatted[name]; ok {
			formatted = sql.NullString{String: f, Valid: true}
		}

		if err := s.exec(ctx, tx,
			`INSERT INTO fields (entity, id, name, kind, value, label, formatted) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			r.Entity, r.ID, name, kind, value, label, formatted,
		); err != nil {
			return err
		}
	}

	for name, targets := range rel {
		for i, to := range targets {
			if err := s.exec(ctx, tx,
				`INSERT INTO relations (entity, id, relation, position, to_entity, to_id) VALUES (?, ?, ?, ?, ?, ?)`,
				r.Entity, r.ID, name, i, to.Entity, to.ID,
			); err != nil {
				return err
			}
		}
	}

	return nil
}

func encodeField(v any) (kind, value, label string) {
	switch v := v.(type) {
	case int64:
		return kindInt, strconv.FormatInt(v, 10), ""
	case float64:
		return kindFloat, strconv.FormatFloat(v, 'g', -1, 64), ""
	case bool:
		return kindBool, strconv.FormatBool(v), ""
	case time.Time:
		return kindTime, v.UTC().Format(time.RFC3339Nano), ""
	case Ref:
		return kindRef, v.Entity + "/" + v.ID, ""
	case Option:
		return kindOption, strconv.Itoa(v.Value), v.Label
	default:
		return kindString, FormatField(v), ""
	}
}

func decodeField(kind, value, label string) (any, error) {
	switch kind {
	case kindInt:
		return strconv.ParseInt(value, 10, 64)
	case kindFloat:
		return strconv.ParseFloat(value, 64)
	case kindBool:
		return strconv.ParseBool(value)
	case kindTime:
		return time.Parse(time.RFC3339Nano, value)
	case kindRef:
		return ParseRef(value)
	case kindOption:
		n, err := strconv.Atoi(value)

		return Option{Value: n, Label: label}, err
	default:
		return value, nil
	}
}

func (s *SQL) meta(ctx context.Context, name string) (string, error) {
	var value string

	err := s.db.QueryRowContext(ctx,
		s.rebind(`SELECT value FROM meta WHERE name = ?`), name,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}

	return value, err
}

func (s *SQL) load(ctx context.Context, ref Ref) (*Record, error) {
	var n int

	if err := s.db.QueryRowContext(ctx,
		s.rebind(`SELECT COUNT(*) FROM records WHERE entity = ? AND id = ?`), ref.Entity, ref.ID,
	).Scan(&n); err != nil {
		return nil, err
	}

	if n == 0 {
		return nil, pkg.ErrNotFound.Wrapf("record %s", ref)
	}

	rows, err := s.db.QueryContext(ctx,
		s.rebind(`SELECT name, kind, value, label, formatted FROM fields WHERE entity = ? AND id = ?`),
		ref.Entity, ref.ID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	r := New(ref)

	for rows.Next() {
		var (
			name, kind              string
			value, label, formatted sql.NullString
		)

		if err := rows.Scan(&name, &kind, &value, &label, &formatted); err != nil {
			return nil, err
		}

		v, err := decodeField(kind, value.String, label.String)
		if err != nil {
			return nil, pkg.ErrFixture.Wrapf("%s field %q: %w", ref, name, err)
		}

		r.Fields[name] = v

		if formatted.Valid {
			r.Formatted[name] = formatted.String
		}
	}

	return r, rows.Err()
}

// Retrieve implements [Source].
func (s *SQL) Retrieve(ctx context.Context, ref Ref, fields ...string) (*Record, error) {
	r, err := s.load(ctx, ref)
	if err != nil {
		return nil, err
	}

	return Project(r, fields...), nil
}

// RetrieveMultiple implements [Source]. Records are ordered by id.
func (s *SQL) RetrieveMultiple(ctx context.Context, q Query) ([]*Record, error) {
	rows, err := s.db.QueryContext(ctx,
		s.rebind(`SELECT id FROM records WHERE entity = ? ORDER BY id`), q.Entity,
	)
	if err != nil {
		return nil, err
	}

	var ids []string

	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			_ = rows.Close()

			return nil, err
		}

		ids = append(ids, id)
	}

	if err := errors.Join(rows.Err(), rows.Close()); err != nil {
		return nil, err
	}

	var out []*Record

	for _, id := range ids {
		r, err := s.load(ctx, Ref{Entity: q.Entity, ID: id})
		if err != nil {
			return nil, err
		}

		if q.Match(r) {
			out = append(out, q.Project(r))
		}
	}

	return out, nil
}

// Related implements [Source].
func (s *SQL) Related(ctx context.Context, ref Ref, relation string, fields ...string) ([]*Record, error) {
	rows, err := s.db.QueryContext(ctx,
		s.rebind(`SELECT to_entity, to_id FROM relations
			WHERE entity = ? AND id = ? AND relation = ? ORDER BY position`),
		ref.Entity, ref.ID, relation,
	)
	if err != nil {
		return nil, err
	}

	var refs []Ref

	for rows.Next() {
		var to Ref
		if err := rows.Scan(&to.Entity, &to.ID); err != nil {
			_ = rows.Close()

			return nil, err
		}

		refs = append(refs, to)
	}

	if err := errors.Join(rows.Err(), rows.Close()); err != nil {
		return nil, err
	}

	out := make([]*Record, 0, len(refs))

	for _, to := range refs {
		r, err := s.Retrieve(ctx, to, fields...)
		if errors.Is(err, pkg.ErrNotFound) {
			r, err = New(to), nil
		}

		if err != nil {
			return nil, err
		}

		out = append(out, r)
	}

	return out, nil
}

// Name implements [Source].
func (s *SQL) Name(ctx context.Context, ref Ref) (string, error) {
	r, err := s.Retrieve(ctx, ref, NameField)
	if err != nil {
		return "", err
	}

	if name := r.Display(NameField); name != "" {
		return name, nil
	}

	return ref.String(), nil
}

// URL implements [Source].
func (s *SQL) URL(ctx context.Context, ref Ref) (string, error) {
	base, err := s.meta(ctx, metaURL)
	if err != nil {
		return "", err
	}

	if base == "" {
		base = "brace://record"
	}

	return url.JoinPath(base, ref.Entity, ref.ID)
}

// OptionLabel implements [Source].
func (s *SQL) OptionLabel(ctx context.Context, entity, field string, value, locale int) (string, error) {
	for _, lc := range []int{locale, DefaultLocale} {
		var label string

		err := s.db.QueryRowContext(ctx,
			s.rebind(`SELECT label FROM labels WHERE entity = ? AND field = ? AND value = ? AND locale = ?`),
			entity, field, value, lc,
		).Scan(&label)

		switch {
		case err == nil:
			return label, nil
		case !errors.Is(err, sql.ErrNoRows):
			return "", err
		}
	}

	return strconv.Itoa(value), nil
}

func (s *SQL) metaRef(ctx context.Context, name string) (Ref, error) {
	v, err := s.meta(ctx, name)
	if err != nil {
		return Ref{}, err
	}

	if v == "" {
		return Ref{}, pkg.ErrNotFound.Wrapf("%s", name)
	}

	return ParseRef(v)
}

// WhoAmI implements [Source].
func (s *SQL) WhoAmI(ctx context.Context) (Ref, error) {
	return s.metaRef(ctx, metaUser)
}

// Language implements [Source].
func (s *SQL) Language(ctx context.Context, user Ref) (int, error) {
	r, err := s.Retrieve(ctx, user, LanguageField)
	if err != nil {
		return 0, err
	}

	if v, ok := r.Get(LanguageField); ok {
		if n, err := strconv.Atoi(FormatField(v)); err == nil {
			return n, nil
		}
	}

	return DefaultLocale, nil
}

// Settings implements [Source].
func (s *SQL) Settings(ctx context.Context) (*Record, error) {
	ref, err := s.metaRef(ctx, metaSettings)
	if err != nil {
		return nil, err
	}

	return s.Retrieve(ctx, ref)
}

// Call implements [Source]. Actions are not supported by SQL sources.
func (s *SQL) Call(_ context.Context, action string, _ *Ref, _ map[string]any) (*Record, error) {
	return nil, pkg.ErrUnsupported.Wrapf("action %q", action)
}

var _ Source = (*SQL)(nil)
