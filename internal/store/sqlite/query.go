package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/sakif/easychef/internal/apperror"
	"github.com/sakif/easychef/internal/model"
	"github.com/sakif/easychef/internal/store"
)

// nowExpr is the database clock as an RFC 3339 UTC timestamp.
const nowExpr = `strftime('%Y-%m-%dT%H:%M:%fZ', 'now')`

type column struct {
	name string
	json bool // stored as JSON text, returned as a raw JSON value
}

// table describes a collection exposed through Select/Update.
// Columns are whitelisted so no caller-supplied name reaches SQL unchecked.
type table struct {
	name    string
	owner   string // column holding the owning user's id
	columns []column
}

var tables = map[string]*table{
	model.ProfilesCollection: {
		name:  "user_profiles",
		owner: model.FieldUserID,
		columns: []column{
			{name: model.FieldUserID},
			{name: model.FieldUserName},
			{name: model.FieldPantry, json: true},
			{name: model.FieldDiet},
			{name: model.FieldCuisines, json: true},
			{name: model.FieldUpdatedDate},
		},
	},
}

func lookupTable(collection string) (*table, error) {
	t, ok := tables[collection]
	if !ok {
		return nil, apperror.NotFound("collection", collection)
	}
	return t, nil
}

func (t *table) column(name string) (column, bool) {
	for _, c := range t.columns {
		if c.name == name {
			return c, true
		}
	}
	return column{}, false
}

// where builds the WHERE clause from filters plus the owner restriction.
func (t *table) where(filters []store.Filter, sess *store.Session) (string, []any, error) {
	conds := []string{t.owner + " = ?"}
	args := []any{sess.UserID.String()}

	for _, f := range filters {
		if _, ok := t.column(f.Column); !ok {
			return "", nil, apperror.ValidationFailed(f.Column,
				fmt.Sprintf("column %s does not exist on %s", f.Column, t.name))
		}
		conds = append(conds, f.Column+" = ?")
		args = append(args, f.Value)
	}

	return " WHERE " + strings.Join(conds, " AND "), args, nil
}

// Select returns the caller's rows of collection matching filters, each
// encoded as a JSON object keyed by column name.
func (db *DB) Select(ctx context.Context, collection string, filters ...store.Filter) ([]json.RawMessage, error) {
	t, err := lookupTable(collection)
	if err != nil {
		return nil, fmt.Errorf("sqlite: select: %w", err)
	}

	sess, err := db.activeSession(ctx)
	if err != nil {
		return nil, fmt.Errorf("sqlite: select %s: %w", collection, err)
	}

	where, args, err := t.where(filters, sess)
	if err != nil {
		return nil, fmt.Errorf("sqlite: select %s: %w", collection, err)
	}

	names := make([]string, len(t.columns))
	for i, c := range t.columns {
		names[i] = c.name
	}

	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+strings.Join(names, ", ")+` FROM `+t.name+where, args...)
	if err != nil {
		return nil, apperror.Transport("sqlite: select "+collection, err)
	}
	defer rows.Close()

	var records []json.RawMessage
	for rows.Next() {
		vals := make([]sql.NullString, len(t.columns))
		ptrs := make([]any, len(vals))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, apperror.Transport("sqlite: scanning "+collection, err)
		}

		rec := make(map[string]any, len(t.columns))
		for i, c := range t.columns {
			switch {
			case !vals[i].Valid:
				rec[c.name] = nil
			case c.json:
				rec[c.name] = json.RawMessage(vals[i].String)
			default:
				rec[c.name] = vals[i].String
			}
		}

		b, err := json.Marshal(rec)
		if err != nil {
			return nil, apperror.Decode("sqlite: encoding "+collection+" row", err)
		}
		records = append(records, b)
	}
	if err := rows.Err(); err != nil {
		return nil, apperror.Transport("sqlite: iterating "+collection, err)
	}

	return records, nil
}

// Update writes fields to the caller's rows of collection matching filters.
//
// The owner column cannot be written. JSON columns must not be set to null.
// Plain columns accept string, *string or nil.
func (db *DB) Update(ctx context.Context, collection string, fields store.Fields, filters ...store.Filter) error {
	t, err := lookupTable(collection)
	if err != nil {
		return fmt.Errorf("sqlite: update: %w", err)
	}
	if len(fields) == 0 {
		return apperror.ValidationFailed("fields", "update has no fields")
	}

	sess, err := db.activeSession(ctx)
	if err != nil {
		return fmt.Errorf("sqlite: update %s: %w", collection, err)
	}

	// Sorted so the generated statement is stable.
	cols := make([]string, 0, len(fields))
	for name := range fields {
		cols = append(cols, name)
	}
	sort.Strings(cols)

	sets := make([]string, 0, len(cols))
	var args []any
	for _, name := range cols {
		c, ok := t.column(name)
		if !ok {
			return apperror.ValidationFailed(name, fmt.Sprintf("column %s does not exist on %s", name, t.name))
		}
		if name == t.owner {
			return apperror.ValidationFailed(name, fmt.Sprintf("column %s cannot be changed", name))
		}

		v := fields[name]
		if store.IsServerTime(v) {
			sets = append(sets, name+" = "+nowExpr)
			continue
		}

		arg, err := encodeValue(c, v)
		if err != nil {
			return err
		}
		sets = append(sets, name+" = ?")
		args = append(args, arg)
	}

	where, whereArgs, err := t.where(filters, sess)
	if err != nil {
		return fmt.Errorf("sqlite: update %s: %w", collection, err)
	}
	args = append(args, whereArgs...)

	_, err = db.conn.ExecContext(ctx,
		`UPDATE `+t.name+` SET `+strings.Join(sets, ", ")+where, args...)
	if err != nil {
		return apperror.Transport("sqlite: update "+collection, err)
	}

	return nil
}

func encodeValue(c column, v any) (any, error) {
	if c.json {
		b, err := json.Marshal(v)
		if err != nil {
			return nil, apperror.ValidationFailed(c.name, fmt.Sprintf("encoding %s: %v", c.name, err))
		}
		if string(b) == "null" {
			return nil, apperror.ValidationFailed(c.name, fmt.Sprintf("column %s must not be null", c.name))
		}
		return string(b), nil
	}

	switch val := v.(type) {
	case nil:
		return nil, nil
	case string:
		return val, nil
	case *string:
		if val == nil {
			return nil, nil
		}
		return *val, nil
	default:
		return nil, apperror.ValidationFailed(c.name, fmt.Sprintf("column %s expects a string, got %T", c.name, v))
	}
}
