package datastore

import (
	"database/sql"
	"database/sql/driver"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

type SQLiteDatastore struct {
	db     *sql.DB
	config *Config
}

func NewSQLiteDatastore(config *Config) (*SQLiteDatastore, error) {
	db, err := sql.Open("sqlite3", config.DBName)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// one connection, so that :memory: database is shared by every query
	db.SetMaxOpenConns(1)

	// Create table if it doesn't exist.
	columnDefs := make([]string, 0, len(config.ColumnConfig))
	for name, typ := range config.ColumnConfig {
		columnDefs = append(columnDefs, fmt.Sprintf("%s %s", name, typ))
	}
	query := fmt.Sprintf(
		"CREATE TABLE IF NOT EXISTS %s (%s)",
		config.TableName,
		strings.Join(columnDefs, ", "),
	)
	if _, err = db.Exec(query); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table %s: %w", config.TableName, err)
	}
	return &SQLiteDatastore{
		db:     db,
		config: config,
	}, nil
}

// column base type, "TEXT PRIMARY KEY NOT NULL" -> "text"
func columnType(def string) string {
	fields := strings.Fields(strings.ToLower(def))
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

func (ds *SQLiteDatastore) Close() error {
	return ds.db.Close()
}

func (ds *SQLiteDatastore) Get(key string, columns []string) (map[string]interface{}, error) {
	// Prepare a slice to hold the values.
	values := make([]interface{}, len(columns))
	for i, column := range columns {
		// We use the type information stored in the Config to create a variable of the correct type.
		switch columnType(ds.config.ColumnConfig[column]) {
		case "text":
			values[i] = new(sql.NullString)
		case "int", "integer":
			// For simplicity, we use int64 for all integers.
			values[i] = new(sql.NullInt64)
		case "float", "real":
			values[i] = new(sql.NullFloat64)
		default:
			// If the column type is not supported, we return an error.
			return nil, fmt.Errorf("unsupported column %s type: %s", column, ds.config.ColumnConfig[column])
		}
	}

	row := ds.db.QueryRow(
		fmt.Sprintf("SELECT %s FROM %s WHERE %s = ?",
			strings.Join(columns, ", "), ds.config.TableName, ds.config.PrimaryKeyColumnName),
		key,
	)
	// Scan the result into the values slice.
	if err := row.Scan(values...); err != nil {
		if err == sql.ErrNoRows {
			// There is no row with the given key.
			return nil, nil
		}
		return nil, err
	}

	// Prepare the result map and fill it with values, NULL column is skipped.
	result := make(map[string]interface{})
	for i, column := range columns {
		value, err := values[i].(driver.Valuer).Value()
		if err != nil {
			return nil, err
		}
		if value != nil {
			result[column] = value
		}
	}
	return result, nil
}

func (ds *SQLiteDatastore) Put(key string, values map[string]interface{}) error {
	columns := []string{ds.config.PrimaryKeyColumnName}
	placeholders := []string{"?"}
	args := []interface{}{key}
	for column, value := range values {
		if column == ds.config.PrimaryKeyColumnName {
			continue
		}
		columns = append(columns, column)
		placeholders = append(placeholders, "?")
		args = append(args, value)
	}
	query := fmt.Sprintf(
		"INSERT OR REPLACE INTO %s (%s) VALUES (%s)",
		ds.config.TableName,
		strings.Join(columns, ", "),
		strings.Join(placeholders, ", "),
	)
	_, err := ds.db.Exec(query, args...)
	return err
}

func (ds *SQLiteDatastore) Update(key string, values map[string]interface{}) error {
	if len(values) == 0 {
		return nil
	}
	sets := make([]string, 0, len(values))
	args := make([]interface{}, 0, len(values)+1)
	for column, value := range values {
		sets = append(sets, fmt.Sprintf("%s = ?", column))
		args = append(args, value)
	}
	args = append(args, key)
	query := fmt.Sprintf(
		"UPDATE %s SET %s WHERE %s = ?",
		ds.config.TableName,
		strings.Join(sets, ", "),
		ds.config.PrimaryKeyColumnName,
	)
	_, err := ds.db.Exec(query, args...)
	return err
}

func (ds *SQLiteDatastore) ListAll(columns []string) (map[string]map[string]interface{}, error) {
	selected := "*"
	if len(columns) > 0 {
		selected = strings.Join(append([]string{ds.config.PrimaryKeyColumnName}, columns...), ", ")
	}
	rows, err := ds.db.Query(fmt.Sprintf("SELECT %s FROM %s", selected, ds.config.TableName))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	results := make(map[string]map[string]interface{})
	for rows.Next() {
		columns := make([]interface{}, len(cols))
		columnPointers := make([]interface{}, len(cols))
		for i := range columns {
			columnPointers[i] = &columns[i]
		}

		if err := rows.Scan(columnPointers...); err != nil {
			return nil, err
		}

		m := make(map[string]interface{})
		for i, colName := range cols {
			val := *(columnPointers[i].(*interface{}))
			if b, ok := val.([]byte); ok {
				val = string(b)
			}
			if val != nil {
				m[colName] = val
			}
		}

		key, _ := m[ds.config.PrimaryKeyColumnName].(string)
		results[key] = m
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return results, nil
}
