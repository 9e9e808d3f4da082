package datastore

import (
	"fmt"

	conf "github.com/devsapp/ripeness-uploader/pkg/config"
)

type DatastoreFactory struct{}

// NewTable open table by name with the column layout of table_meta
func (f *DatastoreFactory) NewTable(dbType DatastoreType, tableName string) (Datastore, error) {
	switch dbType {
	case SQLite:
		return f.New(NewSQLiteConfig(tableName))
	case TableStore:
		return f.New(NewOtsConfig(tableName))
	default:
		return nil, fmt.Errorf("not support db type=%s", dbType)
	}
}

func (f *DatastoreFactory) New(cfg *Config) (Datastore, error) {
	if len(cfg.ColumnConfig) == 0 {
		return nil, fmt.Errorf("table %s has no column config", cfg.TableName)
	}
	switch cfg.Type {
	case SQLite:
		return NewSQLiteDatastore(cfg)
	case TableStore:
		return NewOtsDatastore(cfg)
	default:
		return nil, fmt.Errorf("not support db type=%s", cfg.Type)
	}
}

func NewSQLiteConfig(tableName string) *Config {
	config := &Config{
		Type:      SQLite,
		DBName:    conf.ConfigGlobal.DbSqlite,
		TableName: tableName,
	}
	switch tableName {
	case KAttemptTableName:
		config.ColumnConfig = map[string]string{
			KAttemptId:         "TEXT PRIMARY KEY NOT NULL",
			KAttemptSession:    "TEXT",
			KAttemptFile:       "TEXT",
			KAttemptModel:      "TEXT",
			KAttemptEndpoint:   "TEXT",
			KAttemptOutcome:    "TEXT",
			KAttemptRawLabel:   "TEXT",
			KAttemptLabel:      "TEXT",
			KAttemptConfidence: "FLOAT",
			KAttemptError:      "TEXT",
			KAttemptCreateTime: "INT",
			KAttemptFinishTime: "INT",
		}
		config.PrimaryKeyColumnName = KAttemptId
	}
	return config
}

func NewOtsConfig(tableName string) *Config {
	config := &Config{
		Type:        TableStore,
		TableName:   tableName,
		TimeToAlive: conf.ConfigGlobal.OtsTimeToAlive,
		MaxVersion:  conf.ConfigGlobal.OtsMaxVersion,
	}
	switch tableName {
	case KAttemptTableName:
		config.ColumnConfig = map[string]string{
			KAttemptSession:    "TEXT",
			KAttemptFile:       "TEXT",
			KAttemptModel:      "TEXT",
			KAttemptEndpoint:   "TEXT",
			KAttemptOutcome:    "TEXT",
			KAttemptRawLabel:   "TEXT",
			KAttemptLabel:      "TEXT",
			KAttemptConfidence: "FLOAT",
			KAttemptError:      "TEXT",
			KAttemptCreateTime: "INT",
			KAttemptFinishTime: "INT",
		}
		config.PrimaryKeyColumnName = KAttemptId
	}
	return config
}
