package recordstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// TableModel records a created table and its primary key column.
type TableModel struct {
	Name      string `gorm:"primaryKey"`
	KeyColumn string
	Columns   string
}

func (TableModel) TableName() string { return "record_tables" }

// RowModel stores one record as JSON. RowKey is set only for tables with a
// primary key so the unique index turns keyed stores into upserts.
type RowModel struct {
	ID     uint    `gorm:"primaryKey"`
	Tbl    string  `gorm:"index;uniqueIndex:idx_tbl_row_key"`
	RowKey *string `gorm:"uniqueIndex:idx_tbl_row_key"`
	Data   string
}

func (RowModel) TableName() string { return "record_rows" }

// SQLiteStore implements Store on a local SQLite file through GORM.
type SQLiteStore struct {
	db     *gorm.DB
	logger *zap.Logger
}

// OpenSQLiteStore opens (or creates) the database at path and migrates
// the bookkeeping tables.
func OpenSQLiteStore(path string, debug bool, log *zap.Logger) (*SQLiteStore, error) {
	if log == nil {
		log = zap.NewNop()
	}
	logMode := logger.Silent
	if debug {
		logMode = logger.Info
	}
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logMode),
	})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	if err := db.AutoMigrate(&TableModel{}, &RowModel{}); err != nil {
		return nil, fmt.Errorf("migrate record store: %w", err)
	}

	return &SQLiteStore{db: db, logger: log}, nil
}

// Close releases the underlying connection pool.
func (s *SQLiteStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *SQLiteStore) Create(ctx context.Context, table string, example Record) error {
	sc := parseSchema(example)
	model := TableModel{
		Name:      table,
		KeyColumn: sc.key,
		Columns:   strings.Join(sc.columns, ","),
	}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&model).Error
	if err != nil {
		return fmt.Errorf("create table %s: %w", table, err)
	}
	return nil
}

func (s *SQLiteStore) Drop(ctx context.Context, table string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("tbl = ?", table).Delete(&RowModel{}).Error; err != nil {
			return err
		}
		return tx.Where("name = ?", table).Delete(&TableModel{}).Error
	})
}

func (s *SQLiteStore) Put(ctx context.Context, table string, records ...Record) error {
	if len(records) == 0 {
		return nil
	}

	sc, err := s.schema(ctx, table)
	if err != nil {
		return err
	}

	rows := make([]RowModel, 0, len(records))
	for _, rec := range records {
		data, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("encode record: %w", err)
		}
		row := RowModel{Tbl: table, Data: string(data)}
		if key, ok := sc.keyOf(rec); ok {
			row.RowKey = &key
		}
		rows = append(rows, row)
	}

	result := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "tbl"}, {Name: "row_key"}},
			DoUpdates: clause.AssignmentColumns([]string{"data"}),
		}).
		CreateInBatches(rows, 500)
	if result.Error != nil {
		return fmt.Errorf("store into %s: %w", table, result.Error)
	}

	s.logger.Debug("stored records", zap.String("table", table), zap.Int64("rows", result.RowsAffected))
	return nil
}

func (s *SQLiteStore) Select(ctx context.Context, table string, where Predicate) ([]Record, error) {
	if _, err := s.schema(ctx, table); err != nil {
		return nil, err
	}

	var rows []RowModel
	if err := s.db.WithContext(ctx).Where("tbl = ?", table).Order("id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("select from %s: %w", table, err)
	}

	var result []Record
	for _, row := range rows {
		var rec Record
		if err := json.Unmarshal([]byte(row.Data), &rec); err != nil {
			return nil, fmt.Errorf("decode row %d: %w", row.ID, err)
		}
		if where == nil || where.Match(rec) {
			result = append(result, rec)
		}
	}
	if len(result) == 0 {
		return nil, ErrNoData
	}
	return result, nil
}

func (s *SQLiteStore) All(ctx context.Context, table string) ([]Record, error) {
	return s.Select(ctx, table, nil)
}

func (s *SQLiteStore) schema(ctx context.Context, table string) (schema, error) {
	var model TableModel
	err := s.db.WithContext(ctx).Where("name = ?", table).First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return schema{}, fmt.Errorf("%w: %s", ErrNoTable, table)
	}
	if err != nil {
		return schema{}, err
	}
	var cols []string
	if model.Columns != "" {
		cols = strings.Split(model.Columns, ",")
	}
	return schema{columns: cols, key: model.KeyColumn}, nil
}
