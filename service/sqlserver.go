package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"datachat/config"
	"datachat/dataset"
	"datachat/logger"

	_ "github.com/microsoft/go-mssqldb"
)

var (
	ErrSQLServerDisabled = errors.New("SQL Server is not configured")
	ErrNotReadQuery      = errors.New("only SELECT or WITH queries can be imported")
)

// MaxImportRows caps how many rows a query may bring into a dataset.
const MaxImportRows = 5000

type SQLServerService struct {
	db  *sql.DB
	log logger.Logger
}

func NewSQLServerService(cfg config.SQLServerConfig, log logger.Logger) (*SQLServerService, error) {
	if !cfg.Enabled() {
		return nil, ErrSQLServerDisabled
	}

	db, err := sql.Open("sqlserver", buildConnectionString(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to open SQL Server connection: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		// Start anyway; the server may come up later.
		log.Warn("SQL", "failed to ping SQL Server during initialization", map[string]interface{}{
			"server": cfg.Server,
			"error":  err.Error(),
		})
	}

	return &SQLServerService{db: db, log: log}, nil
}

func buildConnectionString(cfg config.SQLServerConfig) string {
	connStr := fmt.Sprintf("server=%s;port=%s;database=%s",
		cfg.Server, cfg.Port, cfg.Database)

	if cfg.UserID != "" {
		connStr += fmt.Sprintf(";user id=%s;password=%s", cfg.UserID, cfg.Password)
	} else {
		connStr += ";trusted_connection=true"
	}

	if cfg.Encrypt {
		connStr += ";encrypt=true;TrustServerCertificate=true"
	} else {
		connStr += ";encrypt=false"
	}

	return connStr
}

func (s *SQLServerService) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// isReadQuery accepts statements that start with SELECT or WITH.
func isReadQuery(query string) bool {
	q := strings.ToUpper(strings.TrimSpace(query))
	return strings.HasPrefix(q, "SELECT") || strings.HasPrefix(q, "WITH")
}

// QueryDataset runs a read query and turns the result set into a dataset.
// NULLs become empty cells and every other value is formatted with %v.
func (s *SQLServerService) QueryDataset(ctx context.Context, query string) (*dataset.Dataset, error) {
	if s == nil || s.db == nil {
		return nil, ErrSQLServerDisabled
	}
	if !isReadQuery(query) {
		return nil, ErrNotReadQuery
	}

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("run query: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("read columns: %w", err)
	}

	var records [][]string
	for rows.Next() {
		values := make([]interface{}, len(columns))
		valuePtrs := make([]interface{}, len(columns))
		for i := range values {
			valuePtrs[i] = &values[i]
		}
		if err := rows.Scan(valuePtrs...); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		records = append(records, formatRow(values))
		if len(records) >= MaxImportRows {
			s.log.Warn("SQL", "query result truncated", map[string]interface{}{"limit": MaxImportRows})
			break
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}

	return dataset.FromRecords(columns, records)
}

func formatRow(values []interface{}) []string {
	record := make([]string, len(values))
	for i, val := range values {
		switch v := val.(type) {
		case nil:
			record[i] = ""
		case []byte:
			record[i] = string(v)
		case time.Time:
			record[i] = v.Format(time.RFC3339)
		default:
			record[i] = fmt.Sprintf("%v", v)
		}
	}
	return record
}

func (s *SQLServerService) IsConnected(ctx context.Context) bool {
	if s == nil || s.db == nil {
		return false
	}
	return s.db.PingContext(ctx) == nil
}
