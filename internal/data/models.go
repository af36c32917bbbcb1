package data

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/propsuite/property-management-backend/db"
)

var (
	ErrRecordNotFound          = errors.New("record not found")
	ErrMismatchNumRowsAffected = errors.New("mismatch number of rows affected")
	ErrMissingInput            = errors.New("missing input")
)

type Models struct {
	Tenants          *TenantModel
	ProvisioningLogs *ProvisioningLogModel
	TenantEvents     *TenantEventModel
	DBConnectionPool db.DBConnectionPool
}

func NewModels(dbConnectionPool db.DBConnectionPool) (*Models, error) {
	if dbConnectionPool == nil {
		return nil, errors.New("dbConnectionPool is required for NewModels")
	}
	return &Models{
		Tenants:          &TenantModel{dbConnectionPool: dbConnectionPool},
		ProvisioningLogs: &ProvisioningLogModel{dbConnectionPool: dbConnectionPool},
		TenantEvents:     &TenantEventModel{dbConnectionPool: dbConnectionPool},
		DBConnectionPool: dbConnectionPool,
	}, nil
}

// JSONMap is a map[string]any stored as a JSONB column.
type JSONMap map[string]any

// Value implements the driver.Valuer interface.
func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	jsonBytes, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("marshaling JSONMap: %w", err)
	}
	return jsonBytes, nil
}

// Scan implements the sql.Scanner interface.
func (m *JSONMap) Scan(src interface{}) error {
	if src == nil {
		*m = JSONMap{}
		return nil
	}

	var jsonBytes []byte
	switch v := src.(type) {
	case []byte:
		jsonBytes = v
	case string:
		jsonBytes = []byte(v)
	default:
		return fmt.Errorf("unexpected type %T for JSONMap", src)
	}

	if err := json.Unmarshal(jsonBytes, m); err != nil {
		return fmt.Errorf("unmarshaling JSONMap: %w", err)
	}
	return nil
}

var (
	_ driver.Valuer = (JSONMap)(nil)
	_ interface {
		Scan(src interface{}) error
	} = (*JSONMap)(nil)
)
