package database

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"rentou/server/internal/models"
)

var ErrNotFound = errors.New("record not found")

// Store is the persistence surface used by the HTTP handlers.
type Store interface {
	Ping(ctx context.Context) error

	ListImoveis(ctx context.Context, filter models.ImovelFilter) ([]models.Imovel, error)
	GetImovel(ctx context.Context, id int64) (*models.Imovel, error)
	SaveImovel(ctx context.Context, imovel *models.Imovel) error
	DeleteImovel(ctx context.Context, ownerID string, id int64) error
	ListImoveisSemCoordenadas(ctx context.Context, ownerID string) ([]models.Imovel, error)
	UpdateCoordenadas(ctx context.Context, id int64, lat, lon *float64) error
	ListOwnersSemCoordenadas(ctx context.Context) ([]string, error)

	ListCondominios(ctx context.Context, ownerID string) ([]models.Condominio, error)
	GetCondominio(ctx context.Context, id int64) (*models.Condominio, error)
	SaveCondominio(ctx context.Context, condominio *models.Condominio) error
	DeleteCondominio(ctx context.Context, ownerID string, id int64) error

	GetPerfil(ctx context.Context, uid string) (*models.Perfil, error)
	SavePerfil(ctx context.Context, perfil *models.Perfil) error

	ResumoFinanceiro(ctx context.Context, ownerID string) (models.ResumoFinanceiro, error)
}

type Database struct {
	db *gorm.DB
}

func NewDatabase(dbPath string) (*Database, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	return open(dbPath + "?_foreign_keys=on")
}

// NewTestDB opens a private in-memory database.
func NewTestDB() (*Database, error) {
	return open("file:" + uuid.NewString() + "?mode=memory&cache=shared")
}

func open(dsn string) (*Database, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// sqlite allows a single writer
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)

	return &Database{db: db}, nil
}

func (d *Database) Ping(ctx context.Context) error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (d *Database) Close() error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (d *Database) GetDB() *gorm.DB {
	return d.db
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
