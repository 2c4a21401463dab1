package repository

import (
	"context"
	"time"

	"github.com/Netcracker/qubership-data-contract-validator/db"
	"github.com/Netcracker/qubership-data-contract-validator/entity"
	"github.com/go-pg/pg/v10"
	"github.com/go-pg/pg/v10/orm"
)

type RunRepository interface {
	Init(ctx context.Context) error
	SaveRun(ctx context.Context, ent entity.ValidationRunEntity) error
	GetRun(ctx context.Context, id string) (*entity.ValidationRunEntity, error)
	ListRuns(ctx context.Context, limit int, offset int) ([]entity.ValidationRunEntity, error)
	DeleteRunsBefore(ctx context.Context, before time.Time) (int, error)
}

func NewRunRepository(cp db.ConnectionProvider) RunRepository {
	return &runRepositoryImpl{cp: cp}
}

type runRepositoryImpl struct {
	cp db.ConnectionProvider
}

func (r runRepositoryImpl) Init(ctx context.Context) error {
	return r.cp.GetConnection().ModelContext(ctx, (*entity.ValidationRunEntity)(nil)).
		CreateTable(&orm.CreateTableOptions{IfNotExists: true})
}

// SaveRun inserts the run or replaces the stored copy when suggestions were added later.
func (r runRepositoryImpl) SaveRun(ctx context.Context, ent entity.ValidationRunEntity) error {
	_, err := r.cp.GetConnection().ModelContext(ctx, &ent).
		OnConflict("(id) DO UPDATE").
		Set("run = EXCLUDED.run").
		Insert()
	return err
}

func (r runRepositoryImpl) GetRun(ctx context.Context, id string) (*entity.ValidationRunEntity, error) {
	result := new(entity.ValidationRunEntity)
	err := r.cp.GetConnection().ModelContext(ctx, result).
		Where("id = ?", id).
		Select()
	if err != nil {
		if err == pg.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return result, nil
}

func (r runRepositoryImpl) ListRuns(ctx context.Context, limit int, offset int) ([]entity.ValidationRunEntity, error) {
	var result []entity.ValidationRunEntity
	err := r.cp.GetConnection().ModelContext(ctx, &result).
		ExcludeColumn("run").
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Select()
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (r runRepositoryImpl) DeleteRunsBefore(ctx context.Context, before time.Time) (int, error) {
	res, err := r.cp.GetConnection().ModelContext(ctx, (*entity.ValidationRunEntity)(nil)).
		Where("created_at < ?", before).
		Delete()
	if err != nil {
		return 0, err
	}
	return res.RowsAffected(), nil
}
