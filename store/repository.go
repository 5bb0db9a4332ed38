package store

import (
	"context"

	"gorm.io/gorm"

	"github.com/SeanMkhabela/stackgen-backend/clog"
	"github.com/SeanMkhabela/stackgen-backend/connector"
	"github.com/SeanMkhabela/stackgen-backend/xerrors"
)

// Query 查询谓词：字段名 -> 期望值，各条件取 AND
type Query map[string]any

// Entity 可被 store 管理的实体。
// TableName 与 GORM 的表名约定共用，同时作为熔断器命名中的实体标识。
type Entity interface {
	TableName() string
}

// Repository 底层仓储协作方接口。
// kind 是实体表名（用于日志与错误上下文）；dest/record/model 为
// GORM 风格的目标对象，表名从对象推导。
// 实现应在记录不存在时返回 ErrNotFound。
type Repository interface {
	FindOne(ctx context.Context, kind string, q Query, dest any) error
	Find(ctx context.Context, kind string, q Query, dest any) error
	Create(ctx context.Context, kind string, record any) error
	UpdateOne(ctx context.Context, kind string, q Query, model any, updates map[string]any) (bool, error)
	DeleteOne(ctx context.Context, kind string, q Query, model any) (bool, error)
	Migrate(ctx context.Context, models ...any) error
}

// gormRepository 基于借用的 SQLite 连接器
type gormRepository struct {
	conn   connector.SQLiteConnector
	logger clog.Logger
}

// NewGormRepository 创建 GORM 仓储。
// logger 为 nil 时 SQL 日志静默。
func NewGormRepository(conn connector.SQLiteConnector, logger clog.Logger) Repository {
	return &gormRepository{conn: conn, logger: logger}
}

// db 返回绑定了 context 与日志适配器的会话
func (r *gormRepository) db(ctx context.Context) *gorm.DB {
	session := r.conn.GetClient().WithContext(ctx)
	if r.logger != nil {
		session = session.Session(&gorm.Session{Logger: newGormLogger(r.logger, false)})
	}
	return session
}

func (r *gormRepository) FindOne(ctx context.Context, kind string, q Query, dest any) error {
	err := r.db(ctx).Where(map[string]any(q)).First(dest).Error
	if err != nil {
		if xerrors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return xerrors.Wrapf(err, "store: findone %s failed", kind)
	}
	return nil
}

func (r *gormRepository) Find(ctx context.Context, kind string, q Query, dest any) error {
	err := r.db(ctx).Where(map[string]any(q)).Find(dest).Error
	if err != nil {
		return xerrors.Wrapf(err, "store: find %s failed", kind)
	}
	return nil
}

func (r *gormRepository) Create(ctx context.Context, kind string, record any) error {
	if err := r.db(ctx).Create(record).Error; err != nil {
		return xerrors.Wrapf(err, "store: create %s failed", kind)
	}
	return nil
}

func (r *gormRepository) UpdateOne(ctx context.Context, kind string, q Query, model any, updates map[string]any) (bool, error) {
	res := r.db(ctx).Model(model).Where(map[string]any(q)).Updates(updates)
	if res.Error != nil {
		return false, xerrors.Wrapf(res.Error, "store: updateone %s failed", kind)
	}
	return res.RowsAffected > 0, nil
}

func (r *gormRepository) DeleteOne(ctx context.Context, kind string, q Query, model any) (bool, error) {
	res := r.db(ctx).Where(map[string]any(q)).Delete(model)
	if res.Error != nil {
		return false, xerrors.Wrapf(res.Error, "store: deleteone %s failed", kind)
	}
	return res.RowsAffected > 0, nil
}

func (r *gormRepository) Migrate(ctx context.Context, models ...any) error {
	if err := r.conn.GetClient().WithContext(ctx).AutoMigrate(models...); err != nil {
		return xerrors.Wrap(err, "store: migration failed")
	}
	return nil
}
