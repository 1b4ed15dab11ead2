// Package repository provides a generic gorm-backed store.
package repository

import (
	"context"

	"gorm.io/gorm"
)

// QueryOption customizes a query statement.
type QueryOption func(*gorm.DB) *gorm.DB

// OrderBy sorts results by the given column expression.
func OrderBy(expr string) QueryOption {
	return func(db *gorm.DB) *gorm.DB {
		return db.Order(expr)
	}
}

// Limit caps the number of rows returned.
func Limit(n int) QueryOption {
	return func(db *gorm.DB) *gorm.DB {
		return db.Limit(n)
	}
}

// Repository is a typed CRUD store over a gorm table.
type Repository[T any] interface {
	WithTrx(tx *gorm.DB) Repository[T]
	Find(ctx context.Context, query *T, opts ...QueryOption) ([]*T, error)
	FindOne(ctx context.Context, query *T, opts ...QueryOption) (*T, error)
	Create(ctx context.Context, resource *T) error
	Save(ctx context.Context, resource *T) error
	Delete(ctx context.Context, query *T) error
	Count(ctx context.Context, query *T) (int64, error)
}
