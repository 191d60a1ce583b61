// Package models contains GORM persistence models. Domain entities stay free of
// ORM tags; each model converts with ToDomain and From<Entity>.
package models

// All returns every model managed by AutoMigrate
func All() []any {
	return []any{
		&ProductModel{},
		&CartLineModel{},
	}
}
