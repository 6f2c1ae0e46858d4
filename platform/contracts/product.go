package contracts

import "time"

// ProductUpdated текущее состояние продукта после изменения.
// Несёт абсолютные значения и Version: потребители применяют только не более старые версии.
type ProductUpdated struct {
	ProductID   string    `json:"ProductId" validate:"required"`
	Name        string    `json:"Name"`
	Price       float64   `json:"Price" validate:"gte=0"`
	IsAvailable bool      `json:"IsAvailable"`
	Version     int64     `json:"Version" validate:"gt=0"`
	UpdatedAt   time.Time `json:"UpdatedAt"`
}

func (ProductUpdated) EventType() string      { return TypeProductUpdated }
func (e ProductUpdated) PartitionKey() string { return e.ProductID }

// ProductDeleted продукт снят с продажи
type ProductDeleted struct {
	ProductID string    `json:"ProductId" validate:"required"`
	Version   int64     `json:"Version" validate:"gt=0"`
	DeletedAt time.Time `json:"DeletedAt"`
}

func (ProductDeleted) EventType() string      { return TypeProductDeleted }
func (e ProductDeleted) PartitionKey() string { return e.ProductID }
