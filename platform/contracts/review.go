package contracts

import "time"

// Статусы отзыва
const (
	ReviewStatusPublished = "Published"
	ReviewStatusFlagged   = "Flagged"
	ReviewStatusHidden    = "Hidden"
	ReviewStatusDeleted   = "Deleted"
)

// reviewKey события отзыва упорядочены по продукту (агрегат рейтинга);
// отзывы на заказ без продукта упорядочены по самому отзыву
func reviewKey(productID, reviewID string) string {
	if productID != "" {
		return productID
	}
	return reviewID
}

// ReviewCreated отзыв создан
type ReviewCreated struct {
	ReviewID  string    `json:"ReviewId" validate:"required"`
	ProductID string    `json:"ProductId,omitempty"`
	OrderID   string    `json:"OrderId,omitempty"`
	UserID    string    `json:"UserId" validate:"required"`
	Rating    int       `json:"Rating" validate:"min=1,max=5"`
	Status    string    `json:"Status,omitempty" validate:"omitempty,oneof=Published Flagged Hidden Deleted"`
	CreatedAt time.Time `json:"CreatedAt"`
}

func (ReviewCreated) EventType() string      { return TypeReviewCreated }
func (e ReviewCreated) PartitionKey() string { return reviewKey(e.ProductID, e.ReviewID) }

// ReviewUpdated изменена оценка отзыва
type ReviewUpdated struct {
	ReviewID  string    `json:"ReviewId" validate:"required"`
	ProductID string    `json:"ProductId,omitempty"`
	OldRating int       `json:"OldRating" validate:"min=1,max=5"`
	NewRating int       `json:"NewRating" validate:"min=1,max=5"`
	UpdatedAt time.Time `json:"UpdatedAt"`
}

func (ReviewUpdated) EventType() string      { return TypeReviewUpdated }
func (e ReviewUpdated) PartitionKey() string { return reviewKey(e.ProductID, e.ReviewID) }

// ReviewStatusChanged результат модерации
type ReviewStatusChanged struct {
	ReviewID  string    `json:"ReviewId" validate:"required"`
	ProductID string    `json:"ProductId,omitempty"`
	OrderID   string    `json:"OrderId,omitempty"`
	Rating    int       `json:"Rating" validate:"min=1,max=5"`
	OldStatus string    `json:"OldStatus" validate:"required,oneof=Published Flagged Hidden Deleted"`
	NewStatus string    `json:"NewStatus" validate:"required,oneof=Published Flagged Hidden Deleted"`
	ChangedAt time.Time `json:"ChangedAt"`
}

func (ReviewStatusChanged) EventType() string      { return TypeReviewStatusChanged }
func (e ReviewStatusChanged) PartitionKey() string { return reviewKey(e.ProductID, e.ReviewID) }

// ReviewDeleted отзыв удалён (мягко или физически)
type ReviewDeleted struct {
	ReviewID  string    `json:"ReviewId" validate:"required"`
	ProductID string    `json:"ProductId,omitempty"`
	OrderID   string    `json:"OrderId,omitempty"`
	Rating    int       `json:"Rating" validate:"min=1,max=5"`
	DeletedAt time.Time `json:"DeletedAt"`
}

func (ReviewDeleted) EventType() string      { return TypeReviewDeleted }
func (e ReviewDeleted) PartitionKey() string { return reviewKey(e.ProductID, e.ReviewID) }
