// Package contracts содержит контракты событий, которыми обмениваются сервисы.
// Контракты неизменяемы: новые поля только добавляются, несовместимые изменения = новая версия схемы.
// JSON имена полей в PascalCase, как их публикуют сервисы-владельцы.
package contracts

// Типы событий (имя топика / routing key)
const (
	TypeOrderCreated           = "order.created"
	TypeOrderUpdated           = "order.updated"
	TypeOrderDeleted           = "order.deleted"
	TypePaymentCompleted       = "payment.completed"
	TypeReviewCreated          = "review.created"
	TypeReviewUpdated          = "review.updated"
	TypeReviewStatusChanged    = "review.status_changed"
	TypeReviewDeleted          = "review.deleted"
	TypeBookingCreated         = "booking.created"
	TypeBookingUpdated         = "booking.updated"
	TypeBookingCancelled       = "booking.cancelled"
	TypeBookingDeleted         = "booking.deleted"
	TypeCartCheckedOut         = "cart.checked_out"
	TypeUserRegistered         = "user.registered"
	TypePasswordResetRequested = "password_reset.requested"
	TypeProductUpdated         = "product.updated"
	TypeProductDeleted         = "product.deleted"
	TypeEmailOutbound          = "email.outbound"
)

// AllTypes все известные типы событий
var AllTypes = []string{
	TypeOrderCreated, TypeOrderUpdated, TypeOrderDeleted,
	TypePaymentCompleted,
	TypeReviewCreated, TypeReviewUpdated, TypeReviewStatusChanged, TypeReviewDeleted,
	TypeBookingCreated, TypeBookingUpdated, TypeBookingCancelled, TypeBookingDeleted,
	TypeCartCheckedOut,
	TypeUserRegistered, TypePasswordResetRequested,
	TypeProductUpdated, TypeProductDeleted,
	TypeEmailOutbound,
}
