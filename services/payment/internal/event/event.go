// Package event события Payment Service. Сервис только публикует payment.completed
// и ни на что не подписан.
package event

// ServiceName имя сервиса: producer в конверте и префикс очередей
const ServiceName = "payment"
