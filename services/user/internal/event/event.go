// Package event события User Service. Сервис публикует user.registered и
// password_reset.requested и ни на что не подписан.
package event

// ServiceName имя сервиса: producer в конверте и префикс очередей
const ServiceName = "user"
