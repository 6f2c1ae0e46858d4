// Package event имя сервиса на шине; booking только публикует события.
package event

// ServiceName имя сервиса в конвертах и именах очередей
const ServiceName = "booking"
