// Command dlq-replay просмотр и повторная публикация записей DLQ шины событий.
//
//	dlq-replay list --queue notification-order-created-queue
//	dlq-replay replay --queue notification-order-created-queue --limit 10 --dry-run
//
// Настройки берутся из флагов, переменных окружения (EVENTBUS_TRANSPORT, KAFKA_BROKERS,
// RABBITMQ_URL, APP_ENV) или файла --config.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
