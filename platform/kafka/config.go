package kafka

// Config содержит конфигурацию подключения к Kafka.
// Значения читаются из окружения через LoadEnv; дефолт брокеров зависит от среды:
//   - локальная разработка (go run): localhost:19092
//   - Docker: kafka:9092
type Config struct {
	// Brokers список брокеров через запятую: "broker1:9092,broker2:9092"
	Brokers []string `env:"KAFKA_BROKERS" envSeparator:","`
	// ClientID идентификатор клиента в логах брокера; пустой = имя сервиса
	ClientID string `env:"KAFKA_CLIENT_ID"`
	// Partitions число партиций для создаваемых топиков событий.
	// Ограничивает сверху число конкурирующих воркеров одной очереди.
	Partitions int `env:"KAFKA_TOPIC_PARTITIONS" envDefault:"6"`
	// ReplicationFactor фактор репликации создаваемых топиков
	ReplicationFactor int `env:"KAFKA_REPLICATION_FACTOR" envDefault:"1"`
	// AutoCreateTopics создавать топики событий и DLQ при подписке
	AutoCreateTopics bool `env:"KAFKA_AUTO_CREATE_TOPICS" envDefault:"true"`
}

// DefaultConfig возвращает конфигурацию для окружения (local/docker) до чтения переменных
func DefaultConfig(appEnv string) Config {
	brokers := []string{"localhost:19092"}
	if appEnv == "docker" {
		brokers = []string{"kafka:9092"}
	}
	return Config{
		Brokers:           brokers,
		Partitions:        6,
		ReplicationFactor: 1,
		AutoCreateTopics:  true,
	}
}
