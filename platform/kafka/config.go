package kafka

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/segmentio/kafka-go"
)

// Config содержит общие параметры подключения к Kafka.
// Значения читаются из окружения через LoadEnv.
type Config struct {
	// Brokers список брокеров через запятую: "broker1:9092,broker2:9092".
	// Пустой список заполняется дефолтом окружения в WithDefaults.
	Brokers []string `env:"KAFKA_BROKERS" envSeparator:","`
	// ClientID попадает в метаданные соединения, удобно для поиска в логах брокера
	ClientID string `env:"KAFKA_CLIENT_ID" envDefault:"stockhold"`
	// WriteTimeout таймаут на запись батча
	WriteTimeout time.Duration `env:"KAFKA_WRITE_TIMEOUT" envDefault:"10s"`
	// MaxBytes верхняя граница размера fetch у reader
	MaxBytes int `env:"KAFKA_READER_MAX_BYTES" envDefault:"10000000"`
}

// LoadEnv заполняет cfg из переменных окружения (caarlos0/env теги)
func LoadEnv(cfg *Config) error {
	if err := env.Parse(cfg); err != nil {
		return fmt.Errorf("parse kafka env: %w", err)
	}
	return nil
}

// WithDefaults подставляет брокеров по умолчанию:
// локально (go run) localhost:19092, в Docker kafka:9092
func (c Config) WithDefaults(appEnv string) Config {
	if len(c.Brokers) == 0 {
		if appEnv == "docker" {
			c.Brokers = []string{"kafka:9092"}
		} else {
			c.Brokers = []string{"localhost:19092"}
		}
	}
	return c
}

// Validate проверяет обязательные поля
func (c Config) Validate() error {
	if len(c.Brokers) == 0 {
		return fmt.Errorf("KAFKA_BROKERS is required")
	}
	if c.WriteTimeout <= 0 {
		return fmt.Errorf("KAFKA_WRITE_TIMEOUT must be positive")
	}
	return nil
}

// NewWriter создаёт writer без фиксированного топика: топик берётся из каждого сообщения
func (c Config) NewWriter() *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(c.Brokers...),
		Balancer:     &kafka.Hash{},
		WriteTimeout: c.WriteTimeout,
		RequiredAcks: kafka.RequireAll,
		Transport:    &kafka.Transport{ClientID: c.ClientID},
	}
}

// NewReader создаёт reader consumer group для одного топика
func (c Config) NewReader(groupID, topic string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:  c.Brokers,
		GroupID:  groupID,
		Topic:    topic,
		MinBytes: 1,
		MaxBytes: c.MaxBytes,
		Dialer:   &kafka.Dialer{ClientID: c.ClientID, Timeout: 10 * time.Second},
	})
}
