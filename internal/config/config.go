package config

import (
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config корневая структура конфигурации place-snapshot.
// Любое поле можно опустить: геттеры возвращают значения по умолчанию.
type Config struct {
	Output    OutputConfig    `yaml:"output"`
	Replay    ReplayConfig    `yaml:"replay"`
	Logging   LoggingConfig   `yaml:"logging"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Store     StoreConfig     `yaml:"store"`
}

type OutputConfig struct {
	Path string `yaml:"path"`
}

type ReplayConfig struct {
	ProgressEvery   int   `yaml:"progress_every"`
	ReportUntouched *bool `yaml:"report_untouched"`
}

type LoggingConfig struct {
	ConsoleLevel string  `yaml:"console_level"`
	FileLevel    string  `yaml:"file_level"`
	Dir          *string `yaml:"dir"` // пустая строка отключает файл логов
}

type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

type TelemetryConfig struct {
	Enabled     bool    `yaml:"enabled"`
	ServiceName string  `yaml:"service_name"`
	Endpoint    string  `yaml:"endpoint"` // host:port OTLP/HTTP коллектора
	Insecure    bool    `yaml:"insecure"`
	SampleRatio float64 `yaml:"sample_ratio"`
}

type StoreConfig struct {
	Path string `yaml:"path"`
}

const (
	DefaultOutputPath    = "place.png"
	DefaultProgressEvery = 100000
	DefaultLogDir        = "logs"
	DefaultServiceName   = "place-snapshot"
)

// GetOutputPath возвращает путь к PNG с поддержкой fallback значений
func (o *OutputConfig) GetOutputPath() string {
	return getStringWithEnvFallback(o.Path, "PLACE_OUTPUT", DefaultOutputPath)
}

// GetProgressEvery возвращает период отчёта о прогрессе в записях
func (r *ReplayConfig) GetProgressEvery() int {
	return getIntWithEnvFallback(r.ProgressEvery, "PLACE_PROGRESS_EVERY", DefaultProgressEvery)
}

// GetReportUntouched сообщает, нужно ли перечислять незатронутые пиксели
func (r *ReplayConfig) GetReportUntouched() bool {
	if r.ReportUntouched == nil {
		return true
	}
	return *r.ReportUntouched
}

// GetDir возвращает каталог логов; "" означает только консоль
func (l *LoggingConfig) GetDir() string {
	if l.Dir == nil {
		return DefaultLogDir
	}
	return *l.Dir
}

// GetAddr возвращает адрес /metrics; "" - эндпоинт отключён
func (m *MetricsConfig) GetAddr() string {
	return getStringWithEnvFallback(m.Addr, "PLACE_METRICS_ADDR", "")
}

// GetServiceName возвращает имя сервиса для OpenTelemetry
func (t *TelemetryConfig) GetServiceName() string {
	return getStringWithEnvFallback(t.ServiceName, "OTEL_SERVICE_NAME", DefaultServiceName)
}

// GetEndpoint возвращает адрес OTLP коллектора; "" - стандартные OTEL_* переменные
func (t *TelemetryConfig) GetEndpoint() string {
	return getStringWithEnvFallback(t.Endpoint, "PLACE_OTLP_ENDPOINT", "")
}

// GetSampleRatio возвращает долю трасс; вне (0, 1] - записываются все
func (t *TelemetryConfig) GetSampleRatio() float64 {
	if t.SampleRatio <= 0 || t.SampleRatio > 1 {
		return 1
	}
	return t.SampleRatio
}

// GetPath возвращает каталог хранилища снапшотов; "" - хранилище отключено
func (s *StoreConfig) GetPath() string {
	return getStringWithEnvFallback(s.Path, "PLACE_STORE", "")
}

// getIntWithEnvFallback возвращает значение с приоритетом: config -> env -> default
func getIntWithEnvFallback(configValue int, envVar string, defaultValue int) int {
	if configValue > 0 {
		return configValue
	}

	if envVal := os.Getenv(envVar); envVal != "" {
		if v, err := strconv.Atoi(envVal); err == nil && v > 0 {
			return v
		}
	}

	return defaultValue
}

// getStringWithEnvFallback возвращает значение с приоритетом: config -> env -> default
func getStringWithEnvFallback(configValue string, envVar string, defaultValue string) string {
	if configValue != "" {
		return configValue
	}
	if envVal := os.Getenv(envVar); envVal != "" {
		return envVal
	}
	return defaultValue
}

// Load читает YAML файл конфигурации.
// Если path == "", пытается прочитать из ENV PLACE_CONFIG, иначе возвращает
// пустую конфигурацию (все значения по умолчанию).
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("PLACE_CONFIG")
		if path == "" {
			return &Config{}, nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
