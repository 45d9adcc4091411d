// Пакет config — загрузка и валидация конфигурации songlet
// из переменных окружения.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Версия приложения, задаётся при сборке через -ldflags.
var Version = "dev"

// Config содержит все параметры конфигурации songlet.
type Config struct {
	// Порт HTTP-сервера
	Port int
	// Уникальный идентификатор экземпляра (например, "songlet-01")
	InstanceID string
	// Путь к директории хранения клипов
	DataDir string
	// Путь к директории клиентской сборки (SPA)
	StaticDir string
	// Префикс URL, по которому клиенты скачивают клипы
	URLRoot string

	// Максимальный размер тела JSON-запроса в байтах
	MaxQueryBytes int64
	// Максимальное время чтения тела JSON-запроса
	MaxQueryTime time.Duration
	// Максимальный размер загружаемого клипа в байтах
	MaxPostBytes int64
	// Максимальное время приёма клипа
	MaxPostTime time.Duration

	// Окно свежести токена загрузки: от /verify до /create
	MaxUploadPendingTime time.Duration
	// Максимальное количество одновременно ожидающих токенов
	MaxPendingTokens int
	// Размер окна выдачи ленты
	ChunkSize int
	// Максимальный размер кэша метаданных
	MaxCacheSize int
	// Срок хранения клипа
	RetentionWindow time.Duration
	// Интервал фоновой уборки
	SweepInterval time.Duration

	// Секретный ключ сервиса капчи
	CaptchaSecret string
	// URL проверки капчи
	CaptchaVerifyURL string

	// Бэкенд ленты: memory или firebase
	FeedBackend string
	// Базовый URL Firebase Realtime Database (для firebase)
	FeedURL string
	// Токен аутентификации ленты (опционально)
	FeedAuthToken string

	// Уровень логирования (debug, info, warn, error)
	LogLevel slog.Level
	// Формат логов (json, text)
	LogFormat string

	// Интервал проверки зависимостей topologymetrics
	DephealthCheckInterval time.Duration
	// Имя группы в метриках topologymetrics (SL_DEPHEALTH_GROUP)
	DephealthGroup string

	// Таймаут graceful shutdown HTTP-сервера.
	// Должен быть меньше K8s terminationGracePeriodSeconds.
	ShutdownTimeout time.Duration
}

// Load загружает конфигурацию из переменных окружения, валидирует
// обязательные поля и возвращает Config или ошибку.
func Load() (*Config, error) {
	cfg := &Config{}
	var err error

	// SL_PORT — порт HTTP-сервера (по умолчанию 8080)
	cfg.Port, err = getEnvInt("SL_PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("SL_PORT: %w", err)
	}
	if cfg.Port < 1 || cfg.Port > 65535 {
		return nil, fmt.Errorf("SL_PORT: значение %d вне допустимого диапазона 1-65535", cfg.Port)
	}

	// SL_INSTANCE_ID — идентификатор экземпляра (по умолчанию "songlet")
	cfg.InstanceID = getEnvDefault("SL_INSTANCE_ID", "songlet")

	// SL_DATA_DIR — обязательный
	cfg.DataDir, err = getEnvRequired("SL_DATA_DIR")
	if err != nil {
		return nil, err
	}

	// SL_STATIC_DIR — директория клиентской сборки (по умолчанию ./build)
	cfg.StaticDir = getEnvDefault("SL_STATIC_DIR", "./build")

	// SL_URL_ROOT — обязательный: без него клиент не соберёт ссылки на клипы
	cfg.URLRoot, err = getEnvRequired("SL_URL_ROOT")
	if err != nil {
		return nil, err
	}

	// SL_MAX_QUERY_BYTES — лимит тела JSON-запроса (по умолчанию 1 MiB)
	cfg.MaxQueryBytes, err = getEnvInt64("SL_MAX_QUERY_BYTES", 1048576)
	if err != nil {
		return nil, fmt.Errorf("SL_MAX_QUERY_BYTES: %w", err)
	}
	if cfg.MaxQueryBytes <= 0 {
		return nil, fmt.Errorf("SL_MAX_QUERY_BYTES: значение должно быть положительным")
	}

	// SL_MAX_QUERY_TIME — лимит времени чтения JSON-запроса (по умолчанию 10s)
	cfg.MaxQueryTime, err = getEnvDuration("SL_MAX_QUERY_TIME", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("SL_MAX_QUERY_TIME: %w", err)
	}

	// SL_MAX_POST_BYTES — лимит размера клипа (по умолчанию 20 MiB)
	cfg.MaxPostBytes, err = getEnvInt64("SL_MAX_POST_BYTES", 20971520)
	if err != nil {
		return nil, fmt.Errorf("SL_MAX_POST_BYTES: %w", err)
	}
	if cfg.MaxPostBytes <= 0 {
		return nil, fmt.Errorf("SL_MAX_POST_BYTES: значение должно быть положительным")
	}

	// SL_MAX_POST_TIME — лимит времени приёма клипа (по умолчанию 5m)
	cfg.MaxPostTime, err = getEnvDuration("SL_MAX_POST_TIME", 5*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("SL_MAX_POST_TIME: %w", err)
	}

	// SL_MAX_UPLOAD_PENDING_TIME — окно свежести токена (по умолчанию 30s)
	cfg.MaxUploadPendingTime, err = getEnvDuration("SL_MAX_UPLOAD_PENDING_TIME", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("SL_MAX_UPLOAD_PENDING_TIME: %w", err)
	}

	// SL_MAX_PENDING_TOKENS — ёмкость реестра токенов (по умолчанию 1024)
	cfg.MaxPendingTokens, err = getEnvInt("SL_MAX_PENDING_TOKENS", 1024)
	if err != nil {
		return nil, fmt.Errorf("SL_MAX_PENDING_TOKENS: %w", err)
	}
	if cfg.MaxPendingTokens <= 0 {
		return nil, fmt.Errorf("SL_MAX_PENDING_TOKENS: значение должно быть положительным")
	}

	// SL_CHUNK_SIZE — размер окна выдачи (по умолчанию 5)
	cfg.ChunkSize, err = getEnvInt("SL_CHUNK_SIZE", 5)
	if err != nil {
		return nil, fmt.Errorf("SL_CHUNK_SIZE: %w", err)
	}
	if cfg.ChunkSize <= 0 {
		return nil, fmt.Errorf("SL_CHUNK_SIZE: значение должно быть положительным")
	}

	// SL_MAX_CACHE_SIZE — размер кэша метаданных (по умолчанию 100)
	cfg.MaxCacheSize, err = getEnvInt("SL_MAX_CACHE_SIZE", 100)
	if err != nil {
		return nil, fmt.Errorf("SL_MAX_CACHE_SIZE: %w", err)
	}
	if cfg.MaxCacheSize < cfg.ChunkSize {
		return nil, fmt.Errorf("SL_MAX_CACHE_SIZE: значение %d должно быть >= SL_CHUNK_SIZE (%d)",
			cfg.MaxCacheSize, cfg.ChunkSize)
	}

	// SL_RETENTION_WINDOW — срок хранения клипа (по умолчанию 24h)
	cfg.RetentionWindow, err = getEnvDuration("SL_RETENTION_WINDOW", 24*time.Hour)
	if err != nil {
		return nil, fmt.Errorf("SL_RETENTION_WINDOW: %w", err)
	}

	// SL_SWEEP_INTERVAL — интервал фоновой уборки (по умолчанию 1h)
	cfg.SweepInterval, err = getEnvDuration("SL_SWEEP_INTERVAL", time.Hour)
	if err != nil {
		return nil, fmt.Errorf("SL_SWEEP_INTERVAL: %w", err)
	}

	// SL_CAPTCHA_SECRET — обязательный
	cfg.CaptchaSecret, err = getEnvRequired("SL_CAPTCHA_SECRET")
	if err != nil {
		return nil, err
	}

	// SL_CAPTCHA_VERIFY_URL — URL проверки капчи
	cfg.CaptchaVerifyURL = getEnvDefault("SL_CAPTCHA_VERIFY_URL",
		"https://www.google.com/recaptcha/api/siteverify")

	// SL_FEED_BACKEND — бэкенд ленты (по умолчанию firebase)
	cfg.FeedBackend = getEnvDefault("SL_FEED_BACKEND", "firebase")
	if cfg.FeedBackend != "memory" && cfg.FeedBackend != "firebase" {
		return nil, fmt.Errorf("SL_FEED_BACKEND: недопустимое значение %q, допустимые: memory, firebase", cfg.FeedBackend)
	}

	// SL_FEED_URL — обязательный для firebase
	cfg.FeedURL = getEnvDefault("SL_FEED_URL", "")
	if cfg.FeedBackend == "firebase" && cfg.FeedURL == "" {
		return nil, fmt.Errorf("SL_FEED_URL: обязательная переменная окружения не задана для SL_FEED_BACKEND=firebase")
	}

	// SL_FEED_AUTH_TOKEN — токен аутентификации ленты (опционально)
	cfg.FeedAuthToken = getEnvDefault("SL_FEED_AUTH_TOKEN", "")

	// SL_LOG_LEVEL — уровень логирования (по умолчанию info)
	cfg.LogLevel, err = parseLogLevel(getEnvDefault("SL_LOG_LEVEL", "info"))
	if err != nil {
		return nil, fmt.Errorf("SL_LOG_LEVEL: %w", err)
	}

	// SL_LOG_FORMAT — формат логов (по умолчанию json)
	cfg.LogFormat = getEnvDefault("SL_LOG_FORMAT", "json")
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return nil, fmt.Errorf("SL_LOG_FORMAT: недопустимое значение %q, допустимые: json, text", cfg.LogFormat)
	}

	// SL_DEPHEALTH_CHECK_INTERVAL — интервал проверки зависимостей (по умолчанию 15s)
	cfg.DephealthCheckInterval, err = getEnvDuration("SL_DEPHEALTH_CHECK_INTERVAL", 15*time.Second)
	if err != nil {
		return nil, fmt.Errorf("SL_DEPHEALTH_CHECK_INTERVAL: %w", err)
	}

	// SL_DEPHEALTH_GROUP — имя группы в метриках topologymetrics (по умолчанию "songlet")
	cfg.DephealthGroup = getEnvDefault("SL_DEPHEALTH_GROUP", "songlet")

	// SL_SHUTDOWN_TIMEOUT — таймаут graceful shutdown (по умолчанию 5s)
	cfg.ShutdownTimeout, err = getEnvDuration("SL_SHUTDOWN_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("SL_SHUTDOWN_TIMEOUT: %w", err)
	}

	return cfg, nil
}

// SetupLogger настраивает глобальный slog-логгер на основе конфигурации.
func SetupLogger(cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}

	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// --- Вспомогательные функции ---

// getEnvRequired возвращает значение переменной окружения или ошибку, если она не задана.
func getEnvRequired(key string) (string, error) {
	val := os.Getenv(key)
	if val == "" {
		return "", fmt.Errorf("%s: обязательная переменная окружения не задана", key)
	}
	return val, nil
}

// getEnvDefault возвращает значение переменной окружения или значение по умолчанию.
func getEnvDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

// getEnvInt возвращает целочисленное значение переменной окружения или значение по умолчанию.
func getEnvInt(key string, defaultVal int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("некорректное целое число: %q", val)
	}
	return n, nil
}

// getEnvInt64 возвращает int64 значение переменной окружения или значение по умолчанию.
func getEnvInt64(key string, defaultVal int64) (int64, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	n, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("некорректное целое число: %q", val)
	}
	return n, nil
}

// getEnvDuration возвращает time.Duration из переменной окружения или значение по умолчанию.
func getEnvDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("некорректная длительность: %q (используйте формат Go: 30s, 1h, 24h)", val)
	}
	return d, nil
}

// parseLogLevel преобразует строку уровня логирования в slog.Level.
func parseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("недопустимый уровень %q, допустимые: debug, info, warn, error", level)
	}
}
