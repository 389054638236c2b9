package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config 聚合整个服务的配置项。
type Config struct {
	Server    ServerConfig
	Inference InferenceConfig
	Chat      ChatConfig
	Upload    UploadConfig
	CORS      CORSConfig
}

// Load 从环境变量加载配置。
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	inference, err := loadInferenceConfig()
	if err != nil {
		return nil, err
	}

	chat, err := loadChatConfig()
	if err != nil {
		return nil, err
	}

	upload, err := loadUploadConfig()
	if err != nil {
		return nil, err
	}

	return &Config{
		Server:    server,
		Inference: inference,
		Chat:      chat,
		Upload:    upload,
		CORS:      loadCORSConfig(),
	}, nil
}

// ServerConfig 描述 HTTP 服务配置。
type ServerConfig struct {
	Addr string
}

// loadServerConfig 解析服务器监听地址。
func loadServerConfig() (ServerConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8000"
	}

	if strings.Contains(port, ":") {
		// 允许用户直接传入 ":8000" 或 "127.0.0.1:8000"。
		return ServerConfig{Addr: port}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port}, nil
}

// InferenceConfig 描述本地推理服务 (Ollama) 的连接与采样参数。
type InferenceConfig struct {
	BaseURL       string
	Model         string
	Timeout       time.Duration
	Temperature   float64
	TopP          float64
	NumPredict    int
	NumCtx        int
	RepeatPenalty float64
	Stop          []string
	RandomSeed    bool
}

// DefaultStop keeps the model from writing the next dialogue turn itself.
var DefaultStop = []string{"\nUser:", "\nClient:", "\nHuman:", "CLIENT INQUIRY:"}

// DefaultInferenceConfig returns the sampling parameters used when no overrides are set.
func DefaultInferenceConfig() InferenceConfig {
	return InferenceConfig{
		BaseURL:       "http://localhost:11434",
		Model:         "phi4-mini",
		Timeout:       120 * time.Second,
		Temperature:   0.7,
		TopP:          0.9,
		NumPredict:    512,
		NumCtx:        4096,
		RepeatPenalty: 1.1,
		Stop:          append([]string(nil), DefaultStop...),
		RandomSeed:    true,
	}
}

func loadInferenceConfig() (InferenceConfig, error) {
	cfg := DefaultInferenceConfig()
	cfg.BaseURL = strings.TrimRight(getEnvOrDefault("OLLAMA_BASE_URL", cfg.BaseURL), "/")
	cfg.Model = getEnvOrDefault("OLLAMA_MODEL", cfg.Model)

	timeout, err := parseOptionalIntEnv("OLLAMA_TIMEOUT")
	if err != nil {
		return InferenceConfig{}, err
	}
	if timeout != nil {
		if *timeout <= 0 {
			return InferenceConfig{}, fmt.Errorf("invalid OLLAMA_TIMEOUT value %d: must be positive", *timeout)
		}
		cfg.Timeout = time.Duration(*timeout) * time.Second
	}

	floats := []struct {
		key string
		dst *float64
	}{
		{"OLLAMA_TEMPERATURE", &cfg.Temperature},
		{"OLLAMA_TOP_P", &cfg.TopP},
		{"OLLAMA_REPEAT_PENALTY", &cfg.RepeatPenalty},
	}
	for _, f := range floats {
		val, err := parseOptionalFloatEnv(f.key)
		if err != nil {
			return InferenceConfig{}, err
		}
		if val != nil {
			*f.dst = *val
		}
	}

	ints := []struct {
		key string
		dst *int
	}{
		{"OLLAMA_NUM_PREDICT", &cfg.NumPredict},
		{"OLLAMA_NUM_CTX", &cfg.NumCtx},
	}
	for _, i := range ints {
		val, err := parseOptionalIntEnv(i.key)
		if err != nil {
			return InferenceConfig{}, err
		}
		if val != nil {
			*i.dst = *val
		}
	}

	if stop := parseListEnv("OLLAMA_STOP", "|"); len(stop) > 0 {
		cfg.Stop = stop
	}

	cfg.RandomSeed, err = parseBoolEnv("OLLAMA_RANDOM_SEED", cfg.RandomSeed)
	if err != nil {
		return InferenceConfig{}, err
	}

	return cfg, nil
}

// MaxHistoryWindow 是回放给模型的历史消息数上限。
const MaxHistoryWindow = 6

// ChatConfig 控制会话与回复校验。
type ChatConfig struct {
	DefaultSessionID  string
	HistoryWindow     int
	MinResponseLength int
}

func loadChatConfig() (ChatConfig, error) {
	cfg := ChatConfig{
		DefaultSessionID:  getEnvOrDefault("CHAT_DEFAULT_SESSION", "default"),
		HistoryWindow:     MaxHistoryWindow,
		MinResponseLength: 10,
	}

	if window, err := parseOptionalIntEnv("CHAT_HISTORY_WINDOW"); err != nil {
		return ChatConfig{}, err
	} else if window != nil {
		// 窗口只能缩小，不能超过 MaxHistoryWindow。
		cfg.HistoryWindow = min(max(*window, 0), MaxHistoryWindow)
	}

	if minLen, err := parseOptionalIntEnv("CHAT_MIN_RESPONSE_LENGTH"); err != nil {
		return ChatConfig{}, err
	} else if minLen != nil && *minLen > 0 {
		cfg.MinResponseLength = *minLen
	}

	return cfg, nil
}

// UploadConfig 限制上传请求体大小。
type UploadConfig struct {
	MaxBytes int64
}

func loadUploadConfig() (UploadConfig, error) {
	cfg := UploadConfig{MaxBytes: 32 << 20}
	maxBytes, err := parseOptionalIntEnv("UPLOAD_MAX_BYTES")
	if err != nil {
		return UploadConfig{}, err
	}
	if maxBytes != nil && *maxBytes > 0 {
		cfg.MaxBytes = int64(*maxBytes)
	}
	return cfg, nil
}

// CORSConfig 描述跨域白名单，"*" 表示放行所有来源。
type CORSConfig struct {
	AllowedOrigins []string
}

func loadCORSConfig() CORSConfig {
	origins := parseListEnv("CORS_ALLOWED_ORIGINS", ",")
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return CORSConfig{AllowedOrigins: origins}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseListEnv(key, sep string) []string {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return nil
	}

	var items []string
	for _, part := range strings.Split(raw, sep) {
		if item := strings.TrimSpace(part); item != "" {
			items = append(items, item)
		}
	}
	return items
}

func parseBoolEnv(key string, defaultValue bool) (bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
}

func parseOptionalFloatEnv(key string) (*float64, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

func parseOptionalIntEnv(key string) (*int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}
