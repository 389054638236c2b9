package utils

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrorResponse 是所有错误响应的统一结构。
type ErrorResponse struct {
	Error     string    `json:"error"`
	Timestamp time.Time `json:"timestamp"`
}

// RespondJSON 发送JSON响应
func RespondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("failed to encode json response: %v", err)
	}
}

// RespondYAML 发送YAML响应，用于会话历史导出
func RespondYAML(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/yaml")
	w.WriteHeader(status)
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	defer func() { _ = enc.Close() }()
	if err := enc.Encode(payload); err != nil {
		log.Printf("failed to encode yaml response: %v", err)
	}
}

// RespondError 发送错误响应
func RespondError(w http.ResponseWriter, status int, message string) {
	RespondJSON(w, status, ErrorResponse{Error: message, Timestamp: time.Now().UTC()})
}
