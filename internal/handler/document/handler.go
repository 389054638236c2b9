package document

import (
	"errors"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/zhouzirui/law-agent/backend/internal/model/document"
	"github.com/zhouzirui/law-agent/backend/internal/service/extract"
	"github.com/zhouzirui/law-agent/backend/pkg/utils"
)

// formField 是上传文件使用的表单字段名。
const formField = "files"

var ErrNoDocuments = errors.New("no files uploaded")

// Store 抽象全局文档上下文存储。
type Store interface {
	Replace(docs []document.Info, text string) document.Set
	Clear() int
}

// Handler 文档上传的HTTP处理器
type Handler struct {
	store     Store
	extractor extract.Extractor
	maxBytes  int64
}

// New 创建文档处理器，maxBytes 限制整个上传请求体。
func New(store Store, extractor extract.Extractor, maxBytes int64) *Handler {
	if maxBytes <= 0 {
		maxBytes = 32 << 20
	}
	return &Handler{
		store:     store,
		extractor: extractor,
		maxBytes:  maxBytes,
	}
}

// RegisterRoutes 注册文档相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/upload-documents", h.handleUpload)
	r.Post("/clear-documents", h.handleClear)
}

type uploadResponse struct {
	BatchID   string          `json:"batch_id"`
	Message   string          `json:"message"`
	Documents []document.Info `json:"documents"`
	Timestamp time.Time       `json:"timestamp"`
}

// handleUpload 解析上传文件，抽取文本并替换当前文档上下文
func (h *Handler) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes)
	if err := r.ParseMultipartForm(h.maxBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) || strings.Contains(err.Error(), "request body too large") {
			utils.RespondError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("upload exceeds %d bytes", h.maxBytes))
			return
		}
		utils.RespondError(w, http.StatusBadRequest, "failed to parse multipart form: "+err.Error())
		return
	}
	defer r.MultipartForm.RemoveAll()

	headers := r.MultipartForm.File[formField]
	if len(headers) == 0 {
		utils.RespondError(w, http.StatusBadRequest, ErrNoDocuments.Error())
		return
	}

	infos := make([]document.Info, 0, len(headers))
	names := make([]string, 0, len(headers))
	texts := make([]string, 0, len(headers))
	for _, header := range headers {
		info, text := h.extractFile(header)
		infos = append(infos, info)
		names = append(names, info.Filename)
		texts = append(texts, text)
	}

	set := h.store.Replace(infos, extract.Combine(names, texts))
	batchID := uuid.NewString()
	log.Printf("[documents] batch=%s loaded %d documents (%d chars of text)", batchID, len(set.Documents), len(set.Text))

	utils.RespondJSON(w, http.StatusOK, uploadResponse{
		BatchID:   batchID,
		Message:   fmt.Sprintf("Successfully uploaded %d document(s); they will be used as context for subsequent questions", len(set.Documents)),
		Documents: set.Documents,
		Timestamp: set.UploadedAt,
	})
}

// extractFile 读取单个文件；读取失败时以占位文本继续而不是中断整个上传。
func (h *Handler) extractFile(header *multipart.FileHeader) (document.Info, string) {
	info := document.Info{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
	}

	data, err := readFile(header)
	if err != nil {
		log.Printf("[documents] failed to read %s: %v", header.Filename, err)
		return info, fmt.Sprintf("[%s: file could not be read: %v]", header.Filename, err)
	}
	return info, h.extractor.Extract(data, info.Filename, info.ContentType)
}

func readFile(header *multipart.FileHeader) ([]byte, error) {
	file, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return io.ReadAll(file)
}

type statusResponse struct {
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// handleClear 清空当前文档上下文
func (h *Handler) handleClear(w http.ResponseWriter, _ *http.Request) {
	cleared := h.store.Clear()

	message := "No documents were loaded"
	if cleared > 0 {
		message = fmt.Sprintf("Cleared %d document(s) from context", cleared)
	}
	log.Printf("[documents] %s", message)

	utils.RespondJSON(w, http.StatusOK, statusResponse{Message: message, Timestamp: time.Now().UTC()})
}
