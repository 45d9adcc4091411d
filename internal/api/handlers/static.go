// static.go — раздача клиентских файлов и опубликованных клипов.
//
// Клиентские файлы (SPA-сборка) отдаются из staticDir с in-memory кэшем
// содержимого и поддержкой If-Modified-Since: клиент с актуальной версией
// получает 304 без тела. Клипы отдаются из объектного хранилища по
// /files/{name}.
package handlers

import (
	"log/slog"
	"mime"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/bigkaa/gosonglet/internal/api/errors"
	"github.com/bigkaa/gosonglet/internal/domain/model"
	"github.com/bigkaa/gosonglet/internal/storage/blobstore"
)

// cachedFile — закэшированное содержимое клиентского файла.
type cachedFile struct {
	content []byte
	// mtime — значение Last-Modified, при котором содержимое было прочитано
	mtime string
}

// StaticHandler раздаёт клиентские файлы и клипы.
type StaticHandler struct {
	staticDir string
	store     *blobstore.Store
	logger    *slog.Logger

	mu    sync.Mutex
	cache map[string]cachedFile
}

// NewStaticHandler создаёт обработчик статики.
func NewStaticHandler(staticDir string, store *blobstore.Store, logger *slog.Logger) *StaticHandler {
	return &StaticHandler{
		staticDir: staticDir,
		store:     store,
		logger:    logger.With(slog.String("component", "static")),
		cache:     make(map[string]cachedFile),
	}
}

// ServeClient обрабатывает GET-запросы клиентских файлов.
// Путь жёстко фильтруется: допустимы только буквы, цифры, точка, слэш
// и пробел, без "..". Корень отображается на index.html.
func (h *StaticHandler) ServeClient(w http.ResponseWriter, r *http.Request) {
	reqPath := path.Clean(r.URL.Path)
	if !validClientPath(reqPath) {
		h.logger.Error("Недопустимый путь клиентского файла", slog.String("path", r.URL.Path))
		apierrors.WriteFail(w)
		return
	}
	if reqPath == "/" || reqPath == "." {
		reqPath = "/index.html"
	}

	filePath := filepath.Join(h.staticDir, filepath.FromSlash(strings.TrimPrefix(reqPath, "/")))

	info, err := os.Stat(filePath)
	if err != nil || info.IsDir() {
		h.logger.Error("Клиентский файл недоступен", slog.String("path", filePath))
		apierrors.WriteFail(w)
		return
	}
	mtime := info.ModTime().UTC().Format(http.TimeFormat)

	// Клиент с актуальной версией — 304 без тела
	if since := r.Header.Get("If-Modified-Since"); since != "" && since == mtime {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	contentType := mime.TypeByExtension(strings.ToLower(filepath.Ext(filePath)))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	content, ok := h.cachedContent(filePath, mtime)
	if !ok {
		content, err = os.ReadFile(filePath)
		if err != nil {
			h.logger.Error("Ошибка чтения клиентского файла",
				slog.String("path", filePath),
				slog.String("error", err.Error()))
			apierrors.WriteFail(w)
			return
		}
		h.storeCache(filePath, mtime, content)
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Last-Modified", mtime)
	w.Header().Set("Cache-Control", "max-age=0")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(content)
}

// ServeClip обрабатывает GET /files/{name}: отдаёт опубликованный клип.
func (h *StaticHandler) ServeClip(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if _, ok := model.KeyFromObjectName(name); !ok {
		h.logger.Error("Недопустимое имя клипа", slog.String("name", name))
		apierrors.WriteFail(w)
		return
	}

	f, err := h.store.Open(name)
	if err != nil {
		h.logger.Error("Клип недоступен", slog.String("name", name), slog.String("error", err.Error()))
		apierrors.WriteFail(w)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		apierrors.WriteFail(w)
		return
	}

	w.Header().Set("Content-Type", model.FileContentType)
	http.ServeContent(w, r, name, info.ModTime(), f)
}

// cachedContent возвращает содержимое из кэша, если версия (mtime) совпадает.
func (h *StaticHandler) cachedContent(filePath, mtime string) ([]byte, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	cf, ok := h.cache[filePath]
	if !ok || cf.mtime != mtime {
		return nil, false
	}
	return cf.content, true
}

// storeCache запоминает содержимое файла для версии mtime.
func (h *StaticHandler) storeCache(filePath, mtime string, content []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.cache[filePath] = cachedFile{content: content, mtime: mtime}
}

// validClientPath отклоняет пути с посторонними символами и обходом
// директорий.
func validClientPath(p string) bool {
	if strings.Contains(p, "..") {
		return false
	}
	for _, r := range p {
		switch {
		case r >= '0' && r <= '9',
			r >= 'a' && r <= 'z',
			r >= 'A' && r <= 'Z',
			r == '.', r == '/', r == ' ':
		default:
			return false
		}
	}
	return true
}
