// Пакет blobstore — долговременное объектное хранилище клипов на диске.
//
// Запись потоковая, с подсчётом SHA-256 на лету. Объект становится читаемым
// только после Finalize: данные пишутся во временный файл, затем fsync и
// атомарный rename в публичную директорию. Discard удаляет частичный объект.
// Finalize и Discard взаимоисключающие и каждый выполняется не более одного
// раза — повторные вызовы no-op.
package blobstore

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Store — хранилище объектов в одной директории.
type Store struct {
	dataDir string
}

// PutResult — результат финализации объекта.
type PutResult struct {
	// Name — имя объекта в хранилище
	Name string
	// Size — размер записанных данных в байтах
	Size int64
	// Checksum — SHA-256 хэш содержимого
	Checksum string
}

// New создаёт хранилище в dataDir, создавая директорию при необходимости.
func New(dataDir string) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0o750); err != nil {
		return nil, fmt.Errorf("не удалось создать директорию данных %s: %w", dataDir, err)
	}
	return &Store{dataDir: dataDir}, nil
}

// Create открывает потоковую запись объекта name.
// Объект не виден читателям до Finalize.
func (s *Store) Create(name string) (*Writer, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}
	finalPath := filepath.Join(s.dataDir, name)
	tmpPath := finalPath + ".tmp"

	f, err := os.Create(tmpPath)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания временного файла: %w", err)
	}

	return &Writer{
		f:         f,
		tmpPath:   tmpPath,
		finalPath: finalPath,
		name:      name,
		hasher:    sha256.New(),
	}, nil
}

// Delete удаляет объект. Отсутствующий объект — не ошибка.
func (s *Store) Delete(name string) error {
	if err := validateName(name); err != nil {
		return err
	}
	err := os.Remove(filepath.Join(s.dataDir, name))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("ошибка удаления объекта %s: %w", name, err)
	}
	return nil
}

// Exists проверяет наличие финализированного объекта.
func (s *Store) Exists(name string) bool {
	if err := validateName(name); err != nil {
		return false
	}
	_, err := os.Stat(filepath.Join(s.dataDir, name))
	return err == nil
}

// Open открывает финализированный объект для чтения.
// Вызывающий код обязан закрыть файл.
func (s *Store) Open(name string) (*os.File, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}
	f, err := os.Open(filepath.Join(s.dataDir, name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("объект не найден: %s", name)
		}
		return nil, fmt.Errorf("ошибка открытия объекта %s: %w", name, err)
	}
	return f, nil
}

// DataDir возвращает директорию данных.
func (s *Store) DataDir() string {
	return s.dataDir
}

// ScanOlderThan возвращает имена финализированных объектов с mtime <= cutoff.
// Используется retention-очисткой для поиска осиротевших объектов.
func (s *Store) ScanOlderThan(cutoff time.Time) ([]string, error) {
	entries, err := os.ReadDir(s.dataDir)
	if err != nil {
		return nil, fmt.Errorf("ошибка сканирования директории данных: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || strings.HasSuffix(e.Name(), ".tmp") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if !info.ModTime().After(cutoff) {
			names = append(names, e.Name())
		}
	}
	return names, nil
}

// validateName отклоняет имена с разделителями пути.
func validateName(name string) error {
	if name == "" || strings.ContainsAny(name, "/\\") || name == "." || name == ".." {
		return fmt.Errorf("недопустимое имя объекта: %q", name)
	}
	return nil
}

// Writer — потоковая запись одного объекта.
// Потокобезопасность нужна только для Finalize/Discard (решение барьера
// может гоняться с отменой запроса); Write вызывается из одной горутины.
type Writer struct {
	f         *os.File
	tmpPath   string
	finalPath string
	name      string
	hasher    interface {
		io.Writer
		Sum([]byte) []byte
	}
	size int64

	mu   sync.Mutex
	done bool
}

// Write добавляет очередной чанк во временный файл с обновлением SHA-256.
func (w *Writer) Write(p []byte) (int, error) {
	n, err := w.f.Write(p)
	if n > 0 {
		w.hasher.Write(p[:n])
		w.size += int64(n)
	}
	if err != nil {
		return n, fmt.Errorf("ошибка записи данных: %w", err)
	}
	return n, nil
}

// Finalize делает объект читаемым: fsync, close, атомарный rename.
// Второй и последующие вызовы (или вызов после Discard) возвращают ошибку.
func (w *Writer) Finalize() (*PutResult, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.done {
		return nil, fmt.Errorf("объект %s уже финализирован или отброшен", w.name)
	}
	w.done = true

	if err := w.f.Sync(); err != nil {
		w.f.Close()
		os.Remove(w.tmpPath)
		return nil, fmt.Errorf("ошибка fsync: %w", err)
	}
	if err := w.f.Close(); err != nil {
		os.Remove(w.tmpPath)
		return nil, fmt.Errorf("ошибка закрытия файла: %w", err)
	}
	if err := os.Rename(w.tmpPath, w.finalPath); err != nil {
		os.Remove(w.tmpPath)
		return nil, fmt.Errorf("ошибка атомарного переименования: %w", err)
	}

	return &PutResult{
		Name:     w.name,
		Size:     w.size,
		Checksum: hex.EncodeToString(w.hasher.Sum(nil)),
	}, nil
}

// Discard отбрасывает частичный объект: close + удаление временного файла.
// Повторные вызовы и вызов после Finalize — no-op.
func (w *Writer) Discard() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.done {
		return
	}
	w.done = true

	w.f.Close()
	os.Remove(w.tmpPath)
}
