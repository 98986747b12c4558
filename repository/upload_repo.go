package repository

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
)

// UploadedFile 上传文件登记信息
type UploadedFile struct {
	ID         string    `json:"file_id"`
	Name       string    `json:"file_name"`
	Path       string    `json:"-"`
	Size       int64     `json:"size"`
	Consumed   bool      `json:"consumed"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// UploadStore 上传文件登记。核心流程只读取文件，不负责删除
type UploadStore interface {
	Register(name, path string, size int64) (UploadedFile, error)
	// Resolve 返回登记信息，同时检查文件在磁盘上仍然存在
	Resolve(id string) (UploadedFile, error)
	MarkConsumed(id string) error
}

// MemoryUploadStore 进程内上传登记
type MemoryUploadStore struct {
	mu    sync.RWMutex
	files map[string]*UploadedFile
}

// NewMemoryUploadStore 创建内存上传登记
func NewMemoryUploadStore() *MemoryUploadStore {
	return &MemoryUploadStore{files: make(map[string]*UploadedFile)}
}

func (s *MemoryUploadStore) Register(name, path string, size int64) (UploadedFile, error) {
	if path == "" {
		return UploadedFile{}, fmt.Errorf("register upload %q: empty path", name)
	}
	f := &UploadedFile{
		ID:         uuid.NewString(),
		Name:       name,
		Path:       path,
		Size:       size,
		UploadedAt: time.Now(),
	}

	s.mu.Lock()
	s.files[f.ID] = f
	s.mu.Unlock()
	return *f, nil
}

func (s *MemoryUploadStore) Resolve(id string) (UploadedFile, error) {
	s.mu.RLock()
	f, ok := s.files[id]
	s.mu.RUnlock()
	if !ok {
		return UploadedFile{}, ErrFileNotFound
	}

	info, err := os.Stat(f.Path)
	if err != nil || info.IsDir() {
		return UploadedFile{}, fmt.Errorf("%w: %s", ErrFileNotFound, id)
	}
	return *f, nil
}

func (s *MemoryUploadStore) MarkConsumed(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.files[id]
	if !ok {
		return ErrFileNotFound
	}
	f.Consumed = true
	return nil
}
