package store

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
)

// FileStore persists every key into a single JSON document on local disk,
// the durable medium when the core runs without Redis or Mongo. Writes go
// through a temp file and rename so a crash never leaves a half-written
// document behind.
type FileStore struct {
	path   string
	logger *logrus.Logger
}

func NewFileStore(path string, logger *logrus.Logger) (*FileStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}
	return &FileStore{
		path:   path,
		logger: logger,
	}, nil
}

func (fs *FileStore) Get(ctx context.Context, key string) (json.RawMessage, error) {
	doc := fs.read()
	raw, ok := doc[key]
	if !ok {
		return nil, nil
	}
	return raw, nil
}

func (fs *FileStore) Set(ctx context.Context, key string, value json.RawMessage) error {
	doc := fs.read()
	doc[key] = value
	return fs.write(doc)
}

func (fs *FileStore) Delete(ctx context.Context, key string) error {
	doc := fs.read()
	if _, ok := doc[key]; !ok {
		return nil
	}
	delete(doc, key)
	return fs.write(doc)
}

func (fs *FileStore) Close() error {
	return nil
}

// read loads the whole document. A missing or corrupt file degrades to an
// empty document; parse failures are logged, never propagated.
func (fs *FileStore) read() map[string]json.RawMessage {
	doc := make(map[string]json.RawMessage)

	data, err := os.ReadFile(fs.path)
	if err != nil {
		if !os.IsNotExist(err) {
			fs.logger.Printf("error reading store file %s: %v", fs.path, err)
		}
		return doc
	}

	if err := json.Unmarshal(data, &doc); err != nil {
		fs.logger.Printf("corrupt store file %s, starting empty: %v", fs.path, err)
		return make(map[string]json.RawMessage)
	}
	return doc
}

func (fs *FileStore) write(doc map[string]json.RawMessage) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return err
	}

	tmp := fs.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, fs.path)
}
