package checkpoint

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"
	"github.com/klauspost/compress/gzip"
	"github.com/riskibarqy/scout-scoring/internal/platform/fsutil"
	"github.com/riskibarqy/scout-scoring/internal/usecase"
	"github.com/valyala/bytebufferpool"
)

const (
	plainExt      = ".json"
	compressedExt = ".json.gz"
)

// FSStore keeps stage checkpoints as JSON files in one directory, optionally
// gzip-compressed. Writes go to a temp file that is renamed into place, so a
// failed stage never leaves a half-written checkpoint behind.
type FSStore struct {
	dir      string
	compress bool
}

func NewFSStore(dir string, compress bool) *FSStore {
	return &FSStore{dir: dir, compress: compress}
}

func (s *FSStore) Dir() string {
	if s == nil {
		return ""
	}
	return s.dir
}

// Path returns where name is written with the current settings.
func (s *FSStore) Path(name string) string {
	ext := plainExt
	if s.compress {
		ext = compressedExt
	}
	return filepath.Join(s.dir, name+ext)
}

func (s *FSStore) Save(ctx context.Context, name string, value any) error {
	if err := validateName(name); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	payload, err := sonic.Marshal(value)
	if err != nil {
		return crerr.Wrapf(err, "encode checkpoint %s", name)
	}

	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	if s.compress {
		zw := gzip.NewWriter(buf)
		if _, err := zw.Write(payload); err != nil {
			return crerr.Wrapf(err, "compress checkpoint %s", name)
		}
		if err := zw.Close(); err != nil {
			return crerr.Wrapf(err, "compress checkpoint %s", name)
		}
	} else {
		_, _ = buf.Write(payload)
	}

	if err := fsutil.WriteFileAtomic(s.Path(name), buf.B); err != nil {
		return crerr.Wrapf(err, "write checkpoint %s", name)
	}

	// Drop the copy in the other encoding so Load never reads a stale file.
	stale := filepath.Join(s.dir, name+plainExt)
	if !s.compress {
		stale = filepath.Join(s.dir, name+compressedExt)
	}
	if err := os.Remove(stale); err != nil && !os.IsNotExist(err) {
		return crerr.Wrapf(err, "remove stale checkpoint %s", stale)
	}
	return nil
}

// Load decodes name into value. Either encoding is accepted, so a run can
// resume after the compression setting changed.
func (s *FSStore) Load(ctx context.Context, name string, value any) error {
	if err := validateName(name); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	for _, ext := range []string{compressedExt, plainExt} {
		path := filepath.Join(s.dir, name+ext)
		payload, err := readFile(path, ext == compressedExt)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return crerr.Wrapf(err, "read checkpoint %s", path)
		}
		if err := sonic.Unmarshal(payload, value); err != nil {
			return crerr.Wrapf(err, "decode checkpoint %s", path)
		}
		return nil
	}

	return fmt.Errorf("%w: %s in %s", usecase.ErrCheckpointMissing, name, s.dir)
}

// WriteReport writes value as indented, uncompressed JSON.
func (s *FSStore) WriteReport(ctx context.Context, name string, value any) (string, error) {
	if err := validateName(name); err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	payload, err := sonic.ConfigStd.MarshalIndent(value, "", "  ")
	if err != nil {
		return "", crerr.Wrapf(err, "encode report %s", name)
	}
	path := filepath.Join(s.dir, name+plainExt)
	if err := fsutil.WriteFileAtomic(path, append(payload, '\n')); err != nil {
		return "", crerr.Wrapf(err, "write report %s", name)
	}
	return path, nil
}

func validateName(name string) error {
	if strings.TrimSpace(name) == "" || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("%w: checkpoint name %q", usecase.ErrInvalidInput, name)
	}
	return nil
}

func readFile(path string, compressed bool) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if !compressed {
		return io.ReadAll(f)
	}
	zr, err := gzip.NewReader(f)
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	return io.ReadAll(zr)
}
