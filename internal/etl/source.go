package etl

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/shelterlist/animals/internal/storage"
)

const objectScheme = "s3://"

type Format string

const (
	FormatCSV     Format = "csv"
	FormatParquet Format = "parquet"
)

// Source is an opened export ready to be read.
type Source struct {
	Location string
	Format   Format
	Records  RecordReader
	closer   io.Closer
}

func (s *Source) Close() error {
	var errs []error
	if closer, ok := s.Records.(io.Closer); ok {
		errs = append(errs, closer.Close())
	}
	if s.closer != nil {
		errs = append(errs, s.closer.Close())
	}
	return errors.Join(errs...)
}

// IsObjectLocation reports whether location names an object store key.
func IsObjectLocation(location string) bool {
	return strings.HasPrefix(location, objectScheme)
}

func DetectFormat(location string) (Format, error) {
	switch strings.ToLower(path.Ext(strings.TrimPrefix(location, objectScheme))) {
	case ".csv":
		return FormatCSV, nil
	case ".parquet":
		return FormatParquet, nil
	default:
		return "", fmt.Errorf("unsupported export format for %q: want .csv or .parquet", location)
	}
}

// OpenSource opens a local file or an s3://key object. objects may be nil when
// only local files are used.
func OpenSource(ctx context.Context, location string, objects storage.ObjectStore) (*Source, error) {
	format, err := DetectFormat(location)
	if err != nil {
		return nil, err
	}
	if IsObjectLocation(location) {
		return openObject(ctx, location, format, objects)
	}
	return openFile(location, format)
}

func openFile(location string, format Format) (*Source, error) {
	file, err := os.Open(filepath.Clean(location))
	if err != nil {
		return nil, fmt.Errorf("open export %q: %w", location, err)
	}
	source := &Source{Location: location, Format: format, closer: file}
	switch format {
	case FormatCSV:
		source.Records = NewCSVReader(file)
	case FormatParquet:
		stat, err := file.Stat()
		if err != nil {
			_ = file.Close()
			return nil, fmt.Errorf("stat export %q: %w", location, err)
		}
		records, err := NewParquetReader(file, stat.Size())
		if err != nil {
			_ = file.Close()
			return nil, fmt.Errorf("%s: %w", location, err)
		}
		source.Records = records
	}
	return source, nil
}

func openObject(ctx context.Context, location string, format Format, objects storage.ObjectStore) (*Source, error) {
	if objects == nil {
		return nil, errors.New("object store is not configured")
	}
	key := strings.TrimPrefix(location, objectScheme)
	body, err := objects.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("open export %q: %w", location, err)
	}
	source := &Source{Location: location, Format: format, closer: body}
	switch format {
	case FormatCSV:
		source.Records = NewCSVReader(body)
	case FormatParquet:
		// parquet footers are read first, so the object is buffered for random access
		data, err := io.ReadAll(body)
		_ = body.Close()
		if err != nil {
			return nil, fmt.Errorf("read export %q: %w", location, err)
		}
		records, err := NewParquetReader(bytes.NewReader(data), int64(len(data)))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", location, err)
		}
		source.Records = records
		source.closer = nil
	}
	return source, nil
}

// ListSources expands an s3://prefix/ location into the importable objects
// below it. Other locations are returned as they are.
func ListSources(ctx context.Context, location string, objects storage.ObjectStore) ([]string, error) {
	if !IsObjectLocation(location) || !strings.HasSuffix(location, "/") {
		return []string{location}, nil
	}
	if objects == nil {
		return nil, errors.New("object store is not configured")
	}
	items, err := objects.List(ctx, strings.TrimPrefix(location, objectScheme))
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		candidate := objectScheme + item.Key
		if _, err := DetectFormat(candidate); err != nil {
			continue
		}
		out = append(out, candidate)
	}
	return out, nil
}

// Archive copies a local export into the object store under prefix,
// partitioned by importedAt.
func Archive(ctx context.Context, location, prefix string, importedAt time.Time, objects storage.ObjectStore) (storage.ObjectInfo, error) {
	if IsObjectLocation(location) {
		return storage.ObjectInfo{}, fmt.Errorf("%q is already in the object store", location)
	}
	if objects == nil {
		return storage.ObjectInfo{}, errors.New("object store is not configured")
	}
	format, err := DetectFormat(location)
	if err != nil {
		return storage.ObjectInfo{}, err
	}
	key, err := storage.BuildArchivePath(prefix, importedAt, filepath.Base(location))
	if err != nil {
		return storage.ObjectInfo{}, err
	}
	file, err := os.Open(filepath.Clean(location))
	if err != nil {
		return storage.ObjectInfo{}, fmt.Errorf("open export %q: %w", location, err)
	}
	defer func() { _ = file.Close() }()
	stat, err := file.Stat()
	if err != nil {
		return storage.ObjectInfo{}, fmt.Errorf("stat export %q: %w", location, err)
	}

	contentType := "text/csv"
	if format == FormatParquet {
		contentType = "application/vnd.apache.parquet"
	}
	info, err := objects.Put(ctx, key, file, stat.Size(), storage.PutOptions{ContentType: contentType})
	if err != nil {
		return storage.ObjectInfo{}, fmt.Errorf("archive export %q: %w", location, err)
	}
	return info, nil
}
