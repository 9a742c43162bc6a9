package dataset

import (
	"archive/tar"
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Record is an image paired with its class label from a WebDataset shard.
type Record struct {
	Key   string
	Image []byte
	Label int
}

// ErrPendingOverflow indicates the pairing map exceeded the configured bound.
var ErrPendingOverflow = errors.New("webdataset: pending pair buffer exceeded")

const defaultPendingCap = 1024

// ReadShard returns the paired records of the shard at path in the order
// their pairs complete. Unknown extensions are skipped.
func ReadShard(path string, pendingCap int) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open shard: %w", err)
	}
	defer f.Close()
	records, err := readRecords(bufio.NewReader(f), pendingCap)
	if err != nil {
		return nil, fmt.Errorf("shard %s: %w", path, err)
	}
	return records, nil
}

func readRecords(r io.Reader, pendingCap int) ([]Record, error) {
	if pendingCap <= 0 {
		pendingCap = defaultPendingCap
	}
	tr := tar.NewReader(r)
	pending := make(map[string]*partial)
	var records []Record

	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read tar: %w", err)
		}
		if hdr.FileInfo().IsDir() {
			continue
		}
		name := filepath.Base(hdr.Name)
		ext := strings.ToLower(filepath.Ext(name))
		key := strings.TrimSuffix(name, filepath.Ext(name))

		switch ext {
		case ".jpg", ".jpeg", ".png":
			data, err := io.ReadAll(tr)
			if err != nil {
				return nil, fmt.Errorf("read image %s: %w", name, err)
			}
			pendingFor(pending, key).image = data
		case ".cls":
			payload, err := io.ReadAll(tr)
			if err != nil {
				return nil, fmt.Errorf("read label %s: %w", name, err)
			}
			label, err := strconv.Atoi(strings.TrimSpace(string(payload)))
			if err != nil {
				return nil, fmt.Errorf("parse label %s: %w", name, err)
			}
			pendingFor(pending, key).label = &label
		default:
			continue
		}

		if len(pending) > pendingCap {
			return nil, ErrPendingOverflow
		}
		if part := pending[key]; part.ready() {
			records = append(records, Record{Key: key, Image: part.image, Label: *part.label})
			delete(pending, key)
		}
	}

	if len(pending) > 0 {
		return nil, fmt.Errorf("%d samples incomplete", len(pending))
	}
	return records, nil
}

type partial struct {
	image []byte
	label *int
}

func pendingFor(pending map[string]*partial, key string) *partial {
	part := pending[key]
	if part == nil {
		part = &partial{}
		pending[key] = part
	}
	return part
}

func (p *partial) ready() bool {
	return len(p.image) > 0 && p.label != nil
}
