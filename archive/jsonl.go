package archive

import (
	"bufio"
	"compress/gzip"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/m-lab/go/warnonerror"

	"github.com/m-lab/ccstats/model"
)

// ErrNoHeader is returned when a JSONL archive does not start with a Header.
var ErrNoHeader = errors.New("archive has no header")

// jsonlFile is a gzip compressed JSON lines file.
type jsonlFile struct {
	fp   *os.File
	gzip *gzip.Writer
	enc  *json.Encoder
}

func newJSONLFile(name string) (*jsonlFile, error) {
	if err := os.MkdirAll(filepath.Dir(name), 0755); err != nil {
		return nil, err
	}
	// The name has nanosecond precision and a random id. If they still
	// collide, O_EXCL will let us know.
	fp, err := os.OpenFile(name, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return nil, err
	}
	writer, err := gzip.NewWriterLevel(fp, gzip.BestSpeed)
	if err != nil {
		fp.Close()
		return nil, err
	}
	return &jsonlFile{fp: fp, gzip: writer, enc: json.NewEncoder(writer)}, nil
}

// Close flushes the compressed stream and closes the file.
func (f *jsonlFile) Close() error {
	if err := f.gzip.Close(); err != nil {
		f.fp.Close()
		return err
	}
	return f.fp.Close()
}

func writeJSONL(datadir string, header *Header, run *model.Run) (string, error) {
	name := fileName(datadir, run, header.RunID, "jsonl.gz")
	f, err := newJSONLFile(name)
	if err != nil {
		return "", err
	}
	err = f.enc.Encode(header)
	for i := 0; err == nil && i < len(run.Records); i++ {
		err = f.enc.Encode(NewRow(header.RunID, run, &run.Records[i]))
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(name)
		return "", err
	}
	return name, nil
}

// ReadJSONL reads a JSONL archive. Uncompressed files are accepted when the
// name does not end in .gz.
func ReadJSONL(name string) (*Header, []Row, error) {
	fp, err := os.Open(name)
	if err != nil {
		return nil, nil, err
	}
	defer warnonerror.Close(fp, "archive: cannot close "+name)
	var r io.Reader = fp
	if strings.HasSuffix(name, ".gz") {
		gz, err := gzip.NewReader(fp)
		if err != nil {
			return nil, nil, err
		}
		defer gz.Close()
		r = gz
	}
	dec := json.NewDecoder(bufio.NewReader(r))
	var header Header
	if err := dec.Decode(&header); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrNoHeader, err)
	}
	if header.SchemaVersion == 0 {
		return nil, nil, ErrNoHeader
	}
	var rows []Row
	for {
		var row Row
		err := dec.Decode(&row)
		if err == io.EOF {
			break
		}
		if err != nil {
			return &header, rows, err
		}
		rows = append(rows, row)
	}
	return &header, rows, nil
}
