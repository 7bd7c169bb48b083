package archive

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/m-lab/go/warnonerror"
	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/reader"
	"github.com/xitongsys/parquet-go/writer"

	"github.com/m-lab/ccstats/model"
)

// parquetParallelism is the number of goroutines used to encode and decode
// Parquet pages.
const parquetParallelism = 4

func writeParquet(datadir, id string, run *model.Run) (string, error) {
	name := fileName(datadir, run, id, "parquet")
	if err := os.MkdirAll(filepath.Dir(name), 0755); err != nil {
		return "", err
	}
	file, err := local.NewLocalFileWriter(name)
	if err != nil {
		return "", fmt.Errorf("failed to create parquet file: %w", err)
	}
	pw, err := writer.NewParquetWriter(file, new(Row), parquetParallelism)
	if err != nil {
		file.Close()
		os.Remove(name)
		return "", fmt.Errorf("failed to create parquet writer: %w", err)
	}
	for i := range run.Records {
		if err = pw.Write(NewRow(id, run, &run.Records[i])); err != nil {
			err = fmt.Errorf("failed to write row: %w", err)
			break
		}
	}
	if err == nil {
		if err = pw.WriteStop(); err != nil {
			err = fmt.Errorf("failed to stop parquet writer: %w", err)
		}
	}
	if cerr := file.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("failed to close parquet file: %w", cerr)
	}
	if err != nil {
		os.Remove(name)
		return "", err
	}
	return name, nil
}

// ReadParquet reads every row of a Parquet archive.
func ReadParquet(name string) ([]Row, error) {
	file, err := local.NewLocalFileReader(name)
	if err != nil {
		return nil, err
	}
	defer warnonerror.Close(file, "archive: cannot close "+name)
	pr, err := reader.NewParquetReader(file, new(Row), parquetParallelism)
	if err != nil {
		return nil, fmt.Errorf("failed to create parquet reader: %w", err)
	}
	defer pr.ReadStop()
	rows := make([]Row, pr.GetNumRows())
	if len(rows) == 0 {
		return nil, nil
	}
	if err := pr.Read(&rows); err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}
	return rows, nil
}
