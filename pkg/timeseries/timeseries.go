// Package timeseries loads univariate series from CSV, JSON and plain
// text files for anomaly detection.
package timeseries

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
)

// DefaultMaxBytes caps input files at 256 MiB. A denser format than text
// is advisable long before that.
const DefaultMaxBytes = 256 << 20

// Loader errors.
var (
	// ErrEmptySeries reports an input with no usable values.
	ErrEmptySeries = errors.New("series is empty")

	// ErrFileTooLarge reports an input exceeding the loader's byte cap.
	ErrFileTooLarge = errors.New("file too large")

	// ErrBadValue reports an input token that does not parse as a number.
	ErrBadValue = errors.New("bad value")
)

// Series is a named sequence of equally spaced observations.
type Series struct {
	Name   string    `json:"name,omitempty"`
	Values []float64 `json:"values"`
}

// Len returns the number of observations.
func (s *Series) Len() int {
	return len(s.Values)
}

// Loader reads series files with a size cap.
type Loader struct {
	// MaxBytes rejects files larger than this many bytes.
	MaxBytes int64
}

// NewLoader returns a Loader with the default size cap.
func NewLoader() *Loader {
	return &Loader{MaxBytes: DefaultMaxBytes}
}

// Load reads the series at path. See Loader.Load.
func Load(path string) (*Series, error) {
	return NewLoader().Load(path)
}

// Load reads the series at path, dispatching on the file extension:
// .csv and .json get format-specific parsing, anything else is read as
// one value per line.
func (l *Loader) Load(path string) (*Series, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat series file: %w", err)
	}

	if l.MaxBytes > 0 && info.Size() > l.MaxBytes {
		return nil, fmt.Errorf("%w: %s is %s, cap is %s", ErrFileTooLarge,
			path, humanize.IBytes(uint64(info.Size())), humanize.IBytes(uint64(l.MaxBytes)))
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open series file: %w", err)
	}
	defer file.Close()

	series, err := l.read(file, filepath.Ext(path))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	if series.Name == "" {
		series.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}

	return series, nil
}

func (l *Loader) read(r io.Reader, ext string) (*Series, error) {
	switch strings.ToLower(ext) {
	case ".csv":
		return ReadCSV(r)
	case ".json":
		return ReadJSON(r)
	default:
		return ReadLines(r)
	}
}

// ReadCSV reads a series from CSV. Single-column rows are plain values;
// multi-column rows contribute their last column, so timestamp,value
// layouts work unchanged. A non-numeric first row is treated as a header
// and names the series after its last column.
func ReadCSV(r io.Reader) (*Series, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	series := &Series{}
	first := true

	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			return nil, fmt.Errorf("csv read: %w", err)
		}

		if len(record) == 0 {
			continue
		}

		raw := strings.TrimSpace(record[len(record)-1])

		value, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			if first {
				series.Name = raw
				first = false

				continue
			}

			return nil, fmt.Errorf("%w: %q", ErrBadValue, raw)
		}

		first = false
		series.Values = append(series.Values, value)
	}

	if len(series.Values) == 0 {
		return nil, ErrEmptySeries
	}

	return series, nil
}

// ReadJSON reads a series from JSON, either a bare array of numbers or an
// object with name and values fields.
func ReadJSON(r io.Reader) (*Series, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("json read: %w", err)
	}

	var values []float64
	if err := json.Unmarshal(data, &values); err == nil {
		if len(values) == 0 {
			return nil, ErrEmptySeries
		}

		return &Series{Values: values}, nil
	}

	var series Series
	if err := json.Unmarshal(data, &series); err != nil {
		return nil, fmt.Errorf("json decode: %w", err)
	}

	if len(series.Values) == 0 {
		return nil, ErrEmptySeries
	}

	return &series, nil
}

// ReadLines reads one value per line, skipping blank lines and lines
// starting with #.
func ReadLines(r io.Reader) (*Series, error) {
	scanner := bufio.NewScanner(r)
	series := &Series{}

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		value, err := strconv.ParseFloat(line, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrBadValue, line)
		}

		series.Values = append(series.Values, value)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan lines: %w", err)
	}

	if len(series.Values) == 0 {
		return nil, ErrEmptySeries
	}

	return series, nil
}
