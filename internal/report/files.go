package report

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/copyleftdev/ridge/internal/errors"
)

// WriteJSON writes the complete bundle as indented JSON.
func WriteJSON(w io.Writer, b *Bundle) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(b); err != nil {
		return errors.Wrap(err, "encode bundle").WithComponent("report").WithOperation("WriteJSON")
	}
	return nil
}

// WriteCSV writes one row per attempt with the six energy terms.
func WriteCSV(w io.Writer, b *Bundle) error {
	cw := csv.NewWriter(w)
	header := []string{"attempt", "total_energy", "ridge_energy", "constr_1", "constr_2", "constr_3", "constr_4", "best"}
	if err := cw.Write(header); err != nil {
		return errors.Wrap(err, "write header").WithComponent("report").WithOperation("WriteCSV")
	}

	h := b.Histories
	for i := range h.Total {
		row := []string{
			strconv.Itoa(b.Records[i].Attempt),
			ftoa(h.Total[i]),
			ftoa(h.Ridge[i]),
			ftoa(h.Constr1[i]),
			ftoa(h.Constr2[i]),
			ftoa(h.Constr3[i]),
			ftoa(h.Constr4[i]),
			strconv.FormatBool(i == b.BestAttempt),
		}
		if err := cw.Write(row); err != nil {
			return errors.Wrapf(err, "write attempt %d", i).WithComponent("report").WithOperation("WriteCSV")
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return errors.Wrap(err, "flush").WithComponent("report").WithOperation("WriteCSV")
	}
	return nil
}

func ftoa(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// FileReporter persists the bundle as <Dir>/<name>.json and <Dir>/<name>.csv.
type FileReporter struct {
	Dir string
}

// Report implements Reporter.
func (r FileReporter) Report(b *Bundle) error {
	_, err := SaveArtifacts(r.Dir, b)
	return err
}

// SaveArtifacts writes the JSON and CSV artifacts of b into dir, creating
// it if needed, and returns their paths.
func SaveArtifacts(dir string, b *Bundle) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "create artifact directory").WithComponent("report")
	}

	writers := []struct {
		ext   string
		write func(io.Writer, *Bundle) error
	}{
		{".json", WriteJSON},
		{".csv", WriteCSV},
	}

	paths := make([]string, 0, len(writers))
	for _, wr := range writers {
		path := filepath.Join(dir, b.Name+wr.ext)
		if err := writeFile(path, b, wr.write); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// writeFile writes to a temporary file and renames it into place.
func writeFile(path string, b *Bundle, write func(io.Writer, *Bundle) error) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return errors.Wrapf(err, "create %s", tmp).WithComponent("report")
	}

	if err := write(f, b); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return errors.Wrapf(err, "close %s", tmp).WithComponent("report")
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return errors.Wrapf(err, "rename %s", tmp).WithComponent("report")
	}
	return nil
}

// OpenRunLog creates <dir>/<name>.txt for a copy of the run's console
// output.
func OpenRunLog(dir, name string) (*os.File, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "create log directory").WithComponent("report")
	}
	f, err := os.Create(filepath.Join(dir, name+".txt"))
	if err != nil {
		return nil, errors.Wrap(err, "create run log").WithComponent("report")
	}
	return f, nil
}
