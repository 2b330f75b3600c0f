package overlay

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// MarkerFile records how an overlay tree was built.
const MarkerFile = ".veneer.json"

type marker struct {
	Source      string `json:"source"`
	SourcePath  string `json:"source_path"`
	Fingerprint string `json:"fingerprint"`
}

// State tracks the overlay owned by one manager.
type State struct {
	Dir         string
	SourceTheme string
	Fingerprint uint64
	// BuiltAt is the modification time of the marker file.
	BuiltAt time.Time
	Active  bool

	// Snapshot is set while OriginalGTK/OriginalShell hold the themes to
	// restore.
	Snapshot      bool
	OriginalGTK   string
	OriginalShell string
}

// LoadState reads the marker of the overlay at dir. A missing or
// unreadable marker yields a State with only Dir set.
func LoadState(dir string) State {
	st := State{Dir: dir}
	m, builtAt, err := readMarker(dir)
	if err != nil {
		return st
	}
	st.SourceTheme = m.Source
	st.Fingerprint = parseFingerprint(m.Fingerprint)
	st.BuiltAt = builtAt
	return st
}

// Record updates the state after a successful build.
func (s *State) Record(res Result, source string) {
	s.Dir = res.Dir
	s.SourceTheme = source
	s.Fingerprint = res.Fingerprint
	if info, err := os.Stat(filepath.Join(res.Dir, MarkerFile)); err == nil {
		s.BuiltAt = info.ModTime()
	}
}

func readMarker(dir string) (marker, time.Time, error) {
	path := filepath.Join(dir, MarkerFile)
	data, err := os.ReadFile(path) // #nosec G304 - Marker inside the overlay directory
	if err != nil {
		return marker{}, time.Time{}, err
	}
	var m marker
	if err := json.Unmarshal(data, &m); err != nil {
		return marker{}, time.Time{}, fmt.Errorf("invalid overlay marker %s: %w", path, err)
	}
	info, err := os.Stat(path)
	if err != nil {
		return marker{}, time.Time{}, err
	}
	return m, info.ModTime(), nil
}

func encodeMarker(m marker) ([]byte, error) {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode overlay marker: %w", err)
	}
	return append(data, '\n'), nil
}

func formatFingerprint(fp uint64) string {
	return fmt.Sprintf("%016x", fp)
}

func parseFingerprint(s string) uint64 {
	fp, err := strconv.ParseUint(s, 16, 64)
	if err != nil {
		return 0
	}
	return fp
}
