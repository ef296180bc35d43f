// Package roster loads the participant list the kiosk draws from.
package roster

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"kiosk-lottery/internal/models"

	"github.com/google/logger"
)

// Roster holds the participants of the current session.
type Roster struct {
	mu           sync.RWMutex
	participants []models.Participant
}

// New returns a roster holding participants, deduplicated by id.
func New(participants []models.Participant) *Roster {
	r := &Roster{}
	r.Replace(participants)
	return r
}

// Load reads path and never fails: a missing or malformed file gives an
// empty roster and a warning.
func Load(path string) *Roster {
	participants, err := ReadFile(path)
	if err != nil {
		logger.Warningf("roster unavailable, continuing with no participants: %v", err)
		return New(nil)
	}
	logger.Infof("roster loaded: %d participants from %s", len(participants), path)
	return New(participants)
}

// Participants returns a copy of the roster.
func (r *Roster) Participants() []models.Participant {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]models.Participant(nil), r.participants...)
}

// Len returns the number of participants.
func (r *Roster) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.participants)
}

// Replace swaps in a new participant list. Later duplicates of an id are dropped.
func (r *Roster) Replace(participants []models.Participant) {
	seen := make(map[string]bool, len(participants))
	list := make([]models.Participant, 0, len(participants))
	for _, p := range participants {
		if p.ID == "" || seen[p.ID] {
			continue
		}
		seen[p.ID] = true
		list = append(list, p)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.participants = list
}

// ReadFile parses a .json or .csv roster file.
func ReadFile(path string) ([]models.Participant, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return ParseJSON(f)
	case ".csv":
		return ParseCSV(f)
	default:
		return nil, fmt.Errorf("unsupported roster format %q", filepath.Ext(path))
	}
}

// ParseJSON reads an array of {id, name, dept}.
func ParseJSON(r io.Reader) ([]models.Participant, error) {
	var participants []models.Participant
	if err := json.NewDecoder(r).Decode(&participants); err != nil {
		return nil, fmt.Errorf("decode roster: %w", err)
	}
	return participants, nil
}

// ParseCSV reads rows of id,name[,dept]. A header line and malformed rows are skipped.
func ParseCSV(r io.Reader) ([]models.Participant, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var participants []models.Participant
	for line := 1; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read roster csv: %w", err)
		}

		if line == 1 && len(record) > 0 {
			record[0] = strings.TrimPrefix(record[0], "\ufeff")
			if isHeader(record) {
				continue
			}
		}
		if len(record) < 2 || len(record) > 3 {
			logger.Infof("Skipping malformed participant CSV record: %v", record)
			continue
		}
		id, name := strings.TrimSpace(record[0]), strings.TrimSpace(record[1])
		if id == "" || name == "" {
			logger.Infof("Skipping participant CSV record without id or name: %v", record)
			continue
		}
		p := models.Participant{ID: id, Name: name}
		if len(record) == 3 {
			p.Dept = strings.TrimSpace(record[2])
		}
		participants = append(participants, p)
	}
	return participants, nil
}

// isHeader reports whether a first row is column titles rather than a person.
func isHeader(record []string) bool {
	if len(record) < 2 {
		return false
	}
	id := strings.ToLower(strings.TrimSpace(record[0]))
	name := strings.ToLower(strings.TrimSpace(record[1]))
	return (id == "id" || id == "编号" || id == "员工编号") && (name == "name" || name == "姓名" || name == "员工姓名")
}
