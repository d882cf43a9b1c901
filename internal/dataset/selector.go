// Package dataset supplies realistic parameter values for request
// generation: aircraft and ship identifiers, countries, and write payloads.
package dataset

import (
	"bufio"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Tag names a specific identifier pool.
type Tag string

const (
	TagModeS   Tag = "mode_s"
	TagMMSI    Tag = "mmsi"
	TagCountry Tag = "country"
)

var syntheticCountries = []string{
	"USA", "China", "Russia", "United Kingdom", "France",
	"Germany", "Japan", "India", "Italy", "Canada",
}

// WritePayload is the JSON body posted to a write QueryKind.
type WritePayload struct {
	TrackID      string `json:"track_id"`
	EventType    string `json:"event_type"`
	Domain       string `json:"domain"`
	ModeS        string `json:"mode_s,omitempty"`
	MMSI         string `json:"mmsi,omitempty"`
	ActivityType string `json:"activity_type"`
}

// Selector draws parameter values uniformly at random from a pool, falling
// back to a synthetic generator when a pool is empty. It is safe for
// concurrent use; a Selector constructed with the same seed always draws the
// same sequence of values for a given call order.
type Selector struct {
	mu   sync.Mutex
	rng  *rand.Rand
	pool map[Tag][]string

	// SyntheticUsed becomes true the first time any pool falls back to the
	// synthetic generator; the caller surfaces it as session metadata
	// (synthetic_data_used).
	SyntheticUsed bool
}

// New builds a Selector seeded deterministically. Pass a value from
// crypto/rand or time for a non-reproducible run, or a fixed constant (the
// --seed CLI flag) for reproducible sequences.
func New(seed int64) *Selector {
	return &Selector{
		rng:  rand.New(rand.NewSource(seed)),
		pool: map[Tag][]string{},
	}
}

// LoadPools reads <dir>/mode_s.txt, <dir>/mmsi.txt and <dir>/countries.txt,
// one value per line, blank lines and lines starting with "#" skipped. A
// missing or empty file is not an error: it is downgraded to a warning on
// log, and that pool stays empty so PickX falls back to the synthetic
// generator.
func (s *Selector) LoadPools(dir string, log zerolog.Logger) error {
	files := map[Tag]string{
		TagModeS:   filepath.Join(dir, "mode_s.txt"),
		TagMMSI:    filepath.Join(dir, "mmsi.txt"),
		TagCountry: filepath.Join(dir, "countries.txt"),
	}
	for tag, path := range files {
		values, err := readPoolFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				log.Warn().Str("pool", string(tag)).Str("path", path).Msg("dataset: pool file missing, falling back to synthetic generator")
				continue
			}
			return fmt.Errorf("dataset: loading pool %s: %w", path, err)
		}
		if len(values) == 0 {
			log.Warn().Str("pool", string(tag)).Str("path", path).Msg("dataset: pool file empty, falling back to synthetic generator")
			continue
		}
		s.mu.Lock()
		s.pool[tag] = values
		s.mu.Unlock()
	}
	return nil
}

func readPoolFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return out, scanner.Err()
}

// PickIdentifier returns a value from the pool for the given tag, falling
// back to the synthetic generator when the pool is empty.
func (s *Selector) PickIdentifier(tag Tag) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if values := s.pool[tag]; len(values) > 0 {
		return values[s.rng.Intn(len(values))]
	}
	s.SyntheticUsed = true
	switch tag {
	case TagModeS:
		return fmt.Sprintf("A%05d", s.rng.Intn(100000))
	case TagMMSI:
		return fmt.Sprintf("%09d", s.rng.Intn(1_000_000_000))
	default:
		return ""
	}
}

// PickCountry returns a country name, falling back to a small synthetic list
// when no pool file was loaded.
func (s *Selector) PickCountry() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if values := s.pool[TagCountry]; len(values) > 0 {
		return values[s.rng.Intn(len(values))]
	}
	s.SyntheticUsed = true
	return syntheticCountries[s.rng.Intn(len(syntheticCountries))]
}

// PickWritePayload builds a semantically valid write body for a write
// endpoint. kindTag distinguishes activity_log-style payloads from
// relationship_write-style ones.
func (s *Selector) PickWritePayload(kindTag string) WritePayload {
	s.mu.Lock()
	trackNum := s.rng.Intn(9000) + 1000
	s.mu.Unlock()

	p := WritePayload{
		TrackID:   fmt.Sprintf("BENCH-%04d-%s", trackNum, s.seededUUID()),
		EventType: "activity_detected",
		Domain:    "AIR",
	}
	if kindTag == "relationship_write" {
		p.EventType = "relationship_detected"
		p.Domain = "CROSS"
		p.ActivityType = "relationship_benchmark_test"
		p.MMSI = s.PickIdentifier(TagMMSI)
		p.ModeS = s.PickIdentifier(TagModeS)
		return p
	}
	p.ActivityType = "benchmark_test"
	p.ModeS = s.PickIdentifier(TagModeS)
	return p
}

// seededUUID derives a UUID from the Selector's own PRNG so that write
// payloads remain reproducible under a fixed seed, instead of drawing from
// uuid.New()'s global entropy source.
func (s *Selector) seededUUID() string {
	var buf [16]byte
	s.mu.Lock()
	s.rng.Read(buf[:])
	s.mu.Unlock()
	id, err := uuid.FromBytes(buf[:])
	if err != nil {
		return uuid.New().String()
	}
	return id.String()
}
