package granola

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"

	"followup/internal/content"
	"followup/internal/logging"
)

// Snapshot is the normalized content of one cache read.
type Snapshot struct {
	Path        string
	Documents   map[string]Document
	Transcripts map[string][]content.TranscriptSegment
}

// Sorted returns documents ordered by start time, newest first.
func (s Snapshot) Sorted() []Document {
	docs := make([]Document, 0, len(s.Documents))
	for _, doc := range s.Documents {
		docs = append(docs, doc)
	}
	sort.SliceStable(docs, func(i, j int) bool {
		ti, tj := docs[i].StartTime(), docs[j].StartTime()
		if ti.Equal(tj) {
			return docs[i].ID < docs[j].ID
		}
		return ti.After(tj)
	})
	return docs
}

// Transcript returns the cached transcript segments for id, if any.
func (s Snapshot) Transcript(id string) []content.TranscriptSegment {
	if s.Transcripts == nil {
		return nil
	}
	return s.Transcripts[id]
}

// Reader loads snapshots from the cache directory or a pinned file.
type Reader struct {
	dir      string
	file     string
	decoders []EnvelopeDecoder
	logger   *slog.Logger
}

// NewReader builds a reader. When file is non-empty it is used as-is and
// version discovery in dir is skipped.
func NewReader(dir, file string, logger *slog.Logger, decoders ...EnvelopeDecoder) *Reader {
	if len(decoders) == 0 {
		decoders = DefaultDecoders
	}
	return &Reader{
		dir:      dir,
		file:     strings.TrimSpace(file),
		decoders: decoders,
		logger:   logging.NewComponentLogger(logger, "granola-cache"),
	}
}

// Read locates and parses the cache. Every failure wraps ErrNoCache.
func (r *Reader) Read() (Snapshot, error) {
	path := r.file
	if path == "" {
		located, err := LocateCache(r.dir)
		if err != nil {
			return Snapshot{}, err
		}
		path = located
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Snapshot{}, fmt.Errorf("%w: read %s: %w", ErrNoCache, path, err)
	}
	snapshot, err := Parse(data, r.decoders)
	if err != nil {
		return Snapshot{}, fmt.Errorf("%w: %s: %w", ErrNoCache, path, err)
	}
	snapshot.Path = path
	r.logger.Debug("cache parsed",
		logging.String("path", path),
		logging.Int("documents", len(snapshot.Documents)),
		logging.Int("transcripts", len(snapshot.Transcripts)))
	return snapshot, nil
}

// Parse decodes raw cache file bytes into a Snapshot.
func Parse(data []byte, decoders []EnvelopeDecoder) (Snapshot, error) {
	outer, err := decodeObject(data)
	if err != nil {
		return Snapshot{}, fmt.Errorf("decode cache file: %w", err)
	}
	rawCache, ok := outer["cache"]
	if !ok {
		return Snapshot{}, errors.New("cache file has no cache field")
	}
	payload, err := DecodeEmbedded(rawCache, decoders)
	if err != nil {
		return Snapshot{}, err
	}

	stateRaw, err := locateState(payload)
	if err != nil {
		return Snapshot{}, err
	}

	var state map[string]any
	if err := json.Unmarshal(stateRaw, &state); err != nil {
		return Snapshot{}, fmt.Errorf("decode cache state: %w", err)
	}

	snapshot := Snapshot{
		Documents:   map[string]Document{},
		Transcripts: map[string][]content.TranscriptSegment{},
	}
	if docs, ok := lookup(state, "documents"); ok {
		if byKey, ok := docs.(map[string]any); ok {
			for key, node := range byKey {
				doc := documentFromRaw(key, node)
				if doc.ID == "" {
					continue
				}
				snapshot.Documents[doc.ID] = doc
			}
		}
	}
	if transcripts, ok := lookup(state, "transcripts"); ok {
		if byKey, ok := transcripts.(map[string]any); ok {
			for key, node := range byKey {
				if segments := segmentsFromRaw(node); len(segments) > 0 {
					snapshot.Transcripts[key] = segments
				}
			}
		}
	}
	return snapshot, nil
}

// locateState finds the meeting state under "state" or at the top level.
func locateState(payload map[string]json.RawMessage) (json.RawMessage, error) {
	if raw, ok := payload["state"]; ok && !isNull(raw) {
		var probe map[string]json.RawMessage
		if err := json.Unmarshal(raw, &probe); err != nil || probe == nil {
			return nil, errors.New("cache state is not an object")
		}
		return raw, nil
	}
	if _, ok := payload["documents"]; ok {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("re-encode cache payload: %w", err)
		}
		return data, nil
	}
	return nil, errors.New("cache payload has neither state nor documents")
}

func isNull(raw json.RawMessage) bool {
	return strings.TrimSpace(string(raw)) == "null"
}

func segmentsFromRaw(node any) []content.TranscriptSegment {
	items, ok := node.([]any)
	if !ok {
		return nil
	}
	segments := make([]content.TranscriptSegment, 0, len(items))
	for _, item := range items {
		seg := content.TranscriptSegment{
			Text:   lookupString(item, "text"),
			Source: lookupString(item, "source"),
		}
		if ts := parseTimestamp(lookupString(item, "start_timestamp")); !ts.IsZero() {
			seg.Start = ts
		}
		segments = append(segments, seg)
	}
	return segments
}
