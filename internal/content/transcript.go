package content

import (
	"strings"
	"time"
)

const (
	// SourceMicrophone marks audio captured from the owner's microphone.
	SourceMicrophone = "microphone"
	// SourceSystem marks audio captured from the call's system output.
	SourceSystem = "system"
)

// TranscriptSegment is one recognized utterance.
type TranscriptSegment struct {
	Text   string    `json:"text"`
	Source string    `json:"source"`
	Start  time.Time `json:"-"`
}

// FormatTranscript merges segments into "Me:" and "Them:" turns. When
// requireAttribution is set and fewer than two distinct sources produced
// text, speakers cannot be told apart and the result is empty.
func FormatTranscript(segments []TranscriptSegment, requireAttribution bool) string {
	sources := map[string]struct{}{}
	for _, seg := range segments {
		if strings.TrimSpace(seg.Text) == "" {
			continue
		}
		sources[strings.ToLower(strings.TrimSpace(seg.Source))] = struct{}{}
	}
	if len(sources) == 0 {
		return ""
	}
	if requireAttribution && len(sources) < 2 {
		return ""
	}

	var (
		turns   []string
		speaker string
		current []string
	)
	flush := func() {
		if speaker != "" && len(current) > 0 {
			turns = append(turns, speaker+": "+strings.Join(current, " "))
		}
		current = nil
	}
	for _, seg := range segments {
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			continue
		}
		label := speakerLabel(seg.Source)
		if label != speaker {
			flush()
			speaker = label
		}
		current = append(current, text)
	}
	flush()
	return strings.Join(turns, "\n")
}

func speakerLabel(source string) string {
	if strings.EqualFold(strings.TrimSpace(source), SourceMicrophone) {
		return "Me"
	}
	return "Them"
}

// Payload is the text handed to the draft generator.
type Payload struct {
	Notes      string
	Transcript string
}

// Text combines notes and transcript into a single model input.
func (p Payload) Text() string {
	notes := strings.TrimSpace(p.Notes)
	transcript := strings.TrimSpace(p.Transcript)
	switch {
	case notes != "" && transcript != "":
		return "NOTES:\n" + notes + "\n\nTRANSCRIPT:\n" + transcript
	case transcript != "":
		return "TRANSCRIPT:\n" + transcript
	default:
		return notes
	}
}

// Empty reports whether the payload carries no text at all.
func (p Payload) Empty() bool {
	return strings.TrimSpace(p.Notes) == "" && strings.TrimSpace(p.Transcript) == ""
}
