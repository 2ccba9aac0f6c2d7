// Package evidence consolidates timed OCR and speech text into the
// deduplicated, budget-bounded document handed to the extraction service.
package evidence

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/agext/levenshtein"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/danang-eats/foodsync/internal/model"
	"github.com/danang-eats/foodsync/internal/stt"
)

// Options controls consolidation. Zero values fall back to the defaults
// used by the original pipeline.
type Options struct {
	// MinOCRConfidence drops OCR items below this confidence. Speech
	// segments carry no per-item confidence and are never filtered here.
	MinOCRConfidence float64

	// MaxChars bounds the total evidence text, counting one separator
	// character per line. Default 12000.
	MaxChars int

	// DedupeThreshold is the fuzzy similarity ratio (0-100) at or above
	// which a later line is considered a duplicate. Default 92.
	DedupeThreshold int
}

func (o Options) withDefaults() Options {
	if o.MaxChars <= 0 {
		o.MaxChars = 12000
	}
	if o.DedupeThreshold <= 0 {
		o.DedupeThreshold = 92
	}
	return o
}

// Pack is the consolidated evidence for one video.
type Pack struct {
	Lines      []string
	Text       string
	OCRCompact string
	STTCompact string
}

// FormatTimestamp renders seconds as mm:ss.s; nil renders as "??:??".
func FormatTimestamp(sec *float64) string {
	if sec == nil {
		return "??:??"
	}
	m := int(*sec) / 60
	s := *sec - float64(m)*60
	return fmt.Sprintf("%02d:%04.1f", m, s)
}

var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// NormalizeKey lowers a line to its comparable form: diacritics removed,
// lowercased, stripped to [a-z0-9 ], whitespace collapsed.
func NormalizeKey(s string) string {
	folded, _, err := transform.String(stripMarks, s)
	if err != nil {
		folded = s
	}
	folded = strings.ToLower(folded)

	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range folded {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteByte(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// ratio is a 0-100 fuzzy similarity between two normalized strings.
func ratio(a, b string) int {
	return int(levenshtein.Similarity(a, b, nil) * 100)
}

// linePayload strips the "[OCR ...] " / "[STT ...] " tag so dedupe compares
// the text itself; an OCR line and its spoken near-duplicate must collapse
// even though their prefixes differ.
func linePayload(line string) string {
	if i := strings.Index(line, "] "); i >= 0 {
		return line[i+2:]
	}
	return line
}

// DedupeLines removes near-duplicate lines, keeping the first occurrence.
// Each line's normalized text payload is compared against every previously
// kept normalized form, so this is O(n²); evidence sets are tens to low
// hundreds of lines, which keeps it cheap in practice. Lines whose payload
// normalizes to the empty string are dropped. The operation is idempotent.
func DedupeLines(lines []string, threshold int) []string {
	var kept []string
	var keptNorm []string
	for _, line := range lines {
		n := NormalizeKey(linePayload(line))
		if n == "" {
			continue
		}
		dup := false
		for _, kn := range keptNorm {
			if ratio(n, kn) >= threshold {
				dup = true
				break
			}
		}
		if !dup {
			kept = append(kept, line)
			keptNorm = append(keptNorm, n)
		}
	}
	return kept
}

// startRe pulls the start time back out of a rendered line prefix.
var startRe = regexp.MustCompile(`^\[(?:OCR|STT) (\d{2}):(\d{2}\.\d)-`)

// lineStartSec parses the rendered start time; lines without a parsable
// prefix sort last.
func lineStartSec(line string) float64 {
	m := startRe.FindStringSubmatch(line)
	if m == nil {
		return 1e9
	}
	mins, _ := strconv.Atoi(m[1])
	secs, _ := strconv.ParseFloat(m[2], 64)
	return float64(mins)*60 + secs
}

// Build consolidates OCR items and speech segments into an evidence pack:
// rendered, deduplicated, time-ordered, and truncated to the character
// budget. The OCR-only and STT-only compact views are each independently
// re-truncated to the same budget.
func Build(ocrItems []model.TimedText, sttSegments []stt.Segment, opts Options) Pack {
	opts = opts.withDefaults()

	var lines []string

	// OCR first: the primary signal.
	for _, it := range ocrItems {
		if it.Confidence != nil && *it.Confidence < opts.MinOCRConfidence {
			continue
		}
		text := strings.TrimSpace(it.Text)
		if text == "" {
			continue
		}
		conf := "NA"
		if it.Confidence != nil {
			conf = strconv.FormatFloat(*it.Confidence, 'g', -1, 64)
		}
		lines = append(lines, fmt.Sprintf("[OCR %s-%s conf=%s] %s",
			FormatTimestamp(it.StartSec), FormatTimestamp(it.EndSec), conf, text))
	}

	// Whisper STT second.
	for _, seg := range sttSegments {
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			continue
		}
		start, end := seg.StartSec, seg.EndSec
		lines = append(lines, fmt.Sprintf("[STT %s-%s] %s",
			FormatTimestamp(&start), FormatTimestamp(&end), text))
	}

	lines = DedupeLines(lines, opts.DedupeThreshold)

	sort.SliceStable(lines, func(i, j int) bool {
		return lineStartSec(lines[i]) < lineStartSec(lines[j])
	})

	var out []string
	total := 0
	for _, line := range lines {
		if total+len(line)+1 > opts.MaxChars {
			break
		}
		out = append(out, line)
		total += len(line) + 1
	}

	var ocrOnly, sttOnly []string
	for _, line := range out {
		switch {
		case strings.HasPrefix(line, "[OCR "):
			ocrOnly = append(ocrOnly, line)
		case strings.HasPrefix(line, "[STT "):
			sttOnly = append(sttOnly, line)
		}
	}

	return Pack{
		Lines:      out,
		Text:       strings.Join(out, "\n"),
		OCRCompact: truncateJoined(ocrOnly, opts.MaxChars),
		STTCompact: truncateJoined(sttOnly, opts.MaxChars),
	}
}

func truncateJoined(lines []string, maxChars int) string {
	s := strings.Join(lines, "\n")
	if len(s) > maxChars {
		s = s[:maxChars]
	}
	return s
}
