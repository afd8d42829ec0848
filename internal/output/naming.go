package output

import (
	"fmt"
	"math"
	"strings"
	"time"
)

const (
	// DefaultSequenceTemplate names still sequences and movies.
	DefaultSequenceTemplate = "%Y/%m/%d/%H%M/[cam] [tl] [i].png"
	// DefaultSaveTemplate names single saved frames.
	DefaultSaveTemplate = "%Y/%m/%d/%H%M [cam] [tl].png"
)

// NameParams fills the placeholders of a file name template.
type NameParams struct {
	Camera      string
	TrainLength string
	// Index and Count number a frame within a sequence. Index < 0 leaves
	// [i] untouched.
	Index int
	Count int
	Time  time.Time
}

// ExpandTemplate substitutes strftime-style date verbs from p.Time and the
// [cam], [tl] and [i] placeholders.
func ExpandTemplate(tmpl string, p NameParams) string {
	out := expandDate(tmpl, p.Time)
	out = strings.ReplaceAll(out, "[cam]", p.Camera)
	out = strings.ReplaceAll(out, "[tl]", p.TrainLength)
	if p.Index >= 0 {
		out = strings.ReplaceAll(out, "[i]", PadIndex(p.Index, p.Count))
	}
	return out
}

// PadIndex zero-pads i to floor(log10(count))+1 digits, the width of the
// sequence length. Counts below 1 fall back to two digits.
func PadIndex(i, count int) string {
	width := 2
	if count >= 1 {
		width = int(math.Log10(float64(count))) + 1
	}
	return fmt.Sprintf("%0*d", width, i)
}

// MovieName swaps a trailing .png for .mp4, appending it otherwise.
func MovieName(name string) string {
	if base, ok := strings.CutSuffix(name, ".png"); ok {
		return base + ".mp4"
	}
	if strings.HasSuffix(name, ".mp4") {
		return name
	}
	return name + ".mp4"
}

var dateVerbs = map[byte]string{
	'Y': "2006",
	'y': "06",
	'm': "01",
	'd': "02",
	'H': "15",
	'M': "04",
	'S': "05",
	'b': "Jan",
	'a': "Mon",
}

func expandDate(tmpl string, t time.Time) string {
	if !strings.Contains(tmpl, "%") {
		return tmpl
	}
	var b strings.Builder
	for i := 0; i < len(tmpl); i++ {
		c := tmpl[i]
		if c != '%' || i+1 == len(tmpl) {
			b.WriteByte(c)
			continue
		}
		next := tmpl[i+1]
		if next == '%' {
			b.WriteByte('%')
			i++
			continue
		}
		layout, ok := dateVerbs[next]
		if !ok {
			b.WriteByte(c)
			continue
		}
		b.WriteString(t.Format(layout))
		i++
	}
	return b.String()
}
