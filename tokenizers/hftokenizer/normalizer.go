package hftokenizer

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/gomlx/go-encodings/encoding"
	"github.com/pkg/errors"
	"golang.org/x/text/unicode/norm"
	"k8s.io/klog/v2"
)

// normalizedString is the transformed version of a piece of the original text. For each of its bytes
// it keeps the range of original bytes it came from, so tokens can be mapped back to the input.
type normalizedString struct {
	text       string
	alignments []encoding.Offsets
}

// newNormalizedString starts from original, a piece of the input text that starts at byte base.
func newNormalizedString(original string, base int) *normalizedString {
	ns := &normalizedString{text: original, alignments: make([]encoding.Offsets, len(original))}
	for i := 0; i < len(original); {
		_, size := utf8.DecodeRuneInString(original[i:])
		for j := range size {
			ns.alignments[i+j] = encoding.Offsets{Start: base + i, End: base + i + size}
		}
		i += size
	}
	return ns
}

// original returns the range of the original text the normalized bytes [start, end) come from.
func (ns *normalizedString) original(start, end int) encoding.Offsets {
	if start >= end {
		if start < len(ns.alignments) {
			pos := ns.alignments[start].Start
			return encoding.Offsets{Start: pos, End: pos}
		}
		if len(ns.alignments) > 0 {
			pos := ns.alignments[len(ns.alignments)-1].End
			return encoding.Offsets{Start: pos, End: pos}
		}
		return encoding.Offsets{}
	}
	return encoding.Offsets{Start: ns.alignments[start].Start, End: ns.alignments[end-1].End}
}

// rebuild accumulates a new normalized text with its alignments.
type rebuild struct {
	sb         strings.Builder
	alignments []encoding.Offsets
}

func (r *rebuild) write(s string, origin encoding.Offsets) {
	r.sb.WriteString(s)
	for range len(s) {
		r.alignments = append(r.alignments, origin)
	}
}

func (r *rebuild) writeAligned(ns *normalizedString, start, end int) {
	r.sb.WriteString(ns.text[start:end])
	r.alignments = append(r.alignments, ns.alignments[start:end]...)
}

func (r *rebuild) into(ns *normalizedString) {
	ns.text, ns.alignments = r.sb.String(), r.alignments
}

// mapRunes replaces each rune by fn(rune): all bytes produced are aligned with the original rune.
func (ns *normalizedString) mapRunes(fn func(r rune) string) {
	var out rebuild
	out.alignments = make([]encoding.Offsets, 0, len(ns.alignments))
	for i := 0; i < len(ns.text); {
		r, size := utf8.DecodeRuneInString(ns.text[i:])
		out.write(fn(r), ns.original(i, i+size))
		i += size
	}
	out.into(ns)
}

// applyForm applies a Unicode normalization form, segment by segment, so composed characters are
// aligned with all the runes they were composed from.
func (ns *normalizedString) applyForm(form norm.Form) {
	if form.IsNormalString(ns.text) {
		return
	}
	var out rebuild
	var it norm.Iter
	it.InitString(form, ns.text)
	for !it.Done() {
		start := it.Pos()
		segment := it.Next()
		out.write(string(segment), ns.original(start, it.Pos()))
	}
	out.into(ns)
}

// replaceAll replaces the non-empty matches of re by content, aligned with the matched text.
func (ns *normalizedString) replaceAll(re *regexp.Regexp, content string) {
	matches := re.FindAllStringIndex(ns.text, -1)
	if len(matches) == 0 {
		return
	}
	var out rebuild
	last := 0
	for _, m := range matches {
		if m[0] == m[1] {
			continue
		}
		out.writeAligned(ns, last, m[0])
		out.write(content, ns.original(m[0], m[1]))
		last = m[1]
	}
	out.writeAligned(ns, last, len(ns.text))
	out.into(ns)
}

// prepend adds prefix, aligned with the first character.
func (ns *normalizedString) prepend(prefix string) {
	if ns.text == "" || prefix == "" {
		return
	}
	_, size := utf8.DecodeRuneInString(ns.text)
	var out rebuild
	out.write(prefix, ns.original(0, size))
	out.writeAligned(ns, 0, len(ns.text))
	out.into(ns)
}

// strip removes leading and/or trailing whitespace.
func (ns *normalizedString) strip(left, right bool) {
	start, end := 0, len(ns.text)
	if left {
		start = len(ns.text) - len(strings.TrimLeftFunc(ns.text, unicode.IsSpace))
	}
	if right {
		end = start + len(strings.TrimRightFunc(ns.text[start:], unicode.IsSpace))
	}
	ns.text = ns.text[start:end]
	ns.alignments = ns.alignments[start:end]
}

// compiledNormalizer applies one normalizer configuration.
type compiledNormalizer func(ns *normalizedString)

func compileNormalizer(n *Normalizer) (compiledNormalizer, error) {
	if n == nil {
		return func(*normalizedString) {}, nil
	}
	switch n.Type {
	case "Lowercase":
		return func(ns *normalizedString) { ns.mapRunes(lowercase) }, nil
	case "NFD":
		return func(ns *normalizedString) { ns.applyForm(norm.NFD) }, nil
	case "NFC":
		return func(ns *normalizedString) { ns.applyForm(norm.NFC) }, nil
	case "NFKC":
		return func(ns *normalizedString) { ns.applyForm(norm.NFKC) }, nil
	case "NFKD":
		return func(ns *normalizedString) { ns.applyForm(norm.NFKD) }, nil
	case "StripAccents":
		return stripAccents, nil
	case "BertNormalizer":
		return bertNormalizer(n), nil
	case "Strip":
		return func(ns *normalizedString) { ns.strip(n.StripLeft, n.StripRight) }, nil
	case "Prepend":
		return func(ns *normalizedString) { ns.prepend(n.Prepend) }, nil
	case "Replace":
		re, err := compilePattern(n.Pattern)
		if err != nil {
			return nil, errors.WithMessage(err, "Replace normalizer")
		}
		return func(ns *normalizedString) { ns.replaceAll(re, n.Content) }, nil
	case "Sequence":
		children := make([]compiledNormalizer, 0, len(n.Normalizers))
		for i := range n.Normalizers {
			child, err := compileNormalizer(&n.Normalizers[i])
			if err != nil {
				return nil, err
			}
			children = append(children, child)
		}
		return func(ns *normalizedString) {
			for _, child := range children {
				child(ns)
			}
		}, nil
	}
	klog.Warningf("hftokenizer: normalizer %q not supported, text won't be normalized by it", n.Type)
	return func(*normalizedString) {}, nil
}

func compilePattern(p *Pattern) (*regexp.Regexp, error) {
	if p == nil {
		return nil, errors.New("missing pattern")
	}
	if p.Regex != "" {
		re, err := regexp.Compile(p.Regex)
		if err != nil {
			return nil, errors.Wrapf(err, "pattern %q", p.Regex)
		}
		return re, nil
	}
	if p.String == "" {
		return nil, errors.New("empty pattern")
	}
	return regexp.MustCompile(regexp.QuoteMeta(p.String)), nil
}

func lowercase(r rune) string {
	return strings.ToLower(string(r))
}

func stripAccents(ns *normalizedString) {
	ns.applyForm(norm.NFD)
	ns.mapRunes(func(r rune) string {
		if unicode.Is(unicode.Mn, r) {
			return ""
		}
		return string(r)
	})
}

// bertNormalizer cleans the text, isolates Chinese characters with spaces, strips accents and
// lowercases. Accents are stripped by default only when lowercasing.
func bertNormalizer(n *Normalizer) compiledNormalizer {
	clean := boolOr(n.CleanText, true)
	chinese := boolOr(n.HandleChineseChars, true)
	lower := boolOr(n.Lowercase, true)
	accents := boolOr(n.StripAccents, lower)
	return func(ns *normalizedString) {
		if clean {
			ns.mapRunes(cleanRune)
		}
		if chinese {
			ns.mapRunes(func(r rune) string {
				if isChineseChar(r) {
					return " " + string(r) + " "
				}
				return string(r)
			})
		}
		if accents {
			stripAccents(ns)
		}
		if lower {
			ns.mapRunes(lowercase)
		}
	}
}

// cleanRune drops invalid and control characters, and turns any whitespace into a space.
func cleanRune(r rune) string {
	if r == 0 || r == utf8.RuneError || isControl(r) {
		return ""
	}
	if isWhitespace(r) {
		return " "
	}
	return string(r)
}

func isWhitespace(r rune) bool {
	if r == ' ' || r == '\t' || r == '\n' || r == '\r' {
		return true
	}
	return unicode.Is(unicode.Zs, r)
}

func isControl(r rune) bool {
	if r == '\t' || r == '\n' || r == '\r' {
		return false
	}
	return unicode.IsControl(r) || unicode.In(r, unicode.Cf, unicode.Co)
}

func isPunctuation(r rune) bool {
	// ASCII symbols count as punctuation.
	if (r >= 33 && r <= 47) || (r >= 58 && r <= 64) ||
		(r >= 91 && r <= 96) || (r >= 123 && r <= 126) {
		return true
	}
	return unicode.IsPunct(r)
}

// isChineseChar reports whether r is in the CJK Unified Ideographs blocks.
func isChineseChar(r rune) bool {
	return (r >= 0x4E00 && r <= 0x9FFF) ||
		(r >= 0x3400 && r <= 0x4DBF) ||
		(r >= 0x20000 && r <= 0x2A6DF) ||
		(r >= 0x2A700 && r <= 0x2B73F) ||
		(r >= 0x2B740 && r <= 0x2B81F) ||
		(r >= 0x2B820 && r <= 0x2CEAF) ||
		(r >= 0xF900 && r <= 0xFAFF) ||
		(r >= 0x2F800 && r <= 0x2FA1F)
}
