package hftokenizer

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// split is a range [start, end) of bytes of a normalizedString: one word passed to the model.
type split struct {
	start, end int
}

// preTokenizer prepares the normalized string (some pre-tokenizers replace characters) and
// splits it into words.
type preTokenizer struct {
	prepare func(ns *normalizedString)
	split   func(text string, splits []split) []split
}

// Classes of runes used by splitRuns.
const (
	runeDropped  = 0
	runeIsolated = -1
)

// splitRuns splits each of the splits into runs of consecutive runes of the same class.
// Runes of class runeDropped are removed, and runes of class runeIsolated make a split of their own.
func splitRuns(text string, splits []split, class func(r rune) int) []split {
	var out []split
	for _, sp := range splits {
		current, currentClass := -1, runeDropped
		for i := sp.start; i < sp.end; {
			r, size := utf8.DecodeRuneInString(text[i:])
			c := class(r)
			if current >= 0 && (c != currentClass || c == runeIsolated) {
				out = append(out, split{current, i})
				current = -1
			}
			if c != runeDropped && current < 0 {
				current, currentClass = i, c
			}
			i += size
		}
		if current >= 0 {
			out = append(out, split{current, sp.end})
		}
	}
	return out
}

// splitBeforeMarker starts a new split at each marker that follows a different rune, so markers
// stay attached to the word that follows them.
func splitBeforeMarker(text string, splits []split, marker rune) []split {
	var out []split
	for _, sp := range splits {
		start := sp.start
		previous := marker
		for i := sp.start; i < sp.end; {
			r, size := utf8.DecodeRuneInString(text[i:])
			if r == marker && previous != marker && i > start {
				out = append(out, split{start, i})
				start = i
			}
			previous = r
			i += size
		}
		if start < sp.end {
			out = append(out, split{start, sp.end})
		}
	}
	return out
}

// splitPattern splits on the matches of re. Matches are removed, isolated or merged with the
// previous or next split, according to behavior.
func splitPattern(text string, splits []split, re *regexp.Regexp, behavior string) []split {
	var out []split
	add := func(start, end int) {
		if start < end {
			out = append(out, split{start, end})
		}
	}
	for _, sp := range splits {
		last := sp.start
		for _, m := range re.FindAllStringIndex(text[sp.start:sp.end], -1) {
			mStart, mEnd := sp.start+m[0], sp.start+m[1]
			if mStart == mEnd {
				continue
			}
			switch behavior {
			case "Removed":
				add(last, mStart)
				last = mEnd
			case "MergedWithPrevious":
				add(last, mEnd)
				last = mEnd
			case "MergedWithNext":
				add(last, mStart)
				last = mStart
			default: // Isolated, Contiguous
				add(last, mStart)
				add(mStart, mEnd)
				last = mEnd
			}
		}
		add(last, sp.end)
	}
	return out
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsMark(r)
}

const (
	// byteLevelSpace is the character that represents a space after the GPT-2 byte to unicode mapping.
	byteLevelSpace = 'Ġ'

	// metaspace replaces spaces in SentencePiece style tokenizers.
	metaspace = "▁"
)

func compilePreTokenizer(pt *PreTokenizer) (*preTokenizer, error) {
	noPrepare := func(*normalizedString) {}
	if pt == nil {
		return &preTokenizer{
			prepare: noPrepare,
			split: func(text string, splits []split) []split {
				return splitRuns(text, splits, func(r rune) int { return boolToClass(!unicode.IsSpace(r)) })
			},
		}, nil
	}
	switch pt.Type {
	case "BertPreTokenizer":
		return &preTokenizer{prepare: noPrepare, split: func(text string, splits []split) []split {
			return splitRuns(text, splits, func(r rune) int {
				switch {
				case isWhitespace(r):
					return runeDropped
				case isPunctuation(r):
					return runeIsolated
				}
				return 1
			})
		}}, nil

	case "Whitespace":
		return &preTokenizer{prepare: noPrepare, split: func(text string, splits []split) []split {
			return splitRuns(text, splits, func(r rune) int {
				switch {
				case unicode.IsSpace(r):
					return runeDropped
				case isWordRune(r):
					return 1
				}
				return 2
			})
		}}, nil

	case "WhitespaceSplit":
		return &preTokenizer{prepare: noPrepare, split: func(text string, splits []split) []split {
			return splitRuns(text, splits, func(r rune) int { return boolToClass(!unicode.IsSpace(r)) })
		}}, nil

	case "Punctuation":
		return &preTokenizer{prepare: noPrepare, split: func(text string, splits []split) []split {
			return splitRuns(text, splits, func(r rune) int {
				if isPunctuation(r) {
					return runeIsolated
				}
				return 1
			})
		}}, nil

	case "ByteLevel":
		return &preTokenizer{
			prepare: func(ns *normalizedString) {
				if pt.AddPrefixSpace && !strings.HasPrefix(ns.text, " ") {
					ns.prepend(" ")
				}
				ns.mapBytes(byteToUnicode)
			},
			split: func(text string, splits []split) []split {
				return splitBeforeMarker(text, splits, byteLevelSpace)
			},
		}, nil

	case "Metaspace":
		replacement := pt.Replacement
		if replacement == "" {
			replacement = metaspace
		}
		marker, _ := utf8.DecodeRuneInString(replacement)
		prefix := pt.AddPrefixSpace || pt.PrependScheme == "always" || pt.PrependScheme == "first"
		return &preTokenizer{
			prepare: func(ns *normalizedString) {
				ns.mapRunes(func(r rune) string {
					if r == ' ' {
						return replacement
					}
					return string(r)
				})
				if prefix && !strings.HasPrefix(ns.text, replacement) {
					ns.prepend(replacement)
				}
			},
			split: func(text string, splits []split) []split {
				return splitBeforeMarker(text, splits, marker)
			},
		}, nil

	case "Split":
		re, err := compilePattern(pt.Pattern)
		if err != nil {
			return nil, errors.WithMessage(err, "Split pre-tokenizer")
		}
		if pt.Invert {
			klog.Warningf("hftokenizer: inverted Split pre-tokenizer not supported, splitting on the pattern instead")
		}
		return &preTokenizer{prepare: noPrepare, split: func(text string, splits []split) []split {
			return splitPattern(text, splits, re, pt.Behavior)
		}}, nil

	case "Sequence":
		children := make([]*preTokenizer, 0, len(pt.PreTokenizers))
		for i := range pt.PreTokenizers {
			child, err := compilePreTokenizer(&pt.PreTokenizers[i])
			if err != nil {
				return nil, err
			}
			children = append(children, child)
		}
		return &preTokenizer{
			prepare: func(ns *normalizedString) {
				for _, child := range children {
					child.prepare(ns)
				}
			},
			split: func(text string, splits []split) []split {
				for _, child := range children {
					splits = child.split(text, splits)
				}
				return splits
			},
		}, nil
	}
	klog.Warningf("hftokenizer: pre-tokenizer %q not supported, splitting on whitespace instead", pt.Type)
	return compilePreTokenizer(nil)
}

func boolToClass(keep bool) int {
	if keep {
		return 1
	}
	return runeDropped
}

// preTokenize prepares ns and returns its words.
func (p *preTokenizer) preTokenize(ns *normalizedString) []split {
	p.prepare(ns)
	if ns.text == "" {
		return nil
	}
	return p.split(ns.text, []split{{0, len(ns.text)}})
}

// byteToUnicode is the GPT-2 mapping of bytes to printable runes used by byte-level BPE,
// and unicodeToByte its inverse.
var (
	byteToUnicode [256]rune
	unicodeToByte = make(map[rune]byte, 256)
)

func init() {
	n := 0
	for b := range 256 {
		if (b >= '!' && b <= '~') || (b >= 0xA1 && b <= 0xAC) || (b >= 0xAE && b <= 0xFF) {
			byteToUnicode[b] = rune(b)
		} else {
			byteToUnicode[b] = rune(256 + n)
			n++
		}
		unicodeToByte[byteToUnicode[b]] = byte(b)
	}
}

// mapBytes replaces each byte by the rune given by mapping, aligned with the rune the byte belongs to.
func (ns *normalizedString) mapBytes(mapping [256]rune) {
	var out rebuild
	for i := 0; i < len(ns.text); i++ {
		out.write(string(mapping[ns.text[i]]), ns.alignments[i])
	}
	out.into(ns)
}
