package encoding

import "sort"

// coordinateIndex maps characters and words to tokens, per sequence.
// It is rebuilt by Encoding.replace after every mutation and never modified afterward,
// so it can be shared by clones and read concurrently.
type coordinateIndex struct {
	sequences map[int]*sequenceIndex
	words     map[wordKey]wordSpan
}

// sequenceIndex holds the tokens of one sequence with a non-empty offset range,
// sorted by start offset (ties in token order).
type sequenceIndex struct {
	spans []charSpan
	// maxEnd[i] is the largest end offset of spans[:i+1].
	maxEnd []int
}

type charSpan struct {
	start, end, token int
}

type wordKey struct {
	sequence, word int
}

// wordSpan is the token range [first, last) of a word, and the characters it covers.
type wordSpan struct {
	first, last int
	chars       Offsets
}

func buildIndex(c *columns) *coordinateIndex {
	idx := &coordinateIndex{
		sequences: make(map[int]*sequenceIndex, 2),
		words:     make(map[wordKey]wordSpan),
	}
	for token, seq := range c.sequenceIDs {
		if seq == None {
			continue
		}
		si, found := idx.sequences[seq]
		if !found {
			si = &sequenceIndex{}
			idx.sequences[seq] = si
		}
		offsets := c.offsets[token]
		if offsets.End > offsets.Start {
			si.spans = append(si.spans, charSpan{start: offsets.Start, end: offsets.End, token: token})
		}

		word := c.wordIDs[token]
		if word == None {
			continue
		}
		key := wordKey{sequence: seq, word: word}
		ws, found := idx.words[key]
		if !found {
			idx.words[key] = wordSpan{first: token, last: token + 1, chars: offsets}
			continue
		}
		ws.last = token + 1
		ws.chars.Start = min(ws.chars.Start, offsets.Start)
		ws.chars.End = max(ws.chars.End, offsets.End)
		idx.words[key] = ws
	}

	for _, si := range idx.sequences {
		sort.SliceStable(si.spans, func(i, j int) bool { return si.spans[i].start < si.spans[j].start })
		si.maxEnd = make([]int, len(si.spans))
		runningMax := 0
		for i, span := range si.spans {
			runningMax = max(runningMax, span.end)
			si.maxEnd[i] = runningMax
		}
	}
	return idx
}

// tokenAt returns the first token (in token order) whose offsets contain pos.
func (si *sequenceIndex) tokenAt(pos int) (int, bool) {
	// Spans [0, hi) start at or before pos.
	hi := sort.Search(len(si.spans), func(i int) bool { return si.spans[i].start > pos })
	best := None
	for k := hi - 1; k >= 0 && si.maxEnd[k] > pos; k-- {
		span := si.spans[k]
		if span.end > pos && (best == None || span.token < best) {
			best = span.token
		}
	}
	return best, best != None
}
