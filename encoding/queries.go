package encoding

// Coordinate queries between characters, words, tokens and sequences.
//
// None of them fail: an index or position with no mapping returns ok == false (and None for the
// int results). They panic with ErrUninitialized if the Encoding was never populated.

// CharToToken returns the index of the token of the given sequence whose offsets contain the
// character position pos.
func (e *Encoding) CharToToken(pos, sequenceID int) (token int, ok bool) {
	e.mustBePopulated()
	si, found := e.index.sequences[sequenceID]
	if !found {
		return None, false
	}
	return si.tokenAt(pos)
}

// CharToWord returns the word id of the token containing pos in the given sequence.
func (e *Encoding) CharToWord(pos, sequenceID int) (word int, ok bool) {
	token, ok := e.CharToToken(pos, sequenceID)
	if !ok {
		return None, false
	}
	_, word, ok = e.TokenToWord(token)
	return word, ok
}

// WordToTokens returns the range of tokens [start, end) of the word in the given sequence.
func (e *Encoding) WordToTokens(word, sequenceID int) (start, end int, ok bool) {
	e.mustBePopulated()
	ws, found := e.index.words[wordKey{sequence: sequenceID, word: word}]
	if !found {
		return None, None, false
	}
	return ws.first, ws.last, true
}

// WordToChars returns the character range spanned by all the tokens of the word in the given sequence.
func (e *Encoding) WordToChars(word, sequenceID int) (Offsets, bool) {
	e.mustBePopulated()
	ws, found := e.index.words[wordKey{sequence: sequenceID, word: word}]
	if !found {
		return Offsets{}, false
	}
	return ws.chars, true
}

// TokenToSequence returns the sequence of the token, or ok == false if the index is out of range
// or the token belongs to no sequence (padding, injected special tokens).
func (e *Encoding) TokenToSequence(token int) (sequenceID int, ok bool) {
	e.mustBePopulated()
	if token < 0 || token >= e.cols.len() {
		return None, false
	}
	sequenceID = e.cols.sequenceIDs[token]
	return sequenceID, sequenceID != None
}

// TokenToChars returns the sequence and the offsets of the token.
func (e *Encoding) TokenToChars(token int) (sequenceID int, offsets Offsets, ok bool) {
	sequenceID, ok = e.TokenToSequence(token)
	if !ok {
		return None, Offsets{}, false
	}
	return sequenceID, e.cols.offsets[token], true
}

// TokenToWord returns the sequence and the word id of the token.
func (e *Encoding) TokenToWord(token int) (sequenceID, word int, ok bool) {
	sequenceID, ok = e.TokenToSequence(token)
	if !ok {
		return None, None, false
	}
	word = e.cols.wordIDs[token]
	if word == None {
		return None, None, false
	}
	return sequenceID, word, true
}
