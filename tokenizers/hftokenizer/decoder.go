package hftokenizer

import (
	"strconv"
	"strings"
)

// Decode converts a sequence of token IDs back to text. Unknown ids are skipped.
func (t *Tokenizer) Decode(ids []int) string {
	tokens := make([]string, 0, len(ids))
	for _, id := range ids {
		if token, ok := t.idToToken[id]; ok {
			tokens = append(tokens, token)
		}
	}
	d := t.tokenizer.Decoder
	if d == nil {
		return joinWordPieces(tokens, t.subwordPrefix(), false)
	}
	switch d.Type {
	case "WordPiece", "ByteLevel", "Metaspace", "BPEDecoder":
		return t.decodeStep(tokens, d)[0]
	case "Sequence":
		for i := range d.Decoders {
			tokens = t.decodeStep(tokens, &d.Decoders[i])
		}
		return strings.Join(tokens, "")
	}
	return joinWordPieces(tokens, t.subwordPrefix(), false)
}

func (t *Tokenizer) subwordPrefix() string {
	if prefix := t.tokenizer.Model.ContinuingSubwordPrefix; prefix != "" {
		return prefix
	}
	return "##"
}

// decodeStep applies one decoder to the tokens. Decoders that join the tokens into the final text
// return a single element.
func (t *Tokenizer) decodeStep(tokens []string, d *Decoder) []string {
	switch d.Type {
	case "WordPiece":
		prefix := d.Prefix
		if prefix == "" {
			prefix = "##"
		}
		return []string{joinWordPieces(tokens, prefix, d.Cleanup)}

	case "ByteLevel":
		return []string{byteLevelDecode(strings.Join(tokens, ""))}

	case "Metaspace":
		text := strings.ReplaceAll(strings.Join(tokens, ""), metaspace, " ")
		return []string{strings.TrimPrefix(text, " ")}

	case "BPEDecoder":
		suffix := d.Suffix
		if suffix == "" {
			suffix = t.tokenizer.Model.EndOfWordSuffix
		}
		var sb strings.Builder
		for i, token := range tokens {
			if suffix != "" && strings.HasSuffix(token, suffix) {
				sb.WriteString(strings.TrimSuffix(token, suffix))
				if i < len(tokens)-1 {
					sb.WriteString(" ")
				}
			} else {
				sb.WriteString(token)
			}
		}
		return []string{sb.String()}

	case "Replace":
		if d.Pattern == nil || d.Pattern.String == "" {
			return tokens
		}
		out := make([]string, len(tokens))
		for i, token := range tokens {
			out[i] = strings.ReplaceAll(token, d.Pattern.String, d.Content)
		}
		return out

	case "Strip":
		out := make([]string, len(tokens))
		for i, token := range tokens {
			for range d.Start {
				token = strings.TrimPrefix(token, d.Content)
			}
			for range d.Stop {
				token = strings.TrimSuffix(token, d.Content)
			}
			out[i] = token
		}
		return out

	case "ByteFallback":
		return byteFallback(tokens)

	case "Fuse":
		return []string{strings.Join(tokens, "")}
	}
	return tokens
}

// joinWordPieces joins tokens with spaces, except for the ones starting with the continuing
// subword prefix, which are glued to the previous token.
func joinWordPieces(tokens []string, prefix string, cleanup bool) string {
	var sb strings.Builder
	for i, token := range tokens {
		if strings.HasPrefix(token, prefix) {
			sb.WriteString(strings.TrimPrefix(token, prefix))
			continue
		}
		if i > 0 {
			sb.WriteString(" ")
		}
		sb.WriteString(token)
	}
	if !cleanup {
		return sb.String()
	}
	return strings.NewReplacer(" .", ".", " ?", "?", " !", "!", " ,", ",", " ' ", "'",
		" n't", "n't", " 'm", "'m", " 's", "'s", " 've", "'ve", " 're", "'re").Replace(sb.String())
}

// byteLevelDecode maps the GPT-2 byte-level runes back to the bytes they represent.
func byteLevelDecode(text string) string {
	var result []byte
	for _, r := range text {
		if b, ok := unicodeToByte[r]; ok {
			result = append(result, b)
		} else {
			result = append(result, string(r)...)
		}
	}
	return string(result)
}

// byteFallback converts consecutive "<0xAB>" tokens into the (UTF-8) text of their bytes.
func byteFallback(tokens []string) []string {
	var out []string
	var pending []byte
	flush := func() {
		if len(pending) > 0 {
			out = append(out, strings.ToValidUTF8(string(pending), "�"))
			pending = pending[:0]
		}
	}
	for _, token := range tokens {
		if len(token) == 6 && strings.HasPrefix(token, "<0x") && strings.HasSuffix(token, ">") {
			if b, err := strconv.ParseUint(token[3:5], 16, 8); err == nil {
				pending = append(pending, byte(b))
				continue
			}
		}
		flush()
		out = append(out, token)
	}
	flush()
	return out
}
