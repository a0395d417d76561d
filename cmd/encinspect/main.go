// encinspect tokenizes a text (or a pair of texts) with a HuggingFace tokenizer.json file and prints
// the resulting encoding, one row per token, including the overflowing encodings created by truncation.
//
// Usage:
//
//	encinspect -tokenizer tokenizer.json -text "Hello world" [-pair "Second text"] \
//	    [-max_length 16 -stride 4 -strategy longest_first -truncation_direction right] \
//	    [-pad_to 32 -pad_direction right] [-parquet out.parquet]
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/gomlx/go-encodings/encoding"
	"github.com/gomlx/go-encodings/parquetio"
	"github.com/gomlx/go-encodings/tokenizers/hftokenizer"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// config holds the command line flags.
type config struct {
	tokenizerPath string
	text, pair    string
	hasPair       bool

	maxLength           int
	stride              int
	strategy            string
	truncationDirection string

	padTo        int
	padDirection string

	parquetPath string
}

func main() {
	klog.InitFlags(nil)
	var cfg config
	flag.StringVar(&cfg.tokenizerPath, "tokenizer", "", "Path to a HuggingFace tokenizer.json file")
	flag.StringVar(&cfg.text, "text", "", "Text to tokenize")
	flag.StringVar(&cfg.pair, "pair", "", "Optional second text, encoded as a pair with -text")
	flag.IntVar(&cfg.maxLength, "max_length", 0, "Truncate to this length, including special tokens (0 keeps the tokenizer.json setting)")
	flag.IntVar(&cfg.stride, "stride", 0, "Number of tokens repeated between consecutive overflowing encodings")
	flag.StringVar(&cfg.strategy, "strategy", "longest_first", "Truncation strategy: longest_first, only_first or only_second")
	flag.StringVar(&cfg.truncationDirection, "truncation_direction", "right", "Side removed by truncation: left or right")
	flag.IntVar(&cfg.padTo, "pad_to", 0, "Pad to this fixed length (0 keeps the tokenizer.json setting)")
	flag.StringVar(&cfg.padDirection, "pad_direction", "right", "Side where padding is added: left or right")
	flag.StringVar(&cfg.parquetPath, "parquet", "", "If set, also write the encodings to this Parquet file")
	flag.Parse()
	flag.Visit(func(f *flag.Flag) {
		if f.Name == "pair" {
			cfg.hasPair = true
		}
	})

	if cfg.tokenizerPath == "" {
		fmt.Fprintln(os.Stderr, "Usage: encinspect -tokenizer <tokenizer.json> -text <text> [-pair <text>] [flags]")
		flag.PrintDefaults()
		os.Exit(1)
	}
	if err := run(cfg, os.Stdout); err != nil {
		klog.Errorf("Error: %+v", err)
		klog.Flush()
		os.Exit(1)
	}
	klog.Flush()
}

// run encodes the texts configured and writes the tables to w.
func run(cfg config, w io.Writer) error {
	// Parse all enum flags before doing any work.
	strategy, err := encoding.ParseTruncationStrategy(cfg.strategy)
	if err != nil {
		return errors.WithMessage(err, "flag -strategy")
	}
	truncationDirection, err := encoding.ParseDirection(cfg.truncationDirection)
	if err != nil {
		return errors.WithMessage(err, "flag -truncation_direction")
	}
	padDirection, err := encoding.ParseDirection(cfg.padDirection)
	if err != nil {
		return errors.WithMessage(err, "flag -pad_direction")
	}

	tok, err := hftokenizer.NewFromFile(cfg.tokenizerPath)
	if err != nil {
		return err
	}
	if cfg.maxLength > 0 {
		if err := tok.SetTruncation(&encoding.TruncationParams{
			MaxLength: cfg.maxLength,
			Stride:    cfg.stride,
			Strategy:  strategy,
			Direction: truncationDirection,
		}); err != nil {
			return errors.WithMessage(err, "truncation flags")
		}
	}
	if cfg.padTo > 0 {
		padding := encoding.DefaultPaddingParams()
		if current := tok.Padding(); current != nil {
			padding = *current
		} else if id, found := tok.TokenToID(padding.PadToken); found {
			padding.PadID = id
		}
		padding.Strategy = encoding.PadFixed
		padding.Length = cfg.padTo
		padding.Direction = padDirection
		if err := tok.SetPadding(&padding); err != nil {
			return errors.WithMessage(err, "padding flags")
		}
	}

	texts := []string{cfg.text}
	var e *encoding.Encoding
	if cfg.hasPair {
		texts = append(texts, cfg.pair)
		e, err = tok.EncodePair(cfg.text, cfg.pair)
	} else {
		e, err = tok.EncodeEncoding(cfg.text)
	}
	if err != nil {
		return err
	}

	fmt.Fprintln(w, renderEncoding(e.String(), e, texts))
	for i, o := range e.Overflowing() {
		fmt.Fprintln(w, renderEncoding(fmt.Sprintf("Overflowing #%d: %s", i, o), o, texts))
	}

	if cfg.parquetPath != "" {
		rows, err := parquetio.RowsFromEncodings([]*encoding.Encoding{e})
		if err != nil {
			return err
		}
		if err := parquetio.WriteFile(cfg.parquetPath, rows); err != nil {
			return err
		}
		fmt.Fprintf(w, "Wrote %d rows to %s\n", len(rows), cfg.parquetPath)
	}
	return nil
}
