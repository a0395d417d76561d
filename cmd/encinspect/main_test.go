package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/gomlx/go-encodings/encoding"
	"github.com/gomlx/go-encodings/parquetio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testTokenizerJSON = `{
  "added_tokens": [
    {"id": 0, "content": "[PAD]", "special": true},
    {"id": 101, "content": "[CLS]", "special": true},
    {"id": 102, "content": "[SEP]", "special": true}
  ],
  "normalizer": {"type": "BertNormalizer", "lowercase": true},
  "pre_tokenizer": {"type": "BertPreTokenizer"},
  "post_processor": {"type": "BertProcessing", "sep": ["[SEP]", 102], "cls": ["[CLS]", 101]},
  "model": {
    "type": "WordPiece",
    "unk_token": "[UNK]",
    "vocab": {"[PAD]": 0, "[UNK]": 100, "[CLS]": 101, "[SEP]": 102, "hello": 1, "world": 2, "again": 3}
  }
}`

func writeTokenizer(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tokenizer.json")
	require.NoError(t, os.WriteFile(path, []byte(testTokenizerJSON), 0o644))
	return path
}

func defaultConfig(tokenizerPath string) config {
	return config{
		tokenizerPath:       tokenizerPath,
		strategy:            "longest_first",
		truncationDirection: "right",
		padDirection:        "right",
	}
}

func TestRun(t *testing.T) {
	cfg := defaultConfig(writeTokenizer(t))
	cfg.text = "Hello world again hello world"
	cfg.maxLength = 4
	cfg.padTo = 4

	var out bytes.Buffer
	require.NoError(t, run(cfg, &out))
	output := out.String()
	assert.Contains(t, output, "Encoding(num_tokens=4, n_sequences=1, overflowing=2)")
	assert.Contains(t, output, "Overflowing #0")
	assert.Contains(t, output, "Overflowing #1")
	assert.Contains(t, output, `"[CLS]"`)
	assert.Contains(t, output, `"Hello"`)
	assert.Contains(t, output, `"[PAD]"`)
}

func TestRunPairToParquet(t *testing.T) {
	cfg := defaultConfig(writeTokenizer(t))
	cfg.text, cfg.pair, cfg.hasPair = "hello", "world", true
	cfg.parquetPath = filepath.Join(t.TempDir(), "out.parquet")

	var out bytes.Buffer
	require.NoError(t, run(cfg, &out))
	assert.Contains(t, out.String(), "n_sequences=2")
	assert.Contains(t, out.String(), "Wrote 1 rows")

	rows, err := parquetio.ReadFile(cfg.parquetPath)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, []int64{101, 1, 102, 2, 102}, rows[0].IDs)
}

func TestRunFlagErrors(t *testing.T) {
	// Enum flags are checked before the tokenizer is read.
	missing := filepath.Join(t.TempDir(), "missing.json")
	tests := []struct {
		name   string
		modify func(cfg *config)
		want   error
	}{
		{"strategy", func(cfg *config) { cfg.strategy = "shortest" }, encoding.ErrInvalidStrategy},
		{"truncation direction", func(cfg *config) { cfg.truncationDirection = "up" }, encoding.ErrInvalidDirection},
		{"pad direction", func(cfg *config) { cfg.padDirection = "down" }, encoding.ErrInvalidDirection},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig(missing)
			tt.modify(&cfg)
			err := run(cfg, &bytes.Buffer{})
			assert.ErrorIs(t, err, tt.want)
		})
	}

	t.Run("negative stride", func(t *testing.T) {
		cfg := defaultConfig(writeTokenizer(t))
		cfg.maxLength, cfg.stride = 4, -1
		assert.ErrorIs(t, run(cfg, &bytes.Buffer{}), encoding.ErrInvalidParameter)
	})

	t.Run("missing tokenizer", func(t *testing.T) {
		assert.Error(t, run(defaultConfig(missing), &bytes.Buffer{}))
	})
}

func TestCovered(t *testing.T) {
	texts := []string{"hello", "world"}
	assert.Equal(t, "ell", covered(texts, 0, encoding.Offsets{Start: 1, End: 4}))
	assert.Equal(t, "wor", covered(texts, 1, encoding.Offsets{Start: 0, End: 3}))
	assert.Equal(t, "", covered(texts, encoding.None, encoding.Offsets{}))
	assert.Equal(t, "", covered(texts, 0, encoding.Offsets{Start: 3, End: 10}))
}
