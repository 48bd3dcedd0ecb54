package fuzztests

import (
	"io/fs"
	"os"
	"path/filepath"
	"testing"
)

const (
	maxSeedBytes = 64 << 10 // 64 KiB, предел для тестового корпуса
	maxFuzzInput = 16 << 10
)

// builtinSeeds cover every directive at least once, valid and not.
var builtinSeeds = []string{
	"",
	"containers:\n",
	"containers: []\n",
	`containers:
  - enum: E
    deku: {type: u8}
    variants:
      - name: A
        deku: {id: "1"}
      - name: B
        deku: {id_pat: "2..=9"}
      - name: C
`,
	`containers:
  - enum: E
    deku: {id: kind, bits: "3"}
    variants:
      - name: A
        deku: {id_pat: "..4"}
      - name: B
        deku: {id_pat: "4.."}
`,
	`containers:
  - struct: S
    deku: {bytes: "2", endian: big, ctx: "a: u8", ctx_default: "1"}
    fields:
      - name: a
        type: u8
        deku: {skip: true, default: "0", cond: "x > 1"}
      - name: b
        type: Tail
        deku: {count: a, update: "self.b.len()", map: f, reader: r, writer: w, ctx: a}
`,
	`containers:
  - enum: Bad
    deku: {type: u8, id: x, bits: "0x_", bytes: "9"}
    variants:
      - name: A
        deku: {id: "-1", id_pat: "9..=1", endian: sideways}
`,
	`containers:
  - enum: Signed
    deku: {type: i8, endian: order, ctx: "order: Endian"}
    variants:
      - name: Neg
        deku: {id: "-1"}
      - name: Pos
        deku: {id_pat: "1.."}
        fields:
          - name: tag
            type: i8
            deku: {ctx: "a", ctx_default: "a = 0"}
      - name: Bare
        deku: {id_pat: "..0"}
`,
	"containers:\n  - struct: S\n    deku:\n      bits: \"8\"\n      bits: \"16\"\n",
	"containers: {}\n",
	"- enum: A\n",
	"containers:\n  - enum: &a A\n    variants: *a\n",
}

func addCorpusSeeds(f *testing.F) {
	for _, s := range builtinSeeds {
		f.Add([]byte(s))
	}
	addTestdataSeeds(f)
}

func addTestdataSeeds(f *testing.F) {
	root := filepath.Join("..", "..", "testdata")
	if _, err := os.Stat(root); err != nil {
		return
	}
	// проходим по дереву testdata, добавляем все *.yaml файлы
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil || d.IsDir() {
			return nil
		}
		if ext := filepath.Ext(path); ext != ".yaml" && ext != ".yml" {
			return nil
		}
		// #nosec G304 -- path comes from repository testdata walk
		src, err := os.ReadFile(path)
		if err != nil {
			return nil
		}
		f.Add(clampSeed(src))
		return nil
	})
}

func clampSeed(src []byte) []byte {
	if len(src) <= maxSeedBytes {
		return append([]byte(nil), src...)
	}
	return append([]byte(nil), src[:maxSeedBytes]...)
}
