package dap_test

import (
	"bytes"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"

	"github.com/roach88/dapseq/internal/dap"
)

func newGoldie(t *testing.T) *goldie.Goldie {
	return goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
}

func TestPrintDecl_Golden(t *testing.T) {
	s := stationTemplate()
	meta := dap.NewStructure("meta")
	meta.AddVariable(dap.NewString("platform", ""))
	meta.AddVariable(dap.NewUInt16("quality", 0))
	s.AddVariable(meta)

	var buf bytes.Buffer
	s.PrintDecl(&buf, "", true)
	newGoldie(t).Assert(t, "station_dds", buf.Bytes())
}

func TestPrintVal_Golden(t *testing.T) {
	s := stationTemplate()
	addRows(t, s,
		[]any{int32(1), []any{[]any{10.5}, []any{20.0}}},
		[]any{int32(2), []any{[]any{-3.25}}},
	)

	var buf bytes.Buffer
	s.PrintVal(&buf, "", true)
	newGoldie(t).Assert(t, "station_values", buf.Bytes())
}

func TestPrintVal_Scalars(t *testing.T) {
	tests := []struct {
		v    dap.Variable
		want string
	}{
		{dap.NewByte("b", 200), "200"},
		{dap.NewInt16("i", -7), "-7"},
		{dap.NewFloat32("f", 0.1), "0.1"},
		{dap.NewFloat64("d", 1e-7), "1e-07"},
		{dap.NewString("s", `say "hi"`), `"say \"hi\""`},
	}
	for _, tt := range tests {
		var buf bytes.Buffer
		tt.v.PrintVal(&buf, "", false)
		assert.Equal(t, tt.want, buf.String())
	}

	var buf bytes.Buffer
	dap.NewInt32("count", 3).PrintVal(&buf, "  ", true)
	assert.Equal(t, "  Int32 count = 3;\n", buf.String())
}
