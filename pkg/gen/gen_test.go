package gen

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/etpu-project/etpu-go/pkg/region"
)

func testTable(t *testing.T) *region.Table {
	t.Helper()
	table, err := region.NewTable(
		region.Region{Name: "wfg", Origin: 0x30000000, Length: 0x100000, Type: region.TypeIO},
		region.Region{Name: "rom", Origin: 0, Length: 0x8000, Type: region.TypeCached, Mode: region.ModeRO},
		region.Region{Name: "sram", Origin: 0x10000000, Length: 0x2000, Type: region.TypeCached},
		region.Region{Name: "spi_flash", Origin: 0x20000000, Length: 0x1000, Type: region.TypeIO, Linker: true},
	)
	require.NoError(t, err)
	return table
}

func TestMemHeader(t *testing.T) {
	out, err := MemHeader(testTable(t))
	require.NoError(t, err)

	assert.Contains(t, out, "#ifndef __GENERATED_MEM_H\n#define __GENERATED_MEM_H\n")
	assert.Contains(t, out, "#ifndef ROM_BASE\n#define ROM_BASE 0x00000000L\n#define ROM_SIZE 0x00008000\n#endif\n")
	assert.Contains(t, out, "#define WFG_BASE 0x30000000L\n#define WFG_SIZE 0x00100000\n")
	assert.Contains(t, out, "#define SPI_FLASH_BASE 0x20000000L\n")
	assert.True(t, strings.HasSuffix(out, "#endif\n\n#endif\n"))

	// Origin order.
	assert.Less(t, strings.Index(out, "ROM_BASE"), strings.Index(out, "SRAM_BASE"))
	assert.Less(t, strings.Index(out, "SRAM_BASE"), strings.Index(out, "WFG_BASE"))
}

func TestLinkerRegions(t *testing.T) {
	out, err := LinkerRegions(testTable(t))
	require.NoError(t, err)

	want := "MEMORY {\n" +
		"\trom : ORIGIN = 0x00000000, LENGTH = 0x00008000\n" +
		"\tsram : ORIGIN = 0x10000000, LENGTH = 0x00002000\n" +
		"\tspi_flash : ORIGIN = 0x20000000, LENGTH = 0x00001000\n" +
		"}\n"
	assert.Equal(t, want, out)
	assert.NotContains(t, out, "wfg")
}

func TestCSV(t *testing.T) {
	out := CSV(testTable(t))

	var rows []string
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		if !strings.HasPrefix(line, "#") {
			rows = append(rows, line)
		}
	}
	assert.Equal(t, []string{
		"memory_region,rom,0x00000000,32768,cached",
		"memory_region,sram,0x10000000,8192,cached",
		"memory_region,spi_flash,0x20000000,4096,io",
		"memory_region,wfg,0x30000000,1048576,io",
	}, rows)
}

func TestGoConstants(t *testing.T) {
	out, err := GoConstants("regions", testTable(t))
	require.NoError(t, err)

	src := string(out)
	assert.True(t, strings.HasPrefix(src, "// Code generated by etpu-gen. DO NOT EDIT.\n"))
	assert.Contains(t, src, "package regions\n")
	for _, name := range []string{"RomBase", "RomSize", "SramBase", "SpiFlashBase", "WfgBase", "WfgSize"} {
		assert.Contains(t, src, "\t"+name+" ")
	}
	assert.Contains(t, src, "= 0x30000000\n")
}

func TestGoConstantsRejectsBadPackage(t *testing.T) {
	_, err := GoConstants("not a package", testTable(t))
	assert.Error(t, err)
}

func TestNameCollision(t *testing.T) {
	table, err := region.NewTable(
		region.Region{Name: "rom", Origin: 0, Length: 0x1000},
		region.Region{Name: "ROM", Origin: 0x1000, Length: 0x1000},
	)
	require.NoError(t, err)

	_, err = MemHeader(table)
	assert.ErrorIs(t, err, ErrNameCollision)
	_, err = GoConstants("regions", table)
	assert.ErrorIs(t, err, ErrNameCollision)
}

func TestGoName(t *testing.T) {
	assert.Equal(t, "Rom", goName("rom"))
	assert.Equal(t, "SramExt", goName("sram_ext"))
	assert.Equal(t, "Main", goName("_main_"))
	assert.Equal(t, "Csr", goName("CSR"))
}

func TestWriteAll(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "generated")

	paths, err := WriteAll(dir, testTable(t))
	require.NoError(t, err)
	require.Len(t, paths, 4)

	for _, name := range []string{MemHeaderFile, LinkerFile, CSVFile, GoConstantsFile} {
		data, err := os.ReadFile(filepath.Join(dir, name))
		require.NoError(t, err, name)
		assert.NotEmpty(t, data, name)
	}

	header, err := os.ReadFile(filepath.Join(dir, MemHeaderFile))
	require.NoError(t, err)
	assert.Contains(t, string(header), "SRAM_BASE")
}

func TestOutputIsDeterministic(t *testing.T) {
	a, err := MemHeader(testTable(t))
	require.NoError(t, err)
	b, err := MemHeader(testTable(t))
	require.NoError(t, err)
	assert.Equal(t, a, b)
}
