package tabular

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestReadDelimited_Comma(t *testing.T) {
	in := "Name,Trial Number,Target Side,Used\nOrder A,1,R,yes\nOrder A,2,L\n"

	rows, err := ReadDelimited(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "R", rows[0]["Target Side"])
	assert.Equal(t, "", rows[1]["Used"], "short records leave trailing columns empty")
}

func TestReadDelimited_TabWithBOMAndBlankLines(t *testing.T) {
	in := "\xEF\xBB\xBFName\ttrial number\tCritOnset\r\nOrder, with comma\t3\t1500\r\n\t\t\r\n"

	rows, err := ReadDelimited(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Order, with comma", rows[0]["Name"])
	assert.Equal(t, "3", rows[0]["trial number"])
}

func TestReadDelimited_Empty(t *testing.T) {
	_, err := ReadDelimited(strings.NewReader(""))
	assert.ErrorIs(t, err, ErrNoHeader)
}

func TestReadFile_XLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "order.xlsx")
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	data := [][]any{
		{"Name", "Trial Number", "Left Image", "Target Side", "Used", "Trial End", "Critical Onset"},
		{"Order X", 1, "dog.png", "L", "yes", 4000, 2000},
		{"Order X", 2, "cat.png", "R", "no", 4000, 2000},
	}
	for r, row := range data {
		for c, v := range row {
			cell, err := excelize.CoordinatesToCellName(c+1, r+1)
			require.NoError(t, err)
			require.NoError(t, f.SetCellValue(sheet, cell, v))
		}
	}
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	order, err := LoadTrialOrder(path)
	require.NoError(t, err)
	require.Len(t, order.Trials, 2)
	assert.Equal(t, "Order X", order.Name())
	assert.Equal(t, "dog.png", order.Trials[0].LeftImage)
	assert.Equal(t, 2000, order.Trials[1].CriticalOnset)
	assert.Equal(t, []int{2}, order.Unused())
}

func TestLoadTrialOrder_CSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "order.csv")
	content := "Name,Trial Number,TrEnd,CritOnset,Used\nOrder Y,1,5000,2500,yes\nOrder Y,2,oops,,no\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	order, err := LoadTrialOrder(path)
	require.NoError(t, err)
	require.Len(t, order.Trials, 2)
	assert.Equal(t, 5000, order.Trials[0].TrialEnd)
	assert.Equal(t, 0, order.Trials[1].TrialEnd)
	assert.Equal(t, 2, order.CalcMaxTrial())
}

func TestReadFile_Missing(t *testing.T) {
	_, err := ReadFile(filepath.Join(t.TempDir(), "nope.csv"))
	assert.Error(t, err)
}
