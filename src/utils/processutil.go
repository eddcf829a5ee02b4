package utils

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/xuri/excelize/v2"
)

func Contains[T comparable](slice []T, item T) bool {
	for _, v := range slice {
		if v == item {
			return true
		}
	}
	return false
}

// 辅助函数：判断DataFrame是否有某列
func HasColumn(df dataframe.DataFrame, name string) bool {
	for _, n := range df.Names() {
		if n == name {
			return true
		}
	}
	return false
}

// ParseYear 解析只有年份的日期字符串
// 支持 "2010" 以及表格导出的 "2010.0"
func ParseYear(s series.Element) (int, error) {
	if s.IsNA() {
		return 0, fmt.Errorf("year is NA")
	}
	str := strings.TrimSpace(s.String())
	if t, err := time.Parse("2006", str); err == nil {
		return t.Year(), nil
	}

	f, err := strconv.ParseFloat(str, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid year %q: %w", str, err)
	}
	if f != math.Trunc(f) || f < 1 || f > 9999 {
		return 0, fmt.Errorf("invalid year %q", str)
	}
	return int(f), nil
}

// WriteExcel 将DataFrame写成xlsx, NA单元格留空
func WriteExcel(df dataframe.DataFrame, w io.Writer, sheetName string) error {
	f := excelize.NewFile()
	defer f.Close()

	if sheetName == "" {
		sheetName = "Sheet1"
	}
	if sheetName != "Sheet1" {
		if err := f.SetSheetName("Sheet1", sheetName); err != nil {
			return fmt.Errorf("设置工作表名称失败: %w", err)
		}
	}

	// 写入列名
	colNames := df.Names()
	for i, name := range colNames {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheetName, cell, name); err != nil {
			return fmt.Errorf("写入列名失败: %w", err)
		}
	}

	// 写入数据
	for colIdx, colName := range colNames {
		col := df.Col(colName)
		for rowIdx := 0; rowIdx < df.Nrow(); rowIdx++ {
			el := col.Elem(rowIdx)
			if el.IsNA() {
				continue
			}
			cell, _ := excelize.CoordinatesToCellName(colIdx+1, rowIdx+2)
			if err := f.SetCellValue(sheetName, cell, el.Val()); err != nil {
				return fmt.Errorf("写入单元格%s失败: %w", cell, err)
			}
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("保存Excel文件失败: %w", err)
	}
	return nil
}
