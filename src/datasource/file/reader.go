// reader.go
package file

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"GamesMarketDash/src/processor"
	"GamesMarketDash/src/utils"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/tealeg/xlsx"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// DefaultMinYear 只保留晚于该年份发行的游戏
const DefaultMinYear = 2000

// 空单元格和这些值都按缺失处理
var naValues = []string{"", "NA", "NaN", "nan", "<nil>"}

// ErrMissingColumn 数据源缺少必需的列
var ErrMissingColumn = errors.New("missing required column")

// LoadError 数据源无法读取、解析或缺少必需列
type LoadError struct {
	Source string
	Err    error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load %s: %v", e.Source, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// Columns 逻辑列到数据源表头的映射
type Columns struct {
	Name        string
	Platform    string
	Year        string
	Genre       string
	Rating      string
	CriticScore string
	UserScore   string
}

// DefaultColumns 默认表头
func DefaultColumns() Columns {
	return Columns{
		Name:        processor.ColName,
		Platform:    processor.ColPlatform,
		Year:        processor.ColYear,
		Genre:       processor.ColGenre,
		Rating:      processor.ColRating,
		CriticScore: processor.ColCriticScore,
		UserScore:   processor.ColUserScore,
	}
}

// ColumnsFromMap 用配置中的映射覆盖默认表头, 键为标准列名
func ColumnsFromMap(m map[string]string) Columns {
	c := DefaultColumns()
	set := func(dst *string, key string) {
		if v, ok := m[key]; ok && v != "" {
			*dst = v
		}
	}
	set(&c.Name, processor.ColName)
	set(&c.Platform, processor.ColPlatform)
	set(&c.Year, processor.ColYear)
	set(&c.Genre, processor.ColGenre)
	set(&c.Rating, processor.ColRating)
	set(&c.CriticScore, processor.ColCriticScore)
	set(&c.UserScore, processor.ColUserScore)
	return c
}

func (c Columns) required() []string {
	return []string{c.Name, c.Platform, c.Year, c.Genre, c.Rating, c.CriticScore, c.UserScore}
}

// Options 加载选项
type Options struct {
	Columns  Columns
	MinYear  int
	Sheet    string // xlsx工作表, 为空时取第一个
	Encoding string // csv字符集, 为空时按utf-8
}

func (o Options) withDefaults() Options {
	if o.Columns == (Columns{}) {
		o.Columns = DefaultColumns()
	}
	if o.MinYear == 0 {
		o.MinYear = DefaultMinYear
	}
	return o
}

// Load 读取数据源并清洗为数据表
// 根据扩展名选择csv或xlsx解析
func Load(source string, opts Options) (processor.Table, error) {
	switch strings.ToLower(filepath.Ext(source)) {
	case ".xlsx", ".xlsm":
		records, err := readXLSX(source, opts.Sheet)
		if err != nil {
			return processor.Table{}, &LoadError{Source: source, Err: err}
		}
		return fromRecords(source, records, opts)
	default:
		f, err := os.Open(source)
		if err != nil {
			return processor.Table{}, &LoadError{Source: source, Err: err}
		}
		defer f.Close()
		return LoadCSV(source, f, opts)
	}
}

// LoadCSV 从r读取csv数据并清洗, name仅用于错误信息
func LoadCSV(name string, r io.Reader, opts Options) (processor.Table, error) {
	decoded, err := charsetReader(opts.Encoding, r)
	if err != nil {
		return processor.Table{}, &LoadError{Source: name, Err: err}
	}

	records, err := readCSV(decoded)
	if err != nil {
		return processor.Table{}, &LoadError{Source: name, Err: err}
	}
	return fromRecords(name, records, opts)
}

// readCSV 读取全部记录
// 字段少于表头的行补空(之后按缺失值清洗), 字段多于表头的行直接丢弃
func readCSV(r io.Reader) ([][]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	raw, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	if len(raw) == 0 {
		return nil, nil
	}

	width := len(raw[0])
	records := make([][]string, 0, len(raw))
	records = append(records, raw[0])
	for _, rec := range raw[1:] {
		switch {
		case len(rec) > width:
			continue
		case len(rec) < width:
			padded := make([]string, width)
			copy(padded, rec)
			rec = padded
		}
		records = append(records, rec)
	}
	return records, nil
}

// charsetReader 字符集转换器
// 常用的GBK和Windows-1251直接处理, 其它交给htmlindex查找
// utf-8输入去掉开头的BOM
func charsetReader(charset string, input io.Reader) (io.Reader, error) {
	charset = strings.ToLower(strings.TrimSpace(charset))
	var enc encoding.Encoding
	switch charset {
	case "", "utf-8", "utf8":
		return transform.NewReader(input, unicode.BOMOverride(transform.Nop)), nil
	case "gbk", "gb2312":
		enc = simplifiedchinese.GBK
	case "windows-1251", "cp1251":
		enc = charmap.Windows1251
	default:
		e, err := htmlindex.Get(charset)
		if err != nil {
			return nil, fmt.Errorf("unsupported encoding %q: %w", charset, err)
		}
		enc = e
	}
	return transform.NewReader(input, enc.NewDecoder()), nil
}

// readXLSX 读取xlsx工作表的全部单元格文本, 第一行为表头
func readXLSX(filePath, sheetName string) ([][]string, error) {
	// 1. 使用tealeg/xlsx打开Excel文件
	xlFile, err := xlsx.OpenFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("xlsx open file false: %w", err)
	}

	// 2. 获取工作表
	if len(xlFile.Sheets) == 0 {
		return nil, fmt.Errorf("excel文件中没有工作表")
	}
	sheet := xlFile.Sheets[0]
	if sheetName != "" {
		s, ok := xlFile.Sheet[sheetName]
		if !ok {
			return nil, fmt.Errorf("工作表 %s 不存在", sheetName)
		}
		sheet = s
	}

	// 3. 转换为记录
	return sheetRecords(sheet), nil
}

// sheetRecords 将xlsx.Sheet转换为[][]string, 每行按表头宽度对齐
func sheetRecords(sheet *xlsx.Sheet) [][]string {
	if len(sheet.Rows) == 0 {
		return nil
	}

	var headers []string
	for _, cell := range sheet.Rows[0].Cells {
		headers = append(headers, cell.String())
	}

	records := make([][]string, 0, len(sheet.Rows))
	records = append(records, headers)
	for _, row := range sheet.Rows[1:] {
		if row == nil {
			continue
		}
		record := make([]string, len(headers))
		for i, cell := range row.Cells {
			if i < len(headers) { // 确保不超出列数范围
				record[i] = cell.String()
			}
		}
		records = append(records, record)
	}
	return records
}

// fromRecords 检查表头并把记录转换为全字符串的DataFrame后清洗
// 只有表头没有数据行时返回空表
func fromRecords(source string, records [][]string, opts Options) (processor.Table, error) {
	opts = opts.withDefaults()
	if len(records) == 0 {
		return processor.Table{}, &LoadError{Source: source, Err: fmt.Errorf("%w: no header row", ErrMissingColumn)}
	}

	header := make([]string, len(records[0]))
	for i, h := range records[0] {
		header[i] = strings.TrimSpace(h)
	}
	records[0] = header

	if err := checkColumns(opts.Columns, func(name string) bool { return utils.Contains(header, name) }); err != nil {
		return processor.Table{}, &LoadError{Source: source, Err: err}
	}
	if len(records) == 1 {
		return processor.NewTable(nil), nil
	}

	df := dataframe.LoadRecords(records,
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
		dataframe.NaNValues(naValues),
	)
	if df.Err != nil {
		return processor.Table{}, &LoadError{Source: source, Err: df.Err}
	}
	return clean(source, df, opts)
}

func checkColumns(cols Columns, has func(string) bool) error {
	for _, name := range cols.required() {
		if !has(name) {
			return fmt.Errorf("%w: %s", ErrMissingColumn, name)
		}
	}
	return nil
}

// clean 清洗原始数据
//  1. 评分转为数值, 无法转换的为缺失
//  2. 删除用户评分缺失的行
//  3. 解析发行年份, 删除解析失败或不晚于MinYear的行
//  4. 转换为processor.Row
func clean(source string, df dataframe.DataFrame, opts Options) (processor.Table, error) {
	opts = opts.withDefaults()
	cols := opts.Columns

	if err := checkColumns(cols, func(name string) bool { return utils.HasColumn(df, name) }); err != nil {
		return processor.Table{}, &LoadError{Source: source, Err: err}
	}
	if df.Nrow() == 0 {
		return processor.NewTable(nil), nil
	}

	df = df.Mutate(toFloat(df.Col(cols.UserScore), cols.UserScore))
	df = df.Mutate(toFloat(df.Col(cols.CriticScore), cols.CriticScore))
	df = df.Mutate(toYear(df.Col(cols.Year), cols.Year))
	if df.Err != nil {
		return processor.Table{}, &LoadError{Source: source, Err: df.Err}
	}

	minYear := opts.MinYear
	df = df.Filter(dataframe.F{
		Colname:    cols.UserScore,
		Comparator: series.CompFunc,
		Comparando: func(el series.Element) bool { return !el.IsNA() },
	})
	df = df.Filter(dataframe.F{
		Colname:    cols.Year,
		Comparator: series.CompFunc,
		Comparando: func(el series.Element) bool {
			if el.IsNA() {
				return false
			}
			year, err := el.Int()
			return err == nil && year > minYear
		},
	})
	if df.Err != nil {
		return processor.Table{}, &LoadError{Source: source, Err: df.Err}
	}

	return toTable(df, cols), nil
}

// toFloat 评分转为数值, 前后空白忽略; 无法解析和非有限值(inf, NaN)都按缺失处理
func toFloat(s series.Series, name string) series.Series {
	records := s.Records()
	values := make([]string, len(records))
	for i, rec := range records {
		f, err := strconv.ParseFloat(strings.TrimSpace(rec), 64)
		if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
			values[i] = "NaN"
			continue
		}
		values[i] = strconv.FormatFloat(f, 'g', -1, 64)
	}
	return series.New(values, series.Float, name)
}

func toYear(s series.Series, name string) series.Series {
	years := make([]string, s.Len())
	for i := 0; i < s.Len(); i++ {
		year, err := utils.ParseYear(s.Elem(i))
		if err != nil {
			years[i] = "NaN"
			continue
		}
		years[i] = fmt.Sprint(year)
	}
	return series.New(years, series.Int, name)
}

func toTable(df dataframe.DataFrame, cols Columns) processor.Table {
	text := func(s series.Series, i int) string {
		el := s.Elem(i)
		if el.IsNA() {
			return ""
		}
		return el.String()
	}

	var (
		names     = df.Col(cols.Name)
		platforms = df.Col(cols.Platform)
		years     = df.Col(cols.Year)
		genres    = df.Col(cols.Genre)
		ratings   = df.Col(cols.Rating)
		critic    = df.Col(cols.CriticScore)
		user      = df.Col(cols.UserScore)
	)

	rows := make([]processor.Row, 0, df.Nrow())
	for i := 0; i < df.Nrow(); i++ {
		year, _ := years.Elem(i).Int()
		r := processor.Row{
			Name:      text(names, i),
			Platform:  text(platforms, i),
			Year:      year,
			Genre:     text(genres, i),
			Rating:    text(ratings, i),
			UserScore: user.Elem(i).Float(),
		}
		if el := critic.Elem(i); !el.IsNA() {
			r.CriticScore = processor.NewScore(el.Float())
		}
		rows = append(rows, r)
	}
	return processor.NewTable(rows)
}
