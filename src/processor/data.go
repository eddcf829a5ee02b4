// data.go
package processor

import (
	"encoding/json"
	"math"
	"sort"
	"strconv"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// 数据表列名
const (
	ColName        = "Name"
	ColPlatform    = "Platform"
	ColYear        = "Year_of_Release"
	ColGenre       = "Genre"
	ColRating      = "Rating"
	ColCriticScore = "Critic_Score"
	ColUserScore   = "User_Score"
)

// Score 可缺失的评分
type Score struct {
	Value float64
	Valid bool
}

// NewScore 返回一个有效评分
func NewScore(v float64) Score {
	return Score{Value: v, Valid: true}
}

// MarshalJSON 缺失的评分序列化为null
func (s Score) MarshalJSON() ([]byte, error) {
	if !s.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(s.Value)
}

func (s Score) String() string {
	if !s.Valid {
		return "NaN"
	}
	return strconv.FormatFloat(s.Value, 'f', -1, 64)
}

// Row 一条游戏记录
type Row struct {
	Name        string  `json:"name"`
	Platform    string  `json:"platform"`
	Year        int     `json:"year_of_release"`
	Genre       string  `json:"genre"`
	Rating      string  `json:"rating"`
	CriticScore Score   `json:"critic_score"`
	UserScore   float64 `json:"user_score"`
}

// Table 清洗后的只读数据表
// 创建后不再修改, 可以在多个请求之间共享
type Table struct {
	rows []Row
}

// NewTable 复制rows并创建数据表
func NewTable(rows []Row) Table {
	cp := make([]Row, len(rows))
	copy(cp, rows)
	return Table{rows: cp}
}

// Len 返回行数
func (t Table) Len() int { return len(t.rows) }

// Row 返回第i行
func (t Table) Row(i int) Row { return t.rows[i] }

// Rows 返回所有行的副本
func (t Table) Rows() []Row {
	cp := make([]Row, len(t.rows))
	copy(cp, t.rows)
	return cp
}

// YearRange 闭区间年份范围
type YearRange struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// Contains 判断year是否在区间内(包含两端)
func (r YearRange) Contains(year int) bool {
	return year >= r.Min && year <= r.Max
}

// Selection 用户当前的筛选条件
type Selection struct {
	Genres  []string  `json:"genres"`
	Ratings []string  `json:"ratings"`
	Years   YearRange `json:"years"`
}

// Genres 返回去重后升序排列的类型列表
func (t Table) Genres() []string {
	return t.distinct(func(r Row) string { return r.Genre })
}

// Ratings 返回去重后升序排列的评级列表
func (t Table) Ratings() []string {
	return t.distinct(func(r Row) string { return r.Rating })
}

// Platforms 返回去重后升序排列的平台列表
func (t Table) Platforms() []string {
	return t.distinct(func(r Row) string { return r.Platform })
}

func (t Table) distinct(key func(Row) string) []string {
	seen := make(map[string]struct{})
	values := make([]string, 0)
	for _, r := range t.rows {
		k := key(r)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		values = append(values, k)
	}
	sort.Strings(values)
	return values
}

// Years 返回去重后升序排列的发行年份
func (t Table) Years() []int {
	seen := make(map[int]struct{})
	years := make([]int, 0)
	for _, r := range t.rows {
		if _, ok := seen[r.Year]; ok {
			continue
		}
		seen[r.Year] = struct{}{}
		years = append(years, r.Year)
	}
	sort.Ints(years)
	return years
}

// YearBounds 返回最小和最大发行年份, 空表时ok为false
func (t Table) YearBounds() (r YearRange, ok bool) {
	if len(t.rows) == 0 {
		return YearRange{}, false
	}
	r = YearRange{Min: t.rows[0].Year, Max: t.rows[0].Year}
	for _, row := range t.rows[1:] {
		if row.Year < r.Min {
			r.Min = row.Year
		}
		if row.Year > r.Max {
			r.Max = row.Year
		}
	}
	return r, true
}

// DataFrame 将数据表转换为gota DataFrame, 缺失的评论家评分为NA
func (t Table) DataFrame() dataframe.DataFrame {
	n := len(t.rows)
	names := make([]string, n)
	platforms := make([]string, n)
	years := make([]int, n)
	genres := make([]string, n)
	ratings := make([]string, n)
	critic := make([]string, n)
	user := make([]float64, n)

	for i, r := range t.rows {
		names[i] = r.Name
		platforms[i] = r.Platform
		years[i] = r.Year
		genres[i] = r.Genre
		ratings[i] = r.Rating
		critic[i] = r.CriticScore.String()
		user[i] = r.UserScore
	}

	return dataframe.New(
		series.New(names, series.String, ColName),
		series.New(platforms, series.String, ColPlatform),
		series.New(years, series.Int, ColYear),
		series.New(genres, series.String, ColGenre),
		series.New(ratings, series.String, ColRating),
		series.New(critic, series.Float, ColCriticScore),
		series.New(user, series.Float, ColUserScore),
	)
}

// nanToScore 将NaN转换为缺失评分
func nanToScore(v float64) Score {
	if math.IsNaN(v) {
		return Score{}
	}
	return NewScore(v)
}
