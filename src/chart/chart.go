// Package chart renders the dashboard projections as SVG.
package chart

import (
	"bytes"
	"fmt"
	"io"
	"sort"

	"GamesMarketDash/src/processor"

	"github.com/aclements/go-gg/gg"
	"github.com/aclements/go-gg/table"
	svg "github.com/ajstarks/svgo"
)

const (
	DefaultWidth  = 640
	DefaultHeight = 420
)

// Labels 图表标题和坐标轴文字
type Labels struct {
	Title  string
	X, Y   string
	Legend string // 图例标题(平台/类型)
	Empty  string // 没有数据时显示
}

// columns 坐标轴和图例标题作为列名, 为空或重名时使用默认值
func (l Labels) columns(defX, defY, defLegend string) (x, y, legend string) {
	x, y, legend = defX, defY, defLegend
	if l.X != "" {
		x = l.X
	}
	if l.Y != "" && l.Y != x {
		y = l.Y
	}
	if l.Legend != "" && l.Legend != x && l.Legend != y {
		legend = l.Legend
	}
	return x, y, legend
}

// Band 堆叠面积图中某平台在某年的上下边界
type Band struct {
	Year     int
	Platform string
	Lower    int
	Upper    int
}

// Stack 把(年份, 平台, 数量)堆叠成面积带
// 每个平台在每一年都有一条记录, 没有发行的年份厚度为0, 保证面积连续
func Stack(releases []processor.Release) []Band {
	type key struct {
		year     int
		platform string
	}
	counts := make(map[key]int, len(releases))
	yearSet := make(map[int]struct{})
	platformSet := make(map[string]struct{})
	for _, r := range releases {
		counts[key{r.Year, r.Platform}] += r.Count
		yearSet[r.Year] = struct{}{}
		platformSet[r.Platform] = struct{}{}
	}

	years := make([]int, 0, len(yearSet))
	for y := range yearSet {
		years = append(years, y)
	}
	sort.Ints(years)
	platforms := make([]string, 0, len(platformSet))
	for p := range platformSet {
		platforms = append(platforms, p)
	}
	sort.Strings(platforms)

	cum := make(map[int]int, len(years))
	bands := make([]Band, 0, len(years)*len(platforms))
	for _, p := range platforms {
		for _, y := range years {
			lower := cum[y]
			upper := lower + counts[key{y, p}]
			cum[y] = upper
			bands = append(bands, Band{Year: y, Platform: p, Lower: lower, Upper: upper})
		}
	}
	return bands
}

// Releases 绘制按年份和平台堆叠的发行数量面积图
func Releases(w io.Writer, releases []processor.Release, labels Labels, width, height int) error {
	if len(releases) == 0 {
		return placeholder(w, labels, width, height)
	}

	bands := Stack(releases)
	years := make([]int, len(bands))
	platforms := make([]string, len(bands))
	lower := make([]int, len(bands))
	upper := make([]int, len(bands))
	for i, b := range bands {
		years[i] = b.Year
		platforms[i] = b.Platform
		lower[i] = b.Lower
		upper[i] = b.Upper
	}

	// 坐标轴标题取自列名
	x, y, legend := labels.columns("year", "releases", "platform")
	tab := new(table.Builder).
		Add(x, years).
		Add(legend, platforms).
		Add("lower", lower).
		Add(y, upper).
		Done()

	plot := gg.NewPlot(tab)
	plot.Add(gg.LayerArea{
		X:     x,
		Upper: y,
		Lower: "lower",
		Fill:  legend,
	})
	plot.Add(gg.Title(labels.Title))

	return render(w, plot, width, height)
}

// Scores 绘制用户评分和评论家评分的散点图, 按类型着色
// 没有评论家评分的点无法定位, 不绘制
func Scores(w io.Writer, points []processor.ScorePoint, labels Labels, width, height int) error {
	var (
		user   []float64
		critic []float64
		genres []string
	)
	for _, p := range points {
		if !p.CriticScore.Valid {
			continue
		}
		user = append(user, p.UserScore)
		critic = append(critic, p.CriticScore.Value)
		genres = append(genres, p.Genre)
	}
	if len(user) == 0 {
		return placeholder(w, labels, width, height)
	}

	x, y, legend := labels.columns("user score", "critic score", "genre")
	tab := new(table.Builder).
		Add(x, user).
		Add(y, critic).
		Add(legend, genres).
		Done()

	plot := gg.NewPlot(tab)
	plot.Add(gg.LayerPoints{
		X:     x,
		Y:     y,
		Color: legend,
	})
	plot.Add(gg.Title(labels.Title))

	return render(w, plot, width, height)
}

func render(w io.Writer, plot *gg.Plot, width, height int) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("render chart: %v", r)
		}
	}()

	var buf bytes.Buffer
	plot.WriteSVG(&buf, width, height)
	_, err = buf.WriteTo(w)
	return err
}

// placeholder 没有数据时输出带标题的空白图
func placeholder(w io.Writer, labels Labels, width, height int) error {
	var buf bytes.Buffer
	canvas := svg.New(&buf)
	canvas.Start(width, height)
	canvas.Rect(0, 0, width, height, "fill:white;stroke:#d3d3d3")
	canvas.Text(width/2, 30, labels.Title, "text-anchor:middle;font-family:sans-serif;font-size:16px")
	canvas.Text(width/2, height/2, labels.Empty, "text-anchor:middle;font-family:sans-serif;font-size:14px;fill:#888888")
	canvas.End()

	_, err := buf.WriteTo(w)
	return err
}
