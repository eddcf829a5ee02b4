package web

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"GamesMarketDash/src/chart"
	"GamesMarketDash/src/config"
	"GamesMarketDash/src/processor"
	"GamesMarketDash/src/storage"
	"GamesMarketDash/src/utils"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Server 看板的HTTP界面
// 每个请求根据查询参数生成Selection, 对当前数据表做过滤和投影
type Server struct {
	dataset *storage.Dataset
	dcfg    *config.DataConfig
	logger  *storage.Logger
	printer *message.Printer
	page    *template.Template
}

// NewServer 创建Server
func NewServer(dataset *storage.Dataset, dcfg *config.DataConfig, logger *storage.Logger) *Server {
	return &Server{
		dataset: dataset,
		dcfg:    dcfg,
		logger:  logger,
		printer: message.NewPrinter(language.Make(dcfg.Locale)),
		page:    template.Must(template.New("index").Parse(indexTemplate)),
	}
}

// Handler 注册所有路由
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /api/view", s.handleView)
	mux.HandleFunc("GET /api/options", s.handleOptions)
	mux.HandleFunc("GET /chart/releases.svg", s.handleReleasesChart)
	mux.HandleFunc("GET /chart/scores.svg", s.handleScoresChart)
	mux.HandleFunc("GET /export.xlsx", s.handleExport)
	mux.HandleFunc("GET /logs", s.handleLogs)
	return s.logRequests(mux)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug(fmt.Sprintf("%s %s %v", r.Method, r.URL.RequestURI(), time.Since(start)))
	})
}

// ParseSelection 从查询参数解析筛选条件
// 查询中没有任何筛选参数时使用默认值; 否则缺少的类型/评级视为空集合
// 年份缺失或无效时取数据表的年份范围
func (s *Server) ParseSelection(q url.Values, table processor.Table) processor.Selection {
	if !q.Has("genre") && !q.Has("rating") && !q.Has("from") && !q.Has("to") && !q.Has("applied") {
		return processor.Selection{
			Genres:  append([]string(nil), s.dcfg.DefaultGenres...),
			Ratings: append([]string(nil), s.dcfg.DefaultRatings...),
			Years:   processor.YearRange{Min: s.dcfg.DefaultYears[0], Max: s.dcfg.DefaultYears[1]},
		}
	}

	bounds, _ := table.YearBounds()
	sel := processor.Selection{
		Genres:  append([]string{}, q["genre"]...),
		Ratings: append([]string{}, q["rating"]...),
		Years:   bounds,
	}
	if v, err := strconv.Atoi(q.Get("from")); err == nil {
		sel.Years.Min = v
	}
	if v, err := strconv.Atoi(q.Get("to")); err == nil {
		sel.Years.Max = v
	}
	return sel
}

func selectionQuery(sel processor.Selection) url.Values {
	q := url.Values{}
	q.Set("applied", "1")
	for _, g := range sel.Genres {
		q.Add("genre", g)
	}
	for _, r := range sel.Ratings {
		q.Add("rating", r)
	}
	q.Set("from", strconv.Itoa(sel.Years.Min))
	q.Set("to", strconv.Itoa(sel.Years.Max))
	return q
}

// CountText 本地化的计数文字
func (s *Server) CountText(n int) string {
	return s.printer.Sprintf(s.dcfg.GetLabel("count"), n)
}

func (s *Server) filtered(r *http.Request) (processor.Selection, processor.Table) {
	table := s.dataset.Get()
	sel := s.ParseSelection(r.URL.Query(), table)
	return sel, processor.Filter(table, sel)
}

type option struct {
	Value    string
	Selected bool
}

type yearOption struct {
	Value    int
	From, To bool
}

type pageData struct {
	Title, Subtitle            string
	GenresLabel, RatingsLabel  string
	YearsLabel, ExportLabel    string
	Genres, Ratings            []option
	Years                      []yearOption
	CountText                  string
	ReleasesSrc, ScoresSrc     template.URL
	ExportHref                 template.URL
	ReleasesTitle, ScoresTitle string
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	table := s.dataset.Get()
	sel := s.ParseSelection(r.URL.Query(), table)
	filtered := processor.Filter(table, sel)
	query := selectionQuery(sel).Encode()

	data := pageData{
		Title:         s.dcfg.GetLabel("title"),
		Subtitle:      s.dcfg.GetLabel("subtitle"),
		GenresLabel:   s.dcfg.GetLabel("genres"),
		RatingsLabel:  s.dcfg.GetLabel("ratings"),
		YearsLabel:    s.dcfg.GetLabel("years"),
		ExportLabel:   s.dcfg.GetLabel("export"),
		ReleasesTitle: s.dcfg.GetLabel("releases_title"),
		ScoresTitle:   s.dcfg.GetLabel("scores_title"),
		CountText:     s.CountText(processor.Count(filtered)),
		ReleasesSrc:   template.URL("/chart/releases.svg?" + query),
		ScoresSrc:     template.URL("/chart/scores.svg?" + query),
		ExportHref:    template.URL("/export.xlsx?" + query),
	}
	for _, g := range table.Genres() {
		data.Genres = append(data.Genres, option{Value: g, Selected: utils.Contains(sel.Genres, g)})
	}
	for _, rt := range table.Ratings() {
		data.Ratings = append(data.Ratings, option{Value: rt, Selected: utils.Contains(sel.Ratings, rt)})
	}
	for _, y := range table.Years() {
		data.Years = append(data.Years, yearOption{Value: y, From: y == sel.Years.Min, To: y == sel.Years.Max})
	}

	var buf bytes.Buffer
	if err := s.page.Execute(&buf, data); err != nil {
		s.fail(w, "渲染页面失败", err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	buf.WriteTo(w)
}

// ViewResponse /api/view 的响应
type ViewResponse struct {
	Selection processor.Selection    `json:"selection"`
	Count     int                    `json:"count"`
	CountText string                 `json:"count_text"`
	Releases  []processor.Release    `json:"releases"`
	Scatter   []processor.ScorePoint `json:"scatter"`
	Summary   processor.ScoreSummary `json:"summary"`
}

func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	sel, filtered := s.filtered(r)
	n := processor.Count(filtered)
	s.writeJSON(w, ViewResponse{
		Selection: sel,
		Count:     n,
		CountText: s.CountText(n),
		Releases:  processor.ReleasesByYearPlatform(filtered),
		Scatter:   processor.ScoreScatter(filtered),
		Summary:   processor.SummarizeScores(filtered),
	})
}

// OptionsResponse /api/options 的响应
type OptionsResponse struct {
	Genres    []string            `json:"genres"`
	Ratings   []string            `json:"ratings"`
	Platforms []string            `json:"platforms"`
	Years     []int               `json:"years"`
	Bounds    processor.YearRange `json:"bounds"`
	Source    string              `json:"source"`
	LoadedAt  time.Time           `json:"loaded_at"`
}

func (s *Server) handleOptions(w http.ResponseWriter, r *http.Request) {
	table := s.dataset.Get()
	bounds, _ := table.YearBounds()
	s.writeJSON(w, OptionsResponse{
		Genres:    table.Genres(),
		Ratings:   table.Ratings(),
		Platforms: table.Platforms(),
		Years:     table.Years(),
		Bounds:    bounds,
		Source:    s.dataset.Source(),
		LoadedAt:  s.dataset.LoadedAt(),
	})
}

func (s *Server) chartLabels(prefix string) chart.Labels {
	return chart.Labels{
		Title:  s.dcfg.GetLabel(prefix + "_title"),
		X:      s.dcfg.GetLabel(prefix + "_x"),
		Y:      s.dcfg.GetLabel(prefix + "_y"),
		Legend: s.dcfg.GetLabel(prefix + "_legend"),
		Empty:  s.dcfg.GetLabel("empty"),
	}
}

func (s *Server) handleReleasesChart(w http.ResponseWriter, r *http.Request) {
	_, filtered := s.filtered(r)

	var buf bytes.Buffer
	err := chart.Releases(&buf, processor.ReleasesByYearPlatform(filtered), s.chartLabels("releases"), chart.DefaultWidth, chart.DefaultHeight)
	if err != nil {
		s.fail(w, "绘制发行图失败", err)
		return
	}
	w.Header().Set("Content-Type", "image/svg+xml")
	buf.WriteTo(w)
}

func (s *Server) handleScoresChart(w http.ResponseWriter, r *http.Request) {
	_, filtered := s.filtered(r)

	var buf bytes.Buffer
	err := chart.Scores(&buf, processor.ScoreScatter(filtered), s.chartLabels("scores"), chart.DefaultWidth, chart.DefaultHeight)
	if err != nil {
		s.fail(w, "绘制评分图失败", err)
		return
	}
	w.Header().Set("Content-Type", "image/svg+xml")
	buf.WriteTo(w)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	_, filtered := s.filtered(r)

	var buf bytes.Buffer
	if err := utils.WriteExcel(filtered.DataFrame(), &buf, "games"); err != nil {
		s.fail(w, "导出Excel失败", err)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="games.xlsx"`)
	buf.WriteTo(w)
}

// handleLogs 实时输出日志
func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	// 设置响应头
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	// 创建日志订阅通道
	logChan := s.logger.Subscribe()
	defer s.logger.Unsubscribe(logChan)

	flusher, _ := w.(http.Flusher)
	if flusher != nil {
		flusher.Flush()
	}

	for {
		select {
		case msg := <-logChan:
			// 将日志消息写入HTTP响应
			if _, err := fmt.Fprint(w, msg); err != nil {
				// 如果写入失败(如客户端断开连接)，则退出循环
				return
			}
			if flusher != nil {
				flusher.Flush()
			}
		case <-r.Context().Done():
			return
		}
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		s.fail(w, "序列化响应失败", err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}

func (s *Server) fail(w http.ResponseWriter, msg string, err error) {
	s.logger.Error(fmt.Sprintf("%s: %v", msg, err))
	http.Error(w, msg, http.StatusInternalServerError)
}
