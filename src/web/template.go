package web

// indexTemplate 看板页面
// 表单提交时带上applied=1, 用户清空所有选项时得到空集合而不是默认值
const indexTemplate = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body { font-family: sans-serif; margin: 24px; }
.controls { display: flex; gap: 32px; margin-bottom: 16px; }
.charts { display: flex; flex-wrap: wrap; gap: 16px; }
.count { font-size: 18px; margin: 12px 0; }
</style>
</head>
<body>
<h1>{{.Title}}</h1>
<p>{{.Subtitle}}</p>
<form method="get" action="/">
<input type="hidden" name="applied" value="1">
<div class="controls">
<fieldset>
<legend>{{.GenresLabel}}</legend>
{{range .Genres}}<label><input type="checkbox" name="genre" value="{{.Value}}"{{if .Selected}} checked{{end}}> {{.Value}}</label><br>
{{end}}</fieldset>
<fieldset>
<legend>{{.RatingsLabel}}</legend>
{{range .Ratings}}<label><input type="checkbox" name="rating" value="{{.Value}}"{{if .Selected}} checked{{end}}> {{.Value}}</label><br>
{{end}}</fieldset>
<fieldset>
<legend>{{.YearsLabel}}</legend>
<select name="from">{{range .Years}}<option value="{{.Value}}"{{if .From}} selected{{end}}>{{.Value}}</option>{{end}}</select>
&ndash;
<select name="to">{{range .Years}}<option value="{{.Value}}"{{if .To}} selected{{end}}>{{.Value}}</option>{{end}}</select>
</fieldset>
</div>
<button type="submit">OK</button>
</form>
<div class="count">{{.CountText}}</div>
<div class="charts">
<img src="{{.ReleasesSrc}}" alt="{{.ReleasesTitle}}">
<img src="{{.ScoresSrc}}" alt="{{.ScoresTitle}}">
</div>
<p><a href="{{.ExportHref}}">{{.ExportLabel}}</a></p>
</body>
</html>
`
