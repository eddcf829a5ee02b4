package processor

import (
	"sort"

	"github.com/aclements/go-moremath/stats"
)

// Release 某年某平台的发行数量
type Release struct {
	Year     int    `json:"year"`
	Platform string `json:"platform"`
	Count    int    `json:"count"`
}

// ScorePoint 散点图的一个点
type ScorePoint struct {
	UserScore   float64 `json:"user_score"`
	CriticScore Score   `json:"critic_score"`
	Genre       string  `json:"genre"`
}

// ScoreSummary 评分汇总
type ScoreSummary struct {
	Games       int   `json:"games"`
	MeanUser    Score `json:"mean_user_score"`
	MeanCritic  Score `json:"mean_critic_score"`
	CriticCount int   `json:"critic_scored"`
}

// Count 返回行数
func Count(t Table) int {
	return t.Len()
}

// ReleasesByYearPlatform 按(年份, 平台)分组计数
// 结果按年份升序, 再按平台升序排列; 平台为空的行没有分组键, 不参与计数
func ReleasesByYearPlatform(t Table) []Release {
	type key struct {
		year     int
		platform string
	}
	counts := make(map[key]int)
	for _, r := range t.rows {
		if r.Platform == "" {
			continue
		}
		counts[key{r.Year, r.Platform}]++
	}

	releases := make([]Release, 0, len(counts))
	for k, n := range counts {
		releases = append(releases, Release{Year: k.year, Platform: k.platform, Count: n})
	}
	sort.Slice(releases, func(i, j int) bool {
		if releases[i].Year != releases[j].Year {
			return releases[i].Year < releases[j].Year
		}
		return releases[i].Platform < releases[j].Platform
	})
	return releases
}

// ScoreScatter 每行一个(用户评分, 评论家评分, 类型)点, 按用户评分稳定升序
func ScoreScatter(t Table) []ScorePoint {
	points := make([]ScorePoint, len(t.rows))
	for i, r := range t.rows {
		points[i] = ScorePoint{
			UserScore:   r.UserScore,
			CriticScore: r.CriticScore,
			Genre:       r.Genre,
		}
	}
	sort.SliceStable(points, func(i, j int) bool {
		return points[i].UserScore < points[j].UserScore
	})
	return points
}

// SummarizeScores 计算平均用户评分和平均评论家评分(仅统计存在的值)
func SummarizeScores(t Table) ScoreSummary {
	summary := ScoreSummary{Games: t.Len()}
	if t.Len() == 0 {
		return summary
	}

	user := make([]float64, 0, t.Len())
	critic := make([]float64, 0, t.Len())
	for _, r := range t.rows {
		user = append(user, r.UserScore)
		if r.CriticScore.Valid {
			critic = append(critic, r.CriticScore.Value)
		}
	}

	summary.MeanUser = nanToScore(stats.Mean(user))
	summary.CriticCount = len(critic)
	if len(critic) > 0 {
		summary.MeanCritic = nanToScore(stats.Mean(critic))
	}
	return summary
}
