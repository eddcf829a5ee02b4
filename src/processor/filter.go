package processor

// Filter 按筛选条件过滤数据表
// 同时满足年份区间, 类型和评级三个条件的行才会保留, 保持原有顺序
// 类型或评级为空时返回空表
func Filter(t Table, sel Selection) Table {
	genres := toSet(sel.Genres)
	ratings := toSet(sel.Ratings)

	rows := make([]Row, 0)
	if len(genres) == 0 || len(ratings) == 0 || sel.Years.Min > sel.Years.Max {
		return Table{rows: rows}
	}

	for _, r := range t.rows {
		if !sel.Years.Contains(r.Year) {
			continue
		}
		if _, ok := genres[r.Genre]; !ok {
			continue
		}
		if _, ok := ratings[r.Rating]; !ok {
			continue
		}
		rows = append(rows, r)
	}
	return Table{rows: rows}
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}
