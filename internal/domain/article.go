package domain

import "time"

// ArticleSummary is one upstream-produced summary row consumed by the digest run.
type ArticleSummary struct {
	ID           int64
	Summary      string
	PublishedAt  time.Time
	StimulusRaw  int
	RelevanceRaw int
}

// Article is a full newsdata row as exposed on the read path.
type Article struct {
	ID           int64
	Press        string
	Subcategory  string
	Title        string
	Link         string
	PublishTime  string
	Journalist   string
	Summary      string
	StimulusRaw  int
	RelevanceRaw int
}

// ScorePair holds presentation hues derived from the raw scores. Never stored.
type ScorePair struct {
	RelevanceHue float64
	StimulusHue  float64
}

// ArticleView joins an article with its normalized scores.
type ArticleView struct {
	Article
	Scores ScorePair
}

// ArticleQuery carries the read-path listing parameters.
type ArticleQuery struct {
	Category string
	Field    string
	Search   string
	Page     int
	PageSize int
}

// ArticlePage is one page of a filtered listing.
type ArticlePage struct {
	Articles   []Article
	Total      int
	Page       int
	TotalPages int
}

// Subcategories lists the fixed category set articles are classified into.
// CategoryAll disables the category filter.
var Subcategories = []string{
	"모바일", "인터넷/SNS", "통신/뉴미디어", "IT일반",
	"과학일반", "보안/해킹", "컴퓨터", "게임/리뷰",
}

// CategoryAll selects every category.
const CategoryAll = "전체"
