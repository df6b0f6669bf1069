package types

import "strings"

// QueryType identifies one of the closed set of analytic queries the
// assistant can execute. The set is closed: anything outside it is rejected
// at dispatch, never coerced to a default.
type QueryType string

const (
	QueryUserWithMostBooks QueryType = "USER_WITH_MOST_BOOKS"
	QueryMostPopularBook   QueryType = "MOST_POPULAR_BOOK"
	QueryExpensiveBooks    QueryType = "EXPENSIVE_BOOKS"
	QueryBooksByGenre      QueryType = "BOOKS_BY_GENRE"
	QueryBooksByStatus     QueryType = "BOOKS_BY_STATUS"
	QueryUserStatistics    QueryType = "USER_STATISTICS"
	QueryMyBookCount       QueryType = "MY_BOOK_COUNT"
	QueryCurrentlyReading  QueryType = "CURRENTLY_READING"
	QueryCommonGenre       QueryType = "COMMON_GENRE"
	QueryGeneralStatistics QueryType = "GENERAL_STATISTICS"
)

// QueryTypes lists every supported query type, in dispatch-table order.
func QueryTypes() []QueryType {
	return []QueryType{
		QueryUserWithMostBooks,
		QueryMostPopularBook,
		QueryExpensiveBooks,
		QueryBooksByGenre,
		QueryBooksByStatus,
		QueryUserStatistics,
		QueryMyBookCount,
		QueryCurrentlyReading,
		QueryCommonGenre,
		QueryGeneralStatistics,
	}
}

// ParseQueryType normalizes and validates a query type string.
func ParseQueryType(s string) (QueryType, bool) {
	qt := QueryType(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range QueryTypes() {
		if qt == known {
			return qt, true
		}
	}
	return "", false
}

// QueryParameters carries the optional arguments the model may attach to an
// interpreted query.
type QueryParameters struct {
	Limit  *int   `json:"limit,omitempty"`
	Genre  string `json:"genre,omitempty"`
	Status string `json:"status,omitempty"`
}

// QueryIntent is the validated, immutable output of the intent parser.
type QueryIntent struct {
	QueryType  QueryType       `json:"queryType"`
	Parameters QueryParameters `json:"parameters"`
}

// Chart hints tell the client how to render a result set.
const (
	ChartBar    = "bar"
	ChartTable  = "table"
	ChartSingle = "single"
)

// Row is one flat record of a query result. Values are scalars only; rows
// never contain nested containers.
type Row map[string]any

// QueryResult is the uniform output of every dispatch handler. Row order is
// part of the contract (e.g. descending by count), not incidental.
type QueryResult struct {
	Rows      []Row  `json:"rows"`
	ChartType string `json:"chartType"`
}
