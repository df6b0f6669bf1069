package assistant

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/shelfwise/shelfwise/internal/apperr"
	"github.com/shelfwise/shelfwise/internal/store"
	"github.com/shelfwise/shelfwise/internal/types"
)

const defaultExpensiveLimit = 5

// topGroupLimit caps the per-user and per-book aggregate views.
const topGroupLimit = 10

// dispatchRequest carries everything a handler needs beyond the stores.
type dispatchRequest struct {
	params      types.QueryParameters
	principalID string
	privileged  bool
}

type handlerFunc func(ctx context.Context, req dispatchRequest) (types.QueryResult, error)

// Dispatcher routes a parsed intent to the handler that computes its data.
// Handlers are pure over the book store and user directory; they never call
// the model and never touch the cache.
type Dispatcher struct {
	books    store.BookStore
	users    store.UserDirectory
	handlers map[types.QueryType]handlerFunc
}

func NewDispatcher(books store.BookStore, users store.UserDirectory) *Dispatcher {
	d := &Dispatcher{books: books, users: users}
	d.handlers = map[types.QueryType]handlerFunc{
		types.QueryUserWithMostBooks: d.userWithMostBooks,
		types.QueryMostPopularBook:   d.mostPopularBook,
		types.QueryExpensiveBooks:    d.expensiveBooks,
		types.QueryBooksByGenre:      d.booksByGenre,
		types.QueryBooksByStatus:     d.booksByStatus,
		types.QueryUserStatistics:    d.userStatistics,
		types.QueryMyBookCount:       d.myBookCount,
		types.QueryCurrentlyReading:  d.currentlyReading,
		types.QueryCommonGenre:       d.commonGenre,
		types.QueryGeneralStatistics: d.generalStatistics,
	}
	return d
}

// Execute resolves the intent's query type against the closed handler set
// and runs the matching handler. Unknown types fail here, not in the parser,
// so the caller sees the same validation surface for garbage model output
// and for well-formed output naming a type we do not serve.
func (d *Dispatcher) Execute(ctx context.Context, intent *types.QueryIntent, principalID string, privileged bool) (types.QueryResult, error) {
	qt, ok := types.ParseQueryType(string(intent.QueryType))
	if !ok {
		return types.QueryResult{}, apperr.NewValidation("query type not supported")
	}
	handler := d.handlers[qt]
	req := dispatchRequest{params: intent.Parameters, principalID: principalID, privileged: privileged}
	return handler(ctx, req)
}

// scopedBooks returns the books visible to the caller: the whole collection
// for privileged principals, their own shelf otherwise.
func (d *Dispatcher) scopedBooks(ctx context.Context, req dispatchRequest) ([]types.Book, error) {
	if req.privileged {
		return d.books.AllForAdmin(ctx)
	}
	return d.books.ByOwner(ctx, req.principalID)
}

func (d *Dispatcher) userWithMostBooks(ctx context.Context, req dispatchRequest) (types.QueryResult, error) {
	if !req.privileged {
		return types.QueryResult{}, apperr.NewPermission("only admins can see all users' book counts")
	}
	all, err := d.books.AllForAdmin(ctx)
	if err != nil {
		return types.QueryResult{}, fmt.Errorf("load books: %w", err)
	}

	counts := map[string]int{}
	var order []string
	for _, b := range all {
		if _, seen := counts[b.OwnerID]; !seen {
			order = append(order, b.OwnerID)
		}
		counts[b.OwnerID]++
	}
	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})
	if len(order) > topGroupLimit {
		order = order[:topGroupLimit]
	}

	rows := make([]types.Row, 0, len(order))
	for _, ownerID := range order {
		name := "Unknown"
		if u, err := d.users.ByID(ctx, ownerID); err == nil && u != nil {
			name = u.UserName
		}
		rows = append(rows, types.Row{"userName": name, "bookCount": counts[ownerID]})
	}
	return types.QueryResult{Rows: rows, ChartType: types.ChartBar}, nil
}

func (d *Dispatcher) mostPopularBook(ctx context.Context, req dispatchRequest) (types.QueryResult, error) {
	if !req.privileged {
		return types.QueryResult{}, apperr.NewPermission("only admins can see the most popular books")
	}
	all, err := d.books.AllForAdmin(ctx)
	if err != nil {
		return types.QueryResult{}, fmt.Errorf("load books: %w", err)
	}

	type titleKey struct{ title, author string }
	active := map[titleKey]int{}
	var order []titleKey
	seen := map[titleKey]bool{}
	for _, b := range all {
		k := titleKey{b.Title, b.Author}
		if !seen[k] {
			seen[k] = true
			order = append(order, k)
		}
		if b.Status == types.StatusReading || b.Status == types.StatusCompleted {
			active[k]++
		}
	}
	sort.SliceStable(order, func(i, j int) bool {
		return active[order[i]] > active[order[j]]
	})
	if len(order) > topGroupLimit {
		order = order[:topGroupLimit]
	}

	rows := make([]types.Row, 0, len(order))
	for _, k := range order {
		rows = append(rows, types.Row{"title": k.title, "author": k.author, "ownedBy": active[k]})
	}
	return types.QueryResult{Rows: rows, ChartType: types.ChartBar}, nil
}

func (d *Dispatcher) expensiveBooks(ctx context.Context, req dispatchRequest) (types.QueryResult, error) {
	books, err := d.scopedBooks(ctx, req)
	if err != nil {
		return types.QueryResult{}, fmt.Errorf("load books: %w", err)
	}

	// The default applies only when the model sent no limit at all. An
	// explicit zero means zero rows.
	limit := defaultExpensiveLimit
	if req.params.Limit != nil {
		limit = *req.params.Limit
		if limit < 0 {
			limit = 0
		}
	}

	sorted := make([]types.Book, len(books))
	copy(sorted, books)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Price > sorted[j].Price })
	if len(sorted) > limit {
		sorted = sorted[:limit]
	}

	rows := make([]types.Row, 0, len(sorted))
	for _, b := range sorted {
		rows = append(rows, types.Row{
			"id":     b.ID,
			"title":  b.Title,
			"author": b.Author,
			"price":  b.Price,
			"genre":  b.Genre,
		})
	}
	return types.QueryResult{Rows: rows, ChartType: types.ChartTable}, nil
}

func (d *Dispatcher) booksByGenre(ctx context.Context, req dispatchRequest) (types.QueryResult, error) {
	var books []types.Book
	var err error
	if req.privileged {
		books, err = d.books.AllForAdmin(ctx)
		if err == nil && req.params.Genre != "" {
			books = filterByGenre(books, req.params.Genre)
		}
	} else {
		if req.params.Genre == "" {
			books, err = d.books.ByOwner(ctx, req.principalID)
		} else {
			books, err = d.books.ByOwnerAndGenre(ctx, req.principalID, req.params.Genre)
		}
	}
	if err != nil {
		return types.QueryResult{}, fmt.Errorf("load books: %w", err)
	}

	rows := make([]types.Row, 0, len(books))
	for _, b := range books {
		rows = append(rows, types.Row{
			"title":  b.Title,
			"author": b.Author,
			"genre":  b.Genre,
			"price":  b.Price,
			"status": b.Status.String(),
		})
	}
	return types.QueryResult{Rows: rows, ChartType: types.ChartTable}, nil
}

func (d *Dispatcher) booksByStatus(ctx context.Context, req dispatchRequest) (types.QueryResult, error) {
	status, ok := types.ParseReadingStatus(req.params.Status)
	if !ok {
		return types.QueryResult{}, apperr.NewValidation(fmt.Sprintf("invalid reading status: %s", req.params.Status))
	}

	var books []types.Book
	var err error
	if req.privileged {
		books, err = d.books.AllForAdmin(ctx)
		if err == nil {
			books = filterByStatus(books, status)
		}
	} else {
		books, err = d.books.ByOwnerAndStatus(ctx, req.principalID, status)
	}
	if err != nil {
		return types.QueryResult{}, fmt.Errorf("load books: %w", err)
	}

	return types.QueryResult{Rows: statusRows(books), ChartType: types.ChartTable}, nil
}

func (d *Dispatcher) userStatistics(ctx context.Context, req dispatchRequest) (types.QueryResult, error) {
	// Always the caller's own shelf, even for admins. Aggregate views of
	// everyone's data live under GENERAL_STATISTICS.
	books, err := d.books.ByOwner(ctx, req.principalID)
	if err != nil {
		return types.QueryResult{}, fmt.Errorf("load books: %w", err)
	}
	if len(books) == 0 {
		return types.QueryResult{Rows: []types.Row{}, ChartType: types.ChartTable}, nil
	}

	var reading, completed, notStarted int
	var totalPrice float64
	for _, b := range books {
		totalPrice += b.Price
		switch b.Status {
		case types.StatusReading:
			reading++
		case types.StatusCompleted:
			completed++
		case types.StatusNotStarted:
			notStarted++
		}
	}

	rows := []types.Row{
		{"metric": "Total Books", "value": len(books)},
		{"metric": "Books Reading", "value": reading},
		{"metric": "Books Completed", "value": completed},
		{"metric": "Books Not Started", "value": notStarted},
		{"metric": "Average Book Price", "value": round2(totalPrice / float64(len(books)))},
		{"metric": "Most Common Genre", "value": modalGenre(books)},
	}
	return types.QueryResult{Rows: rows, ChartType: types.ChartTable}, nil
}

func (d *Dispatcher) myBookCount(ctx context.Context, req dispatchRequest) (types.QueryResult, error) {
	count, err := d.books.CountByOwner(ctx, req.principalID)
	if err != nil {
		return types.QueryResult{}, fmt.Errorf("count books: %w", err)
	}
	rows := []types.Row{{"metric": "Total Books", "value": count}}
	return types.QueryResult{Rows: rows, ChartType: types.ChartSingle}, nil
}

func (d *Dispatcher) currentlyReading(ctx context.Context, req dispatchRequest) (types.QueryResult, error) {
	var books []types.Book
	var err error
	if req.privileged {
		// Long-standing behavior: the privileged view of "currently
		// reading" surfaces completed books across all users.
		books, err = d.books.AllForAdmin(ctx)
		if err == nil {
			books = filterByStatus(books, types.StatusCompleted)
		}
	} else {
		books, err = d.books.ByOwnerAndStatus(ctx, req.principalID, types.StatusReading)
	}
	if err != nil {
		return types.QueryResult{}, fmt.Errorf("load books: %w", err)
	}

	return types.QueryResult{Rows: statusRows(books), ChartType: types.ChartTable}, nil
}

func (d *Dispatcher) commonGenre(ctx context.Context, req dispatchRequest) (types.QueryResult, error) {
	books, err := d.scopedBooks(ctx, req)
	if err != nil {
		return types.QueryResult{}, fmt.Errorf("load books: %w", err)
	}
	if len(books) == 0 {
		return types.QueryResult{Rows: []types.Row{}, ChartType: types.ChartSingle}, nil
	}

	rows := []types.Row{{"metric": "Most Common Genre", "value": modalGenre(books)}}
	return types.QueryResult{Rows: rows, ChartType: types.ChartSingle}, nil
}

func (d *Dispatcher) generalStatistics(ctx context.Context, req dispatchRequest) (types.QueryResult, error) {
	if !req.privileged {
		return types.QueryResult{}, apperr.NewPermission("only admins can see general statistics")
	}
	all, err := d.books.AllForAdmin(ctx)
	if err != nil {
		return types.QueryResult{}, fmt.Errorf("load books: %w", err)
	}

	owners := map[string]bool{}
	var totalPrice, maxPrice float64
	for _, b := range all {
		owners[b.OwnerID] = true
		totalPrice += b.Price
		if b.Price > maxPrice {
			maxPrice = b.Price
		}
	}

	avgPerUser := 0.0
	avgPrice := 0.0
	genre := "N/A"
	if len(all) > 0 {
		avgPerUser = round2(float64(len(all)) / float64(len(owners)))
		avgPrice = round2(totalPrice / float64(len(all)))
		genre = modalGenre(all)
	}

	rows := []types.Row{
		{"metric": "Total Books", "value": len(all)},
		{"metric": "Total Users with Books", "value": len(owners)},
		{"metric": "Average Books per User", "value": avgPerUser},
		{"metric": "Most Expensive Book", "value": maxPrice},
		{"metric": "Average Book Price", "value": avgPrice},
		{"metric": "Most Popular Genre", "value": genre},
	}
	return types.QueryResult{Rows: rows, ChartType: types.ChartTable}, nil
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

func filterByGenre(books []types.Book, genre string) []types.Book {
	var out []types.Book
	for _, b := range books {
		if containsFold(b.Genre, genre) {
			out = append(out, b)
		}
	}
	return out
}

func filterByStatus(books []types.Book, status types.ReadingStatus) []types.Book {
	var out []types.Book
	for _, b := range books {
		if b.Status == status {
			out = append(out, b)
		}
	}
	return out
}

func statusRows(books []types.Book) []types.Row {
	rows := make([]types.Row, 0, len(books))
	for _, b := range books {
		rows = append(rows, types.Row{
			"title":  b.Title,
			"author": b.Author,
			"genre":  b.Genre,
			"status": b.Status.String(),
		})
	}
	return rows
}

// modalGenre returns the most frequent genre. Ties go to the genre first
// seen in the input, which keeps the result deterministic for a given
// store ordering.
func modalGenre(books []types.Book) string {
	counts := map[string]int{}
	var order []string
	for _, b := range books {
		if _, seen := counts[b.Genre]; !seen {
			order = append(order, b.Genre)
		}
		counts[b.Genre]++
	}
	if len(order) == 0 {
		return "N/A"
	}
	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})
	return order[0]
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
