package redis

import (
	"context"
	"strings"
	"testing"

	"github.com/redis/rueidis/mock"
	"go.uber.org/mock/gomock"

	"github.com/kailas-cloud/docassist/internal/db"
	"github.com/kailas-cloud/docassist/internal/domain/search/filter"
)

func permissionFilter(t *testing.T, names ...string) filter.Expression {
	t.Helper()
	conds := make([]filter.Condition, 0, len(names))
	for _, n := range names {
		c, err := filter.NewMatch("permissions", n)
		if err != nil {
			t.Fatal(err)
		}
		conds = append(conds, c)
	}
	expr, err := filter.AnyOf(conds...)
	if err != nil {
		t.Fatal(err)
	}
	return expr
}

func TestSearchKNN_QueryShape(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			return cmd[0] == "FT.SEARCH" &&
				cmd[1] == "idx" &&
				cmd[2] == "((@permissions:{A} | @permissions:{B}))=>[KNN 5 @vector $BLOB]" &&
				cmd[3] == "RETURN" && cmd[4] == "2" &&
				cmd[7] == "LIMIT" && cmd[8] == "0" && cmd[9] == "5" &&
				cmd[len(cmd)-2] == "DIALECT" && cmd[len(cmd)-1] == "2"
		})).
		Return(mock.Result(mock.RedisArray(
			mock.RedisInt64(1),
			mock.RedisString("docassist:chunk:a"),
			mock.RedisArray(
				mock.RedisString("sourcepage"), mock.RedisString("a-0.pdf"),
				mock.RedisString("__vector_score"), mock.RedisString("0.25"),
			),
		)))

	s := NewStoreForTest(c, FlavorRedis)
	res, err := s.SearchKNN(context.Background(), &db.KNNQuery{
		IndexName:    "idx",
		Filters:      permissionFilter(t, "A", "B"),
		Vector:       []float32{0.1, 0.2},
		K:            5,
		ReturnFields: []string{"sourcepage", "content"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(res.Entries))
	}
	e := res.Entries[0]
	if e.Key != "docassist:chunk:a" || e.Score != 0.75 {
		t.Errorf("unexpected entry: %+v", e)
	}
	if _, ok := e.Fields["__vector_score"]; ok {
		t.Error("score field should be stripped")
	}
}

func TestSearchKNN_NoFilter(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			return cmd[0] == "FT.SEARCH" && cmd[2] == "*=>[KNN 3 @vector $BLOB]"
		})).
		Return(mock.Result(mock.RedisArray(mock.RedisInt64(0))))

	s := NewStoreForTest(c, FlavorValkey)
	res, err := s.SearchKNN(context.Background(), &db.KNNQuery{IndexName: "idx", Vector: []float32{1}, K: 3})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Entries) != 0 {
		t.Errorf("expected no entries, got %d", len(res.Entries))
	}
}

func TestSearchKNN_Error(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), gomock.Any()).
		Return(mock.ErrorResult(context.DeadlineExceeded))

	s := NewStoreForTest(c, FlavorRedis)
	_, err := s.SearchKNN(context.Background(), &db.KNNQuery{IndexName: "idx", Vector: []float32{1}, K: 1})
	if !isDBError(err) {
		t.Errorf("expected db.Error, got %v", err)
	}
}

func TestSearchKNN_Validation(t *testing.T) {
	s := NewStoreForTest(nil, FlavorRedis)
	ctx := context.Background()
	for name, q := range map[string]*db.KNNQuery{
		"no index":  {Vector: []float32{1}, K: 1},
		"no vector": {IndexName: "idx", K: 1},
		"zero k":    {IndexName: "idx", Vector: []float32{1}},
	} {
		if _, err := s.SearchKNN(ctx, q); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestSearchBM25_WithSummarize(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			joined := strings.Join(cmd, " ")
			return cmd[0] == "FT.SEARCH" &&
				cmd[2] == `@permission_count:[0 0] @content:(dental plan)` &&
				strings.Contains(joined, "SUMMARIZE FIELDS 1 content FRAGS 2 LEN 20 SEPARATOR  . ") &&
				strings.Contains(joined, "WITHSCORES LIMIT 0 4")
		})).
		Return(mock.Result(mock.RedisArray(
			mock.RedisInt64(1),
			mock.RedisString("docassist:chunk:b"),
			mock.RedisString("1.5"),
			mock.RedisArray(mock.RedisString("content"), mock.RedisString("dental . plan")),
		)))

	zero, _ := filter.NewEquals("permission_count", 0)
	expr, _ := filter.AllOf(zero)

	s := NewStoreForTest(c, FlavorRedis)
	res, err := s.SearchBM25(context.Background(), &db.TextQuery{
		IndexName: "idx",
		Query:     "dental plan",
		Filters:   expr,
		TopK:      4,
		Summarize: &db.Summarize{Frags: 2, Len: 20, Separator: " . "},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Entries) != 1 || res.Entries[0].Score != 1.5 {
		t.Fatalf("unexpected entries: %+v", res.Entries)
	}
	if res.Entries[0].Fields["content"] != "dental . plan" {
		t.Errorf("unexpected content: %q", res.Entries[0].Fields["content"])
	}
}

func TestSearchBM25_Validation(t *testing.T) {
	s := NewStoreForTest(nil, FlavorRedis)
	if _, err := s.SearchBM25(context.Background(), &db.TextQuery{IndexName: "idx", Query: "  ", TopK: 1}); err == nil {
		t.Error("expected error for blank query")
	}
	if _, err := s.SearchBM25(context.Background(), &db.TextQuery{IndexName: "idx", Query: "q"}); err == nil {
		t.Error("expected error for zero topK")
	}
}

func TestSearchFiltered_Redis(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			return cmd[0] == "FT.SEARCH" && cmd[2] == "(@permissions:{HR})" &&
				cmd[3] == "LIMIT" && cmd[4] == "0" && cmd[5] == "3"
		})).
		Return(mock.Result(mock.RedisArray(
			mock.RedisInt64(1),
			mock.RedisString("docassist:chunk:c"),
			mock.RedisArray(mock.RedisString("sourcepage"), mock.RedisString("c-1.pdf")),
		)))

	s := NewStoreForTest(c, FlavorRedis)
	res, err := s.SearchFiltered(context.Background(), &db.FilterQuery{
		IndexName: "idx",
		Filters:   permissionFilter(t, "HR"),
		Limit:     3,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Entries) != 1 || res.Entries[0].Fields["sourcepage"] != "c-1.pdf" {
		t.Errorf("unexpected entries: %+v", res.Entries)
	}
}

func TestSearchFiltered_EmptyFilterMatchesAll(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			return cmd[0] == "FT.SEARCH" && cmd[2] == "*"
		})).
		Return(mock.Result(mock.RedisArray(mock.RedisInt64(0))))

	s := NewStoreForTest(c, FlavorRedis)
	if _, err := s.SearchFiltered(context.Background(), &db.FilterQuery{IndexName: "idx", Limit: 1}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// --- filter rendering ---

func TestBuildFilter(t *testing.T) {
	zero, _ := filter.NewEquals("permission_count", 0)
	hr, _ := filter.NewMatch("permissions", "HR")
	fin, _ := filter.NewMatch("permissions", "Finance Team")
	draft, _ := filter.NewMatch("status", "draft")

	rng, _ := filter.NewRangeFilter(filter.Inclusive(10), filter.Inclusive(100))
	price, _ := filter.NewRange("price", rng)

	tests := []struct {
		name                string
		must, should, mustN []filter.Condition
		want                string
	}{
		{"empty", nil, nil, nil, ""},
		{"empty permission set", []filter.Condition{zero}, nil, nil, "@permission_count:[0 0]"},
		{"or group", nil, []filter.Condition{hr, fin}, nil, `(@permissions:{HR} | @permissions:{Finance\ Team})`},
		{"or group with unrestricted", nil, []filter.Condition{hr, zero}, nil,
			"(@permissions:{HR} | @permission_count:[0 0])"},
		{"must numeric", []filter.Condition{price}, nil, nil, "@price:[10 100]"},
		{"combined", []filter.Condition{hr}, nil, []filter.Condition{draft}, "@permissions:{HR} -@status:{draft}"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			expr, err := filter.NewExpression(tc.must, tc.should, tc.mustN)
			if err != nil {
				t.Fatal(err)
			}
			if got := BuildFilter(expr); got != tc.want {
				t.Errorf("BuildFilter() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestBuildTagFilter_Escaping(t *testing.T) {
	tests := []struct {
		value string
		want  string
	}{
		{`a\`, `@permissions:{a\\}`},
		{`ops[eu]`, `@permissions:{ops\[eu\]}`},
		{`who?`, `@permissions:{who\?}`},
		{`R&D team`, `@permissions:{R\&D\ team}`},
	}
	for _, tt := range tests {
		if got := buildTagFilter("permissions", tt.value); got != tt.want {
			t.Errorf("buildTagFilter(%q) = %q, want %q", tt.value, got, tt.want)
		}
	}
}

func TestBuildNumericFilter_Exclusive(t *testing.T) {
	rng, _ := filter.NewRangeFilter(filter.Exclusive(5), filter.Exclusive(100))
	if got := buildNumericFilter("n", rng); got != `@n:[(5 (100]` {
		t.Errorf("unexpected filter: %q", got)
	}
	if got := buildNumericFilter("n", filter.Range{Max: filter.Inclusive(3)}); got != `@n:[-inf 3]` {
		t.Errorf("unexpected open-ended filter: %q", got)
	}
}

func TestEscapeQuery(t *testing.T) {
	escaped := escapeQuery(`hello "world" @user {tag}`)
	if want := `hello \"world\" \@user \{tag\}`; escaped != want {
		t.Errorf("expected %q, got %q", want, escaped)
	}
}

func TestVectorToBytes(t *testing.T) {
	b := vectorToBytes([]float32{1.0, 2.0})
	if len(b) != 8 {
		t.Fatalf("expected 8 bytes, got %d", len(b))
	}
	// 1.0 = 0x3f800000 little endian
	if b[0] != 0x00 || b[3] != 0x3f {
		t.Errorf("unexpected encoding: %x", b[:4])
	}
}
