package cache

import (
	"errors"
	"testing"
)

func TestQueryFilterValidate(t *testing.T) {
	tests := []struct {
		name      string
		filter    QueryFilter
		wantField string
		wantLimit int
	}{
		{name: "defaults limit", filter: QueryFilter{GroupID: 1}, wantLimit: DefaultLimit},
		{name: "clamps limit", filter: QueryFilter{GroupID: 1, Limit: 5000}, wantLimit: MaxLimit},
		{name: "keeps limit", filter: QueryFilter{GroupID: 1, Limit: 7}, wantLimit: 7},
		{name: "missing group", filter: QueryFilter{}, wantField: "group"},
		{name: "invalid regex", filter: QueryFilter{GroupID: 1, Regex: String("(unclosed")}, wantField: "regex"},
		{name: "inverted window", filter: QueryFilter{GroupID: 1, TimeAfter: Int64(20), TimeBefore: Int64(10)}, wantField: "time"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f, err := NewQueryFilter(tc.filter)
			if tc.wantField != "" {
				if !errors.Is(err, ErrInvalidFilter) {
					t.Fatalf("err = %v, want ErrInvalidFilter", err)
				}
				var ife *InvalidFilterError
				if !errors.As(err, &ife) || ife.Field != tc.wantField {
					t.Fatalf("err = %#v, want field %q", err, tc.wantField)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if f.Limit != tc.wantLimit {
				t.Fatalf("Limit = %d, want %d", f.Limit, tc.wantLimit)
			}
		})
	}
}

func TestQueryFilterValidate_EmptyTextIsAbsent(t *testing.T) {
	f, err := NewQueryFilter(QueryFilter{GroupID: 1, Content: String(""), Regex: String("")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.Content != nil || f.Regex != nil {
		t.Fatalf("empty content/regex not cleared: %+v", f)
	}
	if f.HasMessageFilter() {
		t.Fatal("HasMessageFilter = true")
	}
}

func TestQueryFilter_Pattern(t *testing.T) {
	f, err := NewQueryFilter(QueryFilter{GroupID: 1, Regex: String(`^hello\s+\w+$`)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	re := f.Pattern()
	if re == nil || !re.MatchString("hello world") || re.MatchString("say hello") {
		t.Fatalf("Pattern() = %v", re)
	}

	unvalidated := QueryFilter{GroupID: 1, Regex: String("a+")}
	if unvalidated.Pattern() == nil {
		t.Fatal("Pattern() should compile lazily")
	}
	if (&QueryFilter{GroupID: 1}).Pattern() != nil {
		t.Fatal("Pattern() without regex should be nil")
	}
}

func TestQueryFilter_FormatConditions(t *testing.T) {
	f := QueryFilter{
		GroupID:    456,
		UserID:     Int64(123),
		Content:    String("hello"),
		TimeAfter:  Int64(1000),
		TimeBefore: Int64(2000),
		Limit:      20,
	}
	want := `content="hello" | user=123 | group=456 | after=1000 | before=2000 | limit=20`
	if got := f.FormatConditions(); got != want {
		t.Fatalf("FormatConditions() =\n%s\nwant\n%s", got, want)
	}

	r := QueryFilter{GroupID: 1, Regex: String("a.*"), Limit: 5}
	if got := r.FormatConditions(); got != `regex="a.*" | group=1 | limit=5` {
		t.Fatalf("FormatConditions() = %s", got)
	}
}
