package overview

import (
	"reflect"
	"sort"
	"testing"
)

func sampleInputs() ([]SourceTotal, []SourceTagTotal) {
	sources := []SourceTotal{
		{Source: "amex", Tagged: true, Credits: 0, Debits: 12000},
		{Source: "amex", Tagged: false, Credits: 500, Debits: 3000},
		{Source: "checking", Tagged: true, Credits: 400000, Debits: 150000},
		{Source: "checking", Tagged: false, Credits: 0, Debits: 700},
		{Source: "visa", Tagged: false, Credits: 0, Debits: 4200},
	}
	tags := []SourceTagTotal{
		{Source: "amex", Tag: "food", Debits: 8000},
		{Source: "amex", Tag: "travel", Debits: 4000},
		{Source: "checking", Tag: "salary", Credits: 400000},
		{Source: "checking", Tag: "rent", Debits: 120000},
		{Source: "checking", Tag: "food", Debits: 30000},
	}
	return sources, tags
}

func TestBuildRows(t *testing.T) {
	rows := Build(sampleInputs())
	if len(rows) != 4 {
		t.Fatalf("expected all + 3 sources, got %d rows", len(rows))
	}
	if rows[0].Source != AllSources {
		t.Fatalf("first row = %q, want %q", rows[0].Source, AllSources)
	}
	wantOrder := []string{"amex", "checking", "visa"}
	for i, s := range wantOrder {
		if rows[i+1].Source != s {
			t.Fatalf("row %d = %q, want %q", i+1, rows[i+1].Source, s)
		}
	}

	amex, _ := Find(rows, "amex")
	if amex.Tagged != (Amounts{Debits: 12000}) || amex.Untagged != (Amounts{Credits: 500, Debits: 3000}) {
		t.Fatalf("amex amounts = %+v / %+v", amex.Tagged, amex.Untagged)
	}
	wantDebits := []TagAmount{{"food", 8000}, {"travel", 4000}}
	if !reflect.DeepEqual(amex.TagMetrics.TopTagsByDebits, wantDebits) {
		t.Fatalf("amex debits ranking = %+v", amex.TagMetrics.TopTagsByDebits)
	}
	if len(amex.TagMetrics.TopTagsByCredits) != 0 {
		t.Fatalf("amex has no credit tags, got %+v", amex.TagMetrics.TopTagsByCredits)
	}

	all := rows[0]
	wantAll := []TagAmount{{"rent", 120000}, {"food", 38000}, {"travel", 4000}}
	if !reflect.DeepEqual(all.TagMetrics.TopTagsByDebits, wantAll) {
		t.Fatalf("global debits ranking = %+v", all.TagMetrics.TopTagsByDebits)
	}
}

// The global row must equal the sum of the per-source rows, and its tag
// rankings must equal a whole-table aggregation re-sorted by value.
func TestMergeLaw(t *testing.T) {
	sources, tags := sampleInputs()
	rows := Build(sources, tags)
	all, perSource := rows[0], rows[1:]

	var tagged, untagged Amounts
	for _, r := range perSource {
		tagged.Credits += r.Tagged.Credits
		tagged.Debits += r.Tagged.Debits
		untagged.Credits += r.Untagged.Credits
		untagged.Debits += r.Untagged.Debits
	}
	if all.Tagged != tagged || all.Untagged != untagged {
		t.Fatalf("global amounts %+v/%+v != sums %+v/%+v", all.Tagged, all.Untagged, tagged, untagged)
	}

	globalDebits := map[string]int64{}
	globalCredits := map[string]int64{}
	for _, tt := range tags {
		globalDebits[tt.Tag] += tt.Debits
		globalCredits[tt.Tag] += tt.Credits
	}
	assertRanking(t, "debits", all.TagMetrics.TopTagsByDebits, globalDebits)
	assertRanking(t, "credits", all.TagMetrics.TopTagsByCredits, globalCredits)

	again := Merge(AllSources, perSource...)
	if !reflect.DeepEqual(again, all) {
		t.Fatalf("Merge(per-source) = %+v, want %+v", again, all)
	}
}

func assertRanking(t *testing.T, name string, got []TagAmount, want map[string]int64) {
	t.Helper()
	seen := map[string]int64{}
	for _, ta := range got {
		seen[ta.Tag] = ta.Cents
	}
	for tag, cents := range want {
		if cents == 0 {
			continue
		}
		if seen[tag] != cents {
			t.Fatalf("%s: tag %q = %d, want %d", name, tag, seen[tag], cents)
		}
	}
	if !sort.SliceIsSorted(got, func(i, j int) bool { return got[i].Cents > got[j].Cents }) {
		t.Fatalf("%s ranking not descending: %+v", name, got)
	}
}

func TestRankingTiesKeepFirstSeenOrder(t *testing.T) {
	rows := Build(nil, []SourceTagTotal{
		{Source: "a", Tag: "zeta", Debits: 100},
		{Source: "a", Tag: "alpha", Debits: 100},
		{Source: "a", Tag: "mid", Debits: 300},
	})
	a, _ := Find(rows, "a")
	want := []TagAmount{{"mid", 300}, {"zeta", 100}, {"alpha", 100}}
	if !reflect.DeepEqual(a.TagMetrics.TopTagsByDebits, want) {
		t.Fatalf("got %+v, want %+v", a.TagMetrics.TopTagsByDebits, want)
	}
}

func TestBuildEmpty(t *testing.T) {
	rows := Build(nil, nil)
	if len(rows) != 1 || rows[0].Source != AllSources || rows[0].Total() != (Amounts{}) {
		t.Fatalf("got %+v", rows)
	}
}

func TestShare(t *testing.T) {
	if Share(1, 0) != 0 {
		t.Fatal("share of zero total must be 0")
	}
	if got := Share(25, 200); got != 12.5 {
		t.Fatalf("Share = %v", got)
	}
}
