package toxicology

import (
	"errors"
	"reflect"
	"testing"

	"github.com/tlgayhan/pedi-mvp/reference/entities"
)

func f(v float64) *float64 {
	return &v
}

func testDb() entities.ToxDb {
	return entities.ToxDb{
		Toxidromes: []entities.Toxidrome{
			{
				ID:          "sympathomimetic",
				KeyFindings: []string{"taşikardi", "hipertansiyon", "midriazis", "terleme belirgin", "ajitasyon"},
				NegFindings: []string{"miyozis", "bradikardi", "kuru deri/sıcak"},
			},
			{
				ID:          "opioid",
				KeyFindings: []string{"miyozis", "sss depresyonu", "solunum depresyonu", "bradikardi"},
				NegFindings: []string{"midriazis", "ajitasyon", "taşikardi"},
			},
			{
				ID:          "serotonin",
				KeyFindings: []string{"klonus", "hiperrefleksi", "taşikardi", "terleme belirgin", "ajitasyon", "midriazis"},
				NegFindings: []string{"bradikardi", "sss depresyonu"},
			},
		},
		RedFlags: []string{"Nöbet", "Solunum depresyonu", "Hipertermi > 40°C", "Persistan hipotansiyon"},
	}
}

func TestSuggestScoring(t *testing.T) {
	tests := []struct {
		name     string
		input    Input
		expected []Suggestion
	}{
		{
			name:  "case-insensitive key findings",
			input: Input{Findings: []string{"Taşikardi", "Midriazis", " AJITASYON "}},
			expected: []Suggestion{
				{ToxidromeID: "sympathomimetic", Score: 60, Matched: []string{"taşikardi", "midriazis", "ajitasyon"}, Conflicts: []string{}},
				{ToxidromeID: "serotonin", Score: 50, Matched: []string{"taşikardi", "ajitasyon", "midriazis"}, Conflicts: []string{}},
			},
		},
		{
			name: "tachycardia and fever favour sympathomimetic and serotonin",
			input: Input{
				Findings: []string{"taşikardi", "midriazis", "ajitasyon"},
				Vitals:   &Vitals{HR: f(130), TempC: f(39)},
			},
			expected: []Suggestion{
				{ToxidromeID: "sympathomimetic", Score: 80, Matched: []string{"taşikardi", "midriazis", "ajitasyon"}, Conflicts: []string{}},
				{ToxidromeID: "serotonin", Score: 58, Matched: []string{"taşikardi", "ajitasyon", "midriazis"}, Conflicts: []string{}},
			},
		},
		{
			name: "bradycardia nudges opioid and rounds half up",
			input: Input{
				Findings: []string{"miyozis", "sss depresyonu"},
				Vitals:   &Vitals{HR: f(50)},
			},
			expected: []Suggestion{
				{ToxidromeID: "opioid", Score: 63, Matched: []string{"miyozis", "sss depresyonu"}, Conflicts: []string{}},
			},
		},
		{
			name:  "conflicts reduce the score",
			input: Input{Findings: []string{"miyozis", "sss depresyonu", "solunum depresyonu", "midriazis"}},
			expected: []Suggestion{
				{ToxidromeID: "opioid", Score: 50, Matched: []string{"miyozis", "sss depresyonu", "solunum depresyonu"}, Conflicts: []string{"midriazis"}},
			},
		},
		{
			name:  "exactly the minimum score is kept",
			input: Input{Findings: []string{"hipertansiyon"}},
			expected: []Suggestion{
				{ToxidromeID: "sympathomimetic", Score: 20, Matched: []string{"hipertansiyon"}, Conflicts: []string{}},
			},
		},
		{
			name:     "one of six findings falls below the minimum",
			input:    Input{Findings: []string{"klonus"}},
			expected: []Suggestion{},
		},
		{
			name:     "unknown findings are not an error",
			input:    Input{Findings: []string{"baş ağrısı", ""}},
			expected: []Suggestion{},
		},
		{
			name:     "no findings",
			input:    Input{},
			expected: []Suggestion{},
		},
	}

	engine, err := NewEngine(testDb())
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := engine.Suggest(tt.input)
			if !reflect.DeepEqual(res.Suggestions, tt.expected) {
				t.Errorf("Suggestions = %+v, want %+v", res.Suggestions, tt.expected)
			}
		})
	}
}

func TestSuggestTieBreakByID(t *testing.T) {
	db := entities.ToxDb{
		Toxidromes: []entities.Toxidrome{
			{ID: "zeta", KeyFindings: []string{"a", "b"}},
			{ID: "beta", KeyFindings: []string{"a", "c"}},
			{ID: "alpha", KeyFindings: []string{"b", "d"}},
			{ID: "omega", KeyFindings: []string{"a", "b"}},
		},
		RedFlags: []string{},
	}

	in := Input{Findings: []string{"a", "b"}}
	for i := 0; i < 5; i++ {
		res, err := SuggestToxidromes(in, db)
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		var ids []string
		for _, s := range res.Suggestions {
			ids = append(ids, s.ToxidromeID)
		}
		want := []string{"omega", "zeta", "alpha", "beta"}
		if !reflect.DeepEqual(ids, want) {
			t.Fatalf("Expected order %v, got %v", want, ids)
		}
	}
}

func TestSuggestCustomVitalRules(t *testing.T) {
	db := testDb()
	db.VitalRules = []entities.VitalRule{
		{ToxidromeID: "opioid", Vital: entities.VitalBPSys, Op: entities.OpAtMost, Threshold: 90, Bonus: 1},
	}
	engine, err := NewEngine(db)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}

	res := engine.Suggest(Input{
		Findings: []string{"miyozis"},
		Vitals:   &Vitals{BPSys: f(85), HR: f(50)},
	})
	if len(res.Suggestions) != 1 || res.Suggestions[0].Score != 50 {
		t.Errorf("Expected custom rule to replace defaults (opioid 50), got %+v", res.Suggestions)
	}
}

func TestSuggestRedFlags(t *testing.T) {
	tests := []struct {
		name     string
		db       func() entities.ToxDb
		input    Input
		expected []string
	}{
		{
			name:     "caller casing is kept and duplicates collapse",
			db:       testDb,
			input:    Input{Findings: []string{"solunum DEPRESYONU", "Solunum depresyonu", "nöbet", "miyozis"}},
			expected: []string{"solunum DEPRESYONU", "nöbet"},
		},
		{
			name:     "vital thresholds pick the database wording",
			db:       testDb,
			input:    Input{Vitals: &Vitals{TempC: f(40), BPSys: f(80)}},
			expected: []string{"Hipertermi > 40°C", "Persistan hipotansiyon"},
		},
		{
			name:     "just inside the thresholds raises nothing",
			db:       testDb,
			input:    Input{Vitals: &Vitals{TempC: f(39.9), BPSys: f(81)}},
			expected: []string{},
		},
		{
			name:     "selected flag is not repeated by the vital rule",
			db:       testDb,
			input:    Input{Findings: []string{"hipertermi > 40°c"}, Vitals: &Vitals{TempC: f(41)}},
			expected: []string{"hipertermi > 40°c"},
		},
		{
			name: "substring lookup finds differently worded entries",
			db: func() entities.ToxDb {
				db := testDb()
				db.RedFlags = []string{"Ciddi Hipotansiyon", "Malign hipertermi"}
				return db
			},
			input:    Input{Vitals: &Vitals{TempC: f(41), BPSys: f(60)}},
			expected: []string{"Malign hipertermi", "Ciddi Hipotansiyon"},
		},
		{
			name: "fallback wording when the list has no match",
			db: func() entities.ToxDb {
				db := testDb()
				db.RedFlags = []string{}
				return db
			},
			input:    Input{Findings: []string{"Nöbet"}, Vitals: &Vitals{TempC: f(41), BPSys: f(60)}},
			expected: []string{DefaultHyperthermia, DefaultHypotension},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := SuggestToxidromes(tt.input, tt.db())
			if err != nil {
				t.Fatalf("Expected no error, got %v", err)
			}
			if !reflect.DeepEqual(res.RedFlags, tt.expected) {
				t.Errorf("RedFlags = %q, want %q", res.RedFlags, tt.expected)
			}
		})
	}
}

func TestNewEngineMalformedDB(t *testing.T) {
	tests := []struct {
		name string
		db   entities.ToxDb
	}{
		{"empty", entities.ToxDb{}},
		{"missing red flags", entities.ToxDb{Toxidromes: []entities.Toxidrome{}}},
		{"missing toxidromes", entities.ToxDb{RedFlags: []string{}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewEngine(tt.db); !errors.Is(err, ErrMalformedDB) {
				t.Errorf("Expected ErrMalformedDB, got %v", err)
			}
			if _, err := SuggestToxidromes(Input{}, tt.db); !errors.Is(err, ErrMalformedDB) {
				t.Errorf("Expected ErrMalformedDB from SuggestToxidromes, got %v", err)
			}
		})
	}

	e, err := NewEngine(entities.ToxDb{Toxidromes: []entities.Toxidrome{}, RedFlags: []string{}})
	if err != nil {
		t.Fatalf("Empty but present arrays must be accepted, got %v", err)
	}
	res := e.Suggest(Input{Findings: []string{"miyozis"}})
	if len(res.Suggestions) != 0 || len(res.RedFlags) != 0 {
		t.Errorf("Expected empty result, got %+v", res)
	}
}

func TestSuggestIdempotent(t *testing.T) {
	engine, err := NewEngine(testDb())
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	in := Input{
		Findings: []string{"taşikardi", "midriazis", "Nöbet"},
		Vitals:   &Vitals{HR: f(140), TempC: f(40.5)},
	}

	a := engine.Suggest(in)
	b := engine.Suggest(in)
	if !reflect.DeepEqual(a, b) {
		t.Errorf("Expected identical results, got %+v and %+v", a, b)
	}
}
