package complexity

import (
	"strings"
	"testing"

	"github.com/kailas-cloud/routedex/internal/config"
	"github.com/kailas-cloud/routedex/internal/domain/routing"
)

func testConfig() config.ComplexityConfig {
	cfg := config.Config{}
	cfg.ApplyDefaults()
	return cfg.Complexity
}

func TestClassify_Deterministic(t *testing.T) {
	svc := New(testConfig())

	query := "Explain the architecture of a distributed database system?"
	first := svc.Classify(query)
	for i := 0; i < 10; i++ {
		got := svc.Classify(query)
		if got.Raw != first.Raw || got.Tier != first.Tier || got.Level != first.Level {
			t.Fatalf("run %d differs: %+v vs %+v", i, got, first)
		}
	}
}

func TestClassify_HighBand(t *testing.T) {
	svc := New(testConfig())

	score := svc.Classify("Explain this concept")
	if score.Level != "high" {
		t.Errorf("level = %q, want high", score.Level)
	}
	if score.Factors["base_score"] != 0.8 {
		t.Errorf("base = %f, want 0.8", score.Factors["base_score"])
	}
}

func TestClassify_MediumBand(t *testing.T) {
	svc := New(testConfig())

	// "describe" is a medium keyword; avoid high keywords.
	score := svc.Classify("describe your day")
	if score.Level != "medium" {
		t.Errorf("level = %q, want medium", score.Level)
	}
	if score.Factors["base_score"] != 0.5 {
		t.Errorf("base = %f, want 0.5", score.Factors["base_score"])
	}
}

func TestClassify_HighBandWinsOverMedium(t *testing.T) {
	svc := New(testConfig())

	// Both "analyze" (high) and "how" (medium) present: base comes from the
	// highest non-empty band, not a sum.
	score := svc.Classify("analyze how this happened")
	if score.Level != "high" {
		t.Errorf("level = %q, want high", score.Level)
	}
	if score.Factors["base_score"] != 0.8 {
		t.Errorf("base = %f, want 0.8", score.Factors["base_score"])
	}
}

func TestClassify_EmptyQuery_WeakMinimum(t *testing.T) {
	svc := New(testConfig())

	score := svc.Classify("")
	// No band matches: the defined minimum is the low band weight.
	if score.Raw != 0.3 {
		t.Errorf("raw = %f, want 0.3", score.Raw)
	}
	if score.Level != "low" {
		t.Errorf("level = %q, want low", score.Level)
	}
	if score.Tier != routing.TierWeak {
		t.Errorf("tier = %q, want weak", score.Tier)
	}
}

func TestClassify_WhitespaceOnly_SameAsEmpty(t *testing.T) {
	svc := New(testConfig())

	empty := svc.Classify("")
	spaces := svc.Classify("   \t  ")
	if spaces.Raw != empty.Raw || spaces.Tier != empty.Tier {
		t.Errorf("whitespace-only differs from empty: %+v vs %+v", spaces, empty)
	}
}

func TestClassify_CaseInsensitive(t *testing.T) {
	svc := New(testConfig())

	lower := svc.Classify("explain the algorithm")
	upper := svc.Classify("EXPLAIN THE ALGORITHM")
	if lower.Raw != upper.Raw {
		t.Errorf("case changed the score: %f vs %f", lower.Raw, upper.Raw)
	}
}

func TestClassify_SignalCaps(t *testing.T) {
	svc := New(testConfig())

	// Many question marks: the question factor caps at 0.1.
	score := svc.Classify("what" + strings.Repeat("?", 50))
	if score.Factors["question_factor"] != 0.1 {
		t.Errorf("question factor = %f, want 0.1 (capped)", score.Factors["question_factor"])
	}

	// Very long text: the length factor caps at 0.2.
	long := svc.Classify("what " + strings.Repeat("x", 1000))
	if long.Factors["length_factor"] != 0.2 {
		t.Errorf("length factor = %f, want 0.2 (capped)", long.Factors["length_factor"])
	}

	// Many technical terms: tech boost caps at 0.2.
	tech := svc.Classify("what api database algorithm architecture framework")
	if tech.Factors["tech_boost"] != 0.2 {
		t.Errorf("tech boost = %f, want 0.2 (capped)", tech.Factors["tech_boost"])
	}
}

func TestClassify_TotalCappedAtOne(t *testing.T) {
	svc := New(testConfig())

	// High band + maxed signals would sum past 1.0 without the cap.
	query := "explain and analyze the api database algorithm architecture framework " +
		strings.Repeat("optimization ", 40) + "???"
	score := svc.Classify(query)
	if score.Raw > 1 {
		t.Errorf("raw = %f, must be capped at 1", score.Raw)
	}
	if score.Raw != 1 {
		t.Errorf("raw = %f, want exactly 1 for saturated signals", score.Raw)
	}
}

func TestClassify_ThresholdInclusive(t *testing.T) {
	cfg := testConfig()
	// Pin the threshold to a value a crafted query hits exactly:
	// high base 0.8 + nothing else = 0.8.
	cfg.Threshold = 0.8
	svc := New(cfg)

	score := svc.Classify("explain")
	if score.Factors["length_factor"] == 0 && score.Factors["tech_boost"] == 0 {
		if score.Raw < 0.8 {
			t.Fatalf("raw = %f, expected >= 0.8", score.Raw)
		}
	}
	if score.Raw >= 0.8 && score.Tier != routing.TierStrong {
		t.Errorf("tier = %q at raw %f, threshold is inclusive so want strong", score.Tier, score.Raw)
	}
}

func TestClassify_StrongTierForComplexQuery(t *testing.T) {
	svc := New(testConfig())

	score := svc.Classify(
		"Design and implement a scalable microservices architecture with database " +
			"sharding, explain the optimization tradeoffs, and analyze performance bottlenecks?")
	if score.Tier != routing.TierStrong {
		t.Errorf("tier = %q (raw %f), want strong", score.Tier, score.Raw)
	}
}

func TestClassify_WeakTierForSimpleQuery(t *testing.T) {
	svc := New(testConfig())

	score := svc.Classify("what time is it")
	if score.Tier != routing.TierWeak {
		t.Errorf("tier = %q (raw %f), want weak", score.Tier, score.Raw)
	}
}

func TestClassify_FactorsSumToRaw(t *testing.T) {
	svc := New(testConfig())

	score := svc.Classify("how do I configure the api database?")
	sum := score.Factors["base_score"] + score.Factors["length_factor"] +
		score.Factors["tech_boost"] + score.Factors["question_factor"]
	if sum > 1 {
		sum = 1
	}
	if score.Raw != sum {
		t.Errorf("raw = %f, factor sum = %f", score.Raw, sum)
	}
}
