package nutrition

import (
	"math"
	"time"

	"github.com/nourishlab/nourish/internal/domain/shared"
)

// Weights of the daily score components
const (
	MacroWeight            = 0.6
	AntiInflammatoryWeight = 0.4
)

// Adherence is the percentage of each goal reached; nil when no goal is set
type Adherence struct {
	Calories *float64
	Protein  *float64
	Carbs    *float64
	Fat      *float64
}

// DailySummary is one day's intake scored against goals
type DailySummary struct {
	Date       time.Time
	Totals     Macros
	EntryCount int
	// AverageScore is the calorie-weighted anti-inflammatory score of scored entries
	AverageScore float64
	Adherence    Adherence
	// Score is 0..100
	Score        int
	MeetsMinimum bool
}

// Summarize totals the entries of a single day and scores them
func Summarize(date time.Time, entries []*FoodLogEntry, goals *Goals) DailySummary {
	summary := DailySummary{Date: shared.DateOf(date), EntryCount: len(entries)}

	var (
		weighted, weight float64
		plainSum, plainN float64
	)
	for _, e := range entries {
		total := e.Total()
		summary.Totals = summary.Totals.add(total)
		if e.Score() > 0 {
			weighted += float64(e.Score()) * total.Calories
			weight += total.Calories
			plainSum += float64(e.Score())
			plainN++
		}
	}
	switch {
	case weight > 0:
		summary.AverageScore = weighted / weight
	case plainN > 0:
		summary.AverageScore = plainSum / plainN
	}

	if len(entries) == 0 {
		return summary
	}

	antiComponent := summary.AverageScore * 10
	if goals == nil || !goals.HasMacroTargets() {
		summary.Score = clampScore(antiComponent)
		summary.MeetsMinimum = goals == nil || summary.AverageScore >= goals.MinScore
		return summary
	}

	summary.Adherence = Adherence{
		Calories: percentOf(summary.Totals.Calories, goals.Calories),
		Protein:  percentOf(summary.Totals.Protein, goals.Protein),
		Carbs:    percentOf(summary.Totals.Carbs, goals.Carbs),
		Fat:      percentOf(summary.Totals.Fat, goals.Fat),
	}

	var macroSum, macroN float64
	for _, pct := range []*float64{summary.Adherence.Calories, summary.Adherence.Protein, summary.Adherence.Carbs, summary.Adherence.Fat} {
		if pct == nil {
			continue
		}
		macroSum += math.Max(0, 100-math.Abs(100-*pct))
		macroN++
	}

	summary.Score = clampScore(MacroWeight*(macroSum/macroN) + AntiInflammatoryWeight*antiComponent)
	summary.MeetsMinimum = summary.AverageScore >= goals.MinScore
	return summary
}

// WeeklyTrend is a seven-day series of summaries ending on End
type WeeklyTrend struct {
	Start           time.Time
	End             time.Time
	Days            []DailySummary
	AverageCalories float64
	AverageScore    float64
	AverageDayScore float64
	DaysLogged      int
}

// BuildWeeklyTrend summarizes the seven days ending on end. Days without
// entries appear in the series but do not count toward averages.
func BuildWeeklyTrend(end time.Time, entries []*FoodLogEntry, goals *Goals) WeeklyTrend {
	end = shared.DateOf(end)
	start := end.AddDate(0, 0, -6)

	byDay := make(map[time.Time][]*FoodLogEntry)
	for _, e := range entries {
		d := shared.DateOf(e.Date())
		byDay[d] = append(byDay[d], e)
	}

	trend := WeeklyTrend{Start: start, End: end}
	var calories, scores, dayScores float64
	for i := 0; i < 7; i++ {
		day := start.AddDate(0, 0, i)
		summary := Summarize(day, byDay[day], goals)
		trend.Days = append(trend.Days, summary)
		if summary.EntryCount == 0 {
			continue
		}
		trend.DaysLogged++
		calories += summary.Totals.Calories
		scores += summary.AverageScore
		dayScores += float64(summary.Score)
	}

	if trend.DaysLogged > 0 {
		n := float64(trend.DaysLogged)
		trend.AverageCalories = calories / n
		trend.AverageScore = scores / n
		trend.AverageDayScore = dayScores / n
	}
	return trend
}

func percentOf(actual, goal float64) *float64 {
	if goal <= 0 {
		return nil
	}
	pct := actual / goal * 100
	return &pct
}

func clampScore(v float64) int {
	return int(math.Round(math.Min(100, math.Max(0, v))))
}
