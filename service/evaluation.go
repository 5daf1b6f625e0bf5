package service

import (
	"fmt"
	"math"
	"strings"

	"datachat/dataset"
	"datachat/models"
)

// Evaluator scores generated chart code and question-answer pairs with
// keyword heuristics. Nothing is executed.
type Evaluator struct{}

func NewEvaluator() *Evaluator {
	return &Evaluator{}
}

type chartRequirement func(numeric, categorical, datetime int) bool

var chartRequirements = map[string]chartRequirement{
	"bar":         func(n, c, d int) bool { return c > 0 },
	"pie":         func(n, c, d int) bool { return c > 0 },
	"treemap":     func(n, c, d int) bool { return c > 0 },
	"donut":       func(n, c, d int) bool { return c > 0 },
	"scatter":     func(n, c, d int) bool { return n >= 2 },
	"line":        func(n, c, d int) bool { return n >= 2 },
	"radar":       func(n, c, d int) bool { return n >= 2 },
	"heatmap":     func(n, c, d int) bool { return n >= 2 },
	"area":        func(n, c, d int) bool { return n >= 1 },
	"histogram":   func(n, c, d int) bool { return n >= 1 },
	"box":         func(n, c, d int) bool { return n > 0 && c > 0 },
	"violin":      func(n, c, d int) bool { return n > 0 && c > 0 },
	"time_series": func(n, c, d int) bool { return d > 0 && n > 0 },
}

// chartKeywords lists calls that show the code draws the requested kind.
var chartKeywords = map[string][]string{
	"bar":         {"value_counts", "plt.bar", "barplot", ".bar("},
	"pie":         {"value_counts", "plt.pie", ".pie("},
	"treemap":     {"value_counts", "squarify"},
	"donut":       {"value_counts", "plt.pie", "wedgeprops"},
	"scatter":     {"scatterplot", "plt.scatter", ".scatter("},
	"line":        {"lineplot", "plt.plot", ".plot("},
	"radar":       {"polar", "lineplot"},
	"heatmap":     {"heatmap", "imshow"},
	"area":        {"fill_between", "stackplot", "plot.area", "kind='area'"},
	"histogram":   {"plt.hist", "histplot", ".hist("},
	"box":         {"boxplot"},
	"violin":      {"violinplot"},
	"time_series": {"lineplot", "plt.plot"},
}

// NormalizeEvalChartType maps display labels such as "Radar Chart" or
// "Time Series" to the keys used by the heuristics.
func NormalizeEvalChartType(t string) string {
	n := strings.ToLower(strings.TrimSpace(t))
	n = strings.TrimSuffix(n, " chart")
	n = strings.TrimSuffix(n, " plot")
	return strings.ReplaceAll(n, " ", "_")
}

// EvaluateChartCode scores code for one chart type against the dataset
// profile: correctness from the drawing calls used, completeness from titles,
// labels and legends, diversity from sampling and column variety.
func (e *Evaluator) EvaluateChartCode(profile dataset.Profile, chartType, code string) models.ChartEvaluation {
	key := NormalizeEvalChartType(chartType)
	eval := models.ChartEvaluation{ChartType: key, Comments: []string{}}

	req, ok := chartRequirements[key]
	if !ok {
		eval.Comments = append(eval.Comments, fmt.Sprintf("Unsupported chart type: %s", chartType))
		return eval
	}
	numeric, categorical, datetime := len(profile.Numeric()), len(profile.Categorical()), len(profile.Datetime())
	if !req(numeric, categorical, datetime) {
		eval.Comments = append(eval.Comments, fmt.Sprintf("Insufficient columns for %s chart.", key))
		return eval
	}
	if strings.TrimSpace(code) == "" {
		eval.Comments = append(eval.Comments, "No code was generated.")
		return eval
	}

	correctness := 0.0
	if containsAny(code, chartKeywords[key]...) {
		correctness += 0.5
	}
	if key == "time_series" && !strings.Contains(code, "datetime") {
		correctness = 0
	}
	if containsAny(code, "plt.savefig", "plt.show()") {
		correctness += 0.5
	}
	eval.Correctness = correctness

	completeness := 0.0
	if containsAny(code, "plt.title", ".set_title") {
		completeness += 0.3
	}
	if containsAny(code, "plt.xlabel", ".set_xlabel") {
		completeness += 0.3
	}
	if containsAny(code, "plt.ylabel", ".set_ylabel") {
		completeness += 0.3
	}
	if containsAny(code, "plt.legend", "autopct", ".legend(") {
		completeness += 0.1
	}
	eval.Completeness = round2(math.Min(completeness, 1.0))

	diversity := 0.0
	if containsAny(code, "random.choice", "sample") {
		diversity += 0.5
	}
	if numeric > 2 || categorical > 2 {
		diversity += 0.5
	}
	eval.Diversity = diversity

	eval.Comments = append(eval.Comments, "Chart code analysed successfully.")
	return eval
}

// EvaluateQAPairs scores pairs generated from the first batchSize rows of ds.
// outputSize is the number of pairs that was requested.
func (e *Evaluator) EvaluateQAPairs(ds *dataset.Dataset, batchSize, outputSize int, pairs []models.QAPair) models.QAPairEvaluation {
	eval := models.QAPairEvaluation{Comments: []string{}}
	if len(pairs) != outputSize {
		eval.Comments = append(eval.Comments, fmt.Sprintf("Expected %d QA pairs, got %d.", outputSize, len(pairs)))
		return eval
	}
	if outputSize == 0 {
		return eval
	}
	sample := ds.Head(batchSize)

	correct := 0
	for _, p := range pairs {
		if p.Question == "" || p.Answer == "" {
			eval.Comments = append(eval.Comments, "Empty question or answer detected.")
			continue
		}
		q := strings.ToLower(p.Question)
		for _, col := range sample.Headers {
			if !strings.Contains(q, strings.ToLower(col)) {
				continue
			}
			if columnValueIn(sample, col, p.Answer) {
				correct++
				break
			}
		}
	}
	eval.Correctness = round2(float64(correct) / float64(outputSize))

	types := map[string]struct{}{}
	for _, p := range pairs {
		for _, t := range questionTypes(p.Question) {
			types[t] = struct{}{}
		}
	}
	eval.Diversity = round2(float64(len(types)) / 5.0)

	relevant := 0
	for _, p := range pairs {
		if referencesData(sample, strings.ToLower(p.Question)) {
			relevant++
		}
	}
	eval.Relevance = round2(float64(relevant) / float64(outputSize))

	eval.Comments = append(eval.Comments, "QA pairs evaluated successfully.")
	return eval
}

// questionTypes classifies a question as factual, inferential, boolean,
// comparative or descriptive. One question may fall in several.
func questionTypes(question string) []string {
	q := strings.ToLower(strings.TrimSpace(question))
	var out []string
	if containsAny(q, "what", "which") {
		out = append(out, "factual")
	}
	if containsAny(q, "why", "how") {
		out = append(out, "inferential")
	}
	if strings.HasPrefix(q, "is") || strings.HasPrefix(q, "are") || strings.HasPrefix(q, "does") {
		out = append(out, "boolean")
	}
	if containsAny(q, "compare", "difference") {
		out = append(out, "comparative")
	}
	if containsAny(q, "describe", "summary") {
		out = append(out, "descriptive")
	}
	return out
}

func columnValueIn(ds *dataset.Dataset, col, answer string) bool {
	for _, row := range ds.Rows {
		if v := row[col]; v != "" && strings.Contains(answer, v) {
			return true
		}
	}
	return false
}

func referencesData(ds *dataset.Dataset, question string) bool {
	for _, col := range ds.Headers {
		if strings.Contains(question, strings.ToLower(col)) {
			return true
		}
	}
	for _, row := range ds.Rows {
		for _, v := range row {
			if v != "" && strings.Contains(question, strings.ToLower(v)) {
				return true
			}
		}
	}
	return false
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
