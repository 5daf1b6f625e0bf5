package ai

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"datachat/models"
)

// ImageQAPrompt is sent with an image when the user gave no prompt.
const ImageQAPrompt = `Generate around 3-5 different question-answer pairs about this image. Return the response strictly in the following JSON format:
{
  "qa_pairs": [
    {
      "question": "What is shown in this image?",
      "answer": "The image shows..."
    },
    ...
  ]
}
Make sure the response is valid JSON and each question is unique and insightful.`

// DefaultImagePrompt is used for image messages sent without text.
const DefaultImagePrompt = "Describe this image in detail"

// ChartSpec describes one chart-generation request.
type ChartSpec struct {
	// Data is a JSON array of row objects, forwarded to the model as is.
	Data      json.RawMessage
	Prompt    string
	ChartType string
	ChartSize int
}

// BatchChartSpec describes a script that renders several charts from a CSV on disk.
type BatchChartSpec struct {
	CSVPath    string
	ChartTypes []string
	BatchSize  int
	OutputSize int
}

// FigureSize maps a 0-10 chart size to the matplotlib figsize tier.
func FigureSize(size int) (width, height int) {
	switch {
	case size <= 3:
		return 4, 3
	case size <= 6:
		return 8, 6
	default:
		return 12, 8
	}
}

// BuildChartPrompt asks for a self-contained matplotlib script whose last
// expression is a PNG data URI.
func BuildChartPrompt(spec ChartSpec) string {
	data := []byte(spec.Data)
	if len(bytes.TrimSpace(data)) == 0 {
		data = []byte("[]")
	}
	w, h := FigureSize(spec.ChartSize)

	var b strings.Builder
	b.WriteString("Generate Python code to create a matplotlib chart using the following data and requirements:\n\n")
	fmt.Fprintf(&b, "Data: %s\n", data)
	fmt.Fprintf(&b, "Requirements: %s\n", spec.Prompt)
	fmt.Fprintf(&b, "Chart Type: %s\n", spec.ChartType)
	fmt.Fprintf(&b, "Chart Size: %d (scale from 0-10, where 0 is smallest and 10 is largest)\n\n", spec.ChartSize)
	b.WriteString("Your generated code must:\n\n")
	b.WriteString("1. Use the headless Agg backend by including the following at the top:\n")
	b.WriteString("   \"import matplotlib\n   matplotlib.use('Agg')\"\n")
	fmt.Fprintf(&b, "2. Create a %s chart using the provided data.\n", spec.ChartType)
	b.WriteString("3. Set the figure size based on the chart size (0-10) using plt.figure(figsize=(width, height)) where:\n")
	b.WriteString("   - For size 0-3: use small dimensions (e.g., 4x3)\n")
	b.WriteString("   - For size 4-6: use medium dimensions (e.g., 8x6)\n")
	b.WriteString("   - For size 7-10: use large dimensions (e.g., 12x8)\n")
	fmt.Fprintf(&b, "   For this request use figsize=(%d, %d).\n", w, h)
	b.WriteString("4. Do not use plt.show() or print() anywhere in the script.\n")
	b.WriteString("5. Instead of displaying the plot, save it to an in-memory buffer using BytesIO(), then call:\n")
	b.WriteString("\"plt.savefig(buffer, format='png', bbox_inches='tight')\nplt.close()\"\n")
	b.WriteString("6. Encode the buffer content using Base64 and assign it to a variable:\n")
	b.WriteString("result = f\"data:image/png;base64,{...}\"\n")
	b.WriteString("7. The last line of your script must be a bare result expression (not inside a print statement), so it can be returned directly.\n")
	b.WriteString("Output only the complete Python script.")
	return b.String()
}

// BuildTableQAPrompt asks for diverse question-answer pairs about a table sample.
func BuildTableQAPrompt(tableMarkdown string, n int) string {
	var b strings.Builder
	b.WriteString("You are a helpful assistant that reads tabular data and generates diverse question-answer pairs from it.\n\n")
	b.WriteString("Here is a dataset sample:\n\n")
	b.WriteString(tableMarkdown)
	b.WriteString("\nInstructions:\n")
	fmt.Fprintf(&b, "- Generate %d natural-sounding question-answer pairs based on the data above.\n", n)
	b.WriteString("- Make the questions diverse: factual, inferential, boolean, comparative, descriptive.\n")
	b.WriteString("- Vary question styles and column combinations.\n")
	b.WriteString("- Each question should clearly relate to a specific row or pattern in the data.\n")
	b.WriteString("- Return the result as a JSON array with objects like:\n")
	b.WriteString("[\n    {\"question\": \"...\", \"answer\": \"...\"},\n    ...\n]\n")
	b.WriteString("Only output the JSON data.")
	return b.String()
}

// BuildBatchChartPrompt asks for a pandas/seaborn script that renders
// OutputSize charts from random BatchSize-row samples of a CSV file.
func BuildBatchChartPrompt(spec BatchChartSpec) string {
	types := strings.Join(spec.ChartTypes, ", ")
	var b strings.Builder
	fmt.Fprintf(&b, "You are a Python code assistant. Write Python code to generate a %s using the matplotlib, seaborn library from a CSV dataset.\n\n", types)
	b.WriteString("Instructions:\n")
	fmt.Fprintf(&b, "1. Load the CSV files '%s' using pandas.\n", spec.CSVPath)
	fmt.Fprintf(&b, "2. Use the variable `batch_size` (already defined) to generate %d charts in %s from the dataset with random %d rows.\n", spec.OutputSize, types, spec.BatchSize)
	b.WriteString("3. Dynamically inspect the column types:\n")
	b.WriteString("    - Use `df.select_dtypes(...)` to identify numeric, categorical and datetime columns.\n")
	b.WriteString("    - Do not use any identifier column(s) to generate charts.\n")
	b.WriteString("4. Based on the chart type:\n")
	b.WriteString("    - For bar, pie, treemap, or donut charts: use value counts of a categorical column.\n")
	b.WriteString("    - For scatter, line, radar, or heatmaps: use combinations of numeric columns.\n")
	b.WriteString("    - For box or violin plots: plot numeric values grouped by a categorical column.\n")
	b.WriteString("    - For time series: use a datetime column as x-axis and a numeric column as y-axis.\n")
	b.WriteString("5. Do not assume column names. Use generic column selection like `numeric_cols[0]`, `categorical_cols[0]`, etc.\n")
	b.WriteString("6. Add axis labels, titles, and legends where relevant.\n")
	b.WriteString("7. Include necessary imports and inline comments.\n")
	b.WriteString("8. Use the data as random as possible, e.g. generate each chart with different rows and columns.\n")
	b.WriteString("9. Save each chart as a PNG file under the directory in the variable `output_dir` (already defined).\n\n")
	b.WriteString("Assume:\n")
	b.WriteString("- The `batch_size` and `output_dir` variables are predefined.\n")
	fmt.Fprintf(&b, "- The file exists at the path %s.\n\n", spec.CSVPath)
	b.WriteString("Only output clean, complete Python code.")
	return b.String()
}

// BuildChartReviewPrompt asks the vision model to check Q&A pairs against a chart.
func BuildChartReviewPrompt(tableMarkdown string, pairs []models.QAPair) string {
	var qa strings.Builder
	for i, p := range pairs {
		if i > 0 {
			qa.WriteString("\n")
		}
		fmt.Fprintf(&qa, "Q: %s\nA: %s", p.Question, p.Answer)
	}

	var b strings.Builder
	b.WriteString("You are an expert in data visualization and question-answer validation.\n\n")
	b.WriteString("You are shown a chart (image), and a set of QA pairs that are claimed to be derived from that chart.\n")
	b.WriteString("The charts and QA pairs are generated from this data:\n\n")
	b.WriteString(tableMarkdown)
	b.WriteString("\nYour tasks:\n")
	b.WriteString("1. Determine if the **answer is correct** based on the chart.\n")
	b.WriteString("2. Determine if the **question is relevant** to the chart.\n")
	b.WriteString("3. Identify any **missing data** or misleading visuals in the chart.\n\n")
	b.WriteString("Evaluate each QA pair below:\n\n")
	b.WriteString(qa.String())
	b.WriteString("\n\nRespond with a numbered list for each QA pair:\n")
	b.WriteString("- Is the answer correct?\n- Is the question relevant?\n- Justify briefly.\n\n")
	b.WriteString("Also note any issues with the chart itself at the end of the response.")
	return b.String()
}
