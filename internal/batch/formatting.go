package batch

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// FormatResults renders the results as text, json, yaml or csv.
func (r *Result) FormatResults(format string) (string, error) {
	switch format {
	case FormatJSON:
		return formatJSON(r)
	case FormatYAML:
		return formatYAML(r)
	case FormatCSV:
		return formatCSV(r)
	case FormatText, "":
		return formatText(r), nil
	default:
		return "", fmt.Errorf("unsupported format %q", format)
	}
}

// FormatItem renders a single scan. The text format is just the message.
func FormatItem(it Item, format string) (string, error) {
	switch format {
	case FormatJSON:
		return formatJSON(it)
	case FormatYAML:
		return formatYAML(it)
	case FormatCSV:
		return formatCSV(&Result{Items: []Item{it}})
	case FormatText, "":
		return strings.TrimRight(it.Message, "\n") + "\n", nil
	default:
		return "", fmt.Errorf("unsupported format %q", format)
	}
}

func formatJSON(v any) (string, error) {
	bts, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", err
	}
	return string(bts) + "\n", nil
}

func formatYAML(v any) (string, error) {
	var sb strings.Builder
	enc := yaml.NewEncoder(&sb)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	if err := enc.Close(); err != nil {
		return "", err
	}
	return sb.String(), nil
}

func formatCSV(r *Result) (string, error) {
	var output strings.Builder
	writer := csv.NewWriter(&output)
	rows := [][]string{{"file", "status", "text", "symbology", "value_type", "angle", "message"}}
	for _, it := range r.Items {
		rows = append(rows, []string{
			it.File, it.Status, it.Text, it.Symbology, it.ValueType, strconv.Itoa(it.Angle), it.Message,
		})
	}
	if err := writer.WriteAll(rows); err != nil {
		return "", err
	}
	return output.String(), nil
}

// formatText prints one section per file with the user-facing message.
func formatText(r *Result) string {
	var output strings.Builder
	for i, it := range r.Items {
		if i > 0 {
			output.WriteString("\n")
		}
		fmt.Fprintf(&output, "# %s\n", it.File)
		output.WriteString(strings.TrimRight(it.Message, "\n"))
		output.WriteString("\n")
	}
	return output.String()
}
