package devserver

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/go-go-golems/remoni/pkg/api"
)

// Answerer turns a question into a chat reply.
type Answerer interface {
	Answer(ctx context.Context, question string) api.ChatResponse
}

type AnswererFunc func(ctx context.Context, question string) api.ChatResponse

func (f AnswererFunc) Answer(ctx context.Context, question string) api.ChatResponse {
	return f(ctx, question)
}

var (
	vitalsKeywords = []string{"latest", "current", "recent", "vitals", "blood pressure", "spo2", "oxygen"}
	plotKeywords   = []string{"plot", "graph", "chart", "visualize", "show", "trend", "history", "variation"}

	// checked in order, first match wins; keywords match whole words only
	sensorKeywords = []sensorKeyword{
		newSensorKeyword("heart rate", "heart_rate"),
		newSensorKeyword("heartrate", "heart_rate"),
		newSensorKeyword("hr", "heart_rate"),
		newSensorKeyword("pulse", "heart_rate"),
		newSensorKeyword("bpm", "heart_rate"),
		newSensorKeyword("steps", "steps"),
		newSensorKeyword("accelerometer", "accelerometer_x", "accelerometer_y", "accelerometer_z"),
		newSensorKeyword("gyroscope", "gyroscope_x", "gyroscope_y", "gyroscope_z"),
		newSensorKeyword("temperature", "temperature"),
		newSensorKeyword("temp", "temperature"),
		newSensorKeyword("pressure", "pressure"),
		newSensorKeyword("light", "light"),
		newSensorKeyword("proximity", "proximity"),
	}

	minutesRe = regexp.MustCompile(`(\d+)\s*minute`)
	hoursRe   = regexp.MustCompile(`(\d+)\s*hour`)
)

type sensorKeyword struct {
	word    *regexp.Regexp
	columns []string
}

func newSensorKeyword(keyword string, columns ...string) sensorKeyword {
	return sensorKeyword{
		word:    regexp.MustCompile(`\b` + regexp.QuoteMeta(keyword) + `\b`),
		columns: columns,
	}
}

// KeywordAnswerer routes questions by keyword: current vitals, sensor plots,
// latest sensor readings, and a general fallback.
type KeywordAnswerer struct {
	State    *State
	PlotPath string
	Now      func() time.Time
}

func NewKeywordAnswerer(state *State) *KeywordAnswerer {
	return &KeywordAnswerer{
		State:    state,
		PlotPath: "/static/local_data/show_data",
		Now:      time.Now,
	}
}

func (k *KeywordAnswerer) Answer(_ context.Context, question string) api.ChatResponse {
	q := strings.ToLower(question)

	if containsAny(q, vitalsKeywords) {
		v, ok := k.State.Vitals()
		if !ok {
			return answer("Could not fetch current vitals from server.")
		}
		return answer(vitalsSummary(v))
	}

	window := timeRange(q)
	columns := sensorColumns(q)
	isPlot := containsAny(q, plotKeywords)

	switch {
	case isPlot && len(columns) > 0:
		var plots []string
		for _, c := range columns {
			if _, ok := k.State.LatestSensor(c, window); ok {
				plots = append(plots, k.plotRef(c))
			}
		}
		if len(plots) == 0 {
			if len(k.State.SensorColumns(window)) == 0 {
				return answer("No data to plot.")
			}
			return answer("Could not generate plots.")
		}
		resp := answer("Plot for " + strings.Join(columns, ", "))
		resp.Plots = plots
		return resp

	case len(columns) > 0:
		if len(k.State.SensorColumns(window)) == 0 {
			return answer("No sensor data available.")
		}
		var b strings.Builder
		for _, c := range columns {
			if v, ok := k.State.LatestSensor(c, window); ok {
				fmt.Fprintf(&b, "- %s: %s\n", title(c), strconv.FormatFloat(v, 'f', -1, 64))
			}
		}
		if b.Len() == 0 {
			return answer("No readings for " + strings.Join(columns, ", ") + " yet.")
		}
		return answer(strings.TrimRight(b.String(), "\n"))

	default:
		return answer("I am REMONI, your virtual nurse. Ask me about the patient's current vitals, or for a plot of heart rate, steps or temperature.")
	}
}

func (k *KeywordAnswerer) plotRef(column string) string {
	now := time.Now
	if k.Now != nil {
		now = k.Now
	}
	return fmt.Sprintf("%s/plot_%s_%s.png", strings.TrimSuffix(k.PlotPath, "/"), column, now().Format("20060102_150405"))
}

func answer(s string) api.ChatResponse {
	return api.ChatResponse{Answer: &s}
}

func vitalsSummary(v api.Vitals) string {
	dt := v.DateTime
	if dt == "" {
		dt = "N/A"
	}
	return fmt.Sprintf("• Heart Rate: %g BPM\n• SpO2: %g%%\n• Blood Pressure: %g/%g mmHg\n• Skin Temp: %g°C\n• Last Updated: %s",
		v.HeartRate, v.SpO2, v.BloodPressure.Systolic, v.BloodPressure.Diastolic, v.SkinTemperature, dt)
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

func sensorColumns(q string) []string {
	for _, k := range sensorKeywords {
		if k.word.MatchString(q) {
			return k.columns
		}
	}
	return nil
}

// timeRange reads "N minutes" or "N hours" from the question. Hours win.
func timeRange(q string) time.Duration {
	var d time.Duration
	if m := minutesRe.FindStringSubmatch(q); m != nil {
		n, _ := strconv.Atoi(m[1])
		d = time.Duration(n) * time.Minute
	}
	if m := hoursRe.FindStringSubmatch(q); m != nil {
		n, _ := strconv.Atoi(m[1])
		d = time.Duration(n) * time.Hour
	}
	return d
}

func title(column string) string {
	words := strings.Split(column, "_")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}
