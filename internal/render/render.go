// Package render turns assembled course reports into printable HTML.
package render

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"strconv"

	"github.com/noah-isme/gema-evidence-api/internal/service"
)

//go:embed templates/*.html
var templateFS embed.FS

// HTMLRenderer writes the printable evidence report.
type HTMLRenderer struct {
	tmpl       *template.Template
	dateLayout string
}

// NewHTMLRenderer parses the embedded report template.
func NewHTMLRenderer(dateLayout string) (*HTMLRenderer, error) {
	tmpl, err := template.New("course_report.html").Funcs(template.FuncMap{
		"percent": formatPercent,
	}).ParseFS(templateFS, "templates/course_report.html")
	if err != nil {
		return nil, fmt.Errorf("parse report template: %w", err)
	}
	if dateLayout == "" {
		dateLayout = "January 2, 2006"
	}
	return &HTMLRenderer{tmpl: tmpl, dateLayout: dateLayout}, nil
}

type reportView struct {
	CourseTitle string
	StudentName string
	GeneratedAt string
	Lessons     []string
	Progress    service.ProgressSummary
	Evidence    []evidenceView
	Quizzes     []service.QuizResultRow
}

type evidenceView struct {
	Text      string
	Marker    string
	Completed bool
}

// Render consumes the report's evidence sequence.
func (r *HTMLRenderer) Render(w io.Writer, report service.CourseReport) error {
	view := reportView{
		CourseTitle: report.CourseTitle,
		StudentName: report.UserDisplayName,
		GeneratedAt: report.GeneratedAt.Format(r.dateLayout),
		Lessons:     report.LessonTitles,
		Progress:    report.Progress,
		Quizzes:     report.Quizzes,
	}
	if report.Evidence != nil {
		for line := range report.Evidence {
			view.Evidence = append(view.Evidence, evidenceView{Text: line.Text, Marker: line.Marker(), Completed: line.Completed})
		}
	}

	return r.tmpl.Execute(w, view)
}

func formatPercent(value float64) string {
	return strconv.FormatFloat(value, 'f', 2, 64) + "%"
}
