package report_test

import (
	"bytes"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/p-n-ai/cbt-admin/internal/catalog"
	"github.com/p-n-ai/cbt-admin/internal/report"
)

func TestWriteStatus(t *testing.T) {
	e, err := catalog.NewExam(catalog.ExamSpec{Code: "waec", Name: "WAEC", Category: catalog.CategorySecondary}, 15)
	if err != nil {
		t.Fatalf("NewExam() error = %v", err)
	}
	hidden := false
	_ = e.AddYear(catalog.YearSpec{Year: 2022, Subjects: []catalog.SubjectSpec{
		{Name: "Physics"},
		{Name: "Biology", IsVisible: &hidden},
	}})
	_ = e.ApplyCounts([]catalog.CountUpdate{{Year: 2022, Subject: "Physics", NewCount: 20}})

	var buf bytes.Buffer
	if err := report.WriteStatus(&buf, e); err != nil {
		t.Fatalf("WriteStatus() error = %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("OpenReader() error = %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows("Status")
	if err != nil {
		t.Fatalf("GetRows() error = %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("rows = %d, want header + 2", len(rows))
	}
	if rows[1][2] != "Physics" || rows[1][3] != "20" || rows[1][6] != "live" {
		t.Errorf("Physics row = %v", rows[1])
	}
	if rows[2][2] != "Biology" || rows[2][6] != "hidden-incomplete" {
		t.Errorf("Biology row = %v", rows[2])
	}

	summary, err := f.GetRows("Summary")
	if err != nil {
		t.Fatalf("GetRows(Summary) error = %v", err)
	}
	if len(summary) != 5 || summary[1][0] != "live" || summary[1][1] != "1" {
		t.Errorf("summary = %v", summary)
	}
}
