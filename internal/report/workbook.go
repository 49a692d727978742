// Package report exports a learner's progress as a spreadsheet.
package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/p-n-ai/pai-progress/internal/progress"
)

const (
	summarySheet  = "Summary"
	sectionsSheet = "Sections"
)

// WriteWorkbook renders summary as an XLSX workbook with a per-course sheet
// and a per-section sheet. Labels are formatted for tag.
func WriteWorkbook(w io.Writer, summary progress.ProfileSummary, tag language.Tag) error {
	p := message.NewPrinter(tag)

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if _, err := f.NewSheet(sectionsSheet); err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}

	if err := f.SetSheetRow(summarySheet, "A1", &[]any{"Course", "Name", "Completed", "Total", "Percent", "Label"}); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if err := f.SetSheetRow(sectionsSheet, "A1", &[]any{"Course", "Section", "Completed", "Total", "Percent", "Completed topics"}); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	row := 2
	sectionRow := 2
	for _, c := range summary.Courses {
		cell, _ := excelize.CoordinatesToCellName(1, row)
		if err := f.SetSheetRow(summarySheet, cell, &[]any{
			c.CourseID,
			c.Name,
			c.Progress.CompletedCount,
			c.Progress.TotalCount,
			c.Progress.Percent,
			label(p, c.Progress),
		}); err != nil {
			return fmt.Errorf("write course %s: %w", c.CourseID, err)
		}
		row++

		for _, s := range c.Sections {
			cell, _ := excelize.CoordinatesToCellName(1, sectionRow)
			if err := f.SetSheetRow(sectionsSheet, cell, &[]any{
				c.CourseID,
				s.SectionID,
				s.Progress.CompletedCount,
				s.Progress.TotalCount,
				s.Progress.Percent,
				joinKeys(s.Progress.CompletedTopicKeys),
			}); err != nil {
				return fmt.Errorf("write section %s/%s: %w", c.CourseID, s.SectionID, err)
			}
			sectionRow++
		}
	}

	cell, _ := excelize.CoordinatesToCellName(1, row+1)
	if err := f.SetSheetRow(summarySheet, cell, &[]any{
		"Overall", "", "", "", summary.Percent, p.Sprintf("%d%% average across %d courses", summary.Percent, len(summary.Courses)),
	}); err != nil {
		return fmt.Errorf("write overall: %w", err)
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func label(p *message.Printer, rp progress.ReconciledProgress) string {
	return p.Sprintf("%d of %d topics (%d%%)", rp.CompletedCount, rp.TotalCount, rp.Percent)
}

func joinKeys(keys progress.KeySet) string {
	return strings.Join(keys.Keys(), ", ")
}
