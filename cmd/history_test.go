package cmd

import (
	"bytes"
	"testing"
	"time"

	"github.com/haierkeys/edu-program-service/internal/domain"
	"github.com/haierkeys/edu-program-service/internal/service"

	"github.com/stretchr/testify/assert"
)

func TestPrintRevisions(t *testing.T) {
	var buf bytes.Buffer
	printRevisions(&buf, &service.RevisionPage{
		Items: []*domain.Revision{
			{ID: 7, ActorName: "admin", Comment: "typo fix", Minor: true, CreatedAt: time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)},
			{ID: 3, ActorName: "system", Deleted: true},
		},
		Total: 2,
		Page:  1,
	})

	out := buf.String()
	assert.Contains(t, out, "20240301093000")
	assert.Contains(t, out, "typo fix")
	assert.Contains(t, out, "page 1, 2 of 2 revision(s)")
}

func TestPrintComparison(t *testing.T) {
	var buf bytes.Buffer
	printComparison(&buf, &service.RevisionComparison{
		Revision:  &domain.Revision{ID: 9},
		Preceding: &domain.Revision{ID: 8},
		Changes: []service.FieldChange{
			{Field: domain.CourseTerm, From: "Spring", To: "Fall"},
			{Field: domain.CourseDescription, Removed: true},
		},
	})

	out := buf.String()
	assert.Contains(t, out, "revision 9 against 8")
	assert.Contains(t, out, "~ term: Spring -> Fall")
	assert.Contains(t, out, "- description")

	buf.Reset()
	printComparison(&buf, &service.RevisionComparison{Revision: &domain.Revision{ID: 1}})
	assert.Contains(t, buf.String(), "revision 1 (first)")
	assert.Contains(t, buf.String(), "no changes")
}
