package layout

import (
	"context"
	"html/template"
	"io"
	"log"
)

// RecordNumberSource supplies the value shown on the sign-in screen.
type RecordNumberSource interface {
	RecordNumber(ctx context.Context) (string, error)
}

var displayTemplate = template.Must(template.New("record-number").Parse(
	`<div class="record-number-display" style="text-align: center; margin-top: 10px; color: #888;">Record Number: {{.}}</div>`))

// Display is the record-number widget. It renders nothing while the value is unset.
type Display struct {
	source RecordNumberSource
	logger *log.Logger
}

func NewDisplay(source RecordNumberSource, logger *log.Logger) *Display {
	return &Display{
		source: source,
		logger: logger,
	}
}

func (d *Display) Render(ctx context.Context, w io.Writer, _ any) error {
	value, err := d.source.RecordNumber(ctx)
	if err != nil {
		d.logger.Printf("Error loading record number for display: %v", err)
		return nil
	}
	if value == "" {
		return nil
	}
	return displayTemplate.Execute(w, value)
}
